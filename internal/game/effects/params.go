package effects

import (
	"fmt"
	"strconv"

	"github.com/spf13/cast"
)

// Params is the typed parameter set of a script. Bind returns a copy with
// the recognised keys of values applied; unknown keys are ignored.
type Params interface {
	Values() map[string]string
	Bind(values map[string]string) (Params, error)
}

// NoParams is the parameter set of scripts that take none.
type NoParams struct{}

func (NoParams) Values() map[string]string { return map[string]string{} }

func (p NoParams) Bind(map[string]string) (Params, error) { return p, nil }

// BindInt parses values[key] into dst when present.
func BindInt(values map[string]string, key string, dst *int) error {
	raw, ok := values[key]
	if !ok {
		return nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrParamsMismatch, key, raw)
	}
	*dst = n
	return nil
}

// BindBool parses values[key] into dst when present.
func BindBool(values map[string]string, key string, dst *bool) error {
	raw, ok := values[key]
	if !ok {
		return nil
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a boolean", ErrParamsMismatch, key, raw)
	}
	*dst = b
	return nil
}

// IntValue formats an integer parameter for Values.
func IntValue(n int) string {
	return strconv.Itoa(n)
}
