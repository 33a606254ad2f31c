package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grandline/opcg-server-go/internal/game/conditions"
	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCondition is returned for condition nodes that do not set exactly
// one operator.
var ErrInvalidCondition = errors.New("invalid condition")

// conditionNode is the YAML form of a condition tree. Exactly one field is
// set per node:
//
//	condition:
//	  all:
//	    - compare: {left: controller.life, op: "<=", right: 2}
//	    - not: {keyword: Rush}
type conditionNode struct {
	All     []conditionNode `yaml:"all,omitempty"`
	Any     []conditionNode `yaml:"any,omitempty"`
	Not     *conditionNode  `yaml:"not,omitempty"`
	Compare *compareNode    `yaml:"compare,omitempty"`
	Keyword string          `yaml:"keyword,omitempty"`
	Zone    string          `yaml:"zone,omitempty"`
	Color   string          `yaml:"color,omitempty"`
}

type compareNode struct {
	Left  operandNode `yaml:"left"`
	Op    string      `yaml:"op"`
	Right operandNode `yaml:"right"`
}

// operandNode decodes an integer literal or a lookup name.
type operandNode struct {
	conditions.Operand
}

func (o *operandNode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: operand must be a scalar (line %d)", ErrInvalidCondition, value.Line)
	}
	if n, err := cast.ToIntE(value.Value); err == nil {
		o.Operand = conditions.Lit(n)
		return nil
	}
	name := strings.TrimSpace(value.Value)
	if !knownLookup(name) {
		return fmt.Errorf("%w: unknown lookup %q (line %d)", ErrInvalidCondition, name, value.Line)
	}
	o.Operand = conditions.Ref(name)
	return nil
}

func (o operandNode) MarshalYAML() (any, error) {
	if o.Lookup == "" {
		return o.Literal, nil
	}
	return o.Lookup, nil
}

func knownLookup(name string) bool {
	for _, l := range conditions.Lookups() {
		if l == name {
			return true
		}
	}
	return false
}

// build converts the node to a condition. A nil node has no condition.
func (n *conditionNode) build() (conditions.Condition, error) {
	if n == nil {
		return nil, nil
	}

	set := 0
	var out conditions.Condition
	if n.All != nil {
		set++
		parts, err := buildAll(n.All)
		if err != nil {
			return nil, err
		}
		out = conditions.And(parts)
	}
	if n.Any != nil {
		set++
		parts, err := buildAll(n.Any)
		if err != nil {
			return nil, err
		}
		out = conditions.Or(parts)
	}
	if n.Not != nil {
		set++
		inner, err := n.Not.build()
		if err != nil {
			return nil, err
		}
		out = conditions.Not{Condition: inner}
	}
	if n.Compare != nil {
		set++
		op, err := conditions.ParseOp(n.Compare.Op)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCondition, err)
		}
		out = conditions.Compare{Op: op, Left: n.Compare.Left.Operand, Right: n.Compare.Right.Operand}
	}
	if n.Keyword != "" {
		set++
		out = conditions.HasKeyword{Keyword: n.Keyword}
	}
	if n.Zone != "" {
		set++
		zone, err := rules.ParseZone(n.Zone)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCondition, err)
		}
		out = conditions.InZone{Zone: zone}
	}
	if n.Color != "" {
		set++
		out = conditions.IsColor{Color: n.Color}
	}

	if set != 1 {
		return nil, fmt.Errorf("%w: node sets %d operators, want 1", ErrInvalidCondition, set)
	}
	return out, nil
}

func buildAll(nodes []conditionNode) ([]conditions.Condition, error) {
	parts := make([]conditions.Condition, 0, len(nodes))
	for i := range nodes {
		c, err := nodes[i].build()
		if err != nil {
			return nil, err
		}
		parts = append(parts, c)
	}
	return parts, nil
}
