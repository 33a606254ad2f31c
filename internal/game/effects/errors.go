package effects

import (
	"errors"
	"fmt"
)

// Activation and resolution errors. Every error is local to the effect that
// raised it.
var (
	ErrNotFound               = errors.New("card or effect not found")
	ErrWrongTimingKind        = errors.New("effect cannot be activated")
	ErrWrongPhase             = errors.New("effect cannot be activated in this phase")
	ErrAlreadyUsedThisTurn    = errors.New("effect already used this turn")
	ErrConditionNotMet        = errors.New("effect condition not met")
	ErrCannotAffordCost       = errors.New("cannot afford effect cost")
	ErrCostPaymentFailed      = errors.New("effect cost payment failed")
	ErrScriptNotFound         = errors.New("effect script not found")
	ErrScriptExecutionFailed  = errors.New("effect script failed")
	ErrInvalidReplacementKind = errors.New("definition is not a replacement effect")
	ErrParamsMismatch         = errors.New("effect parameters do not match script")
	ErrInvalidTargets         = errors.New("invalid effect targets")
	ErrNotAwaitingInput       = errors.New("effect is not awaiting input")
)

// ScriptError wraps an error returned by an effect script with the script and
// source that failed. It matches both ErrScriptExecutionFailed and the
// underlying error.
type ScriptError struct {
	ScriptID ScriptID
	EffectID string
	SourceID string
	Err      error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %s (effect %s, source %s): %v", e.ScriptID, e.EffectID, e.SourceID, e.Err)
}

func (e *ScriptError) Unwrap() []error {
	return []error{ErrScriptExecutionFailed, e.Err}
}
