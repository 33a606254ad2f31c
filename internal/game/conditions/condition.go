// Package conditions implements the boolean condition trees attached to
// effect definitions and their evaluator.
package conditions

import (
	"errors"
	"fmt"

	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
)

var (
	// ErrSourceNotFound is returned when the context's source card is not in the store.
	ErrSourceNotFound = errors.New("condition source card not found")
	// ErrUnknownLookup is returned for a Compare operand naming an unknown lookup.
	ErrUnknownLookup = errors.New("unknown condition lookup")
	// ErrUnknownOperator is returned for an unsupported comparison operator.
	ErrUnknownOperator = errors.New("unknown comparison operator")
)

// Context is the state a condition is evaluated against.
type Context struct {
	State      state.Reader
	SourceID   string
	Controller string
	Stats      TurnStats // optional; *_this_turn lookups read 0 without it
}

// TurnStats reports per-player tallies accumulated during the current turn.
type TurnStats interface {
	ThisTurn(stat, playerID string) int
}

// Source returns the source card of the context.
func (ctx Context) Source() (state.Card, error) {
	card, ok := ctx.State.GetCard(ctx.SourceID)
	if !ok {
		return state.Card{}, fmt.Errorf("%w: %s", ErrSourceNotFound, ctx.SourceID)
	}
	return card, nil
}

// Condition is a node of a condition tree. Evaluation reads the state and never
// modifies it, so the same node and context always yield the same result.
type Condition interface {
	Evaluate(ctx Context) (bool, error)
}

// Holds evaluates an optional condition; a nil condition always holds.
func Holds(c Condition, ctx Context) (bool, error) {
	if c == nil {
		return true, nil
	}
	return c.Evaluate(ctx)
}

// And holds when every child holds. It stops at the first false child.
// An empty And holds.
type And []Condition

func (a And) Evaluate(ctx Context) (bool, error) {
	for _, c := range a {
		ok, err := c.Evaluate(ctx)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Or holds when any child holds. It stops at the first true child.
// An empty Or does not hold.
type Or []Condition

func (o Or) Evaluate(ctx Context) (bool, error) {
	for _, c := range o {
		ok, err := c.Evaluate(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Not negates its operand.
type Not struct {
	Condition Condition
}

func (n Not) Evaluate(ctx Context) (bool, error) {
	ok, err := Holds(n.Condition, ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// HasKeyword holds when the source card has the keyword.
type HasKeyword struct {
	Keyword string
}

func (h HasKeyword) Evaluate(ctx Context) (bool, error) {
	card, err := ctx.Source()
	if err != nil {
		return false, err
	}
	return card.HasKeyword(h.Keyword), nil
}

// InZone holds when the source card is in the zone.
type InZone struct {
	Zone rules.Zone
}

func (z InZone) Evaluate(ctx Context) (bool, error) {
	card, err := ctx.Source()
	if err != nil {
		return false, err
	}
	return card.Zone == z.Zone, nil
}

// IsColor holds when the source card has the color.
type IsColor struct {
	Color string
}

func (c IsColor) Evaluate(ctx Context) (bool, error) {
	card, err := ctx.Source()
	if err != nil {
		return false, err
	}
	return card.HasColor(c.Color), nil
}
