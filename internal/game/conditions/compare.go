package conditions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
)

// Op is a comparison operator.
type Op string

const (
	OpEQ  Op = "EQ"
	OpNEQ Op = "NEQ"
	OpGT  Op = "GT"
	OpLT  Op = "LT"
	OpGTE Op = "GTE"
	OpLTE Op = "LTE"
)

var opSymbols = map[string]Op{
	"==": OpEQ, "=": OpEQ, "!=": OpNEQ,
	">": OpGT, "<": OpLT, ">=": OpGTE, "<=": OpLTE,
}

// ParseOp accepts operator names (EQ, gte) and symbols (==, >=).
func ParseOp(s string) (Op, error) {
	s = strings.TrimSpace(s)
	if op, ok := opSymbols[s]; ok {
		return op, nil
	}
	op := Op(strings.ToUpper(s))
	switch op {
	case OpEQ, OpNEQ, OpGT, OpLT, OpGTE, OpLTE:
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
}

// Apply compares left and right.
func (op Op) Apply(left, right int) (bool, error) {
	switch op {
	case OpEQ:
		return left == right, nil
	case OpNEQ:
		return left != right, nil
	case OpGT:
		return left > right, nil
	case OpLT:
		return left < right, nil
	case OpGTE:
		return left >= right, nil
	case OpLTE:
		return left <= right, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownOperator, string(op))
}

// Operand is either an integer literal or a named state lookup.
type Operand struct {
	Literal int
	Lookup  string
}

// Lit returns a literal operand.
func Lit(n int) Operand {
	return Operand{Literal: n}
}

// Ref returns a lookup operand.
func Ref(name string) Operand {
	return Operand{Lookup: name}
}

func (o Operand) String() string {
	if o.Lookup != "" {
		return o.Lookup
	}
	return fmt.Sprint(o.Literal)
}

// Resolve returns the operand's value in the context.
func (o Operand) Resolve(ctx Context) (int, error) {
	if o.Lookup == "" {
		return o.Literal, nil
	}
	fn, ok := lookups[o.Lookup]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLookup, o.Lookup)
	}
	return fn(ctx)
}

// Compare applies Op to two resolved operands.
type Compare struct {
	Op    Op
	Left  Operand
	Right Operand
}

func (c Compare) Evaluate(ctx Context) (bool, error) {
	left, err := c.Left.Resolve(ctx)
	if err != nil {
		return false, err
	}
	right, err := c.Right.Resolve(ctx)
	if err != nil {
		return false, err
	}
	return c.Op.Apply(left, right)
}

type lookupFunc func(ctx Context) (int, error)

var lookups = map[string]lookupFunc{
	"turn": func(ctx Context) (int, error) {
		return ctx.State.TurnNumber(), nil
	},
	"source.power":      sourceValue(func(c state.Card) int { return c.EffectivePower() }),
	"source.base_power": sourceValue(func(c state.Card) int { return c.Power }),
	"source.cost":       sourceValue(func(c state.Card) int { return c.Cost }),
	"source.counter":    sourceValue(func(c state.Card) int { return c.Counter }),
}

func init() {
	sides := map[string]func(Context) string{
		"controller": func(ctx Context) string { return ctx.Controller },
		"opponent":   func(ctx Context) string { return state.Opponent(ctx.State, ctx.Controller) },
	}
	for prefix, player := range sides {
		lookups[prefix+".hand"] = zoneCount(player, rules.ZoneHand, false)
		lookups[prefix+".life"] = zoneCount(player, rules.ZoneLife, false)
		lookups[prefix+".deck"] = zoneCount(player, rules.ZoneDeck, false)
		lookups[prefix+".trash"] = zoneCount(player, rules.ZoneTrash, false)
		lookups[prefix+".characters"] = zoneCount(player, rules.ZoneCharacter, false)
		lookups[prefix+".don"] = zoneCount(player, rules.ZoneCostArea, true)
		lookups[prefix+".don_total"] = zoneCount(player, rules.ZoneCostArea, false)
		for _, stat := range []string{"played", "attacks", "kos", "drawn"} {
			lookups[prefix+"."+stat+"_this_turn"] = turnStat(player, stat)
		}
	}
}

// Lookups returns the supported lookup names, sorted.
func Lookups() []string {
	names := make([]string, 0, len(lookups))
	for name := range lookups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sourceValue(get func(state.Card) int) lookupFunc {
	return func(ctx Context) (int, error) {
		card, err := ctx.Source()
		if err != nil {
			return 0, err
		}
		return get(card), nil
	}
}

func zoneCount(player func(Context) string, zone rules.Zone, activeOnly bool) lookupFunc {
	return func(ctx Context) (int, error) {
		id := player(ctx)
		p, ok := ctx.State.GetPlayer(id)
		if !ok {
			return 0, fmt.Errorf("%w: %q", state.ErrPlayerNotFound, id)
		}
		if activeOnly {
			return len(state.ActiveCardsIn(ctx.State, id, zone)), nil
		}
		return p.Count(zone), nil
	}
}

func turnStat(player func(Context) string, stat string) lookupFunc {
	return func(ctx Context) (int, error) {
		if ctx.Stats == nil {
			return 0, nil
		}
		return ctx.Stats.ThisTurn(stat, player(ctx)), nil
	}
}
