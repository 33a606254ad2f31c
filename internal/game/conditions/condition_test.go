package conditions

import (
	"testing"

	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *state.MemoryStore {
	t.Helper()
	s := state.NewMemoryStore(nil, nil, "p1", "p2")
	require.NoError(t, s.AddCard(state.Card{
		ID: "luffy", Owner: "p1", Name: "Monkey.D.Luffy", Category: state.CategoryCharacter,
		Colors: []string{"Red"}, Cost: 5, Power: 6000, Keywords: []string{"Rush"},
	}, rules.ZoneCharacter))
	for _, id := range []string{"h1", "h2", "h3"} {
		require.NoError(t, s.AddCard(state.Card{ID: id, Owner: "p1"}, rules.ZoneHand))
	}
	require.NoError(t, s.AddCard(state.Card{ID: "d1", Owner: "p1", Category: state.CategoryDon}, rules.ZoneCostArea))
	require.NoError(t, s.AddCard(state.Card{ID: "d2", Owner: "p1", Category: state.CategoryDon}, rules.ZoneCostArea))
	require.NoError(t, s.AddCard(state.Card{ID: "o1", Owner: "p2"}, rules.ZoneHand))
	return s
}

func ctxFor(s state.Reader) Context {
	return Context{State: s, SourceID: "luffy", Controller: "p1"}
}

func TestLeafConditions(t *testing.T) {
	s := setupStore(t)
	ctx := ctxFor(s)

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"has keyword", HasKeyword{Keyword: "rush"}, true},
		{"missing keyword", HasKeyword{Keyword: "Blocker"}, false},
		{"in zone", InZone{Zone: rules.ZoneCharacter}, true},
		{"not in zone", InZone{Zone: rules.ZoneHand}, false},
		{"is color", IsColor{Color: "red"}, true},
		{"is not color", IsColor{Color: "Green"}, false},
		{"power gte", Compare{Op: OpGTE, Left: Ref("source.power"), Right: Lit(6000)}, true},
		{"cost lt", Compare{Op: OpLT, Left: Ref("source.cost"), Right: Lit(5)}, false},
		{"hand eq", Compare{Op: OpEQ, Left: Ref("controller.hand"), Right: Lit(3)}, true},
		{"opponent hand", Compare{Op: OpNEQ, Left: Ref("opponent.hand"), Right: Lit(1)}, false},
		{"turn", Compare{Op: OpEQ, Left: Ref("turn"), Right: Lit(1)}, true},
		{"don", Compare{Op: OpGT, Left: Ref("controller.don"), Right: Lit(1)}, true},
		{"lookup vs lookup", Compare{Op: OpGT, Left: Ref("controller.hand"), Right: Ref("opponent.hand")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cond.Evaluate(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCombinators(t *testing.T) {
	s := setupStore(t)
	ctx := ctxFor(s)
	yes := HasKeyword{Keyword: "Rush"}
	no := HasKeyword{Keyword: "Blocker"}

	ok, err := And{yes, no}.Evaluate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Or{no, yes}.Evaluate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Not{Condition: no}.Evaluate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = And{}.Evaluate(ctx)
	assert.True(t, ok)
	ok, _ = Or{}.Evaluate(ctx)
	assert.False(t, ok)

	ok, err = Holds(nil, ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShortCircuit(t *testing.T) {
	s := setupStore(t)
	ctx := ctxFor(s)
	bad := Compare{Op: OpEQ, Left: Ref("no.such.lookup"), Right: Lit(0)}

	ok, err := And{HasKeyword{Keyword: "Blocker"}, bad}.Evaluate(ctx)
	require.NoError(t, err, "And stops before the failing child")
	assert.False(t, ok)

	ok, err = Or{HasKeyword{Keyword: "Rush"}, bad}.Evaluate(ctx)
	require.NoError(t, err, "Or stops before the failing child")
	assert.True(t, ok)

	_, err = And{HasKeyword{Keyword: "Rush"}, bad}.Evaluate(ctx)
	assert.ErrorIs(t, err, ErrUnknownLookup)
}

func TestMissingSource(t *testing.T) {
	s := setupStore(t)
	ctx := Context{State: s, SourceID: "ghost", Controller: "p1"}

	_, err := IsColor{Color: "Red"}.Evaluate(ctx)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestEvaluationIsDeterministic(t *testing.T) {
	s := setupStore(t)
	ctx := ctxFor(s)
	cond := And{
		Or{IsColor{Color: "Green"}, HasKeyword{Keyword: "Rush"}},
		Not{Condition: InZone{Zone: rules.ZoneTrash}},
		Compare{Op: OpLTE, Left: Ref("controller.don"), Right: Ref("source.cost")},
	}

	first, err := cond.Evaluate(ctx)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		again, err := cond.Evaluate(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEvaluationReflectsMutations(t *testing.T) {
	s := setupStore(t)
	ctx := ctxFor(s)
	cond := Compare{Op: OpEQ, Left: Ref("controller.don"), Right: Lit(2)}

	ok, err := cond.Evaluate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.UpdateCard("d1", state.Rest()))
	ok, err = cond.Evaluate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.MoveCard("luffy", rules.ZoneTrash))
	ok, err = InZone{Zone: rules.ZoneTrash}.Evaluate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParseOp(t *testing.T) {
	for in, want := range map[string]Op{"==": OpEQ, "gte": OpGTE, "<": OpLT, "NEQ": OpNEQ} {
		got, err := ParseOp(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseOp("~")
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestLookups(t *testing.T) {
	names := Lookups()
	assert.Contains(t, names, "source.power")
	assert.Contains(t, names, "opponent.don")
	assert.IsNonDecreasing(t, names)
}

type fixedStats map[string]int

func (f fixedStats) ThisTurn(stat, playerID string) int {
	return f[playerID+"/"+stat]
}

func TestTurnStatLookups(t *testing.T) {
	s := setupStore(t)
	ctx := ctxFor(s)

	cond := Compare{Op: OpGTE, Left: Ref("controller.played_this_turn"), Right: Lit(2)}
	ok, err := cond.Evaluate(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "no stats reads as zero")

	ctx.Stats = fixedStats{"p1/played": 2, "p2/kos": 1}
	ok, err = cond.Evaluate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	kos, err := Ref("opponent.kos_this_turn").Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, kos)
}
