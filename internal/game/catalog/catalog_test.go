package catalog

import (
	"testing"

	"github.com/grandline/opcg-server-go/internal/game/conditions"
	"github.com/grandline/opcg-server-go/internal/game/costs"
	"github.com/grandline/opcg-server-go/internal/game/effects"
	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/scripts"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func loadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := New(scripts.NewRegistry(), NewLabelCache(16, nil), zap.NewNop())
	require.NoError(t, c.LoadFile("testdata/cards.yaml"))
	return c
}

func defsOf(t *testing.T, c *Catalog, code string) []*effects.Definition {
	t.Helper()
	card, err := c.NewCard(code, code+"-1", "p1")
	require.NoError(t, err)
	return c.Definitions(card)
}

func TestLoadCatalog(t *testing.T) {
	c := loadTestCatalog(t)
	assert.Equal(t, []string{"ST01-001", "ST01-007", "ST01-011", "ST01-012", "ST01-014", "ST01-016"}, c.Codes())

	card, err := c.NewCard("ST01-011", "brook-a", "p2")
	require.NoError(t, err)
	assert.Equal(t, "Brook", card.Name)
	assert.Equal(t, state.CategoryCharacter, card.Category)
	assert.Equal(t, "ST01-011", card.DefinitionCode)
	assert.True(t, card.HasKeyword("blocker"))

	_, err = c.NewCard("nope", "x", "p1")
	assert.ErrorIs(t, err, ErrUnknownCard)
	assert.Empty(t, c.Definitions(state.Card{DefinitionCode: "nope"}))
}

func TestDefinitionsFromLabels(t *testing.T) {
	c := loadTestCatalog(t)

	leader := defsOf(t, c, "ST01-001")
	require.Len(t, leader, 1)
	assert.Equal(t, effects.KindActivated, leader[0].Kind)
	assert.True(t, leader[0].OncePerTurn)
	assert.Equal(t, scripts.DonParams{Count: 1, Rested: true}, leader[0].Params)
	phase, ok := leader[0].PhaseRestriction(nil)
	require.True(t, ok)
	assert.Equal(t, rules.PhaseMain, phase)

	nami := defsOf(t, c, "ST01-007")[0]
	assert.Equal(t, effects.KindAuto, nami.Kind)
	assert.Equal(t, rules.TimingOnPlay, nami.Trigger)
	assert.True(t, nami.SelfOnly)
	assert.Equal(t, scripts.CountParams{Count: 1}, nami.Params)

	jinbe := defsOf(t, c, "ST01-012")[0]
	assert.Equal(t, rules.TimingWhenAttacking, jinbe.Trigger)
	assert.True(t, jinbe.OncePerTurn)
	assert.Equal(t, 2, jinbe.TriggerPriority)
	require.NotNil(t, jinbe.Cost)
	assert.Equal(t, costs.RestResource(1), *jinbe.Cost)
	params, ok := jinbe.Params.(scripts.TargetParams)
	require.True(t, ok)
	assert.Equal(t, 2000, params.Amount)

	sunny := defsOf(t, c, "ST01-016")[0]
	assert.Equal(t, effects.KindAuto, sunny.Kind)
	assert.Equal(t, rules.TimingStartOfTurn, sunny.Trigger)
	assert.False(t, sunny.SelfOnly)
	assert.IsType(t, conditions.And{}, sunny.Condition)
}

func TestConditionsEvaluate(t *testing.T) {
	c := loadTestCatalog(t)
	s := state.NewMemoryStore(nil, zap.NewNop(), "p1", "p2")
	brook, err := c.NewCard("ST01-011", "brook", "p1")
	require.NoError(t, err)
	require.NoError(t, s.AddCard(brook, rules.ZoneCharacter))

	cond := c.Definitions(brook)[0].Condition
	ctx := conditions.Context{State: s, SourceID: "brook", Controller: "p1"}
	ok, err := conditions.Holds(cond, ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	rival, err := c.NewCard("ST01-007", "nami", "p2")
	require.NoError(t, err)
	require.NoError(t, s.AddCard(rival, rules.ZoneCharacter))
	ok, err = conditions.Holds(cond, ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReplacementEntry(t *testing.T) {
	c := loadTestCatalog(t)
	robin := defsOf(t, c, "ST01-014")[0]
	assert.Equal(t, effects.KindReplacement, robin.Kind)
	assert.Equal(t, 1, robin.ReplacementPriority)
	require.NotNil(t, robin.RewriteCost)

	ctx := effects.RewriteContext{Controller: "p1", ReplacerOwner: "p1"}
	assert.Equal(t, costs.RestResource(2), robin.RewriteCost(costs.RestResource(3), ctx))
	ctx.Controller = "p2"
	assert.Equal(t, costs.RestResource(3), robin.RewriteCost(costs.RestResource(3), ctx))
}

func TestLoadRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"missing code":     "cards:\n  - name: x\n    category: character\n",
		"bad category":     "cards:\n  - code: A\n    category: wizard\n",
		"unknown script":   "cards:\n  - code: A\n    category: character\n    effects:\n      - label: \"[On Play]\"\n        script: teleport\n",
		"no kind":          "cards:\n  - code: A\n    category: character\n    effects:\n      - label: \"[Trigger]\"\n        script: draw\n",
		"bad params":       "cards:\n  - code: A\n    category: character\n    effects:\n      - label: \"[On Play]\"\n        script: draw\n        params: {count: lots}\n",
		"bad cost":         "cards:\n  - code: A\n    category: character\n    effects:\n      - label: \"[Main]\"\n        script: draw\n        cost: \"{MANA:1}\"\n",
		"two operators":    "cards:\n  - code: A\n    category: character\n    effects:\n      - label: \"[On Play]\"\n        script: draw\n        condition: {keyword: Rush, color: red}\n",
		"unknown lookup":   "cards:\n  - code: A\n    category: character\n    effects:\n      - label: \"[On Play]\"\n        script: draw\n        condition:\n          compare: {left: gold, op: \">\", right: \"1\"}\n",
		"permanent label":  "cards:\n  - code: A\n    category: character\n    effects:\n      - label: \"[Permanent]\"\n        script: draw\n",
		"permanent kind":   "cards:\n  - code: A\n    category: stage\n    effects:\n      - {label: \"[Main]\", kind: permanent, script: draw}\n",
		"empty rewrite":    "cards:\n  - code: A\n    category: character\n    effects:\n      - label: \"[Replacement]\"\n        replacement: {priority: 1}\n",
		"duplicate code":   "cards:\n  - code: A\n    category: character\n  - code: A\n    category: stage\n",
		"duplicate effect": "cards:\n  - code: A\n    category: character\n    effects:\n      - {id: e, label: \"[On Play]\", script: draw}\n      - {id: e, label: \"[On Play]\", script: draw}\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			c := New(scripts.NewRegistry(), nil, zap.NewNop())
			assert.Error(t, c.Load([]byte(data)))
			assert.Empty(t, c.Codes())
		})
	}
}

func TestSelfOnlyOverride(t *testing.T) {
	c := New(scripts.NewRegistry(), nil, zap.NewNop())
	require.NoError(t, c.Load([]byte(`
cards:
  - code: A
    category: character
    effects:
      - label: "[On Play]"
        script: draw
        self_only: false
        once_per_turn: true
`)))
	def := defsOf(t, c, "A")[0]
	assert.Equal(t, "A-1", def.ID)
	assert.False(t, def.SelfOnly)
	assert.True(t, def.OncePerTurn)
}

func TestLabelCacheEvictsLeastRecentlyUsed(t *testing.T) {
	calls := 0
	cache := NewLabelCache(2, effects.LabelParserFunc(func(label string) effects.LabelInfo {
		calls++
		return effects.ParseLabel(label)
	}))

	assert.True(t, cache.Parse("[Once Per Turn]").OncePerTurn)
	cache.Parse("[On Play]")
	cache.Parse("[Once Per Turn]")
	assert.Equal(t, 2, calls)

	// [On Play] is least recently used
	cache.Parse("[Main]")
	assert.Equal(t, 2, cache.Len())
	cache.Parse("[Once Per Turn]")
	assert.Equal(t, 3, calls)
	cache.Parse("[On Play]")
	assert.Equal(t, 4, calls)

	hits, misses := cache.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(4), misses)
}
