package effects

import (
	"errors"
	"fmt"
	"testing"

	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"github.com/grandline/opcg-server-go/internal/game/targeting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countParams struct {
	Count int
}

func (p countParams) Values() map[string]string {
	return map[string]string{"count": IntValue(p.Count)}
}

func (p countParams) Bind(values map[string]string) (Params, error) {
	err := BindInt(values, "count", &p.Count)
	return p, err
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		label string
		want  LabelInfo
	}{
		{"[Activate: Main] [Once Per Turn]", LabelInfo{
			Tags: []string{"Activate: Main", "Once Per Turn"}, Kind: KindActivated,
			Phase: rules.PhaseMain, HasPhase: true, OncePerTurn: true,
		}},
		{"[On Play]", LabelInfo{Tags: []string{"On Play"}, Kind: KindAuto, Trigger: rules.TimingOnPlay}},
		{"[DON!! x1] [When Attacking]", LabelInfo{Tags: []string{"DON!! x1", "When Attacking"}, Kind: KindAuto, Trigger: rules.TimingWhenAttacking}},
		{"[On K.O.]", LabelInfo{Tags: []string{"On K.O."}, Kind: KindAuto, Trigger: rules.TimingOnKO}},
		{"[End of Your Turn]", LabelInfo{Tags: []string{"End of Your Turn"}, Kind: KindAuto, Trigger: rules.TimingEndOfYourTurn}},
		{"[Main]", LabelInfo{Tags: []string{"Main"}, Kind: KindActivated, Phase: rules.PhaseMain, HasPhase: true}},
		{"[Activate]", LabelInfo{Tags: []string{"Activate"}, Kind: KindActivated}},
		{"Draw 1 card.", LabelInfo{}},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLabel(tt.label))
		})
	}
}

func TestPhaseRestriction(t *testing.T) {
	def := &Definition{Label: "[Activate: Main]"}
	phase, ok := def.PhaseRestriction(nil)
	assert.True(t, ok)
	assert.Equal(t, rules.PhaseMain, phase)

	calls := 0
	parser := LabelParserFunc(func(label string) LabelInfo {
		calls++
		return ParseLabel(label)
	})
	_, ok = (&Definition{Label: "[Activate]"}).PhaseRestriction(parser)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}

func TestDefinitionTriggers(t *testing.T) {
	onPlay := &Definition{Kind: KindAuto, Trigger: rules.TimingOnPlay}
	selfOnPlay := &Definition{Kind: KindAuto, Trigger: rules.TimingOnPlay, SelfOnly: true}
	activated := &Definition{Kind: KindActivated, Trigger: rules.TimingOnPlay}
	endOfYours := &Definition{Kind: KindAuto, Trigger: rules.TimingEndOfYourTurn}

	played := rules.NewEvent(rules.EventCardPlayed, "zoro", "p1")
	assert.True(t, onPlay.Triggers(played, "nami", "p1"))
	assert.False(t, selfOnPlay.Triggers(played, "nami", "p1"))
	assert.True(t, selfOnPlay.Triggers(played, "zoro", "p1"))
	assert.False(t, activated.Triggers(played, "zoro", "p1"))

	turnEnd := rules.NewTurnEvent(rules.EventTurnEnd, "p1", 3)
	assert.True(t, endOfYours.Triggers(turnEnd, "nami", "p1"))
	assert.False(t, endOfYours.Triggers(turnEnd, "kaido", "p2"))
}

func TestParseTimingKind(t *testing.T) {
	kind, err := ParseTimingKind("activated")
	require.NoError(t, err)
	assert.Equal(t, KindActivated, kind)

	_, err = ParseTimingKind("instant")
	assert.Error(t, err)
}

func TestInstanceIsAValue(t *testing.T) {
	def := &Definition{ID: "draw", Params: countParams{Count: 1}}
	src := state.Card{ID: "nami", Name: "Nami", Owner: "p1"}
	targets := []targeting.Target{{Kind: targeting.KindCard, CardID: "zoro"}}

	inst := NewInstance(def, src, "p1", targets, nil)
	assert.NotEmpty(t, inst.ID)
	assert.Equal(t, countParams{Count: 1}, inst.Params, "definition params are the default")
	assert.Equal(t, map[string]string{"count": "1"}, inst.Values())

	targets[0].CardID = "changed"
	assert.Equal(t, "zoro", inst.Targets[0].CardID)

	other := inst.WithTargets(nil).WithParams(countParams{Count: 3})
	assert.Len(t, inst.Targets, 1)
	assert.Equal(t, countParams{Count: 1}, inst.Params)
	assert.Equal(t, countParams{Count: 3}, other.Params)
	assert.Empty(t, Instance{}.Values())
}

func TestTriggerInstancePriority(t *testing.T) {
	def := &Definition{ID: "t", Kind: KindAuto, Trigger: rules.TimingOnPlay, TriggerPriority: 4}
	evt := rules.NewEvent(rules.EventCardPlayed, "x", "p1")

	mine := NewTriggerInstance(def, state.Card{ID: "a", Owner: "p1"}, evt, "p1")
	theirs := NewTriggerInstance(def, state.Card{ID: "b", Owner: "p2"}, evt, "p1")
	assert.Equal(t, 1, mine.Priority)
	assert.Equal(t, 0, theirs.Priority)
	assert.Equal(t, 4, theirs.TextPriority())
	assert.Equal(t, "p2", theirs.Controller)
}

func TestTypedScript(t *testing.T) {
	var got int
	script := TypedScript[countParams]{
		Name: "count",
		Fn: func(_ *Context, _ Instance, p countParams) error {
			got = p.Count
			return nil
		},
		Input: func(_ Instance, p countParams) *targeting.Requirement {
			return &targeting.Requirement{Min: p.Count, Max: p.Count}
		},
	}
	inst := Instance{Params: countParams{Count: 2}}

	require.NoError(t, script.Run(NewContext(nil, nil, nil, nil, nil), inst))
	assert.Equal(t, 2, got)
	assert.Equal(t, 2, script.RequiredInput(inst).Min)

	err := script.Run(NewContext(nil, nil, nil, nil, nil), Instance{Params: NoParams{}})
	assert.ErrorIs(t, err, ErrParamsMismatch)
	assert.Nil(t, script.RequiredInput(Instance{Params: NoParams{}}))
}

func TestRegistry(t *testing.T) {
	noop := TypedScript[NoParams]{Name: "noop", Fn: func(*Context, Instance, NoParams) error { return nil }}
	reg := NewRegistry(noop)

	s, err := reg.Lookup("noop")
	require.NoError(t, err)
	assert.Equal(t, ScriptID("noop"), s.ID())

	_, err = reg.Lookup("missing")
	assert.ErrorIs(t, err, ErrScriptNotFound)

	assert.Error(t, reg.Register(noop))
	require.NoError(t, reg.Register(TypedScript[NoParams]{Name: "another"}))
	assert.Equal(t, []ScriptID{"another", "noop"}, reg.IDs())
}

func TestBindHelpers(t *testing.T) {
	p, err := countParams{Count: 1}.Bind(map[string]string{"count": "4", "other": "x"})
	require.NoError(t, err)
	assert.Equal(t, countParams{Count: 4}, p)

	_, err = countParams{}.Bind(map[string]string{"count": "many"})
	assert.ErrorIs(t, err, ErrParamsMismatch)

	var b bool
	require.NoError(t, BindBool(map[string]string{"up_to": "true"}, "up_to", &b))
	assert.True(t, b)
	assert.ErrorIs(t, BindBool(map[string]string{"up_to": "perhaps"}, "up_to", &b), ErrParamsMismatch)
}

func TestScriptError(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := error(&ScriptError{ScriptID: "draw", EffectID: "e1", SourceID: "nami", Err: cause})

	assert.ErrorIs(t, err, ErrScriptExecutionFailed)
	assert.ErrorIs(t, err, cause)
	var se *ScriptError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &se))
	assert.Equal(t, ScriptID("draw"), se.ScriptID)
	assert.Contains(t, err.Error(), "nami")
}

func TestFind(t *testing.T) {
	defs := []*Definition{{ID: "a"}, {ID: "b"}}
	p := ProviderFunc(func(state.Card) []*Definition { return defs })

	def, ok := Find(p, state.Card{}, "b")
	require.True(t, ok)
	assert.Same(t, defs[1], def)
	_, ok = Find(p, state.Card{}, "c")
	assert.False(t, ok)
}

func TestTypedScriptDefaults(t *testing.T) {
	var got countParams
	script := TypedScript[countParams]{
		Name:     "count",
		Defaults: countParams{Count: 1},
		Fn: func(_ *Context, _ Instance, p countParams) error {
			got = p
			return nil
		},
	}

	require.NoError(t, script.Run(NewContext(nil, nil, nil, nil, nil), Instance{}))
	assert.Equal(t, countParams{Count: 1}, got)
	assert.Equal(t, countParams{Count: 1}, script.DefaultParams())
}
