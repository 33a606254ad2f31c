package sim

import (
	"testing"

	"github.com/grandline/opcg-server-go/internal/game"
	"github.com/grandline/opcg-server-go/internal/game/catalog"
	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/scripts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	registry := scripts.NewRegistry()
	labels := catalog.NewLabelCache(32, nil)
	cat := catalog.New(registry, labels, zap.NewNop())
	require.NoError(t, cat.LoadFile("testdata/cards.yaml"))
	opts := game.DefaultOptions()
	opts.LabelParser = labels
	return NewRunner(cat, registry, opts, zap.NewNop())
}

func TestStrawHatsScenario(t *testing.T) {
	sc, err := LoadScenario("testdata/straw_hats.yaml")
	require.NoError(t, err)

	report, err := newTestRunner(t).Run(sc)
	require.NoError(t, err)

	assert.Empty(t, report.Failures())
	assert.False(t, report.Failed())
	require.Len(t, report.Steps, len(sc.Steps))
	assert.Error(t, report.Steps[2].Err)
}

func TestFailedExpectationsAreReported(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: wrong expectations
players: [p1, p2]
phase: MAIN
cards:
  - {id: p1-leader, code: ST01-001, owner: p1, zone: LEADER}
  - {id: p1-dondeck, owner: p1, zone: DON_DECK, count: 1, category: DON}
steps:
  - action: activate
    card: p1-leader
    effect: luffy-don
    expect:
      counts: {p1/COST_AREA: 3}
      error: nope
  - action: fly
`))
	require.NoError(t, err)

	report, err := newTestRunner(t).Run(sc)
	require.NoError(t, err)
	require.True(t, report.Failed())

	failures := report.Failures()
	require.Len(t, failures, 3)
	assert.Contains(t, failures[0], `expected error containing "nope"`)
	assert.Contains(t, failures[1], "p1/COST_AREA has 1 cards, want 3")
	assert.Contains(t, failures[2], "unexpected error")
	assert.ErrorIs(t, report.Steps[1].Err, ErrUnknownAction)
}

func TestRunEventsPerStep(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: events
players: [p1, p2]
phase: MAIN
cards:
  - {id: p1-leader, code: ST01-001, owner: p1, zone: LEADER}
  - {id: nami, code: ST01-007, owner: p1, zone: HAND}
  - {id: don, owner: p1, zone: COST_AREA, count: 1, category: DON}
  - {id: deck, owner: p1, zone: DECK, count: 2}
steps:
  - {action: play, player: p1, card: nami}
  - {action: end_turn}
`))
	require.NoError(t, err)

	report, err := newTestRunner(t).Run(sc)
	require.NoError(t, err)
	require.Empty(t, report.Failures())

	var played, resolved int
	for _, evt := range report.Steps[0].Events {
		switch evt.Type {
		case rules.EventCardPlayed:
			played++
		case rules.EventEffectResolved:
			resolved++
		}
	}
	assert.Equal(t, 1, played)
	assert.Equal(t, 1, resolved)
	assert.GreaterOrEqual(t, len(report.Events), len(report.Steps[0].Events)+len(report.Steps[1].Events))
}

func TestSetupErrors(t *testing.T) {
	runner := newTestRunner(t)
	for name, data := range map[string]string{
		"unknown code":  "players: [p1, p2]\ncards:\n  - {id: x, code: NOPE, owner: p1, zone: HAND}\n",
		"unknown zone":  "players: [p1, p2]\ncards:\n  - {id: x, owner: p1, zone: OCEAN}\n",
		"unknown owner": "players: [p1, p2]\ncards:\n  - {id: x, owner: p3, zone: HAND}\n",
		"bad phase":     "players: [p1, p2]\nphase: LUNCH\n",
	} {
		t.Run(name, func(t *testing.T) {
			sc, err := ParseScenario([]byte(data))
			require.NoError(t, err)
			_, err = runner.Run(sc)
			assert.Error(t, err)
		})
	}

	_, err := ParseScenario([]byte("players: [p1]\n"))
	assert.Error(t, err)
	_, err = ParseScenario([]byte("players: [p1, p2]\nsteps:\n  - {card: x}\n"))
	assert.Error(t, err)
}
