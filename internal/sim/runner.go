package sim

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/grandline/opcg-server-go/internal/game"
	"github.com/grandline/opcg-server-go/internal/game/catalog"
	"github.com/grandline/opcg-server-go/internal/game/effects"
	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"github.com/grandline/opcg-server-go/internal/game/targeting"
	"go.uber.org/zap"
)

// ErrUnknownAction is returned for steps naming an action the runner does
// not know.
var ErrUnknownAction = errors.New("unknown scenario action")

// Runner replays scenarios. Each run gets a fresh store and engine.
type Runner struct {
	catalog *catalog.Catalog
	scripts *effects.Registry
	opts    game.Options
	logger  *zap.Logger
}

// NewRunner creates a runner resolving card codes and effects through cat.
func NewRunner(cat *catalog.Catalog, scripts *effects.Registry, opts game.Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{catalog: cat, scripts: scripts, opts: opts, logger: logger}
}

// Report is the outcome of a scenario run.
type Report struct {
	Name   string
	Steps  []StepReport
	Events []rules.Event
}

// StepReport is the outcome of one step.
type StepReport struct {
	Index    int
	Action   string
	Err      error
	Failures []string
	Events   []rules.Event
	Checksum string // state checksum after the step
}

// Failed reports whether any expectation failed.
func (r *Report) Failed() bool {
	return len(r.Failures()) > 0
}

// Failures lists every failed expectation, prefixed with its step.
func (r *Report) Failures() []string {
	var out []string
	for _, s := range r.Steps {
		for _, f := range s.Failures {
			out = append(out, fmt.Sprintf("step %d (%s): %s", s.Index, s.Action, f))
		}
	}
	return out
}

type run struct {
	store  *state.MemoryStore
	engine *game.Engine
	events []rules.Event
}

// Run builds the scenario's starting position and plays its steps. Setup
// problems are returned as errors; step outcomes are in the report.
func (r *Runner) Run(sc *Scenario) (*Report, error) {
	bus := rules.NewEventBus()
	current := &run{}
	bus.Subscribe(func(e rules.Event) { current.events = append(current.events, e) })

	current.store = state.NewMemoryStore(bus, r.logger, sc.Players...)
	if err := r.setup(current.store, sc); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	current.engine = game.NewEngine(current.store, r.catalog, r.scripts, bus, r.logger, r.opts)
	defer current.engine.Close()

	r.logger.Info("running scenario",
		zap.String("scenario", sc.Name),
		zap.Int("cards", len(sc.Cards)),
		zap.Int("steps", len(sc.Steps)))

	report := &Report{Name: sc.Name}
	current.events = nil
	for i, step := range sc.Steps {
		mark := len(current.events)
		err := r.apply(current, step)
		stepReport := StepReport{
			Index:  i + 1,
			Action: step.Action,
			Err:    err,
			Events: append([]rules.Event(nil), current.events[mark:]...),
		}
		stepReport.Checksum = current.store.Snapshot().Checksum()
		stepReport.Failures = check(current, step, err, stepReport.Events)
		if len(stepReport.Failures) > 0 {
			r.logger.Warn("scenario step failed",
				zap.String("scenario", sc.Name),
				zap.Int("step", i+1),
				zap.String("action", step.Action),
				zap.Strings("failures", stepReport.Failures))
		}
		report.Steps = append(report.Steps, stepReport)
	}
	report.Events = current.events
	hits, misses, size := current.engine.Targets().CacheStats()
	r.logger.Debug("scenario target cache",
		zap.String("scenario", sc.Name),
		zap.Int("hits", hits),
		zap.Int("misses", misses),
		zap.Int("size", size))
	return report, nil
}

func (r *Runner) setup(store *state.MemoryStore, sc *Scenario) error {
	for _, spec := range sc.Cards {
		zone, err := rules.ParseZone(spec.Zone)
		if err != nil {
			return err
		}
		ids := []string{spec.ID}
		if spec.Count > 1 {
			ids = ids[:0]
			for i := 1; i <= spec.Count; i++ {
				ids = append(ids, fmt.Sprintf("%s-%d", spec.ID, i))
			}
		}
		for _, id := range ids {
			card, err := r.newCard(spec, id)
			if err != nil {
				return err
			}
			if err := store.AddCard(card, zone); err != nil {
				return err
			}
		}
	}
	if sc.Phase != "" {
		phase, err := rules.ParsePhase(sc.Phase)
		if err != nil {
			return err
		}
		store.SetPhase(phase)
	}
	return nil
}

func (r *Runner) newCard(spec CardSpec, id string) (state.Card, error) {
	var card state.Card
	if spec.Code != "" {
		c, err := r.catalog.NewCard(spec.Code, id, spec.Owner)
		if err != nil {
			return state.Card{}, err
		}
		card = c
	} else {
		card = state.Card{
			ID:       id,
			Name:     spec.Name,
			Owner:    spec.Owner,
			Category: state.Category(strings.ToUpper(spec.Category)),
			Cost:     spec.Cost,
			Power:    spec.Power,
			Keywords: spec.Keywords,
		}
	}
	card.Rested = spec.Rested
	return card, nil
}

func (r *Runner) apply(current *run, step Step) error {
	e := current.engine
	switch strings.ToLower(step.Action) {
	case "play":
		return e.PlayCard(step.Player, step.Card)
	case "activate":
		targets, err := targeting.ResolveCards(current.store, step.Targets)
		if err != nil {
			return err
		}
		return e.Activate(step.Card, step.Effect, targets, step.Params)
	case "input":
		awaiting := e.Awaiting()
		if len(awaiting) == 0 {
			return effects.ErrNotAwaitingInput
		}
		targets, err := targeting.ResolveCards(current.store, step.Targets)
		if err != nil {
			return err
		}
		return e.ProvideInput(awaiting[0], targets, step.Params)
	case "attack":
		return e.DeclareAttack(step.Card, step.Target)
	case "block":
		return e.DeclareBlock(step.Card, step.Target)
	case "counter":
		return e.CounterStep()
	case "phase":
		phase, err := rules.ParsePhase(step.Phase)
		if err != nil {
			return err
		}
		e.SetPhase(phase)
		return nil
	case "end_turn":
		e.EndTurn()
		return nil
	case "move":
		zone, err := rules.ParseZone(step.Zone)
		if err != nil {
			return err
		}
		return current.store.MoveCard(step.Card, zone)
	}
	return fmt.Errorf("%w: %s", ErrUnknownAction, step.Action)
}

// check compares the state after a step with its expectations. Without an
// expectation a step must succeed.
func check(current *run, step Step, err error, events []rules.Event) []string {
	var failures []string
	want := step.Expect
	if want == nil {
		want = &Expect{}
	}

	switch {
	case want.Error == "" && err != nil:
		failures = append(failures, fmt.Sprintf("unexpected error: %v", err))
	case want.Error != "" && err == nil:
		failures = append(failures, fmt.Sprintf("expected error containing %q", want.Error))
	case want.Error != "" && !strings.Contains(err.Error(), want.Error):
		failures = append(failures, fmt.Sprintf("error %q does not contain %q", err, want.Error))
	}

	for _, key := range sortedKeys(want.Counts) {
		player, zoneName, _ := strings.Cut(key, "/")
		zone, zerr := rules.ParseZone(zoneName)
		if zerr != nil {
			failures = append(failures, zerr.Error())
			continue
		}
		p, ok := current.store.GetPlayer(player)
		if !ok {
			failures = append(failures, fmt.Sprintf("unknown player %s", player))
			continue
		}
		if got := p.Count(zone); got != want.Counts[key] {
			failures = append(failures, fmt.Sprintf("%s has %d cards, want %d", key, got, want.Counts[key]))
		}
	}

	cardCheck := func(id string, fn func(state.Card)) {
		card, ok := current.store.GetCard(id)
		if !ok {
			failures = append(failures, fmt.Sprintf("unknown card %s", id))
			return
		}
		fn(card)
	}
	for _, id := range sortedKeys(want.Zones) {
		cardCheck(id, func(c state.Card) {
			if !strings.EqualFold(string(c.Zone), want.Zones[id]) {
				failures = append(failures, fmt.Sprintf("%s is in %s, want %s", id, c.Zone, want.Zones[id]))
			}
		})
	}
	for _, id := range sortedKeys(want.Rested) {
		cardCheck(id, func(c state.Card) {
			if c.Rested != want.Rested[id] {
				failures = append(failures, fmt.Sprintf("%s rested=%t, want %t", id, c.Rested, want.Rested[id]))
			}
		})
	}
	for _, id := range sortedKeys(want.Power) {
		cardCheck(id, func(c state.Card) {
			if c.EffectivePower() != want.Power[id] {
				failures = append(failures, fmt.Sprintf("%s power %d, want %d", id, c.EffectivePower(), want.Power[id]))
			}
		})
	}

	if want.Awaiting != nil {
		if got := len(current.engine.Awaiting()); got != *want.Awaiting {
			failures = append(failures, fmt.Sprintf("%d effects awaiting input, want %d", got, *want.Awaiting))
		}
	}
	if want.Turn != 0 && current.store.TurnNumber() != want.Turn {
		failures = append(failures, fmt.Sprintf("turn %d, want %d", current.store.TurnNumber(), want.Turn))
	}
	for _, name := range sortedKeys(want.Events) {
		et := rules.EventType(strings.ToUpper(name))
		got := 0
		for _, evt := range events {
			if evt.Type == et {
				got++
			}
		}
		if got != want.Events[name] {
			failures = append(failures, fmt.Sprintf("%d %s events, want %d", got, et, want.Events[name]))
		}
	}
	return failures
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
