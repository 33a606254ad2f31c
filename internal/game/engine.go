// Package game ties the rules core together: effect activation, the effect
// stack, the trigger scheduler and the replacement pipeline.
package game

import (
	"errors"
	"fmt"

	"github.com/grandline/opcg-server-go/internal/game/conditions"
	"github.com/grandline/opcg-server-go/internal/game/costs"
	"github.com/grandline/opcg-server-go/internal/game/effects"
	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"github.com/grandline/opcg-server-go/internal/game/targeting"
	"github.com/grandline/opcg-server-go/internal/game/watchers"
	"go.uber.org/zap"
)

// Store is the game state the engine drives.
type Store interface {
	effects.Board
	SetPhase(phase rules.Phase)
	EndTurn()
}

// Options tunes the engine.
type Options struct {
	// MaxTriggerSweeps bounds the trigger drain loop.
	MaxTriggerSweeps int
	// MaxStackSteps bounds the number of entries one ResolveStack call resolves.
	MaxStackSteps int
	// TargetCache memoizes legal target sets per state version.
	TargetCache bool
	// LabelParser parses effect labels; nil uses effects.ParseLabel.
	LabelParser effects.LabelParser
}

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{MaxTriggerSweeps: 100, MaxStackSteps: 1000, TargetCache: true}
}

// Engine resolves card effects for one game. It is not safe for concurrent
// use; a single caller drives it synchronously.
type Engine struct {
	store        Store
	defs         effects.Provider
	scripts      *effects.Registry
	ledger       *costs.Ledger
	replacements *effects.ReplacementPipeline
	targets      *targeting.Validator
	watchers     *rules.WatcherRegistry
	bus          *rules.EventBus
	labels       effects.LabelParser
	opts         Options
	logger       *zap.Logger

	stack    *rules.Stack[stackItem]
	pending  []effects.TriggerInstance
	awaiting map[string]stackItem
	parked   []string
	depth    int
	handles  []int
}

// NewEngine creates an engine over store. The store must emit its events to
// bus; the engine subscribes to the trigger-relevant ones and publishes its
// lifecycle events there.
func NewEngine(store Store, defs effects.Provider, scripts *effects.Registry, bus *rules.EventBus, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = rules.NewEventBus()
	}
	defaults := DefaultOptions()
	if opts.MaxTriggerSweeps <= 0 {
		opts.MaxTriggerSweeps = defaults.MaxTriggerSweeps
	}
	if opts.MaxStackSteps <= 0 {
		opts.MaxStackSteps = defaults.MaxStackSteps
	}
	labels := opts.LabelParser
	if labels == nil {
		labels = effects.LabelParserFunc(effects.ParseLabel)
	}
	var cache *targeting.Cache
	if opts.TargetCache {
		cache = targeting.NewCache()
	}

	e := &Engine{
		store:        store,
		defs:         defs,
		scripts:      scripts,
		ledger:       costs.NewLedger(store, store, logger),
		replacements: effects.NewReplacementPipeline(store, logger),
		targets:      targeting.NewValidator(store, cache),
		watchers:     rules.NewWatcherRegistry(watchers.Default()...),
		bus:          bus,
		labels:       labels,
		opts:         opts,
		logger:       logger,
		stack:        rules.NewStack[stackItem](),
		awaiting:     make(map[string]stackItem),
	}
	// all-event listeners run before typed ones, so tallies are current when
	// trigger conditions are checked
	e.handles = append(e.handles, bus.Subscribe(e.watchers.NotifyWatchers))
	// card-moved is in the trigger table, so replacement bookkeeping rides
	// on the same subscription
	for _, et := range rules.TriggerEventTypes() {
		e.handles = append(e.handles, bus.SubscribeTyped(et, e.HandleEvent))
	}
	e.SyncReplacements()
	return e
}

// Close unsubscribes the engine from the event bus.
func (e *Engine) Close() {
	for _, h := range e.handles {
		e.bus.Unsubscribe(h)
	}
	e.handles = nil
}

// Replacements returns the engine's replacement pipeline.
func (e *Engine) Replacements() *effects.ReplacementPipeline {
	return e.replacements
}

// Watchers returns the engine's per-turn watchers.
func (e *Engine) Watchers() *rules.WatcherRegistry {
	return e.watchers
}

// Targets returns the engine's target validator.
func (e *Engine) Targets() *targeting.Validator {
	return e.targets
}

// StackLen returns the number of entries on the effect stack.
func (e *Engine) StackLen() int {
	return e.stack.Len()
}

// PendingTriggers returns the number of queued triggers.
func (e *Engine) PendingTriggers() int {
	return len(e.pending)
}

// Awaiting returns the IDs of instances waiting for ProvideInput, oldest
// first.
func (e *Engine) Awaiting() []string {
	return append([]string(nil), e.parked...)
}

// Activate activates a player-activated effect of a card. On failure the
// state is left exactly as it was.
func (e *Engine) Activate(cardID, effectID string, targets []targeting.Target, values map[string]string) error {
	e.enter()
	defer e.leave()

	card, def, err := e.lookup(cardID, effectID)
	if err != nil {
		return err
	}
	if err := e.checkActivation(card, def); err != nil {
		return err
	}

	params, err := e.bindParams(def, def.Params, values)
	if err != nil {
		return err
	}
	inst := effects.NewInstance(def, card, card.Owner, targets, params)
	if err := e.validateChosenTargets(inst); err != nil {
		return err
	}

	snapshot := e.store.Snapshot()
	if def.Cost != nil {
		if err := e.payCost(inst, *def.Cost); err != nil {
			return err
		}
	}
	if def.OncePerTurn {
		if err := e.store.UpdateCard(card.ID, state.MarkUsed(def.ID, e.store.TurnNumber())); err != nil {
			if restoreErr := e.store.Restore(snapshot); restoreErr != nil {
				err = errors.Join(err, restoreErr)
			}
			return fmt.Errorf("stamp once-per-turn: %w", err)
		}
	}

	e.logger.Debug("activated effect",
		zap.String("effect_id", def.ID),
		zap.String("source_id", card.ID),
		zap.String("controller", card.Owner),
		zap.Int("turn", e.store.TurnNumber()))
	e.emit(rules.EventEffectTriggered, inst, nil)
	e.push(stackItem{inst: inst, inputDone: len(targets) > 0}, 0)
	e.ResolveStack()
	return nil
}

// CanActivate reports whether playerID could activate the effect now. It
// never modifies state or emits events.
func (e *Engine) CanActivate(cardID, effectID, playerID string) bool {
	card, def, err := e.lookup(cardID, effectID)
	if err != nil || card.Owner != playerID {
		return false
	}
	if err := e.checkActivation(card, def); err != nil {
		return false
	}
	if def.Cost == nil {
		return true
	}
	cost := e.replacements.ApplyCostReplacements(*def.Cost, e.rewriteContext(card.ID, def.ID, card.Owner))
	return e.ledger.CanPay(cost, card.Owner)
}

func (e *Engine) lookup(cardID, effectID string) (state.Card, *effects.Definition, error) {
	card, ok := e.store.GetCard(cardID)
	if !ok {
		return state.Card{}, nil, fmt.Errorf("%w: card %s", effects.ErrNotFound, cardID)
	}
	def, ok := effects.Find(e.defs, card, effectID)
	if !ok {
		return state.Card{}, nil, fmt.Errorf("%w: effect %s on %s", effects.ErrNotFound, effectID, cardID)
	}
	return card, def, nil
}

// checkActivation runs the read-only activation checks: timing kind, phase,
// once per turn and condition.
func (e *Engine) checkActivation(card state.Card, def *effects.Definition) error {
	if def.Kind != effects.KindActivated {
		return fmt.Errorf("%w: %s is %s", effects.ErrWrongTimingKind, def.ID, def.Kind)
	}
	if phase, ok := def.PhaseRestriction(e.labels); ok && e.store.Phase() != phase {
		return fmt.Errorf("%w: %s needs %s, now %s", effects.ErrWrongPhase, def.ID, phase, e.store.Phase())
	}
	if def.OncePerTurn && card.UsedOnTurn(def.ID, e.store.TurnNumber()) {
		return fmt.Errorf("%w: %s on turn %d", effects.ErrAlreadyUsedThisTurn, def.ID, e.store.TurnNumber())
	}
	ok, err := conditions.Holds(def.Condition, e.conditionContext(card))
	if err != nil {
		return fmt.Errorf("%w: %w", effects.ErrConditionNotMet, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", effects.ErrConditionNotMet, def.ID)
	}
	return nil
}

func (e *Engine) validateChosenTargets(inst effects.Instance) error {
	if len(inst.Targets) == 0 {
		return nil
	}
	req := e.requirement(inst)
	if req == nil {
		return nil
	}
	if err := req.Validate(inst.Targets); err != nil {
		return fmt.Errorf("%w: %w", effects.ErrInvalidTargets, err)
	}
	if !e.targets.ValidateTargets(inst.Targets, req.Filter, inst.Controller) {
		return fmt.Errorf("%w: %s", effects.ErrInvalidTargets, targeting.FormatTargets(inst.Targets))
	}
	return nil
}

func (e *Engine) requirement(inst effects.Instance) *targeting.Requirement {
	script, err := e.scripts.Lookup(inst.Definition.Script)
	if err != nil {
		return nil
	}
	requirer, ok := script.(effects.InputRequirer)
	if !ok {
		return nil
	}
	return requirer.RequiredInput(inst)
}

// payCost rewrites and pays an effect cost atomically. Triggers queued by
// events of a rolled-back payment are discarded with it.
func (e *Engine) payCost(inst effects.Instance, base costs.Cost) error {
	snapshot := e.store.Snapshot()
	queued := len(e.pending)
	rollback := func() {
		if err := e.store.Restore(snapshot); err != nil {
			e.logger.Error("failed to restore state after cost failure",
				zap.String("effect_id", inst.Definition.ID),
				zap.Error(err))
		}
		e.pending = e.pending[:queued]
	}

	cost := e.replacements.ApplyCostReplacements(base, e.rewriteContext(inst.SourceID, inst.Definition.ID, inst.Controller))
	if !e.ledger.CanPay(cost, inst.Controller) {
		rollback()
		return fmt.Errorf("%w: %s for %s", effects.ErrCannotAffordCost, cost, inst.Definition.ID)
	}
	if err := e.ledger.Pay(cost, inst.Controller); err != nil {
		rollback()
		return fmt.Errorf("%w: %w", effects.ErrCostPaymentFailed, err)
	}
	return nil
}

func (e *Engine) conditionContext(card state.Card) conditions.Context {
	return conditions.Context{
		State:      e.store,
		SourceID:   card.ID,
		Controller: card.Owner,
		Stats:      watchers.NewStats(e.watchers),
	}
}

func (e *Engine) rewriteContext(sourceID, effectID, controller string) effects.RewriteContext {
	return effects.RewriteContext{State: e.store, SourceID: sourceID, EffectID: effectID, Controller: controller}
}

// bindParams binds caller-supplied values over params, falling back to the
// script's defaults when the definition sets none.
func (e *Engine) bindParams(def *effects.Definition, params effects.Params, values map[string]string) (effects.Params, error) {
	if len(values) == 0 {
		return params, nil
	}
	if params == nil {
		script, err := e.scripts.Lookup(def.Script)
		if err != nil {
			return nil, err
		}
		defaulter, ok := script.(effects.Defaulter)
		if !ok {
			return nil, fmt.Errorf("%w: script %s takes no parameters", effects.ErrParamsMismatch, def.Script)
		}
		params = defaulter.DefaultParams()
	}
	return params.Bind(values)
}

// enter and leave bracket every public operation. Triggers queued while an
// operation runs are drained when the outermost one finishes.
func (e *Engine) enter() {
	e.depth++
}

func (e *Engine) leave() {
	e.depth--
	if e.depth == 0 && len(e.pending) > 0 {
		e.drainTriggers()
	}
}

// emit publishes a lifecycle event for an instance.
func (e *Engine) emit(eventType rules.EventType, inst effects.Instance, err error) {
	evt := rules.NewEvent(eventType, inst.SourceID, inst.Controller)
	evt.SourceName = inst.SourceName
	if inst.Definition != nil {
		evt.EffectID = inst.Definition.ID
		evt.EffectType = string(inst.Definition.Kind)
		evt.Label = inst.Definition.Label
	}
	evt.Targets = targeting.CardIDs(inst.Targets)
	evt.Values = inst.Values()
	evt.Metadata["instance_id"] = inst.ID
	if err != nil {
		evt.Error = err.Error()
		var se *effects.ScriptError
		if errors.As(err, &se) {
			evt.Metadata["script_id"] = string(se.ScriptID)
		}
	}
	e.bus.Publish(evt)
}
