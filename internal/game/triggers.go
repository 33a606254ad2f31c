package game

import (
	"errors"

	"github.com/grandline/opcg-server-go/internal/game/conditions"
	"github.com/grandline/opcg-server-go/internal/game/effects"
	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"go.uber.org/zap"
)

// Raise publishes a game event. Triggers it fires are resolved before Raise
// returns, or after the current operation when called during one.
func (e *Engine) Raise(event rules.Event) {
	e.bus.Publish(event)
}

// HandleEvent reacts to a game event: it keeps replacement registrations in
// step with card moves and queues every automatic effect the event fires.
func (e *Engine) HandleEvent(event rules.Event) {
	if event.Type == rules.EventCardMoved {
		e.trackReplacements(event)
	}

	found := e.collectTriggers(event)
	if len(found) == 0 {
		return
	}
	e.pending = append(e.pending, found...)
	e.logger.Debug("queued triggers",
		zap.String("event_type", string(event.Type)),
		zap.String("event_source", event.SourceID),
		zap.Int("queued", len(found)),
		zap.Int("pending", len(e.pending)))

	if e.depth == 0 {
		e.drainTriggers()
	}
}

// collectTriggers scans every card of every player for automatic effects
// fired by the event that are not blocked by once-per-turn or a condition.
func (e *Engine) collectTriggers(event rules.Event) []effects.TriggerInstance {
	turn := e.store.TurnNumber()
	turnPlayer := e.store.ActivePlayer()

	var found []effects.TriggerInstance
	for _, playerID := range e.store.Players() {
		for _, zone := range rules.AllZones {
			for _, card := range state.CardsIn(e.store, playerID, zone) {
				for _, def := range e.defs.Definitions(card) {
					if !def.Triggers(event, card.ID, card.Owner) {
						continue
					}
					if def.OncePerTurn && card.UsedOnTurn(def.ID, turn) {
						continue
					}
					if !e.conditionHolds(card, def) {
						continue
					}
					found = append(found, effects.NewTriggerInstance(def, card, event, turnPlayer))
				}
			}
		}
	}
	return found
}

func (e *Engine) conditionHolds(card state.Card, def *effects.Definition) bool {
	ok, err := conditions.Holds(def.Condition, e.conditionContext(card))
	if err != nil {
		e.logger.Warn("trigger condition failed to evaluate",
			zap.String("effect_id", def.ID),
			zap.String("source_id", card.ID),
			zap.Error(err))
		return false
	}
	return ok
}

// drainTriggers resolves queued triggers, the turn player's first, sweep by
// sweep, until a sweep queues no new ones.
func (e *Engine) drainTriggers() {
	e.enter()
	defer func() { e.depth-- }()

	for sweep := 0; len(e.pending) > 0; sweep++ {
		if sweep >= e.opts.MaxTriggerSweeps {
			e.logger.Warn("trigger drain hit sweep limit, discarding pending triggers",
				zap.Int("sweeps", sweep),
				zap.Int("discarded", len(e.pending)))
			e.pending = nil
			return
		}

		batch := e.pending
		e.pending = nil
		ordered := rules.DrainOrder(batch, e.store.ActivePlayer(),
			func(t effects.TriggerInstance) string { return t.Controller },
			func(t effects.TriggerInstance) int { return t.TextPriority() })

		for _, trig := range ordered {
			e.resolveTrigger(trig)
		}
	}
}

// resolveTrigger pays the trigger's cost, stamps once-per-turn and resolves
// it through the stack.
func (e *Engine) resolveTrigger(trig effects.TriggerInstance) {
	def := trig.Definition
	card, ok := e.store.GetCard(trig.SourceID)
	if !ok {
		return
	}
	// an earlier trigger of the sweep may have used it already
	if def.OncePerTurn && card.UsedOnTurn(def.ID, e.store.TurnNumber()) {
		return
	}

	inst := effects.NewInstance(def, card, trig.Controller, nil, nil)
	if def.Cost != nil {
		if err := e.payCost(inst, *def.Cost); err != nil {
			if errors.Is(err, effects.ErrCannotAffordCost) {
				e.logger.Debug("trigger cost not affordable",
					zap.String("effect_id", def.ID),
					zap.String("source_id", card.ID))
				return
			}
			e.fail(inst, err)
			return
		}
	}
	if def.OncePerTurn {
		if err := e.store.UpdateCard(card.ID, state.MarkUsed(def.ID, e.store.TurnNumber())); err != nil {
			e.fail(inst, err)
			return
		}
	}

	e.logger.Debug("resolving trigger",
		zap.String("trigger_id", trig.ID),
		zap.String("effect_id", def.ID),
		zap.String("source_id", card.ID),
		zap.String("controller", trig.Controller),
		zap.Int("priority", trig.Priority),
		zap.Int("text_priority", trig.TextPriority()))
	e.emit(rules.EventEffectTriggered, inst, nil)
	e.push(stackItem{inst: inst}, trig.Priority)
	e.ResolveStack()
}

// SyncReplacements registers the replacement effects of every card on the
// board. Registrations of cards elsewhere are left to the liveness check.
func (e *Engine) SyncReplacements() {
	for _, playerID := range e.store.Players() {
		for _, zone := range rules.AllZones {
			if !zone.IsBoard() {
				continue
			}
			for _, card := range state.CardsIn(e.store, playerID, zone) {
				if _, err := e.RegisterReplacements(card.ID); err != nil {
					e.logger.Warn("failed to register replacements",
						zap.String("card_id", card.ID),
						zap.Error(err))
				}
			}
		}
	}
	e.logger.Debug("synced replacement effects",
		zap.Int("registered", e.replacements.Len()))
}

// RegisterReplacements registers every replacement effect of a card and
// returns how many were registered.
func (e *Engine) RegisterReplacements(cardID string) (int, error) {
	card, ok := e.store.GetCard(cardID)
	if !ok {
		return 0, state.ErrCardNotFound
	}
	n := 0
	for _, def := range e.defs.Definitions(card) {
		if def.Kind != effects.KindReplacement {
			continue
		}
		if _, err := e.replacements.Register(card.ID, def); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (e *Engine) trackReplacements(event rules.Event) {
	switch {
	case event.Zone.IsBoard() && !event.FromZone.IsBoard():
		if _, err := e.RegisterReplacements(event.SourceID); err != nil {
			e.logger.Warn("failed to register replacements",
				zap.String("card_id", event.SourceID),
				zap.Error(err))
		}
	case event.FromZone.IsBoard() && !event.Zone.IsBoard():
		e.replacements.UnregisterCard(event.SourceID)
	}
}
