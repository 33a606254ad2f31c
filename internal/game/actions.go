package game

import (
	"errors"
	"fmt"

	"github.com/grandline/opcg-server-go/internal/game/costs"
	"github.com/grandline/opcg-server-go/internal/game/effects"
	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"go.uber.org/zap"
)

// ErrIllegalAction is returned when a game action is not allowed in the
// current state.
var ErrIllegalAction = errors.New("illegal action")

// KeywordBlocker lets a character block an attack.
const KeywordBlocker = "Blocker"

// PlayCard plays a card from the player's hand during their main phase,
// resting DON!! equal to its cost. Characters and stages enter the board;
// events go to the trash once played.
func (e *Engine) PlayCard(playerID, cardID string) error {
	e.enter()
	defer e.leave()

	card, ok := e.store.GetCard(cardID)
	if !ok {
		return fmt.Errorf("%w: card %s", effects.ErrNotFound, cardID)
	}
	if card.Owner != playerID || card.Zone != rules.ZoneHand {
		return fmt.Errorf("%w: %s is not in %s's hand", ErrIllegalAction, cardID, playerID)
	}
	if err := e.requireMainPhase(playerID); err != nil {
		return err
	}

	dest := rules.ZoneCharacter
	switch card.Category {
	case state.CategoryStage:
		dest = rules.ZoneStage
	case state.CategoryEvent:
		dest = rules.ZoneTrash
	case state.CategoryCharacter:
	default:
		return fmt.Errorf("%w: %s cannot be played", ErrIllegalAction, card.Category)
	}

	snapshot := e.store.Snapshot()
	queued := len(e.pending)
	rollback := func(cause error) error {
		if err := e.store.Restore(snapshot); err != nil {
			cause = errors.Join(cause, err)
		}
		e.pending = e.pending[:queued]
		return cause
	}

	cost := costs.RestResource(card.Cost)
	if !e.ledger.CanPay(cost, playerID) {
		return fmt.Errorf("%w: %s for %s", effects.ErrCannotAffordCost, cost, cardID)
	}
	if err := e.ledger.Pay(cost, playerID); err != nil {
		return rollback(fmt.Errorf("%w: %w", effects.ErrCostPaymentFailed, err))
	}
	if err := e.store.MoveCard(cardID, dest); err != nil {
		return rollback(fmt.Errorf("play %s: %w", cardID, err))
	}

	e.logger.Info("played card",
		zap.String("card_id", cardID),
		zap.String("card_name", card.Name),
		zap.String("player_id", playerID),
		zap.String("zone", string(dest)),
		zap.Int("cost", card.Cost))

	evt := rules.NewEvent(rules.EventCardPlayed, cardID, playerID)
	evt.SourceName = card.Name
	evt.Zone = dest
	evt.Amount = card.Cost
	e.Raise(evt)
	return nil
}

// DeclareAttack rests an active leader or character of the turn player and
// declares an attack on the opponent's leader or a rested character.
func (e *Engine) DeclareAttack(attackerID, targetID string) error {
	e.enter()
	defer e.leave()

	attacker, ok := e.store.GetCard(attackerID)
	if !ok {
		return fmt.Errorf("%w: card %s", effects.ErrNotFound, attackerID)
	}
	target, ok := e.store.GetCard(targetID)
	if !ok {
		return fmt.Errorf("%w: card %s", effects.ErrNotFound, targetID)
	}
	if err := e.requireMainPhase(attacker.Owner); err != nil {
		return err
	}
	if attacker.Zone != rules.ZoneLeader && attacker.Zone != rules.ZoneCharacter {
		return fmt.Errorf("%w: %s cannot attack from %s", ErrIllegalAction, attackerID, attacker.Zone)
	}
	if attacker.Rested {
		return fmt.Errorf("%w: %s is rested", ErrIllegalAction, attackerID)
	}
	if target.Owner == attacker.Owner {
		return fmt.Errorf("%w: %s cannot attack its own side", ErrIllegalAction, attackerID)
	}
	switch {
	case target.Zone == rules.ZoneLeader:
	case target.Zone == rules.ZoneCharacter && target.Rested:
	default:
		return fmt.Errorf("%w: %s cannot be attacked", ErrIllegalAction, targetID)
	}

	if err := e.store.UpdateCard(attackerID, state.Rest()); err != nil {
		return err
	}
	e.store.SetPhase(rules.PhaseAttack)

	e.logger.Info("declared attack",
		zap.String("attacker_id", attackerID),
		zap.String("target_id", targetID),
		zap.String("player_id", attacker.Owner))

	evt := rules.NewAttackEvent(attackerID, targetID, attacker.Owner)
	evt.SourceName = attacker.Name
	e.Raise(evt)
	return nil
}

// DeclareBlock rests an active blocker of the defending player and redirects
// the attack to it.
func (e *Engine) DeclareBlock(blockerID, attackerID string) error {
	e.enter()
	defer e.leave()

	if e.store.Phase() != rules.PhaseAttack {
		return fmt.Errorf("%w: no attack to block", ErrIllegalAction)
	}
	blocker, ok := e.store.GetCard(blockerID)
	if !ok {
		return fmt.Errorf("%w: card %s", effects.ErrNotFound, blockerID)
	}
	if blocker.Owner == e.store.ActivePlayer() {
		return fmt.Errorf("%w: the turn player cannot block", ErrIllegalAction)
	}
	if blocker.Zone != rules.ZoneCharacter || blocker.Rested || !blocker.HasKeyword(KeywordBlocker) {
		return fmt.Errorf("%w: %s cannot block", ErrIllegalAction, blockerID)
	}

	if err := e.store.UpdateCard(blockerID, state.Rest()); err != nil {
		return err
	}
	e.store.SetPhase(rules.PhaseBlock)

	e.logger.Info("declared block",
		zap.String("blocker_id", blockerID),
		zap.String("attacker_id", attackerID),
		zap.String("player_id", blocker.Owner))

	evt := rules.NewBlockEvent(blockerID, attackerID, blocker.Owner)
	evt.SourceName = blocker.Name
	e.Raise(evt)
	return nil
}

// CounterStep opens the counter step of the current battle.
func (e *Engine) CounterStep() error {
	e.enter()
	defer e.leave()

	if !e.store.Phase().IsBattle() {
		return fmt.Errorf("%w: counter step outside battle", ErrIllegalAction)
	}
	e.store.SetPhase(rules.PhaseCounter)
	defender := state.Opponent(e.store, e.store.ActivePlayer())
	evt := rules.NewEvent(rules.EventCounterStepStart, "", defender)
	evt.Amount = e.store.TurnNumber()
	e.Raise(evt)
	return nil
}

// SetPhase jumps to a phase of the current turn.
func (e *Engine) SetPhase(phase rules.Phase) {
	e.enter()
	defer e.leave()
	e.store.SetPhase(phase)
}

// EndTurn ends the current turn and starts the next player's: end-of-turn
// triggers resolve first, power bonuses granted this turn expire, then the
// new turn player's cards are set active and start-of-turn triggers resolve.
// The new turn is left in its main phase.
func (e *Engine) EndTurn() {
	e.enter()
	ending := e.store.ActivePlayer()
	e.store.SetPhase(rules.PhaseEnd)
	e.Raise(rules.NewTurnEvent(rules.EventTurnEnd, ending, e.store.TurnNumber()))
	e.leave()

	e.enter()
	defer e.leave()
	e.expirePowerBonuses()
	e.store.EndTurn()
	e.watchers.ResetWatchers()
	next := e.store.ActivePlayer()
	e.refresh(next)
	e.logger.Info("started turn",
		zap.String("player_id", next),
		zap.Int("turn", e.store.TurnNumber()))
	e.Raise(rules.NewTurnEvent(rules.EventTurnStart, next, e.store.TurnNumber()))
	e.store.SetPhase(rules.PhaseMain)
}

// refresh sets every rested card of the player's board and cost area active.
func (e *Engine) refresh(playerID string) {
	for _, zone := range []rules.Zone{rules.ZoneLeader, rules.ZoneCharacter, rules.ZoneStage, rules.ZoneCostArea} {
		for _, card := range state.CardsIn(e.store, playerID, zone) {
			if !card.Rested {
				continue
			}
			if err := e.store.UpdateCard(card.ID, state.Activate()); err != nil {
				e.logger.Warn("failed to refresh card",
					zap.String("card_id", card.ID),
					zap.Error(err))
			}
		}
	}
}

func (e *Engine) expirePowerBonuses() {
	for _, playerID := range e.store.Players() {
		for _, zone := range []rules.Zone{rules.ZoneLeader, rules.ZoneCharacter, rules.ZoneStage} {
			for _, card := range state.CardsIn(e.store, playerID, zone) {
				if card.PowerBonus == 0 {
					continue
				}
				if err := e.store.UpdateCard(card.ID, state.AddPower(0)); err != nil {
					e.logger.Warn("failed to reset power bonus",
						zap.String("card_id", card.ID),
						zap.Error(err))
				}
			}
		}
	}
}

func (e *Engine) requireMainPhase(playerID string) error {
	if e.store.ActivePlayer() != playerID {
		return fmt.Errorf("%w: not %s's turn", ErrIllegalAction, playerID)
	}
	if e.store.Phase() != rules.PhaseMain {
		return fmt.Errorf("%w: %s outside the main phase", ErrIllegalAction, e.store.Phase())
	}
	return nil
}
