package costs

import (
	"errors"
	"fmt"

	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"go.uber.org/zap"
)

var (
	// ErrCannotAfford is returned when the player lacks the resources for a cost.
	ErrCannotAfford = errors.New("cannot afford cost")
	// ErrPaymentFailed is returned when paying fails after the cost was found affordable.
	ErrPaymentFailed = errors.New("cost payment failed")
	// ErrUnknownKind is returned for a cost node with an unknown kind.
	ErrUnknownKind = errors.New("unknown cost kind")
)

// Ledger checks and pays costs against a state store.
type Ledger struct {
	store  state.Store
	mover  state.ZoneMover
	logger *zap.Logger
}

// NewLedger creates a ledger. The mover performs the zone changes of discard
// costs.
func NewLedger(store state.Store, mover state.ZoneMover, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, mover: mover, logger: logger}
}

// CanPay reports whether the player can pay the cost. Every part of a
// Composite is checked against the current state on its own. CanPay never
// modifies state.
func (l *Ledger) CanPay(cost Cost, playerID string) bool {
	if _, ok := l.store.GetPlayer(playerID); !ok {
		return false
	}
	return l.canPay(cost, playerID)
}

func (l *Ledger) canPay(cost Cost, playerID string) bool {
	switch cost.Kind {
	case KindComposite:
		for _, part := range cost.Parts {
			if !l.canPay(part, playerID) {
				return false
			}
		}
		return true
	case KindRestResource, KindDiscardCard, KindRestCharacter:
		if cost.Amount <= 0 {
			return true
		}
		return len(l.payable(cost.Kind, playerID)) >= cost.Amount
	default:
		return false
	}
}

// payable returns the cards a cost of the given kind would consume, in
// payment order.
func (l *Ledger) payable(kind Kind, playerID string) []state.Card {
	switch kind {
	case KindRestResource:
		return state.ActiveCardsIn(l.store, playerID, rules.ZoneCostArea)
	case KindDiscardCard:
		return state.CardsIn(l.store, playerID, rules.ZoneHand)
	case KindRestCharacter:
		return state.ActiveCardsIn(l.store, playerID, rules.ZoneCharacter)
	}
	return nil
}

// Pay pays the cost for the player. Payment is atomic: if any part fails the
// state is restored to what it was before the call.
func (l *Ledger) Pay(cost Cost, playerID string) error {
	if _, ok := l.store.GetPlayer(playerID); !ok {
		return fmt.Errorf("%w: %w: %s", ErrCannotAfford, state.ErrPlayerNotFound, playerID)
	}
	if cost.IsZero() {
		return nil
	}

	snapshot := l.store.Snapshot()
	if err := l.pay(cost, playerID); err != nil {
		if restoreErr := l.store.Restore(snapshot); restoreErr != nil {
			l.logger.Error("failed to roll back cost payment",
				zap.String("player_id", playerID),
				zap.Error(restoreErr))
			return errors.Join(err, restoreErr)
		}
		l.logger.Debug("cost payment rolled back",
			zap.String("player_id", playerID),
			zap.String("cost", cost.String()),
			zap.Error(err))
		return err
	}

	l.logger.Debug("cost paid",
		zap.String("player_id", playerID),
		zap.String("cost", cost.String()))
	return nil
}

func (l *Ledger) pay(cost Cost, playerID string) error {
	switch cost.Kind {
	case KindComposite:
		for i, part := range cost.Parts {
			if err := l.pay(part, playerID); err != nil {
				return fmt.Errorf("composite part %d: %w", i, err)
			}
		}
		return nil
	case KindRestResource, KindDiscardCard, KindRestCharacter:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, cost.Kind)
	}

	if cost.Amount <= 0 {
		return nil
	}
	cards := l.payable(cost.Kind, playerID)
	if len(cards) < cost.Amount {
		return fmt.Errorf("%w: %s needs %d, have %d", ErrCannotAfford, cost.Kind, cost.Amount, len(cards))
	}

	for _, card := range cards[:cost.Amount] {
		var err error
		if cost.Kind == KindDiscardCard {
			err = l.mover.MoveCard(card.ID, rules.ZoneTrash)
		} else {
			err = l.store.UpdateCard(card.ID, state.Rest())
		}
		if err != nil {
			return fmt.Errorf("%w: %s %s: %w", ErrPaymentFailed, cost.Kind, card.ID, err)
		}
	}
	return nil
}
