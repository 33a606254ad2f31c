package state

import (
	"errors"

	"github.com/grandline/opcg-server-go/internal/game/rules"
)

var (
	// ErrCardNotFound is returned when a card ID is unknown to the store.
	ErrCardNotFound = errors.New("card not found")
	// ErrPlayerNotFound is returned when a player ID is unknown to the store.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrForeignSnapshot is returned when restoring a snapshot taken by another store.
	ErrForeignSnapshot = errors.New("snapshot belongs to a different store")
)

// Reader is the read side of the game state.
type Reader interface {
	GetCard(id string) (Card, bool)
	GetPlayer(id string) (Player, bool)
	// Players returns player IDs in turn order.
	Players() []string
	TurnNumber() int
	ActivePlayer() string
	Phase() rules.Phase
	// Version changes on every mutation and restore; equal versions imply
	// equal state.
	Version() uint64
}

// Store is the game state collaborator consumed by the rules core.
// Mutations are immediately visible to subsequent reads.
type Store interface {
	Reader
	UpdateCard(id string, patch CardPatch) error
	Snapshot() Snapshot
	Restore(snapshot Snapshot) error
}

// ZoneMover moves cards between zones. Implementations emit their own
// card-moved events.
type ZoneMover interface {
	MoveCard(cardID string, to rules.Zone) error
}

// CardsIn returns the cards in a player's zone, in zone order.
func CardsIn(r Reader, playerID string, zone rules.Zone) []Card {
	player, ok := r.GetPlayer(playerID)
	if !ok {
		return nil
	}
	ids := player.Zones[zone]
	cards := make([]Card, 0, len(ids))
	for _, id := range ids {
		if card, ok := r.GetCard(id); ok {
			cards = append(cards, card)
		}
	}
	return cards
}

// ActiveCardsIn returns the active (not rested) cards in a player's zone.
func ActiveCardsIn(r Reader, playerID string, zone rules.Zone) []Card {
	var active []Card
	for _, card := range CardsIn(r, playerID, zone) {
		if !card.Rested {
			active = append(active, card)
		}
	}
	return active
}

// Opponent returns the first player other than playerID.
func Opponent(r Reader, playerID string) string {
	for _, id := range r.Players() {
		if id != playerID {
			return id
		}
	}
	return ""
}
