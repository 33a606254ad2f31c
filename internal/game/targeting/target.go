// Package targeting computes legal target sets for effects and validates
// chosen targets against them.
package targeting

import (
	"fmt"
	"strings"

	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
)

// Kind is the type of a target.
type Kind string

const (
	KindCard   Kind = "CARD"
	KindPlayer Kind = "PLAYER"
)

// Target identifies a chosen target. Two targets are the same target when
// every field is equal.
type Target struct {
	Kind     Kind
	CardID   string
	PlayerID string
	Zone     rules.Zone
}

// CardTarget returns the target for a card in its current zone.
func CardTarget(card state.Card) Target {
	return Target{Kind: KindCard, CardID: card.ID, PlayerID: card.Owner, Zone: card.Zone}
}

// PlayerTarget returns the target for a player.
func PlayerTarget(playerID string) Target {
	return Target{Kind: KindPlayer, PlayerID: playerID}
}

func (t Target) String() string {
	if t.Kind == KindPlayer {
		return "player:" + t.PlayerID
	}
	return fmt.Sprintf("%s@%s/%s", t.CardID, t.PlayerID, t.Zone)
}

// Requirement describes how many targets an effect needs and which cards
// qualify.
type Requirement struct {
	Filter      Filter
	Min         int
	Max         int
	Description string
}

// Validate checks the number of chosen targets and rejects duplicates.
func (r Requirement) Validate(chosen []Target) error {
	count := len(chosen)
	if count < r.Min {
		return fmt.Errorf("not enough targets: need at least %d, got %d", r.Min, count)
	}
	if r.Max > 0 && count > r.Max {
		return fmt.Errorf("too many targets: need at most %d, got %d", r.Max, count)
	}
	seen := make(map[Target]bool, count)
	for _, t := range chosen {
		if seen[t] {
			return fmt.Errorf("duplicate target: %s", t)
		}
		seen[t] = true
	}
	return nil
}

// CardIDs returns the card IDs of the card targets, in order.
func CardIDs(targets []Target) []string {
	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		if t.Kind == KindCard {
			ids = append(ids, t.CardID)
		}
	}
	return ids
}

// FormatTargets formats targets into a compact string for event metadata.
func FormatTargets(targets []Target) string {
	parts := make([]string, len(targets))
	for i, t := range targets {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

// ResolveCards looks up the current cards for the given IDs and returns their
// targets. Unknown IDs are reported as an error.
func ResolveCards(r state.Reader, ids []string) ([]Target, error) {
	targets := make([]Target, 0, len(ids))
	for _, id := range ids {
		card, ok := r.GetCard(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", state.ErrCardNotFound, id)
		}
		targets = append(targets, CardTarget(card))
	}
	return targets, nil
}
