package rules

import (
	"fmt"
	"strings"
)

// Zone is a named location holding one player's cards.
type Zone string

const (
	ZoneDeck      Zone = "DECK"
	ZoneHand      Zone = "HAND"
	ZoneTrash     Zone = "TRASH"
	ZoneLife      Zone = "LIFE"
	ZoneLeader    Zone = "LEADER"
	ZoneCharacter Zone = "CHARACTER"
	ZoneStage     Zone = "STAGE"
	ZoneCostArea  Zone = "COST_AREA"
	ZoneDonDeck   Zone = "DON_DECK"
)

// AllZones lists every zone in scan order.
var AllZones = []Zone{
	ZoneLeader,
	ZoneCharacter,
	ZoneStage,
	ZoneCostArea,
	ZoneHand,
	ZoneLife,
	ZoneTrash,
	ZoneDeck,
	ZoneDonDeck,
}

// IsBoard reports whether cards in the zone are in play. Replacement effects
// only apply while their source is in a board zone.
func (z Zone) IsBoard() bool {
	switch z {
	case ZoneLeader, ZoneCharacter, ZoneStage:
		return true
	default:
		return false
	}
}

// ParseZone converts a zone name (case-insensitive) to a Zone.
func ParseZone(name string) (Zone, error) {
	upper := Zone(strings.ToUpper(strings.TrimSpace(name)))
	for _, z := range AllZones {
		if z == upper {
			return z, nil
		}
	}
	return "", fmt.Errorf("unknown zone %q", name)
}
