package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/grandline/opcg-server-go/internal/game/rules"
)

// Snapshot is a frozen generation of a store's state.
type Snapshot struct {
	data    *stateData
	version uint64
	owner   Store
}

// Version returns the store version at the time of the snapshot.
func (s Snapshot) Version() uint64 {
	return s.version
}

// Checksum computes a deterministic SHA-256 of the snapshot contents. Two
// snapshots with equal card, zone and turn contents have equal checksums.
func (s Snapshot) Checksum() string {
	if s.data == nil {
		return ""
	}
	hash := sha256.Sum256([]byte(s.deterministicRepresentation()))
	return hex.EncodeToString(hash[:])
}

// deterministicRepresentation renders the state independent of map
// iteration order.
func (s Snapshot) deterministicRepresentation() string {
	var buf bytes.Buffer
	turn := s.data.turn
	buf.WriteString(fmt.Sprintf("TURN:%d|%s|%s|%s\n",
		turn.TurnNumber(), turn.ActivePlayer(), turn.CurrentPhase(), strings.Join(turn.Players(), ",")))

	playerIDs := make([]string, 0, len(s.data.players))
	for id := range s.data.players {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)
	for _, id := range playerIDs {
		p := s.data.players[id]
		buf.WriteString(fmt.Sprintf("PLAYER:%s|%s\n", p.ID, p.Name))
		zones := make([]string, 0, len(p.Zones))
		for z, ids := range p.Zones {
			if len(ids) > 0 {
				zones = append(zones, string(z))
			}
		}
		sort.Strings(zones)
		for _, z := range zones {
			buf.WriteString(fmt.Sprintf("ZONE:%s|%s\n", z, strings.Join(p.Zones[rules.Zone(z)], ",")))
		}
	}

	cardIDs := make([]string, 0, len(s.data.cards))
	for id := range s.data.cards {
		cardIDs = append(cardIDs, id)
	}
	sort.Strings(cardIDs)
	for _, id := range cardIDs {
		c := s.data.cards[id]
		uses := make([]string, 0, len(c.EffectUses))
		for effectID, t := range c.EffectUses {
			uses = append(uses, fmt.Sprintf("%s=%d", effectID, t))
		}
		sort.Strings(uses)
		buf.WriteString(fmt.Sprintf("CARD:%s|%s|%s|%s|%t|%d|%d|%d|%s|%s\n",
			c.ID, c.DefinitionCode, c.Owner, c.Zone, c.Rested, c.Cost, c.Power, c.PowerBonus,
			strings.Join(c.Keywords, ","), strings.Join(uses, ",")))
	}
	return buf.String()
}
