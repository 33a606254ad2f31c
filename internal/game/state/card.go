package state

import (
	"strings"

	"github.com/grandline/opcg-server-go/internal/game/rules"
)

// Category is the card category printed on a card.
type Category string

const (
	CategoryLeader    Category = "LEADER"
	CategoryCharacter Category = "CHARACTER"
	CategoryEvent     Category = "EVENT"
	CategoryStage     Category = "STAGE"
	CategoryDon       Category = "DON"
)

// CardState is a card's two-state usability flag.
type CardState string

const (
	StateActive CardState = "ACTIVE"
	StateRested CardState = "RESTED"
)

// Card is the state record of one card instance. Records held by a store are
// never mutated in place; treat values returned by a store as read-only.
type Card struct {
	ID             string
	DefinitionCode string
	Name           string
	Owner          string
	Zone           rules.Zone
	Category       Category
	Colors         []string
	Cost           int
	Power          int
	PowerBonus     int
	Counter        int
	Keywords       []string
	Types          []string
	Attributes     []string
	Rested         bool

	// EffectUses maps an effect ID to the turn number it was last used on.
	EffectUses map[string]int
}

// State returns the card's active/rested state.
func (c Card) State() CardState {
	if c.Rested {
		return StateRested
	}
	return StateActive
}

// EffectivePower returns printed power plus temporary bonuses.
func (c Card) EffectivePower() int {
	return c.Power + c.PowerBonus
}

// HasKeyword reports whether the card has the keyword (case-insensitive).
func (c Card) HasKeyword(keyword string) bool {
	return containsFold(c.Keywords, keyword)
}

// HasColor reports whether the card has the color (case-insensitive).
func (c Card) HasColor(color string) bool {
	return containsFold(c.Colors, color)
}

// UsedOnTurn reports whether the effect was used on the given turn.
func (c Card) UsedOnTurn(effectID string, turn int) bool {
	used, ok := c.EffectUses[effectID]
	return ok && used == turn
}

func (c Card) clone() *Card {
	cp := c
	cp.Colors = append([]string(nil), c.Colors...)
	cp.Keywords = append([]string(nil), c.Keywords...)
	cp.Types = append([]string(nil), c.Types...)
	cp.Attributes = append([]string(nil), c.Attributes...)
	if c.EffectUses != nil {
		cp.EffectUses = make(map[string]int, len(c.EffectUses))
		for k, v := range c.EffectUses {
			cp.EffectUses[k] = v
		}
	}
	return &cp
}

// EffectUse stamps an effect as used on a turn.
type EffectUse struct {
	EffectID string
	Turn     int
}

// CardPatch describes a partial card update. Nil fields are left unchanged.
type CardPatch struct {
	Rested      *bool
	PowerBonus  *int
	Cost        *int
	AddKeywords []string
	MarkUsed    *EffectUse
}

// Rest returns a patch that rests a card.
func Rest() CardPatch {
	v := true
	return CardPatch{Rested: &v}
}

// Activate returns a patch that sets a card active.
func Activate() CardPatch {
	v := false
	return CardPatch{Rested: &v}
}

// AddPower returns a patch that sets the power bonus to bonus.
func AddPower(bonus int) CardPatch {
	return CardPatch{PowerBonus: &bonus}
}

// MarkUsed returns a patch that records an effect use on turn.
func MarkUsed(effectID string, turn int) CardPatch {
	return CardPatch{MarkUsed: &EffectUse{EffectID: effectID, Turn: turn}}
}

func (p CardPatch) apply(c *Card) {
	if p.Rested != nil {
		c.Rested = *p.Rested
	}
	if p.PowerBonus != nil {
		c.PowerBonus = *p.PowerBonus
	}
	if p.Cost != nil {
		c.Cost = *p.Cost
	}
	for _, kw := range p.AddKeywords {
		if !c.HasKeyword(kw) {
			c.Keywords = append(c.Keywords, kw)
		}
	}
	if p.MarkUsed != nil {
		if c.EffectUses == nil {
			c.EffectUses = make(map[string]int)
		}
		c.EffectUses[p.MarkUsed.EffectID] = p.MarkUsed.Turn
	}
}

// Player is the state record of one player.
type Player struct {
	ID    string
	Name  string
	Zones map[rules.Zone][]string
}

// Cards returns a copy of the card IDs in the zone, in zone order.
func (p Player) Cards(zone rules.Zone) []string {
	return append([]string(nil), p.Zones[zone]...)
}

// Count returns the number of cards in the zone.
func (p Player) Count(zone rules.Zone) int {
	return len(p.Zones[zone])
}

func (p Player) clone() *Player {
	cp := p
	cp.Zones = make(map[rules.Zone][]string, len(p.Zones))
	for z, ids := range p.Zones {
		cp.Zones[z] = ids
	}
	return &cp
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
