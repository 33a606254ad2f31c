package watchers

import (
	"github.com/grandline/opcg-server-go/internal/game/rules"
)

// Stat names exposed to conditions as <side>.<stat>_this_turn.
const (
	StatPlayed  = "played"
	StatAttacks = "attacks"
	StatKOs     = "kos"
	StatDrawn   = "drawn"
)

// Counter is a watcher that counts one kind of event per player.
type Counter interface {
	rules.Watcher
	Stat() string
	Count(playerID string) int
}

// playerCounts is the per-player tally shared by the counting watchers.
type playerCounts map[string]int

func (pc playerCounts) clone() playerCounts {
	out := make(playerCounts, len(pc))
	for k, v := range pc {
		out[k] = v
	}
	return out
}

// CardsPlayedWatcher tracks cards played from hand by each player.
type CardsPlayedWatcher struct {
	*rules.BaseWatcher
	played playerCounts
}

// NewCardsPlayedWatcher creates a new cards played watcher.
func NewCardsPlayedWatcher() *CardsPlayedWatcher {
	return &CardsPlayedWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopePlayer, "CardsPlayedWatcher"),
		played:      make(playerCounts),
	}
}

// Watch implements the Watcher interface.
func (w *CardsPlayedWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventCardPlayed || event.Controller == "" {
		return
	}
	w.played[event.Controller]++
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *CardsPlayedWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.played = make(playerCounts)
}

func (w *CardsPlayedWatcher) Stat() string { return StatPlayed }

// Count returns the number of cards a player played this turn.
func (w *CardsPlayedWatcher) Count(playerID string) int {
	return w.played[playerID]
}

// Copy creates a copy of this watcher.
func (w *CardsPlayedWatcher) Copy() rules.Watcher {
	cp := NewCardsPlayedWatcher()
	cp.SetCondition(w.ConditionMet())
	cp.played = w.played.clone()
	return cp
}

// AttacksWatcher tracks attacks declared by each player.
type AttacksWatcher struct {
	*rules.BaseWatcher
	attacks  playerCounts
	attacked map[string]bool // attacker card IDs
}

// NewAttacksWatcher creates a new attacks watcher.
func NewAttacksWatcher() *AttacksWatcher {
	return &AttacksWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopePlayer, "AttacksWatcher"),
		attacks:     make(playerCounts),
		attacked:    make(map[string]bool),
	}
}

// Watch implements the Watcher interface.
func (w *AttacksWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventAttackDeclared || event.Controller == "" {
		return
	}
	w.attacks[event.Controller]++
	w.attacked[event.SourceID] = true
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *AttacksWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.attacks = make(playerCounts)
	w.attacked = make(map[string]bool)
}

func (w *AttacksWatcher) Stat() string { return StatAttacks }

// Count returns the number of attacks a player declared this turn.
func (w *AttacksWatcher) Count(playerID string) int {
	return w.attacks[playerID]
}

// HasAttacked reports whether a card attacked this turn.
func (w *AttacksWatcher) HasAttacked(cardID string) bool {
	return w.attacked[cardID]
}

// Copy creates a copy of this watcher.
func (w *AttacksWatcher) Copy() rules.Watcher {
	cp := NewAttacksWatcher()
	cp.SetCondition(w.ConditionMet())
	cp.attacks = w.attacks.clone()
	for id := range w.attacked {
		cp.attacked[id] = true
	}
	return cp
}

// KnockoutsWatcher tracks characters that went from the character area to
// the trash, counted by owner.
type KnockoutsWatcher struct {
	*rules.BaseWatcher
	kos playerCounts
}

// NewKnockoutsWatcher creates a new knockouts watcher.
func NewKnockoutsWatcher() *KnockoutsWatcher {
	return &KnockoutsWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopePlayer, "KnockoutsWatcher"),
		kos:         make(playerCounts),
	}
}

// Watch implements the Watcher interface.
func (w *KnockoutsWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventCardMoved {
		return
	}
	if event.FromZone != rules.ZoneCharacter || event.Zone != rules.ZoneTrash {
		return
	}
	w.kos[event.PlayerID]++
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *KnockoutsWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.kos = make(playerCounts)
}

func (w *KnockoutsWatcher) Stat() string { return StatKOs }

// Count returns the number of a player's characters K.O.'d this turn.
func (w *KnockoutsWatcher) Count(playerID string) int {
	return w.kos[playerID]
}

// Copy creates a copy of this watcher.
func (w *KnockoutsWatcher) Copy() rules.Watcher {
	cp := NewKnockoutsWatcher()
	cp.SetCondition(w.ConditionMet())
	cp.kos = w.kos.clone()
	return cp
}

// CardsDrawnWatcher tracks cards drawn by each player.
type CardsDrawnWatcher struct {
	*rules.BaseWatcher
	drawn playerCounts
}

// NewCardsDrawnWatcher creates a new cards drawn watcher.
func NewCardsDrawnWatcher() *CardsDrawnWatcher {
	return &CardsDrawnWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopePlayer, "CardsDrawnWatcher"),
		drawn:       make(playerCounts),
	}
}

// Watch implements the Watcher interface.
func (w *CardsDrawnWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventCardMoved {
		return
	}
	if event.FromZone != rules.ZoneDeck || event.Zone != rules.ZoneHand {
		return
	}
	w.drawn[event.PlayerID]++
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *CardsDrawnWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.drawn = make(playerCounts)
}

func (w *CardsDrawnWatcher) Stat() string { return StatDrawn }

// Count returns the number of cards a player drew this turn.
func (w *CardsDrawnWatcher) Count(playerID string) int {
	return w.drawn[playerID]
}

// Copy creates a copy of this watcher.
func (w *CardsDrawnWatcher) Copy() rules.Watcher {
	cp := NewCardsDrawnWatcher()
	cp.SetCondition(w.ConditionMet())
	cp.drawn = w.drawn.clone()
	return cp
}

// Default returns the watchers every game carries.
func Default() []rules.Watcher {
	return []rules.Watcher{
		NewCardsPlayedWatcher(),
		NewAttacksWatcher(),
		NewKnockoutsWatcher(),
		NewCardsDrawnWatcher(),
	}
}

// Stats reads per-turn tallies out of a watcher registry.
type Stats struct {
	registry *rules.WatcherRegistry
}

// NewStats wraps a registry.
func NewStats(registry *rules.WatcherRegistry) Stats {
	return Stats{registry: registry}
}

// ThisTurn returns a player's tally for a stat, or 0 when no registered
// watcher counts it.
func (s Stats) ThisTurn(stat, playerID string) int {
	if s.registry == nil {
		return 0
	}
	for _, w := range s.registry.GetWatchersByScope(rules.WatcherScopePlayer) {
		if c, ok := w.(Counter); ok && c.Stat() == stat {
			return c.Count(playerID)
		}
	}
	return 0
}
