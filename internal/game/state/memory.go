package state

import (
	"fmt"
	"strings"

	"github.com/grandline/opcg-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// stateData is one immutable generation of the game state. Card and player
// records are shared between generations and replaced, never edited.
type stateData struct {
	cards   map[string]*Card
	players map[string]*Player
	turn    rules.TurnManager
}

// MemoryStore is an in-memory Store and ZoneMover. Snapshots are O(1): the
// current generation is frozen and the next mutation copies the top-level
// maps before replacing the touched records.
type MemoryStore struct {
	data    *stateData
	shared  bool
	version uint64
	clock   uint64
	sink    rules.Sink
	logger  *zap.Logger
}

// NewMemoryStore creates an empty store for the given players in turn order.
// Card-moved and phase events are emitted to sink.
func NewMemoryStore(sink rules.Sink, logger *zap.Logger, players ...string) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = rules.NopSink
	}
	data := &stateData{
		cards:   make(map[string]*Card),
		players: make(map[string]*Player),
		turn:    rules.NewTurnManager(players...),
	}
	for _, id := range data.turn.Players() {
		data.players[id] = &Player{ID: id, Name: id, Zones: make(map[rules.Zone][]string)}
	}
	s := &MemoryStore{data: data, sink: sink, logger: logger}
	s.bump()
	return s
}

// SetSink replaces the event sink.
func (s *MemoryStore) SetSink(sink rules.Sink) {
	if sink == nil {
		sink = rules.NopSink
	}
	s.sink = sink
}

// GetCard returns the card record.
func (s *MemoryStore) GetCard(id string) (Card, bool) {
	card, ok := s.data.cards[id]
	if !ok {
		return Card{}, false
	}
	return *card, true
}

// GetPlayer returns the player record.
func (s *MemoryStore) GetPlayer(id string) (Player, bool) {
	player, ok := s.data.players[id]
	if !ok {
		return Player{}, false
	}
	return *player, true
}

// Players returns player IDs in turn order.
func (s *MemoryStore) Players() []string {
	return s.data.turn.Players()
}

// TurnNumber returns the current turn number.
func (s *MemoryStore) TurnNumber() int {
	return s.data.turn.TurnNumber()
}

// ActivePlayer returns the turn player.
func (s *MemoryStore) ActivePlayer() string {
	return s.data.turn.ActivePlayer()
}

// Phase returns the current phase.
func (s *MemoryStore) Phase() rules.Phase {
	return s.data.turn.CurrentPhase()
}

// Version returns the current state version.
func (s *MemoryStore) Version() uint64 {
	return s.version
}

// SetPlayerName sets a player's display name.
func (s *MemoryStore) SetPlayerName(playerID, name string) error {
	player, ok := s.data.players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	data := s.mutable()
	cp := player.clone()
	cp.Name = name
	data.players[playerID] = cp
	s.bump()
	return nil
}

// AddCard places a new card record at the end of its owner's zone.
func (s *MemoryStore) AddCard(card Card, zone rules.Zone) error {
	if strings.TrimSpace(card.ID) == "" {
		return fmt.Errorf("card id is required")
	}
	if _, exists := s.data.cards[card.ID]; exists {
		return fmt.Errorf("card %s already exists", card.ID)
	}
	player, ok := s.data.players[card.Owner]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, card.Owner)
	}

	data := s.mutable()
	rec := card.clone()
	rec.Zone = zone
	data.cards[card.ID] = rec

	cp := player.clone()
	cp.Zones[zone] = appendCopy(cp.Zones[zone], card.ID)
	data.players[card.Owner] = cp
	s.bump()
	return nil
}

// UpdateCard applies a patch to a card record.
func (s *MemoryStore) UpdateCard(id string, patch CardPatch) error {
	card, ok := s.data.cards[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	data := s.mutable()
	rec := card.clone()
	patch.apply(rec)
	data.cards[id] = rec
	s.bump()

	if patch.Rested != nil && card.Rested != rec.Rested {
		evt := rules.NewEvent(rules.EventCardStateChanged, id, rec.Owner)
		evt.SourceName = rec.Name
		evt.Zone = rec.Zone
		evt.Metadata["state"] = string(rec.State())
		s.sink.Emit(evt)
	}
	return nil
}

// MoveCard moves a card to the end of the destination zone of its owner.
// Leaving the board resets the card's rested flag and power bonus.
func (s *MemoryStore) MoveCard(cardID string, to rules.Zone) error {
	card, ok := s.data.cards[cardID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}
	player, ok := s.data.players[card.Owner]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, card.Owner)
	}
	from := card.Zone

	data := s.mutable()
	cp := player.clone()
	cp.Zones[from] = removeID(cp.Zones[from], cardID)
	cp.Zones[to] = appendCopy(cp.Zones[to], cardID)
	data.players[card.Owner] = cp

	rec := card.clone()
	rec.Zone = to
	if from.IsBoard() && !to.IsBoard() {
		rec.Rested = false
		rec.PowerBonus = 0
	}
	data.cards[cardID] = rec
	s.bump()

	s.logger.Debug("moved card",
		zap.String("card_id", cardID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	evt := rules.NewMoveEvent(cardID, rec.Owner, from, to)
	evt.SourceName = rec.Name
	s.sink.Emit(evt)
	return nil
}

// Draw moves up to n cards from the top of a player's deck to their hand and
// returns the IDs drawn.
func (s *MemoryStore) Draw(playerID string, n int) ([]string, error) {
	player, ok := s.data.players[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	deck := player.Zones[rules.ZoneDeck]
	if n > len(deck) {
		n = len(deck)
	}
	drawn := append([]string(nil), deck[:n]...)
	for _, id := range drawn {
		if err := s.MoveCard(id, rules.ZoneHand); err != nil {
			return nil, err
		}
	}
	return drawn, nil
}

// SetPhase jumps to a phase and emits a phase-changed event.
func (s *MemoryStore) SetPhase(phase rules.Phase) {
	data := s.mutable()
	data.turn.SetPhase(phase)
	s.bump()
	s.emitPhase()
}

// AdvancePhase moves to the next phase of the turn.
func (s *MemoryStore) AdvancePhase() rules.Phase {
	data := s.mutable()
	phase := data.turn.AdvancePhase()
	s.bump()
	s.emitPhase()
	return phase
}

// EndTurn passes the turn to the next player.
func (s *MemoryStore) EndTurn() {
	data := s.mutable()
	data.turn.EndTurn()
	s.bump()
	s.emitPhase()
}

// Snapshot freezes the current generation and returns a handle to it.
func (s *MemoryStore) Snapshot() Snapshot {
	s.shared = true
	return Snapshot{data: s.data, version: s.version, owner: s}
}

// Restore reinstates a snapshot taken from this store.
func (s *MemoryStore) Restore(snapshot Snapshot) error {
	if snapshot.owner != s || snapshot.data == nil {
		return ErrForeignSnapshot
	}
	s.data = snapshot.data
	s.shared = true
	s.bump()
	s.logger.Debug("restored state snapshot",
		zap.Uint64("snapshot_version", snapshot.version),
		zap.Uint64("version", s.version))
	return nil
}

// mutable returns the generation that may be written, copying the top-level
// maps if the current one is frozen by a snapshot.
func (s *MemoryStore) mutable() *stateData {
	if !s.shared {
		return s.data
	}
	next := &stateData{
		cards:   make(map[string]*Card, len(s.data.cards)),
		players: make(map[string]*Player, len(s.data.players)),
		turn:    s.data.turn,
	}
	for id, c := range s.data.cards {
		next.cards[id] = c
	}
	for id, p := range s.data.players {
		next.players[id] = p
	}
	s.data = next
	s.shared = false
	return next
}

// bump advances the version from a monotonic clock so that a restored
// generation never reuses a version seen after its snapshot.
func (s *MemoryStore) bump() {
	s.clock++
	s.version = s.clock
}

func (s *MemoryStore) emitPhase() {
	evt := rules.NewEvent(rules.EventPhaseChanged, "", s.data.turn.ActivePlayer())
	evt.Amount = s.data.turn.TurnNumber()
	evt.Metadata["phase"] = s.data.turn.CurrentPhase().String()
	s.sink.Emit(evt)
}

func appendCopy(ids []string, id string) []string {
	out := make([]string, len(ids), len(ids)+1)
	copy(out, ids)
	return append(out, id)
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
