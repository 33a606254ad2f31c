package rules

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType indicates the category of a rules event.
type EventType string

const (
	// Game events raised by the game flow and the zone mover.
	EventCardPlayed       EventType = "CARD_PLAYED"
	EventAttackDeclared   EventType = "ATTACK_DECLARED"
	EventBlockDeclared    EventType = "BLOCK_DECLARED"
	EventCardMoved        EventType = "CARD_MOVED"
	EventTurnStart        EventType = "TURN_START"
	EventTurnEnd          EventType = "TURN_END"
	EventCounterStepStart EventType = "COUNTER_STEP_START"
	EventPhaseChanged     EventType = "PHASE_CHANGED"
	EventCardStateChanged EventType = "CARD_STATE_CHANGED"

	// Effect lifecycle events raised by the resolution engine.
	EventEffectTriggered     EventType = "EFFECT_TRIGGERED"
	EventEffectAwaitingInput EventType = "EFFECT_AWAITING_INPUT"
	EventEffectResolved      EventType = "EFFECT_RESOLVED"
	EventEffectAddedToStack  EventType = "EFFECT_ADDED_TO_STACK"
	EventError               EventType = "ERROR"
)

// IsLifecycle reports whether the event type is an effect lifecycle event.
func (et EventType) IsLifecycle() bool {
	switch et {
	case EventEffectTriggered, EventEffectAwaitingInput, EventEffectResolved,
		EventEffectAddedToStack, EventError:
		return true
	default:
		return false
	}
}

// Event represents a state change or effect lifecycle step that other
// subsystems may react to.
type Event struct {
	Type        EventType
	ID          string            // Unique event ID
	SourceID    string            // Card the event is about (played card, attacker, moved card, effect source)
	SourceName  string            // Display name of the source card
	TargetID    string            // Attack or block target
	Controller  string            // Controller of the source
	PlayerID    string            // Turn player for turn events, owner for zone events
	EffectID    string            // Effect definition ID for lifecycle events
	EffectType  string            // Timing kind of the effect for lifecycle events
	Label       string            // Display label of the effect
	FromZone    Zone              // Origin zone for card moves
	Zone        Zone              // Destination zone for card moves
	Targets     []string          // Chosen targets for lifecycle events
	Values      map[string]string // Script parameters for lifecycle events
	Amount      int               // Numeric value (cards drawn, turn number, ...)
	Error       string            // Failure description for EventError
	Timestamp   time.Time         // When the event occurred
	Metadata    map[string]string // Additional metadata
	Description string            // Human-readable description
}

// Sink receives emitted events. Implementations must not panic and have no
// return value; emitting is fire-and-forget.
type Sink interface {
	Emit(event Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit calls f(event).
func (f SinkFunc) Emit(event Event) {
	if f != nil {
		f(event)
	}
}

// NopSink discards every event.
var NopSink Sink = SinkFunc(func(Event) {})

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	order          []int
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	bus.order = append(bus.order, handle)
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if _, ok := bus.listeners[handle]; ok {
		delete(bus.listeners, handle)
		for i, h := range bus.order {
			if h == handle {
				bus.order = append(bus.order[:i], bus.order[i+1:]...)
				break
			}
		}
	}
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously, in
// subscription order. Listeners may publish further events.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	all := make([]Listener, 0, len(bus.order))
	for _, handle := range bus.order {
		all = append(all, bus.listeners[handle])
	}
	typed := append([]TypedListener(nil), bus.typedListeners[event.Type]...)
	bus.mu.RUnlock()

	for _, listener := range all {
		listener(event)
	}
	for _, listener := range typed {
		listener.Callback(event)
	}
}

// Emit implements Sink.
func (bus *EventBus) Emit(event Event) {
	bus.Publish(event)
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, sourceID, controllerID string) Event {
	return Event{
		Type:       eventType,
		ID:         uuid.NewString(),
		SourceID:   sourceID,
		Controller: controllerID,
		PlayerID:   controllerID,
		Timestamp:  time.Now(),
		Metadata:   make(map[string]string),
	}
}

// NewMoveEvent creates a card-moved event.
func NewMoveEvent(cardID, ownerID string, from, to Zone) Event {
	evt := NewEvent(EventCardMoved, cardID, ownerID)
	evt.FromZone = from
	evt.Zone = to
	return evt
}

// NewTurnEvent creates a turn start or end event for the given turn player.
func NewTurnEvent(eventType EventType, turnPlayer string, turn int) Event {
	evt := NewEvent(eventType, "", turnPlayer)
	evt.Amount = turn
	return evt
}

// NewAttackEvent creates an attack-declared event.
func NewAttackEvent(attackerID, targetID, controllerID string) Event {
	evt := NewEvent(EventAttackDeclared, attackerID, controllerID)
	evt.TargetID = targetID
	return evt
}

// NewBlockEvent creates a block-declared event.
func NewBlockEvent(blockerID, attackerID, controllerID string) Event {
	evt := NewEvent(EventBlockDeclared, blockerID, controllerID)
	evt.TargetID = attackerID
	return evt
}
