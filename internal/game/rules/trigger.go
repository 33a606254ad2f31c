package rules

import (
	"fmt"
	"sort"
	"strings"
)

// TriggerTiming is the trigger tag of an automatic effect.
type TriggerTiming string

const (
	TimingNone              TriggerTiming = ""
	TimingOnPlay            TriggerTiming = "ON_PLAY"
	TimingWhenAttacking     TriggerTiming = "WHEN_ATTACKING"
	TimingWhenAttacked      TriggerTiming = "WHEN_ATTACKED"
	TimingOnKO              TriggerTiming = "ON_KO"
	TimingStartOfTurn       TriggerTiming = "START_OF_TURN"
	TimingEndOfYourTurn     TriggerTiming = "END_OF_YOUR_TURN"
	TimingEndOfOpponentTurn TriggerTiming = "END_OF_OPPONENT_TURN"
	TimingOnBlock           TriggerTiming = "ON_BLOCK"
	TimingCounterStep       TriggerTiming = "COUNTER_STEP"
)

// triggerEvents is the fixed trigger-timing to event-type table.
var triggerEvents = map[TriggerTiming]EventType{
	TimingOnPlay:            EventCardPlayed,
	TimingWhenAttacking:     EventAttackDeclared,
	TimingWhenAttacked:      EventAttackDeclared,
	TimingOnKO:              EventCardMoved,
	TimingStartOfTurn:       EventTurnStart,
	TimingEndOfYourTurn:     EventTurnEnd,
	TimingEndOfOpponentTurn: EventTurnEnd,
	TimingOnBlock:           EventBlockDeclared,
	TimingCounterStep:       EventCounterStepStart,
}

// ParseTriggerTiming converts a timing name such as "on-play" or "ON_PLAY".
func ParseTriggerTiming(name string) (TriggerTiming, error) {
	normalized := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(name)))
	if normalized == "" {
		return TimingNone, nil
	}
	timing := TriggerTiming(normalized)
	if _, ok := triggerEvents[timing]; !ok {
		return TimingNone, fmt.Errorf("unknown trigger timing %q", name)
	}
	return timing, nil
}

// EventFor returns the event type a trigger timing fires on.
func (t TriggerTiming) EventFor() (EventType, bool) {
	et, ok := triggerEvents[t]
	return et, ok
}

// TriggerEventTypes returns every event type that can fire a trigger.
func TriggerEventTypes() []EventType {
	seen := make(map[EventType]bool)
	out := make([]EventType, 0, len(triggerEvents))
	for _, et := range triggerEvents {
		if !seen[et] {
			seen[et] = true
			out = append(out, et)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Matches reports whether an automatic effect with this timing, controlled by
// controller, fires on the event.
//
// End-of-turn variants are controller scoped: END_OF_YOUR_TURN fires only on
// the controller's turn end, END_OF_OPPONENT_TURN only on the opponent's.
// On-knockout fires only for moves whose destination is the trash.
func (t TriggerTiming) Matches(event Event, controller string) bool {
	et, ok := triggerEvents[t]
	if !ok || et != event.Type {
		return false
	}
	switch t {
	case TimingOnKO:
		return event.Zone == ZoneTrash
	case TimingEndOfYourTurn:
		return event.PlayerID == controller
	case TimingEndOfOpponentTurn:
		return event.PlayerID != controller
	}
	return true
}

// Subject returns the card an event is about from the point of view of a
// trigger timing: the played card, the attacker, the attack target, the
// moved card or the blocker. Turn and counter-step events have no subject.
func (t TriggerTiming) Subject(event Event) string {
	switch t {
	case TimingOnPlay, TimingWhenAttacking, TimingOnKO, TimingOnBlock:
		return event.SourceID
	case TimingWhenAttacked:
		return event.TargetID
	default:
		return ""
	}
}

// HasSubject reports whether events of this timing are about a card.
func (t TriggerTiming) HasSubject() bool {
	switch t {
	case TimingOnPlay, TimingWhenAttacking, TimingWhenAttacked, TimingOnKO, TimingOnBlock:
		return true
	}
	return false
}

// DrainOrder orders pending triggers for resolution: every trigger controlled
// by the turn player first, then the rest. Within each group triggers are
// ordered by descending text priority; ties keep queue order.
func DrainOrder[T any](pending []T, turnPlayer string, controller func(T) string, textPriority func(T) int) []T {
	var mine, theirs []T
	for _, p := range pending {
		if controller(p) == turnPlayer {
			mine = append(mine, p)
		} else {
			theirs = append(theirs, p)
		}
	}
	byPriority := func(group []T) {
		sort.SliceStable(group, func(i, j int) bool {
			return textPriority(group[i]) > textPriority(group[j])
		})
	}
	byPriority(mine)
	byPriority(theirs)
	return append(mine, theirs...)
}

// SchedulingPriority is the stack priority of a trigger: 1 for the turn
// player's triggers, 0 otherwise.
func SchedulingPriority(controller, turnPlayer string) int {
	if controller == turnPlayer {
		return 1
	}
	return 0
}
