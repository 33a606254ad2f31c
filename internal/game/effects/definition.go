// Package effects defines card effects, the scripts that implement them and
// the replacement pipeline that rewrites their costs and bodies.
package effects

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/grandline/opcg-server-go/internal/game/conditions"
	"github.com/grandline/opcg-server-go/internal/game/costs"
	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"github.com/grandline/opcg-server-go/internal/game/targeting"
)

// TimingKind is how an effect comes into play.
type TimingKind string

const (
	// KindAuto effects fire on game events.
	KindAuto TimingKind = "AUTO"
	// KindActivated effects are activated by their controller.
	KindActivated TimingKind = "ACTIVATED"
	// KindPermanent effects are always on.
	KindPermanent TimingKind = "PERMANENT"
	// KindReplacement effects rewrite other effects' costs and bodies.
	KindReplacement TimingKind = "REPLACEMENT"
)

// ParseTimingKind converts a kind name, case-insensitively.
func ParseTimingKind(name string) (TimingKind, error) {
	kind := TimingKind(strings.ToUpper(strings.TrimSpace(name)))
	switch kind {
	case KindAuto, KindActivated, KindPermanent, KindReplacement:
		return kind, nil
	}
	return "", fmt.Errorf("unknown timing kind %q", name)
}

// Definition is an immutable effect printed on a card.
type Definition struct {
	ID    string
	Label string
	Kind  TimingKind

	// Trigger and TriggerPriority apply to KindAuto. Higher TriggerPriority
	// resolves first among one player's triggers.
	Trigger         rules.TriggerTiming
	TriggerPriority int
	// SelfOnly restricts a trigger to events about its own source card.
	SelfOnly bool

	Condition   conditions.Condition
	Cost        *costs.Cost
	Script      ScriptID
	Params      Params
	OncePerTurn bool

	// Replacement fields apply to KindReplacement. Lower priority rewrites
	// are applied first.
	ReplacementPriority int
	RewriteCost         CostRewrite
	RewriteBody         BodyRewrite
}

// Triggers reports whether the definition fires automatically on the event
// for a source controlled by controller.
func (d *Definition) Triggers(event rules.Event, sourceID, controller string) bool {
	if d.Kind != KindAuto || d.Trigger == rules.TimingNone {
		return false
	}
	if !d.Trigger.Matches(event, controller) {
		return false
	}
	if d.SelfOnly && d.Trigger.Subject(event) != sourceID {
		return false
	}
	return true
}

// Provider returns the effect definitions of a card.
type Provider interface {
	Definitions(card state.Card) []*Definition
}

// ProviderFunc adapts a function to a Provider.
type ProviderFunc func(card state.Card) []*Definition

func (f ProviderFunc) Definitions(card state.Card) []*Definition {
	return f(card)
}

// Find returns the card's definition with the given ID.
func Find(p Provider, card state.Card, effectID string) (*Definition, bool) {
	for _, def := range p.Definitions(card) {
		if def.ID == effectID {
			return def, true
		}
	}
	return nil, false
}

// Instance is an effect bound to a source, a controller, targets and
// parameters. Instances are values: rewrites return a new instance.
type Instance struct {
	ID         string
	Definition *Definition
	SourceID   string
	SourceName string
	Controller string
	Targets    []targeting.Target
	Params     Params
}

// NewInstance binds a definition to its source card.
func NewInstance(def *Definition, source state.Card, controller string, targets []targeting.Target, params Params) Instance {
	if params == nil {
		params = def.Params
	}
	return Instance{
		ID:         uuid.NewString(),
		Definition: def,
		SourceID:   source.ID,
		SourceName: source.Name,
		Controller: controller,
		Targets:    append([]targeting.Target(nil), targets...),
		Params:     params,
	}
}

// WithTargets returns a copy of the instance with new targets.
func (i Instance) WithTargets(targets []targeting.Target) Instance {
	i.Targets = append([]targeting.Target(nil), targets...)
	return i
}

// WithParams returns a copy of the instance with new parameters.
func (i Instance) WithParams(params Params) Instance {
	i.Params = params
	return i
}

// Values returns the parameters as strings for events and logs.
func (i Instance) Values() map[string]string {
	if i.Params == nil {
		return map[string]string{}
	}
	return i.Params.Values()
}

// TriggerInstance is an automatic effect waiting in the trigger queue.
type TriggerInstance struct {
	ID         string
	Definition *Definition
	SourceID   string
	SourceName string
	Controller string
	Event      rules.Event
	// Priority is the scheduling priority: 1 for the turn player, 0 otherwise.
	Priority int
}

// NewTriggerInstance binds a definition to the event that fired it.
func NewTriggerInstance(def *Definition, source state.Card, event rules.Event, turnPlayer string) TriggerInstance {
	return TriggerInstance{
		ID:         uuid.NewString(),
		Definition: def,
		SourceID:   source.ID,
		SourceName: source.Name,
		Controller: source.Owner,
		Event:      event,
		Priority:   rules.SchedulingPriority(source.Owner, turnPlayer),
	}
}

// TextPriority returns the card-text priority of the trigger.
func (t TriggerInstance) TextPriority() int {
	return t.Definition.TriggerPriority
}
