package game

import (
	"fmt"

	"github.com/grandline/opcg-server-go/internal/game/effects"
	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/targeting"
	"go.uber.org/zap"
)

// park holds an instance until its controller chooses targets.
func (e *Engine) park(item stackItem, legal []targeting.Target) {
	e.awaiting[item.inst.ID] = item
	e.parked = append(e.parked, item.inst.ID)
	e.logger.Debug("effect awaiting input",
		zap.String("instance_id", item.inst.ID),
		zap.String("effect_id", item.inst.Definition.ID),
		zap.Int("legal_targets", len(legal)))

	evt := rules.NewEvent(rules.EventEffectAwaitingInput, item.inst.SourceID, item.inst.Controller)
	evt.SourceName = item.inst.SourceName
	evt.EffectID = item.inst.Definition.ID
	evt.EffectType = string(item.inst.Definition.Kind)
	evt.Label = item.inst.Definition.Label
	evt.Targets = targeting.CardIDs(legal)
	evt.Values = item.inst.Values()
	evt.Metadata["instance_id"] = item.inst.ID
	e.bus.Publish(evt)
}

// ProvideInput supplies the targets and parameter values of an instance
// waiting for input and resolves it.
func (e *Engine) ProvideInput(instanceID string, targets []targeting.Target, values map[string]string) error {
	item, ok := e.awaiting[instanceID]
	if !ok {
		return fmt.Errorf("%w: %s", effects.ErrNotAwaitingInput, instanceID)
	}

	e.enter()
	defer e.leave()

	params, err := e.bindParams(item.inst.Definition, item.inst.Params, values)
	if err != nil {
		return err
	}
	inst := item.inst.WithTargets(targets).WithParams(params)
	if req := e.requirement(inst); req != nil {
		if err := req.Validate(inst.Targets); err != nil {
			return fmt.Errorf("%w: %w", effects.ErrInvalidTargets, err)
		}
		if !e.targets.ValidateTargets(inst.Targets, req.Filter, inst.Controller) {
			return fmt.Errorf("%w: %s", effects.ErrInvalidTargets, targeting.FormatTargets(inst.Targets))
		}
	}

	delete(e.awaiting, instanceID)
	for i, id := range e.parked {
		if id == instanceID {
			e.parked = append(e.parked[:i], e.parked[i+1:]...)
			break
		}
	}
	e.push(stackItem{inst: inst, inputDone: true}, 0)
	e.ResolveStack()
	return nil
}
