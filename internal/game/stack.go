package game

import (
	"github.com/grandline/opcg-server-go/internal/game/effects"
	"github.com/grandline/opcg-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// stackItem is an instance waiting on the effect stack. inputDone marks
// instances whose targets were already chosen, possibly as an empty set.
type stackItem struct {
	inst      effects.Instance
	inputDone bool
}

func (e *Engine) push(item stackItem, priority int) {
	entry := e.stack.Push(item, priority)
	e.logger.Debug("added effect to stack",
		zap.String("instance_id", item.inst.ID),
		zap.String("effect_id", item.inst.Definition.ID),
		zap.String("source_id", item.inst.SourceID),
		zap.Int("priority", priority),
		zap.Uint64("seq", entry.Seq),
		zap.Int("stack_size", e.stack.Len()))
	e.emit(rules.EventEffectAddedToStack, item.inst, nil)
}

// stackView lists the pending effect IDs, top first.
func (e *Engine) stackView() []string {
	entries := e.stack.List()
	out := make([]string, len(entries))
	for i, entry := range entries {
		out[i] = entry.Item.inst.SourceID + "/" + entry.Item.inst.Definition.ID
	}
	return out
}

// ResolveStack pops and resolves entries until the stack is empty. Entries
// pushed while resolving are resolved in the same call. A failing entry is
// reported with an error event and does not stop the loop.
func (e *Engine) ResolveStack() {
	e.enter()
	defer e.leave()

	for steps := 0; !e.stack.IsEmpty(); steps++ {
		if steps >= e.opts.MaxStackSteps {
			e.logger.Warn("effect stack hit step limit, discarding remaining entries",
				zap.Int("steps", steps),
				zap.Strings("discarded", e.stackView()))
			e.stack.Clear()
			return
		}
		entry, err := e.stack.Pop()
		if err != nil {
			return
		}
		e.resolve(entry.Item)
	}
}

func (e *Engine) resolve(item stackItem) {
	inst := item.inst
	script, err := e.scripts.Lookup(inst.Definition.Script)
	if err != nil {
		e.fail(inst, err)
		return
	}

	if !item.inputDone && len(inst.Targets) == 0 {
		if requirer, ok := script.(effects.InputRequirer); ok {
			if req := requirer.RequiredInput(inst); req != nil && req.Max > 0 {
				legal := e.targets.LegalTargets(req.Filter, inst.Controller)
				if len(legal) > 0 {
					e.park(item, legal)
					return
				}
			}
		}
	}

	// rewrites apply once, on the pass that runs the script
	inst = e.replacements.ApplyBodyReplacements(inst, e.rewriteContext(inst.SourceID, inst.Definition.ID, inst.Controller))

	ctx := effects.NewContext(e.store, e.targets, e.logger, e.Raise, func(next effects.Instance, priority int) {
		e.push(stackItem{inst: next}, priority)
	})
	if err := script.Run(ctx, inst); err != nil {
		e.fail(inst, &effects.ScriptError{
			ScriptID: inst.Definition.Script,
			EffectID: inst.Definition.ID,
			SourceID: inst.SourceID,
			Err:      err,
		})
		return
	}

	e.logger.Debug("resolved effect",
		zap.String("instance_id", inst.ID),
		zap.String("effect_id", inst.Definition.ID),
		zap.String("source_id", inst.SourceID),
		zap.String("script_id", string(inst.Definition.Script)))
	e.emit(rules.EventEffectResolved, inst, nil)
}

func (e *Engine) fail(inst effects.Instance, err error) {
	e.logger.Error("failed to resolve effect",
		zap.String("instance_id", inst.ID),
		zap.String("effect_id", inst.Definition.ID),
		zap.String("source_id", inst.SourceID),
		zap.String("controller", inst.Controller),
		zap.Error(err))
	e.emit(rules.EventError, inst, err)
}
