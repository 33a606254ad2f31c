package effects

import (
	"fmt"
	"sort"

	"github.com/grandline/opcg-server-go/internal/game/costs"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"go.uber.org/zap"
)

// ReplacementPipeline holds the registered replacement effects of a game and
// applies them, lowest priority first, to costs and effect bodies.
//
// A registration only contributes while its source card is on the board. The
// active set is taken once at the start of each application, so a source
// leaving mid-fold still contributes to that fold but not to later ones.
type ReplacementPipeline struct {
	state  state.Reader
	regs   []Replacement
	logger *zap.Logger
}

// NewReplacementPipeline creates an empty pipeline reading liveness from r.
func NewReplacementPipeline(r state.Reader, logger *zap.Logger) *ReplacementPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplacementPipeline{state: r, logger: logger}
}

// Register adds the replacement effect def of a card. Registering the same
// card and effect again replaces the earlier registration.
func (rp *ReplacementPipeline) Register(cardID string, def *Definition) (string, error) {
	if def == nil {
		return "", fmt.Errorf("%w: nil definition", ErrInvalidReplacementKind)
	}
	if def.Kind != KindReplacement {
		return "", fmt.Errorf("%w: %s on %s has kind %s", ErrInvalidReplacementKind, def.ID, cardID, def.Kind)
	}

	rp.Unregister(cardID, def.ID)
	reg := Replacement{
		ID:          ReplacementID(cardID, def.ID),
		CardID:      cardID,
		EffectID:    def.ID,
		Priority:    def.ReplacementPriority,
		RewriteCost: def.RewriteCost,
		RewriteBody: def.RewriteBody,
	}
	// after every registration of equal priority
	idx := sort.Search(len(rp.regs), func(i int) bool {
		return rp.regs[i].Priority > reg.Priority
	})
	rp.regs = append(rp.regs, Replacement{})
	copy(rp.regs[idx+1:], rp.regs[idx:])
	rp.regs[idx] = reg

	rp.logger.Debug("registered replacement effect",
		zap.String("replacement_id", reg.ID),
		zap.String("source_id", cardID),
		zap.String("effect_id", def.ID),
		zap.Int("priority", reg.Priority))
	return reg.ID, nil
}

// Unregister removes a card's replacement effect. It reports whether a
// registration was removed.
func (rp *ReplacementPipeline) Unregister(cardID, effectID string) bool {
	id := ReplacementID(cardID, effectID)
	for i, reg := range rp.regs {
		if reg.ID == id {
			rp.regs = append(rp.regs[:i], rp.regs[i+1:]...)
			rp.logger.Debug("removed replacement effect",
				zap.String("replacement_id", id),
				zap.String("source_id", cardID),
				zap.String("effect_id", effectID))
			return true
		}
	}
	return false
}

// UnregisterCard removes every registration of a card and returns how many
// were removed.
func (rp *ReplacementPipeline) UnregisterCard(cardID string) int {
	kept := rp.regs[:0]
	removed := 0
	for _, reg := range rp.regs {
		if reg.CardID == cardID {
			removed++
			continue
		}
		kept = append(kept, reg)
	}
	rp.regs = kept
	if removed > 0 {
		rp.logger.Debug("removed replacement effects of card",
			zap.String("source_id", cardID),
			zap.Int("removed", removed))
	}
	return removed
}

// Clear removes every registration.
func (rp *ReplacementPipeline) Clear() {
	rp.regs = nil
	rp.logger.Debug("cleared all replacement effects")
}

// Len returns the number of registrations.
func (rp *ReplacementPipeline) Len() int {
	return len(rp.regs)
}

// ApplyCostReplacements folds the cost rewrites of active registrations over
// the cost.
func (rp *ReplacementPipeline) ApplyCostReplacements(cost costs.Cost, ctx RewriteContext) costs.Cost {
	for _, reg := range rp.active() {
		if reg.RewriteCost == nil {
			continue
		}
		before := cost.String()
		cost = reg.RewriteCost(cost, rp.contextFor(reg, ctx))
		if after := cost.String(); after != before {
			rp.logger.Debug("applied cost replacement",
				zap.String("replacement_id", reg.ID),
				zap.String("effect_id", ctx.EffectID),
				zap.String("before", before),
				zap.String("after", after))
		}
	}
	return cost
}

// ApplyBodyReplacements folds the body rewrites of active registrations over
// the instance.
func (rp *ReplacementPipeline) ApplyBodyReplacements(inst Instance, ctx RewriteContext) Instance {
	for _, reg := range rp.active() {
		if reg.RewriteBody == nil {
			continue
		}
		inst = reg.RewriteBody(inst, rp.contextFor(reg, ctx))
		rp.logger.Debug("applied body replacement",
			zap.String("replacement_id", reg.ID),
			zap.String("effect_id", ctx.EffectID),
			zap.String("instance_id", inst.ID))
	}
	return inst
}

// active returns the registrations whose source card is on the board now.
func (rp *ReplacementPipeline) active() []Replacement {
	out := make([]Replacement, 0, len(rp.regs))
	for _, reg := range rp.regs {
		card, ok := rp.state.GetCard(reg.CardID)
		if !ok || !card.Zone.IsBoard() {
			continue
		}
		out = append(out, reg)
	}
	return out
}

func (rp *ReplacementPipeline) contextFor(reg Replacement, ctx RewriteContext) RewriteContext {
	if ctx.State == nil {
		ctx.State = rp.state
	}
	ctx.ReplacerID = reg.CardID
	if card, ok := rp.state.GetCard(reg.CardID); ok {
		ctx.ReplacerOwner = card.Owner
	}
	return ctx
}
