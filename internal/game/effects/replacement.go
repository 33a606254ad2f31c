package effects

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/grandline/opcg-server-go/internal/game/costs"
	"github.com/grandline/opcg-server-go/internal/game/state"
)

// RewriteContext describes the effect being rewritten and the registration
// doing the rewriting.
type RewriteContext struct {
	State state.Reader
	// SourceID, EffectID and Controller identify the effect being rewritten.
	SourceID   string
	EffectID   string
	Controller string
	// ReplacerID and ReplacerOwner identify the replacement's source card.
	ReplacerID    string
	ReplacerOwner string
}

// CostRewrite rewrites the cost of an effect about to be paid.
type CostRewrite func(cost costs.Cost, ctx RewriteContext) costs.Cost

// BodyRewrite rewrites an effect instance about to resolve.
type BodyRewrite func(inst Instance, ctx RewriteContext) Instance

// Replacement is a registered replacement effect.
type Replacement struct {
	ID          string
	CardID      string
	EffectID    string
	Priority    int
	RewriteCost CostRewrite
	RewriteBody BodyRewrite
}

// ReplacementID derives the registration ID of a card's replacement effect.
// The same card and effect always yield the same ID.
func ReplacementID(cardID, effectID string) string {
	seed := fmt.Sprintf("%s|replacement|%s", strings.TrimSpace(cardID), strings.TrimSpace(effectID))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

// Scope restricts which effects a replacement rewrites.
type Scope string

const (
	ScopeAll      Scope = "ALL"
	ScopeOwn      Scope = "OWN"
	ScopeOpponent Scope = "OPPONENT"
	ScopeSelf     Scope = "SELF"
)

// Applies reports whether a replacement with this scope rewrites the effect
// described by ctx.
func (s Scope) Applies(ctx RewriteContext) bool {
	switch s {
	case ScopeOwn:
		return ctx.Controller == ctx.ReplacerOwner
	case ScopeOpponent:
		return ctx.Controller != ctx.ReplacerOwner
	case ScopeSelf:
		return ctx.SourceID == ctx.ReplacerID
	default:
		return true
	}
}

// ReduceCost returns a cost rewrite applying the reduction to effects in
// scope. Negative reduction amounts raise the cost.
func ReduceCost(r costs.Reduction, scope Scope) CostRewrite {
	return func(cost costs.Cost, ctx RewriteContext) costs.Cost {
		if !scope.Applies(ctx) {
			return cost
		}
		return r.Apply(ctx.SourceID, cost)
	}
}

// BindParams returns a body rewrite that binds fixed parameter values into
// effects in scope, for example raising a power bonus.
func BindParams(values map[string]string, scope Scope) BodyRewrite {
	return func(inst Instance, ctx RewriteContext) Instance {
		if !scope.Applies(ctx) || inst.Params == nil {
			return inst
		}
		params, err := inst.Params.Bind(values)
		if err != nil {
			return inst
		}
		return inst.WithParams(params)
	}
}
