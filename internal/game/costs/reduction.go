package costs

// Reduction lowers costs of one kind by a fixed amount. AppliesTo restricts it
// to some effect sources; nil applies to every cost.
type Reduction struct {
	ID        string
	Kind      Kind
	Amount    int
	AppliesTo func(sourceID string, cost Cost) bool
}

// Apply returns the reduced cost, or the cost unchanged if the reduction does
// not apply to the source.
func (r Reduction) Apply(sourceID string, cost Cost) Cost {
	if r.AppliesTo != nil && !r.AppliesTo(sourceID, cost) {
		return cost
	}
	if r.Amount < 0 {
		return cost.Increase(r.Kind, -r.Amount)
	}
	return cost.Reduce(r.Kind, r.Amount)
}
