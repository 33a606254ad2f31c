package targeting

import (
	"github.com/grandline/opcg-server-go/internal/game/state"
)

// Validator computes legal targets against a state reader and validates chosen
// targets against them.
type Validator struct {
	state state.Reader
	cache *Cache
}

// NewValidator creates a validator. A nil cache disables memoization.
func NewValidator(r state.Reader, cache *Cache) *Validator {
	return &Validator{state: r, cache: cache}
}

// CacheStats returns the cache hit and miss counts and the number of sets
// cached for the current state version. All are zero without a cache.
func (v *Validator) CacheStats() (hits, misses, size int) {
	if v.cache == nil {
		return 0, 0, 0
	}
	hits, misses = v.cache.Stats()
	return hits, misses, v.cache.Len()
}

// LegalTargets returns every card matching the filter, for each player the
// filter selects and each zone it names, in turn and zone order.
func (v *Validator) LegalTargets(f Filter, controller string) []Target {
	if v.cache == nil || !f.Cacheable() {
		return LegalTargets(v.state, f, controller)
	}
	version := v.state.Version()
	if targets, ok := v.cache.get(version, f, controller); ok {
		return targets
	}
	targets := LegalTargets(v.state, f, controller)
	v.cache.put(version, f, controller, targets)
	return append([]Target(nil), targets...)
}

// ValidateTargets reports whether every chosen target is in the legal set.
// An empty selection is always valid.
func (v *Validator) ValidateTargets(chosen []Target, f Filter, controller string) bool {
	if len(chosen) == 0 {
		return true
	}
	return containsAll(v.LegalTargets(f, controller), chosen)
}

// LegalTargets computes the legal target set without caching.
func LegalTargets(r state.Reader, f Filter, controller string) []Target {
	var targets []Target
	for _, playerID := range f.players(r, controller) {
		for _, zone := range f.zones() {
			for _, card := range state.CardsIn(r, playerID, zone) {
				if f.Matches(card) {
					targets = append(targets, CardTarget(card))
				}
			}
		}
	}
	return targets
}

// ValidateTargets validates chosen targets without caching.
func ValidateTargets(r state.Reader, chosen []Target, f Filter, controller string) bool {
	if len(chosen) == 0 {
		return true
	}
	return containsAll(LegalTargets(r, f, controller), chosen)
}

func containsAll(legal, chosen []Target) bool {
	set := make(map[Target]struct{}, len(legal))
	for _, t := range legal {
		set[t] = struct{}{}
	}
	for _, t := range chosen {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
