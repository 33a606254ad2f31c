package targeting

import (
	"testing"

	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCache(t *testing.T) {
	s := newBoard(t)
	cache := NewCache()
	v := NewValidator(s, cache)
	f := Filter{Controller: SideOpponent, Category: state.CategoryCharacter}

	first := v.LegalTargets(f, "p1")
	second := v.LegalTargets(f, "p1")
	assert.Equal(t, first, second)
	hits, misses := cache.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	// controller is part of the key
	assert.Equal(t, []string{"p1-zoro", "p1-nami", "p1-sanji"}, ids(v.LegalTargets(f, "p2")))
	assert.Equal(t, 2, cache.Len())

	hits, misses, size := v.CacheStats()
	assert.Equal(t, []int{1, 2, 2}, []int{hits, misses, size})
	hits, misses, size = NewValidator(s, nil).CacheStats()
	assert.Equal(t, []int{0, 0, 0}, []int{hits, misses, size})
}

func TestValidatorCacheInvalidatesOnMutation(t *testing.T) {
	s := newBoard(t)
	v := NewValidator(s, NewCache())
	f := Filter{Controller: SideOpponent, Category: state.CategoryCharacter}

	require.Len(t, v.LegalTargets(f, "p1"), 2)
	require.NoError(t, s.MoveCard("p2-king", rules.ZoneTrash))
	assert.Equal(t, []string{"p2-kaido"}, ids(v.LegalTargets(f, "p1")))
}

func TestValidatorCacheInvalidatesOnRestore(t *testing.T) {
	s := newBoard(t)
	v := NewValidator(s, NewCache())
	f := Filter{Controller: SideOpponent, Category: state.CategoryCharacter}

	snap := s.Snapshot()
	require.NoError(t, s.MoveCard("p2-king", rules.ZoneTrash))
	require.Len(t, v.LegalTargets(f, "p1"), 1)

	require.NoError(t, s.Restore(snap))
	assert.Len(t, v.LegalTargets(f, "p1"), 2)
}

func TestValidatorCacheSkipsPredicates(t *testing.T) {
	s := newBoard(t)
	cache := NewCache()
	v := NewValidator(s, cache)
	calls := 0
	f := Filter{Controller: SideAny, Predicate: func(state.Card) bool { calls++; return true }}

	v.LegalTargets(f, "p1")
	v.LegalTargets(f, "p1")
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 14, calls)
}

func TestValidatorResultsAreCopies(t *testing.T) {
	s := newBoard(t)
	v := NewValidator(s, NewCache())
	f := Filter{Controller: SideSelf}

	got := v.LegalTargets(f, "p1")
	got[0].CardID = "tampered"
	assert.NotEqual(t, "tampered", v.LegalTargets(f, "p1")[0].CardID)
}

func TestCachedValidationAgreesWithUncached(t *testing.T) {
	s := newBoard(t)
	v := NewValidator(s, NewCache())
	f := Filter{Controller: SideAny, Power: Between(4000, 6000)}

	for _, id := range []string{"p1-zoro", "p2-kaido", "p1-hand"} {
		card, _ := s.GetCard(id)
		chosen := []Target{CardTarget(card)}
		assert.Equal(t, ValidateTargets(s, chosen, f, "p1"), v.ValidateTargets(chosen, f, "p1"), id)
	}
}
