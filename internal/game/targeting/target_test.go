package targeting

import (
	"math/rand"
	"testing"

	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBoard(t *testing.T) *state.MemoryStore {
	t.Helper()
	s := state.NewMemoryStore(nil, nil, "p1", "p2")
	cards := []struct {
		card state.Card
		zone rules.Zone
	}{
		{state.Card{ID: "p1-leader", Owner: "p1", Category: state.CategoryLeader, Colors: []string{"Red"}, Power: 5000}, rules.ZoneLeader},
		{state.Card{ID: "p1-zoro", Owner: "p1", Category: state.CategoryCharacter, Colors: []string{"Red"}, Cost: 3, Power: 5000, Keywords: []string{"Rush"}, Types: []string{"Straw Hat Crew"}, Attributes: []string{"Slash"}}, rules.ZoneCharacter},
		{state.Card{ID: "p1-nami", Owner: "p1", Category: state.CategoryCharacter, Colors: []string{"Red"}, Cost: 1, Power: 2000, Types: []string{"Straw Hat Crew"}}, rules.ZoneCharacter},
		{state.Card{ID: "p1-sanji", Owner: "p1", Category: state.CategoryCharacter, Colors: []string{"Green"}, Cost: 4, Power: 6000, Keywords: []string{"Blocker"}}, rules.ZoneCharacter},
		{state.Card{ID: "p1-hand", Owner: "p1", Category: state.CategoryCharacter, Cost: 2, Power: 4000}, rules.ZoneHand},
		{state.Card{ID: "p2-kaido", Owner: "p2", Category: state.CategoryCharacter, Colors: []string{"Purple"}, Cost: 10, Power: 12000}, rules.ZoneCharacter},
		{state.Card{ID: "p2-king", Owner: "p2", Category: state.CategoryCharacter, Colors: []string{"Purple"}, Cost: 5, Power: 4000, Keywords: []string{"Blocker"}}, rules.ZoneCharacter},
		{state.Card{ID: "p2-stage", Owner: "p2", Category: state.CategoryStage, Cost: 1}, rules.ZoneStage},
	}
	for _, c := range cards {
		require.NoError(t, s.AddCard(c.card, c.zone))
	}
	return s
}

func ids(targets []Target) []string {
	return CardIDs(targets)
}

func TestLegalTargets_Sides(t *testing.T) {
	s := newBoard(t)

	self := LegalTargets(s, Filter{Controller: SideSelf, Category: state.CategoryCharacter}, "p1")
	assert.Equal(t, []string{"p1-zoro", "p1-nami", "p1-sanji"}, ids(self))

	opp := LegalTargets(s, Filter{Controller: SideOpponent, Category: state.CategoryCharacter}, "p1")
	assert.Equal(t, []string{"p2-kaido", "p2-king"}, ids(opp))

	all := LegalTargets(s, Filter{Controller: SideAny}, "p1")
	assert.Len(t, all, 7, "default zones exclude the hand")

	hand := LegalTargets(s, Filter{Controller: SideSelf, Zones: []rules.Zone{rules.ZoneHand}}, "p1")
	assert.Equal(t, []string{"p1-hand"}, ids(hand))
}

func TestLegalTargets_AndSemantics(t *testing.T) {
	s := newBoard(t)
	f := Filter{
		Controller: SideAny,
		Category:   state.CategoryCharacter,
		Power:      Between(4000, 6000),
	}

	got := LegalTargets(s, f, "p1")
	assert.ElementsMatch(t, []string{"p1-zoro", "p1-sanji", "p2-king"}, ids(got))
	for _, target := range got {
		card, _ := s.GetCard(target.CardID)
		assert.Equal(t, state.CategoryCharacter, card.Category)
		assert.GreaterOrEqual(t, card.EffectivePower(), 4000)
		assert.LessOrEqual(t, card.EffectivePower(), 6000)
	}
}

func TestFilterPredicates(t *testing.T) {
	s := newBoard(t)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"color", Filter{Colors: []string{"green", "purple"}, Category: state.CategoryCharacter}, []string{"p1-sanji", "p2-kaido", "p2-king"}},
		{"exact cost", Filter{Cost: Exactly(3)}, []string{"p1-zoro"}},
		{"cost at most", Filter{Cost: AtMost(1)}, []string{"p1-leader", "p1-nami", "p2-stage"}},
		{"exact overrides range", Filter{Cost: &Range{Min: intPtr(0), Max: intPtr(1), Exact: intPtr(5)}}, []string{"p2-king"}},
		{"keywords", Filter{Keywords: []string{"blocker"}}, []string{"p1-sanji", "p2-king"}},
		{"exclude keywords", Filter{Category: state.CategoryCharacter, ExcludeKeywords: []string{"Blocker", "Rush"}}, []string{"p1-nami", "p2-kaido"}},
		{"types overlap", Filter{Types: []string{"Straw Hat Crew", "Animal Kingdom Pirates"}}, []string{"p1-zoro", "p1-nami"}},
		{"attributes", Filter{Attributes: []string{"slash"}}, []string{"p1-zoro"}},
		{"predicate", Filter{Predicate: func(c state.Card) bool { return c.Owner == "p2" }}, []string{"p2-kaido", "p2-king", "p2-stage"}},
		{"power at least", Filter{Power: AtLeast(6000)}, []string{"p1-sanji", "p2-kaido"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Controller = SideAny
			assert.ElementsMatch(t, tt.want, ids(LegalTargets(s, tt.filter, "p1")))
		})
	}
}

func TestFilterState(t *testing.T) {
	s := newBoard(t)
	require.NoError(t, s.UpdateCard("p2-king", state.Rest()))

	rested := LegalTargets(s, Filter{Controller: SideOpponent, State: state.StateRested}, "p1")
	assert.Equal(t, []string{"p2-king"}, ids(rested))
}

func TestValidateTargets(t *testing.T) {
	s := newBoard(t)
	f := Filter{Controller: SideOpponent, Category: state.CategoryCharacter, Cost: AtMost(5)}
	king, _ := s.GetCard("p2-king")
	kaido, _ := s.GetCard("p2-kaido")

	assert.True(t, ValidateTargets(s, nil, f, "p1"), "empty selection is valid")
	assert.True(t, ValidateTargets(s, []Target{CardTarget(king)}, f, "p1"))
	assert.False(t, ValidateTargets(s, []Target{CardTarget(kaido)}, f, "p1"))
	assert.False(t, ValidateTargets(s, []Target{CardTarget(king), CardTarget(kaido)}, f, "p1"))

	stale := CardTarget(king)
	stale.Zone = rules.ZoneHand
	assert.False(t, ValidateTargets(s, []Target{stale}, f, "p1"), "identity includes the zone")
	assert.False(t, ValidateTargets(s, []Target{PlayerTarget("p2")}, f, "p1"))
}

func TestValidateMatchesLegal(t *testing.T) {
	s := newBoard(t)
	rng := rand.New(rand.NewSource(7))
	players := []string{"p1", "p2"}
	sides := []Side{SideSelf, SideOpponent, SideAny}
	allZones := append([]rules.Zone{rules.ZoneHand}, DefaultZones...)

	var cards []state.Card
	for _, p := range players {
		for _, z := range allZones {
			cards = append(cards, state.CardsIn(s, p, z)...)
		}
	}

	for i := 0; i < 200; i++ {
		f := Filter{
			Controller: sides[rng.Intn(len(sides))],
			Zones:      []rules.Zone{allZones[rng.Intn(len(allZones))], allZones[rng.Intn(len(allZones))]},
			Power:      Between(rng.Intn(7)*1000, 4000+rng.Intn(9)*1000),
		}
		if rng.Intn(2) == 0 {
			f.Category = state.CategoryCharacter
		}
		ctrl := players[rng.Intn(2)]
		card := cards[rng.Intn(len(cards))]

		legal := LegalTargets(s, f, ctrl)
		assert.Equal(t, containsTarget(legal, CardTarget(card)), ValidateTargets(s, []Target{CardTarget(card)}, f, ctrl))
	}
}

func TestRequirementValidate(t *testing.T) {
	req := Requirement{Min: 1, Max: 2}
	a := Target{Kind: KindCard, CardID: "a"}
	b := Target{Kind: KindCard, CardID: "b"}

	assert.Error(t, req.Validate(nil))
	assert.NoError(t, req.Validate([]Target{a}))
	assert.NoError(t, req.Validate([]Target{a, b}))
	assert.Error(t, req.Validate([]Target{a, b, {Kind: KindCard, CardID: "c"}}))
	assert.Error(t, req.Validate([]Target{a, a}))
}

func TestFormatTargets(t *testing.T) {
	got := FormatTargets([]Target{
		{Kind: KindCard, CardID: "c1", PlayerID: "p1", Zone: rules.ZoneCharacter},
		PlayerTarget("p2"),
	})
	assert.Equal(t, "c1@p1/CHARACTER,player:p2", got)
}

func TestResolveCards(t *testing.T) {
	s := newBoard(t)
	targets, err := ResolveCards(s, []string{"p1-zoro"})
	require.NoError(t, err)
	assert.Equal(t, []Target{{Kind: KindCard, CardID: "p1-zoro", PlayerID: "p1", Zone: rules.ZoneCharacter}}, targets)

	_, err = ResolveCards(s, []string{"ghost"})
	assert.ErrorIs(t, err, state.ErrCardNotFound)
}

func containsTarget(list []Target, t Target) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

func intPtr(n int) *int { return &n }
