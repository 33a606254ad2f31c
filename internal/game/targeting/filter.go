package targeting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
)

// Side selects whose cards a filter looks at, relative to the controller.
type Side string

const (
	SideSelf     Side = "SELF"
	SideOpponent Side = "OPPONENT"
	SideAny      Side = "ANY"
)

// Range is an inclusive numeric range. Exact, when set, overrides Min and Max.
type Range struct {
	Min   *int
	Max   *int
	Exact *int
}

// Between returns the range [min, max].
func Between(min, max int) *Range {
	return &Range{Min: &min, Max: &max}
}

// AtLeast returns the range [n, +inf).
func AtLeast(n int) *Range {
	return &Range{Min: &n}
}

// AtMost returns the range (-inf, n].
func AtMost(n int) *Range {
	return &Range{Max: &n}
}

// Exactly returns the range [n, n].
func Exactly(n int) *Range {
	return &Range{Exact: &n}
}

// Contains reports whether v is in the range. A nil range contains everything.
func (r *Range) Contains(v int) bool {
	if r == nil {
		return true
	}
	if r.Exact != nil {
		return v == *r.Exact
	}
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r *Range) key() string {
	if r == nil {
		return "*"
	}
	bound := func(p *int) string {
		if p == nil {
			return ""
		}
		return fmt.Sprint(*p)
	}
	if r.Exact != nil {
		return "=" + bound(r.Exact)
	}
	return bound(r.Min) + ".." + bound(r.Max)
}

// DefaultZones are searched when a filter names no zones.
var DefaultZones = []rules.Zone{rules.ZoneLeader, rules.ZoneCharacter, rules.ZoneStage}

// Filter selects cards. Every set field must match; unset fields do not
// filter.
type Filter struct {
	Controller      Side
	Zones           []rules.Zone
	Category        state.Category
	Colors          []string
	Cost            *Range
	Power           *Range
	State           state.CardState
	Keywords        []string
	ExcludeKeywords []string
	Types           []string
	Attributes      []string
	// Predicate is an extra free-form check. Filters with a predicate are
	// never cached.
	Predicate func(state.Card) bool
}

// Matches reports whether the card passes every predicate of the filter.
// Zone and side are checked by the caller.
func (f Filter) Matches(card state.Card) bool {
	if f.Category != "" && card.Category != f.Category {
		return false
	}
	if len(f.Colors) > 0 && !anyMatch(f.Colors, card.HasColor) {
		return false
	}
	if !f.Cost.Contains(card.Cost) {
		return false
	}
	if !f.Power.Contains(card.EffectivePower()) {
		return false
	}
	if f.State != "" && card.State() != f.State {
		return false
	}
	for _, kw := range f.Keywords {
		if !card.HasKeyword(kw) {
			return false
		}
	}
	for _, kw := range f.ExcludeKeywords {
		if card.HasKeyword(kw) {
			return false
		}
	}
	if len(f.Types) > 0 && !overlaps(f.Types, card.Types) {
		return false
	}
	if len(f.Attributes) > 0 && !overlaps(f.Attributes, card.Attributes) {
		return false
	}
	if f.Predicate != nil && !f.Predicate(card) {
		return false
	}
	return true
}

// players returns the player IDs the filter looks at, in turn order.
func (f Filter) players(r state.Reader, controller string) []string {
	switch f.Controller {
	case SideSelf:
		return []string{controller}
	case SideOpponent:
		var out []string
		for _, id := range r.Players() {
			if id != controller {
				out = append(out, id)
			}
		}
		return out
	default:
		return r.Players()
	}
}

func (f Filter) zones() []rules.Zone {
	if len(f.Zones) == 0 {
		return DefaultZones
	}
	return f.Zones
}

// Cacheable reports whether results for the filter may be memoized.
func (f Filter) Cacheable() bool {
	return f.Predicate == nil
}

// Key renders the filter deterministically. Filters with equal keys select
// the same cards.
func (f Filter) Key() string {
	zones := make([]string, len(f.zones()))
	for i, z := range f.zones() {
		zones[i] = string(z)
	}
	return strings.Join([]string{
		string(f.Controller),
		strings.Join(zones, ","),
		string(f.Category),
		sortedKey(f.Colors),
		f.Cost.key(),
		f.Power.key(),
		string(f.State),
		sortedKey(f.Keywords),
		sortedKey(f.ExcludeKeywords),
		sortedKey(f.Types),
		sortedKey(f.Attributes),
	}, "|")
}

func sortedKey(values []string) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

func anyMatch(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if pred(v) {
			return true
		}
	}
	return false
}

func overlaps(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}
