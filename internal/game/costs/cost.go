// Package costs implements effect cost trees and the ledger that checks and
// pays them against the game state.
package costs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies a cost node.
type Kind string

const (
	KindRestResource  Kind = "REST_RESOURCE"
	KindDiscardCard   Kind = "DISCARD_CARD"
	KindRestCharacter Kind = "REST_CHARACTER"
	KindComposite     Kind = "COMPOSITE"
)

// Cost is a node of a cost tree. Leaf kinds use Amount; Composite uses Parts
// and is paid all-or-nothing.
type Cost struct {
	Kind   Kind
	Amount int
	Parts  []Cost
}

// RestResource rests n active DON!! cards in the cost area.
func RestResource(n int) Cost {
	return Cost{Kind: KindRestResource, Amount: n}
}

// DiscardCard trashes n cards from the front of the hand.
func DiscardCard(n int) Cost {
	return Cost{Kind: KindDiscardCard, Amount: n}
}

// RestCharacter rests n active characters.
func RestCharacter(n int) Cost {
	return Cost{Kind: KindRestCharacter, Amount: n}
}

// Composite combines costs that are paid together.
func Composite(parts ...Cost) Cost {
	return Cost{Kind: KindComposite, Parts: parts}
}

// IsZero reports whether paying the cost has no effect.
func (c Cost) IsZero() bool {
	if c.Kind == KindComposite {
		for _, p := range c.Parts {
			if !p.IsZero() {
				return false
			}
		}
		return true
	}
	return c.Amount <= 0
}

// Total returns the summed amount of every node of the given kind.
func (c Cost) Total(kind Kind) int {
	if c.Kind == KindComposite {
		total := 0
		for _, p := range c.Parts {
			total += p.Total(kind)
		}
		return total
	}
	if c.Kind == kind && c.Amount > 0 {
		return c.Amount
	}
	return 0
}

// Reduce returns a copy of the cost with up to n removed from nodes of the
// given kind, first node first. Amounts never go below zero.
func (c Cost) Reduce(kind Kind, n int) Cost {
	out, _ := c.reduce(kind, n)
	return out
}

func (c Cost) reduce(kind Kind, n int) (Cost, int) {
	if n <= 0 {
		return c.clone(), n
	}
	if c.Kind == KindComposite {
		parts := make([]Cost, len(c.Parts))
		for i, p := range c.Parts {
			parts[i], n = p.reduce(kind, n)
		}
		return Cost{Kind: KindComposite, Parts: parts}, n
	}
	if c.Kind != kind || c.Amount <= 0 {
		return c, n
	}
	cut := n
	if cut > c.Amount {
		cut = c.Amount
	}
	return Cost{Kind: c.Kind, Amount: c.Amount - cut}, n - cut
}

// Increase returns a copy of the cost with n added to the first node of the
// given kind, or with a new node of that kind appended.
func (c Cost) Increase(kind Kind, n int) Cost {
	if n <= 0 {
		return c.clone()
	}
	if c.Kind == kind {
		return Cost{Kind: kind, Amount: c.Amount + n}
	}
	if c.Kind != KindComposite {
		return Composite(c, Cost{Kind: kind, Amount: n})
	}
	out := c.clone()
	for i, p := range out.Parts {
		if p.Kind == kind {
			out.Parts[i].Amount += n
			return out
		}
	}
	out.Parts = append(out.Parts, Cost{Kind: kind, Amount: n})
	return out
}

func (c Cost) clone() Cost {
	if c.Parts == nil {
		return c
	}
	parts := make([]Cost, len(c.Parts))
	for i, p := range c.Parts {
		parts[i] = p.clone()
	}
	return Cost{Kind: c.Kind, Amount: c.Amount, Parts: parts}
}

var symbols = map[Kind]string{
	KindRestResource:  "DON",
	KindDiscardCard:   "DISCARD",
	KindRestCharacter: "REST",
}

func (c Cost) String() string {
	if c.Kind == KindComposite {
		var b strings.Builder
		for _, p := range c.Parts {
			b.WriteString(p.String())
		}
		return b.String()
	}
	if c.Amount <= 0 {
		return ""
	}
	return fmt.Sprintf("{%s:%d}", symbols[c.Kind], c.Amount)
}

var costPattern = regexp.MustCompile(`\{([^}]+)\}`)

// ParseCost parses the brace notation used in card data, for example
// "{DON:2}{DISCARD:1}". A symbol without a count means one. A single symbol
// yields a leaf cost; several yield a Composite in written order.
func ParseCost(text string) (Cost, error) {
	if strings.TrimSpace(text) == "" {
		return Composite(), nil
	}
	matches := costPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return Cost{}, fmt.Errorf("invalid cost %q", text)
	}

	var parts []Cost
	for _, match := range matches {
		symbol, count, found := strings.Cut(strings.ToUpper(strings.TrimSpace(match[1])), ":")
		amount := 1
		if found {
			n, err := strconv.Atoi(strings.TrimSpace(count))
			if err != nil || n < 0 {
				return Cost{}, fmt.Errorf("invalid cost amount in {%s}", match[1])
			}
			amount = n
		}
		kind, ok := kindBySymbol(strings.TrimSpace(symbol))
		if !ok {
			return Cost{}, fmt.Errorf("unknown cost symbol: {%s}", match[1])
		}
		parts = append(parts, Cost{Kind: kind, Amount: amount})
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return Composite(parts...), nil
}

func kindBySymbol(symbol string) (Kind, bool) {
	for kind, s := range symbols {
		if s == symbol {
			return kind, true
		}
	}
	return "", false
}

// ParseKind accepts a leaf kind name (REST_RESOURCE) or its symbol (DON),
// case-insensitively.
func ParseKind(name string) (Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if kind, ok := kindBySymbol(upper); ok {
		return kind, nil
	}
	if _, ok := symbols[Kind(upper)]; ok {
		return Kind(upper), nil
	}
	return "", fmt.Errorf("unknown cost kind %q", name)
}
