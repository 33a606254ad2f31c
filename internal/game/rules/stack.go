package rules

import (
	"errors"
	"sort"
)

// ErrStackEmpty is returned when popping an empty stack.
var ErrStackEmpty = errors.New("stack empty")

// StackEntry is a single object waiting on the stack.
type StackEntry[T any] struct {
	Item     T
	Priority int
	Seq      uint64 // insertion sequence, breaks ties inside a priority tier
}

// Stack holds entries bucketed by priority. The highest priority tier is on
// top; within a tier the most recently pushed entry is on top.
type Stack[T any] struct {
	items   []StackEntry[T] // ordered bottom to top
	nextSeq uint64
}

// NewStack creates an empty stack.
func NewStack[T any]() *Stack[T] {
	return &Stack[T]{
		items: make([]StackEntry[T], 0, 16),
	}
}

// Push adds an item at the top of its priority tier and returns the entry.
func (s *Stack[T]) Push(item T, priority int) StackEntry[T] {
	s.nextSeq++
	entry := StackEntry[T]{Item: item, Priority: priority, Seq: s.nextSeq}

	// first index whose entry sits above the new one
	idx := sort.Search(len(s.items), func(i int) bool {
		return entryAbove(s.items[i], entry)
	})
	s.items = append(s.items, StackEntry[T]{})
	copy(s.items[idx+1:], s.items[idx:])
	s.items[idx] = entry
	return entry
}

// Pop removes the top entry.
func (s *Stack[T]) Pop() (StackEntry[T], error) {
	if len(s.items) == 0 {
		return StackEntry[T]{}, ErrStackEmpty
	}
	idx := len(s.items) - 1
	entry := s.items[idx]
	s.items = s.items[:idx]
	return entry, nil
}

// List returns a copy of all entries in pop order (top first).
func (s *Stack[T]) List() []StackEntry[T] {
	out := make([]StackEntry[T], len(s.items))
	for i := range s.items {
		out[i] = s.items[len(s.items)-1-i]
	}
	return out
}

// Len returns the number of entries.
func (s *Stack[T]) Len() int {
	return len(s.items)
}

// IsEmpty returns whether the stack is empty.
func (s *Stack[T]) IsEmpty() bool {
	return len(s.items) == 0
}

// Clear drops every entry.
func (s *Stack[T]) Clear() {
	s.items = s.items[:0]
}

func entryAbove[T any](a, b StackEntry[T]) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Seq > b.Seq
}
