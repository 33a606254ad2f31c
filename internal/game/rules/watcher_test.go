package rules

import (
	"testing"
)

// playWatcher flips its condition on any played card.
type playWatcher struct {
	*BaseWatcher
}

func newPlayWatcher(key string, scope WatcherScope) *playWatcher {
	return &playWatcher{BaseWatcher: NewBaseWatcher(scope, key)}
}

func (w *playWatcher) Watch(event Event) {
	if event.Type == EventCardPlayed {
		w.SetCondition(true)
	}
}

func (w *playWatcher) Copy() Watcher {
	cp := newPlayWatcher(w.Key(), w.Scope())
	cp.SetCondition(w.ConditionMet())
	return cp
}

func TestWatcherRegistry(t *testing.T) {
	registry := NewWatcherRegistry()
	played := newPlayWatcher("Played", WatcherScopeGame)
	registry.AddWatcher(played)
	registry.AddWatcher(nil)

	if registry.GetWatcher("Played") == nil {
		t.Fatal("should retrieve Played watcher")
	}
	if got := len(registry.GetWatchersByScope(WatcherScopeGame)); got != 1 {
		t.Fatalf("expected 1 game watcher, got %d", got)
	}

	registry.NotifyWatchers(NewEvent(EventCardPlayed, "nami", "p1"))
	if !played.ConditionMet() {
		t.Fatal("watcher should have condition met")
	}

	registry.ResetWatchers()
	if played.ConditionMet() {
		t.Fatal("watcher should not have condition met after reset")
	}

	registry.RemoveWatcher("Played")
	if registry.GetWatcher("Played") != nil {
		t.Fatal("watcher should be removed")
	}
	if got := len(registry.GetAllWatchers()); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
}

func TestWatcherRegistryOrderAndReplace(t *testing.T) {
	registry := NewWatcherRegistry(
		newPlayWatcher("a", WatcherScopeGame),
		newPlayWatcher("b", WatcherScopePlayer),
		newPlayWatcher("c", WatcherScopeGame),
	)
	replacement := newPlayWatcher("a", WatcherScopeGame)
	registry.AddWatcher(replacement)

	all := registry.GetAllWatchers()
	if len(all) != 3 {
		t.Fatalf("expected 3 watchers, got %d", len(all))
	}
	for i, key := range []string{"a", "b", "c"} {
		if all[i].Key() != key {
			t.Fatalf("position %d: expected %s, got %s", i, key, all[i].Key())
		}
	}
	if registry.GetWatcher("a") != Watcher(replacement) {
		t.Fatal("adding an existing key should replace the watcher")
	}
	if got := len(registry.GetWatchersByScope(WatcherScopePlayer)); got != 1 {
		t.Fatalf("expected 1 player watcher, got %d", got)
	}
}

func TestWatcherCopyIsIndependent(t *testing.T) {
	w := newPlayWatcher("Played", WatcherScopeGame)
	w.Watch(NewEvent(EventCardPlayed, "nami", "p1"))
	cp := w.Copy()
	w.Reset()
	if !cp.ConditionMet() {
		t.Fatal("copy should keep its condition")
	}
	if WatcherScopeCard.String() != "CARD" {
		t.Fatalf("unexpected scope string %s", WatcherScopeCard.String())
	}
}
