package trace

import (
	"sync"
	"testing"
)

func TestMemoryRecordsInOrder(t *testing.T) {
	m := NewMemory()
	m.Record(Event{Op: "paint", Face: 1})
	m.Record(Event{Op: "reconcile", Face: 1, Detail: "edge 2"})
	m.Record(Event{Op: "paint", Face: 4})

	events := m.Events()
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	if events[1].String() != "face 1: reconcile (edge 2)" {
		t.Errorf("events[1] = %q", events[1].String())
	}
	if got := m.Count("paint"); got != 2 {
		t.Errorf("Count(paint) = %d, want 2", got)
	}
	m.Reset()
	if len(m.Events()) != 0 {
		t.Error("Reset did not clear events")
	}
}

func TestMemoryConcurrent(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(face int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(Event{Op: "paint", Face: face})
			}
		}(i)
	}
	wg.Wait()
	if got := m.Count("paint"); got != 800 {
		t.Errorf("Count = %d, want 800", got)
	}
}
