// Package trace records a history of geometry operations for debugging and
// tests. Recorders are passed in explicitly; the default records nothing.
package trace

import (
	"fmt"
	"sync"
)

// Event is one recorded operation.
type Event struct {
	Op     string
	Face   int
	Detail string
}

func (e Event) String() string {
	if e.Detail == "" {
		return fmt.Sprintf("face %d: %s", e.Face, e.Op)
	}
	return fmt.Sprintf("face %d: %s (%s)", e.Face, e.Op, e.Detail)
}

// Recorder receives events. Implementations must be safe for concurrent use
// because faces are painted in parallel.
type Recorder interface {
	Record(Event)
}

// Nop discards events.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(Event) {}

// Memory keeps every event in order of arrival.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory returns an empty in-memory recorder.
func NewMemory() *Memory { return &Memory{} }

// Record implements Recorder.
func (m *Memory) Record(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Events returns a copy of the recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Count returns how many events have the given op.
func (m *Memory) Count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Op == op {
			n++
		}
	}
	return n
}

// Reset drops all events.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// Compile-time interface checks.
var (
	_ Recorder = Nop{}
	_ Recorder = (*Memory)(nil)
)
