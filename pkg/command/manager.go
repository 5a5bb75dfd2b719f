package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/facepaint/pkg/geometry"
	"github.com/chazu/facepaint/pkg/logging"
)

// DefaultSnapshotFrequency is how many commands may run between snapshots.
const DefaultSnapshotFrequency = 10

var (
	ErrNothingToUndo = errors.New("command: nothing to undo")
	ErrNothingToRedo = errors.New("command: nothing to redo")
)

// Target is the state a Manager edits.
type Target[S any] interface {
	SaveState() S
	LoadState(S) error
	Apply(ctx context.Context, c Command) error
}

// GeometryTarget adapts a geometry model to Target.
type GeometryTarget struct {
	*geometry.Geometry
}

var _ Target[geometry.State] = GeometryTarget{}

// Apply implements Target.
func (t GeometryTarget) Apply(ctx context.Context, c Command) error {
	return c.Apply(ctx, t.Geometry)
}

type snapshot[S any] struct {
	state S
	next  int // index of the first command not reflected in state
}

// Manager runs commands against a target and keeps an undo history.
//
// Undo never runs an inverse. It restores the latest snapshot taken at or
// before the target position and replays the commands after it, so every
// command only needs to be deterministic.
type Manager[S any] struct {
	target    Target[S]
	commands  []Command
	snapshots []snapshot[S]
	// posFromEnd counts undone commands still available for redo.
	posFromEnd int
	frequency  int
	since      int
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

type managerConfig struct{ frequency int }

// WithSnapshotFrequency overrides DefaultSnapshotFrequency.
func WithSnapshotFrequency(n int) ManagerOption {
	return func(c *managerConfig) {
		if n > 0 {
			c.frequency = n
		}
	}
}

// NewManager returns an empty history for target.
func NewManager[S any](target Target[S], opts ...ManagerOption) *Manager[S] {
	cfg := managerConfig{frequency: DefaultSnapshotFrequency}
	for _, o := range opts {
		o(&cfg)
	}
	return &Manager[S]{target: target, frequency: cfg.frequency}
}

// Len is the number of commands in the history, including undone ones.
func (m *Manager[S]) Len() int { return len(m.commands) }

// Position is the number of commands currently applied.
func (m *Manager[S]) Position() int { return len(m.commands) - m.posFromEnd }

// Snapshots is the number of stored snapshots.
func (m *Manager[S]) Snapshots() int { return len(m.snapshots) }

func (m *Manager[S]) CanUndo() bool { return m.Position() > 0 }

func (m *Manager[S]) CanRedo() bool { return m.posFromEnd > 0 }

// Last returns the most recently applied command.
func (m *Manager[S]) Last() (Command, bool) {
	if !m.CanUndo() {
		return Command{}, false
	}
	return m.commands[m.Position()-1], true
}

// Next returns the command Redo would run.
func (m *Manager[S]) Next() (Command, bool) {
	if !m.CanRedo() {
		return Command{}, false
	}
	return m.commands[m.Position()], true
}

// History returns the applied commands, oldest first.
func (m *Manager[S]) History() []Command {
	return append([]Command(nil), m.commands[:m.Position()]...)
}

// Execute runs c and records it. Any undone commands are discarded. With
// join set, c is merged into the previous command when TryJoin allows it,
// so both are undone together.
//
// When c fails the target is restored to the state before it and c is not
// recorded.
func (m *Manager[S]) Execute(ctx context.Context, c Command, join bool) error {
	m.clearFuture()

	if join && m.CanUndo() {
		last := m.commands[len(m.commands)-1]
		if merged, ok := last.TryJoin(c); ok {
			if err := m.target.Apply(ctx, c); err != nil {
				return m.recover(ctx, err)
			}
			m.commands[len(m.commands)-1] = merged
			logging.Logger().Debug("joined command", "kind", c.Kind, "into", merged.ID)
			return nil
		}
	}

	if m.shouldSnapshot() {
		m.snapshots = append(m.snapshots, snapshot[S]{state: m.target.SaveState(), next: len(m.commands)})
		m.since = 0
	}
	if err := m.target.Apply(ctx, c); err != nil {
		return m.recover(ctx, err)
	}
	m.commands = append(m.commands, c)
	m.since++
	logging.Logger().Debug("executed command", "kind", c.Kind, "id", c.ID, "history", len(m.commands))
	return nil
}

func (m *Manager[S]) shouldSnapshot() bool {
	if len(m.snapshots) == 0 || m.since >= m.frequency {
		return true
	}
	if len(m.commands) > 0 && m.since != 0 {
		return m.commands[len(m.commands)-1].Slow()
	}
	return false
}

// clearFuture drops undone commands and the snapshots that only they
// reach.
func (m *Manager[S]) clearFuture() {
	if m.posFromEnd == 0 {
		return
	}
	pos := m.Position()
	m.commands = m.commands[:pos]
	m.posFromEnd = 0
	keep := 0
	for keep < len(m.snapshots) && m.snapshots[keep].next <= pos {
		keep++
	}
	m.snapshots = m.snapshots[:keep]
	if keep > 0 {
		m.since = pos - m.snapshots[keep-1].next
	} else {
		m.since = 0
	}
}

// Undo reverts the last applied command.
func (m *Manager[S]) Undo(ctx context.Context) error {
	if !m.CanUndo() {
		return ErrNothingToUndo
	}
	m.posFromEnd++
	if err := m.restore(ctx, m.Position()); err != nil {
		m.posFromEnd--
		return err
	}
	return nil
}

// Redo re-runs the next undone command.
func (m *Manager[S]) Redo(ctx context.Context) error {
	if !m.CanRedo() {
		return ErrNothingToRedo
	}
	c := m.commands[m.Position()]
	if err := m.target.Apply(ctx, c); err != nil {
		return m.recover(ctx, err)
	}
	m.posFromEnd--
	return nil
}

// restore rebuilds the target as it was after the first pos commands.
func (m *Manager[S]) restore(ctx context.Context, pos int) error {
	i := len(m.snapshots) - 1
	for i >= 0 && m.snapshots[i].next > pos {
		i--
	}
	if i < 0 {
		return fmt.Errorf("command: no snapshot at or before position %d", pos)
	}
	s := m.snapshots[i]
	if err := m.target.LoadState(s.state); err != nil {
		return fmt.Errorf("command: load snapshot: %w", err)
	}
	for _, c := range m.commands[s.next:pos] {
		if err := m.target.Apply(ctx, c); err != nil {
			return fmt.Errorf("command: replay %s: %w", c.Kind, err)
		}
	}
	return nil
}

// recover puts the target back to the current position after a failed
// command and returns cause, joined with any restore failure.
func (m *Manager[S]) recover(ctx context.Context, cause error) error {
	logging.Logger().Warn("command failed, restoring state", "err", cause)
	if err := m.restore(context.WithoutCancel(ctx), m.Position()); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
