package command

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/chazu/facepaint/pkg/geometry"
	"github.com/chazu/facepaint/pkg/kernel"
)

// ---------------------------------------------------------------------------
// Fake target: the state is the sequence of colors painted so far.
// ---------------------------------------------------------------------------

var errBadColor = errors.New("bad color")

type recorder struct {
	painted []kernel.ColorID
	applies int
	loads   int
}

func (r *recorder) SaveState() []kernel.ColorID { return slices.Clone(r.painted) }

func (r *recorder) LoadState(s []kernel.ColorID) error {
	r.loads++
	r.painted = slices.Clone(s)
	return nil
}

func (r *recorder) Apply(_ context.Context, c Command) error {
	r.applies++
	n := max(1, len(c.Strokes))
	for i := 0; i < n; i++ {
		r.painted = append(r.painted, c.Color)
		if c.Color == 99 {
			return errBadColor
		}
	}
	return nil
}

func faces(c kernel.ColorID) Command { return PaintFaces([]int{0}, c) }

func TestExecuteUndoRedo(t *testing.T) {
	ctx := context.Background()
	r := &recorder{}
	m := NewManager[[]kernel.ColorID](r)

	for c := kernel.ColorID(1); c <= 3; c++ {
		if err := m.Execute(ctx, faces(c), false); err != nil {
			t.Fatal(err)
		}
	}
	if !slices.Equal(r.painted, []kernel.ColorID{1, 2, 3}) {
		t.Fatalf("painted = %v", r.painted)
	}

	if err := m.Undo(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Undo(ctx); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(r.painted, []kernel.ColorID{1}) {
		t.Errorf("after two undos painted = %v", r.painted)
	}
	if !m.CanRedo() || m.Position() != 1 {
		t.Errorf("position = %d, CanRedo = %v", m.Position(), m.CanRedo())
	}
	next, ok := m.Next()
	if !ok || next.Color != 2 {
		t.Errorf("Next = %v, %v", next.Color, ok)
	}

	if err := m.Redo(ctx); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(r.painted, []kernel.ColorID{1, 2}) {
		t.Errorf("after redo painted = %v", r.painted)
	}
	last, _ := m.Last()
	if last.Color != 2 {
		t.Errorf("Last color = %d", last.Color)
	}
}

func TestUndoRedoEmpty(t *testing.T) {
	m := NewManager[[]kernel.ColorID](&recorder{})
	if err := m.Undo(context.Background()); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo err = %v", err)
	}
	if err := m.Redo(context.Background()); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo err = %v", err)
	}
	if _, ok := m.Last(); ok {
		t.Error("Last on empty history")
	}
}

func TestExecuteClearsFuture(t *testing.T) {
	ctx := context.Background()
	r := &recorder{}
	m := NewManager[[]kernel.ColorID](r)
	for c := kernel.ColorID(1); c <= 3; c++ {
		_ = m.Execute(ctx, faces(c), false)
	}
	_ = m.Undo(ctx)
	_ = m.Undo(ctx)
	if err := m.Execute(ctx, faces(7), false); err != nil {
		t.Fatal(err)
	}
	if m.CanRedo() || m.Len() != 2 {
		t.Errorf("Len = %d, CanRedo = %v", m.Len(), m.CanRedo())
	}
	if !slices.Equal(r.painted, []kernel.ColorID{1, 7}) {
		t.Errorf("painted = %v", r.painted)
	}
}

func TestSnapshotFrequency(t *testing.T) {
	ctx := context.Background()
	r := &recorder{}
	m := NewManager[[]kernel.ColorID](r, WithSnapshotFrequency(3))
	for i := 0; i < 7; i++ {
		_ = m.Execute(ctx, faces(1), false)
	}
	// before commands 0, 3 and 6
	if m.Snapshots() != 3 {
		t.Errorf("Snapshots = %d, want 3", m.Snapshots())
	}

	// Undoing to position 6 loads the snapshot taken before command 6 and
	// replays nothing.
	r.applies = 0
	_ = m.Undo(ctx)
	if r.applies != 0 || len(r.painted) != 6 {
		t.Errorf("applies = %d, painted %d", r.applies, len(r.painted))
	}
	// Position 5 restarts from the snapshot at 3 and replays two commands.
	_ = m.Undo(ctx)
	if r.applies != 2 || len(r.painted) != 5 {
		t.Errorf("applies = %d, painted %d", r.applies, len(r.painted))
	}
}

func TestSlowCommandForcesSnapshot(t *testing.T) {
	ctx := context.Background()
	m := NewManager[[]kernel.ColorID](&recorder{})
	_ = m.Execute(ctx, PaintSphere([3]float64{}, 1, 1), false)
	_ = m.Execute(ctx, faces(2), false)
	if m.Snapshots() != 2 {
		t.Errorf("Snapshots = %d, want 2", m.Snapshots())
	}
	_ = m.Execute(ctx, faces(3), false)
	if m.Snapshots() != 2 {
		t.Errorf("fast command should not snapshot, got %d", m.Snapshots())
	}
}

func TestJoin(t *testing.T) {
	ctx := context.Background()
	r := &recorder{}
	m := NewManager[[]kernel.ColorID](r)
	_ = m.Execute(ctx, PaintSphere([3]float64{0, 0, 0}, 1, 2), false)
	if err := m.Execute(ctx, PaintSphere([3]float64{1, 0, 0}, 1, 2), true); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want joined history of 1", m.Len())
	}
	last, _ := m.Last()
	if len(last.Strokes) != 2 {
		t.Errorf("joined strokes = %d", len(last.Strokes))
	}

	// Different radius does not join.
	_ = m.Execute(ctx, PaintSphere([3]float64{2, 0, 0}, 3, 2), true)
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}

	_ = m.Undo(ctx)
	_ = m.Undo(ctx)
	if len(r.painted) != 0 {
		t.Errorf("painted after undo = %v", r.painted)
	}
}

func TestFailedCommandRestores(t *testing.T) {
	ctx := context.Background()
	r := &recorder{}
	m := NewManager[[]kernel.ColorID](r)
	_ = m.Execute(ctx, faces(1), false)

	// The command fails after it has already changed the target.
	bad := PaintSphere([3]float64{}, 1, 99)
	err := m.Execute(ctx, bad, false)
	if !errors.Is(err, errBadColor) {
		t.Fatalf("err = %v", err)
	}
	if m.Len() != 1 || !slices.Equal(r.painted, []kernel.ColorID{1}) {
		t.Errorf("Len = %d, painted = %v", m.Len(), r.painted)
	}
}

func TestTryJoin(t *testing.T) {
	tests := []struct {
		name string
		a, b Command
		want bool
	}{
		{"strokes same color", PaintSphere([3]float64{}, 1, 1), PaintSphere([3]float64{1}, 1, 1), true},
		{"strokes other color", PaintSphere([3]float64{}, 1, 1), PaintSphere([3]float64{}, 1, 2), false},
		{"faces same color", PaintFaces([]int{0}, 1), PaintFaces([]int{1}, 1), true},
		{"different kinds", PaintFaces([]int{0}, 1), PaintSphere([3]float64{}, 1, 1), false},
		{"bucket never", Bucket(0, geometry.BucketConnected, 0, 1), Bucket(0, geometry.BucketConnected, 0, 1), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			merged, ok := tc.a.TryJoin(tc.b)
			if ok != tc.want {
				t.Fatalf("ok = %v, want %v", ok, tc.want)
			}
			if ok && merged.ID != tc.a.ID {
				t.Error("merged command should keep the first ID")
			}
		})
	}

	a := PaintFaces([]int{0}, 1)
	_, _ = a.TryJoin(PaintFaces([]int{1}, 1))
	if len(a.Faces) != 1 {
		t.Error("TryJoin mutated the receiver")
	}
}

func TestKindString(t *testing.T) {
	if KindBucket.String() != "bucket" {
		t.Errorf("got %q", KindBucket.String())
	}
	if Kind(42).String() != "Kind(42)" {
		t.Errorf("got %q", Kind(42).String())
	}
	if PaintFaces([]int{1, 2}, 3).Description() != "paint 2 faces with color 3" {
		t.Errorf("got %q", PaintFaces([]int{1, 2}, 3).Description())
	}
}

// ---------------------------------------------------------------------------
// Geometry target
// ---------------------------------------------------------------------------

func square() []kernel.Triangle {
	return []kernel.Triangle{
		kernel.NewTriangle(kernel.Pt3(0, 0, 0), kernel.Pt3(1, 0, 0), kernel.Pt3(0, 1, 0), 0),
		kernel.NewTriangle(kernel.Pt3(1, 0, 0), kernel.Pt3(1, 1, 0), kernel.Pt3(0, 1, 0), 0),
	}
}

func TestGeometryUndo(t *testing.T) {
	ctx := context.Background()
	g, err := geometry.New(square())
	if err != nil {
		t.Fatal(err)
	}
	m := NewManager[geometry.State](GeometryTarget{g})

	if err := m.Execute(ctx, PaintSphere([3]float64{0.55, 0.5, 0.1}, 0.25, 1), false); err != nil {
		t.Fatal(err)
	}
	if got := g.PaintedFaces(); len(got) != 2 {
		t.Fatalf("PaintedFaces = %v", got)
	}
	if err := m.Execute(ctx, PaintFaces([]int{1}, 2), false); err != nil {
		t.Fatal(err)
	}

	if err := m.Undo(ctx); err != nil {
		t.Fatal(err)
	}
	colors, _ := g.FaceColors(1)
	if !slices.Contains(colors, 1) {
		t.Errorf("face 1 colors after undo = %v", colors)
	}

	if err := m.Undo(ctx); err != nil {
		t.Fatal(err)
	}
	if got := g.PaintedFaces(); len(got) != 0 {
		t.Errorf("PaintedFaces after full undo = %v", got)
	}

	if err := m.Redo(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Redo(ctx); err != nil {
		t.Fatal(err)
	}
	colors, _ = g.FaceColors(1)
	if !slices.Equal(colors, []kernel.ColorID{2}) {
		t.Errorf("face 1 colors after redo = %v", colors)
	}
}

func TestGeometryInvalidCommand(t *testing.T) {
	g, err := geometry.New(square())
	if err != nil {
		t.Fatal(err)
	}
	m := NewManager[geometry.State](GeometryTarget{g})
	err = m.Execute(context.Background(), PaintFaces([]int{5}, 1), false)
	if !errors.Is(err, geometry.ErrInvalidFace) {
		t.Errorf("err = %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d", m.Len())
	}
}
