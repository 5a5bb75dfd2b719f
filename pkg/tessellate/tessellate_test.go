package tessellate_test

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/partition"
	"github.com/chazu/facepaint/pkg/tessellate"
)

// faces is a Source backed by fixed triangle lists.
type faces [][]partition.DrawableTriangle

func (f faces) FaceCount() int { return len(f) }

func (f faces) FaceTriangles(i int) []partition.DrawableTriangle { return f[i] }

func drawable(c kernel.ColorID, pts ...float64) partition.DrawableTriangle {
	return partition.DrawableTriangle{
		Vertices: [3]v3.Vec{{X: pts[0], Y: pts[1], Z: pts[2]}, {X: pts[3], Y: pts[4], Z: pts[5]}, {X: pts[6], Y: pts[7], Z: pts[8]}},
		Normal:   v3.Vec{Z: 1},
		Color:    c,
	}
}

func TestTessellateFlattensFaces(t *testing.T) {
	src := faces{
		{drawable(0, 0, 0, 0, 1, 0, 0, 0, 1, 0)},
		{drawable(1, 1, 0, 0, 1, 1, 0, 0, 1, 0), drawable(2, 1, 0, 0, 2, 0, 0, 1, 1, 0)},
	}
	m, err := tessellate.Tessellate(src, "quad")
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if m.Name != "quad" {
		t.Errorf("Name = %q, want quad", m.Name)
	}
	if m.TriangleCount() != 3 {
		t.Fatalf("TriangleCount = %d, want 3", m.TriangleCount())
	}
	if m.VertexCount() != 9 {
		t.Errorf("VertexCount = %d, want 9", m.VertexCount())
	}
	if got := m.Triangle(2)[1]; got != [3]float32{2, 0, 0} {
		t.Errorf("triangle 2 vertex 1 = %v", got)
	}
	counts := m.ColorCounts()
	for c := kernel.ColorID(0); c < 3; c++ {
		if counts[c] != 1 {
			t.Errorf("color %d count = %d, want 1", c, counts[c])
		}
	}
}

func TestTessellateSkipsEmptyFaces(t *testing.T) {
	src := faces{nil, {drawable(0, 0, 0, 0, 1, 0, 0, 0, 1, 0)}}
	m, err := tessellate.Tessellate(src, "")
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if m.TriangleCount() != 1 {
		t.Errorf("TriangleCount = %d, want 1", m.TriangleCount())
	}
}

func TestTessellateNil(t *testing.T) {
	m, err := tessellate.Tessellate(nil, "x")
	if err != nil {
		t.Fatalf("Tessellate(nil) failed: %v", err)
	}
	if !m.IsEmpty() {
		t.Error("mesh should be empty")
	}
}

func TestTessellateRejectsNonFinite(t *testing.T) {
	tests := []struct {
		name string
		x    float64
	}{
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"float32 overflow", 1e300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := faces{{drawable(0, tt.x, 0, 0, 1, 0, 0, 0, 1, 0)}}
			if _, err := tessellate.Tessellate(src, ""); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestByColor(t *testing.T) {
	src := faces{{
		drawable(0, 0, 0, 0, 1, 0, 0, 0, 1, 0),
		drawable(3, 1, 0, 0, 1, 1, 0, 0, 1, 0),
		drawable(0, 1, 0, 0, 2, 0, 0, 1, 1, 0),
	}}
	m, err := tessellate.Tessellate(src, "part")
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	split := tessellate.ByColor(m)
	if len(split) != 2 {
		t.Fatalf("expected 2 color meshes, got %d", len(split))
	}
	if split[0].TriangleCount() != 2 || split[3].TriangleCount() != 1 {
		t.Errorf("counts = %d/%d, want 2/1", split[0].TriangleCount(), split[3].TriangleCount())
	}
	if split[3].Name != "part-3" {
		t.Errorf("Name = %q, want part-3", split[3].Name)
	}
	if split[3].Normals[2] != 1 {
		t.Errorf("normal not carried: %v", split[3].Normals[:3])
	}
}
