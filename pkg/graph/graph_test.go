package graph

import (
	"strings"
	"testing"

	"github.com/chazu/facepaint/pkg/kernel"
)

// tetrahedron returns the four outward-facing triangles of the unit
// tetrahedron.
func tetrahedron() []kernel.Triangle {
	o := kernel.Pt3(0, 0, 0)
	x := kernel.Pt3(1, 0, 0)
	y := kernel.Pt3(0, 1, 0)
	z := kernel.Pt3(0, 0, 1)
	return []kernel.Triangle{
		kernel.NewTriangle(o, y, x, 0),
		kernel.NewTriangle(o, x, z, 0),
		kernel.NewTriangle(o, z, y, 0),
		kernel.NewTriangle(x, y, z, 0),
	}
}

// square returns two triangles sharing the diagonal (1,0,0)-(0,1,0).
func square() []kernel.Triangle {
	return []kernel.Triangle{
		kernel.NewTriangle(kernel.Pt3(0, 0, 0), kernel.Pt3(1, 0, 0), kernel.Pt3(0, 1, 0), 0),
		kernel.NewTriangle(kernel.Pt3(1, 0, 0), kernel.Pt3(1, 1, 0), kernel.Pt3(0, 1, 0), 0),
	}
}

func TestBuildTetrahedron(t *testing.T) {
	g := Build(tetrahedron())
	if g.FaceCount() != 4 {
		t.Fatalf("face count = %d, want 4", g.FaceCount())
	}
	if len(g.Edges) != 6 {
		t.Errorf("edge count = %d, want 6", len(g.Edges))
	}
	for f := FaceID(0); f < 4; f++ {
		adj := g.Adjacent(f)
		if len(adj) != 3 {
			t.Errorf("face %d has %d neighbours, want 3", f, len(adj))
		}
		for _, n := range g.Neighbors(f) {
			if n == NoFace || n == f {
				t.Errorf("face %d: bad neighbour %d", f, n)
			}
		}
	}
}

func TestNeighborsOpenMesh(t *testing.T) {
	g := Build(square())
	n := g.Neighbors(0)
	// Slot 1 of face 0 is (1,0,0)-(0,1,0).
	want := [3]FaceID{NoFace, 1, NoFace}
	if n != want {
		t.Errorf("Neighbors(0) = %v, want %v", n, want)
	}
}

func TestSharedEdge(t *testing.T) {
	g := Build(square())
	ka, kb, ok := g.SharedEdge(0, 1)
	if !ok {
		t.Fatal("expected shared edge")
	}
	if g.EdgeOf(0, ka) != g.EdgeOf(1, kb) {
		t.Errorf("slots %d/%d name different edges", ka, kb)
	}
	if ka != 1 || kb != 2 {
		t.Errorf("slots = %d,%d, want 1,2", ka, kb)
	}

	g = Build(tetrahedron())
	if _, _, ok := g.SharedEdge(0, 0); !ok {
		t.Error("a face shares its edges with itself")
	}
}

func TestEdgeKeyCanonical(t *testing.T) {
	p := kernel.Pt3(0.5, 0, 1)
	q := kernel.Pt3(0, 2, 0)
	if NewEdgeKey(p, q) != NewEdgeKey(q, p) {
		t.Error("edge key depends on endpoint order")
	}
	if !strings.Contains(NewEdgeKey(p, q).String(), "1/2") {
		t.Errorf("edge key %s should carry exact coordinates", NewEdgeKey(p, q))
	}
}

func TestWalk(t *testing.T) {
	g := Build(tetrahedron())
	all := g.Walk(0, func(from, to FaceID) bool { return true })
	if len(all) != 4 || all[0] != 0 {
		t.Errorf("Walk all = %v", all)
	}

	none := g.Walk(2, func(from, to FaceID) bool { return false })
	if len(none) != 1 || none[0] != 2 {
		t.Errorf("Walk none = %v, want [2]", none)
	}

	if got := g.Walk(9, func(from, to FaceID) bool { return true }); got != nil {
		t.Errorf("Walk from invalid face = %v, want nil", got)
	}
}
