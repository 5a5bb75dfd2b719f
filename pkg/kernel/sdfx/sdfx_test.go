package sdfx

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/facepaint/pkg/kernel"
)

func TestPrimitives(t *testing.T) {
	for _, name := range Primitives {
		t.Run(name, func(t *testing.T) {
			s, err := Primitive(name, 10)
			if err != nil {
				t.Fatalf("Primitive failed: %v", err)
			}
			faces, err := Tessellate(s, 20, 1)
			if err != nil {
				t.Fatalf("Tessellate failed: %v", err)
			}
			if len(faces) == 0 {
				t.Fatal("expected faces")
			}
			for i, f := range faces {
				if f.Degenerate() {
					t.Fatalf("face %d is degenerate", i)
				}
				if f.Color != 1 {
					t.Fatalf("face %d color = %d", i, f.Color)
				}
			}
		})
	}
}

func TestPrimitiveErrors(t *testing.T) {
	if _, err := Primitive("torus", 1); err == nil {
		t.Error("expected error for unknown primitive")
	}
	if _, err := Primitive("box", 0); err == nil {
		t.Error("expected error for zero size")
	}
	if _, err := Primitive("box", math.NaN()); err == nil {
		t.Error("expected error for NaN size")
	}
}

func TestFacesShareSnappedVertices(t *testing.T) {
	a := sdf.Triangle3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	// The shared edge is off by a rounding error.
	b := sdf.Triangle3{{X: 1 + 1e-13, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1 - 1e-13, Z: 0}}
	faces := Faces([]*sdf.Triangle3{&a, &b}, 0)
	if len(faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(faces))
	}
	if !faces[0].Vertices[1].Equal(faces[1].Vertices[0]) {
		t.Errorf("vertex %v not merged with %v", faces[0].Vertices[1], faces[1].Vertices[0])
	}
	if !faces[0].Vertices[2].Equal(faces[1].Vertices[2]) {
		t.Errorf("vertex %v not merged with %v", faces[0].Vertices[2], faces[1].Vertices[2])
	}
}

func TestFacesDropDegenerate(t *testing.T) {
	flat := sdf.Triangle3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}}
	if faces := Faces([]*sdf.Triangle3{&flat}, 0); len(faces) != 0 {
		t.Errorf("expected degenerate triangle to be dropped, got %d faces", len(faces))
	}
}

func TestTriangles(t *testing.T) {
	var m kernel.Mesh
	m.AppendTriangle([3][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [3]float32{0, 0, 1}, 2)
	tris := Triangles(&m)
	if len(tris) != 1 {
		t.Fatalf("expected 1 triangle, got %d", len(tris))
	}
	if tris[0][1] != (v3.Vec{X: 1}) {
		t.Errorf("vertex 1 = %v", tris[0][1])
	}
}

func TestSaveLoadSTL(t *testing.T) {
	var m kernel.Mesh
	m.AppendTriangle([3][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [3]float32{0, 0, 1}, 0)
	m.AppendTriangle([3][3]float32{{1, 0, 0}, {1, 1, 0}, {0, 1, 0}}, [3]float32{0, 0, 1}, 1)

	path := filepath.Join(t.TempDir(), "square.stl")
	if err := SaveSTL(path, &m); err != nil {
		t.Fatalf("SaveSTL failed: %v", err)
	}
	faces, err := LoadSTL(path, 3)
	if err != nil {
		t.Fatalf("LoadSTL failed: %v", err)
	}
	if len(faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(faces))
	}
	if !faces[0].Vertices[1].Equal(faces[1].Vertices[0]) {
		t.Error("shared vertex lost in round trip")
	}
}

func TestSaveEmptyMesh(t *testing.T) {
	if err := SaveSTL(filepath.Join(t.TempDir(), "x.stl"), &kernel.Mesh{}); err == nil {
		t.Error("expected error for empty mesh")
	}
}
