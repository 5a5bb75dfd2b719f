package kernel

import (
	"errors"
	"math/big"
	"testing"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestMeshAppendTriangle(t *testing.T) {
	m := &Mesh{}
	m.AppendTriangle([3][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [3]float32{0, 0, 1}, 2)
	m.AppendTriangle([3][3]float32{{1, 0, 0}, {1, 1, 0}, {0, 1, 0}}, [3]float32{0, 0, 1}, 3)
	if m.TriangleCount() != 2 || m.VertexCount() != 6 {
		t.Fatalf("counts = %d tris, %d verts, want 2, 6", m.TriangleCount(), m.VertexCount())
	}
	if got := m.Triangle(1)[1]; got != [3]float32{1, 1, 0} {
		t.Errorf("Triangle(1)[1] = %v, want [1 1 0]", got)
	}
	counts := m.ColorCounts()
	if counts[2] != 1 || counts[3] != 1 {
		t.Errorf("ColorCounts() = %v", counts)
	}
}

// ---------------------------------------------------------------------------
// Exact predicates
// ---------------------------------------------------------------------------

func TestOrient2D(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c Point2
		want    int
	}{
		{"ccw", Pt2(0, 0), Pt2(1, 0), Pt2(0, 1), 1},
		{"cw", Pt2(0, 0), Pt2(0, 1), Pt2(1, 0), -1},
		{"collinear", Pt2(0, 0), Pt2(1, 1), Pt2(3, 3), 0},
		{"tiny offset", Pt2(0, 0), Pt2(1, 1), NewPoint2(big.NewRat(1, 1), new(big.Rat).Add(big.NewRat(1, 1), big.NewRat(1, 1<<62))), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Orient2D(tt.a, tt.b, tt.c); got != tt.want {
				t.Errorf("Orient2D = %d, want %d", got, tt.want)
			}
		})
	}
}

// 0.1 and 0.7 are not representable, so float arithmetic cannot be trusted
// near this line. The predicate must agree with the exact cross product.
func TestOrient2DMatchesExact(t *testing.T) {
	a, b := Pt2(0.1, 0.1), Pt2(0.7, 0.7)
	for _, c := range []Point2{Pt2(0.3, 0.3), Pt2(0.5, 0.5), Pt2(1e-17, 1e-17), Pt2(0.2, 0.2000000000000001)} {
		want := b.Sub(a).Cross(c.Sub(a)).Sign()
		if got := Orient2D(a, b, c); got != want {
			t.Errorf("Orient2D(%v) = %d, exact = %d", c, got, want)
		}
	}
}

func TestSegmentIntersection(t *testing.T) {
	p, ok, overlap := SegmentIntersection(Pt2(0, 0), Pt2(2, 2), Pt2(0, 2), Pt2(2, 0))
	if !ok || overlap {
		t.Fatalf("crossing: ok=%v overlap=%v", ok, overlap)
	}
	if !p.Equal(Pt2(1, 1)) {
		t.Errorf("crossing point = %v, want (1,1)", p)
	}

	p, ok, _ = SegmentIntersection(Pt2(0, 0), Pt2(3, 0), Pt2(0, 0), Pt2(0, 3))
	if !ok || !p.Equal(Pt2(0, 0)) {
		t.Errorf("shared endpoint: ok=%v p=%v", ok, p)
	}

	_, ok, overlap = SegmentIntersection(Pt2(0, 0), Pt2(2, 0), Pt2(1, 0), Pt2(3, 0))
	if ok || !overlap {
		t.Errorf("collinear overlap: ok=%v overlap=%v", ok, overlap)
	}

	_, ok, overlap = SegmentIntersection(Pt2(0, 0), Pt2(1, 0), Pt2(0, 1), Pt2(1, 1))
	if ok || overlap {
		t.Errorf("parallel: ok=%v overlap=%v", ok, overlap)
	}

	// One third is not a float; the intersection must still be exact.
	p, ok, _ = SegmentIntersection(Pt2(0, 0), Pt2(1, 0), Pt2(0, -1), Pt2(1, 2))
	if !ok || p.X.Cmp(big.NewRat(1, 3)) != 0 || p.Y.Sign() != 0 {
		t.Errorf("rational intersection = %v, ok=%v", p, ok)
	}
}

func TestOnSegment(t *testing.T) {
	a, b := Pt2(0, 0), Pt2(4, 2)
	if !OnSegment(Pt2(2, 1), a, b) {
		t.Error("midpoint not on segment")
	}
	if OnSegment(Pt2(6, 3), a, b) {
		t.Error("point beyond endpoint reported on segment")
	}
	if StrictlyInside(a, a, b) {
		t.Error("endpoint reported strictly inside")
	}
}

func TestPointKeys(t *testing.T) {
	a := NewPoint2(big.NewRat(2, 4), big.NewRat(1, 3))
	b := NewPoint2(big.NewRat(1, 2), big.NewRat(2, 6))
	if a.Key() != b.Key() {
		t.Errorf("keys differ for equal points: %q vs %q", a.Key(), b.Key())
	}
	if !a.Equal(b) || a.Cmp(b) != 0 {
		t.Error("equal points compare unequal")
	}
}

// ---------------------------------------------------------------------------
// Projector
// ---------------------------------------------------------------------------

func TestProjectorRoundTrip(t *testing.T) {
	a, b, c := Pt3(1, 2, 3), Pt3(4, -1, 0.5), Pt3(-2, 0.25, 7)
	p, err := NewProjector(a, b, c)
	if err != nil {
		t.Fatalf("NewProjector: %v", err)
	}
	bounds := p.Bounds()
	for i, v := range []Point3{a, b, c} {
		got := p.To2D(v)
		if !got.Equal(bounds[i]) {
			t.Errorf("To2D(v%d) = %v, want %v", i, got, bounds[i])
		}
		if back := p.To3D(got); !back.Equal(v) {
			t.Errorf("To3D(To2D(v%d)) = %v, want %v", i, back, v)
		}
	}
	q := NewPoint2(big.NewRat(1, 7), big.NewRat(2, 9))
	if got := p.To2D(p.To3D(q)); !got.Equal(q) {
		t.Errorf("To2D(To3D(q)) = %v, want %v", got, q)
	}
	if !p.OnPlane(p.To3D(q)) {
		t.Error("To3D result is off the plane")
	}
}

func TestProjectorOffPlane(t *testing.T) {
	p, err := NewProjector(Pt3(0, 0, 0), Pt3(1, 0, 0), Pt3(0, 1, 0))
	if err != nil {
		t.Fatal(err)
	}
	got := p.To2D(Pt3(0.25, 0.5, 9))
	if !got.Equal(Pt2(0.25, 0.5)) {
		t.Errorf("To2D of lifted point = %v, want (1/4,1/2)", got)
	}
}

func TestProjectorDegenerate(t *testing.T) {
	_, err := NewProjector(Pt3(0, 0, 0), Pt3(1, 1, 1), Pt3(2, 2, 2))
	if !errors.Is(err, ErrDegenerateTriangle) {
		t.Fatalf("err = %v, want ErrDegenerateTriangle", err)
	}
	tri := NewTriangle(Pt3(0, 0, 0), Pt3(1, 1, 1), Pt3(3, 3, 3), 0)
	if !tri.Degenerate() {
		t.Error("collinear triangle not degenerate")
	}
}

func TestIntersectSphere(t *testing.T) {
	p, err := NewProjector(Pt3(0, 0, 0), Pt3(10, 0, 0), Pt3(0, 10, 0))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		sphere Sphere
		ok     bool
		r2     *big.Rat
	}{
		{"through plane", Sphere{Center: Pt3(1, 1, 3), Radius: 5}, true, big.NewRat(16, 1)},
		{"tangent", Sphere{Center: Pt3(1, 1, 2), Radius: 2}, false, nil},
		{"miss", Sphere{Center: Pt3(1, 1, 5), Radius: 2}, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := p.IntersectSphere(tt.sphere)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if c.SquaredRadius.Cmp(tt.r2) != 0 {
				t.Errorf("r^2 = %v, want %v", c.SquaredRadius, tt.r2)
			}
			if !c.Center.Equal(Pt3(1, 1, 0)) {
				t.Errorf("center = %v, want (1,1,0)", c.Center)
			}
		})
	}
}

func TestSegmentSphere(t *testing.T) {
	ts := SegmentSphere(Pt3(-2, 0, 0), Pt3(2, 0, 0), Sphere{Center: Pt3(0, 0, 0), Radius: 1})
	if len(ts) != 2 || ts[0] != 0.25 || ts[1] != 0.75 {
		t.Errorf("SegmentSphere = %v, want [0.25 0.75]", ts)
	}
	if ts := SegmentSphere(Pt3(-2, 5, 0), Pt3(2, 5, 0), Sphere{Center: Pt3(0, 0, 0), Radius: 1}); len(ts) != 0 {
		t.Errorf("miss returned %v", ts)
	}
}

func TestSharedVertices(t *testing.T) {
	a := NewTriangle(Pt3(0, 0, 0), Pt3(1, 0, 0), Pt3(0, 1, 0), 0)
	b := NewTriangle(Pt3(1, 0, 0), Pt3(1, 1, 0), Pt3(0, 1, 0), 0)
	shared := a.SharedVertices(b)
	if len(shared) != 2 {
		t.Fatalf("shared = %v, want 2 pairs", shared)
	}
	if shared[0] != [2]int{1, 0} || shared[1] != [2]int{2, 2} {
		t.Errorf("shared = %v", shared)
	}
	if a.Normal.Z != 1 {
		t.Errorf("normal = %v, want +Z", a.Normal)
	}
}
