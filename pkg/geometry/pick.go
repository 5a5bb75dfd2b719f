package geometry

import (
	"math"
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/dhconnelly/rtreego"

	"github.com/chazu/facepaint/pkg/kernel"
)

// faceBox is the R-tree entry of one original face.
type faceBox struct {
	face int
	rect rtreego.Rect
}

func (b *faceBox) Bounds() rtreego.Rect { return b.rect }

// pad widens flat boxes so that axis-aligned faces still have volume.
const pad = 1e-9

func boxRect(lo, hi v3.Vec) rtreego.Rect {
	m := 0.0
	for _, x := range []float64{lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z} {
		m = math.Max(m, math.Abs(x))
	}
	scale := pad * (1 + m)
	r, err := rtreego.NewRectFromPoints(
		rtreego.Point{lo.X - scale, lo.Y - scale, lo.Z - scale},
		rtreego.Point{hi.X + scale, hi.Y + scale, hi.Z + scale},
	)
	if err != nil {
		// Only dimension mismatches fail, and both points are 3-D.
		panic(err)
	}
	return r
}

func buildIndex(faces []kernel.Triangle) *rtreego.Rtree {
	objs := make([]rtreego.Spatial, len(faces))
	for i, f := range faces {
		lo, hi := f.Bounds()
		objs[i] = &faceBox{face: i, rect: boxRect(lo, hi)}
	}
	return rtreego.NewTree(3, 25, 50, objs...)
}

// candidates returns the faces whose bounds meet the box lo-hi, ascending.
func (g *Geometry) candidates(lo, hi v3.Vec) []int {
	hits := g.index.SearchIntersect(boxRect(lo, hi))
	out := make([]int, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*faceBox).face)
	}
	slices.Sort(out)
	return out
}

// meshBounds returns the bounding box of all faces.
func (g *Geometry) meshBounds() (lo, hi v3.Vec) {
	for i := 0; i < g.FaceCount(); i++ {
		flo, fhi := g.Face(i).Bounds()
		if i == 0 {
			lo, hi = flo, fhi
			continue
		}
		lo, hi = lo.Min(flo), hi.Max(fhi)
	}
	return lo, hi
}

// Ray is a half line from Origin along Direction.
type Ray struct {
	Origin    v3.Vec
	Direction v3.Vec
}

// DetailedTriangleID names one drawable sub-triangle of a face.
type DetailedTriangleID struct {
	Face  int `json:"face"`
	Index int `json:"index"`
}

// Hit is the result of a ray pick.
type Hit struct {
	ID       DetailedTriangleID
	Point    v3.Vec
	Distance float64
}

// Intersect returns the closest drawable sub-triangle hit by r, if any.
func (g *Geometry) Intersect(r Ray) (Hit, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FaceCount() == 0 || r.Direction.Length() == 0 {
		return Hit{}, false
	}
	dir := r.Direction.Normalize()
	lo, hi := g.meshBounds()
	reach := r.Origin.Sub(lo.Add(hi).MulScalar(0.5)).Length() + hi.Sub(lo).Length()
	end := r.Origin.Add(dir.MulScalar(reach))

	best := Hit{Distance: math.Inf(1)}
	found := false
	for _, f := range g.candidates(r.Origin.Min(end), r.Origin.Max(end)) {
		for i, t := range g.faceTriangles(f) {
			d, ok := rayTriangle(r.Origin, dir, t.Vertices)
			if ok && d < best.Distance {
				best = Hit{ID: DetailedTriangleID{Face: f, Index: i}, Distance: d, Point: r.Origin.Add(dir.MulScalar(d))}
				found = true
			}
		}
	}
	return best, found
}

// rayTriangle is the Moller-Trumbore test. Both windings are hit.
func rayTriangle(o, d v3.Vec, v [3]v3.Vec) (float64, bool) {
	const eps = 1e-12
	e1 := v[1].Sub(v[0])
	e2 := v[2].Sub(v[0])
	p := d.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < eps {
		return 0, false
	}
	inv := 1 / det
	s := o.Sub(v[0])
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	w := d.Dot(q) * inv
	if w < 0 || u+w > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}
