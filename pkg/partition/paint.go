package partition

import (
	"fmt"
	"math"
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/polygon"
)

// PaintPolygon paints shape, given in the frame of the triangle, with color
// c. The shape is clipped to the triangle, added to c and removed from every
// other color. It reports whether any area was painted.
func (p *Partition) PaintPolygon(shape polygon.Set, c kernel.ColorID) (bool, error) {
	if err := checkColor(c); err != nil {
		return false, err
	}
	p.sync()
	clipped := polygon.Intersect(shape, p.bounds)
	if clipped.IsEmpty() {
		return false, nil
	}

	next := make(map[kernel.ColorID]polygon.Set, len(p.colors)+1)
	for _, id := range sortedKeys(p.colors) {
		if id == c {
			continue
		}
		old := p.colors[id]
		rest := polygon.Difference(old, clipped)
		if rest.Area().Cmp(old.Area()) == 0 {
			// Untouched sets keep their vertices, including points added
			// by edge reconciliation.
			next[id] = old
			continue
		}
		rest = p.simplify(rest)
		if !rest.IsEmpty() {
			next[id] = rest
		}
	}
	merged := p.simplify(polygon.Union(p.colors[c], clipped))
	if !merged.IsEmpty() {
		next[c] = merged
	}
	p.colors = next
	p.retriangulate()
	p.record("paint-polygon", fmt.Sprintf("color %d, %d vertices", c, len(clipped.Vertices())))
	return true, p.verifyIfEnabled()
}

// PaintPolygon3D projects a closed 3-D point list onto the triangle's plane
// and paints it.
func (p *Partition) PaintPolygon3D(points []kernel.Point3, c kernel.ColorID) (bool, error) {
	if len(points) < 3 {
		return false, fmt.Errorf("%w: %d points", ErrInvalidShape, len(points))
	}
	ring := make(polygon.Ring, len(points))
	for i, q := range points {
		ring[i] = p.projector.To2D(q)
	}
	return p.PaintPolygon(polygon.FromRing(ring...), c)
}

// PaintAll paints the whole triangle.
func (p *Partition) PaintAll(c kernel.ColorID) (bool, error) {
	return p.PaintPolygon(p.bounds, c)
}

// PaintCircle paints the disc where sphere s cuts the triangle's plane.
func (p *Partition) PaintCircle(s kernel.Sphere, c kernel.ColorID) (bool, error) {
	if err := checkColor(c); err != nil {
		return false, err
	}
	circle, ok := p.projector.IntersectSphere(s)
	if !ok {
		return false, fmt.Errorf("%w: sphere at %v r=%g", ErrEmptyIntersection, s.Center, s.Radius)
	}
	return p.PaintPolygon(p.circlePolygon(s, circle), c)
}

// CircleVertexCount returns how many samples approximate a circle of the
// given radius.
func (s Settings) CircleVertexCount(radius float64) int {
	return max(s.MinCircleVertices, int(radius*s.VerticesPerUnit))
}

type arcSample struct {
	angle float64
	pt    kernel.Point2
}

// circlePolygon samples the circle in 3-D and projects the samples into the
// frame. With ShareArcPoints the exact edge crossings are added as well.
func (p *Partition) circlePolygon(s kernel.Sphere, circle kernel.Circle) polygon.Set {
	r := circle.Radius()
	n := p.settings.CircleVertexCount(r)
	center := circle.FloatCenter()
	xb, yb := p.projector.Bases()

	samples := make([]arcSample, 0, n+6)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		q := center.Add(xb.MulScalar(r * math.Cos(a))).Add(yb.MulScalar(r * math.Sin(a)))
		samples = append(samples, arcSample{angle: a, pt: p.projector.To2D(kernel.Pt3(q.X, q.Y, q.Z))})
	}
	if p.settings.ShareArcPoints {
		for _, q := range p.arcPoints(s) {
			x, y, z := q.Float64()
			d := v3.Vec{X: x, Y: y, Z: z}.Sub(center)
			a := math.Atan2(d.Dot(yb), d.Dot(xb))
			if a < 0 {
				a += 2 * math.Pi
			}
			samples = append(samples, arcSample{angle: a, pt: p.projector.To2D(q)})
		}
		slices.SortStableFunc(samples, func(a, b arcSample) int {
			switch {
			case a.angle < b.angle:
				return -1
			case a.angle > b.angle:
				return 1
			}
			return 0
		})
	}

	ring := make(polygon.Ring, len(samples))
	for i, sm := range samples {
		ring[i] = sm.pt
	}
	if ring.SignedArea().Sign() < 0 {
		ring = ring.Reverse()
	}
	return polygon.FromRing(ring...)
}

// arcPoints returns the exact points where the sphere surface crosses the
// original triangle's edges. Each edge is parameterized from its
// lexicographically smaller endpoint so both faces sharing it compute the
// same points.
func (p *Partition) arcPoints(s kernel.Sphere) []kernel.Point3 {
	var out []kernel.Point3
	v := p.original.Vertices
	for k := 0; k < 3; k++ {
		a, b := v[k], v[(k+1)%3]
		if a.Cmp(b) > 0 {
			a, b = b, a
		}
		for _, t := range kernel.SegmentSphere(a, b, s) {
			out = append(out, kernel.Lerp3(a, b, kernel.Rat(t)))
		}
	}
	return out
}
