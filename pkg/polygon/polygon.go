// Package polygon implements exact planar polygon sets: rings,
// polygons-with-holes and sets of disjoint polygons, with boolean operations,
// simplification and validation. All coordinates are exact rationals.
//
// Orientation convention: outer boundaries are counter-clockwise, holes are
// clockwise, so the interior always lies to the left of every directed edge.
package polygon

import (
	"errors"
	"math/big"

	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/samber/lo"
)

// ErrInvalidPolygon reports a polygon set that violates the structural
// invariants checked by Validate.
var ErrInvalidPolygon = errors.New("polygon: invalid polygon")

// Ring is a closed boundary. The closing edge from the last vertex back to
// the first is implicit.
type Ring []kernel.Point2

// SignedArea returns the exact shoelace area: positive for counter-clockwise
// rings, negative for clockwise ones.
func (r Ring) SignedArea() *big.Rat {
	sum := new(big.Rat)
	n := len(r)
	for i := 0; i < n; i++ {
		sum.Add(sum, r[i].Cross(r[(i+1)%n]))
	}
	return sum.Mul(sum, big.NewRat(1, 2))
}

// Reverse returns the ring with opposite orientation.
func (r Ring) Reverse() Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// Clone copies the vertex slice. Points are immutable and shared.
func (r Ring) Clone() Ring {
	return append(Ring(nil), r...)
}

// Edge returns the i-th directed edge.
func (r Ring) Edge(i int) (a, b kernel.Point2) {
	return r[i], r[(i+1)%len(r)]
}

// WithHoles is one outer boundary plus zero or more holes.
type WithHoles struct {
	Outer Ring
	Holes []Ring
}

// Rings returns the outer ring followed by the holes.
func (p WithHoles) Rings() []Ring {
	return append([]Ring{p.Outer}, p.Holes...)
}

// Area returns the exact area enclosed by the outer ring minus the holes.
func (p WithHoles) Area() *big.Rat {
	a := new(big.Rat)
	for _, r := range p.Rings() {
		a.Add(a, r.SignedArea())
	}
	return a
}

// Set is a union of interior-disjoint polygons-with-holes.
type Set struct {
	Polygons []WithHoles
}

// NewSet wraps already valid polygons without normalizing them.
func NewSet(polys ...WithHoles) Set {
	return Set{Polygons: polys}
}

// FromRing builds a normalized set from an arbitrary closed point list. The
// list may have either orientation and may self-intersect; the nonzero
// winding rule decides what is inside.
func FromRing(pts ...kernel.Point2) Set {
	return Normalize(Set{Polygons: []WithHoles{{Outer: Ring(pts)}}})
}

// Triangle returns the set covering triangle abc.
func Triangle(a, b, c kernel.Point2) Set {
	return FromRing(a, b, c)
}

// IsEmpty reports whether the set has no polygons.
func (s Set) IsEmpty() bool { return len(s.Polygons) == 0 }

// Area returns the exact total area.
func (s Set) Area() *big.Rat {
	a := new(big.Rat)
	for _, p := range s.Polygons {
		a.Add(a, p.Area())
	}
	return a
}

// Rings returns every ring of every polygon.
func (s Set) Rings() []Ring {
	return lo.FlatMap(s.Polygons, func(p WithHoles, _ int) []Ring { return p.Rings() })
}

// Vertices returns every ring vertex, in ring order.
func (s Set) Vertices() []kernel.Point2 {
	return lo.Flatten(lo.Map(s.Rings(), func(r Ring, _ int) []kernel.Point2 { return r }))
}

// Clone returns a copy whose slices can be edited independently.
func (s Set) Clone() Set {
	out := Set{Polygons: make([]WithHoles, len(s.Polygons))}
	for i, p := range s.Polygons {
		out.Polygons[i] = WithHoles{
			Outer: p.Outer.Clone(),
			Holes: lo.Map(p.Holes, func(h Ring, _ int) Ring { return h.Clone() }),
		}
	}
	return out
}

// Location classifies a point against a set.
type Location int

const (
	Outside Location = iota
	Boundary
	Inside
)

func (l Location) String() string {
	switch l {
	case Boundary:
		return "boundary"
	case Inside:
		return "inside"
	default:
		return "outside"
	}
}

// Locate classifies p exactly.
func (s Set) Locate(p kernel.Point2) Location {
	for _, r := range s.Rings() {
		if onRing(r, p) {
			return Boundary
		}
	}
	if winding(edgesOf(s), p, origin) != 0 {
		return Inside
	}
	return Outside
}

// Contains reports whether p lies strictly inside the set.
func (s Set) Contains(p kernel.Point2) bool {
	return s.Locate(p) == Inside
}

// InsertPoint splits every edge that strictly contains p and is accepted by
// the filter. It returns the new set and the number of edges split.
func (s Set) InsertPoint(p kernel.Point2, accept func(a, b kernel.Point2) bool) (Set, int) {
	out := s.Clone()
	n := 0
	split := func(r Ring) Ring {
		for i := 0; i < len(r); i++ {
			a, b := r.Edge(i)
			if kernel.StrictlyInside(p, a, b) && (accept == nil || accept(a, b)) {
				r = append(r[:i+1], append(Ring{p}, r[i+1:]...)...)
				n++
				i++
			}
		}
		return r
	}
	for i := range out.Polygons {
		out.Polygons[i].Outer = split(out.Polygons[i].Outer)
		for j := range out.Polygons[i].Holes {
			out.Polygons[i].Holes[j] = split(out.Polygons[i].Holes[j])
		}
	}
	return out, n
}

var origin = kernel.Pt2(0, 0)

func onRing(r Ring, p kernel.Point2) bool {
	for i := range r {
		a, b := r.Edge(i)
		if kernel.OnSegment(p, a, b) {
			return true
		}
	}
	return false
}

// locateRing classifies p against the region a single ring encloses,
// regardless of the ring's orientation.
func locateRing(r Ring, p kernel.Point2) Location {
	if onRing(r, p) {
		return Boundary
	}
	if winding(ringEdges(r), p, origin) != 0 {
		return Inside
	}
	return Outside
}

// ringInside reports whether ring h lies inside the region enclosed by ring
// o. Points of h on o's boundary are inconclusive and skipped.
func ringInside(h, o Ring) bool {
	for _, p := range h {
		switch locateRing(o, p) {
		case Inside:
			return true
		case Outside:
			return false
		}
	}
	for i := range h {
		a, b := h.Edge(i)
		switch locateRing(o, kernel.Midpoint(a, b)) {
		case Inside:
			return true
		case Outside:
			return false
		}
	}
	return false
}
