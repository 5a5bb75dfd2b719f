package polygon

import (
	"fmt"

	"github.com/chazu/facepaint/pkg/kernel"
)

// Validate checks the structural invariants of a set: every ring closed with
// at least three vertices and non-zero area, outer rings counter-clockwise
// and holes clockwise, no crossing or overlapping edges (touching at a point
// is allowed), holes inside their outer ring and disjoint from each other,
// and polygons interior-disjoint from each other.
func Validate(s Set) error {
	for i, p := range s.Polygons {
		if err := validatePolygon(p); err != nil {
			return fmt.Errorf("polygon %d: %w", i, err)
		}
	}
	for i := range s.Polygons {
		for j := i + 1; j < len(s.Polygons); j++ {
			a, b := s.Polygons[i], s.Polygons[j]
			if err := checkCrossings(edgesOf(NewSet(a)), edgesOf(NewSet(b))); err != nil {
				return fmt.Errorf("polygons %d and %d: %w", i, j, err)
			}
			if overlapsInterior(a, b) || overlapsInterior(b, a) {
				return fmt.Errorf("%w: polygons %d and %d overlap", ErrInvalidPolygon, i, j)
			}
		}
	}
	return nil
}

func validatePolygon(p WithHoles) error {
	for i, r := range p.Rings() {
		if len(r) < 3 {
			return fmt.Errorf("%w: ring %d has %d vertices", ErrInvalidPolygon, i, len(r))
		}
		for k := range r {
			if a, b := r.Edge(k); a.Equal(b) {
				return fmt.Errorf("%w: ring %d repeats vertex %v", ErrInvalidPolygon, i, a)
			}
		}
		sign := r.SignedArea().Sign()
		switch {
		case sign == 0:
			return fmt.Errorf("%w: ring %d has zero area", ErrInvalidPolygon, i)
		case i == 0 && sign < 0:
			return fmt.Errorf("%w: outer ring is clockwise", ErrInvalidPolygon)
		case i > 0 && sign > 0:
			return fmt.Errorf("%w: hole %d is counter-clockwise", ErrInvalidPolygon, i-1)
		}
	}

	edges := edgesOf(NewSet(p))
	if err := checkCrossings(edges, nil); err != nil {
		return err
	}
	for i, h := range p.Holes {
		if !ringInside(h, p.Outer) {
			return fmt.Errorf("%w: hole %d outside outer ring", ErrInvalidPolygon, i)
		}
		for j := i + 1; j < len(p.Holes); j++ {
			if ringInside(p.Holes[j], h) || ringInside(h, p.Holes[j]) {
				return fmt.Errorf("%w: holes %d and %d overlap", ErrInvalidPolygon, i, j)
			}
		}
	}
	return nil
}

// checkCrossings reports proper crossings or collinear overlaps of positive
// length. With a nil second list the first is checked against itself.
func checkCrossings(as, bs []edge) error {
	self := bs == nil
	if self {
		bs = as
	}
	for i, ea := range as {
		start := 0
		if self {
			start = i + 1
		}
		for _, eb := range bs[start:] {
			p, ok, overlap := kernel.SegmentIntersection(ea.a, ea.b, eb.a, eb.b)
			if overlap && collinearOverlap(ea, eb) {
				return fmt.Errorf("%w: edges %v-%v and %v-%v overlap", ErrInvalidPolygon, ea.a, ea.b, eb.a, eb.b)
			}
			if ok && kernel.StrictlyInside(p, ea.a, ea.b) && kernel.StrictlyInside(p, eb.a, eb.b) {
				return fmt.Errorf("%w: edges cross at %v", ErrInvalidPolygon, p)
			}
		}
	}
	return nil
}

// collinearOverlap reports whether two collinear edges share more than a
// single point.
func collinearOverlap(e1, e2 edge) bool {
	cmp := kernel.CmpX
	if kernel.CmpX(e1.a, e1.b) == 0 {
		cmp = kernel.CmpY
	}
	lo1, hi1 := ordered(cmp, e1.a, e1.b)
	lo2, hi2 := ordered(cmp, e2.a, e2.b)
	lo, hi := lo1, hi1
	if cmp(lo2, lo) > 0 {
		lo = lo2
	}
	if cmp(hi2, hi) < 0 {
		hi = hi2
	}
	return cmp(lo, hi) < 0
}

func ordered(cmp func(a, b kernel.Point2) int, a, b kernel.Point2) (kernel.Point2, kernel.Point2) {
	if cmp(a, b) > 0 {
		return b, a
	}
	return a, b
}

// overlapsInterior reports whether some boundary point of b lies strictly
// inside a.
func overlapsInterior(a, b WithHoles) bool {
	as := NewSet(a)
	for _, r := range b.Rings() {
		for i := range r {
			p, q := r.Edge(i)
			if as.Contains(p) || as.Contains(kernel.Midpoint(p, q)) {
				return true
			}
		}
	}
	return false
}
