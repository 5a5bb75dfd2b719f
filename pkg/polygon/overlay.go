package polygon

import (
	"math/big"
	"slices"

	"github.com/chazu/facepaint/pkg/kernel"
)

// Union returns the points in a or b.
func Union(a, b Set) Set {
	return overlay(a, b, func(inA, inB bool) bool { return inA || inB })
}

// Intersect returns the points in both a and b.
func Intersect(a, b Set) Set {
	return overlay(a, b, func(inA, inB bool) bool { return inA && inB })
}

// Difference returns the points in a but not in b.
func Difference(a, b Set) Set {
	return overlay(a, b, func(inA, inB bool) bool { return inA && !inB })
}

// Normalize rebuilds s into disjoint, correctly oriented polygons-with-holes
// using the nonzero winding rule over all of its rings.
func Normalize(s Set) Set {
	return overlay(s, Set{}, func(inA, _ bool) bool { return inA })
}

type edge struct {
	a, b kernel.Point2
}

type boolOp func(inA, inB bool) bool

// overlay is an exact arrangement of both operands' edges. Every edge is
// split at every intersection, each resulting piece is classified on both of
// its sides against both operands, and the pieces that separate the result
// from its complement are linked back into rings.
func overlay(a, b Set, op boolOp) Set {
	ea := edgesOf(a)
	eb := edgesOf(b)
	all := append(append([]edge(nil), ea...), eb...)
	if len(all) == 0 {
		return Set{}
	}

	var boundary []edge
	for _, pc := range pieces(splitEdges(all)) {
		m := kernel.Midpoint(pc.a, pc.b)
		d := pc.b.Sub(pc.a)
		left := kernel.NewPoint2(new(big.Rat).Neg(d.Y), d.X)
		right := kernel.NewPoint2(d.Y, new(big.Rat).Neg(d.X))
		inL := op(winding(ea, m, left) != 0, winding(eb, m, left) != 0)
		inR := op(winding(ea, m, right) != 0, winding(eb, m, right) != 0)
		switch {
		case inL && !inR:
			boundary = append(boundary, pc)
		case inR && !inL:
			boundary = append(boundary, edge{pc.b, pc.a})
		}
	}
	return assemble(link(boundary))
}

func edgesOf(s Set) []edge {
	var out []edge
	for _, r := range s.Rings() {
		out = append(out, ringEdges(r)...)
	}
	return out
}

func ringEdges(r Ring) []edge {
	out := make([]edge, 0, len(r))
	for i := range r {
		a, b := r.Edge(i)
		if !a.Equal(b) {
			out = append(out, edge{a, b})
		}
	}
	return out
}

// splitEdges returns, per edge, its endpoints plus every point where another
// edge touches it, sorted from a to b.
func splitEdges(edges []edge) [][]kernel.Point2 {
	splits := make([][]kernel.Point2, len(edges))
	for i, e := range edges {
		splits[i] = []kernel.Point2{e.a, e.b}
	}
	for i := 0; i < len(edges); i++ {
		ei := edges[i]
		for j := i + 1; j < len(edges); j++ {
			ej := edges[j]
			p, ok, overlap := kernel.SegmentIntersection(ei.a, ei.b, ej.a, ej.b)
			switch {
			case ok:
				splits[i] = append(splits[i], p)
				splits[j] = append(splits[j], p)
			case overlap:
				for _, q := range [2]kernel.Point2{ej.a, ej.b} {
					if kernel.OnSegment(q, ei.a, ei.b) {
						splits[i] = append(splits[i], q)
					}
				}
				for _, q := range [2]kernel.Point2{ei.a, ei.b} {
					if kernel.OnSegment(q, ej.a, ej.b) {
						splits[j] = append(splits[j], q)
					}
				}
			}
		}
	}
	for i, e := range edges {
		splits[i] = sortAlong(e, splits[i])
	}
	return splits
}

func sortAlong(e edge, pts []kernel.Point2) []kernel.Point2 {
	cmp := kernel.CmpX
	if kernel.CmpX(e.a, e.b) == 0 {
		cmp = kernel.CmpY
	}
	dir := cmp(e.b, e.a)
	slices.SortFunc(pts, func(p, q kernel.Point2) int { return cmp(p, q) * dir })
	return slices.CompactFunc(pts, kernel.Point2.Equal)
}

// pieces returns the distinct sub-segments, each oriented from its
// lexicographically smaller endpoint.
func pieces(splits [][]kernel.Point2) []edge {
	seen := make(map[string]struct{})
	var out []edge
	for _, pts := range splits {
		for k := 0; k+1 < len(pts); k++ {
			p, q := pts[k], pts[k+1]
			if p.Cmp(q) > 0 {
				p, q = q, p
			}
			key := p.Key() + "|" + q.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, edge{p, q})
		}
	}
	return out
}

// winding returns the winding number of edges around m + eps*n for an
// infinitesimal eps > 0. A zero n evaluates at m itself, which must then not
// lie on any edge.
func winding(edges []edge, m, n kernel.Point2) int {
	w := 0
	for _, e := range edges {
		ya := cmpYPerturbed(e.a, m, n)
		yb := cmpYPerturbed(e.b, m, n)
		if ya <= 0 {
			if yb > 0 && sidePerturbed(e, m, n) > 0 {
				w++
			}
		} else if yb <= 0 && sidePerturbed(e, m, n) < 0 {
			w--
		}
	}
	return w
}

func cmpYPerturbed(a, m, n kernel.Point2) int {
	if c := kernel.CmpY(a, m); c != 0 {
		return c
	}
	return -n.Y.Sign()
}

func sidePerturbed(e edge, m, n kernel.Point2) int {
	if s := kernel.Orient2D(e.a, e.b, m); s != 0 {
		return s
	}
	return e.b.Sub(e.a).Cross(n).Sign()
}

// link chains directed boundary edges into rings. At a vertex with several
// outgoing edges it takes the first one clockwise from the reversed incoming
// edge, which keeps touching regions in separate rings.
func link(edges []edge) []Ring {
	outgoing := make(map[string][]int)
	for i, e := range edges {
		k := e.a.Key()
		outgoing[k] = append(outgoing[k], i)
	}
	used := make([]bool, len(edges))
	var rings []Ring
	for start := range edges {
		if used[start] {
			continue
		}
		used[start] = true
		ring := Ring{edges[start].a}
		cur := start
		for {
			u, v := edges[cur].a, edges[cur].b
			next := -1
			for _, c := range outgoing[v.Key()] {
				if used[c] && c != start {
					continue
				}
				if next == -1 || turnsFurther(v, u, edges[c].b, edges[next].b) {
					next = c
				}
			}
			if next == -1 || next == start {
				break
			}
			used[next] = true
			ring = append(ring, v)
			cur = next
		}
		rings = append(rings, ring)
	}
	return rings
}

// turnHalf buckets the counter-clockwise angle from ray v->u to ray v->b:
// 0 for no turn, 1 for (0, pi], 2 for (pi, 2pi).
func turnHalf(v, u, b kernel.Point2) int {
	switch kernel.Orient2D(v, u, b) {
	case 1:
		return 1
	case -1:
		return 2
	}
	if u.Sub(v).Dot(b.Sub(v)).Sign() < 0 {
		return 1
	}
	return 0
}

// turnsFurther reports whether b1 lies at a larger counter-clockwise angle
// from ray v->u than b2.
func turnsFurther(v, u, b1, b2 kernel.Point2) bool {
	h1, h2 := turnHalf(v, u, b1), turnHalf(v, u, b2)
	if h1 != h2 {
		return h1 > h2
	}
	return kernel.Orient2D(v, b1, b2) < 0
}

// assemble sorts rings into outers and holes by signed area and gives each
// hole to the smallest outer that contains it.
func assemble(rings []Ring) Set {
	var polys []WithHoles
	var areas []*big.Rat
	var holes []Ring
	for _, r := range rings {
		if len(r) < 3 {
			continue
		}
		a := r.SignedArea()
		switch a.Sign() {
		case 1:
			polys = append(polys, WithHoles{Outer: r})
			areas = append(areas, a)
		case -1:
			holes = append(holes, r)
		}
	}
	for _, h := range holes {
		best := -1
		for i, p := range polys {
			if !ringInside(h, p.Outer) {
				continue
			}
			if best == -1 || areas[i].Cmp(areas[best]) < 0 {
				best = i
			}
		}
		if best >= 0 {
			polys[best].Holes = append(polys[best].Holes, h)
		}
	}
	return Set{Polygons: polys}
}
