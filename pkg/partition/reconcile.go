package partition

import (
	"fmt"
	"slices"

	pkgerrors "github.com/pkg/errors"

	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/logging"
)

// SharedEdge returns the exact 3-D segment shared by the two original
// triangles, ordered lexicographically.
func SharedEdge(a, b kernel.Triangle) (kernel.Point3, kernel.Point3, bool) {
	shared := a.SharedVertices(b)
	if len(shared) != 2 {
		return kernel.Point3{}, kernel.Point3{}, false
	}
	p, q := a.Vertices[shared[0][0]], a.Vertices[shared[1][0]]
	if p.Cmp(q) > 0 {
		p, q = q, p
	}
	return p, q, true
}

// EdgePoints returns the polygon vertices lying strictly inside segment
// a-b, as 3-D points sorted from a to b.
func (p *Partition) EdgePoints(a, b kernel.Point3) []kernel.Point3 {
	p.sync()
	a2, b2 := p.projector.To2D(a), p.projector.To2D(b)
	seen := make(map[string]bool)
	var out []kernel.Point3
	for _, c := range sortedKeys(p.colors) {
		for _, v := range p.colors[c].Vertices() {
			if !kernel.StrictlyInside(v, a2, b2) {
				continue
			}
			q := p.projector.To3D(v)
			k := q.Key()
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, q)
		}
	}
	slices.SortFunc(out, func(x, y kernel.Point3) int {
		return x.Sub(a).Dot(b.Sub(a)).Cmp(y.Sub(a).Dot(b.Sub(a)))
	})
	return out
}

// ReconcileSharedEdge makes both partitions carry the same vertices along
// their shared mesh edge. Each side gets the points only the other side has,
// by splitting whichever of its boundary edges contains them. The booleans
// report which side changed. Triangles that share no edge are left alone.
func (p *Partition) ReconcileSharedEdge(other *Partition) (bool, bool, error) {
	a, b, ok := SharedEdge(p.original, other.original)
	if !ok {
		return false, false, nil
	}
	mine := p.EdgePoints(a, b)
	theirs := other.EdgePoints(a, b)
	toMine := missing(mine, theirs)
	toTheirs := missing(theirs, mine)

	changedMine, err := p.insertEdgePoints(a, b, toMine)
	if err != nil {
		return false, false, err
	}
	changedTheirs, err := other.insertEdgePoints(a, b, toTheirs)
	if err != nil {
		return changedMine, false, err
	}
	if changedMine || changedTheirs {
		logging.Logger().Debug("reconciled shared edge",
			"face", p.id, "other", other.id, "to_face", len(toMine), "to_other", len(toTheirs))
	}
	return changedMine, changedTheirs, nil
}

// missing returns the points of want that are not in have.
func missing(have, want []kernel.Point3) []kernel.Point3 {
	keys := make(map[string]bool, len(have))
	for _, q := range have {
		keys[q.Key()] = true
	}
	var out []kernel.Point3
	for _, q := range want {
		if !keys[q.Key()] {
			out = append(out, q)
		}
	}
	return out
}

// insertEdgePoints splits, for every color, the boundary edges on segment
// a-b that contain each point. A point no boundary edge contains means the
// two faces disagree about the shared edge.
func (p *Partition) insertEdgePoints(a, b kernel.Point3, pts []kernel.Point3) (bool, error) {
	if len(pts) == 0 {
		return false, nil
	}
	a2, b2 := p.projector.To2D(a), p.projector.To2D(b)
	onEdge := func(u, w kernel.Point2) bool {
		return kernel.OnSegment(u, a2, b2) && kernel.OnSegment(w, a2, b2)
	}
	for _, q := range pts {
		q2 := p.projector.To2D(q)
		total := 0
		for _, c := range sortedKeys(p.colors) {
			next, n := p.colors[c].InsertPoint(q2, onEdge)
			if n > 0 {
				p.colors[c] = next
				total += n
			}
		}
		if total == 0 {
			p.record("reconcile-failed", q.String())
			return false, pkgerrors.Wrapf(ErrCorruptedGeometry, "face %d: point %v has no boundary edge on %v-%v", p.id, q, a, b)
		}
	}
	p.retriangulate()
	p.record("reconcile", fmt.Sprintf("%d points", len(pts)))
	return true, p.verifyIfEnabled()
}

// BoundaryVertices returns the polygon vertices on the original triangle's
// edge k (from vertex k to vertex k+1), endpoints included.
func (p *Partition) BoundaryVertices(k int) []kernel.Point3 {
	v := p.original.Vertices
	a, b := v[k%3], v[(k+1)%3]
	return append(append([]kernel.Point3{a}, p.EdgePoints(a, b)...), b)
}
