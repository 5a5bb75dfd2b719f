// Package triangulate builds constrained triangulations of exact
// polygons-with-holes. The triangulation lives in an arena of index-based
// triangles; nothing outside the package ever sees those indices.
package triangulate

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/polygon"
)

// ErrTriangulation is returned when a constrained triangulation cannot be
// built for the input.
var ErrTriangulation = errors.New("triangulate: triangulation failed")

// Triangle2 is a counter-clockwise 2-D triangle.
type Triangle2 [3]kernel.Point2

// Area returns the exact signed area.
func (t Triangle2) Area() *big.Rat {
	a := t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
	return a.Mul(a, big.NewRat(1, 2))
}

// Triangulate fills p with counter-clockwise triangles. The rings of p are
// inserted as constraints; faces are kept when they are an odd number of
// constraint crossings away from the exterior. Zero-area faces are dropped.
func Triangulate(p polygon.WithHoles) (tris []Triangle2, err error) {
	defer func() {
		if r := recover(); r != nil {
			tris = nil
			err = fmt.Errorf("%w: %v", ErrTriangulation, r)
		}
	}()
	rings := p.Rings()
	var pts []kernel.Point2
	for _, r := range rings {
		pts = append(pts, r...)
	}
	if len(pts) < 3 {
		return nil, nil
	}

	m := newMesh(pts)
	ids := make([][]int, len(rings))
	for i, r := range rings {
		for _, q := range r {
			ids[i] = append(ids[i], m.insert(q))
		}
	}
	for _, ring := range ids {
		for k := range ring {
			m.constrainEdge(ring[k], ring[(k+1)%len(ring)], 0)
		}
	}
	return m.filled(), nil
}

// TriangulateSet triangulates every polygon of s.
func TriangulateSet(s polygon.Set) ([]Triangle2, error) {
	var out []Triangle2
	for i, p := range s.Polygons {
		tris, err := Triangulate(p)
		if err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
		out = append(out, tris...)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Arena
// ---------------------------------------------------------------------------

// superCount is the number of bounding vertices at the front of pts.
const superCount = 3

type face struct {
	v    [3]int
	dead bool
}

type mesh struct {
	pts   []kernel.Point2
	index map[string]int
	faces []face
	// edges maps a directed edge to the face holding it counter-clockwise.
	edges       map[[2]int]int
	constrained map[[2]int]bool
}

func newMesh(pts []kernel.Point2) *mesh {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		x, y := p.Float64()
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	size := math.Max(math.Max(maxX-minX, maxY-minY), 1)
	cx, cy := (minX+maxX)/2, (minY+maxY)/2

	m := &mesh{
		index:       make(map[string]int),
		edges:       make(map[[2]int]int),
		constrained: make(map[[2]int]bool),
	}
	m.pts = []kernel.Point2{
		kernel.Pt2(cx-20*size, cy-10*size),
		kernel.Pt2(cx+20*size, cy-10*size),
		kernel.Pt2(cx, cy+20*size),
	}
	m.add(0, 1, 2)
	return m
}

func (m *mesh) add(a, b, c int) int {
	i := len(m.faces)
	m.faces = append(m.faces, face{v: [3]int{a, b, c}})
	m.edges[[2]int{a, b}] = i
	m.edges[[2]int{b, c}] = i
	m.edges[[2]int{c, a}] = i
	return i
}

func (m *mesh) kill(t int) {
	f := &m.faces[t]
	f.dead = true
	for k := 0; k < 3; k++ {
		e := [2]int{f.v[k], f.v[(k+1)%3]}
		if m.edges[e] == t {
			delete(m.edges, e)
		}
	}
}

// third returns the vertex of face t that is neither a nor b.
func (m *mesh) third(t, a, b int) int {
	for _, v := range m.faces[t].v {
		if v != a && v != b {
			return v
		}
	}
	panic(fmt.Sprintf("face %d has no third vertex for %d-%d", t, a, b))
}

func undirected(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func (m *mesh) isConstrained(a, b int) bool { return m.constrained[undirected(a, b)] }

func (m *mesh) hasEdge(a, b int) bool {
	_, ok := m.edges[[2]int{a, b}]
	if !ok {
		_, ok = m.edges[[2]int{b, a}]
	}
	return ok
}

// locate finds the face containing p. edge is the slot k when p lies on the
// directed edge v[k]->v[k+1], or -1 for the interior.
func (m *mesh) locate(p kernel.Point2) (t, edge int) {
	for i, f := range m.faces {
		if f.dead {
			continue
		}
		on := -1
		inside := true
		for k := 0; k < 3; k++ {
			o := kernel.Orient2D(m.pts[f.v[k]], m.pts[f.v[(k+1)%3]], p)
			if o < 0 {
				inside = false
				break
			}
			if o == 0 {
				on = k
			}
		}
		if inside {
			return i, on
		}
	}
	return -1, -1
}

// insert adds p and restores the Delaunay property around it. Duplicate
// points share one index.
func (m *mesh) insert(p kernel.Point2) int {
	key := p.Key()
	if i, ok := m.index[key]; ok {
		return i
	}
	t, edge := m.locate(p)
	if t < 0 {
		panic(fmt.Sprintf("point %v outside the bounding triangle", p))
	}
	i := len(m.pts)
	m.pts = append(m.pts, p)
	m.index[key] = i

	v := m.faces[t].v
	if edge < 0 {
		m.kill(t)
		m.add(v[0], v[1], i)
		m.add(v[1], v[2], i)
		m.add(v[2], v[0], i)
		m.legalize(v[0], v[1], i)
		m.legalize(v[1], v[2], i)
		m.legalize(v[2], v[0], i)
		return i
	}

	a, b, c := v[edge], v[(edge+1)%3], v[(edge+2)%3]
	n, hasN := m.edges[[2]int{b, a}]
	m.kill(t)
	m.add(a, i, c)
	m.add(i, b, c)
	d := -1
	if hasN {
		d = m.third(n, a, b)
		m.kill(n)
		m.add(b, i, d)
		m.add(i, a, d)
	}
	if m.isConstrained(a, b) {
		delete(m.constrained, undirected(a, b))
		m.constrained[undirected(a, i)] = true
		m.constrained[undirected(i, b)] = true
	}
	m.legalize(c, a, i)
	m.legalize(b, c, i)
	if hasN {
		m.legalize(d, b, i)
		m.legalize(a, d, i)
	}
	return i
}

// legalize flips edge a-b, held by the face (a, b, p), when the opposite
// vertex lies inside that face's circumcircle.
func (m *mesh) legalize(a, b, p int) {
	if m.isConstrained(a, b) {
		return
	}
	t, ok := m.edges[[2]int{a, b}]
	if !ok {
		return
	}
	n, ok := m.edges[[2]int{b, a}]
	if !ok {
		return
	}
	q := m.third(n, b, a)
	if inCircle(m.pts[a], m.pts[b], m.pts[p], m.pts[q]) <= 0 {
		return
	}
	if !m.crossesProperly(p, q, a, b) {
		return
	}
	m.kill(t)
	m.kill(n)
	m.add(p, a, q)
	m.add(p, q, b)
	m.legalize(a, q, p)
	m.legalize(q, b, p)
}

// crossesProperly reports whether segments p-q and a-b cross at a single
// point interior to both.
func (m *mesh) crossesProperly(p, q, a, b int) bool {
	pp, pq, pa, pb := m.pts[p], m.pts[q], m.pts[a], m.pts[b]
	o1 := kernel.Orient2D(pp, pq, pa)
	o2 := kernel.Orient2D(pp, pq, pb)
	if o1 == 0 || o2 == 0 || o1 == o2 {
		return false
	}
	o3 := kernel.Orient2D(pa, pb, pp)
	o4 := kernel.Orient2D(pa, pb, pq)
	return o3 != 0 && o4 != 0 && o3 != o4
}

// maxConstraintDepth bounds the recursion that splits a constraint at
// collinear vertices.
const maxConstraintDepth = 64

// constrainEdge forces a-b into the triangulation by flipping every edge it
// crosses. A vertex lying on a-b splits the constraint in two.
func (m *mesh) constrainEdge(a, b, depth int) {
	if a == b {
		return
	}
	if depth > maxConstraintDepth {
		panic(fmt.Sprintf("constraint %d-%d nests too deeply", a, b))
	}
	if m.hasEdge(a, b) {
		m.constrained[undirected(a, b)] = true
		return
	}
	for c := superCount; c < len(m.pts); c++ {
		if c != a && c != b && kernel.StrictlyInside(m.pts[c], m.pts[a], m.pts[b]) {
			m.constrainEdge(a, c, depth+1)
			m.constrainEdge(c, b, depth+1)
			return
		}
	}

	crossing := m.crossingEdges(a, b)
	limit := 64 * (len(crossing) + 1) * (len(crossing) + 1)
	for steps := 0; len(crossing) > 0; steps++ {
		if steps > limit {
			panic(fmt.Sprintf("constraint %d-%d did not converge", a, b))
		}
		e := crossing[0]
		crossing = crossing[1:]
		u, v := e[0], e[1]
		if m.isConstrained(u, v) {
			panic(fmt.Sprintf("constraints %d-%d and %d-%d cross", a, b, u, v))
		}
		t, ok1 := m.edges[[2]int{u, v}]
		n, ok2 := m.edges[[2]int{v, u}]
		if !ok1 || !ok2 {
			panic(fmt.Sprintf("crossed edge %d-%d is not interior", u, v))
		}
		p := m.third(t, u, v)
		q := m.third(n, v, u)
		if !m.crossesProperly(p, q, u, v) {
			crossing = append(crossing, e)
			continue
		}
		m.kill(t)
		m.kill(n)
		m.add(p, u, q)
		m.add(p, q, v)
		if m.crossesProperly(p, q, a, b) {
			crossing = append(crossing, [2]int{p, q})
		}
	}
	if !m.hasEdge(a, b) {
		panic(fmt.Sprintf("constraint %d-%d missing after flips", a, b))
	}
	m.constrained[undirected(a, b)] = true
}

// crossingEdges lists the undirected edges that a-b crosses properly.
func (m *mesh) crossingEdges(a, b int) [][2]int {
	seen := make(map[[2]int]bool)
	var out [][2]int
	for _, f := range m.faces {
		if f.dead {
			continue
		}
		for k := 0; k < 3; k++ {
			e := undirected(f.v[k], f.v[(k+1)%3])
			if seen[e] {
				continue
			}
			seen[e] = true
			if m.crossesProperly(a, b, e[0], e[1]) {
				out = append(out, e)
			}
		}
	}
	return out
}

// filled classifies faces by nesting level, flooding from the faces around
// the bounding vertices (level 0) and adding one per constrained edge
// crossed. Odd levels are inside.
func (m *mesh) filled() []Triangle2 {
	level := make([]int, len(m.faces))
	for i := range level {
		level[i] = -1
	}
	var current []int
	for i, f := range m.faces {
		if !f.dead && f.hasSuper() {
			current = append(current, i)
		}
	}
	for lvl := 0; len(current) > 0; lvl++ {
		var next []int
		stack := current
		for len(stack) > 0 {
			t := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if level[t] != -1 {
				continue
			}
			level[t] = lvl
			f := m.faces[t]
			for k := 0; k < 3; k++ {
				a, b := f.v[k], f.v[(k+1)%3]
				n, ok := m.edges[[2]int{b, a}]
				if !ok || level[n] != -1 {
					continue
				}
				if m.isConstrained(a, b) {
					next = append(next, n)
				} else {
					stack = append(stack, n)
				}
			}
		}
		current = next
	}

	var out []Triangle2
	for i, f := range m.faces {
		if f.dead || level[i]%2 != 1 || f.hasSuper() {
			continue
		}
		tri := Triangle2{m.pts[f.v[0]], m.pts[f.v[1]], m.pts[f.v[2]]}
		if kernel.Orient2D(tri[0], tri[1], tri[2]) <= 0 {
			continue
		}
		out = append(out, tri)
	}
	return out
}

func (f face) hasSuper() bool {
	return f.v[0] < superCount || f.v[1] < superCount || f.v[2] < superCount
}

// inCircle is positive when d lies inside the circumcircle of the
// counter-clockwise triangle abc.
func inCircle(a, b, c, d kernel.Point2) int {
	ax, ay := a.Float64()
	bx, by := b.Float64()
	cx, cy := c.Float64()
	dx, dy := d.Float64()
	adx, ady := ax-dx, ay-dy
	bdx, bdy := bx-dx, by-dy
	cdx, cdy := cx-dx, cy-dy
	alift := adx*adx + ady*ady
	blift := bdx*bdx + bdy*bdy
	clift := cdx*cdx + cdy*cdy
	det := adx*(bdy*clift-cdy*blift) - ady*(bdx*clift-cdx*blift) + alift*(bdx*cdy-cdx*bdy)
	perm := math.Abs(adx)*(math.Abs(bdy)*clift+math.Abs(cdy)*blift) +
		math.Abs(ady)*(math.Abs(bdx)*clift+math.Abs(cdx)*blift) +
		alift*(math.Abs(bdx*cdy)+math.Abs(cdx*bdy))
	if !math.IsInf(perm, 0) && !math.IsNaN(det) {
		bound := 1e-10 * perm
		if det > bound {
			return 1
		}
		if det < -bound {
			return -1
		}
	}
	return inCircleExact(a, b, c, d)
}

func inCircleExact(a, b, c, d kernel.Point2) int {
	ad, bd, cd := a.Sub(d), b.Sub(d), c.Sub(d)
	alift := ad.Dot(ad)
	blift := bd.Dot(bd)
	clift := cd.Dot(cd)
	t1 := new(big.Rat).Mul(ad.X, new(big.Rat).Sub(new(big.Rat).Mul(bd.Y, clift), new(big.Rat).Mul(cd.Y, blift)))
	t2 := new(big.Rat).Mul(ad.Y, new(big.Rat).Sub(new(big.Rat).Mul(bd.X, clift), new(big.Rat).Mul(cd.X, blift)))
	t3 := new(big.Rat).Mul(alift, bd.Cross(cd))
	det := new(big.Rat).Sub(t1, t2)
	det.Add(det, t3)
	return det.Sign()
}
