package graph

import (
	"fmt"
	"slices"

	"github.com/chazu/facepaint/pkg/kernel"
)

// FaceID indexes a face in the mesh the graph was built from.
type FaceID int

// NoFace marks an edge slot without a neighbour.
const NoFace FaceID = -1

// EdgeKey identifies an undirected mesh edge by the canonical text of its
// endpoints, smaller key first.
type EdgeKey struct {
	A, B string
}

// NewEdgeKey builds the key of the edge between p and q.
func NewEdgeKey(p, q kernel.Point3) EdgeKey {
	a, b := p.Key(), q.Key()
	if b < a {
		a, b = b, a
	}
	return EdgeKey{A: a, B: b}
}

func (k EdgeKey) String() string {
	return fmt.Sprintf("(%s)-(%s)", k.A, k.B)
}

// FaceGraph is the adjacency structure of a mesh. It is immutable after
// Build; every paint operation reads it without locking.
type FaceGraph struct {
	Faces []kernel.Triangle
	Edges map[EdgeKey][]FaceID
	slots [][3]EdgeKey
}

// Build indexes the edges of every face.
func Build(faces []kernel.Triangle) *FaceGraph {
	g := &FaceGraph{
		Faces: faces,
		Edges: make(map[EdgeKey][]FaceID, len(faces)*3/2),
		slots: make([][3]EdgeKey, len(faces)),
	}
	for i, f := range faces {
		for k := 0; k < 3; k++ {
			key := NewEdgeKey(f.Vertices[k], f.Vertices[(k+1)%3])
			g.slots[i][k] = key
			if !slices.Contains(g.Edges[key], FaceID(i)) {
				g.Edges[key] = append(g.Edges[key], FaceID(i))
			}
		}
	}
	return g
}

// FaceCount returns the number of faces.
func (g *FaceGraph) FaceCount() int { return len(g.Faces) }

// Face returns face f.
func (g *FaceGraph) Face(f FaceID) kernel.Triangle { return g.Faces[f] }

// Valid reports whether f indexes a face.
func (g *FaceGraph) Valid(f FaceID) bool { return f >= 0 && int(f) < len(g.Faces) }

// EdgeOf returns the key of edge slot k of face f (vertex k to vertex k+1).
func (g *FaceGraph) EdgeOf(f FaceID, k int) EdgeKey { return g.slots[f][k%3] }

// Neighbors returns, per edge slot, the first other face sharing that edge,
// or NoFace. Non-manifold edges report their lowest-numbered other face;
// use EdgeFaces for all of them.
func (g *FaceGraph) Neighbors(f FaceID) [3]FaceID {
	out := [3]FaceID{NoFace, NoFace, NoFace}
	for k, key := range g.slots[f] {
		for _, o := range g.Edges[key] {
			if o != f {
				out[k] = o
				break
			}
		}
	}
	return out
}

// Adjacent returns every face sharing an edge with f, ascending and without
// duplicates.
func (g *FaceGraph) Adjacent(f FaceID) []FaceID {
	var out []FaceID
	for _, key := range g.slots[f] {
		for _, o := range g.Edges[key] {
			if o != f && !slices.Contains(out, o) {
				out = append(out, o)
			}
		}
	}
	slices.Sort(out)
	return out
}

// EdgeFaces returns the faces incident to the edge with key k.
func (g *FaceGraph) EdgeFaces(k EdgeKey) []FaceID { return g.Edges[k] }

// SharedEdge returns the slot index on a and on b of their common edge.
func (g *FaceGraph) SharedEdge(a, b FaceID) (ka, kb int, ok bool) {
	for i, key := range g.slots[a] {
		for j, other := range g.slots[b] {
			if key == other {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// Walk visits faces breadth-first from start across shared edges. cross
// reports whether the walk may step from one face to a neighbour. Walk
// returns the reached faces in visiting order, start first.
func (g *FaceGraph) Walk(start FaceID, cross func(from, to FaceID) bool) []FaceID {
	if !g.Valid(start) {
		return nil
	}
	seen := map[FaceID]bool{start: true}
	order := []FaceID{start}
	queue := []FaceID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Adjacent(cur) {
			if seen[next] {
				continue
			}
			if !cross(cur, next) {
				continue
			}
			seen[next] = true
			order = append(order, next)
			queue = append(queue, next)
		}
	}
	return order
}
