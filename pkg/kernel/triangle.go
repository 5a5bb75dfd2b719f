package kernel

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Triangle is an original mesh triangle: three exact vertices, a float unit
// normal and the color it was loaded with. It is never mutated after load.
type Triangle struct {
	Vertices [3]Point3
	Normal   v3.Vec
	Color    ColorID
}

// NewTriangle builds a triangle whose normal is derived from the vertex
// winding.
func NewTriangle(a, b, c Point3, color ColorID) Triangle {
	t := Triangle{Vertices: [3]Point3{a, b, c}, Color: color}
	t.Normal = t.floatNormal()
	return t
}

// FloatVertices returns the vertices rounded to float64.
func (t Triangle) FloatVertices() [3]v3.Vec {
	var out [3]v3.Vec
	for i, p := range t.Vertices {
		x, y, z := p.Float64()
		out[i] = v3.Vec{X: x, Y: y, Z: z}
	}
	return out
}

func (t Triangle) floatNormal() v3.Vec {
	v := t.FloatVertices()
	n := v[1].Sub(v[0]).Cross(v[2].Sub(v[0]))
	if n.Length() == 0 {
		return n
	}
	return n.Normalize()
}

// ExactNormal returns (v1-v0) x (v2-v0) without normalization.
func (t Triangle) ExactNormal() Point3 {
	return t.Vertices[1].Sub(t.Vertices[0]).Cross(t.Vertices[2].Sub(t.Vertices[0]))
}

// Degenerate reports whether the triangle has exactly zero area.
func (t Triangle) Degenerate() bool {
	return t.ExactNormal().IsZero()
}

// Bounds returns the float axis-aligned bounding box.
func (t Triangle) Bounds() (lo, hi v3.Vec) {
	v := t.FloatVertices()
	return v[0].Min(v[1]).Min(v[2]), v[0].Max(v[1]).Max(v[2])
}

// SharedVertices returns index pairs (i in t, j in o) of exactly equal
// vertices.
func (t Triangle) SharedVertices(o Triangle) [][2]int {
	var out [][2]int
	for i, p := range t.Vertices {
		for j, q := range o.Vertices {
			if p.Equal(q) {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out
}
