package kernel

import (
	"fmt"
	"math/big"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Projector maps points between 3-D and the affine frame of a triangle's
// supporting plane. The frame has its origin at v0 and axes v1-v0 and v2-v0,
// so the triangle itself projects exactly onto (0,0), (1,0), (0,1).
type Projector struct {
	origin Point3
	e1, e2 Point3
	normal Point3

	g11, g12, g22 *big.Rat
	det           *big.Rat

	xBase, yBase v3.Vec
}

// NewProjector builds the frame of triangle abc. A zero-area triangle has no
// supporting plane and is rejected.
func NewProjector(a, b, c Point3) (*Projector, error) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	n := e1.Cross(e2)
	if n.IsZero() {
		return nil, fmt.Errorf("kernel: projector for %v %v %v: %w", a, b, c, ErrDegenerateTriangle)
	}
	p := &Projector{
		origin: a,
		e1:     e1,
		e2:     e2,
		normal: n,
		g11:    e1.Dot(e1),
		g12:    e1.Dot(e2),
		g22:    e2.Dot(e2),
	}
	p.det = sub(mul(p.g11, p.g22), mul(p.g12, p.g12))

	fx, fy, fz := e1.Float64()
	x := v3.Vec{X: fx, Y: fy, Z: fz}.Normalize()
	nx, ny, nz := n.Float64()
	fn := v3.Vec{X: nx, Y: ny, Z: nz}.Normalize()
	p.xBase = x
	p.yBase = fn.Cross(x).Normalize()
	return p, nil
}

// ProjectorFor is NewProjector over a Triangle.
func ProjectorFor(t Triangle) (*Projector, error) {
	return NewProjector(t.Vertices[0], t.Vertices[1], t.Vertices[2])
}

// To2D returns the frame coordinates of q. Points off the plane are
// projected orthogonally onto it first.
func (p *Projector) To2D(q Point3) Point2 {
	d := q.Sub(p.origin)
	r1 := d.Dot(p.e1)
	r2 := d.Dot(p.e2)
	u := quo(sub(mul(p.g22, r1), mul(p.g12, r2)), p.det)
	v := quo(sub(mul(p.g11, r2), mul(p.g12, r1)), p.det)
	return NewPoint2(u, v)
}

// To3D maps frame coordinates back onto the plane.
func (p *Projector) To3D(q Point2) Point3 {
	return p.origin.Add(p.e1.Scale(q.X)).Add(p.e2.Scale(q.Y))
}

// Bounds returns the projected triangle, counter-clockwise.
func (p *Projector) Bounds() [3]Point2 {
	return [3]Point2{Pt2(0, 0), Pt2(1, 0), Pt2(0, 1)}
}

// Normal returns the exact unnormalized plane normal e1 x e2.
func (p *Projector) Normal() Point3 { return p.normal }

// Origin returns the frame origin (the first triangle vertex).
func (p *Projector) Origin() Point3 { return p.origin }

// Bases returns a float orthonormal in-plane basis.
func (p *Projector) Bases() (x, y v3.Vec) { return p.xBase, p.yBase }

// FloatNormal returns the unit plane normal.
func (p *Projector) FloatNormal() v3.Vec { return p.xBase.Cross(p.yBase) }

// OnPlane reports whether q lies exactly on the supporting plane.
func (p *Projector) OnPlane(q Point3) bool {
	return q.Sub(p.origin).Dot(p.normal).Sign() == 0
}
