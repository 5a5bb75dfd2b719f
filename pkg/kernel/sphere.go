package kernel

import (
	"math"
	"math/big"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Sphere is a spherical brush.
type Sphere struct {
	Center Point3
	Radius float64
}

// SquaredRadius returns the exact squared radius.
func (s Sphere) SquaredRadius() *big.Rat {
	r := Rat(s.Radius)
	return mul(r, r)
}

// Circle is the intersection of a sphere with a supporting plane.
type Circle struct {
	Center        Point3
	SquaredRadius *big.Rat
}

// Radius returns the float radius.
func (c Circle) Radius() float64 {
	return math.Sqrt(toFloat(c.SquaredRadius))
}

// FloatCenter returns the center rounded to float64.
func (c Circle) FloatCenter() v3.Vec {
	x, y, z := c.Center.Float64()
	return v3.Vec{X: x, Y: y, Z: z}
}

// IntersectSphere intersects s with the supporting plane. The result is
// false when they do not meet or only touch in a single point.
func (p *Projector) IntersectSphere(s Sphere) (Circle, bool) {
	nn := p.normal.Dot(p.normal)
	k := quo(s.Center.Sub(p.origin).Dot(p.normal), nn)
	dist2 := mul(mul(k, k), nn)
	r2 := sub(s.SquaredRadius(), dist2)
	if r2.Sign() <= 0 {
		return Circle{}, false
	}
	center := s.Center.Sub(p.normal.Scale(k))
	return Circle{Center: center, SquaredRadius: r2}, true
}

// SegmentSphere returns the parameters t in [0,1] at which the segment
// a + t(b-a) crosses the surface of s. The computation is float; callers
// turn each t into an exact point on the segment.
func SegmentSphere(a, b Point3, s Sphere) []float64 {
	ax, ay, az := a.Float64()
	bx, by, bz := b.Float64()
	cx, cy, cz := s.Center.Float64()
	d := v3.Vec{X: bx - ax, Y: by - ay, Z: bz - az}
	f := v3.Vec{X: ax - cx, Y: ay - cy, Z: az - cz}
	qa := d.Dot(d)
	if qa == 0 {
		return nil
	}
	qb := 2 * f.Dot(d)
	qc := f.Dot(f) - s.Radius*s.Radius
	disc := qb*qb - 4*qa*qc
	if disc <= 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	var out []float64
	for _, t := range []float64{(-qb - sq) / (2 * qa), (-qb + sq) / (2 * qa)} {
		if t > 0 && t < 1 {
			out = append(out, t)
		}
	}
	return out
}

// Lerp3 returns a + t(b-a).
func Lerp3(a, b Point3, t *big.Rat) Point3 {
	return a.Add(b.Sub(a).Scale(t))
}
