package kernel

import (
	"math"
	"math/big"
)

// ---------------------------------------------------------------------------
// Rational helpers
// ---------------------------------------------------------------------------

// Rat returns the exact rational value of f. Non-finite values map to zero;
// callers validate input with Finite first.
func Rat(f float64) *big.Rat {
	r := new(big.Rat)
	if r.SetFloat64(f) == nil {
		return new(big.Rat)
	}
	return r
}

// Finite reports whether every value is a finite float.
func Finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func add(a, b *big.Rat) *big.Rat { return new(big.Rat).Add(a, b) }
func sub(a, b *big.Rat) *big.Rat { return new(big.Rat).Sub(a, b) }
func mul(a, b *big.Rat) *big.Rat { return new(big.Rat).Mul(a, b) }
func quo(a, b *big.Rat) *big.Rat { return new(big.Rat).Quo(a, b) }

func toFloat(r *big.Rat) float64 {
	f, _ := r.Float64()
	return f
}

// filterEps scales the float error bound used before falling back to exact
// arithmetic. It is many orders of magnitude above double rounding error.
const filterEps = 1e-10

// ---------------------------------------------------------------------------
// Point2
// ---------------------------------------------------------------------------

// Point2 is an exact 2-D point. Its coordinates must never be mutated after
// construction; every operation returns fresh values.
type Point2 struct {
	X, Y   *big.Rat
	fx, fy float64
}

// NewPoint2 builds a point from exact coordinates.
func NewPoint2(x, y *big.Rat) Point2 {
	return Point2{X: x, Y: y, fx: toFloat(x), fy: toFloat(y)}
}

// Pt2 builds a point from float coordinates, converted exactly.
func Pt2(x, y float64) Point2 {
	return NewPoint2(Rat(x), Rat(y))
}

// Float64 returns the nearest float coordinates.
func (p Point2) Float64() (x, y float64) { return p.fx, p.fy }

// Equal reports exact equality.
func (p Point2) Equal(q Point2) bool {
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

// Cmp orders points lexicographically by X then Y.
func (p Point2) Cmp(q Point2) int {
	if c := p.X.Cmp(q.X); c != 0 {
		return c
	}
	return p.Y.Cmp(q.Y)
}

// Key is a canonical text form usable as a map key.
func (p Point2) Key() string {
	return p.X.RatString() + "," + p.Y.RatString()
}

func (p Point2) String() string { return "(" + p.Key() + ")" }

// Sub returns p - q as a vector.
func (p Point2) Sub(q Point2) Point2 { return NewPoint2(sub(p.X, q.X), sub(p.Y, q.Y)) }

// Add returns p + q.
func (p Point2) Add(q Point2) Point2 { return NewPoint2(add(p.X, q.X), add(p.Y, q.Y)) }

// Scale returns p * s.
func (p Point2) Scale(s *big.Rat) Point2 { return NewPoint2(mul(p.X, s), mul(p.Y, s)) }

// Cross returns the z component of p x q.
func (p Point2) Cross(q Point2) *big.Rat {
	return sub(mul(p.X, q.Y), mul(p.Y, q.X))
}

// Dot returns p . q.
func (p Point2) Dot(q Point2) *big.Rat {
	return add(mul(p.X, q.X), mul(p.Y, q.Y))
}

// Midpoint returns the exact midpoint of p and q.
func Midpoint(p, q Point2) Point2 {
	half := big.NewRat(1, 2)
	return NewPoint2(mul(add(p.X, q.X), half), mul(add(p.Y, q.Y), half))
}

// Lerp returns a + t*(b-a).
func Lerp(a, b Point2, t *big.Rat) Point2 {
	return a.Add(b.Sub(a).Scale(t))
}

// Orient2D returns +1 if a, b, c turn counter-clockwise, -1 if clockwise and
// 0 if collinear. The sign is exact: a float evaluation is trusted only when
// it clears a conservative error bound.
func Orient2D(a, b, c Point2) int {
	det := (b.fx-a.fx)*(c.fy-a.fy) - (b.fy-a.fy)*(c.fx-a.fx)
	m := maxAbs(a.fx, a.fy, b.fx, b.fy, c.fx, c.fy)
	if !math.IsInf(m, 0) && !math.IsNaN(det) {
		bound := filterEps * m * m
		if det > bound {
			return 1
		}
		if det < -bound {
			return -1
		}
	}
	return b.Sub(a).Cross(c.Sub(a)).Sign()
}

// CmpX and CmpY compare single coordinates with a float filter.
func CmpX(a, b Point2) int { return cmpFiltered(a.fx, b.fx, a.X, b.X) }

// CmpY compares the Y coordinates of a and b.
func CmpY(a, b Point2) int { return cmpFiltered(a.fy, b.fy, a.Y, b.Y) }

func cmpFiltered(fa, fb float64, ra, rb *big.Rat) int {
	d := fa - fb
	bound := filterEps * maxAbs(fa, fb)
	if d > bound {
		return 1
	}
	if d < -bound {
		return -1
	}
	return ra.Cmp(rb)
}

// OnSegment reports whether p lies on the closed segment ab.
func OnSegment(p, a, b Point2) bool {
	if Orient2D(a, b, p) != 0 {
		return false
	}
	return inRange(p.X, a.X, b.X) && inRange(p.Y, a.Y, b.Y)
}

// StrictlyInside reports whether p lies on segment ab but is not an endpoint.
func StrictlyInside(p, a, b Point2) bool {
	return OnSegment(p, a, b) && !p.Equal(a) && !p.Equal(b)
}

func inRange(v, a, b *big.Rat) bool {
	if a.Cmp(b) > 0 {
		a, b = b, a
	}
	return v.Cmp(a) >= 0 && v.Cmp(b) <= 0
}

func maxAbs(vals ...float64) float64 {
	m := 0.0
	for _, v := range vals {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

// BoxesOverlap is a conservative float test: false means the segments ab and
// cd certainly do not touch.
func BoxesOverlap(a, b, c, d Point2) bool {
	pad := filterEps * maxAbs(a.fx, a.fy, b.fx, b.fy, c.fx, c.fy, d.fx, d.fy)
	if math.Max(a.fx, b.fx)+pad < math.Min(c.fx, d.fx) || math.Max(c.fx, d.fx)+pad < math.Min(a.fx, b.fx) {
		return false
	}
	if math.Max(a.fy, b.fy)+pad < math.Min(c.fy, d.fy) || math.Max(c.fy, d.fy)+pad < math.Min(a.fy, b.fy) {
		return false
	}
	return true
}

// SegmentIntersection computes the exact intersection of segments ab and cd.
// For a proper or touching single-point intersection it returns that point
// and ok. Collinear overlapping segments return ok=false and overlap=true;
// callers handle overlaps through endpoint containment.
func SegmentIntersection(a, b, c, d Point2) (p Point2, ok bool, overlap bool) {
	if !BoxesOverlap(a, b, c, d) {
		return Point2{}, false, false
	}
	o1 := Orient2D(a, b, c)
	o2 := Orient2D(a, b, d)
	if o1 == 0 && o2 == 0 {
		touches := OnSegment(c, a, b) || OnSegment(d, a, b) || OnSegment(a, c, d) || OnSegment(b, c, d)
		return Point2{}, false, touches
	}
	if o1 != 0 && o1 == o2 {
		return Point2{}, false, false
	}
	o3 := Orient2D(c, d, a)
	o4 := Orient2D(c, d, b)
	if o3 != 0 && o3 == o4 {
		return Point2{}, false, false
	}
	switch {
	case o1 == 0:
		return c, true, false
	case o2 == 0:
		return d, true, false
	case o3 == 0:
		return a, true, false
	case o4 == 0:
		return b, true, false
	}
	r := b.Sub(a)
	s := d.Sub(c)
	t := quo(c.Sub(a).Cross(s), r.Cross(s))
	return Lerp(a, b, t), true, false
}

// ---------------------------------------------------------------------------
// Point3
// ---------------------------------------------------------------------------

// Point3 is an exact 3-D point, also used as an exact vector.
type Point3 struct {
	X, Y, Z    *big.Rat
	fx, fy, fz float64
}

// NewPoint3 builds a point from exact coordinates.
func NewPoint3(x, y, z *big.Rat) Point3 {
	return Point3{X: x, Y: y, Z: z, fx: toFloat(x), fy: toFloat(y), fz: toFloat(z)}
}

// Pt3 builds a point from float coordinates, converted exactly.
func Pt3(x, y, z float64) Point3 {
	return NewPoint3(Rat(x), Rat(y), Rat(z))
}

// Float64 returns the nearest float coordinates.
func (p Point3) Float64() (x, y, z float64) { return p.fx, p.fy, p.fz }

// Equal reports exact equality.
func (p Point3) Equal(q Point3) bool {
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0 && p.Z.Cmp(q.Z) == 0
}

// Cmp orders points lexicographically.
func (p Point3) Cmp(q Point3) int {
	if c := p.X.Cmp(q.X); c != 0 {
		return c
	}
	if c := p.Y.Cmp(q.Y); c != 0 {
		return c
	}
	return p.Z.Cmp(q.Z)
}

// Key is a canonical text form usable as a map key.
func (p Point3) Key() string {
	return p.X.RatString() + "," + p.Y.RatString() + "," + p.Z.RatString()
}

func (p Point3) String() string { return "(" + p.Key() + ")" }

// Sub returns p - q.
func (p Point3) Sub(q Point3) Point3 {
	return NewPoint3(sub(p.X, q.X), sub(p.Y, q.Y), sub(p.Z, q.Z))
}

// Add returns p + q.
func (p Point3) Add(q Point3) Point3 {
	return NewPoint3(add(p.X, q.X), add(p.Y, q.Y), add(p.Z, q.Z))
}

// Scale returns p * s.
func (p Point3) Scale(s *big.Rat) Point3 {
	return NewPoint3(mul(p.X, s), mul(p.Y, s), mul(p.Z, s))
}

// Dot returns p . q.
func (p Point3) Dot(q Point3) *big.Rat {
	return add(add(mul(p.X, q.X), mul(p.Y, q.Y)), mul(p.Z, q.Z))
}

// Cross returns p x q.
func (p Point3) Cross(q Point3) Point3 {
	return NewPoint3(
		sub(mul(p.Y, q.Z), mul(p.Z, q.Y)),
		sub(mul(p.Z, q.X), mul(p.X, q.Z)),
		sub(mul(p.X, q.Y), mul(p.Y, q.X)),
	)
}

// IsZero reports whether all coordinates are exactly zero.
func (p Point3) IsZero() bool {
	return p.X.Sign() == 0 && p.Y.Sign() == 0 && p.Z.Sign() == 0
}
