package geometry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/facepaint/pkg/graph"
	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/partition"
)

// job is one face painted in phase 1.
type job struct {
	face    int
	p       *partition.Partition
	created bool
	paint   func(p *partition.Partition) (bool, error)
}

// run paints every job in parallel, drops partitions created for faces
// that did not change and reconciles the touched faces. g.mu must be held.
func (g *Geometry) run(jobs []job) ([]int, error) {
	changed := make([]bool, len(jobs))
	var eg errgroup.Group
	eg.SetLimit(g.settings.Workers)
	for i, j := range jobs {
		eg.Go(func() error {
			ok, err := j.paint(j.p)
			if errors.Is(err, partition.ErrEmptyIntersection) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("geometry: face %d: %w", j.face, err)
			}
			changed[i] = ok
			return nil
		})
	}
	err := eg.Wait()

	var touched []int
	for i, j := range jobs {
		switch {
		case changed[i]:
			touched = append(touched, j.face)
		case j.created:
			g.release(j.face)
		}
	}
	if err != nil {
		return touched, err
	}
	return touched, g.reconciler().Run(touched)
}

// projector returns the 2-D frame of face f without creating a partition.
func (g *Geometry) projector(f int) (*kernel.Projector, error) {
	if p, ok := g.partitions[f]; ok {
		return p.Projector(), nil
	}
	return kernel.ProjectorFor(g.Face(f))
}

// PaintSphere paints color c on every face inside sphere s and returns the
// faces that received paint.
func (g *Geometry) PaintSphere(ctx context.Context, s kernel.Sphere, c kernel.ColorID) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cx, cy, cz := s.Center.Float64()
	if !kernel.Finite(cx, cy, cz, s.Radius) || s.Radius <= 0 {
		return nil, fmt.Errorf("%w: sphere radius %g", partition.ErrInvalidShape, s.Radius)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkColor(c); err != nil {
		return nil, err
	}

	center := v3.Vec{X: cx, Y: cy, Z: cz}
	ext := v3.Vec{X: s.Radius, Y: s.Radius, Z: s.Radius}
	var jobs []job
	for _, f := range g.candidates(center.Sub(ext), center.Add(ext)) {
		proj, err := g.projector(f)
		if err != nil {
			return nil, err
		}
		if _, ok := proj.IntersectSphere(s); !ok {
			continue
		}
		p, created, err := g.partitionFor(f)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job{face: f, p: p, created: created, paint: func(p *partition.Partition) (bool, error) {
			return p.PaintCircle(s, c)
		}})
	}
	return g.run(jobs)
}

// PaintShape projects the closed polygon points along direction onto every
// face it lands on and paints it with c. Faces turned away from the brush
// (normal along direction) are skipped unless backfaces is set.
func (g *Geometry) PaintShape(ctx context.Context, points []kernel.Point3, direction v3.Vec, c kernel.ColorID, backfaces bool) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(points) < 3 {
		return nil, fmt.Errorf("%w: %d points", partition.ErrInvalidShape, len(points))
	}
	if !kernel.Finite(direction.X, direction.Y, direction.Z) || direction.Length() == 0 {
		return nil, fmt.Errorf("%w: direction %v", partition.ErrInvalidShape, direction)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkColor(c); err != nil {
		return nil, err
	}

	d := kernel.Pt3(direction.X, direction.Y, direction.Z)
	lo, hi := shapeBounds(points)
	mlo, mhi := g.meshBounds()
	reach := mhi.Sub(mlo).Length() + hi.Sub(lo).Length() + hi.Sub(mlo).Length()
	sweep := direction.Normalize().MulScalar(reach)
	lo = lo.Min(lo.Add(sweep)).Min(lo.Sub(sweep))
	hi = hi.Max(hi.Add(sweep)).Max(hi.Sub(sweep))

	var jobs []job
	for _, f := range g.candidates(lo, hi) {
		face := g.Face(f)
		n := face.ExactNormal()
		nd := n.Dot(d)
		if nd.Sign() == 0 || (!backfaces && nd.Sign() > 0) {
			continue
		}
		projected := projectAlong(points, d, face.Vertices[0], n, nd)
		p, created, err := g.partitionFor(f)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job{face: f, p: p, created: created, paint: func(p *partition.Partition) (bool, error) {
			return p.PaintPolygon3D(projected, c)
		}})
	}
	return g.run(jobs)
}

// projectAlong moves each point along d onto the plane through origin with
// normal n; nd is n.d.
func projectAlong(points []kernel.Point3, d, origin, n kernel.Point3, nd *big.Rat) []kernel.Point3 {
	out := make([]kernel.Point3, len(points))
	for i, q := range points {
		t := n.Dot(origin.Sub(q))
		t.Quo(t, nd)
		out[i] = q.Add(d.Scale(t))
	}
	return out
}

func shapeBounds(points []kernel.Point3) (lo, hi v3.Vec) {
	for i, q := range points {
		x, y, z := q.Float64()
		v := v3.Vec{X: x, Y: y, Z: z}
		if i == 0 {
			lo, hi = v, v
			continue
		}
		lo, hi = lo.Min(v), hi.Max(v)
	}
	return lo, hi
}

// PaintFaces paints whole faces with c. Faces without a partition only
// change their base color.
func (g *Geometry) PaintFaces(ctx context.Context, faces []int, c kernel.ColorID) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paintFaces(faces, c)
}

func (g *Geometry) paintFaces(faces []int, c kernel.ColorID) ([]int, error) {
	if err := g.checkColor(c); err != nil {
		return nil, err
	}
	var jobs []job
	var recolored []int
	for _, f := range slices.Compact(slices.Sorted(slices.Values(faces))) {
		if err := g.checkFace(f); err != nil {
			return nil, err
		}
		p, ok := g.partitions[f]
		if !ok {
			if g.base[f] != c {
				g.base[f] = c
				recolored = append(recolored, f)
				g.record("recolor", f, fmt.Sprintf("color %d", c))
			}
			continue
		}
		jobs = append(jobs, job{face: f, p: p, paint: func(p *partition.Partition) (bool, error) {
			return p.PaintAll(c)
		}})
	}
	touched, err := g.run(jobs)
	touched = append(touched, recolored...)
	slices.Sort(touched)
	return touched, err
}

// BucketMode selects when a bucket fill spreads to a neighbouring face.
type BucketMode int

const (
	BucketConnected BucketMode = iota // every connected face
	BucketSameColor                   // faces with the same colors as the start face
	BucketNormal                      // faces whose normal is within an angle of the start face
)

func (m BucketMode) String() string {
	switch m {
	case BucketConnected:
		return "connected"
	case BucketSameColor:
		return "same-color"
	case BucketNormal:
		return "normal"
	default:
		return fmt.Sprintf("BucketMode(%d)", int(m))
	}
}

// ParseBucketMode is the inverse of BucketMode.String.
func ParseBucketMode(s string) (BucketMode, error) {
	for m := BucketConnected; m <= BucketNormal; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("geometry: unknown bucket mode %q", s)
}

// Bucket returns the faces reached breadth-first from start. maxAngle (in
// degrees) is only used by BucketNormal.
func (g *Geometry) Bucket(start int, mode BucketMode, maxAngle float64) ([]int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bucket(start, mode, maxAngle)
}

func (g *Geometry) bucket(start int, mode BucketMode, maxAngle float64) ([]int, error) {
	if err := g.checkFace(start); err != nil {
		return nil, err
	}
	var cross func(from, to graph.FaceID) bool
	switch mode {
	case BucketConnected:
		cross = func(graph.FaceID, graph.FaceID) bool { return true }
	case BucketSameColor:
		want := g.colorsOf(start)
		cross = func(_, to graph.FaceID) bool { return slices.Equal(g.colorsOf(int(to)), want) }
	case BucketNormal:
		n := g.Face(start).Normal
		limit := math.Cos(maxAngle * math.Pi / 180)
		cross = func(_, to graph.FaceID) bool { return g.Face(int(to)).Normal.Dot(n) >= limit-1e-12 }
	default:
		return nil, fmt.Errorf("geometry: unknown bucket mode %v", mode)
	}
	visited := g.graph.Walk(graph.FaceID(start), cross)
	out := make([]int, len(visited))
	for i, f := range visited {
		out[i] = int(f)
	}
	return out, nil
}

func (g *Geometry) colorsOf(f int) []kernel.ColorID {
	if p, ok := g.partitions[f]; ok {
		return p.Colors()
	}
	return []kernel.ColorID{g.base[f]}
}

// BucketFill paints every face Bucket reaches from start.
func (g *Geometry) BucketFill(ctx context.Context, start int, mode BucketMode, maxAngle float64, c kernel.ColorID) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	faces, err := g.bucket(start, mode, maxAngle)
	if err != nil {
		return nil, err
	}
	return g.paintFaces(faces, c)
}

// SetTriangleColor recolors one drawable sub-triangle.
func (g *Geometry) SetTriangleColor(id DetailedTriangleID, c kernel.ColorID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkFace(id.Face); err != nil {
		return err
	}
	if err := g.checkColor(c); err != nil {
		return err
	}
	p, ok := g.partitions[id.Face]
	if !ok {
		if id.Index != 0 {
			return fmt.Errorf("%w: face %d has one triangle, got index %d", ErrInvalidFace, id.Face, id.Index)
		}
		g.base[id.Face] = c
		g.record("recolor", id.Face, fmt.Sprintf("color %d", c))
		return nil
	}
	if err := p.SetDrawableColor(id.Index, c); err != nil {
		return fmt.Errorf("geometry: face %d: %w", id.Face, err)
	}
	return nil
}
