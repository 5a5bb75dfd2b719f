// Package partition owns the colored regions painted onto one original mesh
// triangle. Colors map to disjoint exact polygon sets in the triangle's own
// 2-D frame; together they always cover the triangle exactly. The drawable
// sub-triangles are derived from those sets by retriangulation.
package partition

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync/atomic"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"

	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/logging"
	"github.com/chazu/facepaint/pkg/polygon"
	"github.com/chazu/facepaint/pkg/trace"
	"github.com/chazu/facepaint/pkg/triangulate"
)

// MaxColors bounds the palette; color ids must be below it.
const MaxColors = 16

var (
	// ErrEmptyIntersection is returned when a brush misses the supporting
	// plane or only touches it in a point.
	ErrEmptyIntersection = errors.New("partition: empty intersection")
	// ErrInvalidColor is returned for color ids outside the palette.
	ErrInvalidColor = errors.New("partition: invalid color")
	// ErrInvalidShape is returned for paint shapes with fewer than three points
	// or non-finite coordinates.
	ErrInvalidShape = errors.New("partition: invalid shape")
	// ErrCorruptedGeometry means the partition no longer satisfies its
	// invariants and must be reloaded from a known good state.
	ErrCorruptedGeometry = errors.New("partition: corrupted geometry")
)

// Settings tunes painting.
type Settings struct {
	// VerticesPerUnit is the circle sampling density per unit of radius.
	VerticesPerUnit float64 `yaml:"vertices_per_unit" toml:"vertices_per_unit"`
	// MinCircleVertices is the lower bound on circle samples.
	MinCircleVertices int `yaml:"min_circle_vertices" toml:"min_circle_vertices"`
	// ShareArcPoints inserts the points where a sphere crosses the original
	// triangle's edges into the circle polygon, so neighbouring faces painted
	// by the same sphere agree on them.
	ShareArcPoints bool `yaml:"share_arc_points" toml:"share_arc_points"`
	// Verify checks every invariant after each operation.
	Verify bool `yaml:"verify" toml:"verify"`
}

// DefaultSettings returns the standard sampling parameters.
func DefaultSettings() Settings {
	return Settings{
		VerticesPerUnit:   100,
		MinCircleVertices: 24,
		ShareArcPoints:    true,
	}
}

// DrawableTriangle is a reduced-precision sub-triangle ready for rendering.
// Exact holds the 2-D frame coordinates the positions were derived from, in
// the same vertex order.
type DrawableTriangle struct {
	Vertices [3]v3.Vec
	Normal   v3.Vec
	Color    kernel.ColorID
	Exact    [3]kernel.Point2
}

// Partition is the color map of one original triangle. It is not safe for
// concurrent mutation; Triangles may be called from any goroutine.
type Partition struct {
	id        int
	original  kernel.Triangle
	projector *kernel.Projector
	bounds    polygon.Set
	boundsPts [3]kernel.Point2

	colors   map[kernel.ColorID]polygon.Set
	drawable []DrawableTriangle
	dirty    bool

	published atomic.Pointer[[]DrawableTriangle]

	settings Settings
	tracer   trace.Recorder
}

// Option configures a Partition.
type Option func(*Partition)

// WithSettings overrides DefaultSettings.
func WithSettings(s Settings) Option {
	return func(p *Partition) { p.settings = s }
}

// WithTracer records operations on r.
func WithTracer(r trace.Recorder) Option {
	return func(p *Partition) {
		if r != nil {
			p.tracer = r
		}
	}
}

// WithID tags log records and trace events with a face index.
func WithID(id int) Option {
	return func(p *Partition) { p.id = id }
}

// New creates a partition covered entirely by the original triangle's color.
func New(original kernel.Triangle, opts ...Option) (*Partition, error) {
	p, err := newEmpty(original, opts...)
	if err != nil {
		return nil, err
	}
	if err := checkColor(original.Color); err != nil {
		return nil, err
	}
	p.colors[original.Color] = p.bounds
	p.retriangulate()
	return p, nil
}

func newEmpty(original kernel.Triangle, opts ...Option) (*Partition, error) {
	proj, err := kernel.ProjectorFor(original)
	if err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	p := &Partition{
		original:  original,
		projector: proj,
		boundsPts: proj.Bounds(),
		colors:    make(map[kernel.ColorID]polygon.Set),
		settings:  DefaultSettings(),
		tracer:    trace.Nop{},
	}
	p.bounds = polygon.Triangle(p.boundsPts[0], p.boundsPts[1], p.boundsPts[2])
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func checkColor(c kernel.ColorID) error {
	if int(c) >= MaxColors {
		return fmt.Errorf("%w: %d >= %d", ErrInvalidColor, c, MaxColors)
	}
	return nil
}

// ID returns the face index given with WithID.
func (p *Partition) ID() int { return p.id }

// Original returns the triangle this partition was built from.
func (p *Partition) Original() kernel.Triangle { return p.original }

// Projector returns the triangle's 2-D frame.
func (p *Partition) Projector() *kernel.Projector { return p.projector }

// Bounds returns the projected original triangle.
func (p *Partition) Bounds() polygon.Set { return p.bounds }

// Dirty reports whether the drawable triangles are authoritative.
func (p *Partition) Dirty() bool { return p.dirty }

// Triangles returns the last published drawable triangles. The slice is
// shared and must not be modified.
func (p *Partition) Triangles() []DrawableTriangle {
	if t := p.published.Load(); t != nil {
		return *t
	}
	return nil
}

// Colors returns the ids that currently own some area, ascending.
func (p *Partition) Colors() []kernel.ColorID {
	p.sync()
	return sortedKeys(p.colors)
}

// Polygons returns the area owned by color c.
func (p *Partition) Polygons(c kernel.ColorID) polygon.Set {
	p.sync()
	return p.colors[c]
}

// ColorArea returns the exact 2-D frame area owned by c.
func (p *Partition) ColorArea(c kernel.ColorID) *big.Rat {
	return p.Polygons(c).Area()
}

// SingleColor reports whether the whole triangle has one color, and which.
func (p *Partition) SingleColor() (kernel.ColorID, bool) {
	ids := p.Colors()
	if len(ids) != 1 {
		return 0, false
	}
	return ids[0], true
}

func (p *Partition) publish() {
	snap := p.drawable
	p.published.Store(&snap)
}

func (p *Partition) record(op, detail string) {
	p.tracer.Record(trace.Event{Op: op, Face: p.id, Detail: detail})
}

// sync rebuilds the color sets from the drawable triangles after an external
// drawable edit.
func (p *Partition) sync() {
	if !p.dirty {
		return
	}
	byColor := make(map[kernel.ColorID][]polygon.WithHoles)
	for _, t := range p.drawable {
		ring := polygon.Ring{t.Exact[0], t.Exact[1], t.Exact[2]}
		if ring.SignedArea().Sign() < 0 {
			ring = ring.Reverse()
		}
		byColor[t.Color] = append(byColor[t.Color], polygon.WithHoles{Outer: ring})
	}
	p.colors = make(map[kernel.ColorID]polygon.Set, len(byColor))
	for c, polys := range byColor {
		s := p.simplify(polygon.Normalize(polygon.NewSet(polys...)))
		if !s.IsEmpty() {
			p.colors[c] = s
		}
	}
	p.dirty = false
	p.record("sync", fmt.Sprintf("%d colors", len(p.colors)))
}

// simplify drops collinear vertices except those on the original triangle's
// edges, which neighbouring faces may share through reconciliation.
func (p *Partition) simplify(s polygon.Set) polygon.Set {
	out, _ := polygon.SimplifyKeeping(s, p.onBoundary)
	return out
}

func (p *Partition) onBoundary(q kernel.Point2) bool {
	b := p.boundsPts
	return kernel.OnSegment(q, b[0], b[1]) || kernel.OnSegment(q, b[1], b[2]) || kernel.OnSegment(q, b[2], b[0])
}

// retriangulate regenerates the drawable triangles from the color sets. A
// failure leaves the face without drawable triangles and is only logged.
func (p *Partition) retriangulate() {
	var out []DrawableTriangle
	flip := p.flipWinding()
	for _, c := range sortedKeys(p.colors) {
		tris, err := triangulate.TriangulateSet(p.colors[c])
		if err != nil {
			logging.Logger().Warn("retriangulation failed", "face", p.id, "color", c, "err", err)
			p.record("retriangulate-failed", err.Error())
			out = nil
			break
		}
		for _, t := range tris {
			out = append(out, p.drawableFrom(t, c, flip))
		}
	}
	p.drawable = out
	p.dirty = false
	p.publish()
}

// flipWinding reports whether frame-CCW triangles disagree with the original
// normal once lifted to 3-D.
func (p *Partition) flipWinding() bool {
	return p.projector.FloatNormal().Dot(p.original.Normal) < 0
}

func (p *Partition) drawableFrom(t triangulate.Triangle2, c kernel.ColorID, flip bool) DrawableTriangle {
	if flip {
		t[1], t[2] = t[2], t[1]
	}
	d := DrawableTriangle{Color: c, Exact: t, Normal: p.original.Normal}
	for i, q := range t {
		x, y, z := p.projector.To3D(q).Float64()
		d.Vertices[i] = v3.Vec{X: x, Y: y, Z: z}
	}
	return d
}

// SetDrawableColor recolors one drawable triangle directly. The color sets
// become stale and are rebuilt before the next polygon operation.
func (p *Partition) SetDrawableColor(i int, c kernel.ColorID) error {
	if err := checkColor(c); err != nil {
		return err
	}
	if i < 0 || i >= len(p.drawable) {
		return fmt.Errorf("partition: drawable index %d out of range [0,%d)", i, len(p.drawable))
	}
	next := slices.Clone(p.drawable)
	next[i].Color = c
	p.drawable = next
	p.dirty = true
	p.publish()
	p.record("set-drawable-color", fmt.Sprintf("%d -> %d", i, c))
	return nil
}

// ChangeColorIDs renames colors. Colors mapped onto the same id merge.
func (p *Partition) ChangeColorIDs(remap map[kernel.ColorID]kernel.ColorID) error {
	for _, to := range remap {
		if err := checkColor(to); err != nil {
			return err
		}
	}
	p.sync()
	target := func(c kernel.ColorID) kernel.ColorID {
		if to, ok := remap[c]; ok {
			return to
		}
		return c
	}
	next := make(map[kernel.ColorID]polygon.Set, len(p.colors))
	for _, c := range sortedKeys(p.colors) {
		t := target(c)
		if prev, ok := next[t]; ok {
			merged := p.simplify(polygon.Union(prev, p.colors[c]))
			next[t] = merged
			continue
		}
		next[t] = p.colors[c]
	}
	p.colors = next

	recolored := slices.Clone(p.drawable)
	for i := range recolored {
		recolored[i].Color = target(recolored[i].Color)
	}
	p.drawable = recolored
	p.publish()
	p.record("change-colors", fmt.Sprintf("%v", remap))
	return p.verifyIfEnabled()
}

func sortedKeys(m map[kernel.ColorID]polygon.Set) []kernel.ColorID {
	ids := lo.Keys(m)
	slices.Sort(ids)
	return ids
}

func (p *Partition) verifyIfEnabled() error {
	if !p.settings.Verify {
		return nil
	}
	return p.Verify()
}
