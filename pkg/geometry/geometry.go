// Package geometry is the whole-mesh paint model. It owns one lazily created
// partition per painted face, the color palette and the face adjacency graph,
// and keeps neighbouring faces watertight after every paint operation.
package geometry

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/samber/lo"

	"github.com/chazu/facepaint/pkg/graph"
	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/logging"
	"github.com/chazu/facepaint/pkg/partition"
	"github.com/chazu/facepaint/pkg/tessellate"
	"github.com/chazu/facepaint/pkg/trace"
)

var (
	// ErrReconcileBoundary means two neighbouring faces could not agree on
	// their shared edge within the retry bound. The model is no longer
	// watertight and must be restored from a saved state.
	ErrReconcileBoundary = errors.New("geometry: shared edge did not converge")
	// ErrInvalidFace is returned for face or sub-triangle ids out of range.
	ErrInvalidFace = errors.New("geometry: invalid face")
	// ErrInvalidMesh is returned by New when the mesh fails validation.
	ErrInvalidMesh = errors.New("geometry: invalid mesh")
)

// Settings tunes the model.
type Settings struct {
	Partition partition.Settings `yaml:"partition" toml:"partition"`
	// Workers bounds the goroutines painting faces in parallel.
	Workers int `yaml:"workers" toml:"workers"`
	// ReconcileRetries bounds the exchange rounds per shared edge.
	ReconcileRetries int `yaml:"reconcile_retries" toml:"reconcile_retries"`
}

// DefaultSettings returns the standard settings.
func DefaultSettings() Settings {
	return Settings{
		Partition:        partition.DefaultSettings(),
		Workers:          runtime.GOMAXPROCS(0),
		ReconcileRetries: 4,
	}
}

// Geometry is a painted mesh. All methods are safe for concurrent use; edits
// are serialized.
type Geometry struct {
	mu sync.Mutex

	graph      *graph.FaceGraph
	index      *rtreego.Rtree
	base       []kernel.ColorID
	partitions map[int]*partition.Partition
	palette    Palette

	settings Settings
	tracer   trace.Recorder
}

// Option configures a Geometry.
type Option func(*Geometry)

// WithSettings overrides DefaultSettings.
func WithSettings(s Settings) Option {
	return func(g *Geometry) { g.settings = s }
}

// WithTracer records partition operations on r.
func WithTracer(r trace.Recorder) Option {
	return func(g *Geometry) {
		if r != nil {
			g.tracer = r
		}
	}
}

// WithPalette replaces the default palette.
func WithPalette(p Palette) Option {
	return func(g *Geometry) { g.palette = p.Clone() }
}

// New builds a model over faces. Each face starts with its own color.
// Meshes with blocking validation errors are rejected; warnings are logged.
func New(faces []kernel.Triangle, opts ...Option) (*Geometry, error) {
	g := &Geometry{
		graph:      graph.Build(faces),
		base:       make([]kernel.ColorID, len(faces)),
		partitions: make(map[int]*partition.Partition),
		palette:    DefaultPalette(),
		settings:   DefaultSettings(),
		tracer:     trace.Nop{},
	}
	for _, o := range opts {
		o(g)
	}
	if g.settings.Workers < 1 {
		g.settings.Workers = 1
	}
	if g.settings.ReconcileRetries < 1 {
		g.settings.ReconcileRetries = 1
	}

	result := graph.ValidateAll(g.graph)
	if !result.OK() {
		return nil, fmt.Errorf("%w: %v (%d errors)", ErrInvalidMesh, result.Errors[0], len(result.Errors))
	}
	if len(result.Warnings) > 0 {
		logging.Logger().Debug("mesh validation warnings", "count", len(result.Warnings), "first", result.Warnings[0].Error())
	}
	for i, f := range faces {
		if int(f.Color) >= MaxPaletteColors {
			return nil, fmt.Errorf("%w: face %d color %d", partition.ErrInvalidColor, i, f.Color)
		}
		g.base[i] = f.Color
	}
	g.index = buildIndex(faces)
	return g, nil
}

// FaceCount returns the number of original faces.
func (g *Geometry) FaceCount() int { return g.graph.FaceCount() }

// Face returns original face f.
func (g *Geometry) Face(f int) kernel.Triangle { return g.graph.Face(graph.FaceID(f)) }

// Graph returns the adjacency graph. It is immutable.
func (g *Geometry) Graph() *graph.FaceGraph { return g.graph }

// Settings returns the active settings.
func (g *Geometry) Settings() Settings { return g.settings }

// Palette returns a copy of the palette.
func (g *Geometry) Palette() Palette {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.palette.Clone()
}

// PaintedFaces returns the faces that own a partition, ascending.
func (g *Geometry) PaintedFaces() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := lo.Keys(g.partitions)
	slices.Sort(ids)
	return ids
}

// Partition returns the partition of face f, or nil if the face was never
// split.
func (g *Geometry) Partition(f int) *partition.Partition {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.partitions[f]
}

// FaceColors returns the colors present on face f, ascending.
func (g *Geometry) FaceColors(f int) ([]kernel.ColorID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkFace(f); err != nil {
		return nil, err
	}
	if p, ok := g.partitions[f]; ok {
		return p.Colors(), nil
	}
	return []kernel.ColorID{g.base[f]}, nil
}

// FaceTriangles returns the drawable triangles of face f.
func (g *Geometry) FaceTriangles(f int) []partition.DrawableTriangle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faceTriangles(f)
}

func (g *Geometry) faceTriangles(f int) []partition.DrawableTriangle {
	if p, ok := g.partitions[f]; ok {
		return p.Triangles()
	}
	t := g.Face(f)
	return []partition.DrawableTriangle{{
		Vertices: t.FloatVertices(),
		Normal:   t.Normal,
		Color:    g.base[f],
		Exact:    [3]kernel.Point2{kernel.Pt2(0, 0), kernel.Pt2(1, 0), kernel.Pt2(0, 1)},
	}}
}

// Mesh materializes the whole model.
func (g *Geometry) Mesh(name string) (*kernel.Mesh, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return tessellate.Tessellate(lockedView{g}, name)
}

// lockedView exposes the model to the tessellator while g.mu is held.
type lockedView struct{ g *Geometry }

func (v lockedView) FaceCount() int { return v.g.FaceCount() }

func (v lockedView) FaceTriangles(f int) []partition.DrawableTriangle { return v.g.faceTriangles(f) }

func (g *Geometry) checkFace(f int) error {
	if f < 0 || f >= g.FaceCount() {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidFace, f, g.FaceCount())
	}
	return nil
}

func (g *Geometry) checkColor(c kernel.ColorID) error {
	if int(c) >= g.palette.Len() {
		return fmt.Errorf("%w: %d not in palette of %d", partition.ErrInvalidColor, c, g.palette.Len())
	}
	return nil
}

// partitionFor returns the partition of face f, creating it from the
// face's current color when needed. created reports a new partition.
func (g *Geometry) partitionFor(f int) (p *partition.Partition, created bool, err error) {
	if p, ok := g.partitions[f]; ok {
		return p, false, nil
	}
	t := g.Face(f)
	t.Color = g.base[f]
	p, err = partition.New(t,
		partition.WithSettings(g.settings.Partition),
		partition.WithTracer(g.tracer),
		partition.WithID(f))
	if err != nil {
		return nil, false, fmt.Errorf("geometry: face %d: %w", f, err)
	}
	g.partitions[f] = p
	return p, true, nil
}

// release drops a partition created for an operation that did not change
// the face.
func (g *Geometry) release(f int) {
	delete(g.partitions, f)
}

func (g *Geometry) record(op string, face int, detail string) {
	g.tracer.Record(trace.Event{Op: op, Face: face, Detail: detail})
}
