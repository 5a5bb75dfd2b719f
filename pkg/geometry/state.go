package geometry

import (
	"fmt"
	"io"
	"slices"

	"github.com/samber/lo"
	"github.com/ugorji/go/codec"

	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/partition"
)

// State is everything an edit can change: face colors, partitions and the
// palette. It is deep-copied and safe to keep.
type State struct {
	Base       []kernel.ColorID           `codec:"base" json:"base"`
	Partitions map[int]partition.Snapshot `codec:"partitions" json:"partitions"`
	Palette    Palette                    `codec:"palette" json:"palette"`
}

// SaveState captures the current state.
func (g *Geometry) SaveState() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := State{
		Base:       slices.Clone(g.base),
		Partitions: make(map[int]partition.Snapshot, len(g.partitions)),
		Palette:    g.palette.Clone(),
	}
	for f, p := range g.partitions {
		s.Partitions[f] = p.Snapshot()
	}
	return s
}

// LoadState restores a state saved from a model over the same faces. Shared
// edges are reconciled again after the restore.
func (g *Geometry) LoadState(s State) error {
	if len(s.Base) != g.FaceCount() {
		return fmt.Errorf("geometry: state has %d faces, model has %d", len(s.Base), g.FaceCount())
	}
	parts := make(map[int]*partition.Partition, len(s.Partitions))
	for _, f := range lo.Keys(s.Partitions) {
		if f < 0 || f >= g.FaceCount() {
			return fmt.Errorf("%w: state partition %d", ErrInvalidFace, f)
		}
		p, err := partition.FromSnapshot(s.Partitions[f],
			partition.WithSettings(g.settings.Partition),
			partition.WithTracer(g.tracer),
			partition.WithID(f))
		if err != nil {
			return fmt.Errorf("geometry: face %d: %w", f, err)
		}
		parts[f] = p
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.base = slices.Clone(s.Base)
	g.partitions = parts
	g.palette = s.Palette.Clone()
	faces := lo.Keys(parts)
	slices.Sort(faces)
	if err := g.reconciler().Run(faces); err != nil {
		return fmt.Errorf("geometry: load state: %w", err)
	}
	return nil
}

// ProjectVersion is written into every encoded project.
const ProjectVersion = 1

// Project is the persistent form of a model.
type Project struct {
	Version int                        `codec:"version" json:"version"`
	Faces   []partition.TriangleRecord `codec:"faces" json:"faces"`
	State   State                      `codec:"state" json:"state"`
}

// jsonHandle writes maps in key order so encoding is deterministic.
var jsonHandle = func() *codec.JsonHandle {
	h := &codec.JsonHandle{MapKeyAsString: true}
	h.Canonical = true
	return h
}()

// Encode writes the model as JSON. Coordinates are exact rational text, so
// decoding and encoding again reproduces the same bytes.
func (g *Geometry) Encode(w io.Writer) error {
	p := Project{Version: ProjectVersion, State: g.SaveState()}
	for i := 0; i < g.FaceCount(); i++ {
		p.Faces = append(p.Faces, partition.TriangleRecordOf(g.Face(i)))
	}
	if err := codec.NewEncoder(w, jsonHandle).Encode(p); err != nil {
		return fmt.Errorf("geometry: encode project: %w", err)
	}
	return nil
}

// Decode reads a project written by Encode.
func Decode(r io.Reader, opts ...Option) (*Geometry, error) {
	var p Project
	if err := codec.NewDecoder(r, jsonHandle).Decode(&p); err != nil {
		return nil, fmt.Errorf("geometry: decode project: %w", err)
	}
	if p.Version != ProjectVersion {
		return nil, fmt.Errorf("geometry: unsupported project version %d", p.Version)
	}
	faces := make([]kernel.Triangle, len(p.Faces))
	for i, rec := range p.Faces {
		t, err := rec.Triangle()
		if err != nil {
			return nil, fmt.Errorf("geometry: face %d: %w", i, err)
		}
		faces[i] = t
	}
	g, err := New(faces, opts...)
	if err != nil {
		return nil, err
	}
	if err := g.LoadState(p.State); err != nil {
		return nil, err
	}
	return g, nil
}
