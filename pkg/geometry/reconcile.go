package geometry

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/chazu/facepaint/pkg/graph"
	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/logging"
	"github.com/chazu/facepaint/pkg/partition"
)

// Reconciler makes faces agree on the vertices along their shared edges
// after a paint operation. It runs with the model locked.
type Reconciler struct {
	g       *Geometry
	retries int
}

func (g *Geometry) reconciler() *Reconciler {
	return &Reconciler{g: g, retries: g.settings.ReconcileRetries}
}

// Run reconciles every edge of every touched face. Faces that were never
// painted get a partition when a neighbour put points on their edge.
func (r *Reconciler) Run(touched []int) error {
	done := make(map[graph.EdgeKey]bool)
	for _, f := range touched {
		for k := 0; k < 3; k++ {
			key := r.g.graph.EdgeOf(graph.FaceID(f), k)
			if done[key] {
				continue
			}
			done[key] = true
			if err := r.edge(key); err != nil {
				return err
			}
		}
	}
	return nil
}

// edge exchanges points between all faces on one edge until a round
// changes nothing.
func (r *Reconciler) edge(key graph.EdgeKey) error {
	faces := r.g.graph.EdgeFaces(key)
	if len(faces) < 2 {
		return nil
	}
	parts, err := r.participants(key, faces)
	if err != nil || parts == nil {
		return err
	}
	for round := 0; round <= r.retries; round++ {
		changed := false
		for i := 0; i < len(parts); i++ {
			for j := i + 1; j < len(parts); j++ {
				ci, cj, err := parts[i].ReconcileSharedEdge(parts[j])
				if err != nil {
					return fmt.Errorf("geometry: edge %s: %w", key, err)
				}
				changed = changed || ci || cj
			}
		}
		if !changed {
			return nil
		}
	}
	logging.Logger().Error("shared edge did not converge", "edge", key.String(), "faces", len(faces), "retries", r.retries)
	return pkgerrors.Wrapf(ErrReconcileBoundary, "edge %s after %d rounds", key, r.retries+1)
}

// participants returns the partitions of faces, creating missing ones when
// any existing partition has points inside the edge. It returns nil when
// the edge carries no points at all.
func (r *Reconciler) participants(key graph.EdgeKey, faces []graph.FaceID) ([]*partition.Partition, error) {
	a, b, err := r.endpoints(key, faces[0])
	if err != nil {
		return nil, err
	}
	needed := false
	for _, f := range faces {
		p, ok := r.g.partitions[int(f)]
		if ok && len(p.EdgePoints(a, b)) > 0 {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}
	parts := make([]*partition.Partition, 0, len(faces))
	for _, f := range faces {
		p, created, err := r.g.partitionFor(int(f))
		if err != nil {
			return nil, err
		}
		if created {
			r.g.record("reconcile-split", int(f), "neighbour has edge points")
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// endpoints returns the vertices of face f on edge key.
func (r *Reconciler) endpoints(key graph.EdgeKey, f graph.FaceID) (kernel.Point3, kernel.Point3, error) {
	t := r.g.graph.Face(f)
	for k := 0; k < 3; k++ {
		if r.g.graph.EdgeOf(f, k) == key {
			return t.Vertices[k], t.Vertices[(k+1)%3], nil
		}
	}
	return kernel.Point3{}, kernel.Point3{}, pkgerrors.Wrapf(ErrReconcileBoundary, "face %d has no edge %s", f, key)
}
