// Package tessellate flattens painted faces into render meshes. Every face
// contributes its drawable sub-triangles; faces that were never painted
// contribute their original triangle.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/logging"
	"github.com/chazu/facepaint/pkg/partition"
)

// Source is anything that can list drawable triangles per face.
type Source interface {
	FaceCount() int
	FaceTriangles(face int) []partition.DrawableTriangle
}

// Tessellate walks every face of src and produces one flat mesh. Faces with
// no drawable triangles (a failed retriangulation) are skipped and logged.
// The tessellator is read-only and never mutates src.
func Tessellate(src Source, name string) (*kernel.Mesh, error) {
	m := &kernel.Mesh{Name: name}
	if src == nil {
		return m, nil
	}
	skipped := 0
	for f := 0; f < src.FaceCount(); f++ {
		tris := src.FaceTriangles(f)
		if len(tris) == 0 {
			skipped++
			continue
		}
		for i, t := range tris {
			v, n, err := toFloat32(t)
			if err != nil {
				return nil, fmt.Errorf("tessellate: face %d triangle %d: %w", f, i, err)
			}
			m.AppendTriangle(v, n, t.Color)
		}
	}
	if skipped > 0 {
		logging.Logger().Warn("faces without drawable triangles", "mesh", name, "skipped", skipped)
	}
	return m, nil
}

// ByColor splits a mesh into one mesh per color, named "<name>-<color>".
func ByColor(m *kernel.Mesh) map[kernel.ColorID]*kernel.Mesh {
	out := make(map[kernel.ColorID]*kernel.Mesh)
	var n [3]float32
	for i, c := range m.Colors {
		part, ok := out[c]
		if !ok {
			part = &kernel.Mesh{Name: fmt.Sprintf("%s-%d", m.Name, c)}
			out[c] = part
		}
		k := m.Indices[3*i] * 3
		copy(n[:], m.Normals[k:k+3])
		part.AppendTriangle(m.Triangle(i), n, c)
	}
	return out
}

func toFloat32(t partition.DrawableTriangle) ([3][3]float32, [3]float32, error) {
	var v [3][3]float32
	for i, p := range t.Vertices {
		if !kernel.Finite(p.X, p.Y, p.Z) || overflows(p.X, p.Y, p.Z) {
			return v, [3]float32{}, kernel.ErrNonFinite
		}
		v[i] = [3]float32{float32(p.X), float32(p.Y), float32(p.Z)}
	}
	n := [3]float32{float32(t.Normal.X), float32(t.Normal.Y), float32(t.Normal.Z)}
	return v, n, nil
}

func overflows(vals ...float64) bool {
	for _, x := range vals {
		if math.Abs(x) > math.MaxFloat32 {
			return true
		}
	}
	return false
}
