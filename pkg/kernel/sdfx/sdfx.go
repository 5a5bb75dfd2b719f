// Package sdfx bridges facepaint meshes and the github.com/deadsy/sdfx CAD
// library: STL import and export, and primitive solids tessellated by
// marching cubes for quick test models.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/logging"
)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 40

// snapDigits is the decimal precision used to merge marching cubes vertices
// that should coincide but differ in the last bits.
const snapDigits = 1e9

// ---------------------------------------------------------------------------
// Mesh -> sdfx
// ---------------------------------------------------------------------------

// Triangles converts every triangle of m to an sdfx triangle.
func Triangles(m *kernel.Mesh) []*sdf.Triangle3 {
	out := make([]*sdf.Triangle3, 0, m.TriangleCount())
	for i := 0; i < m.TriangleCount(); i++ {
		v := m.Triangle(i)
		var t sdf.Triangle3
		for j := 0; j < 3; j++ {
			t[j] = v3.Vec{X: float64(v[j][0]), Y: float64(v[j][1]), Z: float64(v[j][2])}
		}
		out = append(out, &t)
	}
	return out
}

// SaveSTL writes m as a binary STL file. STL has no color; use the threemf
// package to keep paint.
func SaveSTL(path string, m *kernel.Mesh) error {
	if m.IsEmpty() {
		return fmt.Errorf("sdfx: refusing to write empty mesh %q", m.Name)
	}
	if err := render.SaveSTL(path, Triangles(m)); err != nil {
		return fmt.Errorf("sdfx: save %s: %w", path, err)
	}
	logging.Logger().Info("wrote STL", "path", path, "triangles", m.TriangleCount())
	return nil
}

// ---------------------------------------------------------------------------
// sdfx -> faces
// ---------------------------------------------------------------------------

// LoadSTL reads an STL file into exact faces of the given color.
func LoadSTL(path string, color kernel.ColorID) ([]kernel.Triangle, error) {
	tris, err := render.LoadSTL(path)
	if err != nil {
		return nil, fmt.Errorf("sdfx: load %s: %w", path, err)
	}
	return Faces(tris, color), nil
}

// Faces converts sdfx triangles into exact faces. Nearly equal vertices are
// merged so that neighbouring faces share exact corners, and triangles that
// become degenerate are dropped.
func Faces(tris []*sdf.Triangle3, color kernel.ColorID) []kernel.Triangle {
	s := snapper{seen: make(map[[3]float64]kernel.Point3)}
	out := make([]kernel.Triangle, 0, len(tris))
	dropped := 0
	for _, t := range tris {
		face := kernel.NewTriangle(s.point(t[0]), s.point(t[1]), s.point(t[2]), color)
		if face.Degenerate() {
			dropped++
			continue
		}
		out = append(out, face)
	}
	if dropped > 0 {
		logging.Logger().Debug("dropped degenerate triangles", "count", dropped)
	}
	return out
}

type snapper struct {
	seen map[[3]float64]kernel.Point3
}

func (s snapper) point(v v3.Vec) kernel.Point3 {
	key := [3]float64{snap(v.X), snap(v.Y), snap(v.Z)}
	if p, ok := s.seen[key]; ok {
		return p
	}
	p := kernel.Pt3(key[0], key[1], key[2])
	s.seen[key] = p
	return p
}

func snap(x float64) float64 {
	r := math.Round(x*snapDigits) / snapDigits
	if r == 0 {
		return 0 // no negative zero
	}
	return r
}

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// Primitive names accepted by Primitive.
var Primitives = []string{"box", "sphere", "cylinder"}

// Primitive builds a named solid of the given size centered at the origin.
func Primitive(name string, size float64) (sdf.SDF3, error) {
	if !(size > 0) {
		return nil, fmt.Errorf("sdfx: primitive size must be positive, got %g", size)
	}
	switch name {
	case "box":
		return sdf.Box3D(v3.Vec{X: size, Y: size, Z: size}, 0)
	case "sphere":
		return sdf.Sphere3D(size / 2)
	case "cylinder":
		return sdf.Cylinder3D(size, size/2, 0)
	default:
		return nil, fmt.Errorf("sdfx: unknown primitive %q", name)
	}
}

// Tessellate converts a solid to exact faces using marching cubes.
func Tessellate(s sdf.SDF3, cells int, color kernel.ColorID) ([]kernel.Triangle, error) {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	tris := render.ToTriangles(s, render.NewMarchingCubesUniform(cells))
	faces := Faces(tris, color)
	if len(faces) == 0 {
		return nil, fmt.Errorf("sdfx: solid tessellated to nothing")
	}
	return faces, nil
}
