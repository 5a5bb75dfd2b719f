// Package threemf reads and writes painted models as 3MF packages. Paint is
// stored as core 3MF base materials: one group whose entries are the palette,
// referenced per triangle.
package threemf

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/hpinc/go3mf"

	"github.com/chazu/facepaint/pkg/geometry"
	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/logging"
)

// ErrNoMesh is returned when a package contains no mesh objects.
var ErrNoMesh = errors.New("threemf: no mesh objects")

// Model is an imported 3MF file.
type Model struct {
	Faces []kernel.Triangle
	// Palette holds the base materials, or the default palette when the
	// file has none.
	Palette geometry.Palette
}

// Import reads every mesh object of the 3MF at path. Build item transforms
// are not applied; objects are taken in their own coordinates.
func Import(path string) (*Model, error) {
	r, err := go3mf.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("threemf: open %s: %w", path, err)
	}
	defer r.Close()

	var m go3mf.Model
	if err := r.Decode(&m); err != nil {
		return nil, fmt.Errorf("threemf: decode %s: %w", path, err)
	}
	return fromModel(&m)
}

func fromModel(m *go3mf.Model) (*Model, error) {
	out := &Model{}
	var group *go3mf.BaseMaterials
	for _, a := range m.Resources.Assets {
		if bm, ok := a.(*go3mf.BaseMaterials); ok {
			group = bm
			break
		}
	}
	if group != nil {
		if len(group.Materials) > geometry.MaxPaletteColors {
			return nil, fmt.Errorf("threemf: %d base materials, at most %d supported",
				len(group.Materials), geometry.MaxPaletteColors)
		}
		for _, b := range group.Materials {
			out.Palette.Colors = append(out.Palette.Colors, fromRGBA(b.Color))
		}
	} else {
		out.Palette = geometry.DefaultPalette()
	}

	objects := 0
	for _, obj := range m.Resources.Objects {
		if obj.Mesh == nil {
			continue
		}
		objects++
		verts := obj.Mesh.Vertices.Vertex
		pts := make([]kernel.Point3, len(verts))
		for i, v := range verts {
			pts[i] = kernel.Pt3(float64(v[0]), float64(v[1]), float64(v[2]))
		}
		for i, t := range obj.Mesh.Triangles.Triangle {
			if int(t.V1) >= len(pts) || int(t.V2) >= len(pts) || int(t.V3) >= len(pts) {
				return nil, fmt.Errorf("threemf: object %d triangle %d: vertex index out of range", obj.ID, i)
			}
			c := colorOf(t, obj, group)
			if int(c) >= max(1, out.Palette.Len()) {
				return nil, fmt.Errorf("threemf: object %d triangle %d: color %d not in palette", obj.ID, i, c)
			}
			out.Faces = append(out.Faces, kernel.NewTriangle(pts[t.V1], pts[t.V2], pts[t.V3], c))
		}
	}
	if objects == 0 {
		return nil, ErrNoMesh
	}
	logging.Logger().Info("imported 3MF", "objects", objects, "faces", len(out.Faces),
		"colors", out.Palette.Len())
	return out, nil
}

// colorOf resolves the base material index of a triangle, falling back to
// the object default. Properties from other resource groups map to 0.
func colorOf(t go3mf.Triangle, obj *go3mf.Object, group *go3mf.BaseMaterials) kernel.ColorID {
	if group == nil {
		return 0
	}
	switch {
	case t.PID == group.ID:
		return kernel.ColorID(t.P1)
	case t.PID == 0 && obj.PID == group.ID:
		return kernel.ColorID(obj.PIndex)
	default:
		return 0
	}
}

// Export writes mesh to path with one base material per palette color.
// Vertices with identical float coordinates are shared.
func Export(path string, mesh *kernel.Mesh, palette geometry.Palette) error {
	m, err := toModel(mesh, palette)
	if err != nil {
		return err
	}
	w, err := go3mf.CreateWriter(path)
	if err != nil {
		return fmt.Errorf("threemf: create %s: %w", path, err)
	}
	if err := w.Encode(m); err != nil {
		w.Close()
		return fmt.Errorf("threemf: encode %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("threemf: close %s: %w", path, err)
	}
	logging.Logger().Info("wrote 3MF", "path", path, "triangles", mesh.TriangleCount())
	return nil
}

const (
	materialsID uint32 = 1
	objectID    uint32 = 2
)

func toModel(mesh *kernel.Mesh, palette geometry.Palette) (*go3mf.Model, error) {
	if mesh.IsEmpty() {
		return nil, fmt.Errorf("threemf: refusing to write empty mesh %q", mesh.Name)
	}
	if palette.Len() == 0 {
		return nil, fmt.Errorf("threemf: empty palette")
	}
	bases := &go3mf.BaseMaterials{ID: materialsID}
	for i, c := range palette.Colors {
		bases.Materials = append(bases.Materials, go3mf.Base{Name: fmt.Sprintf("color %d", i), Color: toRGBA(c)})
	}

	out := &go3mf.Mesh{}
	index := make(map[[3]float32]uint32)
	vertex := func(p [3]float32) uint32 {
		if i, ok := index[p]; ok {
			return i
		}
		i := uint32(len(out.Vertices.Vertex))
		out.Vertices.Vertex = append(out.Vertices.Vertex, go3mf.Point3D{p[0], p[1], p[2]})
		index[p] = i
		return i
	}
	for i := 0; i < mesh.TriangleCount(); i++ {
		c := mesh.Colors[i]
		if int(c) >= palette.Len() {
			return nil, fmt.Errorf("threemf: triangle %d color %d not in palette of %d", i, c, palette.Len())
		}
		v := mesh.Triangle(i)
		out.Triangles.Triangle = append(out.Triangles.Triangle, go3mf.Triangle{
			V1: vertex(v[0]), V2: vertex(v[1]), V3: vertex(v[2]),
			PID: materialsID, P1: uint32(c), P2: uint32(c), P3: uint32(c),
		})
	}

	name := mesh.Name
	if name == "" {
		name = "painted"
	}
	m := &go3mf.Model{Units: go3mf.UnitMillimeter}
	m.Resources.Assets = append(m.Resources.Assets, bases)
	m.Resources.Objects = append(m.Resources.Objects, &go3mf.Object{
		ID:     objectID,
		Name:   name,
		Type:   go3mf.ObjectTypeModel,
		PID:    materialsID,
		PIndex: 0,
		Mesh:   out,
	})
	m.Build.Items = append(m.Build.Items, &go3mf.Item{ObjectID: objectID})
	return m, nil
}

func toRGBA(c geometry.Color) color.RGBA {
	return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 0xFF}
}

func fromRGBA(c color.RGBA) geometry.Color {
	return geometry.Color(uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B))
}
