package kernel

// Mesh is a colored triangle mesh suitable for rendering or export.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle and
// colors has one palette index per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Colors   []ColorID `json:"colors"`   // one per triangle
	Name     string    `json:"name"`     // source model or face range
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// AppendTriangle adds an unindexed triangle. Vertices are not shared with
// earlier triangles; every triangle carries its own flat normal.
func (m *Mesh) AppendTriangle(v [3][3]float32, n [3]float32, c ColorID) {
	base := uint32(m.VertexCount())
	for _, p := range v {
		m.Vertices = append(m.Vertices, p[0], p[1], p[2])
		m.Normals = append(m.Normals, n[0], n[1], n[2])
	}
	m.Indices = append(m.Indices, base, base+1, base+2)
	m.Colors = append(m.Colors, c)
}

// Triangle returns the three vertex positions of triangle i.
func (m *Mesh) Triangle(i int) [3][3]float32 {
	var out [3][3]float32
	for j := 0; j < 3; j++ {
		k := m.Indices[3*i+j] * 3
		out[j] = [3]float32{m.Vertices[k], m.Vertices[k+1], m.Vertices[k+2]}
	}
	return out
}

// ColorCounts returns the number of triangles per color.
func (m *Mesh) ColorCounts() map[ColorID]int {
	out := make(map[ColorID]int)
	for _, c := range m.Colors {
		out[c]++
	}
	return out
}
