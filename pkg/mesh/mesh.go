// Package mesh holds the polygon mesh read from disk: an ordered vertex
// list and an ordered face list whose entries index into it. A Mesh is
// plain data; connectivity lives in package graph.
package mesh

// Vertex is an ordered tuple of coordinates, normally (x, y, z).
type Vertex []float64

// Face is an ordered list of 0-based vertex indices. Faces are usually
// triangles but any arity is stored as read.
type Face []int

// Mesh is an indexed polygon mesh.
// Every index in every face must be a valid position in Vertices; see Validate.
type Mesh struct {
	Vertices []Vertex
	Faces    []Face
}

// New returns a mesh over the given vertex and face slices. The slices
// are not copied.
func New(vertices []Vertex, faces []Face) *Mesh {
	return &Mesh{Vertices: vertices, Faces: faces}
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// FaceCount returns the number of faces.
func (m *Mesh) FaceCount() int {
	return len(m.Faces)
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i int) Vertex {
	return m.Vertices[i]
}

// Face returns face i.
func (m *Mesh) Face(i int) Face {
	return m.Faces[i]
}

// IsEmpty returns true if the mesh has no faces.
func (m *Mesh) IsEmpty() bool {
	return len(m.Faces) == 0
}

// Distinct returns the distinct vertex indices of f in first-seen order.
func (f Face) Distinct() []int {
	out := make([]int, 0, len(f))
	for _, v := range f {
		seen := false
		for _, w := range out {
			if w == v {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, v)
		}
	}
	return out
}
