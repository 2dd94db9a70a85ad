package mesh

import "fmt"

// IndexError reports a face that references a vertex outside the mesh.
type IndexError struct {
	Face     int // face index
	Position int // position of the bad reference within the face
	Index    int // the offending 0-based vertex index
	Vertices int // vertex count at validation time
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("mesh: face %d position %d references vertex %d, mesh has %d vertices",
		e.Face, e.Position, e.Index, e.Vertices)
}

// Validate checks that every face index is within [0, VertexCount()).
// It reports the first violation in face order.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for fi, f := range m.Faces {
		for pos, v := range f {
			if v < 0 || v >= n {
				return &IndexError{Face: fi, Position: pos, Index: v, Vertices: n}
			}
		}
	}
	return nil
}
