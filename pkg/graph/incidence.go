package graph

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/chazu/meshsplit/pkg/mesh"
)

// Incidence maps each vertex index to the set of faces that reference it.
// Vertices referenced by no face have a nil entry.
type Incidence []*roaring.Bitmap

// BuildIncidence indexes every (vertex, face) pair of m. The mesh must
// already be valid; out-of-range indices panic.
func BuildIncidence(m *mesh.Mesh) Incidence {
	inc := make(Incidence, m.VertexCount())
	for fi, f := range m.Faces {
		for _, v := range f {
			if inc[v] == nil {
				inc[v] = roaring.New()
			}
			inc[v].Add(uint32(fi))
		}
	}
	return inc
}

// Faces returns the faces incident to vertex v in ascending order.
func (inc Incidence) Faces(v int) []int {
	b := inc[v]
	if b == nil {
		return nil
	}
	out := make([]int, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

// Degree returns the number of faces incident to vertex v.
func (inc Incidence) Degree(v int) int {
	if inc[v] == nil {
		return 0
	}
	return int(inc[v].GetCardinality())
}

// Incidences returns the total number of (vertex, face) pairs.
func (inc Incidence) Incidences() int {
	total := 0
	for v := range inc {
		total += inc.Degree(v)
	}
	return total
}
