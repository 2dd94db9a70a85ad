package mesh

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vec3 converts a vertex to an sdfx vector. Missing coordinates are zero
// and coordinates past the third are dropped.
func (v Vertex) Vec3() v3.Vec {
	var out v3.Vec
	if len(v) > 0 {
		out.X = v[0]
	}
	if len(v) > 1 {
		out.Y = v[1]
	}
	if len(v) > 2 {
		out.Z = v[2]
	}
	return out
}

// Bounds returns the axis-aligned bounding box of the vertices referenced
// by the given faces. ok is false when the faces reference no vertices.
func (m *Mesh) Bounds(faces []int) (box sdf.Box3, ok bool) {
	lo := v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, fi := range faces {
		for _, vi := range m.Faces[fi] {
			p := m.Vertices[vi].Vec3()
			lo = lo.Min(p)
			hi = hi.Max(p)
			ok = true
		}
	}
	if !ok {
		return sdf.Box3{}, false
	}
	return sdf.Box3{Min: lo, Max: hi}, true
}

// Extent returns the longest side of a bounding box.
func Extent(box sdf.Box3) float64 {
	s := box.Size()
	return math.Max(s.X, math.Max(s.Y, s.Z))
}
