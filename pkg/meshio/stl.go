package meshio

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/chazu/meshsplit/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// stlHeader is the 80-byte free-form header of a binary STL file.
var stlHeader = [80]byte{'m', 'e', 's', 'h', 's', 'p', 'l', 'i', 't'}

// stlRecord is one facet of a binary STL file.
type stlRecord struct {
	Normal   [3]float32
	Vertices [3][3]float32
	Attr     uint16
}

// Triangles fan-triangulates the faces of m. Faces with fewer than three
// vertices produce nothing.
func Triangles(m *mesh.Mesh) [][3]v3.Vec {
	var out [][3]v3.Vec
	for _, f := range m.Faces {
		for k := 1; k+1 < len(f); k++ {
			out = append(out, [3]v3.Vec{
				m.Vertices[f[0]].Vec3(),
				m.Vertices[f[k]].Vec3(),
				m.Vertices[f[k+1]].Vec3(),
			})
		}
	}
	return out
}

// normal returns the unit normal of a triangle, or zero for a degenerate one.
func normal(t [3]v3.Vec) v3.Vec {
	n := t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
	if l := n.Length(); l > 0 && !math.IsInf(l, 0) {
		return n.MulScalar(1 / l)
	}
	return v3.Vec{}
}

func toFloat32(v v3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

// WriteSTL writes m as a little-endian binary STL file.
func WriteSTL(w io.Writer, m *mesh.Mesh) error {
	tris := Triangles(m)
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(stlHeader[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(tris))); err != nil {
		return err
	}
	for _, t := range tris {
		rec := stlRecord{
			Normal:   toFloat32(normal(t)),
			Vertices: [3][3]float32{toFloat32(t[0]), toFloat32(t[1]), toFloat32(t[2])},
		}
		if err := binary.Write(bw, binary.LittleEndian, &rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}
