// Package materialize turns a component (a list of face indices) into a
// self-contained part that can be written as its own mesh file.
package materialize

import (
	"context"
	"fmt"

	"github.com/chazu/meshsplit/pkg/graph"
	"github.com/chazu/meshsplit/pkg/mesh"
	"golang.org/x/sync/errgroup"
)

// Mode selects how a part's vertex list is built.
type Mode int

const (
	// ModeGlobal keeps the whole source vertex list and the original face
	// tuples, so output indices match the input mesh.
	ModeGlobal Mode = iota
	// ModeCompact keeps only referenced vertices, renumbered in order of
	// first use, and rewrites the faces to match.
	ModeCompact
)

func (m Mode) String() string {
	switch m {
	case ModeGlobal:
		return "global"
	case ModeCompact:
		return "compact"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps "global" or "compact" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "global":
		return ModeGlobal, nil
	case "compact":
		return ModeCompact, nil
	}
	return ModeGlobal, fmt.Errorf("materialize: unknown mode %q", s)
}

// Part is one component ready for output.
type Part struct {
	Index       int           // 1-based component number
	Vertices    []mesh.Vertex // vertex list the faces index into
	Faces       []mesh.Face   // face tuples in component order
	SourceFaces []int         // face indices in the source mesh
}

// FaceCount returns the number of faces in the part.
func (p *Part) FaceCount() int {
	return len(p.Faces)
}

// Mesh returns the part as a standalone mesh sharing the part's slices.
func (p *Part) Mesh() *mesh.Mesh {
	return mesh.New(p.Vertices, p.Faces)
}

// ReferencedVertices returns the number of distinct vertices the faces use.
func (p *Part) ReferencedVertices() int {
	seen := make(map[int]struct{})
	for _, f := range p.Faces {
		for _, v := range f {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// Materialize builds the part for component comp of m. index is the
// 1-based number the part is reported under.
func Materialize(m *mesh.Mesh, comp graph.Component, index int, mode Mode) *Part {
	p := &Part{
		Index:       index,
		Faces:       make([]mesh.Face, len(comp)),
		SourceFaces: append([]int(nil), comp...),
	}

	if mode != ModeCompact {
		p.Vertices = m.Vertices
		for i, fi := range comp {
			p.Faces[i] = m.Faces[fi]
		}
		return p
	}

	remap := make(map[int]int)
	for i, fi := range comp {
		src := m.Faces[fi]
		f := make(mesh.Face, len(src))
		for k, v := range src {
			nv, ok := remap[v]
			if !ok {
				nv = len(p.Vertices)
				remap[v] = nv
				p.Vertices = append(p.Vertices, m.Vertices[v])
			}
			f[k] = nv
		}
		p.Faces[i] = f
	}
	return p
}

// All materializes every component in order, numbering parts from 1.
// With workers > 1 the parts are built concurrently; the result is the same.
// All stops early and returns ctx's error once ctx is done.
func All(ctx context.Context, m *mesh.Mesh, comps []graph.Component, mode Mode, workers int) ([]*Part, error) {
	parts := make([]*Part, len(comps))
	if workers < 2 {
		for i, c := range comps {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			parts[i] = Materialize(m, c, i+1, mode)
		}
		return parts, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range comps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parts[i] = Materialize(m, c, i+1, mode)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}
