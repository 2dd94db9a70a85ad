package graph

import (
	"fmt"
	"math"
	"slices"

	"github.com/chazu/meshsplit/pkg/mesh"
	"golang.org/x/sync/errgroup"
)

// MinSharedVertices is the number of distinct vertex indices two faces
// must have in common to be adjacent (a shared edge).
const MinSharedVertices = 2

// Adjacency holds, for every face index, the ascending list of other faces
// it shares an edge with. The relation is symmetric and irreflexive.
type Adjacency [][]int

// Len returns the number of faces.
func (a Adjacency) Len() int {
	return len(a)
}

// Neighbors returns the faces adjacent to face i in ascending order.
func (a Adjacency) Neighbors(i int) []int {
	return a[i]
}

// Adjacent reports whether faces i and j share an edge.
func (a Adjacency) Adjacent(i, j int) bool {
	_, found := slices.BinarySearch(a[i], j)
	return found
}

// EdgeCount returns the number of unordered adjacent face pairs.
func (a Adjacency) EdgeCount() int {
	n := 0
	for _, nb := range a {
		n += len(nb)
	}
	return n / 2
}

// Equal reports whether two relations are identical.
func (a Adjacency) Equal(b Adjacency) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !slices.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

type buildOptions struct {
	workers int
}

// Option configures BuildAdjacency.
type Option func(*buildOptions)

// WithWorkers splits the per-face scan across n goroutines. Values below 2
// keep the scan sequential. The result does not depend on n.
func WithWorkers(n int) Option {
	return func(o *buildOptions) {
		o.workers = n
	}
}

// BuildAdjacency computes the face adjacency relation of m through a
// vertex-to-face index: each face only examines faces that share at least
// one of its vertices, and keeps those sharing MinSharedVertices or more.
// An invalid mesh is rejected with its validation error.
func BuildAdjacency(m *mesh.Mesh, opts ...Option) (Adjacency, error) {
	o := buildOptions{workers: 1}
	for _, opt := range opts {
		opt(&o)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("graph: refusing to build adjacency: %w", err)
	}
	if m.FaceCount() > math.MaxUint32 {
		return nil, fmt.Errorf("graph: %d faces exceeds the incidence index limit", m.FaceCount())
	}

	inc := BuildIncidence(m)
	adj := make(Adjacency, m.FaceCount())

	if o.workers < 2 || m.FaceCount() < o.workers {
		s := newScanner(m.FaceCount())
		for i := range m.Faces {
			adj[i] = s.neighbors(m, inc, i)
		}
		return adj, nil
	}

	// Each worker owns a contiguous range of faces and writes only its own
	// slots of adj, so no locking is needed.
	var g errgroup.Group
	g.SetLimit(o.workers)
	shard := (m.FaceCount() + o.workers - 1) / o.workers
	for start := 0; start < m.FaceCount(); start += shard {
		end := min(start+shard, m.FaceCount())
		g.Go(func() error {
			s := newScanner(m.FaceCount())
			for i := start; i < end; i++ {
				adj[i] = s.neighbors(m, inc, i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return adj, nil
}

// scanner carries the per-goroutine shared-vertex counters.
type scanner struct {
	shared  []int32
	touched []int
}

func newScanner(faces int) *scanner {
	return &scanner{shared: make([]int32, faces)}
}

// neighbors counts, for every face reachable through one of face i's
// distinct vertices, how many of those vertices it contains.
func (s *scanner) neighbors(m *mesh.Mesh, inc Incidence, i int) []int {
	for _, v := range m.Faces[i].Distinct() {
		it := inc[v].Iterator()
		for it.HasNext() {
			j := int(it.Next())
			if j == i {
				continue
			}
			if s.shared[j] == 0 {
				s.touched = append(s.touched, j)
			}
			s.shared[j]++
		}
	}

	var out []int
	for _, j := range s.touched {
		if s.shared[j] >= MinSharedVertices {
			out = append(out, j)
		}
		s.shared[j] = 0
	}
	s.touched = s.touched[:0]
	slices.Sort(out)
	return out
}

// BruteForceAdjacency compares every pair of faces directly. It is
// quadratic in the face count and exists as the reference the indexed
// builder is checked against.
func BruteForceAdjacency(m *mesh.Mesh) (Adjacency, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("graph: refusing to build adjacency: %w", err)
	}
	distinct := make([][]int, m.FaceCount())
	for i, f := range m.Faces {
		distinct[i] = f.Distinct()
	}

	adj := make(Adjacency, m.FaceCount())
	for i := range distinct {
		for j := range distinct {
			if i != j && sharedCount(distinct[i], distinct[j]) >= MinSharedVertices {
				adj[i] = append(adj[i], j)
			}
		}
	}
	return adj, nil
}

func sharedCount(a, b []int) int {
	n := 0
	for _, v := range a {
		if slices.Contains(b, v) {
			n++
		}
	}
	return n
}
