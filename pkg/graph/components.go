package graph

import "golang.org/x/exp/rand"

// Component is a maximal set of edge-connected faces, listed in the
// order the traversal reached them.
type Component []int

// SeedStrategy decides the order in which unassigned faces are tried as
// the start of a new component. It only affects the order components are
// reported in, never their membership.
type SeedStrategy interface {
	// Order returns a permutation of [0, n).
	Order(n int) []int
}

type lowestSeed struct{}

func (lowestSeed) Order(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// SeedLowest starts every component at the lowest unassigned face index.
func SeedLowest() SeedStrategy {
	return lowestSeed{}
}

type randomSeed struct {
	seed uint64
}

// Order draws a fresh permutation from the seed on every call, so two
// runs with the same seed report components in the same order. Taking the
// first unassigned face of a uniform permutation picks uniformly among
// the unassigned faces.
func (r randomSeed) Order(n int) []int {
	return rand.New(rand.NewSource(r.seed)).Perm(n)
}

// SeedRandom starts every component at a pseudo-randomly chosen
// unassigned face, reproducibly for a given seed.
func SeedRandom(seed uint64) SeedStrategy {
	return randomSeed{seed: seed}
}

// Components partitions all faces of adj into connected components using
// an iterative depth-first traversal. A nil strategy means SeedLowest.
//
// A face may be pushed more than once (once per neighbour that reaches
// it); it is marked when popped and skipped if already marked.
func Components(adj Adjacency, seed SeedStrategy) []Component {
	if seed == nil {
		seed = SeedLowest()
	}

	assigned := make([]bool, adj.Len())
	var comps []Component
	var stack []int

	for _, start := range seed.Order(adj.Len()) {
		if assigned[start] {
			continue
		}
		var comp Component
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if assigned[f] {
				continue
			}
			assigned[f] = true
			comp = append(comp, f)

			// Push in descending order so the lowest neighbour is visited next.
			nb := adj[f]
			for k := len(nb) - 1; k >= 0; k-- {
				if !assigned[nb[k]] {
					stack = append(stack, nb[k])
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}

// Labels returns, for each face, the index of the component containing it,
// or -1 for faces that appear in no component.
func Labels(comps []Component, faces int) []int {
	labels := make([]int, faces)
	for i := range labels {
		labels[i] = -1
	}
	for ci, c := range comps {
		for _, f := range c {
			if f >= 0 && f < faces {
				labels[f] = ci
			}
		}
	}
	return labels
}
