package graph

import (
	"errors"
	"fmt"
)

// Violation describes one broken property of an adjacency relation or
// a component partition.
type Violation struct {
	Property string // "symmetry", "partition", "connectivity" or "maximality"
	Face     int    // face the finding is about
	Message  string
}

func (v Violation) Error() string {
	return fmt.Sprintf("[%s] face %d: %s", v.Property, v.Face, v.Message)
}

// CheckAdjacency verifies that adj is irreflexive and symmetric.
func CheckAdjacency(adj Adjacency) error {
	var errs []error
	for i, nb := range adj {
		for _, j := range nb {
			if j == i {
				errs = append(errs, Violation{"symmetry", i, "face is adjacent to itself"})
				continue
			}
			if j < 0 || j >= adj.Len() || !adj.Adjacent(j, i) {
				errs = append(errs, Violation{"symmetry", i, fmt.Sprintf("neighbour %d does not list it back", j)})
			}
		}
	}
	return errors.Join(errs...)
}

// Verify checks that comps is an exact partition of the faces of adj,
// that each component is connected through its own faces, and that no
// adjacency edge leaves a component. All violations are returned joined.
func Verify(adj Adjacency, comps []Component) error {
	var errs []error

	// Partition: every face exactly once.
	seen := make([]int, adj.Len())
	for _, c := range comps {
		if len(c) == 0 {
			errs = append(errs, Violation{"partition", -1, "empty component"})
		}
		for _, f := range c {
			if f < 0 || f >= adj.Len() {
				errs = append(errs, Violation{"partition", f, "face index out of range"})
				continue
			}
			seen[f]++
		}
	}
	for f, n := range seen {
		switch {
		case n == 0:
			errs = append(errs, Violation{"partition", f, "face is in no component"})
		case n > 1:
			errs = append(errs, Violation{"partition", f, fmt.Sprintf("face is in %d components", n)})
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	labels := Labels(comps, adj.Len())

	// Maximality: no edge crosses a component boundary.
	for f, nb := range adj {
		for _, g := range nb {
			if labels[g] != labels[f] {
				errs = append(errs, Violation{"maximality", f,
					fmt.Sprintf("adjacent to face %d in component %d", g, labels[g])})
			}
		}
	}

	// Connectivity: a walk from the first face restricted to the
	// component reaches all of it.
	for ci, c := range comps {
		reached := map[int]bool{c[0]: true}
		queue := []int{c[0]}
		for qi := 0; qi < len(queue); qi++ {
			for _, g := range adj[queue[qi]] {
				if labels[g] == ci && !reached[g] {
					reached[g] = true
					queue = append(queue, g)
				}
			}
		}
		for _, f := range c {
			if !reached[f] {
				errs = append(errs, Violation{"connectivity", f,
					fmt.Sprintf("not reachable from face %d within component %d", c[0], ci)})
			}
		}
	}

	return errors.Join(errs...)
}
