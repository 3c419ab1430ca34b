package solver

import (
	"slices"

	"github.com/gitrdm/intsolve/pkg/constraint"
	"github.com/gitrdm/intsolve/pkg/domain"
)

// constraintInfo is the per-constraint metadata of a Problem.
type constraintInfo struct {
	c constraint.Constraint
	// complete is set once the constraint is entailed; it never fires again.
	complete bool
	// reconsider counts the variable writes seen since the last evaluation.
	reconsider int
	// score caches the last decomposition score computed for branching.
	score float64
}

// reverseIndex maps each variable to the ids of the live constraints that
// mention it, in ascending id order.
type reverseIndex struct {
	refs [][]int
}

func (ri *reverseIndex) grow(n int) {
	for len(ri.refs) < n {
		ri.refs = append(ri.refs, nil)
	}
}

func (ri *reverseIndex) of(v domain.Var) []int {
	if int(v) >= len(ri.refs) {
		return nil
	}
	return ri.refs[v]
}

func (ri *reverseIndex) add(id int, vars []domain.Var) {
	for _, v := range vars {
		refs := ri.refs[v]
		i, found := slices.BinarySearch(refs, id)
		if !found {
			ri.refs[v] = slices.Insert(slices.Clip(refs), i, id)
		}
	}
}

func (ri *reverseIndex) remove(id int, vars []domain.Var) {
	for _, v := range vars {
		refs := ri.refs[v]
		if i, found := slices.BinarySearch(refs, id); found {
			ri.refs[v] = slices.Delete(slices.Clone(refs), i, i+1)
		}
	}
}

// referenced reports whether some live constraint mentions v.
func (ri *reverseIndex) referenced(v domain.Var) bool {
	return len(ri.of(v)) > 0
}
