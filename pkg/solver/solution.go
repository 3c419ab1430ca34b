package solver

import (
	"fmt"

	"github.com/gitrdm/intsolve/pkg/domain"
)

// Status describes how a Minimize run ended.
type Status int

const (
	// StatusUnknown means the search stopped before finding any solution.
	StatusUnknown Status = iota
	// StatusOptimal means the solution is proven optimal.
	StatusOptimal
	// StatusFeasible means the search stopped early with an incumbent.
	StatusFeasible
	// StatusInfeasible means the problem is proven to have no solution.
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Solution is the outcome of Minimize.
type Solution struct {
	Status Status
	// Objective is the objective value of Values, +Inf without a solution.
	Objective float64
	// Values holds one value per variable, indexed by domain.Var. It is nil
	// without a solution.
	Values []int
	// Nodes is the number of search nodes expanded.
	Nodes int
}

// HasValues reports whether the solution carries an assignment.
func (s *Solution) HasValues() bool { return s.Values != nil }

// Value returns the value of v. It panics without an assignment.
func (s *Solution) Value(v domain.Var) int {
	if s.Values == nil {
		panic(fmt.Sprintf("solver: no value for %s in a %s solution", v, s.Status))
	}
	return s.Values[v]
}

func (s *Solution) String() string {
	return fmt.Sprintf("%s objective=%g nodes=%d", s.Status, s.Objective, s.Nodes)
}
