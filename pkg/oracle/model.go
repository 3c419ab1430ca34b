// Package oracle defines a solver-independent description of a linear integer
// model and the interface of external solvers used to cross-check results.
//
// A Model is plain data: bounded integer variables, linear rows compared
// with zero and a linear objective. It is produced by solver.Problem.Export
// and consumed by any Solver implementation, such as the MaxSAT oracle in
// this package.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the comparator of a row.
type Kind int

const (
	// Equal is Σ + Constant == 0.
	Equal Kind = iota
	// LessEqual is Σ + Constant <= 0.
	LessEqual
	// NotEqual is Σ + Constant != 0.
	NotEqual
)

func (k Kind) String() string {
	switch k {
	case Equal:
		return "=="
	case LessEqual:
		return "<="
	case NotEqual:
		return "!="
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Var is an integer variable with inclusive bounds.
type Var struct {
	Index int
	Min   int
	Max   int
}

// Term is an integer coefficient applied to the variable with the given
// index.
type Term struct {
	Index int
	Coeff int
}

// Row is the linear constraint Σ Terms + Constant <Kind> 0.
type Row struct {
	Kind     Kind
	Terms    []Term
	Constant int
}

// Eval evaluates the left-hand side under values.
func (r Row) Eval(values map[int]int) int {
	total := r.Constant
	for _, t := range r.Terms {
		total += t.Coeff * values[t.Index]
	}
	return total
}

// Holds reports whether the row is satisfied by values.
func (r Row) Holds(values map[int]int) bool {
	total := r.Eval(values)
	switch r.Kind {
	case Equal:
		return total == 0
	case LessEqual:
		return total <= 0
	default:
		return total != 0
	}
}

// ObjectiveTerm is a float coefficient applied to a variable.
type ObjectiveTerm struct {
	Index int
	Coeff float64
}

// Objective is the linear function to minimize.
type Objective struct {
	Constant float64
	Terms    []ObjectiveTerm
}

// Eval evaluates the objective under values.
func (o Objective) Eval(values map[int]int) float64 {
	total := o.Constant
	for _, t := range o.Terms {
		total += t.Coeff * float64(values[t.Index])
	}
	return total
}

// Model is a complete minimization problem.
type Model struct {
	Vars      []Var
	Rows      []Row
	Objective Objective
}

// Validate checks that bounds are ordered and that rows and objective only
// reference declared variables.
func (m Model) Validate() error {
	known := make(map[int]bool, len(m.Vars))
	for _, v := range m.Vars {
		if v.Min > v.Max {
			return fmt.Errorf("oracle: variable %d has empty bounds [%d, %d]", v.Index, v.Min, v.Max)
		}
		if known[v.Index] {
			return fmt.Errorf("oracle: variable %d declared twice", v.Index)
		}
		known[v.Index] = true
	}
	for i, r := range m.Rows {
		for _, t := range r.Terms {
			if !known[t.Index] {
				return fmt.Errorf("oracle: row %d references undeclared variable %d", i, t.Index)
			}
		}
	}
	for _, t := range m.Objective.Terms {
		if !known[t.Index] {
			return fmt.Errorf("oracle: objective references undeclared variable %d", t.Index)
		}
	}
	return nil
}

// Feasible reports whether values respects every bound and row.
func (m Model) Feasible(values map[int]int) bool {
	for _, v := range m.Vars {
		x := values[v.Index]
		if x < v.Min || x > v.Max {
			return false
		}
	}
	for _, r := range m.Rows {
		if !r.Holds(values) {
			return false
		}
	}
	return true
}

// Result is an optimal assignment found by an oracle.
type Result struct {
	Objective float64
	Values    map[int]int
}

// Solver computes the optimal objective value of a Model.
type Solver interface {
	// Solve returns the minimum of the objective, or ErrInfeasible.
	Solve(ctx context.Context, m Model) (float64, error)
}

// ErrInfeasible is returned by a Solver when the model has no solution.
var ErrInfeasible = errors.New("oracle: model is infeasible")
