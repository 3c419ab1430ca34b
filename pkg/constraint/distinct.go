package constraint

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gitrdm/intsolve/pkg/domain"
)

// Distinct asks its variables to take pairwise different values. Variables
// pinned to the wildcard value, when one is set, are exempt: any number of
// them may share it.
//
// Propagation removes every pinned non-wildcard value from the other
// variables. Removing an interior value leaves a hole in the domain.
type Distinct struct {
	vars        []domain.Var
	wildcard    int
	hasWildcard bool
}

// AllDifferent returns the constraint that vars take pairwise different
// values. domain.Zero entries are skipped so templated arrays can be passed
// as they are. It panics if a variable is listed twice.
func AllDifferent(vars ...domain.Var) *Distinct {
	return &Distinct{vars: distinctVars(vars)}
}

// AllDifferentExcept is AllDifferent with a wildcard value that several
// variables may share.
func AllDifferentExcept(wildcard int, vars ...domain.Var) *Distinct {
	return &Distinct{vars: distinctVars(vars), wildcard: wildcard, hasWildcard: true}
}

func distinctVars(vars []domain.Var) []domain.Var {
	out := make([]domain.Var, 0, len(vars))
	for _, v := range vars {
		if !v.IsZero() {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	for i := 1; i < len(out); i++ {
		if out[i] == out[i-1] {
			panic(fmt.Sprintf("constraint: %s listed twice in all-different", out[i]))
		}
	}
	return out
}

func (c *Distinct) Kind() Kind { return KindDistinct }

// Vars returns the constrained variables in ascending order.
func (c *Distinct) Vars() []domain.Var { return c.vars }

// Wildcard returns the shared value, if any.
func (c *Distinct) Wildcard() (int, bool) { return c.wildcard, c.hasWildcard }

func (c *Distinct) String() string {
	names := make([]string, len(c.vars))
	for i, v := range c.vars {
		names[i] = v.String()
	}
	if c.hasWildcard {
		return fmt.Sprintf("distinct(%s | %d)", strings.Join(names, ", "), c.wildcard)
	}
	return fmt.Sprintf("distinct(%s)", strings.Join(names, ", "))
}

func (c *Distinct) Satisfied(value func(domain.Var) int) bool {
	seen := make(map[int]bool, len(c.vars))
	for _, v := range c.vars {
		x := value(v)
		if c.hasWildcard && x == c.wildcard {
			continue
		}
		if seen[x] {
			return false
		}
		seen[x] = true
	}
	return true
}

func (c *Distinct) Restrict(s *domain.Store) domain.Result {
	return fixpoint(s, c.pass)
}

func (c *Distinct) pass(s *domain.Store) domain.Result {
	result := domain.NoChange
	pinned := 0
	for i, v := range c.vars {
		d := s.Get(v)
		if !d.IsConstant() {
			continue
		}
		pinned++
		x := d.Min()
		if c.hasWildcard && x == c.wildcard {
			continue
		}
		for j, w := range c.vars {
			if j == i {
				continue
			}
			r := s.Exclude(w, x)
			if r == domain.Infeasible {
				return domain.Infeasible
			}
			result = result.Merge(r)
		}
	}
	if pinned == len(c.vars) && result == domain.NoChange {
		return domain.Complete
	}
	return result
}
