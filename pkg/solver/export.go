package solver

import (
	"fmt"

	"github.com/gitrdm/intsolve/pkg/constraint"
	"github.com/gitrdm/intsolve/pkg/domain"
	"github.com/gitrdm/intsolve/pkg/oracle"
)

var oracleKinds = map[constraint.Kind]oracle.Kind{
	constraint.KindEqual:     oracle.Equal,
	constraint.KindLessEqual: oracle.LessEqual,
	constraint.KindNotEqual:  oracle.NotEqual,
}

// Export describes the live part of the problem as an oracle.Model.
//
// Every variable is exported with its current bounds; holes become
// not-equal rows. Distinct constraints become pairwise not-equal rows. A
// distinct constraint with a wildcard has no linear form and makes Export
// fail with ErrUnsupported.
func (p *Problem) Export() (oracle.Model, error) {
	var m oracle.Model
	for _, v := range p.store.Vars() {
		d := p.store.Get(v)
		m.Vars = append(m.Vars, oracle.Var{Index: int(v), Min: d.Min(), Max: d.Max()})
		if d.IsContiguous() {
			continue
		}
		for x := d.Min(); x < d.Max(); x++ {
			if !d.Contains(x) {
				m.Rows = append(m.Rows, oracle.Row{
					Kind:     oracle.NotEqual,
					Terms:    []oracle.Term{{Index: int(v), Coeff: 1}},
					Constant: -x,
				})
			}
		}
	}

	for _, info := range p.infos {
		if info.complete {
			continue
		}
		switch c := info.c.(type) {
		case constraint.Linear:
			e := c.Expr()
			row := oracle.Row{Kind: oracleKinds[c.Kind()], Constant: e.Constant()}
			for _, t := range e.Terms() {
				row.Terms = append(row.Terms, oracle.Term{Index: int(t.Var), Coeff: t.Coeff})
			}
			m.Rows = append(m.Rows, row)
		case *constraint.Distinct:
			if _, ok := c.Wildcard(); ok {
				return oracle.Model{}, fmt.Errorf("export %s: %w", c, ErrUnsupported)
			}
			m.Rows = append(m.Rows, pairwiseDistinct(c.Vars())...)
		default:
			return oracle.Model{}, fmt.Errorf("export %s: %w", c, ErrUnsupported)
		}
	}

	m.Objective.Constant = p.objective.Constant()
	for _, t := range p.objective.Terms() {
		m.Objective.Terms = append(m.Objective.Terms, oracle.ObjectiveTerm{Index: int(t.Var), Coeff: t.Coeff})
	}
	return m, nil
}

func pairwiseDistinct(vars []domain.Var) []oracle.Row {
	var rows []oracle.Row
	for i, a := range vars {
		for _, b := range vars[i+1:] {
			rows = append(rows, oracle.Row{
				Kind: oracle.NotEqual,
				Terms: []oracle.Term{
					{Index: int(a), Coeff: 1},
					{Index: int(b), Coeff: -1},
				},
			})
		}
	}
	return rows
}
