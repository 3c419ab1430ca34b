package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/gitrdm/intsolve/pkg/oracle"
)

// CrossCheckTolerance is the largest objective difference CrossCheck treats
// as agreement.
const CrossCheckTolerance = 1e-6

// CrossCheckReport compares Minimize with an oracle on the same problem.
type CrossCheckReport struct {
	Engine *Solution
	// Oracle is the oracle's optimum, +Inf when it reported infeasibility.
	Oracle           float64
	OracleInfeasible bool
	// Agree is true when both proved infeasibility or both optima are within
	// CrossCheckTolerance.
	Agree bool
}

func (r *CrossCheckReport) String() string {
	return fmt.Sprintf("engine=%s (%g) oracle=%g agree=%t", r.Engine.Status, r.Engine.Objective, r.Oracle, r.Agree)
}

// CrossCheck minimizes a clone of p and asks o to optimize the exported
// model concurrently. p itself is not modified.
func CrossCheck(ctx context.Context, p *Problem, o oracle.Solver) (*CrossCheckReport, error) {
	model, err := p.Export()
	if err != nil {
		return nil, fmt.Errorf("cross-check: %w", err)
	}
	engine := p.Clone()
	report := &CrossCheckReport{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sol, err := engine.Minimize(gctx)
		report.Engine = sol
		return err
	})
	g.Go(func() error {
		v, err := o.Solve(gctx, model)
		if errors.Is(err, oracle.ErrInfeasible) {
			report.Oracle, report.OracleInfeasible = math.Inf(1), true
			return nil
		}
		report.Oracle = v
		return err
	})
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("cross-check: %w", err)
	}

	switch report.Engine.Status {
	case StatusInfeasible:
		report.Agree = report.OracleInfeasible
	case StatusOptimal:
		report.Agree = !report.OracleInfeasible && math.Abs(report.Engine.Objective-report.Oracle) <= CrossCheckTolerance
	}
	return report, nil
}
