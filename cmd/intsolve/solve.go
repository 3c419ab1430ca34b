package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitrdm/intsolve/internal/modelfile"
	"github.com/gitrdm/intsolve/internal/results"
	"github.com/gitrdm/intsolve/pkg/solver"
)

type solveFlags struct {
	mode       string
	reduce     bool
	crosscheck bool
}

func newSolveCmd(a *app) *cobra.Command {
	var flags solveFlags
	cmd := &cobra.Command{
		Use:   "solve FILE",
		Short: "Solve a YAML model",
		Long: `Solve a model file. With --mode auto (the default) models with an
objective are minimized and the others searched for any solution.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flag("reduce").Changed {
				a.cfg.Solver.Reduce = flags.reduce
			}
			f, err := modelfile.Load(args[0])
			if err != nil {
				return err
			}
			return a.solveFile(cmd.Context(), cmd.OutOrStdout(), f, flags)
		},
	}
	cmd.Flags().StringVar(&flags.mode, "mode", "auto", "auto, minimize or feasible")
	cmd.Flags().BoolVar(&flags.reduce, "reduce", false, "eliminate shared variables with the equalities first")
	cmd.Flags().BoolVar(&flags.crosscheck, "crosscheck", false, "compare the optimum with the MaxSAT oracle")
	return cmd
}

// stopped reports whether err only means the search ran out of budget.
func stopped(err error) bool {
	return errors.Is(err, solver.ErrSearchLimitReached) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func (a *app) solveFile(ctx context.Context, w io.Writer, f *modelfile.File, flags solveFlags) error {
	m, err := f.Build(a.options()...)
	if err != nil {
		return err
	}
	mode := flags.mode
	if mode == "auto" {
		mode = "feasible"
		if f.Objective != nil {
			mode = "minimize"
		}
	}
	if mode != "minimize" && mode != "feasible" {
		return fmt.Errorf("unknown mode %q", mode)
	}

	var note string
	if flags.crosscheck {
		cc, err := solver.CrossCheck(ctx, m.Problem, a.oracle())
		if err != nil {
			return err
		}
		note = fmt.Sprintf("oracle: %s", formatObjective(m.Objective(cc.Oracle)))
		if !cc.Agree {
			note += " (disagrees)"
		}
	}

	start := time.Now()
	rep := report{Model: m.Name, Mode: mode, Names: m.Names}
	run := &results.Run{Model: m.Name, Mode: mode, Started: start}
	var searchErr error

	switch mode {
	case "minimize":
		sol, err := m.Problem.Minimize(ctx)
		searchErr = err
		if sol != nil {
			rep.Status = sol.Status.String()
			rep.Objective = m.Objective(sol.Objective)
			if sol.HasValues() {
				rep.Values = m.Values(sol.Values)
			}
		}
	case "feasible":
		ok, err := m.Problem.FindFeasible(ctx)
		searchErr = err
		switch {
		case ok:
			rep.Status = "solved"
			rep.Values = m.Values(m.Problem.Assignment())
		case err == nil:
			rep.Status = solver.StatusInfeasible.String()
		default:
			rep.Status = solver.StatusUnknown.String()
		}
	}
	if searchErr != nil && !stopped(searchErr) {
		return searchErr
	}
	if searchErr != nil {
		note = joinNote(note, "stopped: "+searchErr.Error())
		run.Error = searchErr.Error()
	}
	rep.Note = note
	rep.Stats = m.Problem.Stats()

	run.Status, run.Values, run.Stats, run.Duration = rep.Status, rep.Values, rep.Stats, time.Since(start)
	if mode == "minimize" {
		run.SetObjective(rep.Objective)
	}
	a.record(ctx, run)
	return renderReport(w, rep)
}

func joinNote(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
