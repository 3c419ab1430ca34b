package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/gitrdm/intsolve/internal/models"
	"github.com/gitrdm/intsolve/internal/parallel"
	"github.com/gitrdm/intsolve/internal/results"
	"github.com/gitrdm/intsolve/pkg/solver"
)

type benchFlags struct {
	n           int
	k           int
	density     float64
	seeds       int
	firstSeed   uint64
	workers     int
	realWeights bool
}

type benchRow struct {
	seed     uint64
	status   string
	weight   float64
	cycles   int
	stats    solver.Stats
	duration time.Duration
}

func newBenchCmd(a *app) *cobra.Command {
	var flags benchFlags
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Solve random kidney exchange pools concurrently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flag("workers").Changed {
				flags.workers = a.cfg.Bench.Workers
			}
			rows, err := a.bench(cmd.Context(), flags)
			if err != nil {
				return err
			}
			return renderBench(cmd, flags, rows)
		},
	}
	cmd.Flags().IntVar(&flags.n, "n", 8, "pairs per pool")
	cmd.Flags().IntVar(&flags.k, "k", 3, "longest cycle")
	cmd.Flags().Float64Var(&flags.density, "density", 0.3, "edge probability")
	cmd.Flags().IntVar(&flags.seeds, "seeds", 4, "number of pools")
	cmd.Flags().Uint64Var(&flags.firstSeed, "seed", 1, "seed of the first pool")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "concurrent solves, 0 for one per CPU")
	cmd.Flags().BoolVar(&flags.realWeights, "real-weights", false, "random edge weights instead of 1")
	return cmd
}

func (a *app) bench(ctx context.Context, flags benchFlags) ([]benchRow, error) {
	if flags.seeds < 1 {
		return nil, errors.New("--seeds must be at least 1")
	}
	if a.historyEnabled() {
		store, err := a.openStore()
		if err != nil {
			return nil, err
		}
		defer store.Close()
		a.store = store
		defer func() { a.store = nil }()
	}
	pool := parallel.NewWorkerPool(flags.workers)
	defer pool.Shutdown()
	a.logger.Info("bench started", "pools", flags.seeds, "workers", pool.Workers(), "n", flags.n, "k", flags.k)

	return parallel.Run(ctx, pool, flags.seeds, func(ctx context.Context, i int) (benchRow, error) {
		seed := flags.firstSeed + uint64(i)
		compat := models.CreateCompatibility(flags.n, flags.density, flags.realWeights, seed)
		m, err := models.NewKidney(compat, flags.k, a.options()...)
		if err != nil {
			return benchRow{}, err
		}

		start := time.Now()
		sol, err := m.Problem.Minimize(ctx)
		if err != nil && !stopped(err) {
			return benchRow{}, fmt.Errorf("seed %d: %w", seed, err)
		}
		row := benchRow{seed: seed, status: sol.Status.String(), stats: m.Problem.Stats(), duration: time.Since(start)}
		if sol.HasValues() {
			edges := m.Selected(sol.Values)
			if err := compat.ValidateExchange(edges, flags.k); err != nil {
				return benchRow{}, fmt.Errorf("seed %d: invalid exchange: %w", seed, err)
			}
			row.weight = compat.Weight(edges)
			row.cycles = countCycles(edges)
		}

		run := &results.Run{Model: fmt.Sprintf("kidney n=%d k=%d seed=%d", flags.n, flags.k, seed), Mode: "minimize",
			Status: row.status, Stats: row.stats, Started: start, Duration: row.duration}
		run.SetObjective(sol.Objective)
		a.record(ctx, run)
		return row, nil
	})
}

// countCycles counts the cycles of a valid exchange.
func countCycles(edges []models.Edge) int {
	next := make(map[int]int, len(edges))
	for _, e := range edges {
		next[e.From] = e.To
	}
	seen := make(map[int]bool, len(edges))
	cycles := 0
	for start := range next {
		if seen[start] {
			continue
		}
		cycles++
		for cur := start; !seen[cur]; cur = next[cur] {
			seen[cur] = true
		}
	}
	return cycles
}

func renderBench(cmd *cobra.Command, flags benchFlags, rows []benchRow) error {
	body := make([][]string, len(rows))
	var total time.Duration
	for i, r := range rows {
		body[i] = []string{
			fmt.Sprint(r.seed), r.status, fmt.Sprintf("%.3f", r.weight), fmt.Sprint(r.cycles),
			fmt.Sprint(r.stats.Nodes), r.duration.Round(time.Microsecond).String(),
		}
		total += r.duration
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.muted).
		Headers("seed", "status", "weight", "cycles", "nodes", "time").
		Rows(body...)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styles.title.Render(fmt.Sprintf("kidney exchange n=%d k=%d density=%g", flags.n, flags.k, flags.density)))
	fmt.Fprintln(out, t.Render())
	_, err := fmt.Fprintln(out, styles.muted.Render("total solve time "+total.Round(time.Microsecond).String()))
	return err
}
