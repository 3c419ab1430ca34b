package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitrdm/intsolve/internal/models"
	"github.com/gitrdm/intsolve/internal/results"
)

func newSudokuCmd(a *app) *cobra.Command {
	var (
		puzzle  string
		file    string
		oneCold bool
	)
	cmd := &cobra.Command{
		Use:   "sudoku",
		Short: "Solve a Sudoku puzzle",
		Long: `Solve a Sudoku given either inline with --puzzle, one character per cell
in row order with '.' or '0' for blanks, or as a board file with --file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clues, err := readPuzzle(puzzle, file)
			if err != nil {
				return err
			}
			build := models.NewSudoku
			if oneCold {
				build = models.NewSudokuOneCold
			}
			s, err := build(clues, a.options()...)
			if err != nil {
				return err
			}

			start := time.Now()
			board, err := s.Solve(cmd.Context())
			run := &results.Run{Model: "sudoku", Mode: "feasible", Started: start, Duration: time.Since(start), Stats: s.Problem.Stats()}
			switch {
			case errors.Is(err, models.ErrNoSolution):
				run.Status = "infeasible"
			case err != nil:
				run.Status, run.Error = "unknown", err.Error()
			default:
				run.Status = "solved"
			}
			a.record(cmd.Context(), run)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, styles.box.Render(strings.TrimRight(models.FormatBoard(board), "\n")))
			fmt.Fprintln(out, styles.muted.Render(run.Stats.String()))
			return nil
		},
	}
	cmd.Flags().StringVar(&puzzle, "puzzle", "", "cells in row order, '.' or '0' for blanks")
	cmd.Flags().StringVar(&file, "file", "", "board file, one row per line")
	cmd.Flags().BoolVar(&oneCold, "one-cold", false, "use the complemented (sum = n-1) model")
	cmd.MarkFlagsMutuallyExclusive("puzzle", "file")
	cmd.MarkFlagsOneRequired("puzzle", "file")
	return cmd
}

func readPuzzle(puzzle, file string) ([][]int, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		return models.ParseBoard(string(data))
	}
	cells := strings.Join(strings.Fields(puzzle), "")
	n := int(math.Sqrt(float64(len(cells))))
	if n == 0 || n*n != len(cells) || n > 9 {
		return nil, fmt.Errorf("puzzle has %d cells, want a square up to 81", len(cells))
	}
	rows := make([]string, n)
	for r := range rows {
		rows[r] = cells[r*n : (r+1)*n]
	}
	return models.ParseBoard(strings.Join(rows, "\n"))
}
