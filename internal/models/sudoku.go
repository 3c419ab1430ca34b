// Package models builds well-known combinatorial models on top of the solver:
// Sudoku as a binary cube and kidney exchange as an edge assignment.
package models

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gitrdm/intsolve/pkg/constraint"
	"github.com/gitrdm/intsolve/pkg/domain"
	"github.com/gitrdm/intsolve/pkg/expr"
	"github.com/gitrdm/intsolve/pkg/solver"
)

// ErrNoSolution is returned when a puzzle has no solution.
var ErrNoSolution = errors.New("models: puzzle has no solution")

// Sudoku is an n×n puzzle (n a perfect square) modelled as a binary cube:
// Cube[r][c][d] tells whether cell (r, c) holds digit d+1.
//
// In the default one-hot form every row, column, box and cell has exactly
// one 1 per digit. The one-cold form stores the complement, every group
// summing to n-1, and exercises the same propagation with 0 as the marker.
type Sudoku struct {
	Problem *solver.Problem
	Cube    [][][]domain.Var
	n       int
	box     int
	oneCold bool
}

// NewSudoku builds the one-hot model of clues, where 0 marks an empty cell.
// Cube slots that contradict a clue are disabled and hold domain.Zero.
func NewSudoku(clues [][]int, opts ...solver.Option) (*Sudoku, error) {
	return newSudoku(clues, false, opts)
}

// NewSudokuOneCold builds the one-cold model of clues.
func NewSudokuOneCold(clues [][]int, opts ...solver.Option) (*Sudoku, error) {
	return newSudoku(clues, true, opts)
}

func newSudoku(clues [][]int, oneCold bool, opts []solver.Option) (*Sudoku, error) {
	n := len(clues)
	box := int(math.Sqrt(float64(n)))
	if n == 0 || box*box != n {
		return nil, fmt.Errorf("models: sudoku size %d is not a perfect square", n)
	}
	for r, row := range clues {
		if len(row) != n {
			return nil, fmt.Errorf("models: row %d has %d cells, want %d", r, len(row), n)
		}
		for c, v := range row {
			if v < 0 || v > n {
				return nil, fmt.Errorf("models: cell (%d,%d) holds %d, want 0..%d", r, c, v, n)
			}
		}
	}

	p := solver.New(opts...)
	mask := make([][][]bool, n)
	for r := range mask {
		mask[r] = make([][]bool, n)
		for c := range mask[r] {
			mask[r][c] = make([]bool, n)
			for d := range mask[r][c] {
				mask[r][c][d] = oneCold || clues[r][c] == 0 || clues[r][c] == d+1
			}
		}
	}
	s := &Sudoku{Problem: p, Cube: p.AddBinaryCube(mask), n: n, box: box, oneCold: oneCold}

	target := 1
	if oneCold {
		target = n - 1
	}
	for _, group := range s.groups() {
		p.Add(constraint.Equals(expr.Sum(group...), expr.Constant(target)))
	}

	for r, row := range clues {
		for c, v := range row {
			if v == 0 {
				continue
			}
			marker := 1
			if oneCold {
				marker = 0
			}
			p.Assign(s.Cube[r][c][v-1], marker)
		}
	}
	return s, nil
}

// groups lists the variables of every cell, row, column and box constraint.
func (s *Sudoku) groups() [][]domain.Var {
	n, cube := s.n, s.Cube
	var out [][]domain.Var
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			out = append(out, cube[r][c])
		}
	}
	for d := 0; d < n; d++ {
		for i := 0; i < n; i++ {
			row := make([]domain.Var, 0, n)
			col := make([]domain.Var, 0, n)
			for j := 0; j < n; j++ {
				row = append(row, cube[i][j][d])
				col = append(col, cube[j][i][d])
			}
			out = append(out, row, col)
		}
		for br := 0; br < n; br += s.box {
			for bc := 0; bc < n; bc += s.box {
				blk := make([]domain.Var, 0, n)
				for r := br; r < br+s.box; r++ {
					for c := bc; c < bc+s.box; c++ {
						blk = append(blk, cube[r][c][d])
					}
				}
				out = append(out, blk)
			}
		}
	}
	return out
}

// Solve propagates and, when propagation alone is not enough, searches
// depth-first.
func (s *Sudoku) Solve(ctx context.Context) ([][]int, error) {
	if s.Problem.Propagate() == domain.Infeasible {
		return nil, ErrNoSolution
	}
	if !s.Problem.IsSolved() {
		ok, err := s.Problem.FindFeasible(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoSolution
		}
	}
	return s.Board(), nil
}

// Board reads the current digits; undecided cells are 0.
func (s *Sudoku) Board() [][]int {
	marker := 1
	if s.oneCold {
		marker = 0
	}
	board := make([][]int, s.n)
	for r := range board {
		board[r] = make([]int, s.n)
		for c := range board[r] {
			for d, v := range s.Cube[r][c] {
				if v.IsZero() {
					continue
				}
				if dom := s.Problem.Domain(v); dom.IsConstant() && dom.Min() == marker {
					board[r][c] = d + 1
				}
			}
		}
	}
	return board
}

// ValidSolution checks that board is complete, respects every sudoku rule
// and agrees with clues.
func ValidSolution(clues, board [][]int) error {
	n := len(board)
	box := int(math.Sqrt(float64(n)))
	seen := func(kind string, idx int, cells func(i int) int) error {
		used := make([]bool, n+1)
		for i := 0; i < n; i++ {
			v := cells(i)
			if v < 1 || v > n {
				return fmt.Errorf("%s %d: invalid digit %d", kind, idx, v)
			}
			if used[v] {
				return fmt.Errorf("%s %d: digit %d repeated", kind, idx, v)
			}
			used[v] = true
		}
		return nil
	}
	for i := 0; i < n; i++ {
		if err := seen("row", i, func(j int) int { return board[i][j] }); err != nil {
			return err
		}
		if err := seen("column", i, func(j int) int { return board[j][i] }); err != nil {
			return err
		}
		br, bc := (i/box)*box, (i%box)*box
		if err := seen("box", i, func(j int) int { return board[br+j/box][bc+j%box] }); err != nil {
			return err
		}
	}
	for r, row := range clues {
		for c, v := range row {
			if v != 0 && board[r][c] != v {
				return fmt.Errorf("cell (%d,%d): clue %d overwritten with %d", r, c, v, board[r][c])
			}
		}
	}
	return nil
}

// ParseBoard reads a square board, one row per line. Digits are separated by
// spaces or commas; 0, '.' and '_' mark empty cells.
func ParseBoard(text string) ([][]int, error) {
	var board [][]int
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
		if len(fields) == 1 && len(fields[0]) > 1 {
			fields = strings.Split(fields[0], "")
		}
		row := make([]int, 0, len(fields))
		for _, f := range fields {
			if f == "." || f == "_" {
				row = append(row, 0)
				continue
			}
			var v int
			if _, err := fmt.Sscanf(f, "%d", &v); err != nil {
				return nil, fmt.Errorf("models: parse board: %q is not a digit", f)
			}
			row = append(row, v)
		}
		board = append(board, row)
	}
	for r, row := range board {
		if len(row) != len(board) {
			return nil, fmt.Errorf("models: parse board: row %d has %d cells, want %d", r, len(row), len(board))
		}
	}
	return board, nil
}

// FormatBoard renders a board with box separators.
func FormatBoard(board [][]int) string {
	n := len(board)
	box := int(math.Sqrt(float64(n)))
	var b strings.Builder
	for r, row := range board {
		if r > 0 && box > 0 && r%box == 0 {
			b.WriteString(strings.Repeat("-", 2*n+2*(box-1)-1) + "\n")
		}
		for c, v := range row {
			if c > 0 {
				b.WriteByte(' ')
				if box > 0 && c%box == 0 {
					b.WriteString("| ")
				}
			}
			if v == 0 {
				b.WriteByte('.')
			} else {
				fmt.Fprintf(&b, "%d", v)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
