// Command intsolve solves integer models from YAML files, Sudoku puzzles and
// random kidney exchange pools, and keeps a history of its runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, styles.err.Render("error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}
