package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/gitrdm/intsolve/internal/modelfile"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		flags    solveFlags
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Solve a model file again whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			out := cmd.OutOrStdout()
			solve := func() {
				f, err := modelfile.Load(path)
				if err == nil {
					err = a.solveFile(cmd.Context(), out, f, flags)
				}
				if err != nil {
					fmt.Fprintln(out, styles.err.Render("error: "+err.Error()))
				}
			}
			solve()
			fmt.Fprintln(out, styles.muted.Render("watching "+path+", interrupt to stop"))
			return watchFile(cmd.Context(), path, debounce, solve)
		},
	}
	cmd.Flags().StringVar(&flags.mode, "mode", "auto", "auto, minimize or feasible")
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "quiet period before solving again")
	return cmd
}

// watchFile calls onChange once per burst of writes to path, after debounce
// without further events, until ctx is done. The directory is watched rather
// than the file so that editors replacing the file by rename are followed.
func watchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		case <-fire:
			fire = nil
			onChange()
		}
	}
}
