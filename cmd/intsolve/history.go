package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Store.Path == "" {
				return errors.New("no run history configured, set --db or store.path")
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				_, err := fmt.Fprintln(out, styles.muted.Render("no runs recorded"))
				return err
			}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				obj := "-"
				if r.Objective != nil {
					obj = fmt.Sprintf("%g", *r.Objective)
				}
				rows[i] = []string{
					r.ID[:8], r.Started.Local().Format(time.DateTime), r.Model, r.Mode,
					statusStyle(r.Status).Render(r.Status), obj, fmt.Sprint(r.Stats.Nodes),
					r.Duration.Round(time.Microsecond).String(),
				}
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(styles.muted).
				Headers("id", "started", "model", "mode", "status", "objective", "nodes", "time").
				Rows(rows...)
			_, err = fmt.Fprintln(out, t.Render())
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "most recent runs to show, 0 for all")
	return cmd
}
