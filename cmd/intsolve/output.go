package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gitrdm/intsolve/pkg/solver"
)

var (
	colorAccent = lipgloss.Color("#14B8A6")
	colorMuted  = lipgloss.Color("#64748B")
	colorOK     = lipgloss.Color("#22C55E")
	colorWarn   = lipgloss.Color("#F59E0B")
	colorErr    = lipgloss.Color("#EF4444")
)

var styles = struct {
	title lipgloss.Style
	label lipgloss.Style
	muted lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	err   lipgloss.Style
	box   lipgloss.Style
}{
	title: lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	label: lipgloss.NewStyle().Bold(true),
	muted: lipgloss.NewStyle().Foreground(colorMuted),
	ok:    lipgloss.NewStyle().Foreground(colorOK),
	warn:  lipgloss.NewStyle().Foreground(colorWarn),
	err:   lipgloss.NewStyle().Foreground(colorErr),
	box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1),
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case solver.StatusOptimal.String(), "solved":
		return styles.ok
	case solver.StatusInfeasible.String():
		return styles.err
	default:
		return styles.warn
	}
}

// report is what the solve and watch commands print.
type report struct {
	Model     string
	Mode      string
	Status    string
	Objective float64
	Names     []string
	Values    map[string]int
	Stats     solver.Stats
	Note      string
}

func formatObjective(v float64) string {
	if math.IsInf(v, 0) {
		return "none"
	}
	return fmt.Sprintf("%g", v)
}

func renderReport(w io.Writer, r report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s\n", styles.title.Render(r.Model), styles.muted.Render(r.Mode), statusStyle(r.Status).Render(r.Status))
	if r.Mode == "minimize" {
		b.WriteString(styles.label.Render("objective "+formatObjective(r.Objective)) + "\n")
	}
	if r.Values != nil {
		rows := make([][]string, 0, len(r.Names))
		for _, name := range r.Names {
			rows = append(rows, []string{name, fmt.Sprint(r.Values[name])})
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(styles.muted).
			Headers("variable", "value").
			Rows(rows...)
		b.WriteString(t.Render())
		b.WriteByte('\n')
	}
	if r.Note != "" {
		b.WriteString(styles.warn.Render(r.Note) + "\n")
	}
	b.WriteString(styles.muted.Render(r.Stats.String()) + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}
