package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/gitrdm/intsolve/internal/config"
	"github.com/gitrdm/intsolve/internal/logging"
	"github.com/gitrdm/intsolve/internal/metrics"
	"github.com/gitrdm/intsolve/internal/results"
	"github.com/gitrdm/intsolve/pkg/oracle"
	"github.com/gitrdm/intsolve/pkg/solver"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath  string
	logLevel    string
	jsonLogs    bool
	metricsAddr string
	dbPath      string

	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Collectors
	// store, when set, is shared by concurrent runs instead of opening the
	// database per run.
	store *results.Store
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "intsolve",
		Short:         "Integer constraint solver",
		Long:          "intsolve propagates and searches integer linear models with all-different constraints.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&a.jsonLogs, "json-logs", false, "log as JSON")
	pf.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	pf.StringVar(&a.dbPath, "db", "", "run history directory")

	root.AddCommand(
		newSolveCmd(a),
		newSudokuCmd(a),
		newBenchCmd(a),
		newWatchCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration, applies the global flags over it and
// starts the metrics endpoint when one is configured.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flag("log-level").Changed {
		cfg.Logging.Level = a.logLevel
	}
	if cmd.Flag("json-logs").Changed {
		cfg.Logging.JSON = a.jsonLogs
	}
	if cmd.Flag("metrics-addr").Changed {
		cfg.Metrics.Addr = a.metricsAddr
	}
	if cmd.Flag("db").Changed {
		cfg.Store.Path = a.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = logging.New(cfg.LoggerConfig())
	if err != nil {
		return err
	}
	a.metrics = metrics.New()
	if addr := cfg.Metrics.Addr; addr != "" {
		ctx := cmd.Context()
		go func() {
			if err := a.metrics.Serve(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics endpoint failed", "addr", addr, "error", err)
			}
		}()
		a.logger.Info("serving metrics", "addr", addr)
	}
	return nil
}

// options returns the configured solver options with a fresh Monitor, so
// each run reports its own statistics.
func (a *app) options() []solver.Option {
	return append(a.cfg.SolverOptions(), solver.WithLogger(a.logger), solver.WithMonitor(solver.NewMonitor()))
}

func (a *app) oracle() *oracle.MaxSAT {
	return &oracle.MaxSAT{Precision: a.cfg.Oracle.Precision, Logger: a.logger}
}

// record stores run in the history when a database is configured. Failures
// are logged, never returned: the solve itself succeeded.
func (a *app) record(ctx context.Context, run *results.Run) {
	if a.metrics != nil {
		a.metrics.Observe(run.Mode, run.Status, run.Stats)
	}
	store := a.store
	if store == nil {
		if !a.historyEnabled() {
			return
		}
		s, err := a.openStore()
		if err != nil {
			a.logger.WarnContext(ctx, "run history unavailable", "error", err)
			return
		}
		defer s.Close()
		store = s
	}
	if err := store.Save(run); err != nil {
		a.logger.WarnContext(ctx, "could not record run", "error", err)
		return
	}
	a.logger.DebugContext(ctx, "run recorded", "id", run.ID)
}

func (a *app) historyEnabled() bool {
	return a.cfg.Store.Path != "" || a.cfg.Store.InMemory
}

func (a *app) openStore() (*results.Store, error) {
	return results.Open(results.Config{Path: a.cfg.Store.Path, InMemory: a.cfg.Store.InMemory, Logger: a.logger})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write([]byte("intsolve " + version + "\n"))
			return err
		},
	}
}
