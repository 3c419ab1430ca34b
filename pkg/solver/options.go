package solver

import (
	"errors"
	"log/slog"
	"time"
)

// Option configures a Problem. Options are applied once by New and shared,
// read-only, by every clone made during search.
type Option func(*config)

type config struct {
	logger          *slog.Logger
	monitor         *Monitor
	nodeLimit       int
	timeLimit       time.Duration
	maxBranchValues int
	optionLimit     int
	reduce          bool
}

const (
	defaultMaxBranchValues = 64
	defaultOptionLimit     = 512
)

func newConfig(opts []Option) *config {
	cfg := &config{
		maxBranchValues: defaultMaxBranchValues,
		optionLimit:     defaultOptionLimit,
	}
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.monitor == nil {
		cfg.monitor = NewMonitor()
	}
	return cfg
}

// WithLogger sets the logger used by the search routines.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMonitor shares a Monitor between problems, e.g. to aggregate the
// statistics of several runs.
func WithMonitor(m *Monitor) Option {
	return func(c *config) { c.monitor = m }
}

// WithNodeLimit stops FindFeasible and Minimize after n search nodes. When it
// is reached the best incumbent, if any, is returned together with
// ErrSearchLimitReached.
func WithNodeLimit(n int) Option {
	return func(c *config) { c.nodeLimit = n }
}

// WithTimeLimit bounds the wall-clock time of FindFeasible and Minimize. When
// it is reached the incumbent is returned together with
// context.DeadlineExceeded.
func WithTimeLimit(d time.Duration) Option {
	return func(c *config) { c.timeLimit = d }
}

// WithMaxBranchValues sets the widest domain Minimize branches on value by
// value. Wider domains are split in two halves instead. Values <= 0 disable
// splitting.
func WithMaxBranchValues(n int) Option {
	return func(c *config) { c.maxBranchValues = n }
}

// WithOptionLimit caps the number of options Minimize enumerates when it
// branches on a constraint. Constraints with more options fall back to
// variable branching.
func WithOptionLimit(n int) Option {
	return func(c *config) { c.optionLimit = n }
}

// WithReduce makes FindFeasible and Minimize run Reduce before searching.
func WithReduce(enabled bool) Option {
	return func(c *config) { c.reduce = enabled }
}

// ErrSearchLimitReached indicates a search stopped at its node limit. The
// returned incumbent is valid but optimality is not proven.
var ErrSearchLimitReached = errors.New("search limit reached")

// ErrUnsupported is returned when a problem cannot be expressed in the
// requested export format.
var ErrUnsupported = errors.New("unsupported constraint")
