// Package metrics exports solver statistics as Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gitrdm/intsolve/pkg/solver"
)

// Collectors holds the intsolve metrics registered on one registry.
type Collectors struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	nodes       *prometheus.CounterVec
	backtracks  prometheus.Counter
	pruned      prometheus.Counter
	rounds      prometheus.Counter
	eliminated  prometheus.Counter
	peakQueue   prometheus.Gauge
	searchTime  *prometheus.HistogramVec
	propagation prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collectors{
		registry: reg,
		// runs counts finished solves by mode and status
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intsolve_runs_total",
			Help: "Finished solver runs by mode and status",
		}, []string{"mode", "status"}),
		nodes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intsolve_search_nodes_total",
			Help: "Search nodes expanded by mode",
		}, []string{"mode"}),
		backtracks: f.NewCounter(prometheus.CounterOpts{
			Name: "intsolve_backtracks_total",
			Help: "Depth-first backtracks",
		}),
		pruned: f.NewCounter(prometheus.CounterOpts{
			Name: "intsolve_pruned_total",
			Help: "Best-first nodes pruned by the incumbent",
		}),
		rounds: f.NewCounter(prometheus.CounterOpts{
			Name: "intsolve_propagation_rounds_total",
			Help: "Propagation rounds",
		}),
		eliminated: f.NewCounter(prometheus.CounterOpts{
			Name: "intsolve_eliminated_vars_total",
			Help: "Variables eliminated by equality reduction",
		}),
		peakQueue: f.NewGauge(prometheus.GaugeOpts{
			Name: "intsolve_peak_queue",
			Help: "Largest best-first queue of the last run",
		}),
		searchTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intsolve_search_duration_seconds",
			Help:    "Search wall time",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4m
		}, []string{"mode"}),
		propagation: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "intsolve_propagation_duration_seconds",
			Help:    "Total propagation time per run",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
}

// Registry returns the registry holding the collectors.
func (c *Collectors) Registry() *prometheus.Registry { return c.registry }

// Observe records the statistics of one finished run.
func (c *Collectors) Observe(mode, status string, s solver.Stats) {
	c.runs.WithLabelValues(mode, status).Inc()
	c.nodes.WithLabelValues(mode).Add(float64(s.Nodes))
	c.backtracks.Add(float64(s.Backtracks))
	c.pruned.Add(float64(s.Pruned))
	c.rounds.Add(float64(s.Rounds))
	c.eliminated.Add(float64(s.Eliminated))
	c.peakQueue.Set(float64(s.PeakQueue))
	c.searchTime.WithLabelValues(mode).Observe(s.SearchTime.Seconds())
	c.propagation.Observe(s.PropagationTime.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collectors) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
