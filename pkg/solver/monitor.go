package solver

// monitor.go: statistics for propagation and search

import (
	"fmt"
	"sync"
	"time"
)

// Stats holds counters collected while propagating and searching.
type Stats struct {
	// Search statistics
	Nodes      int           // search nodes expanded
	Backtracks int           // branches that failed
	Solutions  int           // incumbents found
	Pruned     int           // children not enqueued because of the bound
	MaxDepth   int           // deepest DFS level reached
	PeakQueue  int           // largest best-first frontier
	SearchTime time.Duration // time spent in FindFeasible and Minimize

	// Propagation statistics
	Propagations     int           // calls to Propagate that did work
	Rounds           int           // fixpoint rounds that evaluated a constraint
	Reconsiderations int           // constraint evaluations
	PropagationTime  time.Duration // time spent in Propagate

	// Reduction statistics
	Eliminated int // variables eliminated by Reduce
	Rewritten  int // constraints rewritten by Reduce
}

func (s Stats) String() string {
	return fmt.Sprintf("nodes=%d backtracks=%d solutions=%d pruned=%d rounds=%d reconsiderations=%d search=%s",
		s.Nodes, s.Backtracks, s.Solutions, s.Pruned, s.Rounds, s.Reconsiderations, s.SearchTime)
}

// Monitor accumulates Stats. It is safe to read from another goroutine while a
// search is running.
type Monitor struct {
	mu    sync.Mutex
	stats Stats
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Stats returns a copy of the current statistics.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Reset clears every counter.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = Stats{}
}

func (m *Monitor) recordPropagation(rounds, reconsiderations int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Propagations++
	m.stats.Rounds += rounds
	m.stats.Reconsiderations += reconsiderations
	m.stats.PropagationTime += d
}

func (m *Monitor) recordNode(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Nodes++
	if depth > m.stats.MaxDepth {
		m.stats.MaxDepth = depth
	}
}

func (m *Monitor) recordBacktrack() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Backtracks++
}

func (m *Monitor) recordSolution() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Solutions++
}

func (m *Monitor) recordPruned() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Pruned++
}

func (m *Monitor) recordQueue(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size > m.stats.PeakQueue {
		m.stats.PeakQueue = size
	}
}

func (m *Monitor) recordSearch(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.SearchTime += d
}

func (m *Monitor) recordReduce(eliminated, rewritten int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Eliminated += eliminated
	m.stats.Rewritten += rewritten
}
