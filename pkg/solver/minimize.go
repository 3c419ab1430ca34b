package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rhartert/yagh"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gitrdm/intsolve/pkg/domain"
)

// Minimize searches best-first for a solution minimizing the objective.
//
// Open nodes live in a priority queue keyed by the relaxed lower bound of
// the objective under their domains. Each popped node is propagated and
// branched either on the constraint with the best decomposition score, one
// child per option, or on a single variable. A child is only queued while
// its bound beats the incumbent, and the search ends as soon as the best
// queued bound cannot improve on it. A child whose bound equals its
// parent's is expanded next without going through the queue.
//
// The returned Solution is StatusOptimal or StatusInfeasible when the search
// completed. When it is stopped by ctx, the time limit or the node limit the
// incumbent is returned as StatusFeasible (StatusUnknown without one)
// together with the error. The problem takes over the incumbent's state.
func (p *Problem) Minimize(ctx context.Context) (*Solution, error) {
	ctx, span := tracer.Start(ctx, "solver.Minimize",
		trace.WithAttributes(
			attribute.Int("problem.vars", p.NumVars()),
			attribute.Int("problem.constraints", len(p.infos)),
		))
	defer span.End()

	if p.cfg.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.timeLimit)
		defer cancel()
	}
	if p.cfg.reduce {
		p.Reduce()
	}

	start := time.Now()
	monitor, logger := p.cfg.monitor, p.cfg.logger
	queue := newFrontier()
	queue.push(p.Clone(), p.ObjectiveBound())

	var (
		best      *Problem
		bestVal   = math.Inf(1)
		nodes     int
		stop      error
		dive      *Problem
		diveBound float64
	)
	for {
		cur, bound := dive, diveBound
		dive = nil
		if cur == nil {
			var ok bool
			if cur, bound, ok = queue.pop(); !ok || bound >= bestVal {
				break
			}
		}
		if err := ctx.Err(); err != nil {
			stop = err
			break
		}
		if p.cfg.nodeLimit > 0 && nodes >= p.cfg.nodeLimit {
			stop = ErrSearchLimitReached
			break
		}
		nodes++
		monitor.recordNode(0)

		if cur.Propagate() == domain.Infeasible {
			monitor.recordBacktrack()
			continue
		}
		bound = cur.ObjectiveBound()
		if bound >= bestVal {
			monitor.recordPruned()
			continue
		}
		if cur.IsSolved() {
			best, bestVal = cur, cur.ObjectiveValue()
			monitor.recordSolution()
			logger.Debug("new incumbent", "objective", bestVal, "nodes", nodes)
			continue
		}
		for _, child := range cur.branch() {
			b := child.ObjectiveBound()
			if b >= bestVal {
				monitor.recordPruned()
				continue
			}
			if dive == nil && b <= bound {
				dive, diveBound = child, b
				continue
			}
			queue.push(child, b)
		}
		monitor.recordQueue(queue.size)
	}
	monitor.recordSearch(time.Since(start))

	sol := &Solution{Objective: math.Inf(1), Nodes: nodes}
	switch {
	case best != nil && stop != nil:
		sol.Status = StatusFeasible
	case best != nil:
		sol.Status = StatusOptimal
	case stop != nil:
		sol.Status = StatusUnknown
	default:
		sol.Status = StatusInfeasible
		p.infeasible = true
	}
	if best != nil {
		p.adopt(best)
		sol.Objective = bestVal
		sol.Values = best.Assignment()
	}

	span.SetAttributes(
		attribute.String("search.status", sol.Status.String()),
		attribute.Int("search.nodes", nodes),
	)
	logger.Info("minimize finished", "status", sol.Status, "objective", sol.Objective, "nodes", nodes)
	if stop != nil {
		span.RecordError(stop)
		span.SetStatus(codes.Error, stop.Error())
		if !errors.Is(stop, ErrSearchLimitReached) {
			stop = fmt.Errorf("minimize: %w", stop)
		}
	}
	return sol, stop
}

// frontier is the open list of Minimize: problems keyed by their bound in a
// yagh heap. Heap ids are never reused; when the heap runs out of ids the live
// entries move to a larger one, renumbered from zero.
type frontier struct {
	heap   *yagh.IntMap[float64]
	slots  int
	nodes  []*Problem // by heap id, nil once popped
	bounds []float64
	size   int
}

const minFrontierSlots = 64

func newFrontier() *frontier {
	return &frontier{heap: yagh.New[float64](minFrontierSlots), slots: minFrontierSlots}
}

func (f *frontier) push(p *Problem, bound float64) {
	if len(f.nodes) == f.slots {
		f.rebuild()
	}
	id := len(f.nodes)
	f.nodes = append(f.nodes, p)
	f.bounds = append(f.bounds, bound)
	f.heap.Put(id, bound)
	f.size++
}

func (f *frontier) pop() (*Problem, float64, bool) {
	next, ok := f.heap.Pop()
	if !ok {
		return nil, 0, false
	}
	id := next.Elem
	p, bound := f.nodes[id], f.bounds[id]
	f.nodes[id] = nil
	f.size--
	return p, bound, true
}

// rebuild moves the live entries into a fresh heap with room for as many
// again.
func (f *frontier) rebuild() {
	slots := max(2*f.size, minFrontierSlots)
	heap := yagh.New[float64](slots)
	nodes := make([]*Problem, 0, slots)
	bounds := make([]float64, 0, slots)
	for id, p := range f.nodes {
		if p == nil {
			continue
		}
		heap.Put(len(nodes), f.bounds[id])
		nodes = append(nodes, p)
		bounds = append(bounds, f.bounds[id])
	}
	f.heap, f.slots, f.nodes, f.bounds = heap, slots, nodes, bounds
}
