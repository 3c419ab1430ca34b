package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/intsolve/pkg/constraint"
	"github.com/gitrdm/intsolve/pkg/expr"
	"github.com/gitrdm/intsolve/pkg/solver"
)

func TestWorkerPoolRunsEveryTask(t *testing.T) {
	wp := NewWorkerPool(3)
	assert.Equal(t, 3, wp.Workers())

	var done atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, wp.Submit(context.Background(), func() { done.Add(1) }))
	}
	wp.Shutdown()
	assert.Equal(t, int32(20), done.Load())

	assert.ErrorIs(t, wp.Submit(context.Background(), func() {}), ErrPoolShutdown)
	wp.Shutdown() // idempotent
}

func TestShutdownDuringSubmit(t *testing.T) {
	for round := 0; round < 20; round++ {
		wp := NewWorkerPool(2)
		var accepted, ran atomic.Int32
		var submitters sync.WaitGroup
		for g := 0; g < 4; g++ {
			submitters.Add(1)
			go func() {
				defer submitters.Done()
				for i := 0; i < 50; i++ {
					err := wp.Submit(context.Background(), func() { ran.Add(1) })
					if err != nil {
						assert.ErrorIs(t, err, ErrPoolShutdown)
						return
					}
					accepted.Add(1)
				}
			}()
		}
		wp.Shutdown()
		submitters.Wait()
		// every task accepted before Shutdown ran before it returned
		assert.Equal(t, accepted.Load(), ran.Load(), "round %d", round)
	}
}

func TestDefaultWorkers(t *testing.T) {
	wp := NewWorkerPool(0)
	defer wp.Shutdown()
	assert.Positive(t, wp.Workers())
}

func TestSubmitHonorsContext(t *testing.T) {
	wp := NewWorkerPool(1)
	defer wp.Shutdown()

	started, block := make(chan struct{}), make(chan struct{})
	require.NoError(t, wp.Submit(context.Background(), func() {
		close(started)
		<-block
	}))
	<-started
	// fill the queue behind the blocked worker
	for i := 0; i < 2; i++ {
		require.NoError(t, wp.Submit(context.Background(), func() {}))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, wp.Submit(ctx, func() {}), context.Canceled)
	close(block)
}

func TestRunSolvesIndependentProblems(t *testing.T) {
	wp := NewWorkerPool(4)
	defer wp.Shutdown()

	// minimize x subject to x >= i
	got, err := Run(context.Background(), wp, 8, func(ctx context.Context, i int) (float64, error) {
		p := solver.New()
		x := p.AddRange(0, 10)
		p.Add(constraint.GreaterOrEqual(expr.FromVar(x), expr.Constant(i)))
		p.SetObjective(expr.NewObjective().AddTerm(x, 1))
		sol, err := p.Minimize(ctx)
		if err != nil {
			return 0, err
		}
		return sol.Objective, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7}, got)
}

func TestRunReturnsFirstError(t *testing.T) {
	wp := NewWorkerPool(2)
	defer wp.Shutdown()

	boom := errors.New("boom")
	_, err := Run(context.Background(), wp, 10, func(ctx context.Context, i int) (int, error) {
		if i == 3 {
			return 0, boom
		}
		return i, nil
	})
	assert.ErrorIs(t, err, boom)
}
