// Package parallel runs independent solver instances concurrently. The solver
// core is single-threaded; this pool is how callers such as the bench command
// spread several problems over the available cores.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// WorkerPool manages a fixed set of goroutines executing submitted tasks.
// Submit blocks while the queue is full, which bounds the number of problems
// held in memory at once.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
	// mu orders Submit against Shutdown: no task enters the queue once the
	// workers may have drained it.
	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If maxWorkers is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}
	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}
	return pool
}

// Workers returns the number of goroutines.
func (wp *WorkerPool) Workers() int { return wp.maxWorkers }

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for {
		select {
		case task := <-wp.taskChan:
			task()
		case <-wp.shutdownChan:
			// accepted tasks still run
			for {
				select {
				case task := <-wp.taskChan:
					task()
				default:
					return
				}
			}
		}
	}
}

// Submit queues task. It blocks until there is room or ctx is done, and
// fails once Shutdown has started.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolShutdown
	}
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks and waits for every accepted task to finish.
// It may be called concurrently with Submit.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.shutdownChan)
		wp.mu.Unlock()
		wp.workerWg.Wait()
	})
}

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown pool.
var ErrPoolShutdown = errors.New("worker pool has been shutdown")

// Run executes job(ctx, i) for i in [0, n) on the pool and returns the results
// in index order. The first failing job cancels the context passed to the
// others; its error is returned.
func Run[T any](ctx context.Context, wp *WorkerPool, n int, job func(ctx context.Context, i int) (T, error)) ([]T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]T, n)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		err := wp.Submit(ctx, func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			r, err := job(ctx, i)
			if err != nil {
				fail(err)
				return
			}
			results[i] = r
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()
	if firstErr == nil {
		// jobs skipped because the caller's context ended
		firstErr = ctx.Err()
	}
	return results, firstErr
}
