// Package parallel provides the fixed-size worker pool used for batched
// topology construction.
package parallel

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// WorkerPool runs submitted tasks on a fixed number of goroutines.
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // guards closed and sends on taskQueue
	closed    bool

	errMu sync.Mutex
	errs  []error
}

// ErrTooManyWorkers is returned when the worker count exceeds MaxWorkers.
var ErrTooManyWorkers = errors.New("worker count exceeds maximum")

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool closed")

// MaxWorkers bounds the pool size so the queue buffer cannot overflow.
const MaxWorkers = math.MaxInt / 2

// DefaultWorkers is the pool size used by topology generation.
const DefaultWorkers = 8

// NewWorkerPool starts a pool with the given number of workers (minimum 1).
func NewWorkerPool(workers int) (*WorkerPool, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2),
	}
	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool, nil
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		wp.run(task)
	}
}

// run executes one task, turning a panic into a recorded error so a bad
// batch fails the whole job instead of killing the worker.
func (wp *WorkerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			wp.errMu.Lock()
			wp.errs = append(wp.errs, fmt.Errorf("task panicked: %v", r))
			wp.errMu.Unlock()
		}
	}()
	task()
}

// Submit queues a task. It returns ErrPoolClosed after Close.
func (wp *WorkerPool) Submit(task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}
	wp.taskQueue <- task
	return nil
}

// Close stops accepting tasks and waits for queued ones to finish.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// Wait closes the pool, blocks until every task has run and returns the
// joined panic errors, if any.
func (wp *WorkerPool) Wait() error {
	wp.Close()
	wp.errMu.Lock()
	defer wp.errMu.Unlock()
	return errors.Join(wp.errs...)
}

// Batch is a half-open index range [Start, End).
type Batch struct {
	Start int
	End   int
}

// Batches splits [0, total) into contiguous ranges of at most size elements.
func Batches(total, size int) []Batch {
	if total <= 0 {
		return nil
	}
	if size <= 0 {
		size = total
	}
	out := make([]Batch, 0, (total+size-1)/size)
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		out = append(out, Batch{Start: start, End: end})
	}
	return out
}

// BatchSize returns max(minimum, total/workers), the batch sizing rule used
// for node and edge insertion.
func BatchSize(total, workers, minimum int) int {
	if workers <= 0 {
		workers = 1
	}
	size := total / workers
	if size < minimum {
		size = minimum
	}
	return size
}

// RunBatches applies fn to every batch on a fresh pool of the given size and
// blocks until all batches complete.
func RunBatches(workers int, batches []Batch, fn func(Batch)) error {
	if len(batches) == 0 {
		return nil
	}
	if workers > len(batches) {
		workers = len(batches)
	}
	pool, err := NewWorkerPool(workers)
	if err != nil {
		return err
	}
	for _, b := range batches {
		if err := pool.Submit(func() { fn(b) }); err != nil {
			pool.Close()
			return err
		}
	}
	return pool.Wait()
}
