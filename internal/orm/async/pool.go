// Package async runs lookups on a fixed pool of worker goroutines and hands
// their results back through futures.
package async

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrPoolClosed is returned when submitting to a closed pool
	ErrPoolClosed = errors.New("pool closed")
	// ErrTaskPanicked is the error of a task that panicked
	ErrTaskPanicked = errors.New("task panicked")
)

const (
	// DefaultWorkers is the worker count used when none is configured
	DefaultWorkers = 4
	// DefaultQueueSize is the queue capacity used when none is configured
	DefaultQueueSize = 100
)

// Task is a unit of work executed by a pool worker
type Task struct {
	Name string
	Fn   func(ctx context.Context)
}

// Pool executes tasks on a fixed number of workers fed by a bounded queue
type Pool struct {
	tasks   chan Task
	workers int
	logger  *zap.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// Option configures a Pool
type Option func(*Pool)

// WithLogger sets the logger used to report panicking tasks
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPool starts a pool with the given worker count and queue capacity.
// Non-positive values fall back to the defaults.
func NewPool(workers, queueSize int, opts ...Option) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:   make(chan Task, queueSize),
		workers: workers,
		logger:  zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Workers returns the number of worker goroutines
func (p *Pool) Workers() int {
	return p.workers
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.tasks {
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("async task panicked",
				zap.Int("worker", id),
				zap.String("task", task.Name),
				zap.Any("panic", r),
			)
		}
	}()
	task.Fn(p.ctx)
}

// Submit queues a task, blocking while the queue is full. It fails when ctx
// is done or the pool is closed.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// Close stops accepting tasks and waits for queued tasks to finish
func (p *Pool) Close() {
	p.cancel()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

// Future is the pending result of a task submitted with Go
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(v T, err error) {
	f.value, f.err = v, err
	close(f.done)
}

// Done is closed once the result is available
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Go runs fn on the pool and returns a future for its result. fn receives
// ctx, not the pool's context. A panic in fn resolves the future with
// ErrTaskPanicked.
func Go[T any](ctx context.Context, p *Pool, name string, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()

	err := p.Submit(ctx, Task{
		Name: name,
		Fn: func(context.Context) {
			var (
				v        T
				err      error
				finished bool
			)
			defer func() {
				if !finished {
					err = fmt.Errorf("%s: %w", name, ErrTaskPanicked)
				}
				f.resolve(v, err)
			}()
			v, err = fn(ctx)
			finished = true
		},
	})
	if err != nil {
		var zero T
		f.resolve(zero, err)
	}
	return f
}
