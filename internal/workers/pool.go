// Package workers runs independent tasks on a fixed number of goroutines.
package workers

import (
	"context"
	"sync"
)

// Task is a unit of work producing an owned result.
type Task[R any] func(ctx context.Context) (R, error)

// Result carries a task outcome back to the submitter. Index is the value
// passed to Submit.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

type job[R any] struct {
	index int
	task  Task[R]
}

// Pool manages parallel task execution with a configurable number of workers.
type Pool[R any] struct {
	workers int
	jobs    chan job[R]
	results chan Result[R]
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a pool bound to ctx. Workers below one are raised to one.
func New[R any](ctx context.Context, workers int) *Pool[R] {
	if workers < 1 {
		workers = 1
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Pool[R]{
		workers: workers,
		jobs:    make(chan job[R], workers*2),
		results: make(chan Result[R], workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool[R]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool[R]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return

		case j, ok := <-p.jobs:
			if !ok {
				return
			}

			value, err := j.task(p.ctx)

			select {
			case p.results <- Result[R]{Index: j.index, Value: value, Err: err}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a task. It blocks while the queue is full and fails once the
// pool context is done.
func (p *Pool[R]) Submit(index int, task Task[R]) error {
	select {
	case p.jobs <- job[R]{index: index, task: task}:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Results returns the results channel. It is closed by Stop or Cancel.
func (p *Pool[R]) Results() <-chan Result[R] {
	return p.results
}

// Stop closes the queue, waits for in-flight tasks and closes Results. No
// Submit may be called after Stop.
func (p *Pool[R]) Stop() {
	close(p.jobs)
	p.wg.Wait()
	p.cancel()
	close(p.results)
}

// Cancel aborts pending work and waits for the workers to exit.
func (p *Pool[R]) Cancel() {
	p.cancel()
	p.wg.Wait()
}

// Run executes tasks on a pool of the given size and returns one Result per
// task, ordered like tasks regardless of completion order. Tasks never started
// because ctx ended carry ctx.Err().
func Run[R any](ctx context.Context, workers int, tasks []Task[R]) []Result[R] {
	out := make([]Result[R], len(tasks))
	done := make([]bool, len(tasks))
	if len(tasks) == 0 {
		return out
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	p := New[R](ctx, workers)
	p.Start()

	go func() {
		defer p.Stop()
		for i, task := range tasks {
			if err := p.Submit(i, task); err != nil {
				return
			}
		}
	}()

	for res := range p.Results() {
		out[res.Index] = res
		done[res.Index] = true
	}

	for i := range out {
		if done[i] {
			continue
		}
		err := context.Canceled
		if ctx != nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		out[i] = Result[R]{Index: i, Err: err}
	}
	return out
}
