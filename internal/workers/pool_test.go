package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunPreservesOrder(t *testing.T) {
	tasks := make([]Task[int], 50)
	for i := range tasks {
		tasks[i] = func(context.Context) (int, error) {
			// Later tasks finish first.
			time.Sleep(time.Duration(len(tasks)-i) * 100 * time.Microsecond)
			return i * i, nil
		}
	}

	results := Run(context.Background(), 8, tasks)
	if len(results) != len(tasks) {
		t.Fatalf("expected %d results, got %d", len(tasks), len(results))
	}
	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("task %d error = %v", i, res.Err)
		}
		if res.Index != i || res.Value != i*i {
			t.Fatalf("result %d: got index %d value %d", i, res.Index, res.Value)
		}
	}
}

func TestRunPropagatesTaskErrors(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task[string]{
		func(context.Context) (string, error) { return "a", nil },
		func(context.Context) (string, error) { return "", boom },
		func(context.Context) (string, error) { return "c", nil },
	}

	results := Run(context.Background(), 2, tasks)
	if !errors.Is(results[1].Err, boom) {
		t.Fatalf("expected boom, got %v", results[1].Err)
	}
	if results[0].Value != "a" || results[2].Value != "c" {
		t.Fatalf("unexpected values %q %q", results[0].Value, results[2].Value)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	tasks := make([]Task[struct{}], 20)
	for i := range tasks {
		tasks[i] = func(context.Context) (struct{}, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return struct{}{}, nil
		}
	}

	Run(context.Background(), 3, tasks)
	if got := peak.Load(); got > 3 {
		t.Fatalf("expected at most 3 concurrent tasks, saw %d", got)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := make([]Task[int], 10)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (int, error) {
			return 0, ctx.Err()
		}
	}

	results := Run(ctx, 4, tasks)
	for i, res := range results {
		if res.Index != i {
			t.Errorf("result %d has index %d", i, res.Index)
		}
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("result %d: expected context.Canceled, got %v", i, res.Err)
		}
	}
}

func TestRunNoTasks(t *testing.T) {
	if got := Run[int](context.Background(), 4, nil); len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}

func TestPoolSubmitAndStop(t *testing.T) {
	p := New[int](context.Background(), 0)
	p.Start()

	go func() {
		for i := 0; i < 5; i++ {
			if err := p.Submit(i, func(context.Context) (int, error) { return 1, nil }); err != nil {
				t.Errorf("Submit() error = %v", err)
			}
		}
		p.Stop()
	}()

	sum := 0
	for res := range p.Results() {
		sum += res.Value
	}
	if sum != 5 {
		t.Fatalf("expected 5 results, got %d", sum)
	}
}
