// Package pool is the bounded fan-out/fan-in used by every pipeline stage.
package pool

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/kmulvey/goutils"
)

// PanicError is returned by Map when fn panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("worker panic: %v", p.Value)
}

type result[R any] struct {
	index int
	value R
	err   error
}

// Workers clamps a thread budget to [1, n].
func Workers(maxThreads, n int) int {
	if maxThreads <= 0 {
		maxThreads = runtime.NumCPU()
	}
	if maxThreads > n {
		maxThreads = n
	}
	if maxThreads < 1 {
		maxThreads = 1
	}
	return maxThreads
}

// Map calls fn on every item with at most maxThreads calls in flight and returns the
// results in input order. The first error, or a panic, cancels the remaining work
// and is returned with no results. A cancelled ctx also returns no results.
func Map[T, R any](ctx context.Context, maxThreads int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out = make([]R, len(items))
	if len(items) == 0 {
		return out, nil
	}

	var workCtx, cancel = context.WithCancel(ctx)
	defer cancel()

	var numWorkers = Workers(maxThreads, len(items))
	var jobs = make(chan int)
	var resultChans = make([]chan result[R], numWorkers)
	for i := 0; i < numWorkers; i++ {
		var results = make(chan result[R])
		resultChans[i] = results
		go worker(workCtx, jobs, items, fn, results)
	}

	go func() {
		defer close(jobs)
		for i := range items {
			select {
			case <-workCtx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	var firstErr error
	for r := range goutils.MergeChannels(resultChans...) {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
				cancel()
			}
			continue
		}
		out[r.index] = r.value
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Each is Map for closures with no result.
func Each[T any](ctx context.Context, maxThreads int, items []T, fn func(context.Context, T) error) error {
	var _, err = Map(ctx, maxThreads, items, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return err
}

func worker[T, R any](ctx context.Context, jobs <-chan int, items []T, fn func(context.Context, T) (R, error), results chan result[R]) {
	defer close(results)

	for {
		select {
		case <-ctx.Done():
			return
		case i, open := <-jobs:
			if !open {
				return
			}
			var r = call(ctx, i, items[i], fn)
			select {
			case <-ctx.Done():
				return
			case results <- r:
			}
		}
	}
}

func call[T, R any](ctx context.Context, i int, item T, fn func(context.Context, T) (R, error)) (r result[R]) {
	r.index = i
	defer func() {
		if p := recover(); p != nil {
			r.err = &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	r.value, r.err = fn(ctx, item)
	return r
}
