package indexdup

import (
	"context"
	"sync"
)

// Observable holds a single value with one writer and any number of readers. Readers
// only ever see the latest value; intermediate writes may be skipped.
type Observable[T any] struct {
	lock    sync.RWMutex
	value   T
	changed chan struct{}
}

// NewObservable returns an Observable holding initial.
func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial, changed: make(chan struct{})}
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	o.lock.RLock()
	defer o.lock.RUnlock()

	return o.value
}

// Set replaces the value and wakes every waiter.
func (o *Observable[T]) Set(v T) {
	o.Update(func(T) T { return v })
}

// Update replaces the value with fn applied to it, atomically.
func (o *Observable[T]) Update(fn func(T) T) {
	o.lock.Lock()
	defer o.lock.Unlock()

	o.value = fn(o.value)
	close(o.changed)
	o.changed = make(chan struct{})
}

// Changed returns a channel closed by the next write.
func (o *Observable[T]) Changed() <-chan struct{} {
	o.lock.RLock()
	defer o.lock.RUnlock()

	return o.changed
}

func (o *Observable[T]) snapshot() (T, <-chan struct{}) {
	o.lock.RLock()
	defer o.lock.RUnlock()

	return o.value, o.changed
}

// Watch streams the current value and then every later one until ctx is done. A slow
// reader gets the newest value rather than a backlog.
func (o *Observable[T]) Watch(ctx context.Context) <-chan T {
	var out = make(chan T, 1)

	go func() {
		defer close(out)

		var value, changed = o.snapshot()
		for {
			// replace whatever the reader has not taken yet
			select {
			case <-out:
			default:
			}
			out <- value

			select {
			case <-ctx.Done():
				return
			case <-changed:
				value, changed = o.snapshot()
			}
		}
	}()

	return out
}
