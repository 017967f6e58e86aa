package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMapKeepsOrder(t *testing.T) {
	t.Parallel()

	var items = make([]int, 100)
	for i := range items {
		items[i] = i
	}

	var results, err = Map(context.Background(), 8, items, func(_ context.Context, i int) (int, error) {
		// finish out of order
		time.Sleep(time.Duration(100-i) * 10 * time.Microsecond)
		return i * i, nil
	})
	assert.NoError(t, err)
	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
}

func TestMapRespectsLimit(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int64
	var items = make([]int, 50)
	var _, err = Map(context.Background(), 3, items, func(_ context.Context, _ int) (int, error) {
		var n = inFlight.Add(1)
		for {
			var p = peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	})
	assert.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.Greater(t, peak.Load(), int64(0))
}

func TestMapFirstErrorStopsWork(t *testing.T) {
	t.Parallel()

	var boom = errors.New("boom")
	var calls atomic.Int64
	var items = make([]int, 1000)
	for i := range items {
		items[i] = i
	}

	var results, err = Map(context.Background(), 2, items, func(ctx context.Context, i int) (int, error) {
		calls.Add(1)
		if i == 3 {
			return 0, boom
		}
		time.Sleep(100 * time.Microsecond)
		return i, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, results)
	assert.Less(t, calls.Load(), int64(1000))
}

func TestMapPanic(t *testing.T) {
	t.Parallel()

	var _, err = Map(context.Background(), 4, []string{"a", "b"}, func(_ context.Context, s string) (string, error) {
		if s == "b" {
			panic("bad item")
		}
		return s, nil
	})

	var pe *PanicError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "bad item", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Equal(t, "worker panic: bad item", err.Error())
}

func TestMapCancel(t *testing.T) {
	t.Parallel()

	var ctx, cancel = context.WithCancel(context.Background())
	var calls atomic.Int64
	var items = make([]int, 1000)

	var results, err = Map(ctx, 2, items, func(ctx context.Context, i int) (int, error) {
		if calls.Add(1) == 10 {
			cancel()
		}
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
	assert.Less(t, calls.Load(), int64(1000))

	_, err = Map(ctx, 2, items, func(ctx context.Context, i int) (int, error) { return i, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapEmptyAndEach(t *testing.T) {
	t.Parallel()

	var results, err = Map(context.Background(), 4, []int{}, func(_ context.Context, i int) (int, error) { return i, nil })
	assert.NoError(t, err)
	assert.Empty(t, results)

	var sum atomic.Int64
	err = Each(context.Background(), 0, []int{1, 2, 3}, func(_ context.Context, i int) error {
		sum.Add(int64(i))
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(6), sum.Load())
}

func TestWorkers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, Workers(4, 0))
	assert.Equal(t, 2, Workers(4, 2))
	assert.Equal(t, 4, Workers(4, 10))
	assert.GreaterOrEqual(t, Workers(0, 10), 1)
}
