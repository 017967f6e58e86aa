package indexdup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObservable(t *testing.T) {
	t.Parallel()

	var o = NewObservable(1)
	assert.Equal(t, 1, o.Get())

	var changed = o.Changed()
	o.Set(2)
	select {
	case <-changed:
	default:
		t.Fatal("changed was not closed by Set")
	}

	o.Update(func(v int) int { return v * 10 })
	assert.Equal(t, 20, o.Get())
}

func TestObservableWatchKeepsLatest(t *testing.T) {
	t.Parallel()

	var o = NewObservable(0)
	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	var values = o.Watch(ctx)
	assert.Equal(t, 0, <-values)

	for i := 1; i <= 100; i++ {
		o.Set(i)
	}

	var deadline = time.After(5 * time.Second)
	for {
		select {
		case v := <-values:
			if v == 100 {
				cancel()
				for range values {
				}
				return
			}
		case <-deadline:
			t.Fatal("never saw the last value")
		}
	}
}
