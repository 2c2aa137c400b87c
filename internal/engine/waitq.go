package engine

import (
	"context"
	"fmt"
	"sync/atomic"
)

// waitQueue parks goroutines until a condition holds. A broadcast closes the
// current channel and publishes a fresh one, so it never blocks and may run
// on the event path.
type waitQueue struct {
	ch      atomic.Pointer[chan struct{}]
	waiters atomic.Int32
}

func newWaitQueue() *waitQueue {
	q := &waitQueue{}
	ch := make(chan struct{})
	q.ch.Store(&ch)
	return q
}

// wait returns once cond holds. cond is re-checked after every broadcast.
func (q *waitQueue) wait(ctx context.Context, cond func() bool) error {
	q.waiters.Add(1)
	defer q.waiters.Add(-1)

	for {
		ch := *q.ch.Load()
		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		case <-ch:
		}
	}
}

func (q *waitQueue) hasSleeper() bool {
	return q.waiters.Load() > 0
}

func (q *waitQueue) broadcast() {
	ch := make(chan struct{})
	close(*q.ch.Swap(&ch))
}
