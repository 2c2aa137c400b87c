package rate

import (
	"context"

	"go.uber.org/ratelimit"
)

// Jitter turns a ratelimit.Limiter into a token channel that a select loop can
// wait on, with a small burst buffered ahead. Tokens are produced ahead of use so
// that Allow can answer from a hot path (the unseeded-read notice) without ever
// waiting on the limiter.
type Jitter struct {
	ch    chan struct{}
	l     ratelimit.Limiter
	limit int
}

func NewJitter(ctx context.Context, limit int) *Jitter {
	limit = max(limit, 1)
	brst := max(int(float64(limit)*0.1), 1)

	jitter := &Jitter{
		limit: limit,
		ch:    make(chan struct{}, brst),
		l:     ratelimit.New(limit),
	}
	go jitter.provider(ctx)
	return jitter
}

func (l *Jitter) provider(ctx context.Context) {
	defer close(l.ch)
	for {
		l.l.Take()
		select {
		case <-ctx.Done():
			return
		case l.ch <- struct{}{}:
		}
	}
}

func (l *Jitter) Limit() int {
	return l.limit
}

func (l *Jitter) Take() {
	<-l.ch
}

// Allow consumes a token if one is ready and never waits.
func (l *Jitter) Allow() bool {
	select {
	case _, ok := <-l.ch:
		return ok
	default:
		return false
	}
}

func (l *Jitter) Chan() <-chan struct{} {
	return l.ch
}
