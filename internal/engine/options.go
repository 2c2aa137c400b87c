package engine

import (
	"context"

	"github.com/Borislavv/go-lrng/backend"
	"github.com/Borislavv/go-lrng/internal/pool"
	"github.com/benbjohnson/clock"
)

// Authorizer decides whether the caller behind ctx may run a privileged operation.
type Authorizer func(ctx context.Context) bool

type Option func(*options)

type options struct {
	backend   backend.Backend
	clock     clock.Clock
	terminate func(reason string)
	authorize Authorizer
}

func newOptions(opts []Option) *options {
	o := &options{
		clock:     clock.New(),
		terminate: pool.Fatal,
		authorize: func(context.Context) bool { return true },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.backend == nil {
		o.backend = backend.NewChaCha20()
	}
	return o
}

// WithBackend sets the default backend, the one every switch must come back to.
func WithBackend(b backend.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithClock sets the clock used for reseed intervals.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithTerminate replaces the process exit on a certified-mode self-test failure.
func WithTerminate(fn func(reason string)) Option {
	return func(o *options) { o.terminate = fn }
}

// WithAuthorizer guards entropy injection, entropy count changes, forced reseeds and backend switches.
func WithAuthorizer(fn Authorizer) Option {
	return func(o *options) { o.authorize = fn }
}
