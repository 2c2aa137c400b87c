package drng

import (
	"sync"
	"sync/atomic"
)

// Secondary is a generator seeded from the primary that serves consumer requests.
//
// The atomic DRNG is a Secondary too. Until shards exist it shares its generator
// with the boot-time instance; a shared generator is always guarded by its spin
// lock, a private one by mu.
type Secondary struct {
	mu  sync.Mutex
	gen atomic.Pointer[generator]

	requests    atomic.Int32 // may go transiently negative under concurrent reseeds
	lastSeeded  atomic.Int64 // unix nanos of the table clock
	fullySeeded atomic.Bool
	forceReseed atomic.Bool

	node int // -1 for the atomic DRNG
}

func (s *Secondary) Node() int { return s.node }

func (s *Secondary) FullySeeded() bool { return s.fullySeeded.Load() }
