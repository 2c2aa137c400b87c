package drng

import "sync/atomic"

type primaryCounters struct {
	reseeds   atomic.Int64 // pool drains
	seeds     atomic.Int64 // successful injections
	contended atomic.Int64 // reseeds refused by the gate
	bytes     atomic.Int64
	errors    atomic.Int64
}

func (c *primaryCounters) snapshot() (reseeds, seeds, contended, bytes, errors int64) {
	return c.reseeds.Load(), c.seeds.Load(), c.contended.Load(), c.bytes.Load(), c.errors.Load()
}

func newPrimaryCounters() *primaryCounters {
	return &primaryCounters{
		reseeds:   atomic.Int64{},
		seeds:     atomic.Int64{},
		contended: atomic.Int64{},
		bytes:     atomic.Int64{},
		errors:    atomic.Int64{},
	}
}

type secondaryCounters struct {
	reseeds       atomic.Int64
	atomicReseeds atomic.Int64
	bytes         atomic.Int64
	errors        atomic.Int64
}

func (c *secondaryCounters) snapshot() (reseeds, atomicReseeds, bytes, errors int64) {
	return c.reseeds.Load(), c.atomicReseeds.Load(), c.bytes.Load(), c.errors.Load()
}

func newSecondaryCounters() *secondaryCounters {
	return &secondaryCounters{
		reseeds:       atomic.Int64{},
		atomicReseeds: atomic.Int64{},
		bytes:         atomic.Int64{},
		errors:        atomic.Int64{},
	}
}
