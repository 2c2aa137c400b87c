package feeder

import "sync/atomic"

type feederCounters struct {
	events     atomic.Int64 // timing events delivered
	injections atomic.Int64 // successful OS entropy injections
	injected   atomic.Int64 // bytes injected
	errors     atomic.Int64 // failed reads or injections
}

func newFeederCounters() *feederCounters {
	return &feederCounters{}
}

func (c *feederCounters) snapshot() (events, injections, injected, errors int64) {
	events = c.events.Load()
	injections = c.injections.Load()
	injected = c.injected.Load()
	errors = c.errors.Load()
	return
}
