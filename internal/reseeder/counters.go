package reseeder

import "sync/atomic"

type reseederCounters struct {
	scheduled atomic.Int64
	dropped   atomic.Int64
	runs      atomic.Int64
}

func (c *reseederCounters) snapshot() (scheduled, dropped, runs int64) {
	return c.scheduled.Load(), c.dropped.Load(), c.runs.Load()
}

func newReseederCounters() *reseederCounters {
	return &reseederCounters{
		scheduled: atomic.Int64{},
		dropped:   atomic.Int64{},
		runs:      atomic.Int64{},
	}
}
