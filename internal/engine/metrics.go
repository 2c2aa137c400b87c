package engine

import "github.com/Borislavv/go-lrng/internal/drng"

// Metrics is a point-in-time view of the engine counters. Counters are cumulative.
type Metrics struct {
	State   drng.SeedState
	Backend string
	Shards  int

	PoolEntropyBits uint32
	PoolEvents      uint32
	PoolMixed       int64
	PoolCASRetries  int64
	StuckRejected   int64

	PrimaryEntropyBits uint32
	PrimaryReseeds     int64
	PrimarySeeds       int64
	PrimaryContended   int64
	PrimaryBytes       int64
	PrimaryErrors      int64

	SecondaryReseeds int64
	AtomicReseeds    int64
	SecondaryBytes   int64
	SecondaryErrors  int64

	SeedScheduled int64
	SeedDropped   int64
	SeedRuns      int64

	BatchFills int64
}

func (e *Engine) Metrics() Metrics {
	m := Metrics{
		State:              e.primary.State(),
		Backend:            e.BackendName(),
		Shards:             e.table.Shards(),
		PoolEntropyBits:    e.pool.AvailEntropy(),
		PoolEvents:         e.pool.Events(),
		StuckRejected:      e.stuck.Rejected(),
		PrimaryEntropyBits: e.primary.EntropyBits(),
		BatchFills:         e.batch.Fills(),
	}
	m.PoolMixed, m.PoolCASRetries = e.pool.Metrics()
	m.PrimaryReseeds, m.PrimarySeeds, m.PrimaryContended, m.PrimaryBytes, m.PrimaryErrors = e.primary.Metrics()
	m.SecondaryReseeds, m.AtomicReseeds, m.SecondaryBytes, m.SecondaryErrors = e.table.Metrics()
	m.SeedScheduled, m.SeedDropped, m.SeedRuns = e.worker.Metrics()
	return m
}
