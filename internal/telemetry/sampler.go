package telemetry

import (
	"github.com/Borislavv/go-lrng/internal/engine"
	"github.com/Borislavv/go-lrng/internal/feeder"
)

// Source is the engine view telemetry reads from.
type Source interface {
	Metrics() engine.Metrics
}

type sampler struct {
	engine Source
	feeder feeder.Feeder
}

func newSampler(e Source, f feeder.Feeder) sampler {
	return sampler{engine: e, feeder: f}
}

// snapshot holds cumulative counters (monotonic).
type snapshot struct {
	poolMixed      uint64
	poolCASRetries uint64
	stuckRejected  uint64

	primaryReseeds   uint64
	primarySeeds     uint64
	primaryContended uint64
	primaryBytes     uint64
	primaryErrors    uint64

	secondaryReseeds uint64
	atomicReseeds    uint64
	secondaryBytes   uint64
	secondaryErrors  uint64

	seedScheduled uint64
	seedDropped   uint64
	seedRuns      uint64

	feederEvents     uint64
	feederInjections uint64
	feederInjected   uint64
	feederErrors     uint64
}

func (s sampler) snapshot() (engine.Metrics, snapshot) {
	m := s.engine.Metrics()
	events, injections, injected, errs := s.feeder.Metrics()

	return m, snapshot{
		poolMixed:      uint64(max(m.PoolMixed, 0)),
		poolCASRetries: uint64(max(m.PoolCASRetries, 0)),
		stuckRejected:  uint64(max(m.StuckRejected, 0)),

		primaryReseeds:   uint64(max(m.PrimaryReseeds, 0)),
		primarySeeds:     uint64(max(m.PrimarySeeds, 0)),
		primaryContended: uint64(max(m.PrimaryContended, 0)),
		primaryBytes:     uint64(max(m.PrimaryBytes, 0)),
		primaryErrors:    uint64(max(m.PrimaryErrors, 0)),

		secondaryReseeds: uint64(max(m.SecondaryReseeds, 0)),
		atomicReseeds:    uint64(max(m.AtomicReseeds, 0)),
		secondaryBytes:   uint64(max(m.SecondaryBytes, 0)),
		secondaryErrors:  uint64(max(m.SecondaryErrors, 0)),

		seedScheduled: uint64(max(m.SeedScheduled, 0)),
		seedDropped:   uint64(max(m.SeedDropped, 0)),
		seedRuns:      uint64(max(m.SeedRuns, 0)),

		feederEvents:     uint64(max(events, 0)),
		feederInjections: uint64(max(injections, 0)),
		feederInjected:   uint64(max(injected, 0)),
		feederErrors:     uint64(max(errs, 0)),
	}
}

// deltaSnapshot converts cumulative snapshots to per-interval deltas.
// If counters reset (cur < prev), it treats cur as the delta.
func deltaSnapshot(prev, cur snapshot) snapshot {
	return snapshot{
		poolMixed:      delta(prev.poolMixed, cur.poolMixed),
		poolCASRetries: delta(prev.poolCASRetries, cur.poolCASRetries),
		stuckRejected:  delta(prev.stuckRejected, cur.stuckRejected),

		primaryReseeds:   delta(prev.primaryReseeds, cur.primaryReseeds),
		primarySeeds:     delta(prev.primarySeeds, cur.primarySeeds),
		primaryContended: delta(prev.primaryContended, cur.primaryContended),
		primaryBytes:     delta(prev.primaryBytes, cur.primaryBytes),
		primaryErrors:    delta(prev.primaryErrors, cur.primaryErrors),

		secondaryReseeds: delta(prev.secondaryReseeds, cur.secondaryReseeds),
		atomicReseeds:    delta(prev.atomicReseeds, cur.atomicReseeds),
		secondaryBytes:   delta(prev.secondaryBytes, cur.secondaryBytes),
		secondaryErrors:  delta(prev.secondaryErrors, cur.secondaryErrors),

		seedScheduled: delta(prev.seedScheduled, cur.seedScheduled),
		seedDropped:   delta(prev.seedDropped, cur.seedDropped),
		seedRuns:      delta(prev.seedRuns, cur.seedRuns),

		feederEvents:     delta(prev.feederEvents, cur.feederEvents),
		feederInjections: delta(prev.feederInjections, cur.feederInjections),
		feederInjected:   delta(prev.feederInjected, cur.feederInjected),
		feederErrors:     delta(prev.feederErrors, cur.feederErrors),
	}
}

func delta(prev, cur uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}
