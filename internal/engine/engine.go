package engine

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-lrng/backend"
	"github.com/Borislavv/go-lrng/config"
	"github.com/Borislavv/go-lrng/internal/batch"
	"github.com/Borislavv/go-lrng/internal/drng"
	"github.com/Borislavv/go-lrng/internal/noise"
	"github.com/Borislavv/go-lrng/internal/pool"
	"github.com/Borislavv/go-lrng/internal/reseeder"
	"github.com/Borislavv/go-lrng/internal/shared/rate"
)

// noticeRate bounds "requested before seeded" notices per second.
const noticeRate = 1

// Engine owns the entropy pool and every generator built on top of it.
type Engine struct {
	cfg       *config.Config
	logger    *slog.Logger
	authorize Authorizer
	start     time.Time

	pool    *pool.Pool
	stuck   *pool.StuckTester
	primary *drng.Primary
	table   *drng.Table
	worker  reseeder.Worker
	batch   *batch.Batch
	notice  *rate.Jitter

	defaultBackend backend.Backend
	backend        atomic.Pointer[backend.Backend]
	switchMu       sync.Mutex

	// armed is set by the first consumer; until then events only fill the pool.
	armed     atomic.Bool
	lastInput atomic.Uint32

	readQ   *waitQueue // full-entropy readers
	writeQ  *waitQueue // external entropy injectors
	seededQ *waitQueue // WaitUntilSeeded callers
	ready   readyList
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	o := newOptions(opts)

	e := &Engine{
		cfg:            cfg,
		logger:         logger,
		authorize:      o.authorize,
		start:          time.Now(),
		defaultBackend: o.backend,
		readQ:          newWaitQueue(),
		writeQ:         newWaitQueue(),
		seededQ:        newWaitQueue(),
	}
	e.backend.Store(&o.backend)

	e.pool = pool.New(cfg.Pool.IRQEntropyBits)
	initPool(e.pool)
	e.stuck = pool.NewStuckTester(cfg.Pool.StuckTestEnabled(), cfg.Pool.Certified, o.terminate)

	primary, err := drng.NewPrimary(o.backend, e.pool, noise.FromConfig(cfg.Noise), e, logger)
	if err != nil {
		return nil, err
	}
	table, err := drng.NewTable(&cfg.DRNG, o.backend, primary, o.clock, logger)
	if err != nil {
		primary.Close()
		return nil, err
	}
	e.primary, e.table = primary, table

	e.batch = batch.New(cfg.DRNG.Shards, e.GetRandomBytes)
	e.notice = rate.NewJitter(ctx, noticeRate)
	e.worker = reseeder.New(ctx, &cfg.DRNG, logger, e.seedWork, e.recheck)

	logger.Info("entropy engine initialized",
		"backend", o.backend.Name(),
		"high_res_timer", cfg.Pool.HighResTimer,
		"irq_entropy_bits", cfg.Pool.IRQEntropyBits,
		"certified", cfg.Pool.Certified,
	)
	return e, nil
}

// initPool stirs uncredited startup material into the pool so that identical
// hosts do not start from identical states.
func initPool(p *pool.Pool) {
	now := uint64(time.Now().UnixNano())
	p.MixWord(uint32(now))
	p.MixWord(uint32(now >> 32))

	var words [pool.Words * 4]byte
	if err := noise.ReadHW(words[:]); err != nil {
		for i := 0; i < pool.Words; i++ {
			binary.LittleEndian.PutUint32(words[i*4:], uint32(time.Now().UnixNano()))
		}
	}
	p.MixBytes(words[:])
	clear(words[:])

	p.MixBytes(noise.DeviceSeed())
}

// arm enables threshold-triggered reseeds. Called by every consumer entry point.
func (e *Engine) arm() {
	if e.armed.Load() || !e.armed.CompareAndSwap(false, true) {
		return
	}
	e.logger.Info("entropy engine armed", "pool_entropy_bits", e.pool.AvailEntropy())
}

// Backend returns the active backend.
func (e *Engine) Backend() backend.Backend {
	return *e.backend.Load()
}

// timestamp is a monotonic nanosecond counter used as the event time of
// internally generated events.
func (e *Engine) timestamp() uint64 {
	return uint64(time.Since(e.start))
}

// SeedLevelReached implements drng.Notifier.
func (e *Engine) SeedLevelReached(level drng.SeedState) {
	e.batch.Invalidate()
	if level >= drng.MinimallySeeded {
		e.ready.fire()
		e.seededQ.broadcast()
	}
}

// EntropyInjected implements drng.Notifier.
func (e *Engine) EntropyInjected() {
	if e.readQ.hasSleeper() && e.haveEntropyFull() {
		e.readQ.broadcast()
	}
}

// PoolDrained implements drng.Notifier.
func (e *Engine) PoolDrained(poolBits uint32) {
	if e.writeQ.hasSleeper() && (poolBits < pool.EmergencyBits || e.needEntropy()) {
		e.writeQ.broadcast()
	}
}

// haveEntropyFull reports whether a full-entropy read can make progress.
func (e *Engine) haveEntropyFull() bool {
	return e.pool.AvailEntropy() >= e.cfg.Pool.ReadWakeupBits ||
		e.primary.EntropyBits() >= drng.SecurityStrengthBits
}

// needEntropy reports whether external injection is welcome.
func (e *Engine) needEntropy() bool {
	return e.pool.AvailEntropy() < e.cfg.Pool.WriteWakeupBits &&
		e.primary.EntropyBits() < drng.SecurityStrengthBits
}

// Close stops the background worker and releases every generator.
// Blocked waiters are released by their own contexts; no other call may follow.
func (e *Engine) Close() error {
	err := e.worker.Close()

	e.switchMu.Lock()
	defer e.switchMu.Unlock()
	e.table.Close()
	e.primary.Close()

	return err
}
