package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/Borislavv/go-lrng/config"
	"github.com/Borislavv/go-lrng/internal/engine"
	"github.com/Borislavv/go-lrng/internal/feeder"
	"github.com/Borislavv/go-lrng/internal/shared/bytes"
)

type Logger interface {
	Interval() time.Duration
	Close() error
}

type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.Config
	logger   *slog.Logger
	engine   Source
	feeder   feeder.Feeder
	interval time.Duration
	done     chan struct{}
}

// New starts the periodic statistics logs when cfg.Telemetry is set.
func New(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	engine Source,
	feeder feeder.Feeder,
) *Logs {
	ctx, cancel := context.WithCancel(ctx)

	var interval time.Duration
	if cfg.Telemetry.Enabled() {
		interval = cfg.Telemetry.LogsInterval
	}

	return (&Logs{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		engine:   engine,
		feeder:   feeder,
		interval: interval,
		done:     make(chan struct{}),
	}).run()
}

func (l *Logs) Interval() time.Duration {
	return l.interval
}

func (l *Logs) Close() error {
	l.cancel()
	<-l.done
	return nil
}

func (l *Logs) run() *Logs {
	if l.interval > 0 {
		go l.loop()
	} else {
		close(l.done)
	}
	return l
}

func (l *Logs) loop() {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	s := newSampler(l.engine, l.feeder)
	_, prev := s.snapshot()

	for {
		select {
		case <-l.ctx.Done():
			return

		case <-ticker.C:
			m, cur := s.snapshot()
			d := deltaSnapshot(prev, cur)
			prev = cur

			l.log(m, d)
		}
	}
}

func (l *Logs) log(m engine.Metrics, d snapshot) {
	common := []any{"interval", l.interval.String()}

	l.logger.Info("entropy_pool",
		append(common,
			"entropy_bits", m.PoolEntropyBits,
			"events", m.PoolEvents,
			"mixed", int64(d.poolMixed),
			"cas_retries", int64(d.poolCASRetries),
			"stuck_rejected", int64(d.stuckRejected),
		)...,
	)

	l.logger.Info("primary_drng",
		append(common,
			"state", m.State.String(),
			"backend", m.Backend,
			"entropy_bits", m.PrimaryEntropyBits,
			"reseeds", int64(d.primaryReseeds),
			"seeds", int64(d.primarySeeds),
			"contended", int64(d.primaryContended),
			"generated", bytes.FmtMem(d.primaryBytes),
			"errors", int64(d.primaryErrors),
		)...,
	)

	l.logger.Info("secondary_drng",
		append(common,
			"shards", m.Shards,
			"reseeds", int64(d.secondaryReseeds),
			"atomic_reseeds", int64(d.atomicReseeds),
			"generated", bytes.FmtMem(d.secondaryBytes),
			"errors", int64(d.secondaryErrors),
			"batch_fills", m.BatchFills,
		)...,
	)

	if d.seedScheduled > 0 || d.seedDropped > 0 {
		l.logger.Info("reseeder",
			append(common,
				"scheduled", int64(d.seedScheduled),
				"dropped", int64(d.seedDropped),
				"runs", int64(d.seedRuns),
			)...,
		)
	}

	if l.cfg.Feeder.Enabled() {
		l.logger.Info("feeder",
			append(common,
				"events", int64(d.feederEvents),
				"injections", int64(d.feederInjections),
				"injected", bytes.FmtMem(d.feederInjected),
				"errors", int64(d.feederErrors),
			)...,
		)
	}
}
