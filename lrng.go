package lrng

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/Borislavv/go-lrng/config"
	"github.com/Borislavv/go-lrng/internal/engine"
	"github.com/Borislavv/go-lrng/internal/feeder"
	"github.com/Borislavv/go-lrng/internal/telemetry"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// RNG is the entropy engine together with its background workers.
type RNG struct {
	*engine.Engine
	feeder    feeder.Feeder
	logs      telemetry.Logger
	collector *telemetry.Collector
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// New builds the engine from cfg and starts its background workers.
// A nil cfg means config.Default(); zero fields of a given cfg get their defaults.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*RNG, error) {
	if cfg == nil {
		cfg = config.Default()
	} else {
		cfg.AdjustConfig()
	}
	ctx, cancel := context.WithCancel(ctx)

	e, err := engine.New(ctx, cfg, logger, opts...)
	if err != nil {
		cancel()
		return nil, err
	}
	if err = e.AllocateShards(ctx); err != nil {
		logger.Warn("per-node secondary DRNGs unavailable, serving from the shared instance", "err", err)
	}

	f := feeder.New(ctx, cfg.Feeder, logger, e)
	return &RNG{
		Engine:    e,
		feeder:    f,
		logs:      telemetry.New(ctx, cfg, logger, e, f),
		collector: telemetry.NewCollector(e, f),
		cancel:    cancel,
	}, nil
}

// Close stops the workers first and the engine last. Repeated calls return the first result.
func (r *RNG) Close() error {
	r.closeOnce.Do(func() {
		r.cancel()
		r.closeErr = multierr.Combine(
			r.logs.Close(),
			r.feeder.Close(),
			r.Engine.Close(),
		)
	})
	return r.closeErr
}

// Collector exports the engine counters, ready for prometheus.MustRegister.
func (r *RNG) Collector() prometheus.Collector {
	return r.collector
}

func (r *RNG) FeederMetrics() (events, injections, injected, errors int64) {
	return r.feeder.Metrics()
}

// Reader returns an io.Reader over GetRandomBytes.
func (r *RNG) Reader() io.Reader {
	return reader{r.Engine}
}

// UUID returns a version 4 UUID drawn from the secondary DRNGs.
func (r *RNG) UUID() (uuid.UUID, error) {
	return uuid.NewRandomFromReader(r.Reader())
}

type reader struct {
	e *engine.Engine
}

func (r reader) Read(p []byte) (int, error) {
	return r.e.GetRandomBytes(p)
}
