package feeder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Borislavv/go-lrng/config"
	"github.com/Borislavv/go-lrng/internal/noise"
	"github.com/Borislavv/go-lrng/internal/shared/rate"
)

const source = "feeder"

type Feeder interface {
	Metrics() (events, injections, injected, errors int64)
	Close() error
}

// Sink is the part of the engine the feeder writes to.
type Sink interface {
	OnSourceEvent(source string, ts uint64, words ...uint32)
	InjectExternalEntropy(ctx context.Context, buf []byte, entropyBits uint32) error
}

type Worker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.FeederCfg
	sink     Sink
	logger   *slog.Logger
	jitter   *rate.Jitter
	counters *feederCounters
	done     chan struct{}
}

// New starts the feeder. The sampler turns its own wakeup times into timing
// events and the injector periodically credits operating system entropy.
func New(ctx context.Context, cfg *config.FeederCfg, logger *slog.Logger, sink Sink) Feeder {
	if !cfg.Enabled() {
		return NoOpFeeder{}
	}

	ctx, cancel := context.WithCancel(ctx)

	var jitter *rate.Jitter
	if cfg.TimingRate > 0 {
		jitter = rate.NewJitter(ctx, cfg.TimingRate)
	}

	return (&Worker{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		sink:     sink,
		logger:   logger,
		jitter:   jitter,
		counters: newFeederCounters(),
		done:     make(chan struct{}),
	}).run()
}

func (w *Worker) Metrics() (events, injections, injected, errors int64) {
	return w.counters.snapshot()
}

func (w *Worker) Close() error {
	w.cancel()
	<-w.done
	return nil
}

func (w *Worker) run() *Worker {
	w.logger.Info("feeder is running",
		"timing_rate", w.cfg.TimingRate,
		"os_entropy_bytes", w.cfg.OSEntropyBytes,
		"os_interval", w.cfg.OSInterval.String(),
	)

	go func() {
		defer close(w.done)
		defer w.logger.Info("feeder is stopped")
		var wg sync.WaitGroup
		if w.jitter != nil {
			wg.Go(w.sampler)
		}
		if w.cfg.OSEntropyBytes > 0 {
			wg.Go(w.injector)
		}
		wg.Wait()
	}()

	return w
}

// sampler - delivers the wakeup time of every token together with its lateness
// against the previous wakeup.
func (w *Worker) sampler() {
	prev := time.Now().UnixNano()
	for {
		select {
		case <-w.ctx.Done():
			return
		case _, ok := <-w.jitter.Chan():
			if !ok {
				return
			}
			now := time.Now().UnixNano()
			w.sink.OnSourceEvent(source, uint64(now), uint32(now-prev))
			w.counters.events.Add(1)
			prev = now
		}
	}
}

// injector - credits OSEntropyBytes of operating system output every OSInterval.
func (w *Worker) injector() {
	tick := time.NewTicker(w.cfg.OSInterval)
	defer tick.Stop()

	buf := make([]byte, w.cfg.OSEntropyBytes)
	defer clear(buf)

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-tick.C:
			w.inject(buf)
		}
	}
}

func (w *Worker) inject(buf []byte) {
	if err := noise.ReadHW(buf); err != nil {
		w.counters.errors.Add(1)
		w.logger.Warn("feeder failed to read OS entropy", "err", err)
		return
	}

	err := w.sink.InjectExternalEntropy(w.ctx, buf, uint32(len(buf))*8)
	switch {
	case err == nil:
		w.counters.injections.Add(1)
		w.counters.injected.Add(int64(len(buf)))
	case errors.Is(err, context.Canceled) && w.ctx.Err() != nil:
		// stopped while waiting for the engine to need entropy
	default:
		w.counters.errors.Add(1)
		w.logger.Warn("feeder failed to inject OS entropy", "err", err)
	}
}
