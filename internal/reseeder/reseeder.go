package reseeder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Borislavv/go-lrng/config"
)

// Worker runs seed work off the event path. Schedule never blocks.
type Worker interface {
	Schedule() bool
	Metrics() (scheduled, dropped, runs int64)
	Close() error
}

type SeedWorker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.DRNGCfg
	logger   *slog.Logger
	work     func()
	recheck  func()
	counters *reseederCounters
	invokeCh chan struct{}
	done     chan struct{}
}

// New starts a worker which calls work once per successful Schedule. When the
// recheck interval is positive, recheck is called on every tick so that a
// threshold crossed while work was running is not left pending until the next event.
func New(
	ctx context.Context,
	cfg *config.DRNGCfg,
	logger *slog.Logger,
	work func(),
	recheck func(),
) *SeedWorker {
	ctx, cancel := context.WithCancel(ctx)
	return (&SeedWorker{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		work:     work,
		recheck:  recheck,
		counters: newReseederCounters(),
		invokeCh: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}).run()
}

// Schedule queues one unit of work. It returns false when the worker is stopped
// or a unit is already pending; the caller keeps ownership of whatever it meant
// to hand over.
func (w *SeedWorker) Schedule() bool {
	if w.ctx.Err() != nil {
		w.counters.dropped.Add(1)
		return false
	}

	select {
	case w.invokeCh <- struct{}{}:
		w.counters.scheduled.Add(1)
		return true
	default:
		w.counters.dropped.Add(1)
		return false
	}
}

func (w *SeedWorker) Metrics() (scheduled, dropped, runs int64) {
	return w.counters.snapshot()
}

// Close stops the worker and waits for the unit in progress, if any.
func (w *SeedWorker) Close() error {
	w.cancel()
	<-w.done
	return nil
}

func (w *SeedWorker) run() *SeedWorker {
	w.logger.Info("reseeder is running", "recheck_interval", w.cfg.SeedRecheckInterval.String())

	go func() {
		defer close(w.done)
		defer w.logger.Info("reseeder is stopped")
		var wg sync.WaitGroup
		wg.Go(w.consumer)
		if w.cfg.SeedRecheckInterval > 0 && w.recheck != nil {
			wg.Go(w.provider)
		}
		wg.Wait()
	}()

	return w
}

// provider - periodically asks the engine whether a pool drain is due.
func (w *SeedWorker) provider() {
	tick := time.NewTicker(w.cfg.SeedRecheckInterval)
	defer tick.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-tick.C:
			w.recheck()
		}
	}
}

// consumer - executes scheduled work one unit at a time.
func (w *SeedWorker) consumer() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.invokeCh:
			w.work()
			w.counters.runs.Add(1)
		}
	}
}
