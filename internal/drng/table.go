package drng

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-lrng/backend"
	"github.com/Borislavv/go-lrng/config"
	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
)

const (
	// reseedSpread staggers the reseeds of freshly seeded shards.
	reseedSpread = 100 * time.Second

	fallbackMaxRequestSize = 1 << 12
)

type seedFunc func(out []byte, full, drain bool) (int, error)

// Table owns the secondary generators: the boot-time instance, the atomic DRNG
// and the per-node shards. The shard slice is published once and never resized.
type Table struct {
	cfg     *config.DRNGCfg
	clock   clock.Clock
	logger  *slog.Logger
	primary *Primary

	maxRequest int // chunk size of Get, always positive

	init   *Secondary
	atomic *Secondary
	shards atomic.Pointer[[]*Secondary]
	cursor atomic.Uint64

	maxInterval atomic.Int64 // nanoseconds
	allSeeded   atomic.Bool

	counters *secondaryCounters
}

func NewTable(
	cfg *config.DRNGCfg,
	b backend.Backend,
	primary *Primary,
	clk clock.Clock,
	logger *slog.Logger,
) (*Table, error) {
	gen, err := newGenerator(b)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}

	t := &Table{
		cfg:        cfg,
		clock:      clk,
		logger:     logger,
		primary:    primary,
		maxRequest: cfg.MaxRequestSize,
		counters:   newSecondaryCounters(),
	}
	if t.maxRequest <= 0 {
		t.maxRequest = fallbackMaxRequestSize
	}
	t.maxInterval.Store(int64(cfg.ReseedMaxInterval))
	t.init = t.newSecondary(0, gen)
	t.atomic = t.newSecondary(-1, gen)

	return t, nil
}

func (t *Table) newSecondary(node int, gen *generator) *Secondary {
	s := &Secondary{node: node}
	s.gen.Store(gen)
	t.resetState(s)
	return s
}

func (t *Table) resetState(s *Secondary) {
	s.requests.Store(t.cfg.ReseedThreshold)
	s.lastSeeded.Store(t.now())
	s.fullySeeded.Store(false)
	s.forceReseed.Store(true)
}

func (t *Table) now() int64 {
	return t.clock.Now().UnixNano()
}

// AllSeeded reports whether every shard is fully seeded, so the pool no longer
// needs to trigger background seeding.
func (t *Table) AllSeeded() bool {
	return t.allSeeded.Load()
}

// Shards returns the number of published shards, zero before sharding.
func (t *Table) Shards() int {
	if shards := t.shards.Load(); shards != nil {
		return len(*shards)
	}
	return 0
}

func (t *Table) Metrics() (reseeds, atomicReseeds, bytes, errors int64) {
	return t.counters.snapshot()
}

func (t *Table) instances() []*Secondary {
	if shards := t.shards.Load(); shards != nil {
		return *shards
	}
	return []*Secondary{t.init}
}

// aliased reports whether gen is the atomic DRNG's generator.
func (t *Table) aliased(gen *generator) bool {
	return gen == t.atomic.gen.Load()
}

// lock takes the lock matching the current generator of s and returns that generator.
func (t *Table) lock(s *Secondary) (*generator, func()) {
	for {
		gen := s.gen.Load()
		if t.aliased(gen) {
			gen.spin.Lock()
			if s.gen.Load() == gen {
				return gen, gen.spin.Unlock
			}
			gen.spin.Unlock()
			continue
		}

		s.mu.Lock()
		if s.gen.Load() == gen {
			return gen, s.mu.Unlock
		}
		s.mu.Unlock()
	}
}

// tryLock is lock without waiting, restricted to generators not shared with the atomic DRNG.
func (t *Table) tryLock(s *Secondary) (*generator, func(), bool) {
	gen := s.gen.Load()
	if t.aliased(gen) || !s.mu.TryLock() {
		return nil, nil, false
	}
	if s.gen.Load() != gen {
		s.mu.Unlock()
		return nil, nil, false
	}
	return gen, s.mu.Unlock, true
}

func (t *Table) pick(atomicCtx bool) *Secondary {
	if atomicCtx {
		return t.atomic
	}
	// Go exposes no NUMA node or CPU id of the caller, so node affinity is approximated by round-robin.
	if shards := t.shards.Load(); shards != nil {
		s := (*shards)[t.cursor.Add(1)%uint64(len(*shards))]
		if s.fullySeeded.Load() {
			return s
		}
	}
	return t.init
}

// Get fills out from a secondary generator in chunks of at most MaxRequestSize,
// checking before each chunk whether a reseed is due. With atomicCtx set the atomic
// DRNG serves the request and never waits for the primary.
func (t *Table) Get(out []byte, atomicCtx bool) (int, error) {
	s := t.pick(atomicCtx)

	done := 0
	for done < len(out) {
		chunk := out[done:min(len(out), done+t.maxRequest)]

		if t.reseedDue(s) {
			if atomicCtx {
				t.refreshAtomic()
			} else {
				t.seed(s, t.primary.ReseedAndGenerate)
			}
		}

		gen, unlock := t.lock(s)
		n, err := gen.generate(chunk)
		unlock()
		if err != nil {
			t.logger.Warn("secondary DRNG generation failed", "node", s.node, "err", err)
			t.counters.errors.Add(1)
			s.requests.Store(1)
			return done, fmt.Errorf("%w: node %d: %w", ErrGenerate, s.node, err)
		}

		done += n
		t.counters.bytes.Add(int64(n))
	}
	return done, nil
}

// reseedDue consumes one request and reports whether s must be reseeded first.
func (t *Table) reseedDue(s *Secondary) bool {
	return s.requests.Add(-1) == 0 || s.forceReseed.Load() || t.expired(s)
}

func (t *Table) expired(s *Secondary) bool {
	return t.now()-s.lastSeeded.Load() >= t.maxInterval.Load()
}

// seed pulls a security strength of output from the primary into s.
func (t *Table) seed(s *Secondary, fn seedFunc) {
	var buf [SecurityStrengthBytes]byte
	defer clear(buf[:])

	n, err := fn(buf[:], false, !s.fullySeeded.Load())
	if err != nil {
		if !errors.Is(err, ErrReseedInProgress) {
			t.logger.Warn("secondary DRNG reseed from primary failed", "node", s.node, "err", err)
			s.requests.Store(1)
		}
		return
	}

	if err = t.inject(s, buf[:n], true); err != nil {
		return
	}
	s.forceReseed.Store(false)
	if n >= SecurityStrengthBytes {
		s.fullySeeded.Store(true)
	}

	if s != t.atomic && !t.aliased(s.gen.Load()) && t.atomicDue() {
		t.reseedAtomic(s, true)
	}
}

// inject seeds s with in. Internal reseeds also restart the request budget and the timer.
func (t *Table) inject(s *Secondary, in []byte, internal bool) error {
	gen, unlock := t.lock(s)
	defer unlock()

	if err := gen.seed(in); err != nil {
		t.logger.Warn("secondary DRNG seeding failed", "node", s.node, "err", err)
		t.counters.errors.Add(1)
		s.requests.Store(1)
		return fmt.Errorf("%w: node %d: %w", ErrSeed, s.node, err)
	}

	if internal {
		s.lastSeeded.Store(t.now())
		s.requests.Store(t.cfg.ReseedThreshold)
	}
	t.counters.reseeds.Add(1)
	return nil
}

func (t *Table) atomicDue() bool {
	a := t.atomic
	return a.forceReseed.Load() || a.requests.Load() <= 0 || t.expired(a)
}

// refreshAtomic reseeds the atomic DRNG from the first fully seeded shard whose lock is free.
func (t *Table) refreshAtomic() {
	shards := t.shards.Load()
	if shards == nil {
		return
	}
	for _, s := range *shards {
		if s.fullySeeded.Load() && t.reseedAtomic(s, false) {
			return
		}
	}
}

func (t *Table) reseedAtomic(from *Secondary, wait bool) bool {
	var (
		gen    *generator
		unlock func()
	)
	if wait {
		gen, unlock = t.lock(from)
	} else {
		var ok bool
		if gen, unlock, ok = t.tryLock(from); !ok {
			return false
		}
	}
	if t.aliased(gen) {
		unlock()
		return false
	}

	var buf [SecurityStrengthBytes]byte
	defer clear(buf[:])
	_, err := gen.generate(buf[:])
	unlock()
	if err != nil {
		from.requests.Store(1)
		return false
	}

	if err = t.inject(t.atomic, buf[:], true); err != nil {
		return false
	}
	t.atomic.forceReseed.Store(false)
	t.atomic.fullySeeded.Store(from.fullySeeded.Load())
	t.counters.atomicReseeds.Add(1)
	return true
}

// SeedWork seeds the first instance that is not fully seeded yet and marks the
// table as all seeded when none is left. The caller holds the primary gate.
func (t *Table) SeedWork() {
	for _, s := range t.instances() {
		if !s.fullySeeded.Load() {
			t.seedWork(s)
			return
		}
	}
	t.allSeeded.Store(true)
}

func (t *Table) seedWork(s *Secondary) {
	t.seed(s, t.primary.SeedAndGenerate)
	if !s.fullySeeded.Load() {
		return
	}

	// Keep idle nodes from draining the pool at the same moment.
	s.lastSeeded.Add(int64(s.node) * int64(reseedSpread))
	t.maxInterval.Add(int64(reseedSpread))
	t.logger.Info("secondary DRNG fully seeded", "node", s.node)
}

// ForceReseed makes every instance, the atomic DRNG included, reseed on its next use.
func (t *Table) ForceReseed() {
	for _, s := range t.instances() {
		s.forceReseed.Store(true)
	}
	t.atomic.forceReseed.Store(true)
}

// Allocate creates one secondary per configured node, reusing the boot-time instance
// for node 0. Any failure releases what was allocated and keeps the single instance.
func (t *Table) Allocate(ctx context.Context, b backend.Backend) error {
	nodes := t.cfg.Shards
	if nodes <= 1 || t.shards.Load() != nil {
		return nil
	}

	shards := make([]*Secondary, nodes)
	shards[0] = t.init

	g, gctx := errgroup.WithContext(ctx)
	for node := 1; node < nodes; node++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			gen, err := newGenerator(b)
			if err != nil {
				return fmt.Errorf("node %d: %w", node, err)
			}
			shards[node] = t.newSecondary(node, gen)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		release(shards[1:])
		t.logger.Warn("secondary DRNG sharding failed, keeping the shared instance", "err", err)
		return err
	}
	if !t.shards.CompareAndSwap(nil, &shards) {
		release(shards[1:])
		return nil
	}

	t.allSeeded.Store(false)
	t.logger.Info("secondary DRNGs allocated", "shards", nodes)
	return nil
}

func (t *Table) Close() {
	seen := make(map[*generator]struct{})
	for _, s := range append([]*Secondary{t.atomic}, t.instances()...) {
		gen := s.gen.Load()
		if _, ok := seen[gen]; ok {
			continue
		}
		seen[gen] = struct{}{}
		gen.release()
	}
}

func release(list []*Secondary) {
	for _, s := range list {
		if s != nil {
			s.gen.Load().release()
		}
	}
}
