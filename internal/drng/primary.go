package drng

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-lrng/backend"
	"github.com/Borislavv/go-lrng/internal/noise"
	"github.com/Borislavv/go-lrng/internal/pool"
)

// Notifier receives primary DRNG events. It is never called with the primary lock held.
type Notifier interface {
	// SeedLevelReached is called once for every level crossed upwards.
	SeedLevelReached(level SeedState)
	// EntropyInjected is called after every successful injection.
	EntropyInjected()
	// PoolDrained is called after a reseed extracted poolBits from the pool.
	PoolDrained(poolBits uint32)
}

type noopNotifier struct{}

func (noopNotifier) SeedLevelReached(SeedState) {}
func (noopNotifier) EntropyInjected()           {}
func (noopNotifier) PoolDrained(uint32)         {}

// Primary is the generator seeded exclusively from the entropy pool and the noise sources.
// Every operation on the generator, the pool hash and the budget holds mu.
type Primary struct {
	mu   sync.Mutex
	gen  *generator
	hash backend.Handle

	entropyBits atomic.Uint32 // written under mu
	state       atomic.Int32  // written under mu

	gate     Gate
	pool     *pool.Pool
	noise    []noise.Source
	notify   Notifier
	logger   *slog.Logger
	counters *primaryCounters
}

func NewPrimary(
	b backend.Backend,
	p *pool.Pool,
	sources []noise.Source,
	notify Notifier,
	logger *slog.Logger,
) (*Primary, error) {
	gen, err := newGenerator(b)
	if err != nil {
		return nil, err
	}
	hash, err := b.HashAlloc(p.Key())
	if err != nil {
		gen.release()
		return nil, fmt.Errorf("%w: %s hash: %w", ErrAllocation, b.Name(), err)
	}
	if notify == nil {
		notify = noopNotifier{}
	}

	return &Primary{
		gen:      gen,
		hash:     hash,
		pool:     p,
		noise:    sources,
		notify:   notify,
		logger:   logger,
		counters: newPrimaryCounters(),
	}, nil
}

func (p *Primary) State() SeedState {
	return SeedState(p.state.Load())
}

func (p *Primary) EntropyBits() uint32 {
	return p.entropyBits.Load()
}

func (p *Primary) Gate() *Gate {
	return &p.gate
}

func (p *Primary) Metrics() (reseeds, seeds, contended, bytes, errors int64) {
	return p.counters.snapshot()
}

// Inject seeds the generator with in, credits at most len(in)*8 bits and, when out
// is not empty, draws from the freshly seeded generator before releasing the lock.
func (p *Primary) Inject(in []byte, entropyBits uint32, out []byte, full bool) (int, error) {
	entropyBits = uint32(min(uint64(entropyBits), uint64(len(in))*8))

	p.mu.Lock()
	from := p.State()
	n, err := p.injectLocked(in, entropyBits, out, full)
	to := p.State()
	p.mu.Unlock()

	for level := from + 1; level <= to; level++ {
		p.notify.SeedLevelReached(level)
	}
	if err == nil {
		p.notify.EntropyInjected()
	}
	return n, err
}

func (p *Primary) injectLocked(in []byte, entropyBits uint32, out []byte, full bool) (int, error) {
	if err := p.gen.seed(in); err != nil {
		p.logger.Warn("primary DRNG seeding failed", "backend", p.gen.backend.Name(), "err", err)
		p.counters.errors.Add(1)
		p.resetLocked()
		return 0, fmt.Errorf("%w: primary: %w", ErrSeed, err)
	}
	p.counters.seeds.Add(1)

	p.entropyBits.Store(min(p.entropyBits.Load()+entropyBits, SecurityStrengthBits))
	p.advanceLocked()

	if len(out) == 0 {
		return 0, nil
	}
	return p.generateLocked(out, full)
}

// advanceLocked moves the seeding state machine forward to the level the budget allows.
func (p *Primary) advanceLocked() {
	state, bits := p.State(), p.entropyBits.Load()
	if state == FullySeeded {
		return
	}

	next := state
	switch {
	case bits >= SecurityStrengthBits:
		next = FullySeeded
		p.pool.SetEntropyThresh(SecurityStrengthBits)
	case bits >= pool.MinSeedEntropyBits && state < MinimallySeeded:
		next = MinimallySeeded
		p.pool.SetEntropyThresh(SecurityStrengthBits)
	case bits >= pool.InitEntropyBits && state < Initial:
		next = Initial
		p.pool.SetEntropyThresh(pool.MinSeedEntropyBits)
	}

	if next != state {
		p.state.Store(int32(next))
		p.logger.Info("primary DRNG seed level reached", "state", next.String(), "entropy_bits", bits)
	}
}

// Generate draws from the generator within the entropy budget.
func (p *Primary) Generate(out []byte, full bool) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generateLocked(out, full)
}

func (p *Primary) generateLocked(out []byte, full bool) (int, error) {
	state := p.State()
	if full && state != FullySeeded {
		return 0, nil
	}

	limit := uint32(pool.MinSeedEntropyBits / 8)
	if state >= MinimallySeeded {
		limit = p.entropyBits.Load() / 8
	}
	n := min(len(out), int(limit))
	if n == 0 {
		return 0, nil
	}

	if _, err := p.gen.generateFull(out[:n]); err != nil {
		p.logger.Warn("primary DRNG generation failed", "backend", p.gen.backend.Name(), "err", err)
		p.counters.errors.Add(1)
		p.resetLocked()
		return 0, fmt.Errorf("%w: primary: %w", ErrGenerate, err)
	}

	bits := p.entropyBits.Load()
	p.entropyBits.Store(bits - min(uint32(n)*8, bits))
	p.counters.bytes.Add(int64(n))

	return n, nil
}

// ReseedAndGenerate is SeedAndGenerate behind the single-flight gate.
// A caller losing the race gets ErrReseedInProgress.
func (p *Primary) ReseedAndGenerate(out []byte, full, drain bool) (int, error) {
	if !p.gate.TryAcquire() {
		p.counters.contended.Add(1)
		return 0, ErrReseedInProgress
	}
	defer p.gate.Release()

	return p.SeedAndGenerate(out, full, drain)
}

// SeedAndGenerate serves out from the existing budget first and, if more is needed,
// reseeds from the pool, the noise sources and a timestamp. The caller holds the gate.
func (p *Primary) SeedAndGenerate(out []byte, full, drain bool) (int, error) {
	served := 0
	if len(out) > 0 && p.EntropyBits() >= 8 {
		if n, err := p.Generate(out, full); err == nil {
			if n == len(out) {
				return n, nil
			}
			served = n
		}
	}

	p.counters.reseeds.Add(1)

	seed := make([]byte, SecurityStrengthBytes*(1+len(p.noise))+8)
	defer clear(seed)

	poolBits := p.pool.Extract(seed[:SecurityStrengthBytes], SecurityStrengthBits, drain, poolHasher{p}, &p.mu)
	bits := poolBits
	for i, src := range p.noise {
		off := SecurityStrengthBytes * (i + 1)
		bits += src.Get(seed[off : off+SecurityStrengthBytes])
	}
	binary.LittleEndian.PutUint64(seed[len(seed)-8:], uint64(time.Now().UnixNano()))

	n, err := p.Inject(seed, bits, out[served:], full)
	served += n

	p.notify.PoolDrained(poolBits)
	return served, err
}

// Reset drops the entropy budget and the seeding state.
func (p *Primary) Reset() {
	p.mu.Lock()
	p.resetLocked()
	p.mu.Unlock()
}

func (p *Primary) resetLocked() {
	p.entropyBits.Store(0)
	p.state.Store(int32(Unseeded))
	p.logger.Info("primary DRNG reset")
}

func (p *Primary) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen.backend.HashDealloc(p.hash)
	p.gen.release()
}

// poolHasher digests the pool with the primary's hash. Extract calls it with mu held.
type poolHasher struct {
	p *Primary
}

func (h poolHasher) Digest(data []byte) ([]byte, error) {
	return h.p.gen.backend.HashDigest(h.p.hash, data)
}
