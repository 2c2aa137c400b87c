package batch

import (
	"encoding/binary"
	"runtime"
	"sync"
	"sync/atomic"
)

// Size is the number of random bytes a shard fetches per refill.
const Size = 64

// Fill writes len(out) random bytes into out.
type Fill func(out []byte) (int, error)

type shard struct {
	mu    sync.Mutex
	buf   [Size]byte
	pos   int
	epoch uint64
}

// Batch serves small random integers from per-shard buffers so that callers
// asking for a word at a time do not each pay for a generator call.
// Invalidate discards every buffered byte.
type Batch struct {
	shards []shard
	mask   uint32
	rr     atomic.Uint32 // round-robin counter
	epoch  atomic.Uint64
	fill   Fill
	fills  atomic.Int64
}

// New returns a batch with n shards. If n<=0, it uses GOMAXPROCS*4.
// Shard count is rounded up to power of two for a cheap mask.
func New(n int, fill Fill) *Batch {
	if n <= 0 {
		n = max(runtime.GOMAXPROCS(0)*4, 1)
	}
	p := 1
	for p < n {
		p <<= 1
	}

	b := &Batch{
		shards: make([]shard, p),
		mask:   uint32(p - 1),
		fill:   fill,
	}
	// Shards start at epoch 0 and so refill before their first use.
	b.epoch.Store(1)
	return b
}

// Invalidate makes every shard refill on its next use.
func (b *Batch) Invalidate() {
	b.epoch.Add(1)
}

func (b *Batch) Uint64() (uint64, error) {
	var v [8]byte
	if err := b.take(v[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(v[:]), nil
}

func (b *Batch) Uint32() (uint32, error) {
	var v [4]byte
	if err := b.take(v[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v[:]), nil
}

// Fills reports how many times a shard was refilled.
func (b *Batch) Fills() int64 {
	return b.fills.Load()
}

func (b *Batch) take(out []byte) error {
	s := &b.shards[b.rr.Add(1)&b.mask]

	s.mu.Lock()
	defer s.mu.Unlock()

	// Words are served aligned to their own size.
	pos := (s.pos + len(out) - 1) &^ (len(out) - 1)
	if epoch := b.epoch.Load(); s.epoch != epoch || pos+len(out) > Size {
		if _, err := b.fill(s.buf[:]); err != nil {
			return err
		}
		b.fills.Add(1)
		s.epoch, pos = epoch, 0
	}

	copy(out, s.buf[pos:])
	clear(s.buf[pos : pos+len(out)])
	s.pos = pos + len(out)
	return nil
}
