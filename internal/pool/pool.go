package pool

import (
	"encoding/binary"
	"math/bits"
	"sync/atomic"
)

const (
	Words     = 128
	WordBits  = 32
	SizeBytes = Words * WordBits / 8
	SizeBits  = Words * WordBits

	SecurityStrengthBits  = 256
	SecurityStrengthBytes = SecurityStrengthBits / 8

	// EmergencyBits is the reserve a non-draining extraction must leave behind.
	EmergencyBits = 512

	wordMask  = Words - 1
	ptrStride = 67
)

// taps of the primitive polynomial x^127 + x^28 + x^26 + x + 1 over GF(2).
var taps = [4]uint32{127, 28, 26, 1}

var twistTable = [8]uint32{
	0x00000000, 0x3b6e20c8, 0x76dc4190, 0x4db26158,
	0xedb88320, 0xd6d6a3e8, 0x9b64c2b0, 0xa00ae278,
}

// Pool is an LFSR-mixed accumulator of raw event words.
// Every slot is an atomic word, so producers mix concurrently without a pool-wide lock.
type Pool struct {
	words  [Words]atomic.Uint32
	ptr    atomic.Uint32
	rotate atomic.Uint32

	events atomic.Uint32 // raw events not yet extracted
	thresh atomic.Uint32 // events that trigger a primary reseed

	irqEntropyBits uint32
	maxEvents      uint32

	mixed      atomic.Int64
	casRetries atomic.Int64
}

// New returns an empty pool whose events carry SecurityStrengthBits of entropy
// per irqEntropyBits events.
func New(irqEntropyBits uint32) *Pool {
	if irqEntropyBits == 0 {
		irqEntropyBits = SecurityStrengthBits
	}
	p := &Pool{irqEntropyBits: irqEntropyBits}
	p.maxEvents = p.EntropyToEvents(SizeBits)
	p.SetEntropyThresh(InitEntropyBits)
	return p
}

// MixWord folds value into the slot selected by the pointer stride.
func (p *Pool) MixWord(value uint32) {
	ptr := p.ptr.Add(ptrStride) & wordMask

	var rot uint32
	if ptr == 0 {
		rot = p.rotate.Add(14) & 31
	} else {
		rot = p.rotate.Add(7) & 31
	}
	w := bits.RotateLeft32(value, int(rot))

	slot := &p.words[ptr]
	for {
		old := slot.Load()
		word := w ^ old ^
			p.words[(ptr+taps[0])&wordMask].Load() ^
			p.words[(ptr+taps[1])&wordMask].Load() ^
			p.words[(ptr+taps[2])&wordMask].Load() ^
			p.words[(ptr+taps[3])&wordMask].Load()
		word = (word >> 3) ^ twistTable[word&7]

		if slot.CompareAndSwap(old, word) {
			break
		}
		p.casRetries.Add(1)
	}
	p.mixed.Add(1)
}

// MixBytes mixes buf as little-endian words followed by the byte remainder.
func (p *Pool) MixBytes(buf []byte) {
	for len(buf) >= 4 {
		p.MixWord(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
	}
	for _, b := range buf {
		p.MixWord(uint32(b))
	}
}

// Ptr returns the slot index written by the latest MixWord.
func (p *Pool) Ptr() uint32 {
	return p.ptr.Load() & wordMask
}

// Key returns the first SecurityStrengthBytes of the pool, used to key pool hashes.
func (p *Pool) Key() []byte {
	var snap [SizeBytes]byte
	p.snapshot(&snap)
	key := make([]byte, SecurityStrengthBytes)
	copy(key, snap[:])
	clear(snap[:])
	return key
}

// Metrics returns how many words were mixed and how many slot updates had to be retried.
func (p *Pool) Metrics() (mixed, casRetries int64) {
	return p.mixed.Load(), p.casRetries.Load()
}

func (p *Pool) snapshot(dst *[SizeBytes]byte) {
	for i := range p.words {
		binary.LittleEndian.PutUint32(dst[i*4:], p.words[i].Load())
	}
}
