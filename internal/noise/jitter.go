package noise

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/sha3"
)

const (
	jitterSamplesPerByte = 16
	jitterScratchSize    = 4096
)

// Jitter collects CPU execution time variations of a memory-walking loop and
// conditions them with SHAKE256. It disables itself when the timings never vary.
type Jitter struct {
	bits     uint32
	disabled atomic.Bool

	mu      sync.Mutex
	scratch []byte
	sink    byte
}

func NewJitter(entropyBits uint32) *Jitter {
	return &Jitter{bits: entropyBits, scratch: make([]byte, jitterScratchSize)}
}

func (j *Jitter) Name() string { return "jitter" }

func (j *Jitter) Get(out []byte) uint32 {
	if j.disabled.Load() || len(out) == 0 {
		return 0
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	n := len(out) * jitterSamplesPerByte
	samples := make([]byte, 0, n*8)

	var prev int64
	repeats := 0
	for i := 0; i < n; i++ {
		start := time.Now()
		j.churn(i)
		d := time.Since(start).Nanoseconds()
		if d == prev {
			repeats++
		}
		prev = d
		samples = binary.LittleEndian.AppendUint64(samples, uint64(d))
	}

	if repeats >= n-1 {
		j.disabled.Store(true)
		clear(out)
		return 0
	}

	sha3.ShakeSum256(out, samples)
	clear(samples)
	return credit(j.bits, out)
}

func (j *Jitter) churn(round int) {
	stride := 64 + (round&7)*8
	for i := round & 63; i < len(j.scratch); i += stride {
		j.scratch[i] += j.sink + byte(i)
		j.sink ^= j.scratch[i]
	}
}
