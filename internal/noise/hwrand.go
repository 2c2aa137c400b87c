package noise

import (
	"sync/atomic"

	"github.com/Borislavv/go-lrng/config"
	"github.com/klauspost/cpuid/v2"
)

// HWRand reads the hardware-backed generator exposed by the operating system.
// A read failure disables the source for good.
type HWRand struct {
	bits atomic.Uint32
	read func([]byte) error
}

// NewHWRand credits entropyBits per security strength of output, or the full
// strength when trustCPU is set and the CPU has its own random number instructions.
func NewHWRand(entropyBits uint32, trustCPU bool) *HWRand {
	if trustCPU && CPUHasRNG() {
		entropyBits = config.SecurityStrengthBits
	}
	h := &HWRand{read: ReadHW}
	h.bits.Store(entropyBits)
	return h
}

// CPUHasRNG reports whether the CPU advertises RDSEED or RDRAND.
func CPUHasRNG() bool {
	return cpuid.CPU.Supports(cpuid.RDSEED) || cpuid.CPU.Supports(cpuid.RDRAND)
}

func (h *HWRand) Name() string { return "hwrand" }

func (h *HWRand) Get(out []byte) uint32 {
	bits := h.bits.Load()
	if bits == 0 {
		return 0
	}
	if err := h.read(out); err != nil {
		h.bits.Store(0)
		clear(out)
		return 0
	}
	return credit(bits, out)
}
