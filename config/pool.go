package config

import "time"

const (
	// SecurityStrengthBits is the security strength of every generator in bits.
	SecurityStrengthBits = 256

	defaultOversamplingFactor = 10
	defaultReadWakeupBits     = 64
	defaultEmergencyBits      = 512
	defaultWriteWakeupBits    = defaultEmergencyBits + 2*SecurityStrengthBits
)

type PoolCfg struct {
	// Certified turns stuck-test rejections into a fatal condition:
	// three consecutive rejected events terminate the process.
	Certified bool `yaml:"certified"`

	// LowResTimer forces the engine to treat the timestamp source as coarse,
	// disabling the stuck test and applying the oversampling factor.
	// When false the resolution is probed at startup.
	LowResTimer bool `yaml:"low_res_timer"`

	// OversamplingFactor is how many raw events are needed per entropy bit
	// when no high-resolution timestamps are available.
	OversamplingFactor uint32 `yaml:"oversampling_factor"`

	// ReadWakeupBits is the amount of pooled entropy at which blocked
	// full-entropy readers are woken.
	ReadWakeupBits uint32 `yaml:"read_wakeup_bits"`

	// WriteWakeupBits is the pooled entropy level below which blocked
	// injectors are allowed to feed more entropy.
	WriteWakeupBits uint32 `yaml:"write_wakeup_bits"`

	// HighResTimer reports whether event timestamps carry sub-microsecond resolution.
	HighResTimer bool `yaml:"-"` // virtual: probed during init unless LowResTimer is set

	// IRQEntropyBits is the number of raw events that carry SecurityStrengthBits of entropy.
	IRQEntropyBits uint32 `yaml:"-"` // virtual: computed during init
}

// StuckTestEnabled reports whether per-event derivative checks are meaningful.
func (cfg *PoolCfg) StuckTestEnabled() bool {
	return cfg.HighResTimer
}

func (cfg *PoolCfg) adjust() {
	if cfg.OversamplingFactor == 0 {
		cfg.OversamplingFactor = defaultOversamplingFactor
	}
	if cfg.ReadWakeupBits == 0 {
		cfg.ReadWakeupBits = defaultReadWakeupBits
	}
	if cfg.WriteWakeupBits == 0 {
		cfg.WriteWakeupBits = defaultWriteWakeupBits
	}

	// Virtual fields are derived once; a second adjustment keeps them.
	if cfg.IRQEntropyBits != 0 {
		return
	}

	cfg.HighResTimer = !cfg.LowResTimer && probeHighResTimer()
	if cfg.HighResTimer {
		cfg.IRQEntropyBits = SecurityStrengthBits
	} else {
		cfg.IRQEntropyBits = SecurityStrengthBits * cfg.OversamplingFactor
	}
}

// probeHighResTimer samples consecutive wall clock readings and looks for
// a strictly positive step shorter than a microsecond.
func probeHighResTimer() bool {
	prev := time.Now().UnixNano()
	for i := 0; i < 256; i++ {
		now := time.Now().UnixNano()
		if d := now - prev; d > 0 && d < int64(time.Microsecond) {
			return true
		}
		prev = now
	}
	return false
}
