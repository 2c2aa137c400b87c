package config

const (
	defaultHWRandEntropyBits = SecurityStrengthBits >> 5
	defaultJitterEntropyBits = SecurityStrengthBits >> 4
)

// NoiseCfg configures the noise sources sampled on every primary reseed.
// Each source states how much entropy it credits per SecurityStrengthBits of output.
type NoiseCfg struct {
	// HWRandEntropyBits is the credit given to the hardware/OS random number generator.
	// Set to a negative value to disable the source.
	HWRandEntropyBits int `yaml:"hwrand_entropy_bits"`

	// TrustCPU credits the full security strength to the hardware generator
	// when the CPU advertises RDSEED or RDRAND.
	TrustCPU bool `yaml:"trust_cpu"`

	// JitterEntropyBits is the credit given to the CPU execution jitter collector.
	// Set to a negative value to disable the source.
	JitterEntropyBits int `yaml:"jitter_entropy_bits"`
}

func (cfg *NoiseCfg) Enabled() bool {
	return cfg != nil
}

func (cfg *NoiseCfg) adjust() {
	if cfg.HWRandEntropyBits == 0 {
		cfg.HWRandEntropyBits = defaultHWRandEntropyBits
	}
	if cfg.JitterEntropyBits == 0 {
		cfg.JitterEntropyBits = defaultJitterEntropyBits
	}
	cfg.HWRandEntropyBits = min(cfg.HWRandEntropyBits, SecurityStrengthBits)
	cfg.JitterEntropyBits = min(cfg.JitterEntropyBits, SecurityStrengthBits)
}
