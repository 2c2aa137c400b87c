package config

import "time"

const (
	defaultFeederTimingRate = 256
	defaultOSEntropyBytes   = 32
	defaultOSInterval       = 10 * time.Second
)

// FeederCfg configures the background feeder which samples its own scheduling
// jitter as timing events and periodically injects operating system entropy.
type FeederCfg struct {
	// TimingRate is how many timing events per second the sampler delivers.
	// Set to a negative value to disable the sampler.
	TimingRate int `yaml:"timing_rate"`

	// OSEntropyBytes is how many bytes are read from the operating system per injection.
	// Set to a negative value to disable the injector.
	OSEntropyBytes int `yaml:"os_entropy_bytes"`

	// OSInterval is the period between two operating system injections.
	OSInterval time.Duration `yaml:"os_interval"`
}

func (cfg *FeederCfg) Enabled() bool {
	return cfg != nil
}

func (cfg *FeederCfg) adjust() {
	if cfg.TimingRate == 0 {
		cfg.TimingRate = defaultFeederTimingRate
	}
	if cfg.OSEntropyBytes == 0 {
		cfg.OSEntropyBytes = defaultOSEntropyBytes
	}
	if cfg.OSInterval <= 0 {
		cfg.OSInterval = defaultOSInterval
	}
}
