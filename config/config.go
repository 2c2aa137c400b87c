package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config groups configuration of all engine subsystems.
// Optional components are disabled by leaving them nil.
type Config struct {
	// Pool configures the entropy pool and the per-event self-test.
	Pool PoolCfg `yaml:"pool"`

	// DRNG configures the primary and secondary generators.
	DRNG DRNGCfg `yaml:"drng"`

	// Noise configures the best-effort noise sources mixed into every primary reseed.
	// If nil, the primary is seeded from the entropy pool only.
	Noise *NoiseCfg `yaml:"noise"`

	// Feeder configures the background entropy feeder.
	// If nil, the engine only sees the events and injections delivered by its callers.
	Feeder *FeederCfg `yaml:"feeder"`

	// Telemetry configures periodic statistics logs.
	// If nil, no statistics are logged (the Prometheus collector is always available).
	Telemetry *TelemetryCfg `yaml:"telemetry"`
}

// Default returns a configuration with every subsystem enabled and tuned to the reference values.
func Default() *Config {
	cfg := &Config{
		Noise:     &NoiseCfg{},
		Telemetry: &TelemetryCfg{},
	}
	cfg.AdjustConfig()
	return cfg
}

// AdjustConfig replaces zero values by defaults and computes virtual fields.
func (cfg *Config) AdjustConfig() {
	cfg.Pool.adjust()
	cfg.DRNG.adjust()

	if cfg.Noise.Enabled() {
		cfg.Noise.adjust()
	}
	if cfg.Feeder.Enabled() {
		cfg.Feeder.adjust()
	}
	if cfg.Telemetry.Enabled() {
		cfg.Telemetry.adjust()
	}
}

func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	var cfg *Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.AdjustConfig()

	return cfg, nil
}
