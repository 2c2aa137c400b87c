package config

import (
	"runtime"
	"time"
)

const (
	defaultMaxRequestSize    = 1 << 12
	defaultReseedThreshold   = 1 << 20
	defaultReseedMaxInterval = 600 * time.Second
	defaultSeedRecheck       = time.Second
	maxShards                = 64
)

type DRNGCfg struct {
	// Shards is the number of secondary generators, one per compute node.
	// Zero means GOMAXPROCS (capped at 64). One disables sharding.
	Shards int `yaml:"shards"`

	// MaxRequestSize bounds a single generate call on a secondary generator;
	// larger requests are served in chunks with a reseed check before each one.
	MaxRequestSize int `yaml:"max_request_size"`

	// ReseedThreshold is the number of generate calls a secondary may serve
	// before it must pull fresh seed from the primary.
	ReseedThreshold int32 `yaml:"reseed_threshold"`

	// ReseedMaxInterval is the longest a secondary may run without being reseeded.
	//
	// Example:
	//   ReseedMaxInterval: 10m
	ReseedMaxInterval time.Duration `yaml:"reseed_max_interval"`

	// SeedRecheckInterval is how often the background reseeder looks for a due
	// pool drain that no event was left to trigger. Negative disables the recheck.
	SeedRecheckInterval time.Duration `yaml:"seed_recheck_interval"`
}

func (cfg *DRNGCfg) adjust() {
	if cfg.Shards <= 0 {
		cfg.Shards = min(runtime.GOMAXPROCS(0), maxShards)
	}
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = defaultMaxRequestSize
	}
	if cfg.ReseedThreshold <= 0 {
		cfg.ReseedThreshold = defaultReseedThreshold
	}
	if cfg.ReseedMaxInterval <= 0 {
		cfg.ReseedMaxInterval = defaultReseedMaxInterval
	}
	if cfg.SeedRecheckInterval == 0 {
		cfg.SeedRecheckInterval = defaultSeedRecheck
	}
}
