// Package noise provides the best-effort entropy sources sampled on every primary reseed.
package noise

import "github.com/Borislavv/go-lrng/config"

const securityStrengthBytes = config.SecurityStrengthBits / 8

// Source fills out with noise and returns the entropy it credits, in bits.
type Source interface {
	Name() string
	Get(out []byte) uint32
}

// FromConfig builds the enabled sources. A nil configuration yields none.
func FromConfig(cfg *config.NoiseCfg) []Source {
	if !cfg.Enabled() {
		return nil
	}

	var sources []Source
	if cfg.HWRandEntropyBits > 0 {
		sources = append(sources, NewHWRand(uint32(cfg.HWRandEntropyBits), cfg.TrustCPU))
	}
	if cfg.JitterEntropyBits > 0 {
		sources = append(sources, NewJitter(uint32(cfg.JitterEntropyBits)))
	}
	return sources
}

// credit scales an entropy statement given per security strength to len(out) bytes.
func credit(bits uint32, out []byte) uint32 {
	n := uint64(len(out))
	return uint32(min(uint64(bits)*n/securityStrengthBytes, n*8))
}
