package backend

import (
	"errors"
	"sync/atomic"
)

var ErrInjected = errors.New("injected primitive failure")

// Faulty wraps a Backend and fails selected primitives on demand.
type Faulty struct {
	Backend
	FailAlloc    atomic.Bool
	FailSeed     atomic.Bool
	FailGenerate atomic.Bool

	Seeds     atomic.Int64
	Generates atomic.Int64
}

func NewFaulty(b Backend) *Faulty {
	return &Faulty{Backend: b}
}

func (f *Faulty) DRNGAlloc(securityStrength int) (Handle, error) {
	if f.FailAlloc.Load() {
		return nil, errors.Join(ErrAllocation, ErrInjected)
	}
	return f.Backend.DRNGAlloc(securityStrength)
}

func (f *Faulty) HashAlloc(key []byte) (Handle, error) {
	if f.FailAlloc.Load() {
		return nil, errors.Join(ErrAllocation, ErrInjected)
	}
	return f.Backend.HashAlloc(key)
}

func (f *Faulty) DRNGSeed(h Handle, data []byte) error {
	f.Seeds.Add(1)
	if f.FailSeed.Load() {
		return ErrInjected
	}
	return f.Backend.DRNGSeed(h, data)
}

func (f *Faulty) DRNGGenerate(h Handle, out []byte) (int, error) {
	f.Generates.Add(1)
	if f.FailGenerate.Load() {
		return 0, ErrInjected
	}
	return f.Backend.DRNGGenerate(h, out)
}

func (f *Faulty) DRNGGenerateFullEntropy(h Handle, out []byte) (int, error) {
	f.Generates.Add(1)
	if f.FailGenerate.Load() {
		return 0, ErrInjected
	}
	return f.Backend.DRNGGenerateFullEntropy(h, out)
}
