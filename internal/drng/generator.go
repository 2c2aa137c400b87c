package drng

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/Borislavv/go-lrng/backend"
)

// generator binds a backend handle to the backend that allocated it.
// spin guards the handle while it is shared with the atomic DRNG.
type generator struct {
	backend backend.Backend
	handle  backend.Handle
	spin    spinLock
}

func newGenerator(b backend.Backend) (*generator, error) {
	h, err := b.DRNGAlloc(SecurityStrengthBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAllocation, b.Name(), err)
	}
	return &generator{backend: b, handle: h}, nil
}

func (g *generator) seed(data []byte) error {
	return g.backend.DRNGSeed(g.handle, data)
}

func (g *generator) generate(out []byte) (int, error) {
	n, err := g.backend.DRNGGenerate(g.handle, out)
	if err == nil && n != len(out) {
		err = fmt.Errorf("short output: %d of %d bytes", n, len(out))
	}
	return n, err
}

func (g *generator) generateFull(out []byte) (int, error) {
	n, err := g.backend.DRNGGenerateFullEntropy(g.handle, out)
	if err == nil && n != len(out) {
		err = fmt.Errorf("short output: %d of %d bytes", n, len(out))
	}
	return n, err
}

func (g *generator) release() {
	g.backend.DRNGDealloc(g.handle)
}

// spinLock never parks the goroutine; it yields between attempts.
type spinLock struct {
	held atomic.Bool
}

func (l *spinLock) Lock() {
	for !l.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (l *spinLock) TryLock() bool {
	return l.held.CompareAndSwap(false, true)
}

func (l *spinLock) Unlock() {
	l.held.Store(false)
}
