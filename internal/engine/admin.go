package engine

import (
	"context"

	"github.com/Borislavv/go-lrng/internal/drng"
	"github.com/Borislavv/go-lrng/internal/pool"
)

// EntropyCount is the pooled entropy estimate in bits.
func (e *Engine) EntropyCount() uint32 {
	return e.pool.AvailEntropy()
}

// AddEntropyCount adjusts the pooled entropy estimate by bits, clamped to the pool capacity.
func (e *Engine) AddEntropyCount(ctx context.Context, bits int) error {
	if !e.authorize(ctx) {
		return ErrPermissionDenied
	}
	e.setEntropy(int(e.pool.AvailEntropy()) + bits)
	return nil
}

// SetEntropyCount overwrites the pooled entropy estimate, clamped to the pool capacity.
func (e *Engine) SetEntropyCount(ctx context.Context, bits int) error {
	if !e.authorize(ctx) {
		return ErrPermissionDenied
	}
	e.setEntropy(bits)
	return nil
}

func (e *Engine) ClearEntropyCount(ctx context.Context) error {
	return e.SetEntropyCount(ctx, 0)
}

func (e *Engine) setEntropy(bits int) {
	e.pool.SetEntropy(uint32(min(max(bits, 0), pool.SizeBits)))
}

// ForceReseed makes every secondary DRNG, the atomic one included, reseed on its next use.
func (e *Engine) ForceReseed(ctx context.Context) error {
	if !e.authorize(ctx) {
		return ErrPermissionDenied
	}
	_, err := e.write(nil, 0)
	return err
}

func (e *Engine) SeedState() drng.SeedState {
	return e.primary.State()
}

func (e *Engine) BackendName() string {
	return e.Backend().Name()
}

// AllocateShards creates the per-node secondary DRNGs. On failure the engine
// keeps serving from the shared instance and the error is returned for logging.
func (e *Engine) AllocateShards(ctx context.Context) error {
	e.switchMu.Lock()
	defer e.switchMu.Unlock()
	return e.table.Allocate(ctx, e.Backend())
}
