package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/Borislavv/go-lrng/internal/drng"
)

// GetRandomBytes fills buf from a secondary DRNG. Output is always produced,
// seeded or not; WaitUntilSeeded tells when it is worth trusting.
func (e *Engine) GetRandomBytes(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	e.arm()
	e.reportSeedLevel(len(buf))
	return e.table.Get(buf, false)
}

// GetRandomBytesAtomic fills buf from the atomic DRNG. It never waits for the
// primary DRNG nor for a secondary's mutex, so it is safe on latency-critical paths.
func (e *Engine) GetRandomBytesAtomic(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	e.arm()
	e.reportSeedLevel(len(buf))
	return e.table.Get(buf, true)
}

func (e *Engine) reportSeedLevel(n int) {
	if e.primary.State() >= drng.MinimallySeeded || !e.notice.Allow() {
		return
	}
	e.logger.Warn("random bytes requested before minimally seeded",
		"bytes", n, "pool_events", e.pool.Events())
}

// GetRandomBytesFullEntropy fills buf with output backed one to one by fresh
// entropy from the fully seeded primary DRNG, waiting for entropy as needed.
// A cancelled wait returns ErrCancelled along with the bytes served so far.
func (e *Engine) GetRandomBytesFullEntropy(ctx context.Context, buf []byte) (int, error) {
	e.arm()

	done := 0
	for done < len(buf) {
		if err := ctx.Err(); err != nil {
			return done, fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		n, err := e.primary.ReseedAndGenerate(buf[done:], true, true)
		switch {
		case errors.Is(err, drng.ErrReseedInProgress):
			runtime.Gosched()
			continue
		case err != nil:
			return done, err
		}

		done += n
		if n > 0 {
			continue
		}
		if err = e.readQ.wait(ctx, e.haveEntropyFull); err != nil {
			return done, err
		}
	}
	return done, nil
}

// TryGetRandomBytesFullEntropy is the non-blocking GetRandomBytesFullEntropy.
// It returns ErrWouldBlock when nothing could be served and ErrShortRead along
// with a partial count.
func (e *Engine) TryGetRandomBytesFullEntropy(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	e.arm()

	n, err := e.primary.ReseedAndGenerate(buf, true, true)
	switch {
	case errors.Is(err, drng.ErrReseedInProgress):
		return 0, ErrWouldBlock
	case err != nil:
		return n, err
	case n == 0:
		return 0, ErrWouldBlock
	case n < len(buf):
		return n, ErrShortRead
	}
	return n, nil
}

// WaitUntilSeeded blocks until the primary DRNG is at least minimally seeded.
func (e *Engine) WaitUntilSeeded(ctx context.Context) error {
	e.arm()
	return e.seededQ.wait(ctx, e.minSeeded)
}

func (e *Engine) minSeeded() bool {
	return e.primary.State() >= drng.MinimallySeeded
}

// RegisterReadyCallback schedules cb for the moment the primary DRNG becomes
// minimally seeded. It returns ErrAlreadySeeded if that moment has passed.
func (e *Engine) RegisterReadyCallback(cb *ReadyCallback) error {
	return e.ready.add(cb, e.minSeeded)
}

func (e *Engine) UnregisterReadyCallback(cb *ReadyCallback) {
	e.ready.remove(cb)
}

func (e *Engine) Uint64() (uint64, error) {
	return e.batch.Uint64()
}

func (e *Engine) Uint32() (uint32, error) {
	return e.batch.Uint32()
}
