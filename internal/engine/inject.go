package engine

import (
	"context"
)

// writeChunk is the granularity of Write and AddEntropy injections.
const writeChunk = 64

// InjectExternalEntropy feeds a trusted hardware source straight into the
// primary DRNG, crediting at most entropyBits. It waits while the engine is
// saturated with entropy.
func (e *Engine) InjectExternalEntropy(ctx context.Context, buf []byte, entropyBits uint32) error {
	if !e.authorize(ctx) {
		return ErrPermissionDenied
	}
	e.arm()

	if err := e.writeQ.wait(ctx, e.needEntropy); err != nil {
		return err
	}
	_, err := e.primary.Inject(buf, entropyBits, nil, false)
	return err
}

// Write mixes caller data into the primary DRNG without credit and makes every
// secondary reseed on its next use. No privilege is needed.
func (e *Engine) Write(buf []byte) (int, error) {
	return e.write(buf, 0)
}

// AddEntropy is Write with credit, for privileged callers.
func (e *Engine) AddEntropy(ctx context.Context, buf []byte, entropyBits uint32) (int, error) {
	if !e.authorize(ctx) {
		return 0, ErrPermissionDenied
	}
	return e.write(buf, entropyBits)
}

func (e *Engine) write(buf []byte, entropyBits uint32) (int, error) {
	e.arm()

	done := 0
	for done < len(buf) {
		chunk := buf[done:min(len(buf), done+writeChunk)]
		credit := min(uint32(len(chunk))*8, entropyBits)

		if _, err := e.primary.Inject(chunk, credit, nil, false); err != nil {
			return done, err
		}
		entropyBits -= credit
		done += len(chunk)
	}

	e.table.ForceReseed()
	return done, nil
}
