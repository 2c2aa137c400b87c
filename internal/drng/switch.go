package drng

import (
	"fmt"

	"github.com/Borislavv/go-lrng/backend"
)

// Switch moves the primary to backend b. The new generator is seeded from the
// current one so accumulated entropy carries over; when that fails, or when
// the engine was never armed (keep is false), the primary is reset instead.
// key keys the new pool hash.
func (p *Primary) Switch(b backend.Backend, key []byte, keep bool) error {
	gen, err := newGenerator(b)
	if err != nil {
		return err
	}
	hash, err := b.HashAlloc(key)
	if err != nil {
		gen.release()
		return fmt.Errorf("%w: %s hash: %w", ErrAllocation, b.Name(), err)
	}

	p.mu.Lock()
	old := p.gen

	var buf [SecurityStrengthBytes]byte
	reset := !keep
	if _, err = old.generateFull(buf[:]); err != nil {
		p.logger.Warn("primary DRNG output for backend switch failed", "err", err)
		reset = true
	} else if err = gen.seed(buf[:]); err != nil {
		p.logger.Warn("primary DRNG seeding on backend switch failed", "backend", b.Name(), "err", err)
		reset = true
	}
	clear(buf[:])
	if reset {
		p.resetLocked()
	}

	old.backend.HashDealloc(p.hash)
	p.hash = hash
	p.gen = gen
	p.mu.Unlock()

	old.release()
	p.logger.Info("primary DRNG backend switched", "from", old.backend.Name(), "to", b.Name())
	return nil
}

// Switch moves every secondary to backend b. The atomic DRNG keeps its generator.
// With reset set the switched instances start over as unseeded.
func (t *Table) Switch(b backend.Backend, reset bool) {
	for _, s := range t.instances() {
		t.switchSecondary(s, b, reset)
	}
	t.allSeeded.Store(false)
}

func (t *Table) switchSecondary(s *Secondary, b backend.Backend, reset bool) {
	gen, err := newGenerator(b)
	if err != nil {
		t.logger.Warn("secondary DRNG backend switch failed", "node", s.node, "err", err)
		return
	}

	var buf [SecurityStrengthBytes]byte
	old, unlock := t.lock(s)
	_, err = old.generate(buf[:])
	unlock()
	if err != nil {
		reset = true
	} else if err = gen.seed(buf[:]); err != nil {
		reset = true
	}
	clear(buf[:])

	// A generator shared with the atomic DRNG is guarded by its spin lock,
	// the new private one by the mutex: hold both while swapping.
	s.mu.Lock()
	aliased := t.aliased(old)
	if aliased {
		old.spin.Lock()
	}
	if reset {
		t.resetState(s)
	}
	s.gen.Store(gen)
	if aliased {
		old.spin.Unlock()
	}
	s.mu.Unlock()

	if !aliased {
		old.release()
	}
	t.logger.Info("secondary DRNG backend switched", "node", s.node, "to", b.Name(), "reset", reset)
}
