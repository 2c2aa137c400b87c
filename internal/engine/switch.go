package engine

import (
	"context"

	"github.com/Borislavv/go-lrng/backend"
)

// SwitchBackend moves every generator to b, carrying the accumulated seed over.
// Only one non-default backend may be active: switching from one non-default
// backend to another returns ErrSwitchDenied.
func (e *Engine) SwitchBackend(ctx context.Context, b backend.Backend) error {
	if !e.authorize(ctx) {
		return ErrPermissionDenied
	}

	e.switchMu.Lock()
	defer e.switchMu.Unlock()

	cur := e.Backend()
	if cur == b {
		return nil
	}
	if cur != e.defaultBackend && b != e.defaultBackend {
		e.logger.Warn("backend switch denied", "active", cur.Name(), "requested", b.Name())
		return ErrSwitchDenied
	}

	// Generators of an engine nobody used yet start over on the new backend.
	keep := e.armed.Load()
	if err := e.primary.Switch(b, e.pool.Key(), keep); err != nil {
		e.logger.Error("backend switch failed", "backend", b.Name(), "err", err)
		return err
	}
	e.table.Switch(b, !keep)
	e.backend.Store(&b)
	e.arm()

	e.logger.Info("backend switched", "from", cur.Name(), "to", b.Name())
	return nil
}
