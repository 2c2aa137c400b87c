package engine

import (
	"slices"
	"sync"
)

// ReadyCallback is fired once the primary DRNG is minimally seeded.
// Registration is by pointer: the same value registers once.
// Func runs on the goroutine that seeded the primary and must not wait for entropy.
type ReadyCallback struct {
	Func func()
}

type readyList struct {
	mu   sync.Mutex
	list []*ReadyCallback
}

func (r *readyList) add(cb *ReadyCallback, seeded func() bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seeded() {
		return ErrAlreadySeeded
	}
	if !slices.Contains(r.list, cb) {
		r.list = append(r.list, cb)
	}
	return nil
}

func (r *readyList) remove(cb *ReadyCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = slices.DeleteFunc(r.list, func(c *ReadyCallback) bool { return c == cb })
}

func (r *readyList) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list)
}

// fire calls and forgets every registered callback.
func (r *readyList) fire() {
	r.mu.Lock()
	list := r.list
	r.list = nil
	r.mu.Unlock()

	for _, cb := range list {
		if cb.Func != nil {
			cb.Func()
		}
	}
}
