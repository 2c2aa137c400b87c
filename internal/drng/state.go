package drng

import (
	"errors"
	"sync/atomic"

	"github.com/Borislavv/go-lrng/internal/pool"
)

const (
	SecurityStrengthBits  = pool.SecurityStrengthBits
	SecurityStrengthBytes = pool.SecurityStrengthBytes
)

var (
	// ErrReseedInProgress tells a caller that another reseed holds the gate.
	// It means no service, not a failure.
	ErrReseedInProgress = errors.New("reseed in progress")
	ErrGenerate         = errors.New("DRNG generate failed")
	ErrSeed             = errors.New("DRNG seed failed")
	ErrAllocation       = errors.New("DRNG allocation failed")
)

// SeedState is the seeding level of the primary DRNG. It only grows, except on
// a primitive failure which resets the primary.
type SeedState int32

const (
	Unseeded SeedState = iota
	Initial
	MinimallySeeded
	FullySeeded
)

func (s SeedState) String() string {
	switch s {
	case Unseeded:
		return "unseeded"
	case Initial:
		return "initial"
	case MinimallySeeded:
		return "minimally_seeded"
	case FullySeeded:
		return "fully_seeded"
	default:
		return "unknown"
	}
}

// Gate admits a single pool-drain/primary-reseed at a time.
type Gate struct {
	busy atomic.Bool
}

// TryAcquire returns false when another reseed already holds the gate.
func (g *Gate) TryAcquire() bool { return g.busy.CompareAndSwap(false, true) }

func (g *Gate) Release() { g.busy.Store(false) }

func (g *Gate) Busy() bool { return g.busy.Load() }
