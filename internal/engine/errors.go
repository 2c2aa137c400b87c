package engine

import (
	"errors"

	"github.com/Borislavv/go-lrng/internal/drng"
)

var (
	// ErrCancelled is returned by an interrupted wait; it wraps the context error.
	ErrCancelled        = errors.New("wait cancelled")
	ErrWouldBlock       = errors.New("operation would block")
	ErrShortRead        = errors.New("short read")
	ErrSwitchDenied     = errors.New("backend switch denied: revert to the default backend first")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAlreadySeeded    = errors.New("already seeded")

	ErrGenerate   = drng.ErrGenerate
	ErrSeed       = drng.ErrSeed
	ErrAllocation = drng.ErrAllocation
)
