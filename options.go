package lrng

import (
	"github.com/Borislavv/go-lrng/internal/drng"
	"github.com/Borislavv/go-lrng/internal/engine"
)

type (
	Option        = engine.Option
	Authorizer    = engine.Authorizer
	ReadyCallback = engine.ReadyCallback
	Metrics       = engine.Metrics
	SeedState     = drng.SeedState
)

const (
	Unseeded        = drng.Unseeded
	Initial         = drng.Initial
	MinimallySeeded = drng.MinimallySeeded
	FullySeeded     = drng.FullySeeded
)

var (
	WithBackend    = engine.WithBackend
	WithClock      = engine.WithClock
	WithTerminate  = engine.WithTerminate
	WithAuthorizer = engine.WithAuthorizer
)

var (
	ErrCancelled        = engine.ErrCancelled
	ErrWouldBlock       = engine.ErrWouldBlock
	ErrShortRead        = engine.ErrShortRead
	ErrSwitchDenied     = engine.ErrSwitchDenied
	ErrPermissionDenied = engine.ErrPermissionDenied
	ErrAlreadySeeded    = engine.ErrAlreadySeeded
	ErrGenerate         = engine.ErrGenerate
	ErrSeed             = engine.ErrSeed
	ErrAllocation       = engine.ErrAllocation
)
