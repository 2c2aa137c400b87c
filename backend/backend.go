// Package backend defines the cryptographic primitives consumed by the engine
// and ships the implementations it can switch between at runtime.
//
// Implementations must be comparable (pointer receivers): the engine tells the
// default backend apart from the others by identity. Handles are not safe for
// concurrent use; the engine serializes every call on a handle.
package backend

import "errors"

var (
	ErrHandle     = errors.New("handle was not allocated by this backend")
	ErrAllocation = errors.New("primitive allocation failed")
)

// Handle is an opaque primitive state owned by the Backend that allocated it.
type Handle any

type Backend interface {
	Name() string

	HashAlloc(key []byte) (Handle, error)
	HashDealloc(h Handle)
	HashDigestSize(h Handle) int
	HashDigest(h Handle, data []byte) ([]byte, error)

	DRNGAlloc(securityStrength int) (Handle, error)
	DRNGDealloc(h Handle)
	DRNGSeed(h Handle, data []byte) error
	DRNGGenerate(h Handle, out []byte) (int, error)
	DRNGGenerateFullEntropy(h Handle, out []byte) (int, error)
}
