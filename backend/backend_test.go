package backend

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends() []Backend {
	return []Backend{NewChaCha20(), NewAESCTR()}
}

// TestBackend_GenerateIsForwardSecure verifies that consecutive outputs differ and fill the buffer.
func TestBackend_GenerateIsForwardSecure(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.Name(), func(t *testing.T) {
			h, err := b.DRNGAlloc(32)
			require.NoError(t, err)
			defer b.DRNGDealloc(h)

			first := make([]byte, 100)
			n, err := b.DRNGGenerate(h, first)
			require.NoError(t, err)
			require.Equal(t, len(first), n)

			second := make([]byte, 100)
			n, err = b.DRNGGenerateFullEntropy(h, second)
			require.NoError(t, err)
			require.Equal(t, len(second), n)

			require.False(t, bytes.Equal(first, second))
			require.False(t, bytes.Equal(first, make([]byte, 100)))
		})
	}
}

// TestBackend_SeedChangesOutput verifies that seeding two clones differently diverges their streams.
func TestBackend_SeedChangesOutput(t *testing.T) {
	b := NewChaCha20()
	h1, err := b.DRNGAlloc(32)
	require.NoError(t, err)
	h2 := &chachaState{}
	*h2 = *h1.(*chachaState)

	require.NoError(t, b.DRNGSeed(h1, []byte("seed material one, longer than a key block")))
	require.NoError(t, b.DRNGSeed(h2, []byte("seed material two, longer than a key block")))

	o1, o2 := make([]byte, 32), make([]byte, 32)
	_, err = b.DRNGGenerate(h1, o1)
	require.NoError(t, err)
	_, err = b.DRNGGenerate(h2, o2)
	require.NoError(t, err)
	require.False(t, bytes.Equal(o1, o2))
}

// TestBackend_HashIsKeyed verifies digest size and that the key changes the digest.
func TestBackend_HashIsKeyed(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.Name(), func(t *testing.T) {
			k1, err := b.HashAlloc(bytes.Repeat([]byte{1}, 32))
			require.NoError(t, err)
			k2, err := b.HashAlloc(bytes.Repeat([]byte{2}, 32))
			require.NoError(t, err)

			d1, err := b.HashDigest(k1, []byte("pool"))
			require.NoError(t, err)
			d2, err := b.HashDigest(k2, []byte("pool"))
			require.NoError(t, err)

			require.Len(t, d1, b.HashDigestSize(k1))
			require.NotEqual(t, d1, d2)
		})
	}
}

// TestBackend_ForeignHandle verifies that handles are not interchangeable between backends.
func TestBackend_ForeignHandle(t *testing.T) {
	cc, aes := NewChaCha20(), NewAESCTR()
	h, err := cc.DRNGAlloc(32)
	require.NoError(t, err)

	require.ErrorIs(t, aes.DRNGSeed(h, []byte{1}), ErrHandle)
	_, err = aes.DRNGGenerate(h, make([]byte, 8))
	require.ErrorIs(t, err, ErrHandle)
}

// TestFaulty_InjectsFailures verifies that the failure switches are honoured.
func TestFaulty_InjectsFailures(t *testing.T) {
	f := NewFaulty(NewChaCha20())
	h, err := f.DRNGAlloc(32)
	require.NoError(t, err)

	f.FailSeed.Store(true)
	require.ErrorIs(t, f.DRNGSeed(h, []byte{1}), ErrInjected)

	f.FailGenerate.Store(true)
	_, err = f.DRNGGenerate(h, make([]byte, 4))
	require.ErrorIs(t, err, ErrInjected)

	f.FailAlloc.Store(true)
	_, err = f.DRNGAlloc(32)
	require.ErrorIs(t, err, ErrAllocation)

	require.Equal(t, int64(1), f.Seeds.Load())
	require.Equal(t, int64(1), f.Generates.Load())
}
