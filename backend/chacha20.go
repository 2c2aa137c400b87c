package backend

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
)

// ChaCha20 is the default backend: a ChaCha20 keystream generator with fast key
// erasure and a keyed BLAKE2b-512 pool hash.
type ChaCha20 struct {
	name string
}

func NewChaCha20() *ChaCha20 {
	return &ChaCha20{name: "chacha20"}
}

type chachaState struct {
	key   [chacha20.KeySize]byte
	nonce [chacha20.NonceSize]byte
	ctr   uint64
}

type blake2bHash struct {
	key []byte
}

func (b *ChaCha20) Name() string { return b.name }

func (b *ChaCha20) HashAlloc(key []byte) (Handle, error) {
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	h := &blake2bHash{key: append([]byte(nil), key...)}
	if _, err := blake2b.New512(h.key); err != nil {
		return nil, fmt.Errorf("%w: blake2b: %w", ErrAllocation, err)
	}
	return h, nil
}

func (b *ChaCha20) HashDealloc(h Handle) {
	if hh, ok := h.(*blake2bHash); ok {
		clear(hh.key)
	}
}

func (b *ChaCha20) HashDigestSize(Handle) int { return blake2b.Size }

func (b *ChaCha20) HashDigest(h Handle, data []byte) ([]byte, error) {
	hh, ok := h.(*blake2bHash)
	if !ok {
		return nil, ErrHandle
	}
	d, err := blake2b.New512(hh.key)
	if err != nil {
		return nil, err
	}
	d.Write(data)
	return d.Sum(nil), nil
}

// DRNGAlloc returns a generator keyed with unaccounted operating system randomness.
func (b *ChaCha20) DRNGAlloc(int) (Handle, error) {
	st := &chachaState{}
	if _, err := rand.Read(st.key[:]); err != nil {
		return nil, fmt.Errorf("%w: chacha20 key: %w", ErrAllocation, err)
	}
	return st, nil
}

func (b *ChaCha20) DRNGDealloc(h Handle) {
	if st, ok := h.(*chachaState); ok {
		clear(st.key[:])
		st.ctr = 0
	}
}

// DRNGSeed folds the seed into the key one key-sized block at a time
// and rekeys from the keystream after every block.
func (b *ChaCha20) DRNGSeed(h Handle, data []byte) error {
	st, ok := h.(*chachaState)
	if !ok {
		return ErrHandle
	}
	for {
		n := min(len(data), chacha20.KeySize)
		for i := 0; i < n; i++ {
			st.key[i] ^= data[i]
		}
		if err := st.rekey(); err != nil {
			return err
		}
		data = data[n:]
		if len(data) == 0 {
			return nil
		}
	}
}

func (b *ChaCha20) DRNGGenerate(h Handle, out []byte) (int, error) {
	st, ok := h.(*chachaState)
	if !ok {
		return 0, ErrHandle
	}
	return st.generate(out)
}

func (b *ChaCha20) DRNGGenerateFullEntropy(h Handle, out []byte) (int, error) {
	return b.DRNGGenerate(h, out)
}

func (st *chachaState) cipher() (*chacha20.Cipher, error) {
	st.ctr++
	binary.LittleEndian.PutUint64(st.nonce[4:], st.ctr)
	return chacha20.NewUnauthenticatedCipher(st.key[:], st.nonce[:])
}

func (st *chachaState) rekey() error {
	c, err := st.cipher()
	if err != nil {
		return err
	}
	c.XORKeyStream(st.key[:], st.key[:])
	return nil
}

func (st *chachaState) generate(out []byte) (int, error) {
	c, err := st.cipher()
	if err != nil {
		return 0, err
	}
	clear(out)
	c.XORKeyStream(out, out)

	// The next keystream block replaces the key so earlier output cannot be recomputed.
	var next [chacha20.KeySize]byte
	c.XORKeyStream(next[:], next[:])
	st.key = next
	clear(next[:])

	return len(out), nil
}
