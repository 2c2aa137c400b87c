package backend

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/minio/sha256-simd"
	"lukechampine.com/blake3"
)

const (
	aesKeySize       = 32
	blake3DigestSize = 64
)

// AESCTR is an alternate backend: an AES-256-CTR generator whose seed material is
// hashed down to the cipher key size before keying, and a keyed BLAKE3-512 pool hash.
type AESCTR struct {
	name string
}

func NewAESCTR() *AESCTR {
	return &AESCTR{name: "aes256-ctr"}
}

type aesState struct {
	key [aesKeySize]byte
	iv  [aes.BlockSize]byte
}

type blake3Hash struct {
	key [32]byte
}

func (b *AESCTR) Name() string { return b.name }

func (b *AESCTR) HashAlloc(key []byte) (Handle, error) {
	h := &blake3Hash{}
	if len(key) == len(h.key) {
		copy(h.key[:], key)
	} else {
		h.key = blake3.Sum256(key)
	}
	return h, nil
}

func (b *AESCTR) HashDealloc(h Handle) {
	if hh, ok := h.(*blake3Hash); ok {
		clear(hh.key[:])
	}
}

func (b *AESCTR) HashDigestSize(Handle) int { return blake3DigestSize }

func (b *AESCTR) HashDigest(h Handle, data []byte) ([]byte, error) {
	hh, ok := h.(*blake3Hash)
	if !ok {
		return nil, ErrHandle
	}
	d := blake3.New(blake3DigestSize, hh.key[:])
	d.Write(data)
	return d.Sum(nil), nil
}

func (b *AESCTR) DRNGAlloc(int) (Handle, error) {
	st := &aesState{}
	if _, err := rand.Read(st.key[:]); err != nil {
		return nil, fmt.Errorf("%w: aes key: %w", ErrAllocation, err)
	}
	return st, nil
}

func (b *AESCTR) DRNGDealloc(h Handle) {
	if st, ok := h.(*aesState); ok {
		clear(st.key[:])
		clear(st.iv[:])
	}
}

// DRNGSeed derives the next key as SHA-256(key || seed).
func (b *AESCTR) DRNGSeed(h Handle, data []byte) error {
	st, ok := h.(*aesState)
	if !ok {
		return ErrHandle
	}
	d := sha256.New()
	d.Write(st.key[:])
	d.Write(data)
	copy(st.key[:], d.Sum(nil))
	return nil
}

func (b *AESCTR) DRNGGenerate(h Handle, out []byte) (int, error) {
	st, ok := h.(*aesState)
	if !ok {
		return 0, ErrHandle
	}
	block, err := aes.NewCipher(st.key[:])
	if err != nil {
		return 0, err
	}
	stream := cipher.NewCTR(block, st.iv[:])
	clear(out)
	stream.XORKeyStream(out, out)

	var next [aesKeySize + aes.BlockSize]byte
	stream.XORKeyStream(next[:], next[:])
	copy(st.key[:], next[:aesKeySize])
	copy(st.iv[:], next[aesKeySize:])
	clear(next[:])

	return len(out), nil
}

func (b *AESCTR) DRNGGenerateFullEntropy(h Handle, out []byte) (int, error) {
	return b.DRNGGenerate(h, out)
}
