package xorcrack

import (
	"crypto/cipher"
	"fmt"
)

// SingleByteXOR writes src XOR k into dst. dst may alias src and must be at
// least as long as src.
func SingleByteXOR(dst, src []byte, k byte) {
	for i := range src {
		dst[i] = src[i] ^ k
	}
}

// RepeatingXOR returns src combined with key cycled to the length of src. An
// empty key returns an unmodified copy.
func RepeatingXOR(src, key []byte) []byte {
	out := make([]byte, len(src))
	if len(key) == 0 {
		copy(out, src)
		return out
	}
	for i := range src {
		out[i] = src[i] ^ key[i%len(key)]
	}
	return out
}

// FixedXOR combines two equal-length buffers.
func FixedXOR(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out, nil
}

type xorStream struct {
	key []byte
	pos int
}

// NewRepeatingXORStream returns a stateful keystream cycling key across
// successive XORKeyStream calls. It panics on an empty key.
func NewRepeatingXORStream(key []byte) cipher.Stream {
	if len(key) == 0 {
		panic("xorcrack: empty key")
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &xorStream{key: k}
}

func (s *xorStream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("xorcrack: output smaller than input")
	}
	for i := range src {
		dst[i] = src[i] ^ s.key[s.pos]
		s.pos++
		if s.pos == len(s.key) {
			s.pos = 0
		}
	}
}
