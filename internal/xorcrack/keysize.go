package xorcrack

import (
	"fmt"
	"math/bits"
	"sort"
)

// KeySizeCandidate is a key length with its normalised block distance. Lower
// distances mark likelier key sizes.
type KeySizeCandidate struct {
	Size     int     `json:"size"`
	Distance float64 `json:"distance"`
}

// HammingDistance returns the number of differing bits between two
// equal-length buffers.
func HammingDistance(a, b []byte) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}
	var n int
	for i := range a {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return n, nil
}

// NormalizedDistance averages the Hamming distances of the first and second
// pair of size-byte blocks at the start of buf and divides by size.
func NormalizedDistance(buf []byte, size int) (float64, error) {
	if size < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidKeySize, size)
	}
	if len(buf) < 4*size {
		return 0, fmt.Errorf("%w: need %d bytes for key size %d, have %d",
			ErrInsufficientData, 4*size, size, len(buf))
	}
	d1, err := HammingDistance(buf[0:size], buf[size:2*size])
	if err != nil {
		return 0, err
	}
	d2, err := HammingDistance(buf[2*size:3*size], buf[3*size:4*size])
	if err != nil {
		return 0, err
	}
	return float64(d1+d2) / 2 / float64(size), nil
}

// EstimateKeySizes ranks every key size in the configured window (2..40 by
// default) by NormalizedDistance and returns the best candidates, closest
// first. Equal distances keep ascending size order.
func EstimateKeySizes(ciphertext []byte, opts ...Option) ([]KeySizeCandidate, error) {
	cfg, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return estimateKeySizes(ciphertext, cfg)
}

func estimateKeySizes(ciphertext []byte, cfg *options) ([]KeySizeCandidate, error) {
	if len(ciphertext) < 4*cfg.maxKeySize {
		return nil, fmt.Errorf("%w: need %d bytes for key sizes up to %d, have %d",
			ErrInsufficientData, 4*cfg.maxKeySize, cfg.maxKeySize, len(ciphertext))
	}

	cands := make([]KeySizeCandidate, 0, cfg.maxKeySize-cfg.minKeySize+1)
	for size := cfg.minKeySize; size <= cfg.maxKeySize; size++ {
		d, err := NormalizedDistance(ciphertext, size)
		if err != nil {
			return nil, err
		}
		cands = append(cands, KeySizeCandidate{Size: size, Distance: d})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Distance < cands[j].Distance
	})

	if len(cands) > cfg.candidates {
		cands = cands[:cfg.candidates]
	}
	return cands, nil
}

// KeySizes projects candidates onto their sizes, preserving order.
func KeySizes(cands []KeySizeCandidate) []int {
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.Size
	}
	return out
}
