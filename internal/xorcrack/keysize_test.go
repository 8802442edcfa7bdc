package xorcrack

import (
	"errors"
	"math"
	"testing"
)

func TestHammingDistance(t *testing.T) {
	got, err := HammingDistance([]byte("this is a test"), []byte("wokka wokka!!!"))
	if err != nil {
		t.Fatalf("HammingDistance() error = %v", err)
	}
	if got != 37 {
		t.Fatalf("expected 37, got %d", got)
	}

	back, _ := HammingDistance([]byte("wokka wokka!!!"), []byte("this is a test"))
	if back != got {
		t.Errorf("distance not symmetric: %d vs %d", got, back)
	}

	self, _ := HammingDistance([]byte("same"), []byte("same"))
	if self != 0 {
		t.Errorf("expected zero self distance, got %d", self)
	}
}

func TestHammingDistanceLengthMismatch(t *testing.T) {
	if _, err := HammingDistance([]byte("ab"), []byte("abc")); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestNormalizedDistance(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		size int
		want float64
	}{
		{name: "single byte blocks", buf: []byte{0, 1, 2, 3}, size: 1, want: 1.0},
		{name: "two byte blocks", buf: []byte{0, 0, 255, 255, 1, 2, 3, 4}, size: 2, want: 4.75},
		{name: "alternating bytes", buf: []byte("abababab"), size: 1, want: 2},
		{name: "trailing bytes ignored", buf: []byte{7, 7, 7, 7, 0xff, 0xff}, size: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizedDistance(tt.buf, tt.size)
			if err != nil {
				t.Fatalf("NormalizedDistance() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizedDistanceErrors(t *testing.T) {
	if _, err := NormalizedDistance([]byte{1, 2, 3}, 1); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := NormalizedDistance([]byte{1, 2, 3, 4}, 0); !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("expected ErrInvalidKeySize, got %v", err)
	}
}

func TestEstimateKeySizes(t *testing.T) {
	ciphertext := RepeatingXOR([]byte(testCorpus), []byte("ICE"))

	cands, err := EstimateKeySizes(ciphertext)
	if err != nil {
		t.Fatalf("EstimateKeySizes() error = %v", err)
	}
	if len(cands) != DefaultCandidates {
		t.Fatalf("expected %d candidates, got %d", DefaultCandidates, len(cands))
	}

	seen := make(map[int]bool)
	for i, c := range cands {
		if c.Size < DefaultMinKeySize || c.Size > DefaultMaxKeySize {
			t.Errorf("candidate %d size %d outside window", i, c.Size)
		}
		if seen[c.Size] {
			t.Errorf("duplicate size %d", c.Size)
		}
		seen[c.Size] = true
		if i > 0 && c.Distance < cands[i-1].Distance {
			t.Errorf("candidates not sorted at %d: %v < %v", i, c.Distance, cands[i-1].Distance)
		}
		if i > 0 && c.Distance == cands[i-1].Distance && c.Size < cands[i-1].Size {
			t.Errorf("equal distances out of size order at %d", i)
		}
		want, _ := NormalizedDistance(ciphertext, c.Size)
		if want != c.Distance {
			t.Errorf("size %d distance %v, recomputed %v", c.Size, c.Distance, want)
		}
	}
}

func TestEstimateKeySizesInsufficientData(t *testing.T) {
	_, err := EstimateKeySizes(make([]byte, 4*DefaultMaxKeySize-1))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}

	if _, err := EstimateKeySizes(make([]byte, 4*DefaultMaxKeySize)); err != nil {
		t.Fatalf("EstimateKeySizes() at the boundary error = %v", err)
	}
}

func TestEstimateKeySizesOptions(t *testing.T) {
	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = byte(i * 37)
	}

	cands, err := EstimateKeySizes(buf, WithKeySizeRange(2, 8), WithCandidates(3))
	if err != nil {
		t.Fatalf("EstimateKeySizes() error = %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(cands))
	}
	for _, c := range cands {
		if c.Size < 2 || c.Size > 8 {
			t.Errorf("size %d outside [2,8]", c.Size)
		}
	}

	all, err := EstimateKeySizes(buf, WithKeySizeRange(2, 4), WithCandidates(10))
	if err != nil {
		t.Fatalf("EstimateKeySizes() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected the whole window of 3 sizes, got %d", len(all))
	}

	if _, err := EstimateKeySizes(buf, WithKeySizeRange(5, 2)); !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("expected ErrInvalidKeySize for inverted range, got %v", err)
	}
	if _, err := EstimateKeySizes(buf, WithCandidates(0)); err == nil {
		t.Errorf("expected error for zero candidates")
	}
}

func TestKeySizes(t *testing.T) {
	got := KeySizes([]KeySizeCandidate{{Size: 5}, {Size: 2}, {Size: 29}})
	want := []int{5, 2, 29}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
