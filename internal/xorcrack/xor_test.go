package xorcrack

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func TestSingleByteXOR(t *testing.T) {
	tests := []struct {
		src  []byte
		k    byte
		want []byte
	}{
		{[]byte{0, 1, 2, 3, 4, 5}, 1, []byte{1, 0, 3, 2, 5, 4}},
		{[]byte{0, 1, 2, 3, 4, 5}, 2, []byte{2, 3, 0, 1, 6, 7}},
		{[]byte{0, 1, 2, 3, 4, 5}, 3, []byte{3, 2, 1, 0, 7, 6}},
	}
	for _, tt := range tests {
		dst := make([]byte, len(tt.src))
		SingleByteXOR(dst, tt.src, tt.k)
		if !bytes.Equal(dst, tt.want) {
			t.Errorf("SingleByteXOR(%v, %v) = %v, want %v", tt.src, tt.k, dst, tt.want)
		}
	}
}

func TestSingleByteXORInPlace(t *testing.T) {
	buf := []byte("hello world")
	SingleByteXOR(buf, buf, 0x42)
	SingleByteXOR(buf, buf, 0x42)
	if string(buf) != "hello world" {
		t.Fatalf("expected round trip in place, got %q", buf)
	}
}

func TestRepeatingXORKnownVector(t *testing.T) {
	input := "Burning 'em, if you ain't quick and nimble\nI go crazy when I hear a cymbal"
	want := "0b3637272a2b2e63622c2e69692a23693a2a3c6324202d623d63343c2a26226324272765272a282b2f20430a652e2c652a3124333a653e2b2027630c692b20283165286326302e27282f"

	got := hex.EncodeToString(RepeatingXOR([]byte(input), []byte("ICE")))
	if got != want {
		t.Fatalf("unexpected ciphertext:\n got %s\nwant %s", got, want)
	}
}

func TestRepeatingXORRoundTrip(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("a"),
		[]byte("attack at dawn"),
		{0x00, 0xff, 0x10, 0x80, 0x7f},
	}
	keys := [][]byte{
		{0x00},
		{0x5a},
		[]byte("ICE"),
		[]byte("a much longer key than the input"),
	}
	for _, in := range inputs {
		for _, key := range keys {
			enc := RepeatingXOR(in, key)
			dec := RepeatingXOR(enc, key)
			if !bytes.Equal(dec, in) {
				t.Errorf("round trip failed for input %v key %v: got %v", in, key, dec)
			}
		}
	}
}

func TestRepeatingXORDoesNotModifyInput(t *testing.T) {
	in := []byte("immutable")
	orig := append([]byte(nil), in...)
	_ = RepeatingXOR(in, []byte("k"))
	if !bytes.Equal(in, orig) {
		t.Fatalf("input modified: %q", in)
	}
}

func TestRepeatingXOREmptyKey(t *testing.T) {
	in := []byte("unchanged")
	out := RepeatingXOR(in, nil)
	if !bytes.Equal(out, in) {
		t.Fatalf("expected copy of input, got %q", out)
	}
	out[0] = 'U'
	if in[0] != 'u' {
		t.Fatal("expected a fresh buffer")
	}
}

func TestFixedXOR(t *testing.T) {
	a, _ := hex.DecodeString("1c0111001f010100061a024b53535009181c")
	b, _ := hex.DecodeString("686974207468652062756c6c277320657965")

	got, err := FixedXOR(a, b)
	if err != nil {
		t.Fatalf("FixedXOR failed: %v", err)
	}
	if hex.EncodeToString(got) != "746865206b696420646f6e277420706c6179" {
		t.Fatalf("unexpected result %x", got)
	}

	if _, err := FixedXOR([]byte{1}, []byte{1, 2}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestRepeatingXORStream(t *testing.T) {
	tests := []struct {
		key       []byte
		src, want []byte
	}{
		{[]byte{1, 2}, []byte{1, 2, 3, 4, 5, 6}, []byte{0, 0, 2, 6, 4, 4}},
		{[]byte{1, 2, 3}, []byte{1, 2, 3, 4, 5, 6}, []byte{0, 0, 0, 5, 7, 5}},
		{[]byte{1, 2, 3, 4}, []byte{1, 2, 3, 4, 5, 6}, []byte{0, 0, 0, 0, 4, 4}},
	}
	for _, tt := range tests {
		stream := NewRepeatingXORStream(tt.key)
		dst := make([]byte, len(tt.src))
		stream.XORKeyStream(dst, tt.src)
		if !bytes.Equal(dst, tt.want) {
			t.Errorf("XORKeyStream(%v) with key %v = %v, want %v", tt.src, tt.key, dst, tt.want)
		}
	}
}

func TestRepeatingXORStreamKeepsPosition(t *testing.T) {
	key := []byte("ICE")
	src := []byte("split across several calls")

	stream := NewRepeatingXORStream(key)
	got := make([]byte, len(src))
	stream.XORKeyStream(got[:5], src[:5])
	stream.XORKeyStream(got[5:11], src[5:11])
	stream.XORKeyStream(got[11:], src[11:])

	if want := RepeatingXOR(src, key); !bytes.Equal(got, want) {
		t.Fatalf("stream output %x, want %x", got, want)
	}
}
