package xorcrack

import "strings"

// Candidate is one decryption attempt under a single-byte key.
type Candidate struct {
	Plaintext []byte `json:"plaintext"`
	Score     int    `json:"score"`
	Key       byte   `json:"key"`
}

// Text renders the plaintext, replacing invalid UTF-8 with U+FFFD.
func (c Candidate) Text() string {
	return strings.ToValidUTF8(string(c.Plaintext), "\uFFFD")
}

// CrackSingle finds the single-byte key whose decryption of ciphertext scores
// highest. Keys are tried in ascending order and the first maximum wins, so
// ties resolve to the smallest key. Empty input yields a zero-score candidate
// with key 0.
func CrackSingle(ciphertext []byte) Candidate {
	tmp := make([]byte, len(ciphertext))
	best := Candidate{Plaintext: make([]byte, len(ciphertext))}
	for k := 0; k <= 0xff; k++ {
		SingleByteXOR(tmp, ciphertext, byte(k))
		n := Score(tmp)
		if k == 0 || n > best.Score {
			best.Score = n
			best.Key = byte(k)
			copy(best.Plaintext, tmp)
		}
	}
	return best
}
