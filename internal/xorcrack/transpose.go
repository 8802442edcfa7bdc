package xorcrack

import "fmt"

// Transpose splits ciphertext into keySize columns where column j holds every
// byte at an offset congruent to j modulo keySize. When the length is not a
// multiple of keySize the trailing columns are one byte shorter.
func Transpose(ciphertext []byte, keySize int) ([][]byte, error) {
	if keySize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeySize, keySize)
	}
	cols := make([][]byte, keySize)
	for j := range cols {
		n := len(ciphertext) / keySize
		if j < len(ciphertext)%keySize {
			n++
		}
		cols[j] = make([]byte, 0, n)
	}
	for i, b := range ciphertext {
		cols[i%keySize] = append(cols[i%keySize], b)
	}
	return cols, nil
}

// Interleave reverses Transpose: it emits byte 0 of every column, then byte 1
// of every column, and so on, skipping columns that have run out.
func Interleave(cols [][]byte) []byte {
	var total, rows int
	for _, c := range cols {
		total += len(c)
		if len(c) > rows {
			rows = len(c)
		}
	}
	out := make([]byte, 0, total)
	for r := 0; r < rows; r++ {
		for _, c := range cols {
			if r < len(c) {
				out = append(out, c[r])
			}
		}
	}
	return out
}
