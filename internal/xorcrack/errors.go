package xorcrack

import "errors"

var (
	// ErrDecode wraps failures to turn an encoded input (hex, base64) into raw
	// bytes. Batch callers skip items failing with it; single-input callers
	// return it.
	ErrDecode = errors.New("decode failed")

	// ErrInsufficientData is returned by EstimateKeySizes when the ciphertext is
	// shorter than four blocks of the largest key size under test.
	ErrInsufficientData = errors.New("insufficient ciphertext")

	// ErrNoCandidate is returned when no viable decryption exists, e.g. an empty
	// batch or a batch where every line failed to decode.
	ErrNoCandidate = errors.New("no candidate found")

	ErrLengthMismatch = errors.New("buffers differ in length")
	ErrInvalidKeySize = errors.New("invalid key size")
)

// DecodeFunc turns one encoded input into raw bytes. Implementations should wrap
// their failures with ErrDecode.
type DecodeFunc func(string) ([]byte, error)
