// Package xorcrack breaks classical XOR ciphers.
//
// # Single-byte XOR
//
// CrackSingle tries all 256 keys against a ciphertext and keeps the decryption
// that Score rates as most English-like:
//
//	c := xorcrack.CrackSingle(ciphertext)
//	fmt.Println(c.Key, c.Text())
//
// Detect runs CrackSingle over a batch of lines and returns the line that
// decrypts best. DetectEncoded does the same for encoded lines, skipping any
// line its decoder rejects.
//
// # Repeating-key XOR
//
// CrackRepeating estimates the key length from normalised Hamming distances
// between leading blocks (EstimateKeySizes), transposes the ciphertext into one
// column per key byte (Transpose), cracks each column as single-byte XOR and
// keeps the key size whose columns score highest overall:
//
//	res, err := xorcrack.CrackRepeating(ctx, ciphertext,
//	    xorcrack.WithKeySizeRange(2, 40),
//	    xorcrack.WithCandidates(10),
//	)
//
// Candidate key sizes and batch lines are evaluated in parallel on a worker
// pool. Results are reduced in input order with a strict greater-than
// comparison, so the outcome never depends on scheduling.
//
// # Errors
//
// Cracking never fails on well-formed bytes. The terminal cases are
// ErrInsufficientData (ciphertext too short for the key size window) and
// ErrNoCandidate (empty batch or nothing decodable). ErrDecode is reserved for
// boundary decoders.
//
// All functions are safe for concurrent use and never modify their inputs.
package xorcrack
