package cipher

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	hexPattern    = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	digitPattern  = regexp.MustCompile(`^[0-9]+$`)
	base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]+=*$`)
)

// minConfidence drops guesses too weak to act on.
const minConfidence = 0.3

// SmartDetector guesses whether ciphertext input is hex or base64.
type SmartDetector struct{}

// NewSmartDetector creates a new smart detector
func NewSmartDetector() *SmartDetector {
	return &SmartDetector{}
}

// Detect returns the plausible encodings of input, most confident first.
func (d *SmartDetector) Detect(ctx context.Context, input []byte) ([]DetectionResult, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	results := []DetectionResult{}
	results = append(results, d.detectHex(input)...)
	results = append(results, d.detectBase64(input)...)

	sortResultsByConfidence(results)

	filtered := results[:0]
	for _, r := range results {
		if r.Confidence >= minConfidence {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// SupportedEncodings returns a list of encodings this detector can identify
func (d *SmartDetector) SupportedEncodings() []string {
	return []string{EncodingHex, EncodingBase64}
}

func cleanHex(input []byte) (string, bool) {
	s := strings.TrimSpace(string(input))
	hasPrefix := strings.HasPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0x")
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
	return s, hasPrefix
}

// hexConfidence reports how likely input is hex, and false when it is not
// valid hex at all.
func hexConfidence(input []byte) (float64, bool) {
	cleaned, hasPrefix := cleanHex(input)
	if !hexPattern.MatchString(cleaned) || len(cleaned)%2 != 0 {
		return 0, false
	}
	if hasPrefix {
		return 0.95, true
	}
	// All digits could just as well be a decimal number.
	if digitPattern.MatchString(cleaned) {
		return 0.55, true
	}
	return 0.9, true
}

func (d *SmartDetector) detectHex(input []byte) []DetectionResult {
	confidence, ok := hexConfidence(input)
	if !ok {
		return nil
	}
	return []DetectionResult{{
		Encoding:   EncodingHex,
		Confidence: confidence,
		Reasoning:  "Matches hexadecimal pattern",
		Operation:  "hex_decode",
	}}
}

func (d *SmartDetector) detectBase64(input []byte) []DetectionResult {
	joined := strings.Join(strings.Fields(string(input)), "")
	if !base64Pattern.MatchString(joined) {
		return nil
	}

	var confidence float64
	var reasoning string
	if decoded, err := base64.StdEncoding.DecodeString(joined); err == nil {
		confidence = 0.85
		reasoning = "Matches Base64 pattern and decodes successfully"
		// Ciphertext tends to decode to high-entropy bytes.
		if calculateEntropy(decoded) > 4 {
			confidence = 0.9
		}
	} else if _, err := base64.RawStdEncoding.DecodeString(joined); err == nil {
		confidence = 0.7
		reasoning = "Matches Base64 pattern without padding"
	} else {
		return nil
	}

	// A pure hex alphabet is far more likely to be hex.
	if hexConf, ok := hexConfidence(input); ok {
		confidence = math.Min(confidence, hexConf-0.05)
		reasoning += "; also valid hex"
	}

	return []DetectionResult{{
		Encoding:   EncodingBase64,
		Confidence: confidence,
		Reasoning:  reasoning,
		Operation:  "base64_decode",
	}}
}

// calculateEntropy returns the Shannon entropy of data in bits per byte.
func calculateEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var freq [256]int
	for _, b := range data {
		freq[b]++
	}

	entropy := 0.0
	dataLen := float64(len(data))
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / dataLen
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func sortResultsByConfidence(results []DetectionResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
}

// DetectEncoding returns the most likely encoding of input, or EncodingRaw
// when it is neither hex nor base64.
func DetectEncoding(input []byte) string {
	results, err := NewSmartDetector().Detect(context.Background(), input)
	if err != nil || len(results) == 0 {
		return EncodingRaw
	}
	return results[0].Encoding
}

// DecodeResult is the outcome of decoding input under one detected encoding.
type DecodeResult struct {
	Detection DetectionResult `json:"detection"`
	Decoded   []byte          `json:"decoded"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
}

// DecodeAll decodes input with every detected encoding, best guess first.
func DecodeAll(ctx context.Context, input []byte) ([]DecodeResult, error) {
	detections, err := NewSmartDetector().Detect(ctx, input)
	if err != nil {
		return nil, err
	}

	results := make([]DecodeResult, 0, len(detections))
	for _, detection := range detections {
		op, exists := GetOperation(detection.Operation)
		if !exists {
			continue
		}

		decoded, err := op.Execute(ctx, input, nil)
		if err != nil {
			results = append(results, DecodeResult{Detection: detection, Error: err.Error()})
			continue
		}
		results = append(results, DecodeResult{
			Detection: detection,
			Decoded:   decoded,
			Success:   true,
		})
	}
	return results, nil
}
