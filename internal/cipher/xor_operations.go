package cipher

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/RowanDark/xorbreak/internal/xorcrack"
)

// FixedXORHex XORs two equal-length hex strings and returns the hex result.
func FixedXORHex(a, b string) (string, error) {
	left, err := DecodeHex(a)
	if err != nil {
		return "", err
	}
	right, err := DecodeHex(b)
	if err != nil {
		return "", err
	}
	out, err := xorcrack.FixedXOR(left, right)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(out), nil
}

// XORSingleOp XORs every byte with a one-byte key.
type XORSingleOp struct {
	BaseOperation
}

func (op *XORSingleOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := byteParam(params, "key")
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(input))
	xorcrack.SingleByteXOR(out, input, key)
	return out, nil
}

// XORRepeatingOp XORs the input with a cycled key.
type XORRepeatingOp struct {
	BaseOperation
}

func (op *XORRepeatingOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, ok := params["key"].(string)
	if !ok || key == "" {
		return nil, fmt.Errorf("parameter 'key' is required and must be a non-empty string")
	}
	return xorcrack.RepeatingXOR(input, []byte(key)), nil
}

// FixedXOROp XORs hex input with the hex 'with' parameter and emits hex.
type FixedXOROp struct {
	BaseOperation
}

func (op *FixedXOROp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	with, ok := params["with"].(string)
	if !ok {
		return nil, fmt.Errorf("parameter 'with' is required and must be a hex string")
	}
	out, err := FixedXORHex(string(input), with)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// CrackSingleOp recovers the plaintext of a single-byte XOR ciphertext.
type CrackSingleOp struct {
	BaseOperation
}

func (op *CrackSingleOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return xorcrack.CrackSingle(input).Plaintext, nil
}

// CrackRepeatingOp recovers the plaintext of a repeating-key XOR ciphertext.
// Optional parameters: min_keysize, max_keysize, candidates.
type CrackRepeatingOp struct {
	BaseOperation
}

func (op *CrackRepeatingOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	opts, err := crackOptions(params)
	if err != nil {
		return nil, err
	}
	res, err := xorcrack.CrackRepeating(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return res.Plaintext, nil
}

func crackOptions(params map[string]interface{}) ([]xorcrack.Option, error) {
	minSize, hasMin, err := intParam(params, "min_keysize")
	if err != nil {
		return nil, err
	}
	maxSize, hasMax, err := intParam(params, "max_keysize")
	if err != nil {
		return nil, err
	}
	var opts []xorcrack.Option
	if hasMin || hasMax {
		if !hasMin {
			minSize = xorcrack.DefaultMinKeySize
		}
		if !hasMax {
			maxSize = xorcrack.DefaultMaxKeySize
		}
		opts = append(opts, xorcrack.WithKeySizeRange(minSize, maxSize))
	}
	if n, ok, err := intParam(params, "candidates"); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, xorcrack.WithCandidates(n))
	}
	return opts, nil
}

// intParam reads an integer parameter. JSON numbers arrive as float64.
func intParam(params map[string]interface{}, name string) (int, bool, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != float64(int(v)) {
			return 0, false, fmt.Errorf("parameter '%s' must be an integer, got %v", name, v)
		}
		return int(v), true, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
		if err != nil {
			return 0, false, fmt.Errorf("parameter '%s': %w", name, err)
		}
		return int(n), true, nil
	default:
		return 0, false, fmt.Errorf("parameter '%s' has unsupported type %T", name, raw)
	}
}

func byteParam(params map[string]interface{}, name string) (byte, error) {
	n, ok, err := intParam(params, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("parameter '%s' is required", name)
	}
	if n < 0 || n > 0xff {
		return 0, fmt.Errorf("parameter '%s' must be in 0..255, got %d", name, n)
	}
	return byte(n), nil
}

func init() {
	xorSingle := &XORSingleOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_single",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "XOR every byte with a single-byte key (param: key)",
		},
	}
	xorSingle.ReverseOp = xorSingle

	xorRepeating := &XORRepeatingOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_repeating",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "XOR with a repeating key (param: key)",
		},
	}
	xorRepeating.ReverseOp = xorRepeating

	fixedXOR := &FixedXOROp{
		BaseOperation: BaseOperation{
			NameValue:        "fixed_xor",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "XOR a hex buffer with an equal-length hex buffer (param: with)",
		},
	}
	fixedXOR.ReverseOp = fixedXOR

	crackSingle := &CrackSingleOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_crack_single",
			TypeValue:        OperationTypeDecrypt,
			DescriptionValue: "Recover plaintext encrypted with an unknown single-byte XOR key",
		},
	}
	crackRepeating := &CrackRepeatingOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_crack_repeating",
			TypeValue:        OperationTypeDecrypt,
			DescriptionValue: "Recover plaintext encrypted with an unknown repeating XOR key",
		},
	}

	mustRegister(xorSingle, xorRepeating, fixedXOR, crackSingle, crackRepeating)
}
