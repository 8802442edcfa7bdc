package cipher

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/RowanDark/xorbreak/internal/xorcrack"
)

// Encodings accepted by Decoder.
const (
	EncodingHex    = "hex"
	EncodingBase64 = "base64"
	EncodingRaw    = "raw"
	EncodingAuto   = "auto"
)

// DecodeHex decodes a hex string. Surrounding whitespace, a 0x or \x prefix
// and space, colon or dash separators are ignored.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "\\x")
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)

	decoded, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: hex: %w", xorcrack.ErrDecode, err)
	}
	return decoded, nil
}

// DecodeBase64 decodes standard base64. Line breaks are joined first so that
// wrapped files decode as one payload; unpadded input is accepted.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")

	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var rawErr error
		decoded, rawErr = base64.RawStdEncoding.DecodeString(s)
		if rawErr != nil {
			return nil, fmt.Errorf("%w: base64: %w", xorcrack.ErrDecode, err)
		}
	}
	return decoded, nil
}

// Decoder returns the decode function for the named encoding. "auto" picks
// an encoding per input with the SmartDetector.
func Decoder(encoding string) (xorcrack.DecodeFunc, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case EncodingHex:
		return DecodeHex, nil
	case EncodingBase64:
		return DecodeBase64, nil
	case EncodingRaw, "":
		return func(s string) ([]byte, error) { return []byte(s), nil }, nil
	case EncodingAuto:
		return decodeAuto, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q (want hex, base64, raw or auto)", encoding)
	}
}

func decodeAuto(s string) ([]byte, error) {
	enc := DetectEncoding([]byte(s))
	decode, err := Decoder(enc)
	if err != nil {
		return nil, err
	}
	return decode(s)
}

// HexEncodeOp encodes bytes as a lowercase hexadecimal string.
type HexEncodeOp struct {
	BaseOperation
}

func (op *HexEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return []byte(hex.EncodeToString(input)), nil
}

// HexDecodeOp decodes a hexadecimal string to bytes.
type HexDecodeOp struct {
	BaseOperation
}

func (op *HexDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return DecodeHex(string(input))
}

// Base64EncodeOp encodes data as standard Base64.
type Base64EncodeOp struct {
	BaseOperation
}

func (op *Base64EncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(input)), nil
}

// Base64DecodeOp decodes standard Base64 data, including line-wrapped input.
type Base64DecodeOp struct {
	BaseOperation
}

func (op *Base64DecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return DecodeBase64(string(input))
}

func init() {
	hexEncode := &HexEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode bytes as hexadecimal string",
		},
	}
	hexDecode := &HexDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode hexadecimal string to bytes",
		},
	}
	hexEncode.ReverseOp = hexDecode
	hexDecode.ReverseOp = hexEncode

	base64Encode := &Base64EncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode data as standard Base64",
		},
	}
	base64Decode := &Base64DecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode standard Base64 data, joining wrapped lines",
		},
	}
	base64Encode.ReverseOp = base64Decode
	base64Decode.ReverseOp = base64Encode

	mustRegister(hexEncode, hexDecode, base64Encode, base64Decode)
}
