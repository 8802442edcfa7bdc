package cipher

import (
	"errors"
	"testing"

	"github.com/RowanDark/xorbreak/internal/xorcrack"
)

func TestDecodeHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "49276d", want: "I'm"},
		{name: "upper case", input: "49276D", want: "I'm"},
		{name: "0x prefix", input: "0x414243", want: "ABC"},
		{name: "separators", input: "41:42-43 44", want: "ABCD"},
		{name: "trailing newline", input: "4142\n", want: "AB"},
		{name: "odd length", input: "414", wantErr: true},
		{name: "bad digit", input: "1z", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHex(tt.input)
			if tt.wantErr {
				if !errors.Is(err, xorcrack.ErrDecode) {
					t.Fatalf("expected ErrDecode, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeHex() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecodeBase64(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "padded", input: "SGVsbG8sIFdvcmxkIQ==", want: "Hello, World!"},
		{name: "unpadded", input: "SGVsbG8", want: "Hello"},
		{name: "wrapped lines", input: "SGVsbG8s\nIFdvcmxk\r\nIQ==\n", want: "Hello, World!"},
		{name: "invalid", input: "not*base64", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64(tt.input)
			if tt.wantErr {
				if !errors.Is(err, xorcrack.ErrDecode) {
					t.Fatalf("expected ErrDecode, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeBase64() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecoder(t *testing.T) {
	tests := []struct {
		encoding string
		input    string
		want     string
	}{
		{encoding: "hex", input: "414243", want: "ABC"},
		{encoding: "HEX", input: "414243", want: "ABC"},
		{encoding: "base64", input: "QUJD", want: "ABC"},
		{encoding: "raw", input: "ABC", want: "ABC"},
		{encoding: "", input: "ABC", want: "ABC"},
		{encoding: "auto", input: "0x414243", want: "ABC"},
		{encoding: "auto", input: "414243", want: "ABC"},
		{encoding: "auto", input: "SGVsbG8sIFdvcmxkIQ==", want: "Hello, World!"},
		{encoding: "auto", input: "plain text!", want: "plain text!"},
	}

	for _, tt := range tests {
		t.Run(tt.encoding+"/"+tt.input, func(t *testing.T) {
			decode, err := Decoder(tt.encoding)
			if err != nil {
				t.Fatalf("Decoder() error = %v", err)
			}
			got, err := decode(tt.input)
			if err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecoderUnsupported(t *testing.T) {
	if _, err := Decoder("rot13"); err == nil {
		t.Fatal("expected error for unsupported encoding")
	}
}
