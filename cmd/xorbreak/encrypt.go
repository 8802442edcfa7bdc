package main

import (
	"bytes"
	stdcipher "crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/RowanDark/xorbreak/internal/cipher"
	"github.com/RowanDark/xorbreak/internal/xorcrack"
)

func (c *cli) runEncrypt(args []string) int {
	fs := c.flagSet("encrypt")
	key := fs.String("key", "", "repeating XOR key")
	output := fs.String("output", cipher.EncodingHex, "output encoding: hex or base64")
	keepNewline := fs.Bool("keep-newline", false, "keep a trailing newline of the input")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *key == "" {
		fmt.Fprintln(c.stderr, "encrypt requires -key")
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "encrypt requires exactly one argument")
		fs.Usage()
		return 2
	}

	var (
		w     io.Writer
		flush = func() error { return nil }
	)
	switch *output {
	case cipher.EncodingHex:
		w = hex.NewEncoder(c.stdout)
	case cipher.EncodingBase64:
		enc := base64.NewEncoder(base64.StdEncoding, c.stdout)
		w, flush = enc, enc.Close
	default:
		fmt.Fprintf(c.stderr, "unsupported output encoding %q\n", *output)
		return 2
	}

	data, err := c.readInput(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(c.stderr, "read input: %v\n", err)
		return 1
	}
	if !*keepNewline {
		data = bytes.TrimSuffix(bytes.TrimSuffix(data, []byte("\n")), []byte("\r"))
	}

	sw := &stdcipher.StreamWriter{S: xorcrack.NewRepeatingXORStream([]byte(*key)), W: w}
	if _, err := sw.Write(data); err != nil {
		fmt.Fprintf(c.stderr, "encrypt: %v\n", err)
		return 1
	}
	if err := flush(); err != nil {
		fmt.Fprintf(c.stderr, "encrypt: %v\n", err)
		return 1
	}
	fmt.Fprintln(c.stdout)
	return 0
}

func (c *cli) runFixed(args []string) int {
	fs := c.flagSet("fixed")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(c.stderr, "fixed requires two hex arguments")
		return 2
	}
	out, err := cipher.FixedXORHex(fs.Arg(0), fs.Arg(1))
	if err != nil {
		fmt.Fprintf(c.stderr, "fixed: %v\n", err)
		return 1
	}
	fmt.Fprintln(c.stdout, out)
	return 0
}
