package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/RowanDark/xorbreak/internal/cipher"
	"github.com/RowanDark/xorbreak/internal/history"
	"github.com/RowanDark/xorbreak/internal/logging"
	"github.com/RowanDark/xorbreak/internal/xorcrack"
)

type singleOutput struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Key       int    `json:"key" yaml:"key"`
	KeyHex    string `json:"key_hex" yaml:"key_hex"`
	Score     int    `json:"score" yaml:"score"`
	Plaintext string `json:"plaintext" yaml:"plaintext"`
}

type detectOutput struct {
	singleOutput `yaml:",inline"`
	Line         int `json:"line" yaml:"line"`
	Skipped      int `json:"skipped" yaml:"skipped"`
}

type repeatingOutput struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Key       string `json:"key" yaml:"key"`
	KeyHex    string `json:"key_hex" yaml:"key_hex"`
	KeySize   int    `json:"key_size" yaml:"key_size"`
	Score     int    `json:"score" yaml:"score"`
	Plaintext string `json:"plaintext" yaml:"plaintext"`
}

type keySizeOutput struct {
	Size     int     `json:"size" yaml:"size"`
	Distance float64 `json:"distance" yaml:"distance"`
}

// prepare parses flags for a cracking command that takes exactly one
// positional argument and opens its session.
func (c *cli) prepare(name, defaultEncoding string, args []string) (*crackFlags, string, *session, int) {
	cfg, ok := c.loadConfig()
	if !ok {
		return nil, "", nil, 1
	}
	fs := c.flagSet(name)
	flags := registerCrackFlags(fs, cfg, defaultEncoding)
	if err := fs.Parse(args); err != nil {
		return nil, "", nil, 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(c.stderr, "%s requires exactly one argument\n", name)
		fs.Usage()
		return nil, "", nil, 2
	}
	if !validFormat(flags.format) {
		fmt.Fprintf(c.stderr, "unsupported format %q\n", flags.format)
		return nil, "", nil, 2
	}
	sess, err := c.openSession(cfg, !flags.noHistory)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return nil, "", nil, 1
	}
	return flags, fs.Arg(0), sess, 0
}

func (c *cli) runSingle(args []string) int {
	flags, input, sess, code := c.prepare("single", "", args)
	if sess == nil {
		return code
	}
	defer sess.Close()
	if flags.encoding == "" {
		flags.encoding = sess.cfg.Encoding
	}

	decode, err := cipher.Decoder(flags.encoding)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 2
	}
	ctx, done := sess.track(context.Background(), logging.EventCrackSingle, history.ModeSingle)
	ciphertext, err := decode(input)
	if err != nil {
		done(err, nil)
		fmt.Fprintf(c.stderr, "single: %v\n", err)
		return 1
	}
	cand := xorcrack.CrackSingle(ciphertext)
	rec := sess.save(ctx, history.Record{
		Mode:        history.ModeSingle,
		InputSHA256: history.HashInput(ciphertext),
		KeyHex:      hex.EncodeToString([]byte{cand.Key}),
		KeySize:     1,
		Score:       cand.Score,
		Plaintext:   cand.Text(),
	})
	done(nil, map[string]any{"key": int(cand.Key), "score": cand.Score, "history_id": rec.ID})

	out := newSingleOutput(rec.ID, cand)
	if err := c.emit(flags.format, out, func(w io.Writer) {
		if flags.showKey {
			fmt.Fprintf(w, "key: 0x%02x\nscore: %d\n", cand.Key, cand.Score)
		}
		fmt.Fprintln(w, out.Plaintext)
	}); err != nil {
		fmt.Fprintf(c.stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) runDetect(args []string) int {
	flags, path, sess, code := c.prepare("detect", "", args)
	if sess == nil {
		return code
	}
	defer sess.Close()
	if flags.encoding == "" {
		flags.encoding = sess.cfg.Encoding
	}

	decode, err := cipher.Decoder(flags.encoding)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 2
	}
	data, err := c.readInput(path)
	if err != nil {
		fmt.Fprintf(c.stderr, "read input: %v\n", err)
		return 1
	}
	lines, numbers, err := readLines(data)
	if err != nil {
		fmt.Fprintf(c.stderr, "read input: %v\n", err)
		return 1
	}

	ctx, done := sess.track(context.Background(), logging.EventCrackDetect, history.ModeDetect)
	det, err := xorcrack.DetectEncoded(ctx, lines, decode, flags.options(sess.log)...)
	if det.Skipped > 0 {
		sess.log.Warn("skipped undecodable lines", slog.Int("skipped", det.Skipped))
		_ = sess.audit.Emit(logging.AuditEvent{
			EventType: logging.EventDecodeSkipped,
			Decision:  logging.DecisionInfo,
			Metadata:  map[string]any{"mode": history.ModeDetect, "skipped": det.Skipped, "lines": len(lines)},
		})
	}
	if err != nil {
		done(err, map[string]any{"skipped": det.Skipped})
		fmt.Fprintf(c.stderr, "detect: %v\n", err)
		return 1
	}

	lineNo := numbers[det.Line]
	rec := sess.save(ctx, history.Record{
		Mode:        history.ModeDetect,
		InputSHA256: history.HashInput(data),
		KeyHex:      hex.EncodeToString([]byte{det.Key}),
		KeySize:     1,
		Score:       det.Score,
		Plaintext:   det.Text(),
	})
	done(nil, map[string]any{"line": lineNo, "key": int(det.Key), "score": det.Score, "skipped": det.Skipped})

	out := detectOutput{singleOutput: newSingleOutput(rec.ID, det.Candidate), Line: lineNo, Skipped: det.Skipped}
	if err := c.emit(flags.format, out, func(w io.Writer) {
		if flags.showKey {
			fmt.Fprintf(w, "line: %d\nkey: 0x%02x\nscore: %d\n", lineNo, det.Key, det.Score)
		}
		fmt.Fprintln(w, strings.TrimRight(out.Plaintext, "\n"))
	}); err != nil {
		fmt.Fprintf(c.stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) runRepeating(args []string) int {
	flags, path, sess, code := c.prepare("repeating", cipher.EncodingBase64, args)
	if sess == nil {
		return code
	}
	defer sess.Close()

	ciphertext, code := c.readCiphertext(path, flags.encoding)
	if code != 0 {
		return code
	}

	ctx, done := sess.track(context.Background(), logging.EventCrackRepeating, history.ModeRepeating)
	res, err := xorcrack.CrackRepeating(ctx, ciphertext, flags.options(sess.log)...)
	if err != nil {
		done(err, nil)
		fmt.Fprintf(c.stderr, "repeating: %v\n", err)
		return 1
	}
	keyHex := hex.EncodeToString(res.Key)
	rec := sess.save(ctx, history.Record{
		Mode:        history.ModeRepeating,
		InputSHA256: history.HashInput(ciphertext),
		KeyHex:      keyHex,
		KeySize:     res.KeySize,
		Score:       res.Score,
		Plaintext:   res.Text(),
	})
	done(nil, map[string]any{"key_size": res.KeySize, "score": res.Score, "trials": len(res.Trials), "history_id": rec.ID})

	out := repeatingOutput{
		ID:        rec.ID,
		Key:       printableKey(res.Key),
		KeyHex:    keyHex,
		KeySize:   res.KeySize,
		Score:     res.Score,
		Plaintext: res.Text(),
	}
	if err := c.emit(flags.format, out, func(w io.Writer) {
		if flags.showKey {
			fmt.Fprintf(w, "key: %q (%s)\nkey size: %d\n\n", out.Key, keyHex, res.KeySize)
		}
		fmt.Fprintln(w, strings.TrimRight(out.Plaintext, "\n"))
	}); err != nil {
		fmt.Fprintf(c.stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) runKeySizes(args []string) int {
	flags, path, sess, code := c.prepare("keysizes", cipher.EncodingBase64, args)
	if sess == nil {
		return code
	}
	defer sess.Close()

	ciphertext, code := c.readCiphertext(path, flags.encoding)
	if code != 0 {
		return code
	}

	_, done := sess.track(context.Background(), logging.EventKeySizes, "keysizes")
	cands, err := xorcrack.EstimateKeySizes(ciphertext, flags.options(sess.log)...)
	if err != nil {
		done(err, nil)
		fmt.Fprintf(c.stderr, "keysizes: %v\n", err)
		return 1
	}
	done(nil, map[string]any{"sizes": xorcrack.KeySizes(cands)})

	out := make([]keySizeOutput, 0, len(cands))
	for _, cand := range cands {
		out = append(out, keySizeOutput{Size: cand.Size, Distance: cand.Distance})
	}
	if err := c.emit(flags.format, out, func(w io.Writer) {
		for _, o := range out {
			fmt.Fprintf(w, "%3d  %.4f\n", o.Size, o.Distance)
		}
	}); err != nil {
		fmt.Fprintf(c.stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) readCiphertext(path, encoding string) ([]byte, int) {
	decode, err := cipher.Decoder(encoding)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return nil, 2
	}
	data, err := c.readInput(path)
	if err != nil {
		fmt.Fprintf(c.stderr, "read input: %v\n", err)
		return nil, 1
	}
	ciphertext, err := decode(string(data))
	if err != nil {
		fmt.Fprintf(c.stderr, "decode input: %v\n", err)
		return nil, 1
	}
	return ciphertext, 0
}

func newSingleOutput(id string, c xorcrack.Candidate) singleOutput {
	return singleOutput{
		ID:        id,
		Key:       int(c.Key),
		KeyHex:    hex.EncodeToString([]byte{c.Key}),
		Score:     c.Score,
		Plaintext: c.Text(),
	}
}
