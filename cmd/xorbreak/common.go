package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/xorbreak/internal/config"
	"github.com/RowanDark/xorbreak/internal/history"
	"github.com/RowanDark/xorbreak/internal/logging"
	"github.com/RowanDark/xorbreak/internal/observability/tracing"
	"github.com/RowanDark/xorbreak/internal/xorcrack"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func (c *cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) loadConfig() (config.Config, bool) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(c.stderr, "load config: %v\n", err)
		return config.Config{}, false
	}
	return cfg, true
}

// crackFlags are shared by the cracking commands. Defaults come from the
// resolved configuration.
type crackFlags struct {
	encoding   string
	format     string
	minKeySize int
	maxKeySize int
	candidates int
	workers    int
	noHistory  bool
	showKey    bool
}

func registerCrackFlags(fs *flag.FlagSet, cfg config.Config, defaultEncoding string) *crackFlags {
	f := &crackFlags{}
	fs.StringVar(&f.encoding, "encoding", defaultEncoding, "input encoding: hex, base64, raw or auto")
	fs.StringVar(&f.format, "format", formatText, "output format: text, json or yaml")
	fs.IntVar(&f.minKeySize, "min-keysize", cfg.MinKeySize, "smallest repeating key size to try")
	fs.IntVar(&f.maxKeySize, "max-keysize", cfg.MaxKeySize, "largest repeating key size to try")
	fs.IntVar(&f.candidates, "candidates", cfg.Candidates, "number of key sizes to crack")
	fs.IntVar(&f.workers, "workers", cfg.Workers, "parallel workers (0 uses GOMAXPROCS)")
	fs.BoolVar(&f.noHistory, "no-history", false, "do not store the result")
	fs.BoolVar(&f.showKey, "show-key", false, "print the recovered key with the plaintext")
	return f
}

func validFormat(format string) bool {
	switch format {
	case formatText, formatJSON, formatYAML:
		return true
	}
	return false
}

func (f *crackFlags) options(log *slog.Logger) []xorcrack.Option {
	opts := []xorcrack.Option{
		xorcrack.WithKeySizeRange(f.minKeySize, f.maxKeySize),
		xorcrack.WithCandidates(f.candidates),
		xorcrack.WithLogger(log),
	}
	if f.workers > 0 {
		opts = append(opts, xorcrack.WithWorkers(f.workers))
	}
	return opts
}

// session holds what a command needs once its flags are parsed.
type session struct {
	cfg     config.Config
	log     *slog.Logger
	audit   *logging.AuditLogger
	history *history.Store
}

func (c *cli) openSession(cfg config.Config, withHistory bool) (*session, error) {
	s := &session{
		cfg: cfg,
		log: logging.NewLogger(c.stderr, cfg.SlogLevel(), "cli"),
	}

	s.audit = logging.NopAuditLogger()
	if strings.TrimSpace(cfg.AuditLog) != "" {
		audit, err := logging.NewAuditLogger("cli", logging.WithFile(cfg.AuditLog), logging.WithoutStderr())
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		s.audit = audit
	}

	if withHistory {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			s.log.Warn("history disabled", slog.String("path", cfg.HistoryPath), slog.Any("error", err))
		} else {
			s.history = store
		}
	}
	return s, nil
}

func (s *session) Close() {
	if s.history != nil {
		_ = s.history.Close()
	}
	_ = s.audit.Close()
}

// save stores rec when history is enabled and returns it with its id.
func (s *session) save(ctx context.Context, rec history.Record) history.Record {
	if s.history == nil {
		return rec
	}
	saved, err := s.history.Save(ctx, rec)
	if err != nil {
		s.log.Warn("store result", slog.Any("error", err))
		return rec
	}
	return saved
}

// track opens a span for a crack and returns the function that ends it and
// writes the audit event.
func (s *session) track(ctx context.Context, event logging.EventType, mode string) (context.Context, func(error, map[string]any)) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "xorbreak."+mode, map[string]any{"xorbreak.mode": mode})
	return ctx, func(err error, meta map[string]any) {
		span.End(err)
		if meta == nil {
			meta = map[string]any{}
		}
		meta["duration_ms"] = time.Since(start).Milliseconds()
		ev := logging.AuditEvent{EventType: event, Decision: logging.DecisionAllow, Metadata: meta}
		if err != nil {
			ev.Decision = logging.DecisionDeny
			ev.Reason = err.Error()
		}
		_ = s.audit.Emit(ev)
	}
}

// readInput returns the contents of path, or standard input for "-".
func (c *cli) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(c.stdin)
	}
	return os.ReadFile(path)
}

// readLines splits input into lines, dropping blank ones. The second result
// maps each kept line back to its 1-based line number.
func readLines(data []byte) ([]string, []int, error) {
	var (
		lines   []string
		numbers []int
	)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
		numbers = append(numbers, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return lines, numbers, nil
}

// emit writes v as JSON or YAML, or calls text for the text format.
func (c *cli) emit(format string, v any, text func(io.Writer)) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(c.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(c.stdout)
		return nil
	}
}

// printableKey renders key bytes as text when they are printable ASCII.
func printableKey(key []byte) string {
	for _, b := range key {
		if b < 0x20 || b > 0x7e {
			return ""
		}
	}
	return string(key)
}
