package main

import (
	"fmt"
	"io"
	"time"

	"github.com/RowanDark/xorbreak/internal/config"
)

const redacted = "[REDACTED]"

func (c *cli) runConfig(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.stderr, "config subcommand required")
		return 2
	}

	switch args[0] {
	case "print":
		return c.runConfigPrint(args[1:])
	default:
		fmt.Fprintf(c.stderr, "unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func (c *cli) runConfigPrint(args []string) int {
	fs := c.flagSet("config print")
	format := fs.String("format", formatText, "output format: text, json or yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !validFormat(*format) {
		fmt.Fprintf(c.stderr, "unsupported format %q\n", *format)
		return 2
	}

	cfg, ok := c.loadConfig()
	if !ok {
		return 1
	}
	cfg = redactConfig(cfg)

	if err := c.emit(*format, cfg, func(w io.Writer) {
		printResolvedConfig(w, cfg)
	}); err != nil {
		fmt.Fprintf(c.stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func redactConfig(cfg config.Config) config.Config {
	if cfg.API.StaticToken != "" {
		cfg.API.StaticToken = redacted
	}
	if cfg.API.JWTSecret != "" {
		cfg.API.JWTSecret = redacted
	}
	return cfg
}

func printResolvedConfig(out io.Writer, cfg config.Config) {
	fmt.Fprintf(out, "min_keysize: %d\n", cfg.MinKeySize)
	fmt.Fprintf(out, "max_keysize: %d\n", cfg.MaxKeySize)
	fmt.Fprintf(out, "candidates: %d\n", cfg.Candidates)
	fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
	fmt.Fprintf(out, "encoding: %s\n", cfg.Encoding)
	fmt.Fprintf(out, "history_path: %s\n", cfg.HistoryPath)
	fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
	fmt.Fprintf(out, "audit_log: %s\n", cfg.AuditLog)
	fmt.Fprintln(out, "api:")
	fmt.Fprintf(out, "  addr: %s\n", cfg.API.Addr)
	fmt.Fprintf(out, "  static_token: %s\n", cfg.API.StaticToken)
	fmt.Fprintf(out, "  jwt_secret: %s\n", cfg.API.JWTSecret)
	fmt.Fprintf(out, "  jwt_issuer: %s\n", cfg.API.JWTIssuer)
	fmt.Fprintf(out, "  token_ttl: %s\n", cfg.API.TokenTTL.Round(time.Second))
}
