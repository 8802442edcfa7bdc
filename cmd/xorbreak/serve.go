package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/RowanDark/xorbreak/internal/api"
	"github.com/RowanDark/xorbreak/internal/logging"
	"github.com/RowanDark/xorbreak/internal/observability/tracing"
)

func (c *cli) runServe(args []string) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return 1
	}
	fs := c.flagSet("serve")
	addr := fs.String("addr", cfg.API.Addr, "listen address")
	noHistory := fs.Bool("no-history", false, "do not store results")
	traceFile := fs.String("trace-file", "", "write finished spans as JSON lines to this file")
	traceRatio := fs.Float64("trace-ratio", 1, "fraction of requests traced when -trace-file is set")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(c.stderr, "serve takes no arguments")
		return 2
	}
	if strings.TrimSpace(cfg.API.StaticToken) == "" || strings.TrimSpace(cfg.API.JWTSecret) == "" {
		fmt.Fprintln(c.stderr, "api.static_token and api.jwt_secret must be set (XORBREAK_API_TOKEN, XORBREAK_JWT_SECRET)")
		return 1
	}

	sess, err := c.openSession(cfg, !*noHistory)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	defer sess.Close()

	audit := sess.audit.WithComponent("api")
	if strings.TrimSpace(cfg.AuditLog) == "" {
		audit, err = logging.NewAuditLogger("api", logging.WithWriter(c.stderr), logging.WithoutStderr())
		if err != nil {
			fmt.Fprintf(c.stderr, "open audit log: %v\n", err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ratio := 0.0
	if *traceFile != "" {
		ratio = *traceRatio
	}
	shutdown, err := tracing.Setup(ctx, tracing.Config{ServiceName: productName, SampleRatio: ratio, FilePath: *traceFile})
	if err != nil {
		fmt.Fprintf(c.stderr, "setup tracing: %v\n", err)
		return 1
	}
	defer func() { _ = shutdown(context.Background()) }()

	srv, err := api.NewServer(api.Config{
		Addr:            *addr,
		StaticToken:     cfg.API.StaticToken,
		JWTSecret:       []byte(cfg.API.JWTSecret),
		JWTIssuer:       cfg.API.JWTIssuer,
		DefaultTokenTTL: cfg.API.TokenTTL,
		Encoding:        cfg.Encoding,
		MinKeySize:      cfg.MinKeySize,
		MaxKeySize:      cfg.MaxKeySize,
		Candidates:      cfg.Candidates,
		Workers:         cfg.Workers,
		History:         sess.history,
		Audit:           audit,
		Log:             sess.log.With("component", "api"),
	})
	if err != nil {
		fmt.Fprintf(c.stderr, "configure api: %v\n", err)
		return 1
	}
	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(c.stderr, "api server: %v\n", err)
		return 1
	}
	return 0
}
