// Package api exposes the XOR cracker over an authenticated JSON API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/RowanDark/xorbreak/internal/cipher"
	"github.com/RowanDark/xorbreak/internal/history"
	"github.com/RowanDark/xorbreak/internal/logging"
	"github.com/RowanDark/xorbreak/internal/observability/metrics"
	"github.com/RowanDark/xorbreak/internal/xorcrack"
)

const (
	staticTokenHeader = "X-Xorbreak-Token"
	requestIDHeader   = "X-Request-ID"
	maxBodyBytes      = 8 << 20
	shutdownTimeout   = 5 * time.Second
)

// Config configures the REST API server.
type Config struct {
	Addr            string
	StaticToken     string
	JWTSecret       []byte
	JWTIssuer       string
	DefaultTokenTTL time.Duration

	// Crack defaults applied when a request leaves a field unset.
	Encoding   string
	MinKeySize int
	MaxKeySize int
	Candidates int
	Workers    int

	History *history.Store
	Audit   *logging.AuditLogger
	Log     *slog.Logger
}

// Server exposes the cracking endpoints.
type Server struct {
	cfg           Config
	authenticator *Authenticator
	staticToken   string
	history       *history.Store
	audit         *logging.AuditLogger
	log           *slog.Logger
}

// NewServer constructs a REST API server using the provided configuration.
func NewServer(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("api address must be provided")
	}
	staticToken := strings.TrimSpace(cfg.StaticToken)
	if staticToken == "" {
		return nil, errors.New("static management token is required")
	}
	auth, err := NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.DefaultTokenTTL)
	if err != nil {
		return nil, err
	}
	if cfg.Encoding == "" {
		cfg.Encoding = cipher.EncodingHex
	}
	if _, err := cipher.Decoder(cfg.Encoding); err != nil {
		return nil, err
	}
	audit := cfg.Audit
	if audit == nil {
		audit = logging.NopAuditLogger()
	}
	log := cfg.Log
	if log == nil {
		log = logging.NewLogger(io.Discard, slog.LevelInfo, "api")
	}
	return &Server{
		cfg:           cfg,
		authenticator: auth,
		staticToken:   staticToken,
		history:       cfg.History,
		audit:         audit,
		log:           log,
	}, nil
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET /healthz", false, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	s.route(mux, "GET /metrics", false, metrics.Handler())
	s.route(mux, "POST /api/v1/tokens", false, http.HandlerFunc(s.handleTokenIssue))

	s.route(mux, "GET /api/v1/cipher/operations", true, http.HandlerFunc(s.handleCipherListOperations))
	s.route(mux, "POST /api/v1/cipher/execute", true, http.HandlerFunc(s.handleCipherExecute))
	s.route(mux, "POST /api/v1/cipher/detect", true, http.HandlerFunc(s.handleCipherDetect))

	s.route(mux, "POST /api/v1/xor/single", true, http.HandlerFunc(s.handleXORSingle))
	s.route(mux, "POST /api/v1/xor/detect", true, http.HandlerFunc(s.handleXORDetect))
	s.route(mux, "POST /api/v1/xor/repeating", true, http.HandlerFunc(s.handleXORRepeating))
	s.route(mux, "POST /api/v1/xor/keysizes", true, http.HandlerFunc(s.handleXORKeySizes))

	s.route(mux, "GET /api/v1/history", true, http.HandlerFunc(s.handleHistoryList))
	s.route(mux, "GET /api/v1/history/{id}", true, http.HandlerFunc(s.handleHistoryGet))
	return mux
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts HTTP/1.1 and cleartext HTTP/2 connections on ln until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.lifecycle("started", ln.Addr().String())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	err := g.Wait()
	s.lifecycle("stopped", ln.Addr().String())
	return err
}

func (s *Server) lifecycle(state, addr string) {
	s.log.Info("api server "+state, slog.String("addr", addr))
	_ = s.audit.Emit(logging.AuditEvent{
		EventType: logging.EventServerState,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"state": state, "addr": addr},
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

// RequestIDFromContext returns the id assigned to the current request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) route(mux *http.ServeMux, pattern string, auth bool, next http.Handler) {
	if auth {
		next = s.requireJWT(next)
	}
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.RecordHTTPRequest(pattern, rec.status)
		_ = s.audit.Emit(logging.AuditEvent{
			EventType: logging.EventAPIRequest,
			RequestID: id,
			Decision:  logging.DecisionInfo,
			Metadata: map[string]any{
				"route":       pattern,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
			},
		})
	}))
}

func (s *Server) handleTokenIssue(w http.ResponseWriter, r *http.Request) {
	if token := strings.TrimSpace(r.Header.Get(staticTokenHeader)); token != s.staticToken {
		s.denyAuth(r, "static token mismatch")
		http.Error(w, "unauthorised", http.StatusUnauthorized)
		return
	}
	var req struct {
		Subject    string  `json:"subject"`
		Audience   string  `json:"audience"`
		TTLSeconds float64 `json:"ttl_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	ttl := time.Duration(req.TTLSeconds * float64(time.Second))
	token, expires, err := s.authenticator.Mint(req.Subject, req.Audience, ttl)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_ = s.audit.Emit(logging.AuditEvent{
		EventType: logging.EventTokenIssued,
		RequestID: RequestIDFromContext(r.Context()),
		Decision:  logging.DecisionAllow,
		Metadata:  map[string]any{"subject": req.Subject, "expires_at": expires.Format(time.RFC3339)},
	})
	s.writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}

func (s *Server) requireJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			s.denyAuth(r, "missing bearer token")
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := s.authenticator.Validate(authHeader[7:])
		if err != nil {
			s.denyAuth(r, err.Error())
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithClaims(r.Context(), claims)))
	})
}

func (s *Server) denyAuth(r *http.Request, reason string) {
	_ = s.audit.Emit(logging.AuditEvent{
		EventType: logging.EventAPIAuthDenied,
		RequestID: RequestIDFromContext(r.Context()),
		Decision:  logging.DecisionDeny,
		Reason:    reason,
		Metadata:  map[string]any{"path": r.URL.Path},
	})
}

// errorResponse is the body of every JSON error reply.
type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps cracker and codec failures onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, xorcrack.ErrDecode),
		errors.Is(err, xorcrack.ErrInsufficientData),
		errors.Is(err, xorcrack.ErrLengthMismatch),
		errors.Is(err, xorcrack.ErrNoCandidate),
		errors.Is(err, xorcrack.ErrInvalidKeySize):
		return http.StatusUnprocessableEntity
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("encode response", slog.Any("error", err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}
