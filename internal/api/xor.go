package api

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RowanDark/xorbreak/internal/cipher"
	"github.com/RowanDark/xorbreak/internal/history"
	"github.com/RowanDark/xorbreak/internal/logging"
	"github.com/RowanDark/xorbreak/internal/observability/metrics"
	"github.com/RowanDark/xorbreak/internal/observability/tracing"
	"github.com/RowanDark/xorbreak/internal/xorcrack"
)

const modeKeySizes = "keysizes"

// SingleRequest cracks one single-byte XOR ciphertext.
type SingleRequest struct {
	Input    string `json:"input"`
	Encoding string `json:"encoding,omitempty"`
}

// DetectRequest finds the single-byte XOR line among Lines.
type DetectRequest struct {
	Lines    []string `json:"lines"`
	Encoding string   `json:"encoding,omitempty"`
}

// RepeatingRequest cracks a repeating-key XOR ciphertext or ranks its key
// sizes. Zero numeric fields fall back to the server defaults.
type RepeatingRequest struct {
	Input      string `json:"input"`
	Encoding   string `json:"encoding,omitempty"`
	MinKeySize int    `json:"min_keysize,omitempty"`
	MaxKeySize int    `json:"max_keysize,omitempty"`
	Candidates int    `json:"candidates,omitempty"`
}

// CandidateResponse is a recovered single-byte key and plaintext.
type CandidateResponse struct {
	ID        string `json:"id,omitempty"`
	Key       int    `json:"key"`
	KeyHex    string `json:"key_hex"`
	Score     int    `json:"score"`
	Plaintext string `json:"plaintext"`
}

// DetectResponse reports the winning line of a batch.
type DetectResponse struct {
	CandidateResponse
	Line    int `json:"line"`
	Skipped int `json:"skipped"`
}

// TrialResponse is one key size tried by the repeating-key cracker.
type TrialResponse struct {
	KeySize  int     `json:"key_size"`
	Distance float64 `json:"distance"`
	KeyHex   string  `json:"key_hex,omitempty"`
	Score    int     `json:"score"`
	Error    string  `json:"error,omitempty"`
}

// RepeatingResponse is a recovered repeating key and plaintext.
type RepeatingResponse struct {
	ID        string          `json:"id,omitempty"`
	KeyHex    string          `json:"key_hex"`
	Key       string          `json:"key"`
	KeySize   int             `json:"key_size"`
	Score     int             `json:"score"`
	Plaintext string          `json:"plaintext"`
	Trials    []TrialResponse `json:"trials"`
}

// KeySizesResponse lists ranked key sizes, likeliest first.
type KeySizesResponse struct {
	Candidates []xorcrack.KeySizeCandidate `json:"candidates"`
}

func (s *Server) handleXORSingle(w http.ResponseWriter, r *http.Request) {
	var req SingleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		http.Error(w, "input field is required", http.StatusBadRequest)
		return
	}

	ctx, done := s.beginCrack(r.Context(), history.ModeSingle)
	ciphertext, err := s.decodeInput(req.Input, req.Encoding)
	if err != nil {
		done(err, nil)
		s.writeError(w, err)
		return
	}
	c := xorcrack.CrackSingle(ciphertext)
	rec := s.save(ctx, history.Record{
		Mode:        history.ModeSingle,
		InputSHA256: history.HashInput(ciphertext),
		KeyHex:      hex.EncodeToString([]byte{c.Key}),
		KeySize:     1,
		Score:       c.Score,
		Plaintext:   c.Text(),
	})
	done(nil, map[string]any{"key": int(c.Key), "score": c.Score, "history_id": rec.ID})
	s.writeJSON(w, http.StatusOK, candidateResponse(rec.ID, c))
}

func (s *Server) handleXORDetect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Lines) == 0 {
		http.Error(w, "lines field is required", http.StatusBadRequest)
		return
	}
	decode, err := s.decoder(req.Encoding)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx, done := s.beginCrack(r.Context(), history.ModeDetect)
	det, err := xorcrack.DetectEncoded(ctx, req.Lines, decode, s.crackOptions(0, 0, 0)...)
	metrics.RecordDecodeSkipped(history.ModeDetect, det.Skipped)
	if det.Skipped > 0 {
		_ = s.audit.Emit(logging.AuditEvent{
			EventType: logging.EventDecodeSkipped,
			RequestID: RequestIDFromContext(ctx),
			Decision:  logging.DecisionInfo,
			Metadata:  map[string]any{"mode": history.ModeDetect, "skipped": det.Skipped, "lines": len(req.Lines)},
		})
	}
	if err != nil {
		done(err, map[string]any{"skipped": det.Skipped})
		s.writeError(w, err)
		return
	}

	rec := s.save(ctx, history.Record{
		Mode:        history.ModeDetect,
		InputSHA256: history.HashInput([]byte(strings.Join(req.Lines, "\n"))),
		KeyHex:      hex.EncodeToString([]byte{det.Key}),
		KeySize:     1,
		Score:       det.Score,
		Plaintext:   det.Text(),
	})
	done(nil, map[string]any{"line": det.Line, "key": int(det.Key), "score": det.Score, "skipped": det.Skipped})
	s.writeJSON(w, http.StatusOK, DetectResponse{
		CandidateResponse: candidateResponse(rec.ID, det.Candidate),
		Line:              det.Line,
		Skipped:           det.Skipped,
	})
}

func (s *Server) handleXORRepeating(w http.ResponseWriter, r *http.Request) {
	var req RepeatingRequest
	if !decodeRepeating(w, r, &req) {
		return
	}

	ctx, done := s.beginCrack(r.Context(), history.ModeRepeating)
	ciphertext, err := s.decodeInput(req.Input, req.Encoding)
	if err != nil {
		done(err, nil)
		s.writeError(w, err)
		return
	}
	res, err := xorcrack.CrackRepeating(ctx, ciphertext, s.crackOptions(req.MinKeySize, req.MaxKeySize, req.Candidates)...)
	metrics.RecordKeySizeTrials(res.Trials)
	if err != nil {
		done(err, nil)
		s.writeError(w, err)
		return
	}

	keyHex := hex.EncodeToString(res.Key)
	rec := s.save(ctx, history.Record{
		Mode:        history.ModeRepeating,
		InputSHA256: history.HashInput(ciphertext),
		KeyHex:      keyHex,
		KeySize:     res.KeySize,
		Score:       res.Score,
		Plaintext:   res.Text(),
	})
	done(nil, map[string]any{"key_size": res.KeySize, "score": res.Score, "trials": len(res.Trials), "history_id": rec.ID})

	trials := make([]TrialResponse, 0, len(res.Trials))
	for _, t := range res.Trials {
		trials = append(trials, TrialResponse{
			KeySize:  t.KeySize,
			Distance: t.Distance,
			KeyHex:   hex.EncodeToString(t.Key),
			Score:    t.Score,
			Error:    t.Err,
		})
	}
	s.writeJSON(w, http.StatusOK, RepeatingResponse{
		ID:        rec.ID,
		KeyHex:    keyHex,
		Key:       strings.ToValidUTF8(string(res.Key), "\uFFFD"),
		KeySize:   res.KeySize,
		Score:     res.Score,
		Plaintext: res.Text(),
		Trials:    trials,
	})
}

func (s *Server) handleXORKeySizes(w http.ResponseWriter, r *http.Request) {
	var req RepeatingRequest
	if !decodeRepeating(w, r, &req) {
		return
	}

	_, done := s.beginCrack(r.Context(), modeKeySizes)
	ciphertext, err := s.decodeInput(req.Input, req.Encoding)
	if err != nil {
		done(err, nil)
		s.writeError(w, err)
		return
	}
	cands, err := xorcrack.EstimateKeySizes(ciphertext, s.crackOptions(req.MinKeySize, req.MaxKeySize, req.Candidates)...)
	if err != nil {
		done(err, nil)
		s.writeError(w, err)
		return
	}
	done(nil, map[string]any{"sizes": xorcrack.KeySizes(cands)})
	s.writeJSON(w, http.StatusOK, KeySizesResponse{Candidates: cands})
}

func decodeRepeating(w http.ResponseWriter, r *http.Request, req *RepeatingRequest) bool {
	if !decodeJSON(w, r, req) {
		return false
	}
	if strings.TrimSpace(req.Input) == "" {
		http.Error(w, "input field is required", http.StatusBadRequest)
		return false
	}
	if req.MinKeySize < 0 || req.MaxKeySize < 0 || req.Candidates < 0 {
		http.Error(w, "min_keysize, max_keysize and candidates must not be negative", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history is disabled", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	opts := history.ListOptions{Mode: q.Get("mode"), InputSHA256: q.Get("input_sha256")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		opts.Limit = limit
	}
	recs, err := s.history.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if recs == nil {
		recs = []history.Record{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": recs})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history is disabled", http.StatusServiceUnavailable)
		return
	}
	rec, err := s.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

var auditEvents = map[string]logging.EventType{
	history.ModeSingle:    logging.EventCrackSingle,
	history.ModeDetect:    logging.EventCrackDetect,
	history.ModeRepeating: logging.EventCrackRepeating,
	modeKeySizes:          logging.EventKeySizes,
}

// beginCrack opens a span and in-flight gauge for one crack. The returned
// function closes both, records latency and writes the audit event.
func (s *Server) beginCrack(ctx context.Context, mode string) (context.Context, func(error, map[string]any)) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "xorbreak."+mode, map[string]any{"xorbreak.mode": mode})
	release := metrics.TrackInFlight(mode)
	return ctx, func(err error, meta map[string]any) {
		release()
		for k, v := range meta {
			span.SetAttribute("xorbreak."+k, v)
		}
		span.End(err)
		metrics.RecordCrack(ctx, mode, time.Since(start), err)

		if meta == nil {
			meta = map[string]any{}
		}
		if traceID := span.TraceID(); traceID != "" {
			meta["trace_id"] = traceID
		}
		if claims, ok := ClaimsFromContext(ctx); ok {
			meta["subject"] = claims.Subject
		}
		event := logging.AuditEvent{
			EventType: auditEvents[mode],
			RequestID: RequestIDFromContext(ctx),
			Decision:  logging.DecisionAllow,
			Metadata:  meta,
		}
		if err != nil {
			event.Decision = logging.DecisionDeny
			event.Reason = err.Error()
		}
		_ = s.audit.Emit(event)
	}
}

// decoder resolves a request encoding. Unknown encodings count as decode
// failures.
func (s *Server) decoder(encoding string) (xorcrack.DecodeFunc, error) {
	if encoding == "" {
		encoding = s.cfg.Encoding
	}
	decode, err := cipher.Decoder(encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", xorcrack.ErrDecode, err)
	}
	return decode, nil
}

func (s *Server) decodeInput(input, encoding string) ([]byte, error) {
	decode, err := s.decoder(encoding)
	if err != nil {
		return nil, err
	}
	return decode(input)
}

func (s *Server) crackOptions(minSize, maxSize, candidates int) []xorcrack.Option {
	if minSize == 0 {
		minSize = s.cfg.MinKeySize
	}
	if maxSize == 0 {
		maxSize = s.cfg.MaxKeySize
	}
	if candidates == 0 {
		candidates = s.cfg.Candidates
	}
	var opts []xorcrack.Option
	if minSize != 0 || maxSize != 0 {
		if minSize == 0 {
			minSize = xorcrack.DefaultMinKeySize
		}
		if maxSize == 0 {
			maxSize = xorcrack.DefaultMaxKeySize
		}
		opts = append(opts, xorcrack.WithKeySizeRange(minSize, maxSize))
	}
	if candidates != 0 {
		opts = append(opts, xorcrack.WithCandidates(candidates))
	}
	if s.cfg.Workers > 0 {
		opts = append(opts, xorcrack.WithWorkers(s.cfg.Workers))
	}
	return append(opts, xorcrack.WithLogger(s.log))
}

func (s *Server) save(ctx context.Context, rec history.Record) history.Record {
	if s.history == nil {
		return rec
	}
	saved, err := s.history.Save(ctx, rec)
	if err != nil {
		s.log.Warn("store result", slog.String("mode", rec.Mode), slog.Any("error", err))
		return rec
	}
	return saved
}

func candidateResponse(id string, c xorcrack.Candidate) CandidateResponse {
	return CandidateResponse{
		ID:        id,
		Key:       int(c.Key),
		KeyHex:    hex.EncodeToString([]byte{c.Key}),
		Score:     c.Score,
		Plaintext: c.Text(),
	}
}
