// Package metrics exposes xorbreak counters and histograms in the Prometheus
// text format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RowanDark/xorbreak/internal/observability/tracing"
	"github.com/RowanDark/xorbreak/internal/xorcrack"
)

type collector interface {
	write(sb *strings.Builder)
}

type counterVec struct {
	name   string
	help   string
	labels []string

	mu     sync.RWMutex
	values map[string]float64
}

type gaugeVec struct {
	name   string
	help   string
	labels []string

	mu     sync.RWMutex
	values map[string]float64
}

type histogramVec struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.RWMutex
	values map[string]*histogramValue
}

type histogramValue struct {
	counts   []uint64
	sum      float64
	total    uint64
	exemplar *metricExemplar
}

type metricExemplar struct {
	traceID string
	value   float64
}

var (
	crackRequests = newCounterVec("xorbreak_crack_requests_total", "Number of crack operations started.", []string{"mode"})
	crackErrors   = newCounterVec("xorbreak_crack_errors_total", "Number of crack operations that failed.", []string{"mode", "reason"})
	crackLatency  = newHistogramVec("xorbreak_crack_duration_seconds", "Time spent in crack operations.", []string{"mode"})
	crackInFlight = newGaugeVec("xorbreak_crack_inflight", "Crack operations currently running.", []string{"mode"})
	decodeSkipped = newCounterVec("xorbreak_decode_skipped_total", "Input lines dropped because they failed to decode.", []string{"mode"})
	keySizeTrials = newCounterVec("xorbreak_keysize_trials_total", "Repeating-key trials evaluated, by outcome.", []string{"outcome"})
	httpRequests  = newCounterVec("xorbreak_http_requests_total", "HTTP API requests served.", []string{"route", "code"})

	collectors = []collector{crackRequests, crackErrors, crackLatency, crackInFlight, decodeSkipped, keySizeTrials, httpRequests}

	totalCracks uint64
)

func newCounterVec(name, help string, labels []string) *counterVec {
	return &counterVec{name: name, help: help, labels: labels, values: make(map[string]float64)}
}

func newGaugeVec(name, help string, labels []string) *gaugeVec {
	return &gaugeVec{name: name, help: help, labels: labels, values: make(map[string]float64)}
}

// Cracks on long inputs take seconds, so the buckets reach further than a
// request latency histogram would.
func newHistogramVec(name, help string, labels []string) *histogramVec {
	return &histogramVec{
		name:    name,
		help:    help,
		labels:  labels,
		buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		values:  make(map[string]*histogramValue),
	}
}

func labelKey(labels, values []string) string {
	if len(values) != len(labels) {
		panic(fmt.Sprintf("expected %d labels, got %d", len(labels), len(values)))
	}
	return strings.Join(values, "\xff")
}

func (cv *counterVec) add(delta float64, values ...string) {
	key := labelKey(cv.labels, values)
	cv.mu.Lock()
	cv.values[key] += delta
	cv.mu.Unlock()
}

func (cv *counterVec) write(sb *strings.Builder) {
	writeHeader(sb, cv.name, cv.help, "counter")
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	for _, key := range sortedKeys(cv.values) {
		sb.WriteString(cv.name)
		writeLabels(sb, cv.labels, key, "")
		fmt.Fprintf(sb, " %g\n", cv.values[key])
	}
}

func (gv *gaugeVec) add(delta float64, values ...string) {
	key := labelKey(gv.labels, values)
	gv.mu.Lock()
	gv.values[key] += delta
	gv.mu.Unlock()
}

func (gv *gaugeVec) write(sb *strings.Builder) {
	writeHeader(sb, gv.name, gv.help, "gauge")
	gv.mu.RLock()
	defer gv.mu.RUnlock()
	for _, key := range sortedKeys(gv.values) {
		sb.WriteString(gv.name)
		writeLabels(sb, gv.labels, key, "")
		fmt.Fprintf(sb, " %g\n", gv.values[key])
	}
}

func (hv *histogramVec) observe(ctx context.Context, sample float64, values ...string) {
	key := labelKey(hv.labels, values)
	ex := exemplarFromContext(ctx, sample)

	hv.mu.Lock()
	defer hv.mu.Unlock()
	entry, ok := hv.values[key]
	if !ok {
		entry = &histogramValue{counts: make([]uint64, len(hv.buckets)+1)}
		hv.values[key] = entry
	}
	entry.sum += sample
	entry.total++
	i := sort.SearchFloat64s(hv.buckets, sample)
	entry.counts[i]++
	if ex != nil {
		entry.exemplar = ex
	}
}

func (hv *histogramVec) write(sb *strings.Builder) {
	writeHeader(sb, hv.name, hv.help, "histogram")
	hv.mu.RLock()
	defer hv.mu.RUnlock()
	for _, key := range sortedKeys(hv.values) {
		entry := hv.values[key]
		cumulative := uint64(0)
		for i, upper := range hv.buckets {
			cumulative += entry.counts[i]
			sb.WriteString(hv.name + "_bucket")
			writeLabels(sb, hv.labels, key, strconv.FormatFloat(upper, 'g', -1, 64))
			fmt.Fprintf(sb, " %d\n", cumulative)
		}
		cumulative += entry.counts[len(hv.buckets)]
		sb.WriteString(hv.name + "_bucket")
		writeLabels(sb, hv.labels, key, "+Inf")
		fmt.Fprintf(sb, " %d\n", cumulative)

		sb.WriteString(hv.name + "_sum")
		writeLabels(sb, hv.labels, key, "")
		fmt.Fprintf(sb, " %g", entry.sum)
		if entry.exemplar != nil {
			fmt.Fprintf(sb, " # {trace_id=\"%s\"} %g", escapeLabel(entry.exemplar.traceID), entry.exemplar.value)
		}
		sb.WriteString("\n")

		sb.WriteString(hv.name + "_count")
		writeLabels(sb, hv.labels, key, "")
		fmt.Fprintf(sb, " %d\n", entry.total)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeLabels renders {a="x",b="y"}, appending le when it is non-empty.
func writeLabels(sb *strings.Builder, labels []string, key, le string) {
	if len(labels) == 0 && le == "" {
		return
	}
	var parts []string
	if len(labels) > 0 {
		parts = strings.Split(key, "\xff")
	}
	sb.WriteString("{")
	for i, label := range labels {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(sb, "%s=\"%s\"", label, escapeLabel(parts[i]))
	}
	if le != "" {
		if len(labels) > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(sb, "le=\"%s\"", le)
	}
	sb.WriteString("}")
}

func writeHeader(sb *strings.Builder, name, help, metricType string) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, metricType)
}

func exemplarFromContext(ctx context.Context, sample float64) *metricExemplar {
	traceID := tracing.TraceIDFromContext(ctx)
	if traceID == "" {
		return nil
	}
	return &metricExemplar{traceID: traceID, value: sample}
}

func escapeLabel(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\n", "\\n")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}

// Handler serves every collector in the Prometheus text format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var sb strings.Builder
		for _, c := range collectors {
			c.write(&sb)
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(sb.String()))
	})
}

// ErrorReason maps an error onto a low-cardinality label value.
func ErrorReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, xorcrack.ErrDecode):
		return "decode"
	case errors.Is(err, xorcrack.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, xorcrack.ErrNoCandidate):
		return "no_candidate"
	case errors.Is(err, xorcrack.ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, xorcrack.ErrInvalidKeySize):
		return "invalid_key_size"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

// TrackInFlight marks a crack of the given mode as running until the returned
// function is called.
func TrackInFlight(mode string) func() {
	crackInFlight.add(1, mode)
	var once sync.Once
	return func() {
		once.Do(func() { crackInFlight.add(-1, mode) })
	}
}

// RecordCrack counts a finished crack and its latency. A trace id in ctx is
// attached to the latency sample as an exemplar.
func RecordCrack(ctx context.Context, mode string, dur time.Duration, err error) {
	crackRequests.add(1, mode)
	atomic.AddUint64(&totalCracks, 1)
	crackLatency.observe(ctx, dur.Seconds(), mode)
	if err != nil {
		crackErrors.add(1, mode, ErrorReason(err))
	}
}

// RecordDecodeSkipped counts lines dropped by a batch decode.
func RecordDecodeSkipped(mode string, n int) {
	if n <= 0 {
		return
	}
	decodeSkipped.add(float64(n), mode)
}

// RecordKeySizeTrials counts successful and failed repeating-key trials.
func RecordKeySizeTrials(trials []xorcrack.Trial) {
	for _, trial := range trials {
		outcome := "ok"
		if trial.Err != "" {
			outcome = "failed"
		}
		keySizeTrials.add(1, outcome)
	}
}

// RecordHTTPRequest counts an API response by route pattern and status code.
func RecordHTTPRequest(route string, code int) {
	httpRequests.add(1, route, strconv.Itoa(code))
}

// TotalCracks returns the number of crack operations since process start.
func TotalCracks() uint64 {
	return atomic.LoadUint64(&totalCracks)
}
