package xorcrack

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
)

const (
	// DefaultMinKeySize and DefaultMaxKeySize bound the repeating-key search.
	DefaultMinKeySize = 2
	DefaultMaxKeySize = 40
	// DefaultCandidates is how many key sizes survive estimation.
	DefaultCandidates = 10
)

// Option configures the parallel and estimation entry points.
type Option func(*options) error

type options struct {
	minKeySize int
	maxKeySize int
	candidates int
	workers    int
	logger     *slog.Logger
}

func defaultOptions() *options {
	return &options{
		minKeySize: DefaultMinKeySize,
		maxKeySize: DefaultMaxKeySize,
		candidates: DefaultCandidates,
		workers:    runtime.GOMAXPROCS(0),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func buildOptions(opts []Option) (*options, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// WithKeySizeRange sets the inclusive key size window searched by
// EstimateKeySizes.
func WithKeySizeRange(min, max int) Option {
	return func(o *options) error {
		if min < 1 || max < min {
			return fmt.Errorf("%w: range [%d,%d]", ErrInvalidKeySize, min, max)
		}
		o.minKeySize = min
		o.maxKeySize = max
		return nil
	}
}

// WithCandidates sets how many ranked key sizes are kept.
func WithCandidates(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("candidates must be positive, got %d", n)
		}
		o.candidates = n
		return nil
	}
}

// WithWorkers sets the number of goroutines used for parallel trials.
func WithWorkers(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("workers must be positive, got %d", n)
		}
		o.workers = n
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}
