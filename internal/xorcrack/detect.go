package xorcrack

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/RowanDark/xorbreak/internal/workers"
)

// Detection is the line of a batch that decrypts best under a single-byte key.
type Detection struct {
	Candidate
	// Line is the zero-based index of the winning line in the input.
	Line int `json:"line"`
	// Skipped counts lines dropped because they failed to decode.
	Skipped int `json:"skipped"`
}

// Detect cracks every line with CrackSingle in parallel and returns the line
// whose best candidate scores highest. Ties go to the earliest line.
func Detect(ctx context.Context, lines [][]byte, opts ...Option) (Detection, error) {
	cfg, err := buildOptions(opts)
	if err != nil {
		return Detection{}, err
	}
	return detect(ctx, lines, nil, cfg)
}

// DetectEncoded decodes each line with decode before cracking. Lines that fail
// to decode are skipped; ErrNoCandidate is returned only when nothing is left.
func DetectEncoded(ctx context.Context, lines []string, decode DecodeFunc, opts ...Option) (Detection, error) {
	cfg, err := buildOptions(opts)
	if err != nil {
		return Detection{}, err
	}
	if decode == nil {
		return Detection{}, fmt.Errorf("%w: nil decoder", ErrDecode)
	}

	raw := make([][]byte, 0, len(lines))
	index := make([]int, 0, len(lines))
	skipped := 0
	for i, line := range lines {
		buf, err := decode(line)
		if err != nil {
			skipped++
			cfg.logger.Debug("skipping undecodable line", slog.Int("line", i), slog.Any("error", err))
			continue
		}
		raw = append(raw, buf)
		index = append(index, i)
	}

	det, err := detect(ctx, raw, index, cfg)
	det.Skipped = skipped
	return det, err
}

func detect(ctx context.Context, lines [][]byte, index []int, cfg *options) (Detection, error) {
	if len(lines) == 0 {
		return Detection{}, ErrNoCandidate
	}

	tasks := make([]workers.Task[Candidate], len(lines))
	for i, line := range lines {
		tasks[i] = func(context.Context) (Candidate, error) {
			return CrackSingle(line), nil
		}
	}

	results := workers.Run(ctx, cfg.workers, tasks)

	var (
		best  Detection
		found bool
	)
	for i, res := range results {
		if res.Err != nil {
			return Detection{}, res.Err
		}
		if !found || res.Value.Score > best.Score {
			line := i
			if index != nil {
				line = index[i]
			}
			best = Detection{Candidate: res.Value, Line: line}
			found = true
		}
	}
	cfg.logger.Debug("detected single-byte xor line",
		slog.Int("line", best.Line), slog.Int("score", best.Score), slog.Int("key", int(best.Key)))
	return best, nil
}
