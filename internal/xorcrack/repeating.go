package xorcrack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/RowanDark/xorbreak/internal/workers"
)

var errEmptyColumn = errors.New("key size leaves an empty column")

// Trial is the outcome of cracking the ciphertext under one key size.
type Trial struct {
	KeySize  int     `json:"key_size"`
	Distance float64 `json:"distance"`
	Key      []byte  `json:"key"`
	Score    int     `json:"score"`
	Err      string  `json:"error,omitempty"`
}

// Result is the recovered plaintext and key of a repeating-key XOR ciphertext.
type Result struct {
	Plaintext []byte  `json:"plaintext"`
	Key       []byte  `json:"key"`
	Score     int     `json:"score"`
	KeySize   int     `json:"key_size"`
	Trials    []Trial `json:"trials"`
}

// Text renders the plaintext, replacing invalid UTF-8 with U+FFFD.
func (r Result) Text() string {
	return Candidate{Plaintext: r.Plaintext}.Text()
}

// CrackKeySize recovers the best key of exactly keySize bytes by cracking each
// transposed column with CrackSingle. The returned score is the sum of the
// column scores.
func CrackKeySize(ciphertext []byte, keySize int) ([]byte, int, error) {
	cols, err := Transpose(ciphertext, keySize)
	if err != nil {
		return nil, 0, err
	}
	key := make([]byte, keySize)
	total := 0
	for j, col := range cols {
		if len(col) == 0 {
			return nil, 0, fmt.Errorf("%w: size %d column %d", errEmptyColumn, keySize, j)
		}
		c := CrackSingle(col)
		key[j] = c.Key
		total += c.Score
	}
	return key, total, nil
}

// CrackRepeating breaks a repeating-key XOR ciphertext. It ranks key sizes
// with EstimateKeySizes, cracks every candidate size in parallel, keeps the
// key with the highest total score and decrypts with it. Ties go to the
// candidate ranked first by distance.
func CrackRepeating(ctx context.Context, ciphertext []byte, opts ...Option) (Result, error) {
	cfg, err := buildOptions(opts)
	if err != nil {
		return Result{}, err
	}

	sizes, err := estimateKeySizes(ciphertext, cfg)
	if err != nil {
		return Result{}, err
	}

	tasks := make([]workers.Task[Trial], len(sizes))
	for i, cand := range sizes {
		tasks[i] = func(context.Context) (Trial, error) {
			key, score, err := CrackKeySize(ciphertext, cand.Size)
			if err != nil {
				return Trial{KeySize: cand.Size, Distance: cand.Distance}, err
			}
			return Trial{KeySize: cand.Size, Distance: cand.Distance, Key: key, Score: score}, nil
		}
	}

	results := workers.Run(ctx, cfg.workers, tasks)

	trials := make([]Trial, 0, len(results))
	var (
		best  Trial
		found bool
	)
	for _, res := range results {
		trial := res.Value
		if res.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			trial.KeySize = sizes[res.Index].Size
			trial.Distance = sizes[res.Index].Distance
			trial.Err = res.Err.Error()
			trials = append(trials, trial)
			cfg.logger.Debug("key size trial failed", slog.Int("key_size", trial.KeySize), slog.Any("error", res.Err))
			continue
		}
		trials = append(trials, trial)
		cfg.logger.Debug("key size trial",
			slog.Int("key_size", trial.KeySize), slog.Int("score", trial.Score))
		if !found || trial.Score > best.Score {
			best = trial
			found = true
		}
	}
	if !found {
		return Result{Trials: trials}, ErrNoCandidate
	}

	return Result{
		Plaintext: RepeatingXOR(ciphertext, best.Key),
		Key:       best.Key,
		Score:     best.Score,
		KeySize:   best.KeySize,
		Trials:    trials,
	}, nil
}
