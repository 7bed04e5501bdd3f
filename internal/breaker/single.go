// Package breaker recovers keys from XOR ciphertexts without knowing the
// plaintext. Every search is deterministic: when candidates tie, the one
// examined first (lowest key byte, shortest key length) wins.
package breaker

import (
	"context"
	"fmt"
	"sync"

	"github.com/RowanDark/xorbreak/internal/cryptoerr"
	"github.com/RowanDark/xorbreak/internal/score"
	"github.com/RowanDark/xorbreak/internal/xorcipher"
)

// BreakSingleByte tries all 256 single-byte keys against ciphertext and
// returns the one whose plaintext scores highest.
func BreakSingleByte(ctx context.Context, ciphertext []byte, opts ...Option) (SingleByteResult, error) {
	if len(ciphertext) == 0 {
		return SingleByteResult{}, fmt.Errorf("%w: empty ciphertext", cryptoerr.ErrInvalidArgument)
	}
	o := applyOptions(opts)
	return breakSingle(ctx, ciphertext, o.scorer, o.workers)
}

func breakSingle(ctx context.Context, ciphertext []byte, scorer score.Scorer, workers int) (SingleByteResult, error) {
	if workers <= 1 {
		return scanKeys(ctx, ciphertext, scorer, 0, 256)
	}
	if workers > 256 {
		workers = 256
	}

	results := make([]SingleByteResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * 256 / workers
		hi := (w + 1) * 256 / workers
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			results[w], errs[w] = scanKeys(ctx, ciphertext, scorer, lo, hi)
		}(w, lo, hi)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return SingleByteResult{}, err
		}
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Score > best.Score {
			best = r
		}
	}
	return best, nil
}

// scanKeys scores keys lo..hi-1 in ascending order. Only a strictly higher
// score replaces the current best.
func scanKeys(ctx context.Context, ciphertext []byte, scorer score.Scorer, lo, hi int) (SingleByteResult, error) {
	buf := make([]byte, len(ciphertext))
	var best SingleByteResult
	for k := lo; k < hi; k++ {
		if err := ctx.Err(); err != nil {
			return SingleByteResult{}, err
		}
		xorcipher.SingleByte(buf, ciphertext, byte(k))
		s := scorer.Score(buf)
		if k == lo || s > best.Score {
			best.Key = byte(k)
			best.Score = s
			best.Plaintext = append(best.Plaintext[:0], buf...)
		}
	}
	return best, nil
}
