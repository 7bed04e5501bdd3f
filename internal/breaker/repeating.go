package breaker

import (
	"context"
	"fmt"
	"sync"

	"github.com/RowanDark/xorbreak/internal/cryptoerr"
	"github.com/RowanDark/xorbreak/internal/xorcipher"
)

// Transpose splits data into n columns where column i holds every byte at an
// offset congruent to i modulo n. Trailing columns may be one byte shorter.
func Transpose(data []byte, n int) [][]byte {
	if n < 1 {
		return nil
	}
	cols := make([][]byte, n)
	for i := range cols {
		cols[i] = make([]byte, 0, len(data)/n+1)
	}
	for i, b := range data {
		cols[i%n] = append(cols[i%n], b)
	}
	return cols
}

// BreakRepeatingKey recovers a repeating XOR key. The key length comes from
// EstimateKeyLength unless WithKeyLength forces one; each key byte is then
// recovered by breaking the matching transposed column as single-byte XOR.
func BreakRepeatingKey(ctx context.Context, ciphertext []byte, opts ...Option) (RepeatingKeyResult, error) {
	if len(ciphertext) == 0 {
		return RepeatingKeyResult{}, fmt.Errorf("%w: empty ciphertext", cryptoerr.ErrInvalidArgument)
	}
	o := applyOptions(opts)

	var est KeyLengthEstimate
	switch {
	case o.keyLength > 0:
		if o.keyLength > len(ciphertext) {
			return RepeatingKeyResult{}, fmt.Errorf("%w: key length %d exceeds ciphertext length %d",
				cryptoerr.ErrInvalidArgument, o.keyLength, len(ciphertext))
		}
		est = KeyLengthEstimate{Length: o.keyLength}
		if len(ciphertext) >= 2*o.keyLength {
			est.Distance = normalizedDistance(ciphertext, o.keyLength, 2)
		}
	case o.keyLength < 0:
		return RepeatingKeyResult{}, fmt.Errorf("%w: negative key length %d", cryptoerr.ErrInvalidArgument, o.keyLength)
	default:
		var err error
		est, err = EstimateKeyLength(ciphertext, o.minLen, o.maxLen, o.sampleBlocks)
		if err != nil {
			return RepeatingKeyResult{}, err
		}
	}

	cols := Transpose(ciphertext, est.Length)
	colResults := make([]SingleByteResult, len(cols))
	if err := breakColumns(ctx, cols, colResults, o); err != nil {
		return RepeatingKeyResult{}, err
	}

	key := make([]byte, len(cols))
	colScores := make([]float64, len(cols))
	for i, r := range colResults {
		key[i] = r.Key
		colScores[i] = r.Score
	}
	plaintext, err := xorcipher.Apply(ciphertext, key)
	if err != nil {
		return RepeatingKeyResult{}, err
	}
	return RepeatingKeyResult{
		Key:          key,
		Score:        o.scorer.Score(plaintext),
		Plaintext:    plaintext,
		KeyLength:    est,
		ColumnScores: colScores,
	}, nil
}

func breakColumns(ctx context.Context, cols [][]byte, out []SingleByteResult, o options) error {
	if o.workers <= 1 {
		for i, col := range cols {
			r, err := breakSingle(ctx, col, o.scorer, 1)
			if err != nil {
				return err
			}
			out[i] = r
		}
		return nil
	}

	jobs := make(chan int)
	errs := make([]error, len(cols))
	var wg sync.WaitGroup
	for w := 0; w < o.workers && w < len(cols); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i], errs[i] = breakSingle(ctx, cols[i], o.scorer, 1)
			}
		}()
	}
	for i := range cols {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
