package breaker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/RowanDark/xorbreak/internal/cryptoerr"
)

// DetectSingleByte breaks every non-empty line as single-byte XOR and
// returns the line whose best plaintext scores highest. Earlier lines win
// ties.
func DetectSingleByte(ctx context.Context, lines [][]byte, opts ...Option) (Detection, error) {
	o := applyOptions(opts)

	best := Detection{Line: -1}
	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		r, err := breakSingle(ctx, line, o.scorer, o.workers)
		if err != nil {
			return Detection{}, err
		}
		if best.Line < 0 || r.Score > best.Result.Score {
			best = Detection{Line: i, Result: r}
		}
	}
	if best.Line < 0 {
		return Detection{}, fmt.Errorf("%w: no non-empty lines", cryptoerr.ErrInvalidArgument)
	}
	return best, nil
}

// HasIdenticalBlocks reports whether data contains two equal blocks of
// blockSize bytes at block-aligned offsets. A trailing partial block is
// ignored.
func HasIdenticalBlocks(data []byte, blockSize int) (bool, error) {
	if blockSize < 1 {
		return false, fmt.Errorf("%w: block size must be positive, got %d", cryptoerr.ErrInvalidArgument, blockSize)
	}
	n := len(data) / blockSize
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		block := data[i*blockSize : (i+1)*blockSize]
		if _, ok := seen[string(block)]; ok {
			return true, nil
		}
		seen[string(block)] = struct{}{}
	}
	return false, nil
}

// CountIdenticalBlocks returns how many aligned blocks repeat an earlier one.
func CountIdenticalBlocks(data []byte, blockSize int) int {
	if blockSize < 1 {
		return 0
	}
	count := 0
	for i := blockSize; i+blockSize <= len(data); i += blockSize {
		for j := 0; j < i; j += blockSize {
			if bytes.Equal(data[i:i+blockSize], data[j:j+blockSize]) {
				count++
				break
			}
		}
	}
	return count
}
