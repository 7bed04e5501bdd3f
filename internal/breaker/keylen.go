package breaker

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/RowanDark/xorbreak/internal/cryptoerr"
)

// HammingDistance counts the differing bits between two equal-length inputs.
func HammingDistance(a, b []byte) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d bytes vs %d bytes", cryptoerr.ErrLengthMismatch, len(a), len(b))
	}
	d := 0
	for i := range a {
		d += bits.OnesCount8(a[i] ^ b[i])
	}
	return d, nil
}

// EstimateKeyLength returns the key length in [minLen, maxLen] whose blocks
// are closest to each other in normalised Hamming distance. For each length
// k the first sampleBlocks blocks of k bytes are compared in disjoint pairs
// (0,1), (2,3), ... and the per-pair distances divided by k are averaged.
//
// maxLen is lowered to len(ciphertext)/sampleBlocks so every sampled block is
// complete. Ties keep the shorter length.
func EstimateKeyLength(ciphertext []byte, minLen, maxLen, sampleBlocks int) (KeyLengthEstimate, error) {
	ranked, err := RankKeyLengths(ciphertext, minLen, maxLen, sampleBlocks)
	if err != nil {
		return KeyLengthEstimate{}, err
	}
	return ranked[0], nil
}

// RankKeyLengths scores every candidate length like EstimateKeyLength and
// returns them ordered by distance, then length.
func RankKeyLengths(ciphertext []byte, minLen, maxLen, sampleBlocks int) ([]KeyLengthEstimate, error) {
	if sampleBlocks < 2 || sampleBlocks%2 != 0 {
		return nil, fmt.Errorf("%w: sample blocks must be a positive even number, got %d", cryptoerr.ErrInvalidArgument, sampleBlocks)
	}
	if minLen < 1 {
		return nil, fmt.Errorf("%w: minimum key length must be at least 1, got %d", cryptoerr.ErrInvalidArgument, minLen)
	}
	if maxLen < minLen {
		return nil, fmt.Errorf("%w: empty key length range [%d, %d]", cryptoerr.ErrInvalidArgument, minLen, maxLen)
	}
	if limit := len(ciphertext) / sampleBlocks; maxLen > limit {
		maxLen = limit
	}
	if maxLen < minLen {
		return nil, fmt.Errorf("%w: %d bytes is too short for %d blocks of length %d",
			cryptoerr.ErrInvalidArgument, len(ciphertext), sampleBlocks, minLen)
	}

	out := make([]KeyLengthEstimate, 0, maxLen-minLen+1)
	for k := minLen; k <= maxLen; k++ {
		out = append(out, KeyLengthEstimate{Length: k, Distance: normalizedDistance(ciphertext, k, sampleBlocks)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})
	return out, nil
}

func normalizedDistance(ciphertext []byte, k, sampleBlocks int) float64 {
	var total float64
	pairs := sampleBlocks / 2
	for p := 0; p < pairs; p++ {
		a := ciphertext[2*p*k : (2*p+1)*k]
		b := ciphertext[(2*p+1)*k : (2*p+2)*k]
		d, _ := HammingDistance(a, b)
		total += float64(d) / float64(k)
	}
	return total / float64(pairs)
}
