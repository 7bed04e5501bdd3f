package breaker

import (
	"encoding/hex"
	"fmt"

	"github.com/RowanDark/xorbreak/internal/score"
)

// SingleByteResult is the best single-byte key found for a ciphertext.
type SingleByteResult struct {
	Key       byte
	Score     float64
	Plaintext []byte
}

func (r SingleByteResult) String() string {
	return fmt.Sprintf("key=0x%02x score=%g plaintext=%s", r.Key, r.Score, display(r.Plaintext))
}

// KeyLengthEstimate pairs a candidate key length with its normalised
// Hamming distance. Lower distances are more likely.
type KeyLengthEstimate struct {
	Length   int
	Distance float64
}

func (e KeyLengthEstimate) String() string {
	return fmt.Sprintf("%d (%.4f)", e.Length, e.Distance)
}

// RepeatingKeyResult is the outcome of breaking repeating-key XOR.
type RepeatingKeyResult struct {
	Key       []byte
	Score     float64
	Plaintext []byte
	KeyLength KeyLengthEstimate
	// ColumnScores holds the score of each transposed column's winning key.
	ColumnScores []float64
}

func (r RepeatingKeyResult) String() string {
	return fmt.Sprintf("key=%s length=%d score=%g", display(r.Key), r.KeyLength.Length, r.Score)
}

// Detection identifies the line of a batch most likely to be single-byte XOR.
type Detection struct {
	Line   int
	Result SingleByteResult
}

func (d Detection) String() string {
	return fmt.Sprintf("line=%d %s", d.Line, d.Result)
}

// display quotes printable text and falls back to hex otherwise.
func display(b []byte) string {
	if score.Printable(b) {
		return fmt.Sprintf("%q", b)
	}
	return "0x" + hex.EncodeToString(b)
}
