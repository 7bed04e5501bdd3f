package breaker

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RowanDark/xorbreak/internal/cryptoerr"
	"github.com/RowanDark/xorbreak/internal/score"
	"github.com/RowanDark/xorbreak/internal/xorcipher"
)

const (
	cookingHex = "1b37373331363f78151b7f2b783431333d78397828372d363c78373e783a393b3736"
	iceHex     = "0b3637272a2b2e63622c2e69692a23693a2a3c6324202d623d63343c2a26226324272765272" +
		"a282b2f20430a652e2c652a3124333a653e2b2027630c692b20283165286326302e27282f"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return b
}

func loadProse(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "prose.txt"))
	if err != nil {
		t.Fatalf("read prose: %v", err)
	}
	return data
}

func TestBreakSingleByteKnownVector(t *testing.T) {
	res, err := BreakSingleByte(context.Background(), mustHex(t, cookingHex))
	if err != nil {
		t.Fatalf("BreakSingleByte: %v", err)
	}
	if res.Key != 0x58 {
		t.Fatalf("expected key 0x58, got 0x%02x", res.Key)
	}
	if string(res.Plaintext) != "Cooking MC's like a pound of bacon" {
		t.Fatalf("unexpected plaintext %q", res.Plaintext)
	}
	if res.Score != 15 {
		t.Fatalf("expected score 15, got %v", res.Score)
	}
}

func TestBreakSingleByteChiSquared(t *testing.T) {
	res, err := BreakSingleByte(context.Background(), mustHex(t, cookingHex), WithScorer(score.NewChiSquaredScorer(true)))
	if err != nil {
		t.Fatalf("BreakSingleByte: %v", err)
	}
	if res.Key != 0x58 {
		t.Fatalf("expected key 0x58, got 0x%02x", res.Key)
	}
}

func TestBreakSingleByteTiesKeepLowestKey(t *testing.T) {
	constant := score.Func(func([]byte) float64 { return 1 })
	for _, workers := range []int{1, 3, 16} {
		res, err := BreakSingleByte(context.Background(), []byte("abc"), WithScorer(constant), WithWorkers(workers))
		if err != nil {
			t.Fatalf("BreakSingleByte: %v", err)
		}
		if res.Key != 0 {
			t.Fatalf("workers=%d: expected key 0 on ties, got 0x%02x", workers, res.Key)
		}
		if string(res.Plaintext) != "abc" {
			t.Fatalf("workers=%d: unexpected plaintext %q", workers, res.Plaintext)
		}
	}
}

func TestBreakSingleByteWorkersMatchSequential(t *testing.T) {
	ct := mustHex(t, cookingHex)
	want, err := BreakSingleByte(context.Background(), ct)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	for _, workers := range []int{2, 5, 300} {
		got, err := BreakSingleByte(context.Background(), ct, WithWorkers(workers))
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if got.Key != want.Key || got.Score != want.Score || !bytes.Equal(got.Plaintext, want.Plaintext) {
			t.Fatalf("workers=%d: expected %v, got %v", workers, want, got)
		}
	}
}

func TestBreakSingleByteErrors(t *testing.T) {
	if _, err := BreakSingleByte(context.Background(), nil); !errors.Is(err, cryptoerr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := BreakSingleByte(ctx, []byte("abc")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHammingDistance(t *testing.T) {
	d, err := HammingDistance([]byte("this is a test"), []byte("wokka wokka!!!"))
	if err != nil {
		t.Fatalf("HammingDistance: %v", err)
	}
	if d != 37 {
		t.Fatalf("expected 37, got %d", d)
	}

	if d, _ := HammingDistance(nil, nil); d != 0 {
		t.Fatalf("expected 0 for empty inputs, got %d", d)
	}
	if _, err := HammingDistance([]byte("a"), []byte("ab")); !errors.Is(err, cryptoerr.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestEstimateKeyLength(t *testing.T) {
	est, err := EstimateKeyLength(mustHex(t, iceHex), 2, 40, 10)
	if err != nil {
		t.Fatalf("EstimateKeyLength: %v", err)
	}
	if est.Length != 3 {
		t.Fatalf("expected length 3, got %d", est.Length)
	}
	if math.Abs(est.Distance-2.4) > 1e-9 {
		t.Fatalf("expected distance 2.4, got %v", est.Distance)
	}
}

func TestEstimateKeyLengthTiesKeepShortest(t *testing.T) {
	est, err := EstimateKeyLength(bytes.Repeat([]byte{0x41}, 100), 2, 10, 4)
	if err != nil {
		t.Fatalf("EstimateKeyLength: %v", err)
	}
	if est.Length != 2 || est.Distance != 0 {
		t.Fatalf("expected length 2 at distance 0, got %v", est)
	}
}

func TestEstimateKeyLengthErrors(t *testing.T) {
	ct := make([]byte, 64)
	tests := []struct {
		name                 string
		data                 []byte
		min, max, sampleSize int
	}{
		{"odd sample blocks", ct, 2, 8, 3},
		{"zero sample blocks", ct, 2, 8, 0},
		{"zero min", ct, 0, 8, 4},
		{"inverted range", ct, 8, 2, 4},
		{"too short", ct[:10], 4, 8, 4},
		{"empty", nil, 2, 8, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EstimateKeyLength(tt.data, tt.min, tt.max, tt.sampleSize); !errors.Is(err, cryptoerr.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestRankKeyLengths(t *testing.T) {
	ranked, err := RankKeyLengths(mustHex(t, iceHex), 2, 40, 10)
	if err != nil {
		t.Fatalf("RankKeyLengths: %v", err)
	}
	// 74 bytes over 10 blocks caps lengths at 7.
	if len(ranked) != 6 {
		t.Fatalf("expected 6 candidates, got %d", len(ranked))
	}
	if ranked[0].Length != 3 {
		t.Fatalf("expected length 3 first, got %v", ranked[0])
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Distance < ranked[i-1].Distance {
			t.Fatalf("candidates out of order at %d: %v", i, ranked)
		}
	}
}

func TestTranspose(t *testing.T) {
	cols := Transpose([]byte("abcdefg"), 3)
	want := []string{"adg", "be", "cf"}
	if len(cols) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(cols))
	}
	for i := range want {
		if string(cols[i]) != want[i] {
			t.Fatalf("column %d: expected %q, got %q", i, want[i], cols[i])
		}
	}
	if Transpose([]byte("abc"), 0) != nil {
		t.Fatalf("expected nil for zero columns")
	}
}

func TestBreakRepeatingKeyICE(t *testing.T) {
	ct := mustHex(t, iceHex)
	for _, strict := range []bool{false, true} {
		res, err := BreakRepeatingKey(context.Background(), ct, WithScorer(score.NewRankScorer(0, strict)))
		if err != nil {
			t.Fatalf("BreakRepeatingKey: %v", err)
		}
		if string(res.Key) != "ICE" {
			t.Fatalf("strict=%v: expected key ICE, got %q", strict, res.Key)
		}
		if !strings.HasPrefix(string(res.Plaintext), "Burning 'em") {
			t.Fatalf("unexpected plaintext %q", res.Plaintext)
		}
		if len(res.ColumnScores) != 3 {
			t.Fatalf("expected 3 column scores, got %d", len(res.ColumnScores))
		}
	}
}

func TestBreakRepeatingKeyProse(t *testing.T) {
	prose := loadProse(t)

	tests := []struct {
		name string
		key  string
		opts []Option
	}{
		{"short key", "secret", nil},
		{"long key strict rank", "Terminator X: Bring the noise", []Option{WithScorer(score.NewRankScorer(0, true))}},
		{"long key chi-squared", "Terminator X: Bring the noise", []Option{WithScorer(score.NewChiSquaredScorer(true))}},
		{"parallel columns", "secret", []Option{WithWorkers(4)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := xorcipher.Apply(prose, []byte(tt.key))
			if err != nil {
				t.Fatalf("encrypt: %v", err)
			}
			res, err := BreakRepeatingKey(context.Background(), ct, tt.opts...)
			if err != nil {
				t.Fatalf("BreakRepeatingKey: %v", err)
			}
			if string(res.Key) != tt.key {
				t.Fatalf("expected key %q, got %q", tt.key, res.Key)
			}
			if !bytes.Equal(res.Plaintext, prose) {
				t.Fatalf("plaintext does not match")
			}
		})
	}
}

func TestBreakRepeatingKeyForcedLength(t *testing.T) {
	res, err := BreakRepeatingKey(context.Background(), mustHex(t, iceHex), WithKeyLength(3))
	if err != nil {
		t.Fatalf("BreakRepeatingKey: %v", err)
	}
	if string(res.Key) != "ICE" || res.KeyLength.Length != 3 {
		t.Fatalf("unexpected result %v", res)
	}

	if _, err := BreakRepeatingKey(context.Background(), []byte("ab"), WithKeyLength(5)); !errors.Is(err, cryptoerr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for oversized key length, got %v", err)
	}
}

func TestBreakRepeatingKeyErrors(t *testing.T) {
	if _, err := BreakRepeatingKey(context.Background(), nil); !errors.Is(err, cryptoerr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty input, got %v", err)
	}
	if _, err := BreakRepeatingKey(context.Background(), []byte("short")); !errors.Is(err, cryptoerr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for short input, got %v", err)
	}
}

func TestDetectSingleByte(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "detect_lines.txt"))
	if err != nil {
		t.Fatalf("read lines: %v", err)
	}
	var lines [][]byte
	for _, l := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		lines = append(lines, mustHex(t, strings.TrimSpace(l)))
	}

	det, err := DetectSingleByte(context.Background(), lines)
	if err != nil {
		t.Fatalf("DetectSingleByte: %v", err)
	}
	if det.Line != 7 {
		t.Fatalf("expected line 7, got %d", det.Line)
	}
	if det.Result.Key != 0x35 {
		t.Fatalf("expected key 0x35, got 0x%02x", det.Result.Key)
	}
	if string(det.Result.Plaintext) != "Now that the party is jumping\n" {
		t.Fatalf("unexpected plaintext %q", det.Result.Plaintext)
	}
}

func TestDetectSingleByteNoLines(t *testing.T) {
	if _, err := DetectSingleByte(context.Background(), [][]byte{{}, nil}); !errors.Is(err, cryptoerr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestHasIdenticalBlocks(t *testing.T) {
	block := []byte("YELLOW SUBMARINE")
	repeated := append(append(append([]byte{}, block...), []byte("0123456789abcdef")...), block...)

	tests := []struct {
		name  string
		data  []byte
		size  int
		want  bool
		count int
	}{
		{"repeated block", repeated, 16, true, 1},
		{"distinct blocks", []byte("0123456789abcdefYELLOW SUBMARINE"), 16, false, 0},
		{"misaligned repeat", append([]byte("x"), repeated...), 16, false, 0},
		{"partial trailing block", []byte("abcab"), 3, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HasIdenticalBlocks(tt.data, tt.size)
			if err != nil {
				t.Fatalf("HasIdenticalBlocks: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if c := CountIdenticalBlocks(tt.data, tt.size); c != tt.count {
				t.Fatalf("expected count %d, got %d", tt.count, c)
			}
		})
	}

	if _, err := HasIdenticalBlocks([]byte("abc"), 0); !errors.Is(err, cryptoerr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestResultString(t *testing.T) {
	r := SingleByteResult{Key: 0x58, Score: 15, Plaintext: []byte("hi")}
	if got := r.String(); got != `key=0x58 score=15 plaintext="hi"` {
		t.Fatalf("unexpected string %q", got)
	}
	r.Plaintext = []byte{0x00, 0xff}
	if got := r.String(); !strings.HasSuffix(got, "plaintext=0x00ff") {
		t.Fatalf("expected hex fallback, got %q", got)
	}
}
