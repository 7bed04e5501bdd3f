package main

import (
	"fmt"
	"strconv"

	"github.com/RowanDark/xorbreak/internal/breaker"
	"github.com/RowanDark/xorbreak/internal/codec"
	"github.com/RowanDark/xorbreak/internal/history"
	"github.com/RowanDark/xorbreak/internal/input"
	"github.com/RowanDark/xorbreak/internal/logging"
	"github.com/RowanDark/xorbreak/internal/redact"
	"github.com/RowanDark/xorbreak/internal/score"
)

type breakOutput struct {
	Line         int       `json:"line,omitempty"`
	Encoding     string    `json:"encoding,omitempty"`
	Key          string    `json:"key,omitempty"`
	KeyHex       string    `json:"key_hex"`
	KeyLength    int       `json:"key_length,omitempty"`
	Distance     float64   `json:"distance,omitempty"`
	Score        float64   `json:"score"`
	ColumnScores []float64 `json:"column_scores,omitempty"`
	Plaintext    string    `json:"plaintext"`
	PlaintextHex string    `json:"plaintext_hex"`
}

// keyText shows a key as quoted text when it is printable, always followed
// by its hex form.
func keyText(key []byte) string {
	h := "0x" + codec.BytesToHex(key)
	if len(key) > 0 && score.Printable(key) {
		return fmt.Sprintf("%q (%s)", key, h)
	}
	return h
}

func plainText(b []byte) string {
	if score.Printable(b) {
		return string(b)
	}
	return "0x" + codec.BytesToHex(b)
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'g', 6, 64)
}

func newBreakOutput(key []byte, s float64, plaintext []byte) breakOutput {
	out := breakOutput{
		KeyHex:       codec.BytesToHex(key),
		Score:        s,
		Plaintext:    string(plaintext),
		PlaintextHex: codec.BytesToHex(plaintext),
	}
	if score.Printable(key) {
		out.Key = string(key)
	}
	return out
}

// ciphertext reads and decodes a hex or base64 ciphertext from path.
func (a *app) ciphertext(name, path string) ([]byte, codec.Format, bool) {
	data, err := input.Read(path, a.stdin)
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return nil, "", false
	}
	ct, format, err := input.Ciphertext(a.ctx, data)
	if err != nil {
		a.emit(logging.AuditEvent{
			EventType: logging.EventDecodeFailed,
			Decision:  logging.DecisionDeny,
			Reason:    err.Error(),
			Metadata:  map[string]any{"command": name, "input": redact.Preview(data, 0)},
		})
		fmt.Fprintf(a.stderr, "%s: %v\n", name, err)
		return nil, "", false
	}
	return ct, format, true
}

func (a *app) breakerOptions(name string) ([]breaker.Option, bool) {
	opts, err := a.cfg.BreakerOptions()
	if err != nil {
		fmt.Fprintf(a.stderr, "%s: %v\n", name, err)
		return nil, false
	}
	return opts, true
}

func runSingle(a *app, args []string) int {
	fs := a.flagSet("single")
	in := fs.String("in", "-", "ciphertext file, hex or base64 (- for stdin)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ct, format, ok := a.ciphertext("single", *in)
	if !ok {
		return 1
	}
	opts, ok := a.breakerOptions("single")
	if !ok {
		return 1
	}

	res, err := breaker.BreakSingleByte(a.ctx, ct, opts...)
	if err != nil {
		return a.fail("single", err)
	}

	key := []byte{res.Key}
	a.emit(logging.AuditEvent{
		EventType: logging.EventBreakSingleByte,
		Decision:  logging.DecisionInfo,
		Metadata: map[string]any{
			"ciphertext_len": len(ct),
			"encoding":       string(format),
			"key":            redact.Fingerprint(key),
			"score":          res.Score,
			"plaintext":      res.Plaintext,
		},
	})
	a.record(history.Record{
		Operation: history.OpSingleByte,
		Input:     redact.Preview(ct, 16),
		KeyHex:    codec.BytesToHex(key),
		Score:     res.Score,
		Plaintext: string(res.Plaintext),
	})

	out := newBreakOutput(key, res.Score, res.Plaintext)
	out.Encoding = string(format)
	return a.report(out,
		"key: "+keyText(key),
		"score: "+formatScore(res.Score),
		"plaintext: "+plainText(res.Plaintext),
	)
}

func runDetect(a *app, args []string) int {
	fs := a.flagSet("detect")
	in := fs.String("in", "-", "file with one hex ciphertext per line (- for stdin)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	data, err := input.Read(*in, a.stdin)
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return 1
	}
	lines, err := input.HexLines(data)
	if err != nil {
		return a.fail("detect", err)
	}
	opts, ok := a.breakerOptions("detect")
	if !ok {
		return 1
	}

	det, err := breaker.DetectSingleByte(a.ctx, lines, opts...)
	if err != nil {
		return a.fail("detect", err)
	}

	key := []byte{det.Result.Key}
	lineNo := det.Line + 1
	a.emit(logging.AuditEvent{
		EventType: logging.EventDetectSingleByte,
		Decision:  logging.DecisionInfo,
		Metadata: map[string]any{
			"lines":     len(lines),
			"line":      lineNo,
			"key":       redact.Fingerprint(key),
			"score":     det.Result.Score,
			"plaintext": det.Result.Plaintext,
		},
	})
	a.record(history.Record{
		Operation: history.OpDetect,
		Input:     redact.Preview(lines[det.Line], 16),
		Line:      lineNo,
		KeyHex:    codec.BytesToHex(key),
		Score:     det.Result.Score,
		Plaintext: string(det.Result.Plaintext),
	})

	out := newBreakOutput(key, det.Result.Score, det.Result.Plaintext)
	out.Line = lineNo
	return a.report(out,
		"line: "+strconv.Itoa(lineNo),
		"key: "+keyText(key),
		"score: "+formatScore(det.Result.Score),
		"plaintext: "+plainText(det.Result.Plaintext),
	)
}

func runKeylen(a *app, args []string) int {
	fs := a.flagSet("keylen")
	in := fs.String("in", "-", "ciphertext file, hex or base64 (- for stdin)")
	all := fs.Bool("all", false, "list every candidate length, best first")
	minLen := fs.Int("min", a.cfg.KeyLength.Min, "shortest key length to try")
	maxLen := fs.Int("max", a.cfg.KeyLength.Max, "longest key length to try")
	blocks := fs.Int("blocks", a.cfg.KeyLength.SampleBlocks, "number of key-length blocks to compare (even)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ct, _, ok := a.ciphertext("keylen", *in)
	if !ok {
		return 1
	}

	ranked, err := breaker.RankKeyLengths(ct, *minLen, *maxLen, *blocks)
	if err != nil {
		return a.fail("keylen", err)
	}
	best := ranked[0]

	a.emit(logging.AuditEvent{
		EventType: logging.EventEstimateKeyLength,
		Decision:  logging.DecisionInfo,
		Metadata: map[string]any{
			"ciphertext_len": len(ct),
			"length":         best.Length,
			"distance":       best.Distance,
			"candidates":     len(ranked),
		},
	})
	a.record(history.Record{
		Operation: history.OpKeyLength,
		Input:     redact.Preview(ct, 16),
		KeyLength: best.Length,
		Distance:  best.Distance,
	})

	type estimate struct {
		Length   int     `json:"length"`
		Distance float64 `json:"distance"`
	}
	if !*all {
		return a.report(estimate{best.Length, best.Distance},
			"key length: "+strconv.Itoa(best.Length),
			"distance: "+strconv.FormatFloat(best.Distance, 'f', 4, 64),
		)
	}
	list := make([]estimate, len(ranked))
	lines := make([]string, len(ranked))
	for i, e := range ranked {
		list[i] = estimate{e.Length, e.Distance}
		lines[i] = fmt.Sprintf("%3d  %.4f", e.Length, e.Distance)
	}
	return a.report(list, lines...)
}

func runRepeating(a *app, args []string) int {
	fs := a.flagSet("repeating")
	in := fs.String("in", "-", "ciphertext file, hex or base64 (- for stdin)")
	keyLen := fs.Int("keylen", 0, "use this key length instead of estimating it")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *keyLen < 0 {
		fmt.Fprintln(a.stderr, "--keylen must not be negative")
		return 2
	}
	ct, format, ok := a.ciphertext("repeating", *in)
	if !ok {
		return 1
	}
	opts, ok := a.breakerOptions("repeating")
	if !ok {
		return 1
	}
	opts = append(opts, breaker.WithKeyLength(*keyLen))

	res, err := breaker.BreakRepeatingKey(a.ctx, ct, opts...)
	if err != nil {
		return a.fail("repeating", err)
	}

	a.emit(logging.AuditEvent{
		EventType: logging.EventBreakRepeatingKey,
		Decision:  logging.DecisionInfo,
		Metadata: map[string]any{
			"ciphertext_len": len(ct),
			"encoding":       string(format),
			"key":            redact.Fingerprint(res.Key),
			"key_length":     res.KeyLength.Length,
			"distance":       res.KeyLength.Distance,
			"forced":         *keyLen > 0,
			"score":          res.Score,
			"plaintext":      res.Plaintext,
		},
	})
	a.record(history.Record{
		Operation: history.OpRepeating,
		Input:     redact.Preview(ct, 16),
		KeyHex:    codec.BytesToHex(res.Key),
		KeyLength: res.KeyLength.Length,
		Distance:  res.KeyLength.Distance,
		Score:     res.Score,
		Plaintext: string(res.Plaintext),
	})

	out := newBreakOutput(res.Key, res.Score, res.Plaintext)
	out.Encoding = string(format)
	out.KeyLength = res.KeyLength.Length
	out.Distance = res.KeyLength.Distance
	out.ColumnScores = res.ColumnScores
	return a.report(out,
		"key length: "+strconv.Itoa(res.KeyLength.Length),
		"key: "+keyText(res.Key),
		"score: "+formatScore(res.Score),
		"plaintext: "+plainText(res.Plaintext),
	)
}

func runDetectECB(a *app, args []string) int {
	fs := a.flagSet("detect-ecb")
	in := fs.String("in", "-", "file with one hex ciphertext per line (- for stdin)")
	blockSize := fs.Int("block", 16, "block size in bytes")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *blockSize < 1 {
		fmt.Fprintln(a.stderr, "--block must be positive")
		return 2
	}
	data, err := input.Read(*in, a.stdin)
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return 1
	}
	lines, err := input.HexLines(data)
	if err != nil {
		return a.fail("detect-ecb", err)
	}

	type hit struct {
		Line    int `json:"line"`
		Repeats int `json:"repeats"`
	}
	hits := []hit{}
	var text []string
	for i, line := range lines {
		found, err := breaker.HasIdenticalBlocks(line, *blockSize)
		if err != nil {
			return a.fail("detect-ecb", err)
		}
		if !found {
			continue
		}
		h := hit{Line: i + 1, Repeats: breaker.CountIdenticalBlocks(line, *blockSize)}
		hits = append(hits, h)
		text = append(text, fmt.Sprintf("line %d: %d repeated block(s)", h.Line, h.Repeats))
		a.record(history.Record{
			Operation: history.OpIdentBlocks,
			Input:     redact.Preview(line, 16),
			Line:      h.Line,
		})
	}

	a.emit(logging.AuditEvent{
		EventType: logging.EventDetectBlocks,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"lines": len(lines), "block_size": *blockSize, "matches": len(hits)},
	})
	if len(hits) == 0 {
		text = []string{"no repeated blocks"}
	}
	return a.report(hits, text...)
}
