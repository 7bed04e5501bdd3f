package cipher

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/RowanDark/xorbreak/internal/codec"
	"github.com/RowanDark/xorbreak/internal/cryptoerr"
)

var (
	hexPattern    = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
)

// SmartDetector tells hex ciphertext text from base64 ciphertext text
type SmartDetector struct{}

// NewSmartDetector creates a new smart detector
func NewSmartDetector() *SmartDetector {
	return &SmartDetector{}
}

// Detect returns every plausible encoding of input, most confident first.
// Line breaks are ignored so wrapped base64 files are recognised.
func (d *SmartDetector) Detect(ctx context.Context, input []byte) ([]DetectionResult, error) {
	text := string(joinLines(input))
	if text == "" {
		return nil, fmt.Errorf("%w: empty input", cryptoerr.ErrInvalidArgument)
	}

	results := []DetectionResult{}
	results = append(results, d.detectHex(text)...)
	results = append(results, d.detectBase64(text)...)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results, nil
}

// SupportedEncodings returns the encodings this detector can identify
func (d *SmartDetector) SupportedEncodings() []string {
	return []string{string(codec.FormatHex), string(codec.FormatBase64)}
}

// Best returns the most confident detection.
func (d *SmartDetector) Best(ctx context.Context, input []byte) (DetectionResult, error) {
	results, err := d.Detect(ctx, input)
	if err != nil {
		return DetectionResult{}, err
	}
	if len(results) == 0 {
		return DetectionResult{}, fmt.Errorf("%w: input is neither hex nor base64", cryptoerr.ErrInvalidEncoding)
	}
	return results[0], nil
}

func (d *SmartDetector) detectHex(text string) []DetectionResult {
	if !hexPattern.MatchString(text) {
		return nil
	}
	if len(text)%2 != 0 {
		return []DetectionResult{{
			Encoding:   string(codec.FormatHex),
			Confidence: 0.3,
			Reasoning:  "Hexadecimal digits but odd length",
			Operation:  "hex_decode",
		}}
	}
	return []DetectionResult{{
		Encoding:   string(codec.FormatHex),
		Confidence: 0.95,
		Reasoning:  fmt.Sprintf("Only hexadecimal digits, %d bytes", len(text)/2),
		Operation:  "hex_decode",
	}}
}

func (d *SmartDetector) detectBase64(text string) []DetectionResult {
	if !base64Pattern.MatchString(text) || len(text)%4 != 0 {
		return nil
	}
	decoded, err := codec.Base64ToBytes(text)
	if err != nil {
		return nil
	}

	confidence := 0.9
	reasoning := fmt.Sprintf("Decodes as padded Base64, %d bytes", len(decoded))
	if hexPattern.MatchString(text) {
		// Hex digits are a subset of the Base64 alphabet.
		confidence = 0.5
		reasoning += "; also valid hex"
	}
	if e := calculateEntropy(decoded); e > 0 {
		reasoning += fmt.Sprintf(", entropy %.2f bits/byte", e)
	}
	return []DetectionResult{{
		Encoding:   string(codec.FormatBase64),
		Confidence: confidence,
		Reasoning:  reasoning,
		Operation:  "base64_decode",
	}}
}

// calculateEntropy calculates the Shannon entropy of data in bits per byte
func calculateEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var freq [256]int
	for _, b := range data {
		freq[b]++
	}

	entropy := 0.0
	n := float64(len(data))
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// DecodeCiphertext detects the encoding of input and decodes it with the
// matching registered operation.
func DecodeCiphertext(ctx context.Context, input []byte) ([]byte, DetectionResult, error) {
	best, err := NewSmartDetector().Best(ctx, input)
	if err != nil {
		return nil, DetectionResult{}, err
	}
	op, ok := GetOperation(best.Operation)
	if !ok {
		return nil, best, fmt.Errorf("decoder %s is not registered", best.Operation)
	}
	data, err := op.Execute(ctx, joinLines(input), nil)
	if err != nil {
		return nil, best, err
	}
	return data, best, nil
}
