// Package input reads ciphertext files for the command line tools.
package input

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/RowanDark/xorbreak/internal/cipher"
	"github.com/RowanDark/xorbreak/internal/codec"
)

// Read returns the contents of path, or of stdin when path is empty or "-".
func Read(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		if stdin == nil {
			return nil, fmt.Errorf("no input: stdin unavailable")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Lines splits data on newlines, removing carriage returns and surrounding
// spaces. Blank lines stay as empty entries so indices match the file; a
// final newline does not add an entry.
func Lines(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	raw := bytes.Split(data, []byte{'\n'})
	if len(raw[len(raw)-1]) == 0 {
		raw = raw[:len(raw)-1]
	}
	out := make([][]byte, len(raw))
	for i, line := range raw {
		out[i] = bytes.TrimSpace(line)
	}
	return out
}

// HexLines decodes one hex ciphertext per line. Blank lines decode to empty
// entries.
func HexLines(data []byte) ([][]byte, error) {
	lines := Lines(data)
	out := make([][]byte, len(lines))
	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		b, err := codec.HexToBytes(string(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out[i] = b
	}
	return out, nil
}

// Ciphertext decodes a single ciphertext written as hex or base64, possibly
// wrapped across lines, and reports which encoding it used.
func Ciphertext(ctx context.Context, data []byte) ([]byte, codec.Format, error) {
	decoded, det, err := cipher.DecodeCiphertext(ctx, data)
	if err != nil {
		return nil, "", err
	}
	return decoded, codec.Format(det.Encoding), nil
}
