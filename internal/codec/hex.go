package codec

import (
	"fmt"

	"github.com/RowanDark/xorbreak/internal/cryptoerr"
)

const hexDigits = "0123456789abcdef"

// BytesToHex renders every byte as two lowercase hex digits.
func BytesToHex(data []byte) string {
	out := make([]byte, 2*len(data))
	for i, b := range data {
		out[2*i] = hexDigits[b>>4]
		out[2*i+1] = hexDigits[b&0x0f]
	}
	return string(out)
}

// HexToBytes decodes a hex string. Upper and lower case digits are accepted.
func HexToBytes(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: hex length %d is odd", cryptoerr.ErrInvalidEncoding, len(s))
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, ok := hexNibble(s[2*i])
		if !ok {
			return nil, fmt.Errorf("%w: invalid hex character %q at offset %d", cryptoerr.ErrInvalidEncoding, s[2*i], 2*i)
		}
		lo, ok := hexNibble(s[2*i+1])
		if !ok {
			return nil, fmt.Errorf("%w: invalid hex character %q at offset %d", cryptoerr.ErrInvalidEncoding, s[2*i+1], 2*i+1)
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// IsHex reports whether s is non-empty, even length and only hex digits.
func IsHex(s string) bool {
	if len(s) == 0 || len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if _, ok := hexNibble(s[i]); !ok {
			return false
		}
	}
	return true
}
