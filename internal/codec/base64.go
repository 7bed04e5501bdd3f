package codec

import (
	"fmt"

	"github.com/RowanDark/xorbreak/internal/cryptoerr"
)

const (
	base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	padChar        = '='
	invalidIndex   = 0xff
)

// base64Index maps an input character to its 6-bit value, or invalidIndex.
var base64Index = func() [256]byte {
	var idx [256]byte
	for i := range idx {
		idx[i] = invalidIndex
	}
	for i := 0; i < len(base64Alphabet); i++ {
		idx[base64Alphabet[i]] = byte(i)
	}
	return idx
}()

// BytesToBase64 encodes data with the standard alphabet and '=' padding.
//
// Each 3-byte group becomes four 6-bit windows. A trailing group of one or two
// bytes is zero-extended; the characters that would only carry the extension
// are replaced by padding, so one remaining byte yields "xx==" and two yield
// "xxx=".
func BytesToBase64(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: nothing to encode", cryptoerr.ErrInvalidArgument)
	}

	out := make([]byte, 0, (len(data)+2)/3*4)
	for i := 0; i < len(data); i += 3 {
		b0 := data[i]
		out = append(out, base64Alphabet[(b0&0xfc)>>2])

		// low 2 bits of the first byte lead the second window
		window := (b0 & 0x03) << 4
		if i+1 >= len(data) {
			out = append(out, base64Alphabet[window], padChar, padChar)
			break
		}

		b1 := data[i+1]
		window |= (b1 & 0xf0) >> 4
		out = append(out, base64Alphabet[window])

		window = (b1 & 0x0f) << 2
		if i+2 >= len(data) {
			out = append(out, base64Alphabet[window], padChar)
			break
		}

		b2 := data[i+2]
		window |= (b2 & 0xc0) >> 6
		out = append(out, base64Alphabet[window], base64Alphabet[b2&0x3f])
	}
	return string(out), nil
}

// Base64ToBytes decodes standard, padded base64. Padding may only appear in the
// last one or two positions of the final group and is not part of the output.
func Base64ToBytes(s string) ([]byte, error) {
	if len(s)%4 != 0 {
		return nil, fmt.Errorf("%w: base64 length %d is not a multiple of 4", cryptoerr.ErrInvalidEncoding, len(s))
	}
	if len(s) == 0 {
		return []byte{}, nil
	}

	pad := 0
	if s[len(s)-1] == padChar {
		pad++
		if s[len(s)-2] == padChar {
			pad++
		}
	}

	out := make([]byte, 0, len(s)/4*3-pad)
	var group [4]byte
	for i := 0; i < len(s); i += 4 {
		last := i+4 == len(s)
		for j := 0; j < 4; j++ {
			c := s[i+j]
			if c == padChar {
				if !last || j < 4-pad {
					return nil, fmt.Errorf("%w: unexpected padding at offset %d", cryptoerr.ErrInvalidEncoding, i+j)
				}
				group[j] = 0
				continue
			}
			v := base64Index[c]
			if v == invalidIndex {
				return nil, fmt.Errorf("%w: invalid base64 character %q at offset %d", cryptoerr.ErrInvalidEncoding, c, i+j)
			}
			group[j] = v
		}

		out = append(out, group[0]<<2|group[1]>>4)
		if last && pad == 2 {
			break
		}
		out = append(out, group[1]<<4|group[2]>>2)
		if last && pad == 1 {
			break
		}
		out = append(out, group[2]<<6|group[3])
	}
	return out, nil
}

// IsBase64 reports whether s decodes as padded standard base64.
func IsBase64(s string) bool {
	if len(s) == 0 {
		return false
	}
	_, err := Base64ToBytes(s)
	return err == nil
}
