// Package codec transcodes between raw bytes, hexadecimal and base64 text
// using explicit bit manipulation over 4-bit and 6-bit windows.
package codec

import (
	"fmt"
	"strings"

	"github.com/RowanDark/xorbreak/internal/cryptoerr"
)

// Format names a textual encoding of a byte sequence.
type Format string

const (
	FormatHex    Format = "hex"
	FormatBase64 Format = "base64"
)

// HexToBase64 re-encodes hex text as base64.
func HexToBase64(hex string) (string, error) {
	data, err := HexToBytes(hex)
	if err != nil {
		return "", err
	}
	return BytesToBase64(data)
}

// Base64ToHex re-encodes base64 text as hex.
func Base64ToHex(b64 string) (string, error) {
	data, err := Base64ToBytes(b64)
	if err != nil {
		return "", err
	}
	return BytesToHex(data), nil
}

// Decode converts text in the given format to bytes.
func Decode(format Format, text string) ([]byte, error) {
	switch format {
	case FormatHex:
		return HexToBytes(text)
	case FormatBase64:
		return Base64ToBytes(text)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", cryptoerr.ErrInvalidArgument, format)
	}
}

// Encode renders data in the given format.
func Encode(format Format, data []byte) (string, error) {
	switch format {
	case FormatHex:
		return BytesToHex(data), nil
	case FormatBase64:
		return BytesToBase64(data)
	default:
		return "", fmt.Errorf("%w: unknown format %q", cryptoerr.ErrInvalidArgument, format)
	}
}

// Sniff guesses the format of ciphertext text. Hex wins when the text is valid
// as both, since every even-length hex string of length 4n is also base64.
func Sniff(text string) (Format, bool) {
	text = strings.TrimSpace(text)
	switch {
	case IsHex(text):
		return FormatHex, true
	case IsBase64(text):
		return FormatBase64, true
	}
	return "", false
}

// DecodeText sniffs the format of text and decodes it.
func DecodeText(text string) ([]byte, Format, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "", fmt.Errorf("%w: empty input", cryptoerr.ErrInvalidArgument)
	}
	format, ok := Sniff(text)
	if !ok {
		return nil, "", fmt.Errorf("%w: input is neither hex nor base64", cryptoerr.ErrInvalidEncoding)
	}
	data, err := Decode(format, text)
	if err != nil {
		return nil, "", err
	}
	return data, format, nil
}
