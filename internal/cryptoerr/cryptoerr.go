// Package cryptoerr defines the error kinds shared by the codec, cipher and
// breaker packages. Callers match them with errors.Is; the packages wrap them
// with context using fmt.Errorf.
package cryptoerr

import "errors"

var (
	// ErrInvalidEncoding reports malformed hex or base64 text.
	ErrInvalidEncoding = errors.New("invalid encoding")

	// ErrInvalidArgument reports empty inputs, empty keys and unusable search bounds.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLengthMismatch reports fixed-length XOR operands of unequal length.
	ErrLengthMismatch = errors.New("length mismatch")
)
