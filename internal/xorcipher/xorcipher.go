// Package xorcipher applies byte keys to data with XOR. The same call
// encrypts and decrypts.
package xorcipher

import (
	"fmt"

	"github.com/RowanDark/xorbreak/internal/cryptoerr"
)

// Apply XORs data with key, cycling the key when it is shorter than data.
// Output byte i is data[i] ^ key[i%len(key)].
func Apply(data, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty key", cryptoerr.ErrInvalidArgument)
	}
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out, nil
}

// Fixed XORs two equal-length operands. Keys never repeat here.
func Fixed(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d bytes vs %d bytes", cryptoerr.ErrLengthMismatch, len(a), len(b))
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out, nil
}

// SingleByte XORs every byte of src with k into dst. dst must be at least
// len(src) bytes; it may alias src.
func SingleByte(dst, src []byte, k byte) {
	for i, b := range src {
		dst[i] = b ^ k
	}
}
