package xorcipher

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/RowanDark/xorbreak/internal/cryptoerr"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return b
}

func TestFixedKnownVector(t *testing.T) {
	a := mustHex(t, "1c0111001f010100061a024b53535009181c")
	b := mustHex(t, "686974207468652062756c6c277320657965")
	want := mustHex(t, "746865206b696420646f6e277420706c6179")

	got, err := Fixed(a, b)
	if err != nil {
		t.Fatalf("Fixed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected %x, got %x", want, got)
	}
}

func TestFixedLengthMismatch(t *testing.T) {
	if _, err := Fixed([]byte{1, 2}, []byte{1}); !errors.Is(err, cryptoerr.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestApplyRepeatingKeyVector(t *testing.T) {
	plaintext := []byte("Burning 'em, if you ain't quick and nimble\nI go crazy when I hear a cymbal")
	want := mustHex(t, "0b3637272a2b2e63622c2e69692a23693a2a3c6324202d623d63343c2a26226324272765272"+
		"a282b2f20430a652e2c652a3124333a653e2b2027630c692b20283165286326302e27282f")

	got, err := Apply(plaintext, []byte("ICE"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected %x, got %x", want, got)
	}
}

func TestApplySelfInverse(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		key  []byte
	}{
		{"single byte key", []byte("attack at dawn"), []byte{0x58}},
		{"key longer than data", []byte("hi"), []byte("a much longer key")},
		{"binary data", []byte{0x00, 0xff, 0x10, 0x80}, []byte{0xff, 0x01}},
		{"empty data", []byte{}, []byte("k")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Apply(tt.data, tt.key)
			if err != nil {
				t.Fatalf("encrypt: %v", err)
			}
			dec, err := Apply(enc, tt.key)
			if err != nil {
				t.Fatalf("decrypt: %v", err)
			}
			if !bytes.Equal(dec, tt.data) {
				t.Fatalf("expected %x, got %x", tt.data, dec)
			}
		})
	}
}

func TestApplyEmptyKey(t *testing.T) {
	if _, err := Apply([]byte("data"), nil); !errors.Is(err, cryptoerr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSingleByteInPlace(t *testing.T) {
	buf := []byte("abc")
	SingleByte(buf, buf, 0x20)
	if string(buf) != "ABC" {
		t.Fatalf("expected ABC, got %q", buf)
	}
}
