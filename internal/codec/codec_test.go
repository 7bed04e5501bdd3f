package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/RowanDark/xorbreak/internal/cryptoerr"
)

func TestBytesToBase64Padding(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"one byte", []byte{0x4d}, "TQ=="},
		{"two bytes", []byte{0x4d, 0x61}, "TWE="},
		{"three bytes", []byte("Man"), "TWFu"},
		{"four bytes", []byte("defg"), "ZGVmZw=="},
		{"all ones", []byte{0xff, 0xff, 0xff}, "////"},
		{"zeros", []byte{0, 0}, "AAA="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BytesToBase64(tt.input)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
			if len(got)%4 != 0 {
				t.Errorf("output length %d is not a multiple of 4", len(got))
			}
		})
	}
}

func TestBytesToBase64Empty(t *testing.T) {
	if _, err := BytesToBase64(nil); !errors.Is(err, cryptoerr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestHexToBase64KnownVector(t *testing.T) {
	in := "49276d206b696c6c696e6720796f757220627261696e206c696b65206120706f69736f6e6f7573206d757368726f6f6d"
	want := "SSdtIGtpbGxpbmcgeW91ciBicmFpbiBsaWtlIGEgcG9pc29ub3VzIG11c2hyb29t"

	got, err := HexToBase64(in)
	if err != nil {
		t.Fatalf("HexToBase64: %v", err)
	}
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	back, err := Base64ToHex(got)
	if err != nil {
		t.Fatalf("Base64ToHex: %v", err)
	}
	if back != in {
		t.Fatalf("expected %q, got %q", in, back)
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{0x00},
		{0xff, 0x00},
		[]byte("Man"),
		[]byte("Hello, World!"),
		[]byte("I'm killing your brain like a poisonous mushroom"),
	}
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	inputs = append(inputs, all)
	for n := 1; n <= 7; n++ {
		inputs = append(inputs, bytes.Repeat([]byte{0xa5}, n))
	}

	for _, in := range inputs {
		hex := BytesToHex(in)
		if len(hex) != 2*len(in) {
			t.Fatalf("hex length %d, want %d", len(hex), 2*len(in))
		}
		fromHex, err := HexToBytes(hex)
		if err != nil {
			t.Fatalf("HexToBytes(%q): %v", hex, err)
		}
		if !bytes.Equal(fromHex, in) {
			t.Fatalf("hex round trip: expected %x, got %x", in, fromHex)
		}

		b64, err := BytesToBase64(in)
		if err != nil {
			t.Fatalf("BytesToBase64(%x): %v", in, err)
		}
		fromB64, err := Base64ToBytes(b64)
		if err != nil {
			t.Fatalf("Base64ToBytes(%q): %v", b64, err)
		}
		if !bytes.Equal(fromB64, in) {
			t.Fatalf("base64 round trip: expected %x, got %x", in, fromB64)
		}
	}
}

func TestBytesToHexLowercase(t *testing.T) {
	if got := BytesToHex([]byte{0x0a, 0xbc, 0xff}); got != "0abcff" {
		t.Fatalf("expected %q, got %q", "0abcff", got)
	}
}

func TestHexToBytesAcceptsUppercase(t *testing.T) {
	got, err := HexToBytes("0ABCff")
	if err != nil {
		t.Fatalf("HexToBytes: %v", err)
	}
	if !bytes.Equal(got, []byte{0x0a, 0xbc, 0xff}) {
		t.Fatalf("unexpected bytes %x", got)
	}
}

func TestInvalidEncodings(t *testing.T) {
	tests := []struct {
		name   string
		decode func() error
	}{
		{"odd hex", func() error { _, err := HexToBytes("abc"); return err }},
		{"non-hex char", func() error { _, err := HexToBytes("zz"); return err }},
		{"base64 length", func() error { _, err := Base64ToBytes("TWF"); return err }},
		{"base64 alphabet", func() error { _, err := Base64ToBytes("TW!u"); return err }},
		{"padding in middle", func() error { _, err := Base64ToBytes("TQ==TWFu"); return err }},
		{"padding too early", func() error { _, err := Base64ToBytes("T==="); return err }},
		{"padding gap", func() error { _, err := Base64ToBytes("TW=u"); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.decode(); !errors.Is(err, cryptoerr.ErrInvalidEncoding) {
				t.Fatalf("expected ErrInvalidEncoding, got %v", err)
			}
		})
	}
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
		want   []byte
	}{
		{"hex", "4d616e", FormatHex, []byte("Man")},
		{"base64", "TWFu\n", FormatBase64, []byte("Man")},
		{"padded base64", "TQ==", FormatBase64, []byte{0x4d}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, format, err := DecodeText(tt.input)
			if err != nil {
				t.Fatalf("DecodeText: %v", err)
			}
			if format != tt.format {
				t.Errorf("expected format %s, got %s", tt.format, format)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("expected %x, got %x", tt.want, got)
			}
		})
	}

	if _, _, err := DecodeText("   "); !errors.Is(err, cryptoerr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for blank input, got %v", err)
	}
	if _, _, err := DecodeText("not*encoded"); !errors.Is(err, cryptoerr.ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding, got %v", err)
	}
}
