package cipher

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/RowanDark/xorbreak/internal/cryptoerr"
)

func TestXORRepeatingOperation(t *testing.T) {
	op, _ := GetOperation("xor_repeating")
	ctx := context.Background()

	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{"text key", map[string]interface{}{"key": "ICE"}},
		{"hex key", map[string]interface{}{"key_hex": "494345"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := op.Execute(ctx, []byte("Burning 'em"), tt.params)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if hex.EncodeToString(got) != "0b3637272a2b2e63622c2e" {
				t.Fatalf("unexpected ciphertext %x", got)
			}
		})
	}

	if _, err := op.Execute(ctx, []byte("data"), nil); !errors.Is(err, cryptoerr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument without key, got %v", err)
	}
}

func TestXORFixedOperation(t *testing.T) {
	op, _ := GetOperation("xor_fixed")
	ctx := context.Background()

	a, _ := hex.DecodeString("1c0111001f010100061a024b53535009181c")
	got, err := op.Execute(ctx, a, map[string]interface{}{"with_hex": "686974207468652062756c6c277320657965"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if string(got) != "the kid don't play" {
		t.Fatalf("unexpected output %q", got)
	}

	if _, err := op.Execute(ctx, a, map[string]interface{}{"with_hex": "00"}); !errors.Is(err, cryptoerr.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if _, err := op.Execute(ctx, a, nil); !errors.Is(err, cryptoerr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestBreakOperations(t *testing.T) {
	ctx := context.Background()

	single, _ := GetOperation("break_single_byte")
	ct, _ := hex.DecodeString("1b37373331363f78151b7f2b783431333d78397828372d363c78373e783a393b3736")
	got, err := single.Execute(ctx, ct, nil)
	if err != nil {
		t.Fatalf("break_single_byte: %v", err)
	}
	if string(got) != "Cooking MC's like a pound of bacon" {
		t.Fatalf("unexpected plaintext %q", got)
	}

	// JSON recipes deliver numbers as float64 and flags deliver strings.
	got, err = single.Execute(ctx, ct, map[string]interface{}{"top_n": float64(20), "strict": "true", "workers": "4"})
	if err != nil {
		t.Fatalf("break_single_byte with params: %v", err)
	}
	if string(got) != "Cooking MC's like a pound of bacon" {
		t.Fatalf("unexpected plaintext %q", got)
	}

	multi, _ := GetOperation("break_repeating_key")
	ice, _ := hex.DecodeString("0b3637272a2b2e63622c2e69692a23693a2a3c6324202d623d63343c2a26226324272765272" +
		"a282b2f20430a652e2c652a3124333a653e2b2027630c692b20283165286326302e27282f")
	got, err = multi.Execute(ctx, ice, map[string]interface{}{"key_length": 3})
	if err != nil {
		t.Fatalf("break_repeating_key: %v", err)
	}
	if string(got[:11]) != "Burning 'em" {
		t.Fatalf("unexpected plaintext %q", got)
	}
}

func TestBreakOperationBadParams(t *testing.T) {
	op, _ := GetOperation("break_single_byte")
	ctx := context.Background()

	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{"unknown method", map[string]interface{}{"method": "bogus"}},
		{"fractional top_n", map[string]interface{}{"top_n": 2.5}},
		{"non-numeric workers", map[string]interface{}{"workers": "many"}},
		{"non-bool strict", map[string]interface{}{"strict": 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := op.Execute(ctx, []byte("abc"), tt.params); !errors.Is(err, cryptoerr.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}
