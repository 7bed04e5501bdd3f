package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/RowanDark/xorbreak/internal/codec"
	"github.com/RowanDark/xorbreak/internal/input"
	"github.com/RowanDark/xorbreak/internal/xorcipher"
)

func runHex2B64(a *app, args []string) int {
	return a.transcode("hex2b64", args, codec.FormatHex, codec.FormatBase64)
}

func runB642Hex(a *app, args []string) int {
	return a.transcode("b642hex", args, codec.FormatBase64, codec.FormatHex)
}

// transcode reads text from the first argument, or from --in when none is
// given. Input read from a file may be wrapped across lines.
func (a *app) transcode(name string, args []string, from, to codec.Format) int {
	fs := a.flagSet(name)
	in := fs.String("in", "-", "file to read when no argument is given (- for stdin)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var text string
	switch fs.NArg() {
	case 0:
		data, err := input.Read(*in, a.stdin)
		if err != nil {
			fmt.Fprintln(a.stderr, err)
			return 1
		}
		text = string(bytes.Join(input.Lines(data), nil))
	case 1:
		text = strings.TrimSpace(fs.Arg(0))
	default:
		fmt.Fprintf(a.stderr, "%s takes at most one argument\n", name)
		return 2
	}

	data, err := codec.Decode(from, text)
	if err != nil {
		return a.fail(name, err)
	}
	out, err := codec.Encode(to, data)
	if err != nil {
		return a.fail(name, err)
	}
	return a.report(map[string]string{string(to): out}, out)
}

func runXor(a *app, args []string) int {
	fs := a.flagSet("xor")
	left := fs.String("a", "", "first operand as hex")
	right := fs.String("b", "", "second operand as hex")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *left == "" || *right == "" {
		fmt.Fprintln(a.stderr, "--a and --b are required")
		return 2
	}

	x, err := codec.HexToBytes(strings.TrimSpace(*left))
	if err != nil {
		return a.fail("xor", fmt.Errorf("--a: %w", err))
	}
	y, err := codec.HexToBytes(strings.TrimSpace(*right))
	if err != nil {
		return a.fail("xor", fmt.Errorf("--b: %w", err))
	}
	out, err := xorcipher.Fixed(x, y)
	if err != nil {
		return a.fail("xor", err)
	}
	h := codec.BytesToHex(out)
	return a.report(map[string]string{"hex": h}, h)
}

func runEncrypt(a *app, args []string) int {
	fs := a.flagSet("encrypt")
	key := fs.String("key", "", "key as text")
	keyHex := fs.String("key-hex", "", "key as hex")
	in := fs.String("in", "-", "plaintext file (- for stdin)")
	format := fs.String("format", "hex", "ciphertext encoding: hex or base64")
	keepNewline := fs.Bool("keep-newline", false, "do not strip one trailing newline from the plaintext")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if (*key == "") == (*keyHex == "") {
		fmt.Fprintln(a.stderr, "exactly one of --key or --key-hex is required")
		return 2
	}

	k := []byte(*key)
	if *keyHex != "" {
		var err error
		if k, err = codec.HexToBytes(strings.TrimSpace(*keyHex)); err != nil {
			return a.fail("encrypt", fmt.Errorf("--key-hex: %w", err))
		}
	}

	plaintext, err := input.Read(*in, a.stdin)
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return 1
	}
	if !*keepNewline {
		plaintext = bytes.TrimSuffix(plaintext, []byte("\n"))
	}

	ct, err := xorcipher.Apply(plaintext, k)
	if err != nil {
		return a.fail("encrypt", err)
	}
	out, err := codec.Encode(codec.Format(strings.ToLower(*format)), ct)
	if err != nil {
		return a.fail("encrypt", err)
	}
	return a.report(map[string]string{"ciphertext": out, "format": strings.ToLower(*format)}, out)
}

func (a *app) fail(name string, err error) int {
	fmt.Fprintf(a.stderr, "%s: %v\n", name, err)
	return 1
}
