package cipher

import (
	"bytes"
	"context"

	"github.com/RowanDark/xorbreak/internal/codec"
)

// HexEncodeOp renders bytes as lowercase hex text
type HexEncodeOp struct {
	BaseOperation
}

func (op *HexEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return []byte(codec.BytesToHex(input)), nil
}

// HexDecodeOp parses hex text; surrounding whitespace is ignored
type HexDecodeOp struct {
	BaseOperation
}

func (op *HexDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return codec.HexToBytes(string(bytes.TrimSpace(input)))
}

// Base64EncodeOp renders bytes as padded base64 text
type Base64EncodeOp struct {
	BaseOperation
}

func (op *Base64EncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	encoded, err := codec.BytesToBase64(input)
	if err != nil {
		return nil, err
	}
	return []byte(encoded), nil
}

// Base64DecodeOp parses padded base64 text. Line breaks inside the text are
// dropped first, so wrapped files decode as one block.
type Base64DecodeOp struct {
	BaseOperation
}

func (op *Base64DecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return codec.Base64ToBytes(string(joinLines(input)))
}

// HexToBase64Op re-encodes hex text as base64 text
type HexToBase64Op struct {
	BaseOperation
}

func (op *HexToBase64Op) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	out, err := codec.HexToBase64(string(bytes.TrimSpace(input)))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// Base64ToHexOp re-encodes base64 text as hex text
type Base64ToHexOp struct {
	BaseOperation
}

func (op *Base64ToHexOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	out, err := codec.Base64ToHex(string(joinLines(input)))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func joinLines(input []byte) []byte {
	out := make([]byte, 0, len(input))
	for _, b := range input {
		switch b {
		case '\n', '\r', ' ', '\t':
			continue
		}
		out = append(out, b)
	}
	return out
}

func codecOperations() []Operation {
	hexEncode := &HexEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode bytes as lowercase hexadecimal text",
		},
	}
	hexDecode := &HexDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode hexadecimal text to bytes",
		},
	}
	hexEncode.ReverseOp = hexDecode
	hexDecode.ReverseOp = hexEncode

	base64Encode := &Base64EncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode bytes as padded standard Base64",
		},
	}
	base64Decode := &Base64DecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode padded standard Base64 text",
		},
	}
	base64Encode.ReverseOp = base64Decode
	base64Decode.ReverseOp = base64Encode

	hexToBase64 := &HexToBase64Op{
		BaseOperation: BaseOperation{
			NameValue:        "hex_to_base64",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Convert hexadecimal text to Base64 text",
		},
	}
	base64ToHex := &Base64ToHexOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_to_hex",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Convert Base64 text to hexadecimal text",
		},
	}
	hexToBase64.ReverseOp = base64ToHex
	base64ToHex.ReverseOp = hexToBase64

	return []Operation{hexEncode, hexDecode, base64Encode, base64Decode, hexToBase64, base64ToHex}
}
