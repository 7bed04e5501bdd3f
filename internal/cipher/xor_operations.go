package cipher

import (
	"context"
	"fmt"

	"github.com/RowanDark/xorbreak/internal/breaker"
	"github.com/RowanDark/xorbreak/internal/codec"
	"github.com/RowanDark/xorbreak/internal/cryptoerr"
	"github.com/RowanDark/xorbreak/internal/score"
	"github.com/RowanDark/xorbreak/internal/xorcipher"
)

// XORRepeatingOp XORs the input with a repeating key. The key comes from the
// "key" parameter as text or "key_hex" as hex. It is its own inverse.
type XORRepeatingOp struct {
	BaseOperation
}

func (op *XORRepeatingOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := keyParam(params)
	if err != nil {
		return nil, err
	}
	return xorcipher.Apply(input, key)
}

func keyParam(params map[string]interface{}) ([]byte, error) {
	if h, ok := stringParam(params, "key_hex"); ok {
		return codec.HexToBytes(h)
	}
	if k, ok := stringParam(params, "key"); ok && k != "" {
		return []byte(k), nil
	}
	return nil, fmt.Errorf("%w: key or key_hex parameter is required", cryptoerr.ErrInvalidArgument)
}

// XORFixedOp XORs the input with an equal-length operand given as hex in the
// "with_hex" parameter.
type XORFixedOp struct {
	BaseOperation
}

func (op *XORFixedOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	h, ok := stringParam(params, "with_hex")
	if !ok {
		return nil, fmt.Errorf("%w: with_hex parameter is required", cryptoerr.ErrInvalidArgument)
	}
	other, err := codec.HexToBytes(h)
	if err != nil {
		return nil, err
	}
	return xorcipher.Fixed(input, other)
}

// BreakSingleByteOp replaces single-byte XOR ciphertext with its most
// plausible plaintext.
type BreakSingleByteOp struct {
	BaseOperation
}

func (op *BreakSingleByteOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	opts, err := breakerOptions(params)
	if err != nil {
		return nil, err
	}
	res, err := breaker.BreakSingleByte(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return res.Plaintext, nil
}

// BreakRepeatingKeyOp replaces repeating-key XOR ciphertext with its most
// plausible plaintext.
type BreakRepeatingKeyOp struct {
	BaseOperation
}

func (op *BreakRepeatingKeyOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	opts, err := breakerOptions(params)
	if err != nil {
		return nil, err
	}
	res, err := breaker.BreakRepeatingKey(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return res.Plaintext, nil
}

// breakerOptions reads the scoring and search parameters shared by the
// break operations.
func breakerOptions(params map[string]interface{}) ([]breaker.Option, error) {
	method, _ := stringParam(params, "method")
	topN, err := intParam(params, "top_n", score.DefaultTopN)
	if err != nil {
		return nil, err
	}
	strict, err := boolParam(params, "strict", false)
	if err != nil {
		return nil, err
	}
	scorer, err := score.New(score.Options{Method: score.Method(method), TopN: topN, Strict: strict})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoerr.ErrInvalidArgument, err)
	}
	opts := []breaker.Option{breaker.WithScorer(scorer)}

	workers, err := intParam(params, "workers", 1)
	if err != nil {
		return nil, err
	}
	opts = append(opts, breaker.WithWorkers(workers))

	minLen, err := intParam(params, "min", breaker.DefaultMinKeyLength)
	if err != nil {
		return nil, err
	}
	maxLen, err := intParam(params, "max", breaker.DefaultMaxKeyLength)
	if err != nil {
		return nil, err
	}
	blocks, err := intParam(params, "sample_blocks", breaker.DefaultSampleBlocks)
	if err != nil {
		return nil, err
	}
	keyLen, err := intParam(params, "key_length", 0)
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		breaker.WithKeyLengthRange(minLen, maxLen),
		breaker.WithSampleBlocks(blocks),
		breaker.WithKeyLength(keyLen),
	)
	return opts, nil
}

func xorOperations() []Operation {
	repeating := &XORRepeatingOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_repeating",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "XOR with a repeating key (key or key_hex parameter)",
		},
	}
	repeating.ReverseOp = repeating

	fixed := &XORFixedOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_fixed",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "XOR with an equal-length operand (with_hex parameter)",
		},
	}
	fixed.ReverseOp = fixed

	single := &BreakSingleByteOp{
		BaseOperation: BaseOperation{
			NameValue:        "break_single_byte",
			TypeValue:        OperationTypeAnalyze,
			DescriptionValue: "Recover plaintext from single-byte XOR ciphertext",
		},
	}
	multi := &BreakRepeatingKeyOp{
		BaseOperation: BaseOperation{
			NameValue:        "break_repeating_key",
			TypeValue:        OperationTypeAnalyze,
			DescriptionValue: "Recover plaintext from repeating-key XOR ciphertext",
		},
	}

	return []Operation{repeating, fixed, single, multi}
}
