package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/xorbreak/internal/codec"
)

// Client calls a Breaker service over an established connection.
type Client struct {
	conn  grpc.ClientConnInterface
	token string
}

// NewClient wraps conn. A non-empty token is sent as a Bearer credential.
func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{conn: conn, token: token}
}

// Call invokes method with a raw request.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Transcode re-encodes input from one format to another.
func (c *Client) Transcode(ctx context.Context, input string, from, to codec.Format) (string, error) {
	out, err := c.Call(ctx, MethodTranscode, map[string]any{
		"input": input,
		"from":  string(from),
		"to":    string(to),
	})
	if err != nil {
		return "", err
	}
	return out.GetFields()["output"].GetStringValue(), nil
}

// SingleByteReply is the decoded BreakSingle response.
type SingleByteReply struct {
	Key       byte
	Score     float64
	Plaintext []byte
}

// BreakSingle recovers the single-byte key of ciphertext.
func (c *Client) BreakSingle(ctx context.Context, ciphertext []byte) (SingleByteReply, error) {
	out, err := c.Call(ctx, MethodBreakSingle, map[string]any{
		"ciphertext_hex": codec.BytesToHex(ciphertext),
	})
	if err != nil {
		return SingleByteReply{}, err
	}
	f := out.GetFields()
	key, err := codec.HexToBytes(f["key_hex"].GetStringValue())
	if err != nil || len(key) != 1 {
		return SingleByteReply{}, fmt.Errorf("malformed key_hex %q", f["key_hex"].GetStringValue())
	}
	pt, err := codec.HexToBytes(f["plaintext_hex"].GetStringValue())
	if err != nil {
		return SingleByteReply{}, fmt.Errorf("malformed plaintext_hex: %w", err)
	}
	return SingleByteReply{Key: key[0], Score: f["score"].GetNumberValue(), Plaintext: pt}, nil
}

// RepeatingKeyReply is the decoded BreakRepeating response.
type RepeatingKeyReply struct {
	Key       []byte
	KeyLength int
	Distance  float64
	Score     float64
	Plaintext []byte
}

// BreakRepeating recovers a repeating key. keyLength of zero lets the server
// estimate it.
func (c *Client) BreakRepeating(ctx context.Context, ciphertext []byte, keyLength int) (RepeatingKeyReply, error) {
	req := map[string]any{"ciphertext_hex": codec.BytesToHex(ciphertext)}
	if keyLength > 0 {
		req["key_length"] = keyLength
	}
	out, err := c.Call(ctx, MethodBreakRepeating, req)
	if err != nil {
		return RepeatingKeyReply{}, err
	}
	f := out.GetFields()
	key, err := codec.HexToBytes(f["key_hex"].GetStringValue())
	if err != nil {
		return RepeatingKeyReply{}, fmt.Errorf("malformed key_hex: %w", err)
	}
	pt, err := codec.HexToBytes(f["plaintext_hex"].GetStringValue())
	if err != nil {
		return RepeatingKeyReply{}, fmt.Errorf("malformed plaintext_hex: %w", err)
	}
	return RepeatingKeyReply{
		Key:       key,
		KeyLength: int(f["key_length"].GetNumberValue()),
		Distance:  f["distance"].GetNumberValue(),
		Score:     f["score"].GetNumberValue(),
		Plaintext: pt,
	}, nil
}

// EstimateKeyLength asks the server for the most likely key length. Zero
// bounds fall back to the server's configuration.
func (c *Client) EstimateKeyLength(ctx context.Context, ciphertext []byte, minLen, maxLen, sampleBlocks int) (int, float64, error) {
	req := map[string]any{"ciphertext_hex": codec.BytesToHex(ciphertext)}
	if minLen > 0 {
		req["min"] = minLen
	}
	if maxLen > 0 {
		req["max"] = maxLen
	}
	if sampleBlocks > 0 {
		req["sample_blocks"] = sampleBlocks
	}
	out, err := c.Call(ctx, MethodEstimateKeyLength, req)
	if err != nil {
		return 0, 0, err
	}
	f := out.GetFields()
	return int(f["length"].GetNumberValue()), f["distance"].GetNumberValue(), nil
}
