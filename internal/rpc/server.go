package rpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/xorbreak/internal/breaker"
	"github.com/RowanDark/xorbreak/internal/codec"
	"github.com/RowanDark/xorbreak/internal/config"
	"github.com/RowanDark/xorbreak/internal/cryptoerr"
	"github.com/RowanDark/xorbreak/internal/history"
	"github.com/RowanDark/xorbreak/internal/logging"
	"github.com/RowanDark/xorbreak/internal/metrics"
	"github.com/RowanDark/xorbreak/internal/redact"
)

// RequestIDHeader carries the per-call identifier back to clients.
const RequestIDHeader = "x-request-id"

// Server implements BreakerServer on top of the breaker package.
type Server struct {
	logger      *slog.Logger
	audit       *logging.AuditLogger
	authToken   string
	historyPath string
	keyLength   config.KeyLengthConfig
	breakOpts   []breaker.Option
}

// Option customises a Server.
type Option func(*Server)

// WithLogger replaces the default JSON logger on stdout.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAuditLogger sends audit events to a. Without it events are dropped.
func WithAuditLogger(a *logging.AuditLogger) Option {
	return func(s *Server) {
		if a != nil {
			s.audit = a.WithComponent("rpc")
		}
	}
}

// NewServer creates a server from the resolved configuration. An empty
// server.auth_token disables authentication and an empty history_path
// disables history.
func NewServer(cfg config.Config, opts ...Option) (*Server, error) {
	breakOpts, err := cfg.BreakerOptions()
	if err != nil {
		return nil, err
	}
	s := &Server{
		logger:      slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		audit:       logging.Discard("rpc"),
		authToken:   cfg.Server.AuthToken,
		historyPath: cfg.HistoryPath,
		keyLength:   cfg.KeyLength,
		breakOpts:   breakOpts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewGRPCServer returns a gRPC server with s registered behind its
// authentication and audit interceptor.
func NewGRPCServer(s *Server, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(s.UnaryInterceptor())}, opts...)
	g := grpc.NewServer(opts...)
	RegisterBreakerServer(g, s)
	return g
}

type auditKey struct{}

func auditFrom(ctx context.Context, fallback *logging.AuditLogger) *logging.AuditLogger {
	if a, ok := ctx.Value(auditKey{}).(*logging.AuditLogger); ok {
		return a
	}
	return fallback
}

// UnaryInterceptor authenticates each call, tags it with a request ID and
// records it in the audit log.
func (s *Server) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := uuid.NewString()
		audit := s.audit.WithRunID(requestID)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))

		if err := s.authorize(ctx); err != nil {
			metrics.RecordRPCRequest(info.FullMethod)(status.Code(err).String())
			s.logger.Warn("RPC rejected", "method", info.FullMethod, "request_id", requestID, "error", err)
			_ = audit.Emit(logging.AuditEvent{
				EventType: logging.EventRPCDenied,
				Decision:  logging.DecisionDeny,
				Reason:    status.Convert(err).Message(),
				Metadata:  map[string]any{"method": info.FullMethod},
			})
			return nil, err
		}

		start := time.Now()
		done := metrics.RecordRPCRequest(info.FullMethod)
		resp, err := handler(context.WithValue(ctx, auditKey{}, audit), req)
		code := status.Code(err)
		done(code.String())
		s.logger.Info("RPC handled", "method", info.FullMethod, "request_id", requestID,
			"code", code.String(), "duration_ms", time.Since(start).Milliseconds())
		_ = audit.Emit(logging.AuditEvent{
			EventType: logging.EventRPCCall,
			Decision:  logging.DecisionAllow,
			Metadata: map[string]any{
				"method":      info.FullMethod,
				"code":        code.String(),
				"duration_ms": time.Since(start).Milliseconds(),
			},
		})
		return resp, err
	}
}

func (s *Server) authorize(ctx context.Context) error {
	if s.authToken == "" {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return status.Error(codes.Unauthenticated, "missing authorization header")
	}
	token, found := strings.CutPrefix(strings.TrimSpace(values[0]), "Bearer ")
	if !found {
		return status.Error(codes.Unauthenticated, "authorization must use the Bearer scheme")
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(s.authToken)) != 1 {
		return status.Error(codes.Unauthenticated, "invalid auth token")
	}
	return nil
}

// Transcode re-encodes input between hex and base64.
func (s *Server) Transcode(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	input, err := requiredString(in, "input")
	if err != nil {
		return nil, err
	}
	from, err := requiredString(in, "from")
	if err != nil {
		return nil, err
	}
	to, err := requiredString(in, "to")
	if err != nil {
		return nil, err
	}
	data, err := codec.Decode(codec.Format(strings.ToLower(from)), input)
	if err != nil {
		s.decodeFailed(ctx, MethodTranscode, err)
		return nil, toStatus(err)
	}
	out, err := codec.Encode(codec.Format(strings.ToLower(to)), data)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"output": out})
}

// BreakSingle recovers a single-byte XOR key.
func (s *Server) BreakSingle(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ct, err := s.ciphertext(ctx, in, MethodBreakSingle)
	if err != nil {
		return nil, err
	}
	res, err := breaker.BreakSingleByte(ctx, ct, s.breakOpts...)
	if err != nil {
		return nil, toStatus(err)
	}

	metrics.RecordBreak(history.OpSingleByte, 1)
	audit := auditFrom(ctx, s.audit)
	_ = audit.Emit(logging.AuditEvent{
		EventType: logging.EventBreakSingleByte,
		Decision:  logging.DecisionInfo,
		Metadata: map[string]any{
			"ciphertext_len": len(ct),
			"key":            redact.Fingerprint([]byte{res.Key}),
			"score":          res.Score,
			"plaintext":      res.Plaintext,
		},
	})
	s.record(history.Record{
		Operation: history.OpSingleByte,
		RunID:     audit.RunID(),
		Input:     redact.Preview(ct, 16),
		KeyHex:    codec.BytesToHex([]byte{res.Key}),
		Score:     res.Score,
		Plaintext: string(res.Plaintext),
	})

	return newStruct(withPlaintext(map[string]any{
		"key_hex": codec.BytesToHex([]byte{res.Key}),
		"score":   res.Score,
	}, res.Plaintext))
}

// BreakRepeating recovers a repeating XOR key. An optional key_length skips
// estimation.
func (s *Server) BreakRepeating(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ct, err := s.ciphertext(ctx, in, MethodBreakRepeating)
	if err != nil {
		return nil, err
	}
	keyLen, err := optionalInt(in, "key_length", 0)
	if err != nil {
		return nil, err
	}
	opts := append(append([]breaker.Option(nil), s.breakOpts...), breaker.WithKeyLength(keyLen))
	res, err := breaker.BreakRepeatingKey(ctx, ct, opts...)
	if err != nil {
		return nil, toStatus(err)
	}

	metrics.RecordBreak(history.OpRepeating, res.KeyLength.Length)
	audit := auditFrom(ctx, s.audit)
	_ = audit.Emit(logging.AuditEvent{
		EventType: logging.EventBreakRepeatingKey,
		Decision:  logging.DecisionInfo,
		Metadata: map[string]any{
			"ciphertext_len": len(ct),
			"key":            redact.Fingerprint(res.Key),
			"key_length":     res.KeyLength.Length,
			"distance":       res.KeyLength.Distance,
			"score":          res.Score,
			"plaintext":      res.Plaintext,
		},
	})
	s.record(history.Record{
		Operation: history.OpRepeating,
		RunID:     audit.RunID(),
		Input:     redact.Preview(ct, 16),
		KeyHex:    codec.BytesToHex(res.Key),
		KeyLength: res.KeyLength.Length,
		Distance:  res.KeyLength.Distance,
		Score:     res.Score,
		Plaintext: string(res.Plaintext),
	})

	return newStruct(withPlaintext(map[string]any{
		"key_hex":    codec.BytesToHex(res.Key),
		"key_length": res.KeyLength.Length,
		"distance":   res.KeyLength.Distance,
		"score":      res.Score,
	}, res.Plaintext))
}

// EstimateKeyLength returns the most likely repeating key length. Bounds
// default to the server configuration.
func (s *Server) EstimateKeyLength(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ct, err := s.ciphertext(ctx, in, MethodEstimateKeyLength)
	if err != nil {
		return nil, err
	}
	minLen, err := optionalInt(in, "min", s.keyLength.Min)
	if err != nil {
		return nil, err
	}
	maxLen, err := optionalInt(in, "max", s.keyLength.Max)
	if err != nil {
		return nil, err
	}
	blocks, err := optionalInt(in, "sample_blocks", s.keyLength.SampleBlocks)
	if err != nil {
		return nil, err
	}
	est, err := breaker.EstimateKeyLength(ct, minLen, maxLen, blocks)
	if err != nil {
		return nil, toStatus(err)
	}

	metrics.RecordBreak(history.OpKeyLength, est.Length)
	_ = auditFrom(ctx, s.audit).Emit(logging.AuditEvent{
		EventType: logging.EventEstimateKeyLength,
		Decision:  logging.DecisionInfo,
		Metadata: map[string]any{
			"ciphertext_len": len(ct),
			"length":         est.Length,
			"distance":       est.Distance,
		},
	})
	return newStruct(map[string]any{"length": est.Length, "distance": est.Distance})
}

func (s *Server) ciphertext(ctx context.Context, in *structpb.Struct, method string) ([]byte, error) {
	h, err := requiredString(in, "ciphertext_hex")
	if err != nil {
		return nil, err
	}
	ct, err := codec.HexToBytes(strings.TrimSpace(h))
	if err != nil {
		s.decodeFailed(ctx, method, err)
		return nil, toStatus(err)
	}
	return ct, nil
}

func (s *Server) decodeFailed(ctx context.Context, method string, err error) {
	_ = auditFrom(ctx, s.audit).Emit(logging.AuditEvent{
		EventType: logging.EventDecodeFailed,
		Decision:  logging.DecisionDeny,
		Reason:    err.Error(),
		Metadata:  map[string]any{"method": FullMethod(method)},
	})
}

func (s *Server) record(rec history.Record) {
	if s.historyPath == "" {
		return
	}
	rec.Source = "rpc"
	if _, err := history.Append(s.historyPath, rec); err != nil {
		s.logger.Warn("Failed to append history", "path", s.historyPath, "error", err)
	}
}

// toStatus maps breaker errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cryptoerr.ErrInvalidEncoding),
		errors.Is(err, cryptoerr.ErrInvalidArgument),
		errors.Is(err, cryptoerr.ErrLengthMismatch):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, io.ErrUnexpectedEOF):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func requiredString(in *structpb.Struct, key string) (string, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "missing field %q", key)
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "field %q must be a string", key)
	}
	return sv.StringValue, nil
}

func optionalInt(in *structpb.Struct, key string, def int) (int, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return def, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return def, nil
	}
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "field %q must be a number", key)
	}
	f := nv.NumberValue
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "field %q must be an integer, got %v", key, f)
	}
	return int(f), nil
}

// withPlaintext adds plaintext_hex and, when it is valid UTF-8, plaintext.
func withPlaintext(m map[string]any, plaintext []byte) map[string]any {
	m["plaintext_hex"] = codec.BytesToHex(plaintext)
	if utf8.Valid(plaintext) {
		m["plaintext"] = string(plaintext)
	}
	return m
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}
