// Package rpc serves the breaker over gRPC. Requests and responses are
// google.protobuf.Struct messages, so no generated code is needed.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "xorbreak.v1.Breaker"

// Method names.
const (
	MethodTranscode         = "Transcode"
	MethodBreakSingle       = "BreakSingle"
	MethodBreakRepeating    = "BreakRepeating"
	MethodEstimateKeyLength = "EstimateKeyLength"
)

// BreakerServer is the server API of the Breaker service.
type BreakerServer interface {
	Transcode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BreakSingle(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BreakRepeating(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EstimateKeyLength(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// FullMethod returns the gRPC path of a Breaker method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type structCall func(BreakerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BreakerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BreakerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BreakerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodTranscode, Handler: unaryHandler(MethodTranscode, BreakerServer.Transcode)},
		{MethodName: MethodBreakSingle, Handler: unaryHandler(MethodBreakSingle, BreakerServer.BreakSingle)},
		{MethodName: MethodBreakRepeating, Handler: unaryHandler(MethodBreakRepeating, BreakerServer.BreakRepeating)},
		{MethodName: MethodEstimateKeyLength, Handler: unaryHandler(MethodEstimateKeyLength, BreakerServer.EstimateKeyLength)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "xorbreak/v1/breaker.proto",
}

// RegisterBreakerServer registers srv on s.
func RegisterBreakerServer(s grpc.ServiceRegistrar, srv BreakerServer) {
	s.RegisterService(&serviceDesc, srv)
}
