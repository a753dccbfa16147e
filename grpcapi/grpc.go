package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "xdao.cred.v1.Verifier"

// VerifierServer is the server API for the Verifier gRPC service.
//
// Requests and responses are well-known types carrying the JSON shapes of
// the model package, so no protoc step is needed. Proto definition:
// verifier.proto.
type VerifierServer interface {
	Verify(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Decode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveKey(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	HashPayload(context.Context, *structpb.ListValue) (*wrapperspb.StringValue, error)
}

// UnimplementedVerifierServer can be embedded to have forward compatible implementations.
type UnimplementedVerifierServer struct{}

func (UnimplementedVerifierServer) Verify(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Verify not implemented")
}
func (UnimplementedVerifierServer) Decode(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Decode not implemented")
}
func (UnimplementedVerifierServer) ResolveKey(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ResolveKey not implemented")
}
func (UnimplementedVerifierServer) HashPayload(context.Context, *structpb.ListValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method HashPayload not implemented")
}

// RegisterVerifierServer registers the Verifier service on a gRPC server.
func RegisterVerifierServer(s grpc.ServiceRegistrar, srv VerifierServer) {
	s.RegisterService(&Verifier_ServiceDesc, srv)
}

// VerifierClient is the client API for the Verifier gRPC service.
type VerifierClient interface {
	Verify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Decode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ResolveKey(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	HashPayload(ctx context.Context, in *structpb.ListValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type verifierClient struct{ cc grpc.ClientConnInterface }

func NewVerifierClient(cc grpc.ClientConnInterface) VerifierClient { return &verifierClient{cc: cc} }

func (c *verifierClient) Verify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Verify", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *verifierClient) Decode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Decode", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *verifierClient) ResolveKey(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ResolveKey", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *verifierClient) HashPayload(ctx context.Context, in *structpb.ListValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/HashPayload", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Verifier_Verify_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VerifierServer).Verify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Verify"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VerifierServer).Verify(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Verifier_Decode_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VerifierServer).Decode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Decode"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VerifierServer).Decode(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Verifier_ResolveKey_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VerifierServer).ResolveKey(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ResolveKey"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VerifierServer).ResolveKey(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Verifier_HashPayload_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.ListValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VerifierServer).HashPayload(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/HashPayload"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VerifierServer).HashPayload(ctx, req.(*structpb.ListValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Verifier_ServiceDesc is the grpc.ServiceDesc for the Verifier service.
var Verifier_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*VerifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Verify", Handler: _Verifier_Verify_Handler},
		{MethodName: "Decode", Handler: _Verifier_Decode_Handler},
		{MethodName: "ResolveKey", Handler: _Verifier_ResolveKey_Handler},
		{MethodName: "HashPayload", Handler: _Verifier_HashPayload_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "verifier.proto",
}
