package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "predicta.auth.v1.AuthService"

const (
	RegisterMethod = "/" + ServiceName + "/Register"
	LoginMethod    = "/" + ServiceName + "/Login"
	WhoAmIMethod   = "/" + ServiceName + "/WhoAmI"

	healthCheckMethod = "/grpc.health.v1.Health/Check"
)

// AuthService is the server side of predicta.auth.v1.AuthService. Requests and
// responses are google.protobuf.Struct values; see messages.go for the fields.
type AuthService interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WhoAmI(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type authCall func(AuthService, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts one AuthService method to grpc's method handler shape.
func unaryHandler(fullMethod string, call authCall) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthService), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthService), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var authServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler(RegisterMethod, AuthService.Register)},
		{MethodName: "Login", Handler: unaryHandler(LoginMethod, AuthService.Login)},
		{MethodName: "WhoAmI", Handler: unaryHandler(WhoAmIMethod, AuthService.WhoAmI)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "predicta/auth/v1/auth.proto",
}

// RegisterAuthService attaches an AuthService implementation to a gRPC server.
func RegisterAuthService(s grpc.ServiceRegistrar, impl AuthService) {
	s.RegisterService(&authServiceDesc, impl)
}
