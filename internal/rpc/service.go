package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "imagestudio.v1.Studio"

// Full method names, used by interceptors to pick auth rules.
const (
	MethodRegisterUser  = "/" + ServiceName + "/RegisterUser"
	MethodGetSalt       = "/" + ServiceName + "/GetSalt"
	MethodLogin         = "/" + ServiceName + "/Login"
	MethodRefreshToken  = "/" + ServiceName + "/RefreshToken"
	MethodFetchHistory  = "/" + ServiceName + "/FetchHistory"
	MethodUpsertHistory = "/" + ServiceName + "/UpsertHistory"
)

// StudioServer is implemented by the server handler.
type StudioServer interface {
	RegisterUser(context.Context, *RegisterUserRequest) (*RegisterUserResponse, error)
	GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	FetchHistory(context.Context, *FetchHistoryRequest) (*FetchHistoryResponse, error)
	UpsertHistory(context.Context, *UpsertHistoryRequest) (*UpsertHistoryResponse, error)
}

// UnimplementedStudioServer can be embedded to get Unimplemented errors for
// methods a server does not provide.
type UnimplementedStudioServer struct{}

func (UnimplementedStudioServer) RegisterUser(context.Context, *RegisterUserRequest) (*RegisterUserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RegisterUser not implemented")
}

func (UnimplementedStudioServer) GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSalt not implemented")
}

func (UnimplementedStudioServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}

func (UnimplementedStudioServer) RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RefreshToken not implemented")
}

func (UnimplementedStudioServer) FetchHistory(context.Context, *FetchHistoryRequest) (*FetchHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method FetchHistory not implemented")
}

func (UnimplementedStudioServer) UpsertHistory(context.Context, *UpsertHistoryRequest) (*UpsertHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpsertHistory not implemented")
}

func RegisterStudioServer(s grpc.ServiceRegistrar, srv StudioServer) {
	s.RegisterService(&StudioServiceDesc, srv)
}

// unary builds a grpc.MethodDesc handler for one method.
func unary[Req any, Resp any](fullMethod string, call func(StudioServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StudioServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(StudioServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var StudioServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StudioServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegisterUser", Handler: unary(MethodRegisterUser, StudioServer.RegisterUser)},
		{MethodName: "GetSalt", Handler: unary(MethodGetSalt, StudioServer.GetSalt)},
		{MethodName: "Login", Handler: unary(MethodLogin, StudioServer.Login)},
		{MethodName: "RefreshToken", Handler: unary(MethodRefreshToken, StudioServer.RefreshToken)},
		{MethodName: "FetchHistory", Handler: unary(MethodFetchHistory, StudioServer.FetchHistory)},
		{MethodName: "UpsertHistory", Handler: unary(MethodUpsertHistory, StudioServer.UpsertHistory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "imagestudio/v1/studio",
}

// StudioClient is the client API for the Studio service.
type StudioClient interface {
	RegisterUser(ctx context.Context, in *RegisterUserRequest, opts ...grpc.CallOption) (*RegisterUserResponse, error)
	GetSalt(ctx context.Context, in *GetSaltRequest, opts ...grpc.CallOption) (*GetSaltResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error)
	FetchHistory(ctx context.Context, in *FetchHistoryRequest, opts ...grpc.CallOption) (*FetchHistoryResponse, error)
	UpsertHistory(ctx context.Context, in *UpsertHistoryRequest, opts ...grpc.CallOption) (*UpsertHistoryResponse, error)
}

type studioClient struct {
	cc grpc.ClientConnInterface
}

func NewStudioClient(cc grpc.ClientConnInterface) StudioClient {
	return &studioClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *studioClient) RegisterUser(ctx context.Context, in *RegisterUserRequest, opts ...grpc.CallOption) (*RegisterUserResponse, error) {
	return invoke[RegisterUserResponse](ctx, c.cc, MethodRegisterUser, in, opts)
}

func (c *studioClient) GetSalt(ctx context.Context, in *GetSaltRequest, opts ...grpc.CallOption) (*GetSaltResponse, error) {
	return invoke[GetSaltResponse](ctx, c.cc, MethodGetSalt, in, opts)
}

func (c *studioClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *studioClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error) {
	return invoke[RefreshTokenResponse](ctx, c.cc, MethodRefreshToken, in, opts)
}

func (c *studioClient) FetchHistory(ctx context.Context, in *FetchHistoryRequest, opts ...grpc.CallOption) (*FetchHistoryResponse, error) {
	return invoke[FetchHistoryResponse](ctx, c.cc, MethodFetchHistory, in, opts)
}

func (c *studioClient) UpsertHistory(ctx context.Context, in *UpsertHistoryRequest, opts ...grpc.CallOption) (*UpsertHistoryResponse, error) {
	return invoke[UpsertHistoryResponse](ctx, c.cc, MethodUpsertHistory, in, opts)
}
