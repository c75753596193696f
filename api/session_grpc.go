package api

import (
	"context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
	structpb "google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "vinom.treasuremaze.Session"

const (
	Session_Join_FullMethodName        = "/" + ServiceName + "/Join"
	Session_Claim_FullMethodName       = "/" + ServiceName + "/Claim"
	Session_Move_FullMethodName        = "/" + ServiceName + "/Move"
	Session_BuyGold_FullMethodName     = "/" + ServiceName + "/BuyGold"
	Session_Hint_FullMethodName        = "/" + ServiceName + "/Hint"
	Session_State_FullMethodName       = "/" + ServiceName + "/State"
	Session_SessionInfo_FullMethodName = "/" + ServiceName + "/SessionInfo"
)

// SessionServer is the server API for the Session service.
// Every request and response is a google.protobuf.Struct.
type SessionServer interface {
	Join(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Claim(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Move(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BuyGold(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Hint(context.Context, *structpb.Struct) (*structpb.Struct, error)
	State(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SessionInfo(context.Context, *structpb.Struct) (*structpb.Struct, error)
	mustEmbedUnimplementedSessionServer()
}

// UnimplementedSessionServer must be embedded to have forward compatible implementations.
type UnimplementedSessionServer struct{}

func (UnimplementedSessionServer) Join(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Join not implemented")
}
func (UnimplementedSessionServer) Claim(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Claim not implemented")
}
func (UnimplementedSessionServer) Move(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Move not implemented")
}
func (UnimplementedSessionServer) BuyGold(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method BuyGold not implemented")
}
func (UnimplementedSessionServer) Hint(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Hint not implemented")
}
func (UnimplementedSessionServer) State(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method State not implemented")
}
func (UnimplementedSessionServer) SessionInfo(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SessionInfo not implemented")
}
func (UnimplementedSessionServer) mustEmbedUnimplementedSessionServer() {}

// RegisterSessionServer registers srv on s.
func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&Session_ServiceDesc, srv)
}

type unaryMethod func(SessionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SessionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SessionServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Session_ServiceDesc is the grpc.ServiceDesc for the Session service.
var Session_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Join", Handler: unaryHandler(Session_Join_FullMethodName, SessionServer.Join)},
		{MethodName: "Claim", Handler: unaryHandler(Session_Claim_FullMethodName, SessionServer.Claim)},
		{MethodName: "Move", Handler: unaryHandler(Session_Move_FullMethodName, SessionServer.Move)},
		{MethodName: "BuyGold", Handler: unaryHandler(Session_BuyGold_FullMethodName, SessionServer.BuyGold)},
		{MethodName: "Hint", Handler: unaryHandler(Session_Hint_FullMethodName, SessionServer.Hint)},
		{MethodName: "State", Handler: unaryHandler(Session_State_FullMethodName, SessionServer.State)},
		{MethodName: "SessionInfo", Handler: unaryHandler(Session_SessionInfo_FullMethodName, SessionServer.SessionInfo)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "treasuremaze/session.proto",
}

// SessionClient is the client API for the Session service.
type SessionClient interface {
	Join(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Claim(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Move(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	BuyGold(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Hint(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	State(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SessionInfo(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type sessionClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionClient returns a client for the Session service.
func NewSessionClient(cc grpc.ClientConnInterface) SessionClient {
	return &sessionClient{cc}
}

func (c *sessionClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionClient) Join(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Session_Join_FullMethodName, in, opts)
}
func (c *sessionClient) Claim(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Session_Claim_FullMethodName, in, opts)
}
func (c *sessionClient) Move(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Session_Move_FullMethodName, in, opts)
}
func (c *sessionClient) BuyGold(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Session_BuyGold_FullMethodName, in, opts)
}
func (c *sessionClient) Hint(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Session_Hint_FullMethodName, in, opts)
}
func (c *sessionClient) State(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Session_State_FullMethodName, in, opts)
}
func (c *sessionClient) SessionInfo(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Session_SessionInfo_FullMethodName, in, opts)
}
