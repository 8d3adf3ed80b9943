package handlers

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// gRPC names of the activity service. Messages are google.protobuf.Struct
// values so clients need no generated code.
const (
	ActivityServiceName            = "fieldsnaps.v1.ActivityService"
	MethodListActivity             = "/fieldsnaps.v1.ActivityService/ListActivity"
	MethodCountUnreadNotifications = "/fieldsnaps.v1.ActivityService/CountUnreadNotifications"
)

// ActivityServer is the server API for the activity service.
type ActivityServer interface {
	ListActivity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CountUnreadNotifications(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterActivityServer registers srv on s.
func RegisterActivityServer(s grpc.ServiceRegistrar, srv ActivityServer) {
	s.RegisterService(&activityServiceDesc, srv)
}

var activityServiceDesc = grpc.ServiceDesc{
	ServiceName: ActivityServiceName,
	HandlerType: (*ActivityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListActivity", Handler: unaryHandler(MethodListActivity, ActivityServer.ListActivity)},
		{MethodName: "CountUnreadNotifications", Handler: unaryHandler(MethodCountUnreadNotifications, ActivityServer.CountUnreadNotifications)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fieldsnaps/v1/activity.proto",
}

type structMethod func(ActivityServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ActivityServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ActivityServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ActivityClient calls the activity service.
type ActivityClient struct {
	cc grpc.ClientConnInterface
}

func NewActivityClient(cc grpc.ClientConnInterface) *ActivityClient {
	return &ActivityClient{cc: cc}
}

func (c *ActivityClient) ListActivity(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodListActivity, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ActivityClient) CountUnreadNotifications(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodCountUnreadNotifications, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
