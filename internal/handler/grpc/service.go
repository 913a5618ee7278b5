package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "geoip.v1.LookupService"

const (
	lookupMethod      = "/" + ServiceName + "/Lookup"
	batchLookupMethod = "/" + ServiceName + "/BatchLookup"
)

// LookupServiceServer is the server API for the lookup service.
// Messages are protobuf well-known types so no generated code is needed.
type LookupServiceServer interface {
	Lookup(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	BatchLookup(context.Context, *structpb.ListValue) (*structpb.Struct, error)
}

// RegisterLookupServiceServer registers srv on s.
func RegisterLookupServiceServer(s grpc.ServiceRegistrar, srv LookupServiceServer) {
	s.RegisterService(&LookupServiceDesc, srv)
}

// LookupServiceDesc describes the lookup service for grpc.Server.
var LookupServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LookupServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Lookup",
			Handler:    lookupHandler,
		},
		{
			MethodName: "BatchLookup",
			Handler:    batchLookupHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "geoip/v1/lookup.proto",
}

func lookupHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LookupServiceServer).Lookup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: lookupMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LookupServiceServer).Lookup(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func batchLookupHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.ListValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LookupServiceServer).BatchLookup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: batchLookupMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LookupServiceServer).BatchLookup(ctx, req.(*structpb.ListValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the lookup service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Lookup resolves a single IP.
func (c *Client) Lookup(ctx context.Context, ip string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, lookupMethod, wrapperspb.String(ip), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// BatchLookup resolves a list of values; non-string values are reported as invalid.
func (c *Client) BatchLookup(ctx context.Context, ips *structpb.ListValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, batchLookupMethod, ips, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
