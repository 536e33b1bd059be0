// Package bindingrpc serves the binding wrapper over gRPC so clients in
// other languages can construct sessions, compute profiles and read or
// write engine constants by name. Messages are google.protobuf.Struct
// values; the service is registered by hand from ServiceDesc.
package bindingrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "vol2bird.v1.Binding"

// Request and response field names.
const (
	FieldPath       = "path"
	FieldHandle     = "handle"
	FieldName       = "name"
	FieldValue      = "value"
	FieldObjectType = "object_type"
	FieldSource     = "source"
	FieldDate       = "date"
	FieldTime       = "time"
	FieldRows       = "rows"
	FieldCols       = "cols"
	FieldBio        = "bio"
	FieldAll        = "all"
	FieldLayers     = "layers"
	FieldSummary    = "summary"
)

// BindingServer is the server API of the Binding service.
type BindingServer interface {
	New(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Vol2Bird(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAttr(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetAttr(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Close(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Register adds srv to s.
func Register(s grpc.ServiceRegistrar, srv BindingServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unaryHandler(name string, call func(BindingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BindingServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BindingServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the Binding service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BindingServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("New", BindingServer.New),
		unaryHandler("Vol2Bird", BindingServer.Vol2Bird),
		unaryHandler("GetAttr", BindingServer.GetAttr),
		unaryHandler("SetAttr", BindingServer.SetAttr),
		unaryHandler("Close", BindingServer.Close),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vol2bird/v1/binding.proto",
}
