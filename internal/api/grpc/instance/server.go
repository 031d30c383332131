package instance

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the fully-qualified gRPC service name.
	ServiceName = "roguelike.launcher.v1.InstanceService"
	// ShowMethod is the full method path of Show.
	ShowMethod = "/" + ServiceName + "/Show"
	// ShowMessage is the only payload Show accepts.
	ShowMessage = "show"
)

// Service abstracts what the running launcher does on a Show request.
type Service interface {
	Show(ctx context.Context) error
}

// ShowServer is the handler interface of the service descriptor.
type ShowServer interface {
	Show(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error)
}

// Server implements the InstanceService gRPC API.
type Server struct {
	// service brings the launcher to the front.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Show validates the request and forwards it to the service.
func (s *Server) Show(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if req.GetValue() != ShowMessage {
		return nil, status.Errorf(codes.InvalidArgument, "unexpected message %q", req.GetValue())
	}

	if err := s.service.Show(ctx); err != nil {
		return nil, status.Error(codes.Internal, "unable to show launcher")
	}

	return &emptypb.Empty{}, nil
}

// ServiceDesc describes InstanceService for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ShowServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Show",
			Handler:    showHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "roguelike/launcher/v1/instance.proto",
}

// Register attaches the server to a gRPC registrar.
func Register(registrar grpc.ServiceRegistrar, server ShowServer) {
	registrar.RegisterService(&ServiceDesc, server)
}

func showHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ShowServer).Show(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ShowMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ShowServer).Show(ctx, req.(*wrapperspb.StringValue))
	}

	return interceptor(ctx, in, info, handler)
}
