package remote

import (
	"context"

	"github.com/cschleiden/go-taskhub/coordinator"
	"github.com/cschleiden/go-taskhub/core"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const (
	serviceName = "taskhub.Coordinator"

	completeActivityTaskMethod     = "/" + serviceName + "/CompleteActivityTask"
	completeOrchestratorTaskMethod = "/" + serviceName + "/CompleteOrchestratorTask"
	getWorkItemsMethod             = "/" + serviceName + "/GetWorkItems"
)

type GetWorkItemsRequest struct{}

type Empty struct{}

// CoordinatorServer is the server side of the coordinator service.
type CoordinatorServer interface {
	CompleteActivityTask(context.Context, *core.ActivityResult) (*Empty, error)
	CompleteOrchestratorTask(context.Context, *core.OrchestratorResult) (*Empty, error)
	GetWorkItems(*GetWorkItemsRequest, grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CoordinatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CompleteActivityTask",
			Handler:    completeActivityTaskHandler,
		},
		{
			MethodName: "CompleteOrchestratorTask",
			Handler:    completeOrchestratorTaskHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "GetWorkItems",
			Handler:       getWorkItemsHandler,
			ServerStreams: true,
		},
	},
}

// RegisterCoordinatorServer registers the coordinator service with s. The server must be created
// with ServerCodec.
func RegisterCoordinatorServer(s grpc.ServiceRegistrar, srv CoordinatorServer) {
	s.RegisterService(&serviceDesc, srv)
}

// ServerCodec returns the server option for the codec used by the coordinator service.
func ServerCodec() grpc.ServerOption {
	return grpc.ForceServerCodec(codec{})
}

func completeActivityTaskHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(core.ActivityResult)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(CoordinatorServer).CompleteActivityTask(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: completeActivityTaskMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(CoordinatorServer).CompleteActivityTask(ctx, req.(*core.ActivityResult))
	})
}

func completeOrchestratorTaskHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(core.OrchestratorResult)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(CoordinatorServer).CompleteOrchestratorTask(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: completeOrchestratorTaskMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(CoordinatorServer).CompleteOrchestratorTask(ctx, req.(*core.OrchestratorResult))
	})
}

func getWorkItemsHandler(srv any, stream grpc.ServerStream) error {
	in := new(GetWorkItemsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	return srv.(CoordinatorServer).GetWorkItems(in, stream)
}

type server struct {
	c coordinator.Coordinator
}

// NewServer exposes a coordinator, for example the in-memory one, over the coordinator service.
func NewServer(c coordinator.Coordinator) CoordinatorServer {
	return &server{c: c}
}

func (s *server) CompleteActivityTask(ctx context.Context, result *core.ActivityResult) (*Empty, error) {
	if err := s.c.CompleteActivityTask(ctx, result); err != nil {
		return nil, toStatus(err)
	}

	return &Empty{}, nil
}

func (s *server) CompleteOrchestratorTask(ctx context.Context, result *core.OrchestratorResult) (*Empty, error) {
	if err := s.c.CompleteOrchestratorTask(ctx, result); err != nil {
		return nil, toStatus(err)
	}

	return &Empty{}, nil
}

func (s *server) GetWorkItems(_ *GetWorkItemsRequest, stream grpc.ServerStream) error {
	for {
		wi, err := s.c.GetWorkItem(stream.Context())
		if err != nil {
			return toStatus(err)
		}

		if err := stream.SendMsg(wi); err != nil {
			return err
		}
	}
}

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	return status.FromContextError(err).Err()
}
