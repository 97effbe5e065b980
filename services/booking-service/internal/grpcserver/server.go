package grpcserver

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/salonmonarch/booking/libs/grpcx"
	"github.com/salonmonarch/booking/services/booking-service/internal/lifecycle"
	"github.com/salonmonarch/booking/services/booking-service/internal/model"
)

const ServiceName = "salon.slots.v1.SlotService"

// SlotServer answers slot queries. Requests and responses are
// google.protobuf.Struct so no generated code is needed; a request carries
// {"date": "YYYY-MM-DD"}.
type SlotServer interface {
	GetAvailableSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSlotStatusMap(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var slotServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SlotServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAvailableSlots", Handler: unaryHandler("GetAvailableSlots", SlotServer.GetAvailableSlots)},
		{MethodName: "GetSlotStatusMap", Handler: unaryHandler("GetSlotStatusMap", SlotServer.GetSlotStatusMap)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "salon/slots/v1/slots.proto",
}

func unaryHandler(method string, call func(SlotServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SlotServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(SlotServer), ctx, req.(*structpb.Struct))
		})
	}
}

// NewServer builds a gRPC server with tracing, request ids and access logs.
func NewServer(logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerRequestIDInterceptor(),
			grpcx.UnaryServerLoggingInterceptor(logger),
		),
	}
	return grpc.NewServer(append(base, opts...)...)
}

// Register installs the slot service and the standard health service.
func Register(srv *grpc.Server, svc *lifecycle.Service) *health.Server {
	srv.RegisterService(&slotServiceDesc, &server{svc: svc})

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return hs
}

type server struct {
	svc *lifecycle.Service
}

func (s *server) GetAvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rep, err := s.svc.AvailableSlots(ctx, dateOf(req))
	if err != nil {
		return nil, toStatus(err)
	}
	slots := make([]any, len(rep.Slots))
	for i, v := range rep.Slots {
		slots[i] = v
	}
	return newStruct(map[string]any{
		"date":           rep.Date,
		"slots":          slots,
		"totalCount":     rep.TotalCount,
		"bookedCount":    rep.BookedCount,
		"availableCount": rep.AvailableCount,
	})
}

func (s *server) GetSlotStatusMap(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rep, err := s.svc.SlotStatusMap(ctx, dateOf(req))
	if err != nil {
		return nil, toStatus(err)
	}
	slots := make(map[string]any, len(rep.Slots))
	for k, v := range rep.Slots {
		slots[k] = v
	}
	return newStruct(map[string]any{"date": rep.Date, "slots": slots})
}

func dateOf(req *structpb.Struct) string {
	if req == nil {
		return ""
	}
	return req.GetFields()["date"].GetStringValue()
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, model.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrTransient), errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.Unavailable, "storage temporarily unavailable")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
