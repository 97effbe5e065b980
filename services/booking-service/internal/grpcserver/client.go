package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// SlotClient calls SlotService over an existing connection.
type SlotClient struct {
	cc grpc.ClientConnInterface
}

func NewSlotClient(cc grpc.ClientConnInterface) *SlotClient {
	return &SlotClient{cc: cc}
}

func (c *SlotClient) AvailableSlots(ctx context.Context, date string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetAvailableSlots", date, opts...)
}

func (c *SlotClient) SlotStatusMap(ctx context.Context, date string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetSlotStatusMap", date, opts...)
}

func (c *SlotClient) invoke(ctx context.Context, method, date string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"date": date})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
