package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/salonmonarch/booking/libs/grpcx"
	"github.com/salonmonarch/booking/services/booking-service/internal/grpcserver"
)

type slotQuerier interface {
	AvailableSlots(ctx context.Context, date string, opts ...grpc.CallOption) (*structpb.Struct, error)
	SlotStatusMap(ctx context.Context, date string, opts ...grpc.CallOption) (*structpb.Struct, error)
}

func newSlotsCmd() *cobra.Command {
	var (
		addr    string
		date    string
		status  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Query a running server's slot service over gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := grpcx.Dial(addr, grpcx.DialOptions{})
			if err != nil {
				return fmt.Errorf("dial %s: %w", addr, err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return printSlots(ctx, grpcserver.NewSlotClient(conn), date, status, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:9090", "gRPC address of a running serve command")
	cmd.Flags().StringVar(&date, "date", "", "day to query (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&status, "status", false, "print the per-slot status map instead of free slots")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func printSlots(ctx context.Context, c slotQuerier, date string, status bool, w io.Writer) error {
	query := c.AvailableSlots
	if status {
		query = c.SlotStatusMap
	}
	out, err := query(ctx, date)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(out.AsMap(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(body))
	return err
}
