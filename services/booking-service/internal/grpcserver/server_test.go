package grpcserver

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/salonmonarch/booking/libs/grpcx"
	"github.com/salonmonarch/booking/services/booking-service/internal/availability"
	"github.com/salonmonarch/booking/services/booking-service/internal/lifecycle"
	"github.com/salonmonarch/booking/services/booking-service/internal/notify"
	"github.com/salonmonarch/booking/services/booking-service/internal/storage"
)

const testDate = "2030-06-10"

func TestSlotService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cal, err := availability.NewCalendar(availability.DefaultConfig())
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	svc := lifecycle.NewService(storage.NewMemoryStore(), cal, notify.Discard{}, lifecycle.Options{Logger: logger})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, clock := range []string{"09:00", "09:30"} {
		_, err := svc.CreateAsAdmin(ctx, lifecycle.Request{
			Name: "Ada", Email: "ada@example.com", Phone: "+15550001",
			Service: "Haircut", Date: testDate, Time: clock, Status: "approved",
		})
		if err != nil {
			t.Fatalf("seed %s: %v", clock, err)
		}
	}
	if _, err := svc.Submit(ctx, lifecycle.Request{
		Name: "Grace", Email: "grace@example.com", Phone: "+15550002",
		Service: "Facial", Date: testDate, Time: "10:00",
	}); err != nil {
		t.Fatalf("seed pending: %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewServer(logger)
	Register(srv, svc)
	go func() {
		_ = srv.Serve(lis)
	}()
	defer srv.Stop()

	conn, err := grpcx.Dial(lis.Addr().String(), grpcx.DialOptions{})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	client := NewSlotClient(conn)

	avail, err := client.AvailableSlots(ctx, testDate)
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	fields := avail.GetFields()
	if got := fields["availableCount"].GetNumberValue(); got != 14 {
		t.Fatalf("expected 14 available, got %v", got)
	}
	if got := fields["bookedCount"].GetNumberValue(); got != 2 {
		t.Fatalf("expected 2 booked, got %v", got)
	}
	if first := fields["slots"].GetListValue().GetValues()[0].GetStringValue(); first != "10:00" {
		t.Fatalf("expected first free slot 10:00, got %s", first)
	}

	statusMap, err := client.SlotStatusMap(ctx, testDate)
	if err != nil {
		t.Fatalf("status map: %v", err)
	}
	slots := statusMap.GetFields()["slots"].GetStructValue().GetFields()
	if slots["09:00"].GetStringValue() != "approved" || slots["10:00"].GetStringValue() != "pending" || slots["10:30"].GetStringValue() != "available" {
		t.Fatalf("unexpected status map %v", slots)
	}

	_, err = client.AvailableSlots(ctx, "not-a-date")
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if hc.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("unexpected health status %v", hc.GetStatus())
	}
}
