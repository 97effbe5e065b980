package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/salonmonarch/booking/services/booking-service/internal/model"
)

type appointmentStore interface {
	Create(ctx context.Context, a model.Appointment) (model.Appointment, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	List(ctx context.Context, f model.Filter) ([]model.Appointment, error)
	Update(ctx context.Context, id string, p model.Patch, now time.Time) (model.Appointment, model.Appointment, error)
	Delete(ctx context.Context, id string) (model.Appointment, error)
}

var testNow = time.Date(2030, 3, 1, 8, 0, 0, 0, time.UTC)

func newAppointment(date, clock string, status model.Status) model.Appointment {
	return model.Appointment{
		ID:            uuid.NewString(),
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		CustomerPhone: "+15550100",
		Service:       model.ServiceHaircut,
		Date:          date,
		Time:          clock,
		Status:        status,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
}

func ptr[T any](v T) *T { return &v }

// runStoreSuite exercises the behaviour every appointment backend shares.
// date must be unique per run so shared databases do not interfere.
func runStoreSuite(t *testing.T, s appointmentStore, date string) {
	ctx := context.Background()

	t.Run("second approved create in slot conflicts", func(t *testing.T) {
		if _, err := s.Create(ctx, newAppointment(date, "10:00", model.StatusApproved)); err != nil {
			t.Fatalf("first create failed: %v", err)
		}
		_, err := s.Create(ctx, newAppointment(date, "10:00", model.StatusApproved))
		if !errors.Is(err, model.ErrSlotConflict) {
			t.Fatalf("expected ErrSlotConflict, got %v", err)
		}
		if _, err := s.Create(ctx, newAppointment(date, "10:00", model.StatusPending)); err != nil {
			t.Fatalf("pending in an approved slot should be storable: %v", err)
		}
	})

	t.Run("update to approved conflicts and leaves record unchanged", func(t *testing.T) {
		p, err := s.Create(ctx, newAppointment(date, "10:00", model.StatusPending))
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		_, _, err = s.Update(ctx, p.ID, model.Patch{Status: ptr(model.StatusApproved)}, testNow.Add(time.Minute))
		if !errors.Is(err, model.ErrSlotConflict) {
			t.Fatalf("expected ErrSlotConflict, got %v", err)
		}
		got, err := s.Get(ctx, p.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Status != model.StatusPending {
			t.Fatalf("failed update must not persist, status=%s", got.Status)
		}
	})

	t.Run("approved record may be re-saved in its own slot", func(t *testing.T) {
		a, err := s.Create(ctx, newAppointment(date, "11:00", model.StatusApproved))
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		before, after, err := s.Update(ctx, a.ID, model.Patch{CustomerName: ptr("Janet"), Status: ptr(model.StatusApproved)}, testNow.Add(time.Hour))
		if err != nil {
			t.Fatalf("self update failed: %v", err)
		}
		if before.CustomerName != "Jane Doe" || after.CustomerName != "Janet" || after.Time != "11:00" {
			t.Fatalf("unexpected before/after: %+v / %+v", before, after)
		}
		if !after.UpdatedAt.Equal(testNow.Add(time.Hour)) {
			t.Fatalf("expected updatedAt to advance, got %s", after.UpdatedAt)
		}
	})

	t.Run("cancelling frees the slot", func(t *testing.T) {
		a, err := s.Create(ctx, newAppointment(date, "12:00", model.StatusApproved))
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if _, _, err := s.Update(ctx, a.ID, model.Patch{Status: ptr(model.StatusCancelled)}, testNow); err != nil {
			t.Fatalf("cancel failed: %v", err)
		}
		if _, err := s.Create(ctx, newAppointment(date, "12:00", model.StatusApproved)); err != nil {
			t.Fatalf("slot should be free after cancel: %v", err)
		}
	})

	t.Run("moving an approved appointment frees its old slot", func(t *testing.T) {
		a, err := s.Create(ctx, newAppointment(date, "13:00", model.StatusApproved))
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if _, _, err := s.Update(ctx, a.ID, model.Patch{Time: ptr("13:30")}, testNow); err != nil {
			t.Fatalf("move failed: %v", err)
		}
		if _, err := s.Create(ctx, newAppointment(date, "13:00", model.StatusApproved)); err != nil {
			t.Fatalf("old slot should be free: %v", err)
		}
		if _, err := s.Create(ctx, newAppointment(date, "13:30", model.StatusApproved)); !errors.Is(err, model.ErrSlotConflict) {
			t.Fatalf("new slot should be taken, got %v", err)
		}
	})

	t.Run("delete returns snapshot and frees the slot", func(t *testing.T) {
		a, err := s.Create(ctx, newAppointment(date, "14:00", model.StatusApproved))
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		removed, err := s.Delete(ctx, a.ID)
		if err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if removed.ID != a.ID || removed.Status != model.StatusApproved {
			t.Fatalf("unexpected snapshot %+v", removed)
		}
		if _, err := s.Get(ctx, a.ID); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if _, err := s.Delete(ctx, a.ID); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
		if _, err := s.Create(ctx, newAppointment(date, "14:00", model.StatusApproved)); err != nil {
			t.Fatalf("slot should be free after delete: %v", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		missing := uuid.NewString()
		if _, err := s.Get(ctx, missing); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, _, err := s.Update(ctx, missing, model.Patch{CustomerName: ptr("x")}, testNow); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list filters and orders", func(t *testing.T) {
		all, err := s.List(ctx, model.Filter{Date: date})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(all) == 0 {
			t.Fatal("expected appointments on the test date")
		}
		for i := 1; i < len(all); i++ {
			if all[i-1].Time > all[i].Time {
				t.Fatalf("list not ordered by time: %s before %s", all[i-1].Time, all[i].Time)
			}
		}
		approved, err := s.List(ctx, model.Filter{Date: date, Status: model.StatusApproved})
		if err != nil {
			t.Fatalf("list approved failed: %v", err)
		}
		seen := map[string]bool{}
		for _, a := range approved {
			if a.Status != model.StatusApproved {
				t.Fatalf("filter leaked status %s", a.Status)
			}
			if seen[a.Time] {
				t.Fatalf("two approved appointments at %s", a.Time)
			}
			seen[a.Time] = true
		}
	})

	t.Run("concurrent approvals have exactly one winner", func(t *testing.T) {
		const n = 8
		ids := make([]string, n)
		for i := range n {
			a, err := s.Create(ctx, newAppointment(date, "15:00", model.StatusPending))
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}
			ids[i] = a.ID
		}

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			wins      int
			conflicts int
		)
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, _, err := s.Update(ctx, id, model.Patch{Status: ptr(model.StatusApproved)}, testNow)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, model.ErrSlotConflict):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(id)
		}
		wg.Wait()
		if wins != 1 || conflicts != n-1 {
			t.Fatalf("expected 1 winner and %d conflicts, got %d and %d", n-1, wins, conflicts)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore(), "2030-03-02")
}

func TestMemoryStore_CancelledContextIsTransient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	_, err := NewMemoryStore().Create(ctx, newAppointment("2030-03-02", "09:00", model.StatusPending))
	if !errors.Is(err, model.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestMemoryAdminStore(t *testing.T) {
	runAdminSuite(t, NewMemoryAdminStore())
}

type adminStore interface {
	CreateAdmin(ctx context.Context, a model.Admin) error
	AdminByEmail(ctx context.Context, email string) (model.Admin, error)
	AdminByID(ctx context.Context, id string) (model.Admin, error)
}

func runAdminSuite(t *testing.T, s adminStore) {
	ctx := context.Background()
	email := uuid.NewString()[:8] + "@salon.test"
	a := model.Admin{ID: uuid.NewString(), Email: email, PasswordHash: "hash", CreatedAt: testNow}
	if err := s.CreateAdmin(ctx, a); err != nil {
		t.Fatalf("CreateAdmin failed: %v", err)
	}
	dup := a
	dup.ID = uuid.NewString()
	if err := s.CreateAdmin(ctx, dup); !errors.Is(err, model.ErrAdminExists) {
		t.Fatalf("expected ErrAdminExists, got %v", err)
	}
	got, err := s.AdminByEmail(ctx, email)
	if err != nil || got.ID != a.ID {
		t.Fatalf("AdminByEmail: got %+v, %v", got, err)
	}
	if _, err := s.AdminByID(ctx, a.ID); err != nil {
		t.Fatalf("AdminByID failed: %v", err)
	}
	if _, err := s.AdminByID(ctx, uuid.NewString()); !errors.Is(err, model.ErrAdminNotFound) {
		t.Fatalf("expected ErrAdminNotFound, got %v", err)
	}
}
