package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/salonmonarch/booking/services/booking-service/internal/model"
)

type slotKey struct {
	date string
	time string
}

func keyOf(a model.Appointment) slotKey {
	return slotKey{date: a.Date, time: a.Time}
}

// MemoryStore keeps appointments in process. One mutex covers the records and
// the approved-slot index, so the conflict check and the write are atomic.
type MemoryStore struct {
	mu       sync.Mutex
	byID     map[string]model.Appointment
	approved map[slotKey]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     map[string]model.Appointment{},
		approved: map[slotKey]string{},
	}
}

func (s *MemoryStore) Create(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return model.Appointment{}, wrapTransient("create appointment", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[a.ID]; ok {
		return model.Appointment{}, fmt.Errorf("create appointment: duplicate id %q", a.ID)
	}
	if a.Status == model.StatusApproved {
		if _, taken := s.approved[keyOf(a)]; taken {
			return model.Appointment{}, fmt.Errorf("create appointment: %w", model.ErrSlotConflict)
		}
		s.approved[keyOf(a)] = a.ID
	}
	s.byID[a.ID] = a
	return a, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (model.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return model.Appointment{}, wrapTransient("get appointment", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return model.Appointment{}, fmt.Errorf("get appointment: %w", model.ErrNotFound)
	}
	return a, nil
}

func (s *MemoryStore) List(ctx context.Context, f model.Filter) ([]model.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapTransient("list appointments", err)
	}
	s.mu.Lock()
	out := make([]model.Appointment, 0, len(s.byID))
	for _, a := range s.byID {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	s.mu.Unlock()

	sortAppointments(out)
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, p model.Patch, now time.Time) (model.Appointment, model.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return model.Appointment{}, model.Appointment{}, wrapTransient("update appointment", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before, ok := s.byID[id]
	if !ok {
		return model.Appointment{}, model.Appointment{}, fmt.Errorf("update appointment: %w", model.ErrNotFound)
	}
	after := p.Apply(before)
	after.UpdatedAt = now

	if after.Status == model.StatusApproved {
		if holder, taken := s.approved[keyOf(after)]; taken && holder != id {
			return model.Appointment{}, model.Appointment{}, fmt.Errorf("update appointment: %w", model.ErrSlotConflict)
		}
	}
	if before.Status == model.StatusApproved {
		delete(s.approved, keyOf(before))
	}
	if after.Status == model.StatusApproved {
		s.approved[keyOf(after)] = id
	}
	s.byID[id] = after
	return before, after, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) (model.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return model.Appointment{}, wrapTransient("delete appointment", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return model.Appointment{}, fmt.Errorf("delete appointment: %w", model.ErrNotFound)
	}
	if a.Status == model.StatusApproved {
		delete(s.approved, keyOf(a))
	}
	delete(s.byID, id)
	return a, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func sortAppointments(out []model.Appointment) {
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// MemoryAdminStore keeps admin accounts in process.
type MemoryAdminStore struct {
	mu      sync.RWMutex
	byID    map[string]model.Admin
	byEmail map[string]string
}

func NewMemoryAdminStore() *MemoryAdminStore {
	return &MemoryAdminStore{byID: map[string]model.Admin{}, byEmail: map[string]string{}}
}

func (s *MemoryAdminStore) CreateAdmin(_ context.Context, a model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[a.Email]; ok {
		return fmt.Errorf("create admin: %w", model.ErrAdminExists)
	}
	s.byID[a.ID] = a
	s.byEmail[a.Email] = a.ID
	return nil
}

func (s *MemoryAdminStore) AdminByEmail(_ context.Context, email string) (model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return model.Admin{}, fmt.Errorf("admin by email: %w", model.ErrAdminNotFound)
	}
	return s.byID[id], nil
}

func (s *MemoryAdminStore) AdminByID(_ context.Context, id string) (model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return model.Admin{}, fmt.Errorf("admin by id: %w", model.ErrAdminNotFound)
	}
	return a, nil
}
