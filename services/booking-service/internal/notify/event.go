package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/salonmonarch/booking/services/booking-service/internal/model"
)

// Kind names a notification template.
type Kind string

const (
	KindCreated       Kind = "appointment.created"
	KindAdminNotified Kind = "appointment.admin_notified"
	KindConfirmed     Kind = "appointment.confirmed"
	KindUpdated       Kind = "appointment.updated"
	KindCancelled     Kind = "appointment.cancelled"
	KindContact       Kind = "contact.received"
	KindContactAck    Kind = "contact.acknowledged"
)

// Recipient is who a notification is addressed to.
type Recipient struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Event is one notification to deliver at most once. Appointment is a
// snapshot taken when the event was raised.
type Event struct {
	ID          string                `json:"id"`
	Kind        Kind                  `json:"kind"`
	Recipient   Recipient             `json:"recipient"`
	Appointment *model.Appointment    `json:"appointment,omitempty"`
	Contact     *model.ContactMessage `json:"contact,omitempty"`
	OccurredAt  time.Time             `json:"occurredAt"`
}

func NewAppointmentEvent(kind Kind, to Recipient, a model.Appointment, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Kind:        kind,
		Recipient:   to,
		Appointment: &a,
		OccurredAt:  at,
	}
}

func NewContactEvent(kind Kind, to Recipient, m model.ContactMessage, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Recipient:  to,
		Contact:    &m,
		OccurredAt: at,
	}
}

// CustomerOf addresses the appointment's customer.
func CustomerOf(a model.Appointment) Recipient {
	return Recipient{Name: a.CustomerName, Email: a.CustomerEmail, Phone: a.CustomerPhone}
}

// Outbox accepts events for asynchronous delivery. Enqueue never blocks on
// delivery and never reports delivery failures to the caller.
type Outbox interface {
	Enqueue(ctx context.Context, evt Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Enqueue(context.Context, Event) {}
