package model

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusApproved, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
	}
}

// Service is one entry of the salon's fixed treatment catalogue.
type Service string

const (
	ServiceHaircut         Service = "Haircut"
	ServiceHairColour      Service = "Hair Colour"
	ServiceFacial          Service = "Facial"
	ServiceGrooming        Service = "Grooming"
	ServiceBridalEventGlam Service = "Bridal & Event Glam"
	ServiceHairTreatments  Service = "Hair Treatments"
)

// Services lists the catalogue in display order.
var Services = []Service{
	ServiceHaircut,
	ServiceHairColour,
	ServiceFacial,
	ServiceGrooming,
	ServiceBridalEventGlam,
	ServiceHairTreatments,
}

func ParseService(raw string) (Service, error) {
	raw = strings.TrimSpace(raw)
	for _, s := range Services {
		if strings.EqualFold(string(s), raw) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown service %q", ErrValidation, raw)
}

// Appointment is a customer's request for one slot. Date is YYYY-MM-DD and
// Time is HH:MM, both in the salon's local time.
type Appointment struct {
	ID            string    `json:"id" bson:"_id"`
	CustomerName  string    `json:"name" bson:"name"`
	CustomerEmail string    `json:"email" bson:"email"`
	CustomerPhone string    `json:"phone" bson:"phone"`
	Service       Service   `json:"serviceType" bson:"serviceType"`
	Date          string    `json:"date" bson:"date"`
	Time          string    `json:"time" bson:"time"`
	Status        Status    `json:"status" bson:"status"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Patch is a partial update. Nil fields keep their stored value.
type Patch struct {
	CustomerName  *string
	CustomerEmail *string
	CustomerPhone *string
	Service       *Service
	Date          *string
	Time          *string
	Status        *Status
}

func (p Patch) Empty() bool {
	return p.CustomerName == nil && p.CustomerEmail == nil && p.CustomerPhone == nil &&
		p.Service == nil && p.Date == nil && p.Time == nil && p.Status == nil
}

// TouchesSlot reports whether the patch may move the appointment in the slot
// index (new date, new time or new status).
func (p Patch) TouchesSlot() bool {
	return p.Date != nil || p.Time != nil || p.Status != nil
}

// Apply returns a copy of a with the patch fields overlaid.
func (p Patch) Apply(a Appointment) Appointment {
	if p.CustomerName != nil {
		a.CustomerName = *p.CustomerName
	}
	if p.CustomerEmail != nil {
		a.CustomerEmail = *p.CustomerEmail
	}
	if p.CustomerPhone != nil {
		a.CustomerPhone = *p.CustomerPhone
	}
	if p.Service != nil {
		a.Service = *p.Service
	}
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.Time != nil {
		a.Time = *p.Time
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	return a
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status Status
	Date   string
}

func (f Filter) Matches(a Appointment) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Date != "" && a.Date != f.Date {
		return false
	}
	return true
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
