package lifecycle

import (
	"context"
	"strings"

	"github.com/salonmonarch/booking/services/booking-service/internal/model"
	"github.com/salonmonarch/booking/services/booking-service/internal/notify"
)

// ContactRequest is a general enquiry from the public site.
type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"max=40"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Contact forwards the enquiry to the salon and acknowledges the sender.
// Delivery is best-effort; only invalid input is reported.
func (s *Service) Contact(ctx context.Context, req ContactRequest) (err error) {
	ctx, span := tracer.Start(ctx, "lifecycle.Contact")
	defer func() { finish(span, err) }()

	req.Name = strings.TrimSpace(req.Name)
	req.Email = model.NormalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validate.Struct(req); err != nil {
		return validationError(err)
	}

	msg := model.ContactMessage{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Subject:    req.Subject,
		Message:    req.Message,
		ReceivedAt: s.now().UTC(),
	}
	ctx = context.WithoutCancel(ctx)
	if s.adminEmail != "" {
		s.outbox.Enqueue(ctx, notify.NewContactEvent(notify.KindContact, notify.Recipient{Name: "Salon", Email: s.adminEmail}, msg, msg.ReceivedAt))
	}
	s.outbox.Enqueue(ctx, notify.NewContactEvent(notify.KindContactAck, notify.Recipient{Name: msg.Name, Email: msg.Email, Phone: msg.Phone}, msg, msg.ReceivedAt))
	s.logger.Info("contact message received", "email", msg.Email)
	return nil
}
