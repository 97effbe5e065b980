package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/salonmonarch/booking/services/booking-service/internal/availability"
	"github.com/salonmonarch/booking/services/booking-service/internal/model"
	"github.com/salonmonarch/booking/services/booking-service/internal/notify"
)

var tracer = otel.Tracer("github.com/salonmonarch/booking/services/booking-service/internal/lifecycle")

// Store is the persistence the lifecycle needs. Implementations must make the
// approved-slot check and the write a single atomic step.
type Store interface {
	Create(ctx context.Context, a model.Appointment) (model.Appointment, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	List(ctx context.Context, f model.Filter) ([]model.Appointment, error)
	Update(ctx context.Context, id string, p model.Patch, now time.Time) (before, after model.Appointment, err error)
	Delete(ctx context.Context, id string) (model.Appointment, error)
}

type Options struct {
	// AdminEmail receives new-request and contact-form notices. Empty disables them.
	AdminEmail   string
	StoreTimeout time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
}

// Service drives appointments through pending, approved and cancelled and
// raises the matching customer notifications.
type Service struct {
	store        Store
	cal          *availability.Calendar
	outbox       notify.Outbox
	validate     *validator.Validate
	adminEmail   string
	storeTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

func NewService(store Store, cal *availability.Calendar, outbox notify.Outbox, opts Options) *Service {
	if outbox == nil {
		outbox = notify.Discard{}
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 3 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:        store,
		cal:          cal,
		outbox:       outbox,
		validate:     newValidator(),
		adminEmail:   model.NormalizeEmail(opts.AdminEmail),
		storeTimeout: opts.StoreTimeout,
		now:          opts.Now,
		logger:       opts.Logger,
	}
}

// Request is a new appointment as submitted by a customer or an admin.
type Request struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"required,max=40"`
	Service string `json:"serviceType" validate:"required"`
	Date    string `json:"date" validate:"required"`
	Time    string `json:"time" validate:"required"`
	// Status is honoured on the admin path only.
	Status string `json:"status,omitempty"`
}

// EditRequest is a partial update. Nil fields are left untouched.
type EditRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Service *string `json:"serviceType"`
	Date    *string `json:"date"`
	Time    *string `json:"time"`
	Status  *string `json:"status"`
}

// Submit records a public booking request. It is always stored as pending.
func (s *Service) Submit(ctx context.Context, req Request) (a model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "lifecycle.Submit")
	defer func() { finish(span, err) }()

	return s.create(ctx, req, model.StatusPending)
}

// CreateAsAdmin records an appointment on behalf of a customer and may set
// its initial status.
func (s *Service) CreateAsAdmin(ctx context.Context, req Request) (a model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "lifecycle.CreateAsAdmin")
	defer func() { finish(span, err) }()

	status := model.StatusPending
	if strings.TrimSpace(req.Status) != "" {
		if status, err = model.ParseStatus(req.Status); err != nil {
			return model.Appointment{}, err
		}
	}
	return s.create(ctx, req, status)
}

func (s *Service) create(ctx context.Context, req Request, status model.Status) (model.Appointment, error) {
	a, err := s.newAppointment(req, status)
	if err != nil {
		return model.Appointment{}, err
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("appointment.date", a.Date),
		attribute.String("appointment.time", a.Time),
		attribute.String("appointment.status", string(a.Status)),
	)

	// Any new request for a slot that is already approved is refused, even a
	// pending one. The store re-checks approved writes atomically.
	if err := s.ensureSlotOpen(ctx, a.Date, a.Time); err != nil {
		return model.Appointment{}, err
	}

	sctx, cancel := s.storeCtx(ctx)
	created, err := s.store.Create(sctx, a)
	cancel()
	if err != nil {
		return model.Appointment{}, s.storeErr(err)
	}

	s.logger.Info("appointment created",
		"appointment_id", created.ID,
		"date", created.Date,
		"time", created.Time,
		"status", created.Status,
	)
	for _, n := range creationNotices(created.Status) {
		if n.toAdmin {
			s.notifyAdmin(ctx, n.kind, created)
			continue
		}
		s.notifyCustomer(ctx, n.kind, created)
	}
	return created, nil
}

func (s *Service) ensureSlotOpen(ctx context.Context, date, clock string) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	approved, err := s.store.List(sctx, model.Filter{Date: date, Status: model.StatusApproved})
	if err != nil {
		return s.storeErr(err)
	}
	for _, a := range approved {
		if a.Time == clock {
			return fmt.Errorf("%s %s: %w", date, clock, model.ErrSlotConflict)
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, status string) (out []model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "lifecycle.List")
	defer func() { finish(span, err) }()

	var f model.Filter
	if strings.TrimSpace(status) != "" {
		if f.Status, err = model.ParseStatus(status); err != nil {
			return nil, err
		}
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	out, err = s.store.List(sctx, f)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if out == nil {
		out = []model.Appointment{}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (a model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "lifecycle.Get", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer func() { finish(span, err) }()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	a, err = s.store.Get(sctx, id)
	if err != nil {
		return model.Appointment{}, s.storeErr(err)
	}
	return a, nil
}

// Edit applies an admin's partial update. An empty edit returns the stored
// appointment without writing or notifying.
func (s *Service) Edit(ctx context.Context, id string, req EditRequest) (a model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "lifecycle.Edit", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer func() { finish(span, err) }()

	patch, err := s.patchFrom(req)
	if err != nil {
		return model.Appointment{}, err
	}
	if patch.Empty() {
		sctx, cancel := s.storeCtx(ctx)
		defer cancel()
		a, err = s.store.Get(sctx, id)
		if err != nil {
			return model.Appointment{}, s.storeErr(err)
		}
		return a, nil
	}

	before, after, err := s.update(ctx, id, patch)
	if err != nil {
		return model.Appointment{}, err
	}
	s.logger.Info("appointment edited",
		"appointment_id", id,
		"status_from", before.Status,
		"status_to", after.Status,
	)
	s.notifyCustomer(ctx, editNotice(before.Status, after.Status), after)
	return after, nil
}

// SetStatus changes only the status. Approving sends a confirmation and
// cancelling sends a cancellation; returning to pending is silent.
func (s *Service) SetStatus(ctx context.Context, id, status string) (a model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "lifecycle.SetStatus", trace.WithAttributes(
		attribute.String("appointment.id", id),
		attribute.String("appointment.status", status),
	))
	defer func() { finish(span, err) }()

	next, err := model.ParseStatus(status)
	if err != nil {
		return model.Appointment{}, err
	}
	before, after, err := s.update(ctx, id, model.Patch{Status: &next})
	if err != nil {
		return model.Appointment{}, err
	}
	s.logger.Info("appointment status changed",
		"appointment_id", id,
		"status_from", before.Status,
		"status_to", after.Status,
	)
	if kind, ok := statusNotice(before.Status, after.Status); ok {
		s.notifyCustomer(ctx, kind, after)
	}
	return after, nil
}

// Delete removes the appointment and tells the customer it was cancelled.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "lifecycle.Delete", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer func() { finish(span, err) }()

	sctx, cancel := s.storeCtx(ctx)
	removed, err := s.store.Delete(sctx, id)
	cancel()
	if err != nil {
		return s.storeErr(err)
	}
	s.logger.Info("appointment deleted", "appointment_id", id, "status", removed.Status)
	s.notifyCustomer(ctx, notify.KindCancelled, removed)
	return nil
}

func (s *Service) update(ctx context.Context, id string, p model.Patch) (model.Appointment, model.Appointment, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	before, after, err := s.store.Update(sctx, id, p, s.now().UTC())
	if err != nil {
		return model.Appointment{}, model.Appointment{}, s.storeErr(err)
	}
	return before, after, nil
}

// SlotReport is the public availability view of one day.
type SlotReport struct {
	Date           string   `json:"date"`
	Slots          []string `json:"slots"`
	TotalCount     int      `json:"totalCount"`
	BookedCount    int      `json:"bookedCount"`
	AvailableCount int      `json:"availableCount"`
}

func (s *Service) AvailableSlots(ctx context.Context, date string) (r SlotReport, err error) {
	ctx, span := tracer.Start(ctx, "lifecycle.AvailableSlots", trace.WithAttributes(attribute.String("slot.date", date)))
	defer func() { finish(span, err) }()

	day, err := availability.ParseDate(date)
	if err != nil {
		return SlotReport{}, err
	}
	dayKey := day.Format(availability.DateLayout)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	approved, err := s.store.List(sctx, model.Filter{Date: dayKey, Status: model.StatusApproved})
	if err != nil {
		return SlotReport{}, s.storeErr(err)
	}
	taken := make([]availability.Clock, 0, len(approved))
	for _, a := range approved {
		if c, err := availability.ParseClock(a.Time); err == nil {
			taken = append(taken, c)
		}
	}

	total := len(s.cal.EnumerateSlots(day))
	free := s.cal.AvailableSlots(day, taken)
	return SlotReport{
		Date:           dayKey,
		Slots:          availability.Strings(free),
		TotalCount:     total,
		BookedCount:    total - len(free),
		AvailableCount: len(free),
	}, nil
}

// SlotStatusReport maps every slot of a day to its occupancy.
type SlotStatusReport struct {
	Date  string            `json:"date"`
	Slots map[string]string `json:"slots"`
	// Order lists the keys of Slots chronologically.
	Order []string `json:"-"`
}

func (s *Service) SlotStatusMap(ctx context.Context, date string) (r SlotStatusReport, err error) {
	ctx, span := tracer.Start(ctx, "lifecycle.SlotStatusMap", trace.WithAttributes(attribute.String("slot.date", date)))
	defer func() { finish(span, err) }()

	day, err := availability.ParseDate(date)
	if err != nil {
		return SlotStatusReport{}, err
	}
	dayKey := day.Format(availability.DateLayout)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	appts, err := s.store.List(sctx, model.Filter{Date: dayKey})
	if err != nil {
		return SlotStatusReport{}, s.storeErr(err)
	}

	statuses := s.cal.SlotsWithStatus(day, appts)
	order := availability.SortedClocks(statuses)
	out := SlotStatusReport{Date: dayKey, Slots: make(map[string]string, len(statuses)), Order: availability.Strings(order)}
	for _, c := range order {
		out.Slots[c.String()] = string(statuses[c])
	}
	return out, nil
}

// Calendar exposes the grid the service validates against.
func (s *Service) Calendar() *availability.Calendar { return s.cal }

func (s *Service) newAppointment(req Request, status model.Status) (model.Appointment, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = model.NormalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := s.validate.Struct(req); err != nil {
		return model.Appointment{}, validationError(err)
	}
	service, err := model.ParseService(req.Service)
	if err != nil {
		return model.Appointment{}, err
	}
	date, clock, err := s.slotOf(req.Date, req.Time)
	if err != nil {
		return model.Appointment{}, err
	}
	now := s.now().UTC()
	return model.Appointment{
		ID:            uuid.NewString(),
		CustomerName:  req.Name,
		CustomerEmail: req.Email,
		CustomerPhone: req.Phone,
		Service:       service,
		Date:          date,
		Time:          clock,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *Service) slotOf(rawDate, rawTime string) (string, string, error) {
	day, err := availability.ParseDate(rawDate)
	if err != nil {
		return "", "", err
	}
	clock, err := s.onGrid(rawTime)
	if err != nil {
		return "", "", err
	}
	return day.Format(availability.DateLayout), clock, nil
}

func (s *Service) onGrid(raw string) (string, error) {
	c, err := availability.ParseClock(raw)
	if err != nil {
		return "", err
	}
	if !s.cal.OnGrid(c) {
		return "", fmt.Errorf("%w: %s is not a bookable slot", model.ErrValidation, c)
	}
	return c.String(), nil
}

func (s *Service) patchFrom(req EditRequest) (model.Patch, error) {
	var p model.Patch
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 120 {
			return model.Patch{}, fmt.Errorf("%w: name must be 1-120 characters", model.ErrValidation)
		}
		p.CustomerName = &name
	}
	if req.Email != nil {
		email := model.NormalizeEmail(*req.Email)
		if err := s.validate.Var(email, "required,email,max=254"); err != nil {
			return model.Patch{}, fmt.Errorf("%w: email must be a valid email address", model.ErrValidation)
		}
		p.CustomerEmail = &email
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone == "" || len(phone) > 40 {
			return model.Patch{}, fmt.Errorf("%w: phone must be 1-40 characters", model.ErrValidation)
		}
		p.CustomerPhone = &phone
	}
	if req.Service != nil {
		svc, err := model.ParseService(*req.Service)
		if err != nil {
			return model.Patch{}, err
		}
		p.Service = &svc
	}
	if req.Date != nil {
		day, err := availability.ParseDate(*req.Date)
		if err != nil {
			return model.Patch{}, err
		}
		date := day.Format(availability.DateLayout)
		p.Date = &date
	}
	if req.Time != nil {
		clock, err := s.onGrid(*req.Time)
		if err != nil {
			return model.Patch{}, err
		}
		p.Time = &clock
	}
	if req.Status != nil {
		st, err := model.ParseStatus(*req.Status)
		if err != nil {
			return model.Patch{}, err
		}
		p.Status = &st
	}
	return p, nil
}

func (s *Service) notifyCustomer(ctx context.Context, kind notify.Kind, a model.Appointment) {
	s.outbox.Enqueue(context.WithoutCancel(ctx), notify.NewAppointmentEvent(kind, notify.CustomerOf(a), a, s.now().UTC()))
}

func (s *Service) notifyAdmin(ctx context.Context, kind notify.Kind, a model.Appointment) {
	if s.adminEmail == "" {
		s.logger.Debug("admin notice skipped; no admin email configured", "kind", kind)
		return
	}
	to := notify.Recipient{Name: "Salon", Email: s.adminEmail}
	s.outbox.Enqueue(context.WithoutCancel(ctx), notify.NewAppointmentEvent(kind, to, a, s.now().UTC()))
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// storeErr makes sure a store timeout surfaces as ErrTransient whatever the
// backend returned.
func (s *Service) storeErr(err error) error {
	if errors.Is(err, model.ErrTransient) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", model.ErrTransient, err)
	}
	return err
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", model.ErrValidation, fe.Field())
	case "email":
		return fmt.Errorf("%w: %s must be a valid email address", model.ErrValidation, fe.Field())
	case "max":
		return fmt.Errorf("%w: %s must be at most %s characters", model.ErrValidation, fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%w: %s is invalid", model.ErrValidation, fe.Field())
	}
}
