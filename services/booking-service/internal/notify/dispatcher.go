package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/salonmonarch/booking/services/booking-service/internal/notify")

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher delivers events on a small worker pool. It is the in-process
// Outbox: Enqueue hands the event to a bounded queue and returns at once.
// Every event is attempted at most once; failures are logged and dropped.
type Dispatcher struct {
	email       EmailSender
	sms         SMSSender
	logger      *slog.Logger
	queue       chan queued
	workers     int
	sendTimeout time.Duration

	startOnce sync.Once
	wg        sync.WaitGroup
}

type queued struct {
	ctx context.Context
	evt Event
}

func NewDispatcher(email EmailSender, sms SMSSender, logger *slog.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if sms == nil {
		sms = NoopSMSSender{}
	}
	return &Dispatcher{
		email:       email,
		sms:         sms,
		logger:      logger,
		queue:       make(chan queued, cfg.QueueSize),
		workers:     cfg.Workers,
		sendTimeout: cfg.SendTimeout,
	}
}

// Enqueue never blocks. When the queue is full the event is dropped.
func (d *Dispatcher) Enqueue(ctx context.Context, evt Event) {
	select {
	case d.queue <- queued{ctx: context.WithoutCancel(ctx), evt: evt}:
	default:
		d.logger.Warn("notification dropped; queue full",
			"event_id", evt.ID,
			"kind", evt.Kind,
		)
	}
}

// Run starts the workers and blocks until ctx is done and they have exited.
// Events still queued at shutdown are logged as undelivered.
func (d *Dispatcher) Run(ctx context.Context) {
	d.startOnce.Do(func() {
		for range d.workers {
			d.wg.Add(1)
			go d.work(ctx)
		}
	})
	<-ctx.Done()
	d.wg.Wait()

	for {
		select {
		case q := <-d.queue:
			d.logger.Warn("notification undelivered at shutdown", "event_id", q.evt.ID, "kind", q.evt.Kind)
		default:
			return
		}
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-d.queue:
			_ = d.Deliver(q.ctx, q.evt)
		}
	}
}

// Deliver renders and sends evt synchronously. Failures are logged and
// returned; callers must not retry.
func (d *Dispatcher) Deliver(ctx context.Context, evt Event) (err error) {
	ctx, span := tracer.Start(ctx, "notify.Deliver", trace.WithAttributes(
		attribute.String("notification.kind", string(evt.Kind)),
		attribute.String("notification.event_id", evt.ID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			d.logger.Error("notification failed",
				"event_id", evt.ID,
				"kind", evt.Kind,
				"to", evt.Recipient.Email,
				"err", err,
			)
		}
		span.End()
	}()

	msg, err := Render(evt)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	var errs []error
	if evt.Recipient.Email != "" {
		if err := d.email.Send(ctx, evt.Recipient.Email, msg.Subject, msg.Body); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}
	if msg.SMS != "" && evt.Recipient.Phone != "" {
		if err := d.sms.Send(ctx, evt.Recipient.Phone, msg.SMS); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.sms.ProviderID(), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	d.logger.Info("notification sent", "event_id", evt.ID, "kind", evt.Kind, "to", evt.Recipient.Email)
	return nil
}
