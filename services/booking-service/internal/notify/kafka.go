package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/salonmonarch/booking/libs/kafkax"
)

// messageWriter is the part of kafka.Writer the outbox uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaOutbox publishes events to a topic for a separate notifier process.
// It is an Outbox: encoding or publish failures are logged, never returned.
type KafkaOutbox struct {
	writer messageWriter
	logger *slog.Logger
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NewKafkaWriter returns an async writer keyed by appointment so events for
// one appointment stay ordered on a partition.
func NewKafkaWriter(cfg KafkaConfig, logger *slog.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Error("kafka publish failed", "err", err, "messages", len(msgs))
			}
		},
	}
}

func NewKafkaOutbox(w messageWriter, logger *slog.Logger) *KafkaOutbox {
	return &KafkaOutbox{writer: w, logger: logger}
}

func (o *KafkaOutbox) Enqueue(ctx context.Context, evt Event) {
	raw, err := json.Marshal(evt)
	if err != nil {
		o.logger.Error("notification encode failed", "event_id", evt.ID, "err", err)
		return
	}
	key := evt.ID
	if evt.Appointment != nil {
		key = evt.Appointment.ID
	}
	msg := kafkax.NewMessage(ctx, key, kafkax.EventMeta{EventID: evt.ID, EventType: string(evt.Kind)}, raw)
	if err := o.writer.WriteMessages(ctx, msg); err != nil {
		o.logger.Error("notification publish failed", "event_id", evt.ID, "kind", evt.Kind, "err", err)
	}
}

// Deliverer sends a decoded event. *Dispatcher implements it.
type Deliverer interface {
	Deliver(ctx context.Context, evt Event) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads published events and delivers each at most once: the
// offset is committed before delivery and already-seen event ids are skipped.
type Consumer struct {
	reader  messageReader
	dedupe  Deduper
	deliver Deliverer
	logger  *slog.Logger
}

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
}

func NewKafkaReader(cfg ConsumerConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

func NewConsumer(r messageReader, dedupe Deduper, deliver Deliverer, logger *slog.Logger) *Consumer {
	return &Consumer{reader: r, dedupe: dedupe, deliver: deliver, logger: logger}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	meta := kafkax.ExtractEventMeta(msg)
	ctx, span := tracer.Start(kafkax.ExtractTraceContext(ctx, msg), "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.String("messaging.message_id", meta.EventID),
		),
	)
	defer span.End()

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		// Without a commit the message may come back; skip it now rather
		// than risk a second delivery.
		c.logger.Error("kafka commit failed; message skipped", "event_id", meta.EventID, "err", err)
		span.SetStatus(codes.Error, "commit failed")
		return
	}

	first, err := c.dedupe.FirstSeen(ctx, meta.EventID)
	if err != nil {
		c.logger.Error("dedupe check failed; message skipped", "event_id", meta.EventID, "err", err)
		span.RecordError(err)
		return
	}
	if !first {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return
	}

	var evt Event
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		c.logger.Error("invalid event payload", "event_id", meta.EventID, "err", err)
		span.RecordError(err)
		return
	}
	if err := c.deliver.Deliver(ctx, evt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
