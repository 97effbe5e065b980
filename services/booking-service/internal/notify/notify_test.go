package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/salonmonarch/booking/libs/kafkax"
	"github.com/salonmonarch/booking/services/booking-service/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleAppointment() model.Appointment {
	return model.Appointment{
		ID:            "appt-1",
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		CustomerPhone: "+15550001",
		Service:       model.ServiceFacial,
		Date:          "2025-03-14",
		Time:          "10:30",
		Status:        model.StatusApproved,
	}
}

type sentMail struct{ to, subject, body string }

type fakeEmail struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeEmail) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func (f *fakeEmail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSMS) ProviderID() string { return "fake-sms" }

func (f *fakeSMS) Send(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+": "+body)
	return nil
}

func TestRenderConfirmed(t *testing.T) {
	a := sampleAppointment()
	msg, err := Render(NewAppointmentEvent(KindConfirmed, CustomerOf(a), a, time.Now()))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.Subject != "Your Appointment is Confirmed" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	for _, want := range []string{"Dear Ada Lovelace", "Service: Facial", "Date: 2025-03-14", "Time: 10:30"} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, msg.Body)
		}
	}
	if !strings.Contains(msg.SMS, "confirmed") {
		t.Fatalf("expected sms text, got %q", msg.SMS)
	}
}

func TestRenderCreatedHasNoSMS(t *testing.T) {
	a := sampleAppointment()
	msg, err := Render(NewAppointmentEvent(KindCreated, CustomerOf(a), a, time.Now()))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.SMS != "" {
		t.Fatalf("expected email-only message, got sms %q", msg.SMS)
	}
}

func TestRenderContactSubject(t *testing.T) {
	m := model.ContactMessage{Name: "Grace", Email: "grace@example.com", Message: "Do you do beard trims?"}
	msg, err := Render(NewContactEvent(KindContact, Recipient{Email: "owner@example.com"}, m, time.Now()))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.Subject != "New Contact Form Message from Grace" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "beard trims") {
		t.Fatalf("body missing message text")
	}
}

func TestRenderRejectsUnknownKind(t *testing.T) {
	a := sampleAppointment()
	if _, err := Render(NewAppointmentEvent(Kind("nope"), CustomerOf(a), a, time.Now())); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if _, err := Render(Event{ID: "x", Kind: KindConfirmed}); err == nil {
		t.Fatalf("expected error for event without payload")
	}
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	raw := buildMessage("salon@example.com", "ada@example.com", "hi\r\nBcc: evil@example.com", "line1\nline2", at)
	if strings.Contains(raw, "\r\nBcc:") {
		t.Fatalf("subject newline leaked into headers:\n%s", raw)
	}
	if !strings.Contains(raw, "line1\r\nline2") {
		t.Fatalf("body line endings not normalised:\n%q", raw)
	}
}

func TestDeliverSendsEmailAndSMS(t *testing.T) {
	email := &fakeEmail{}
	sms := &fakeSMS{}
	d := NewDispatcher(email, sms, discardLogger(), DispatcherConfig{})

	a := sampleAppointment()
	if err := d.Deliver(context.Background(), NewAppointmentEvent(KindCancelled, CustomerOf(a), a, time.Now())); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if email.count() != 1 || email.sent[0].to != "ada@example.com" {
		t.Fatalf("unexpected email sends: %+v", email.sent)
	}
	if len(sms.sent) != 1 || !strings.HasPrefix(sms.sent[0], "+15550001: ") {
		t.Fatalf("unexpected sms sends: %+v", sms.sent)
	}
}

func TestDeliverReportsFailureButStillTriesSMS(t *testing.T) {
	email := &fakeEmail{err: errors.New("relay down")}
	sms := &fakeSMS{}
	d := NewDispatcher(email, sms, discardLogger(), DispatcherConfig{})

	a := sampleAppointment()
	err := d.Deliver(context.Background(), NewAppointmentEvent(KindConfirmed, CustomerOf(a), a, time.Now()))
	if err == nil || !strings.Contains(err.Error(), "relay down") {
		t.Fatalf("expected email failure, got %v", err)
	}
	if len(sms.sent) != 1 {
		t.Fatalf("expected sms to be attempted, got %d", len(sms.sent))
	}
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	d := NewDispatcher(&fakeEmail{}, nil, discardLogger(), DispatcherConfig{QueueSize: 1})
	a := sampleAppointment()
	evt := NewAppointmentEvent(KindCreated, CustomerOf(a), a, time.Now())

	done := make(chan struct{})
	go func() {
		d.Enqueue(context.Background(), evt)
		d.Enqueue(context.Background(), evt)
		d.Enqueue(context.Background(), evt)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("enqueue blocked on a full queue")
	}
	if got := len(d.queue); got != 1 {
		t.Fatalf("expected 1 queued event, got %d", got)
	}
}

func TestRunDeliversQueuedEvents(t *testing.T) {
	email := &fakeEmail{}
	d := NewDispatcher(email, nil, discardLogger(), DispatcherConfig{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(stopped)
	}()

	a := sampleAppointment()
	// A cancelled request context must not stop delivery.
	reqCtx, reqCancel := context.WithCancel(context.Background())
	d.Enqueue(reqCtx, NewAppointmentEvent(KindCreated, CustomerOf(a), a, time.Now()))
	reqCancel()

	deadline := time.Now().Add(2 * time.Second)
	for email.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-stopped
	if email.count() != 1 {
		t.Fatalf("expected one delivery, got %d", email.count())
	}
}

func TestWebhookSender(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, "secret")
	if err := s.Send(context.Background(), "+15550001", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["to"] != "+15550001" || got["body"] != "hello" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", auth)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	if err := NewWebhookSender(failing.URL, "").Send(context.Background(), "+1", "x"); err == nil {
		t.Fatalf("expected error on 502")
	}
}

func TestMemoryDeduper(t *testing.T) {
	d := NewMemoryDeduper(2)
	ctx := context.Background()
	steps := []struct {
		id   string
		want bool
	}{
		{"a", true},
		{"a", false},
		{"b", true},
		{"c", true}, // evicts a
		{"b", false},
		{"a", true},
	}
	for i, s := range steps {
		got, err := d.FirstSeen(ctx, s.id)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got != s.want {
			t.Fatalf("step %d (%s): expected %v, got %v", i, s.id, s.want, got)
		}
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaOutboxPublishesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	out := NewKafkaOutbox(w, discardLogger())
	a := sampleAppointment()
	evt := NewAppointmentEvent(KindConfirmed, CustomerOf(a), a, time.Now())

	out.Enqueue(context.Background(), evt)

	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != a.ID {
		t.Fatalf("expected key %q, got %q", a.ID, msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != evt.ID || meta.EventType != string(KindConfirmed) {
		t.Fatalf("unexpected meta %+v", meta)
	}
	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Appointment == nil || decoded.Appointment.Time != "10:30" {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}

func TestKafkaOutboxSwallowsPublishError(t *testing.T) {
	out := NewKafkaOutbox(&fakeWriter{err: errors.New("broker down")}, discardLogger())
	a := sampleAppointment()
	out.Enqueue(context.Background(), NewAppointmentEvent(KindCreated, CustomerOf(a), a, time.Now()))
}

type fakeReader struct {
	msgs      []kafka.Message
	commitErr error
	committed int
	stop      context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.stop()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(context.Context, ...kafka.Message) error {
	if r.commitErr != nil {
		return r.commitErr
	}
	r.committed++
	return nil
}

func (r *fakeReader) Close() error { return nil }

type recordingDeliverer struct{ got []Event }

func (d *recordingDeliverer) Deliver(_ context.Context, evt Event) error {
	d.got = append(d.got, evt)
	return nil
}

func encodedMessage(t *testing.T, evt Event) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return kafkax.NewMessage(context.Background(), evt.ID, kafkax.EventMeta{EventID: evt.ID, EventType: string(evt.Kind)}, raw)
}

func TestConsumerDeliversEachEventOnce(t *testing.T) {
	a := sampleAppointment()
	evt := NewAppointmentEvent(KindConfirmed, CustomerOf(a), a, time.Now())
	msg := encodedMessage(t, evt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{
		msgs: []kafka.Message{msg, msg, {Value: []byte("not json"), Key: []byte("bad")}},
		stop: cancel,
	}
	deliverer := &recordingDeliverer{}

	NewConsumer(reader, NewMemoryDeduper(16), deliverer, discardLogger()).Run(ctx)

	if len(deliverer.got) != 1 || deliverer.got[0].ID != evt.ID {
		t.Fatalf("expected a single delivery of %s, got %+v", evt.ID, deliverer.got)
	}
	if reader.committed != 3 {
		t.Fatalf("expected every message committed, got %d", reader.committed)
	}
}

func TestConsumerSkipsWhenCommitFails(t *testing.T) {
	a := sampleAppointment()
	evt := NewAppointmentEvent(KindConfirmed, CustomerOf(a), a, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{
		msgs:      []kafka.Message{encodedMessage(t, evt)},
		commitErr: errors.New("rebalance"),
		stop:      cancel,
	}
	deliverer := &recordingDeliverer{}

	NewConsumer(reader, NewMemoryDeduper(16), deliverer, discardLogger()).Run(ctx)

	if len(deliverer.got) != 0 {
		t.Fatalf("expected no delivery without a commit, got %d", len(deliverer.got))
	}
}
