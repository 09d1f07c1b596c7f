package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"klinik/pkg/kafka"
	"klinik/pkg/logger"
	"klinik/pkg/middleware"
	"klinik/pkg/model"
)

type mockPublisher struct {
	publishFunc func(ctx context.Context, msg kafka.Message) error
	published   []kafka.Message
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	m.published = append(m.published, msg)
	if m.publishFunc != nil {
		return m.publishFunc(ctx, msg)
	}
	return nil
}

type recorderFunc func(ctx context.Context, event Event) error

func (f recorderFunc) Record(ctx context.Context, event Event) error { return f(ctx, event) }

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) { c.calls++ }

func scheduledReservation() model.Reservation {
	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	return model.Reservation{ID: "r-1", DoctorID: "d-1", Status: model.StatusUnderReview, StartTime: &start, EndTime: &end}
}

// ──────────────────────────────────────────────
// Recorders
// ──────────────────────────────────────────────

func TestNewEvent(t *testing.T) {
	ev := NewEvent(scheduledReservation(), model.StatusScheduled, OutcomeApplied, "")
	if ev.ID == "" || ev.At.IsZero() {
		t.Errorf("expected id and timestamp, got %+v", ev)
	}
	if ev.From != model.StatusUnderReview || ev.To != model.StatusScheduled {
		t.Errorf("unexpected from/to %s -> %s", ev.From, ev.To)
	}
}

func TestMulti_RecordsEverywhereAndJoinsErrors(t *testing.T) {
	var seen int
	errA := errors.New("mongo down")
	m := Multi{
		recorderFunc(func(context.Context, Event) error { seen++; return errA }),
		recorderFunc(func(context.Context, Event) error { seen++; return nil }),
	}

	err := m.Record(context.Background(), Event{ID: "e-1"})
	if seen != 2 {
		t.Errorf("expected both recorders called, got %d", seen)
	}
	if !errors.Is(err, errA) {
		t.Errorf("expected joined error to contain errA, got %v", err)
	}
}

func TestStamped_SetsInstance(t *testing.T) {
	var got Event
	s := Stamped{Instance: "reception-a", Next: recorderFunc(func(_ context.Context, e Event) error { got = e; return nil })}
	_ = s.Record(context.Background(), Event{ID: "e-1"})
	if got.Instance != "reception-a" {
		t.Errorf("expected instance reception-a, got %q", got.Instance)
	}
}

func TestKafkaRecorder_PublishesAppliedOnly(t *testing.T) {
	pub := &mockPublisher{}
	r := NewKafkaRecorder(pub, "reception-a")
	ctx := context.Background()
	res := scheduledReservation()

	_ = r.Record(ctx, NewEvent(res, model.StatusScheduled, OutcomeRejected, "slot taken"))
	_ = r.Record(ctx, NewEvent(res, model.StatusScheduled, OutcomeFailed, "timeout"))
	if err := r.Record(ctx, NewEvent(res, model.StatusScheduled, OutcomeApplied, "")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.published))
	}
	msg := pub.published[0]
	if msg.Key != "r-1" || msg.GetEventType() != EventTypeTransition || msg.GetSource() != "reception-a" {
		t.Errorf("unexpected message metadata: key=%s headers=%v", msg.Key, msg.Headers)
	}
	var decoded Event
	if err := msg.DecodeValue(&decoded); err != nil || decoded.To != model.StatusScheduled {
		t.Errorf("unexpected payload %+v, %v", decoded, err)
	}
}

func TestKafkaRecorder_CarriesRequestID(t *testing.T) {
	pub := &mockPublisher{}
	r := NewKafkaRecorder(pub, "reception-a")
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")

	if err := r.Created(ctx, NewEvent(model.Reservation{}, model.StatusCreated, OutcomeApplied, "WEBSITE")); err != nil {
		t.Fatalf("Created: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.published))
	}
	if got := pub.published[0].GetCorrelationID(); got != "req-42" {
		t.Errorf("expected correlation id req-42, got %q", got)
	}
	if pub.published[0].GetEventType() != EventTypeCreated {
		t.Errorf("unexpected event type %q", pub.published[0].GetEventType())
	}
}

func TestKafkaRecorder_WrapsPublishError(t *testing.T) {
	boom := errors.New("broker down")
	pub := &mockPublisher{publishFunc: func(context.Context, kafka.Message) error { return boom }}
	r := NewKafkaRecorder(pub, "reception-a")

	err := r.Created(context.Background(), Event{ID: "e-1", ReservationID: "r-9"})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped publish error, got %v", err)
	}
}

// ──────────────────────────────────────────────
// Invalidation listener
// ──────────────────────────────────────────────

func TestInvalidationHandler(t *testing.T) {
	build := func(eventType, source string) kafka.Message {
		msg, err := kafka.NewMessage().WithKey("r-1").WithValue(Event{ID: "e-1", ReservationID: "r-1"}).
			WithEventType(eventType).WithSource(source).Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		return msg
	}

	tests := []struct {
		name      string
		msg       kafka.Message
		wantCalls int
	}{
		{name: "remote transition", msg: build(EventTypeTransition, "reception-b"), wantCalls: 1},
		{name: "remote create", msg: build(EventTypeCreated, "reception-b"), wantCalls: 1},
		{name: "own event", msg: build(EventTypeTransition, "reception-a"), wantCalls: 0},
		{name: "unrelated event", msg: build("doctor.updated", "reception-b"), wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &countingInvalidator{}
			h := InvalidationHandler("reception-a", inv, logger.Discard())
			if err := h(context.Background(), tt.msg); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if inv.calls != tt.wantCalls {
				t.Errorf("expected %d invalidations, got %d", tt.wantCalls, inv.calls)
			}
		})
	}
}

func TestInvalidationHandler_UndecodablePayloadIsPermanent(t *testing.T) {
	msg := kafka.Message{
		Key:     "r-1",
		Value:   []byte("not json"),
		Headers: map[string]string{kafka.HeaderEventType: EventTypeTransition, kafka.HeaderSource: "reception-b"},
	}
	inv := &countingInvalidator{}
	err := InvalidationHandler("reception-a", inv, logger.Discard())(context.Background(), msg)
	if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
		t.Errorf("expected permanent error, got %v", err)
	}
	if inv.calls != 0 {
		t.Errorf("should not invalidate on bad payload")
	}
}
