package audit

import (
	"context"
	"fmt"

	"klinik/pkg/kafka"
	"klinik/pkg/middleware"
)

const (
	EventTypeTransition = "reservation.transition"
	EventTypeCreated    = "reservation.created"
	SchemaVersion       = "1"
)

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaRecorder publishes applied transitions keyed by reservation id.
// Rejected and failed attempts stay local.
type KafkaRecorder struct {
	publisher Publisher
	source    string
}

func NewKafkaRecorder(publisher Publisher, source string) *KafkaRecorder {
	return &KafkaRecorder{publisher: publisher, source: source}
}

func (r *KafkaRecorder) Record(ctx context.Context, event Event) error {
	if event.Outcome != OutcomeApplied {
		return nil
	}
	return r.publish(ctx, EventTypeTransition, event)
}

// Created announces a new reservation so other instances drop cached lists.
func (r *KafkaRecorder) Created(ctx context.Context, event Event) error {
	return r.publish(ctx, EventTypeCreated, event)
}

func (r *KafkaRecorder) publish(ctx context.Context, eventType string, event Event) error {
	key := event.ReservationID
	if key == "" {
		key = event.ID
	}
	msg, err := kafka.NewMessage().
		WithKey(key).
		WithValue(event).
		WithEventID(event.ID).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(r.source).
		WithCorrelationID(middleware.RequestIDFrom(ctx)).
		Build()
	if err != nil {
		return err
	}
	if err := r.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event %s: %w", eventType, event.ID, err)
	}
	return nil
}
