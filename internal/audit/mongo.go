package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName     = "ReservationTransitions"
	DefaultReadTimeout = 5 * time.Second
	DefaultWriteTimeout = 5 * time.Second
)

type MongoRecorder struct {
	collection   *mongo.Collection
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewMongoRecorder(db *mongo.Database) *MongoRecorder {
	return &MongoRecorder{
		collection:   db.Collection(CollectionName),
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
	}
}

// EnsureIndexes creates the history lookup index. It is idempotent.
func (r *MongoRecorder) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "reservation_id", Value: 1}, {Key: "at", Value: -1}},
		Options: options.Index().SetName("reservation_history"),
	})
	if err != nil {
		return fmt.Errorf("create reservation_history index: %w", err)
	}
	return nil
}

func (r *MongoRecorder) Record(ctx context.Context, event Event) error {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	event.At = event.At.UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert transition event %s: %w", event.ID, err)
	}
	return nil
}

// History returns the newest events for a reservation first.
func (r *MongoRecorder) History(ctx context.Context, reservationID string, limit int64) ([]Event, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"reservation_id": reservationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find transition events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode transition events: %w", err)
	}
	return events, nil
}

// withTimeout keeps an earlier caller deadline.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}
