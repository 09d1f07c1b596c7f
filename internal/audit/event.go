// Package audit records every lifecycle transition attempt and fans applied
// transitions out to other reception instances.
package audit

import (
	"context"
	"errors"
	"time"

	"klinik/pkg/model"

	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

type Event struct {
	ID            string       `json:"id" bson:"_id"`
	ReservationID string       `json:"reservationId" bson:"reservation_id"`
	From          model.Status `json:"from" bson:"from"`
	To            model.Status `json:"to" bson:"to"`
	Outcome       Outcome      `json:"outcome" bson:"outcome"`
	Reason        string       `json:"reason,omitempty" bson:"reason,omitempty"`
	DoctorID      string       `json:"doctorId,omitempty" bson:"doctor_id,omitempty"`
	StartTime     *time.Time   `json:"startTime,omitempty" bson:"start_time,omitempty"`
	EndTime       *time.Time   `json:"endTime,omitempty" bson:"end_time,omitempty"`
	// Instance identifies the reception process that produced the event.
	Instance string    `json:"instance" bson:"instance"`
	At       time.Time `json:"at" bson:"at"`
}

func NewEvent(res model.Reservation, to model.Status, outcome Outcome, reason string) Event {
	return Event{
		ID:            uuid.NewString(),
		ReservationID: res.ID,
		From:          res.Status,
		To:            to,
		Outcome:       outcome,
		Reason:        reason,
		DoctorID:      res.DoctorID,
		StartTime:     res.StartTime,
		EndTime:       res.EndTime,
		At:            time.Now().UTC(),
	}
}

type Recorder interface {
	Record(ctx context.Context, event Event) error
}

type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

// Multi records to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, event Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stamped sets Instance on every event before passing it on.
type Stamped struct {
	Instance string
	Next     Recorder
}

func (s Stamped) Record(ctx context.Context, event Event) error {
	event.Instance = s.Instance
	return s.Next.Record(ctx, event)
}
