package audit

import (
	"context"

	"klinik/pkg/kafka"
	"klinik/pkg/logger"
)

type Invalidator interface {
	Invalidate(ctx context.Context)
}

// InvalidationHandler drops the local gateway cache whenever another instance
// changes a reservation. Events from this instance are ignored since its own
// mutations already invalidated the cache.
func InvalidationHandler(instance string, cache Invalidator, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		switch msg.GetEventType() {
		case EventTypeTransition, EventTypeCreated:
		default:
			return nil
		}
		if msg.GetSource() == instance {
			return nil
		}

		var event Event
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("decode lifecycle event", err)
		}

		cache.Invalidate(ctx)
		log.Debug("Invalidated gateway cache from remote event",
			"event_id", event.ID,
			"reservation_id", event.ReservationID,
			"to", event.To,
			"source", msg.GetSource(),
		)
		return nil
	}
}
