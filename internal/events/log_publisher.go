package events

import (
	"context"
	"log/slog"

	"github.com/example/resource-booking/internal/logging"
)

// LogPublisher writes every domain event to the structured log, serving as
// the built-in audit trail.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher constructs a publisher backed by the provided logger.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish implements Publisher. It never fails.
func (p *LogPublisher) Publish(ctx context.Context, event ReservationEvent) error {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = p.logger
	}
	logger.InfoContext(ctx, "domain event",
		"event_type", string(event.Type),
		"reservation_id", event.ReservationID,
		"resource_id", event.ResourceID,
		"resource_name", event.ResourceName,
		"user_id", event.UserID,
		"start", event.Start,
		"end", event.End,
		"status", event.Status,
		"confirmation_code", event.ConfirmationCode,
	)
	return nil
}
