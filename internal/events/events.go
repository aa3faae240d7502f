// Package events defines the domain events emitted by the reservation
// engine and the publisher boundary external collaborators plug into.
// Publishing is best effort: the engine logs failures and never lets them
// undo a committed booking.
package events

import (
	"context"
	"errors"
	"time"
)

// Type identifies a domain event.
type Type string

const (
	// TypeReservationCreated is emitted after a reservation is admitted.
	TypeReservationCreated Type = "reservation.created"
	// TypeReservationConfirmed is emitted after a pending reservation is
	// approved.
	TypeReservationConfirmed Type = "reservation.confirmed"
	// TypeReservationCancelled is emitted after a reservation is cancelled.
	TypeReservationCancelled Type = "reservation.cancelled"
)

// ReservationEvent is the payload delivered to notification and audit
// collaborators.
type ReservationEvent struct {
	Type             Type
	ReservationID    string
	ResourceID       string
	ResourceName     string
	UserID           string
	UserName         string
	Start            time.Time
	End              time.Time
	Status           string
	ConfirmationCode string
	OccurredAt       time.Time
}

// Publisher delivers domain events to interested collaborators.
type Publisher interface {
	Publish(ctx context.Context, event ReservationEvent) error
}

// Fanout publishes each event to every member publisher. All members are
// attempted even when earlier ones fail; failures are joined.
type Fanout []Publisher

// Publish implements Publisher.
func (f Fanout) Publish(ctx context.Context, event ReservationEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
