package persistence

import (
	"context"
	"time"
)

// ReservationRepository stores reservations and owns the atomic
// check-then-insert admission operation.
type ReservationRepository interface {
	// CreateReservation checks for overlapping non-cancelled reservations
	// on the same resource and inserts the record in one transaction.
	// It returns ErrConflict when the window is taken; under concurrent
	// calls for the same resource and overlapping window at most one call
	// succeeds.
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	// UpdateReservationStatus transitions a reservation's status in its
	// own transaction and returns the updated record.
	UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) (Reservation, error)
	// FindConflicts returns non-cancelled reservations on the resource
	// overlapping [start, end), optionally excluding one reservation id.
	FindConflicts(ctx context.Context, resourceID string, start, end time.Time, excludeID string) ([]Reservation, error)
	// ListActiveForUser returns pending and confirmed reservations ending
	// at or after now, ordered by start time ascending.
	ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]Reservation, error)
	// ListForPattern returns all reservations generated from a recurring
	// pattern, ordered by start time ascending.
	ListForPattern(ctx context.Context, patternID string) ([]Reservation, error)
}

// ResourceRepository stores resources and their types.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)
	CreateResourceType(ctx context.Context, resourceType ResourceType) error
	GetResourceType(ctx context.Context, id string) (ResourceType, error)
}

// UserRepository stores account references used for lookups and event
// payloads.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
}

// PatternRepository stores recurring reservation patterns.
type PatternRepository interface {
	CreatePattern(ctx context.Context, pattern RecurringPattern) (RecurringPattern, error)
	GetPattern(ctx context.Context, id string) (RecurringPattern, error)
}
