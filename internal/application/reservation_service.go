package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/resource-booking/internal/booking"
	"github.com/example/resource-booking/internal/events"
	"github.com/example/resource-booking/internal/persistence"
	"github.com/example/resource-booking/internal/policy"
)

// ReservationRepository captures the persistence interactions needed by the
// admission engine. CreateReservation must perform its conflict check and
// insert as one atomic unit; see the persistence package for the contract.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, status Status, updatedAt time.Time) (Reservation, error)
	FindConflicts(ctx context.Context, resourceID string, start, end time.Time, excludeID string) ([]Reservation, error)
	ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]Reservation, error)
	ListForPattern(ctx context.Context, patternID string) ([]Reservation, error)
}

// ResourceCatalog exposes read-only resource and resource type lookups.
type ResourceCatalog interface {
	GetResource(ctx context.Context, id string) (Resource, error)
	GetResourceType(ctx context.Context, id string) (ResourceType, error)
}

// UserDirectory exposes read-only user lookups.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// ReservationService is the admission engine: it resolves the validation
// policy for a resource, runs it, delegates the atomic check-then-insert to
// the repository, drives cancel/confirm transitions, and emits domain
// events.
type ReservationService struct {
	reservations  ReservationRepository
	resources     ResourceCatalog
	users         UserDirectory
	policies      *policy.Registry
	publisher     events.Publisher
	idGenerator   func() string
	codeGenerator func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewReservationService wires dependencies for reservation admission.
func NewReservationService(reservations ReservationRepository, resources ResourceCatalog, users UserDirectory, policies *policy.Registry, publisher events.Publisher, idGenerator, codeGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, resources, users, policies, publisher, idGenerator, codeGenerator, now, nil)
}

// NewReservationServiceWithLogger constructs the service with a specified logger.
func NewReservationServiceWithLogger(reservations ReservationRepository, resources ResourceCatalog, users UserDirectory, policies *policy.Registry, publisher events.Publisher, idGenerator, codeGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if policies == nil {
		policies = policy.NewRegistry()
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if codeGenerator == nil {
		codeGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations:  reservations,
		resources:     resources,
		users:         users,
		policies:      policies,
		publisher:     publisher,
		idGenerator:   idGenerator,
		codeGenerator: codeGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// CreateReservation validates the candidate booking against the resource's
// policy and admits it through the atomic persistence path. Validation and
// conflict failures are typed business errors and leave no partial state.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}

	logger := s.loggerWith(ctx, "CreateReservation",
		"user_id", params.UserID,
		"resource_id", params.ResourceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation created")
	}()

	return s.admit(ctx, params, "")
}

// admit runs the shared admission path. patternID is set when the
// reservation is an occurrence of a recurring pattern.
func (s *ReservationService) admit(ctx context.Context, params CreateReservationParams, patternID string) (Reservation, error) {
	user, err := s.users.GetUser(ctx, params.UserID)
	if err != nil {
		return Reservation{}, mapRepoError(err)
	}

	resource, err := s.resources.GetResource(ctx, params.ResourceID)
	if err != nil {
		return Reservation{}, mapRepoError(err)
	}

	selected, err := s.resolvePolicy(ctx, resource)
	if err != nil {
		return Reservation{}, err
	}

	if verr := selected.Validate(policy.Request{
		UserID:   user.ID,
		Resource: policy.Resource{ID: resource.ID, Name: resource.Name, Active: resource.Active},
		Start:    params.Start,
		End:      params.End,
		Now:      s.now(),
	}); verr != nil {
		return Reservation{}, asValidationError(verr)
	}

	createdAt := s.now()
	reservation := Reservation{
		ID:                 s.idGenerator(),
		UserID:             user.ID,
		ResourceID:         resource.ID,
		Start:              params.Start,
		End:                params.End,
		Status:             StatusPending,
		Notes:              params.Notes,
		Metadata:           cloneMetadata(params.Metadata),
		RecurringPatternID: patternID,
		ConfirmationCode:   s.codeGenerator(),
		CreatedAt:          createdAt,
		UpdatedAt:          createdAt,
	}

	persisted, err := s.reservations.CreateReservation(ctx, reservation)
	if err != nil {
		return Reservation{}, mapRepoError(err)
	}

	s.publish(ctx, events.TypeReservationCreated, persisted, resource, user)
	return persisted, nil
}

// resolvePolicy picks the validation policy for a resource: its own
// override, then its type's default, then the registry default. An unknown
// policy name is a configuration fault surfaced immediately.
func (s *ReservationService) resolvePolicy(ctx context.Context, resource Resource) (policy.Policy, error) {
	var override string
	if resource.ValidationStrategy != nil {
		override = *resource.ValidationStrategy
	}

	var typeDefault string
	if resource.ResourceTypeID != "" {
		resourceType, err := s.resources.GetResourceType(ctx, resource.ResourceTypeID)
		switch {
		case err == nil:
			typeDefault = resourceType.ValidationStrategy
		case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
			// A dangling type reference falls through to the default
			// policy rather than blocking all bookings of the resource.
		default:
			return nil, err
		}
	}

	return s.policies.Resolve(override, typeDefault)
}

// CancelReservation transitions a reservation to CANCELLED. Cancelling an
// already cancelled reservation is a no-op that still succeeds; cancelling a
// completed one is an illegal transition.
func (s *ReservationService) CancelReservation(ctx context.Context, reservationID, actingUserID string) (reservation Reservation, err error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}

	logger := s.loggerWith(ctx, "CancelReservation",
		"reservation_id", reservationID,
		"acting_user_id", actingUserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation cancelled")
	}()

	existing, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return Reservation{}, mapRepoError(err)
	}

	if existing.Status == StatusCancelled {
		return existing, nil
	}
	if existing.Status == StatusCompleted {
		return Reservation{}, fmt.Errorf("%w: completed reservations cannot be cancelled", ErrIllegalStateTransition)
	}

	updated, err := s.reservations.UpdateReservationStatus(ctx, reservationID, StatusCancelled, s.now())
	if err != nil {
		return Reservation{}, mapRepoError(err)
	}

	s.publishForReservation(ctx, events.TypeReservationCancelled, updated)
	return updated, nil
}

// ConfirmReservation transitions a PENDING reservation to CONFIRMED.
// Confirming from any other state fails with ErrIllegalStateTransition.
func (s *ReservationService) ConfirmReservation(ctx context.Context, reservationID, approverID string) (reservation Reservation, err error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}

	logger := s.loggerWith(ctx, "ConfirmReservation",
		"reservation_id", reservationID,
		"approver_id", approverID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to confirm reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation confirmed")
	}()

	existing, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return Reservation{}, mapRepoError(err)
	}

	if existing.Status != StatusPending {
		return Reservation{}, fmt.Errorf("%w: only pending reservations can be confirmed (status %q)", ErrIllegalStateTransition, existing.Status)
	}

	updated, err := s.reservations.UpdateReservationStatus(ctx, reservationID, StatusConfirmed, s.now())
	if err != nil {
		return Reservation{}, mapRepoError(err)
	}

	s.publishForReservation(ctx, events.TypeReservationConfirmed, updated)
	return updated, nil
}

// CheckAvailability reports whether the resource has no conflicting
// reservation in [start, end). It is a pure read. The repository narrows to
// candidate rows; booking.FindConflicts is the deciding predicate.
func (s *ReservationService) CheckAvailability(ctx context.Context, resourceID string, start, end time.Time) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("ReservationService is nil")
	}

	if _, err := s.resources.GetResource(ctx, resourceID); err != nil {
		return false, mapRepoError(err)
	}

	candidates, err := s.reservations.FindConflicts(ctx, resourceID, start, end, "")
	if err != nil {
		return false, mapRepoError(err)
	}

	conflicts := booking.FindConflicts(toBookings(candidates), resourceID, start, end, "")
	return len(conflicts) == 0, nil
}

func toBookings(reservations []Reservation) []booking.Booking {
	bookings := make([]booking.Booking, 0, len(reservations))
	for _, reservation := range reservations {
		bookings = append(bookings, booking.Booking{
			ID:         reservation.ID,
			ResourceID: reservation.ResourceID,
			Start:      reservation.Start,
			End:        reservation.End,
			Cancelled:  reservation.Status == StatusCancelled,
		})
	}
	return bookings
}

// ListUserActiveReservations returns the user's pending and confirmed
// reservations ending at or after the current time, ordered by start time
// ascending.
func (s *ReservationService) ListUserActiveReservations(ctx context.Context, userID string) ([]Reservation, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}

	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, mapRepoError(err)
	}

	reservations, err := s.reservations.ListActiveForUser(ctx, userID, s.now())
	if err != nil {
		return nil, mapRepoError(err)
	}
	return reservations, nil
}

// publish emits a domain event. Emission failures are logged and swallowed:
// booking success is independent of notification delivery.
func (s *ReservationService) publish(ctx context.Context, typ events.Type, reservation Reservation, resource Resource, user User) {
	if s.publisher == nil {
		return
	}
	event := events.ReservationEvent{
		Type:             typ,
		ReservationID:    reservation.ID,
		ResourceID:       resource.ID,
		ResourceName:     resource.Name,
		UserID:           user.ID,
		UserName:         user.DisplayName,
		Start:            reservation.Start,
		End:              reservation.End,
		Status:           string(reservation.Status),
		ConfirmationCode: reservation.ConfirmationCode,
		OccurredAt:       s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.loggerWith(ctx, "PublishEvent",
			"event_type", string(typ),
			"reservation_id", reservation.ID,
		).ErrorContext(ctx, "failed to publish domain event", "error", err)
	}
}

// publishForReservation enriches the event payload with resource and user
// names on a best-effort basis; a failed lookup never blocks the event.
func (s *ReservationService) publishForReservation(ctx context.Context, typ events.Type, reservation Reservation) {
	resource := Resource{ID: reservation.ResourceID}
	if found, err := s.resources.GetResource(ctx, reservation.ResourceID); err == nil {
		resource = found
	}
	user := User{ID: reservation.UserID}
	if found, err := s.users.GetUser(ctx, reservation.UserID); err == nil {
		user = found
	}
	s.publish(ctx, typ, reservation, resource, user)
}

func asValidationError(err error) error {
	var violation *policy.Violation
	if errors.As(err, &violation) {
		return &ValidationError{
			Policy: violation.Policy,
			Rule:   violation.Rule,
			Reason: violation.Reason,
		}
	}
	return err
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

// mapRepoError translates persistence sentinels into application errors.
// Application sentinels pass through untouched so in-process fakes can
// return them directly.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, persistence.ErrConflict):
		return ErrConflict
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		return &ValidationError{Rule: "time_order", Reason: "start time must be before end time"}
	}
	return err
}
