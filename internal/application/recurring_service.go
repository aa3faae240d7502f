package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/resource-booking/internal/events"
	"github.com/example/resource-booking/internal/recurrence"
)

// PatternRepository captures the persistence interactions needed for
// recurring patterns.
type PatternRepository interface {
	CreatePattern(ctx context.Context, pattern RecurringPattern) (RecurringPattern, error)
	GetPattern(ctx context.Context, id string) (RecurringPattern, error)
}

// RecurringService expands recurring patterns into occurrences and routes
// every occurrence through the same atomic admission path as single
// bookings. Occurrences rejected by validation or conflicts are reported
// back instead of failing the whole pattern.
type RecurringService struct {
	patterns    PatternRepository
	admission   *ReservationService
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRecurringService wires dependencies for recurring reservations.
func NewRecurringService(patterns PatternRepository, admission *ReservationService, idGenerator func() string, now func() time.Time) *RecurringService {
	return NewRecurringServiceWithLogger(patterns, admission, idGenerator, now, nil)
}

// NewRecurringServiceWithLogger constructs the service with a specified logger.
func NewRecurringServiceWithLogger(patterns PatternRepository, admission *ReservationService, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RecurringService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RecurringService{
		patterns:    patterns,
		admission:   admission,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *RecurringService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RecurringService", operation, attrs...)
}

// CreateRecurringReservation persists the pattern, expands it into dated
// occurrences, and admits each occurrence individually. The result reports
// both the admitted reservations and the occurrences that were skipped,
// with the reason each one was rejected.
func (s *RecurringService) CreateRecurringReservation(ctx context.Context, params CreateRecurringReservationParams) (result RecurringReservationResult, err error) {
	if s == nil {
		return RecurringReservationResult{}, fmt.Errorf("RecurringService is nil")
	}
	if s.admission == nil {
		return RecurringReservationResult{}, fmt.Errorf("admission engine not configured")
	}

	logger := s.loggerWith(ctx, "CreateRecurringReservation",
		"user_id", params.UserID,
		"resource_id", params.ResourceID,
		"frequency", params.Frequency,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create recurring reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"pattern_id", result.Pattern.ID,
			"created", len(result.Created),
			"skipped", len(result.Skipped),
		).InfoContext(ctx, "recurring reservation created")
	}()

	frequency, err := recurrence.ParseFrequency(params.Frequency)
	if err != nil {
		return RecurringReservationResult{}, asRecurrenceValidationError(err)
	}

	spec := recurrence.Pattern{
		Frequency:    frequency,
		Interval:     params.Interval,
		StartDate:    params.StartDate,
		EndDate:      params.EndDate,
		Weekdays:     params.Weekdays,
		MaxInstances: params.MaxInstances,
	}

	occurrences, err := recurrence.Expand(spec, params.DayStart, params.DayEnd)
	if err != nil {
		return RecurringReservationResult{}, asRecurrenceValidationError(err)
	}
	if len(occurrences) == 0 {
		return RecurringReservationResult{}, &ValidationError{
			Rule:   "recurrence",
			Reason: "the pattern does not produce any occurrences",
		}
	}

	pattern := RecurringPattern{
		ID:           s.idGenerator(),
		Frequency:    string(frequency),
		Interval:     params.Interval,
		StartDate:    params.StartDate,
		EndDate:      params.EndDate,
		Weekdays:     append([]int(nil), params.Weekdays...),
		MaxInstances: params.MaxInstances,
		Metadata:     cloneMetadata(params.Metadata),
		CreatedAt:    s.now(),
	}

	persisted, err := s.patterns.CreatePattern(ctx, pattern)
	if err != nil {
		return RecurringReservationResult{}, mapRepoError(err)
	}
	result.Pattern = persisted

	for _, occurrence := range occurrences {
		created, admitErr := s.admission.admit(ctx, CreateReservationParams{
			UserID:     params.UserID,
			ResourceID: params.ResourceID,
			Start:      occurrence.Start,
			End:        occurrence.End,
			Notes:      params.Notes,
			Metadata:   params.Metadata,
		}, persisted.ID)
		if admitErr != nil {
			if isBusinessRejection(admitErr) {
				result.Skipped = append(result.Skipped, SkippedOccurrence{
					Start:  occurrence.Start,
					End:    occurrence.End,
					Reason: admitErr.Error(),
				})
				continue
			}
			return RecurringReservationResult{}, admitErr
		}
		result.Created = append(result.Created, created)
	}

	return result, nil
}

// CancelRecurringReservations cancels every non-terminal reservation
// generated from the pattern and returns how many were cancelled.
func (s *RecurringService) CancelRecurringReservations(ctx context.Context, patternID string) (int, error) {
	return s.cancelPattern(ctx, patternID, false)
}

// CancelFutureReservations cancels the pattern's non-terminal reservations
// whose start is still in the future and returns how many were cancelled.
func (s *RecurringService) CancelFutureReservations(ctx context.Context, patternID string) (int, error) {
	return s.cancelPattern(ctx, patternID, true)
}

func (s *RecurringService) cancelPattern(ctx context.Context, patternID string, futureOnly bool) (cancelled int, err error) {
	if s == nil {
		return 0, fmt.Errorf("RecurringService is nil")
	}
	if s.admission == nil {
		return 0, fmt.Errorf("admission engine not configured")
	}

	operation := "CancelRecurringReservations"
	if futureOnly {
		operation = "CancelFutureReservations"
	}
	logger := s.loggerWith(ctx, operation, "pattern_id", patternID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel pattern reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("cancelled", cancelled).InfoContext(ctx, "pattern reservations cancelled")
	}()

	if _, err = s.patterns.GetPattern(ctx, patternID); err != nil {
		return 0, mapRepoError(err)
	}

	reservations, err := s.admission.reservations.ListForPattern(ctx, patternID)
	if err != nil {
		return 0, mapRepoError(err)
	}

	now := s.now()
	for _, reservation := range reservations {
		if reservation.Status.Terminal() {
			continue
		}
		if futureOnly && !reservation.Start.After(now) {
			continue
		}
		updated, updateErr := s.admission.reservations.UpdateReservationStatus(ctx, reservation.ID, StatusCancelled, now)
		if updateErr != nil {
			return cancelled, mapRepoError(updateErr)
		}
		cancelled++
		s.admission.publishForReservation(ctx, events.TypeReservationCancelled, updated)
	}

	return cancelled, nil
}

// isBusinessRejection reports whether an admission failure is an expected
// per-occurrence rejection rather than an infrastructure fault.
func isBusinessRejection(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

func asRecurrenceValidationError(err error) error {
	return &ValidationError{Rule: "recurrence", Reason: err.Error()}
}
