package main

import (
	"context"
	"time"

	"github.com/example/resource-booking/internal/application"
	"github.com/example/resource-booking/internal/persistence"
)

// storageRepositories bundles the persistence repositories of one backend so
// main can wire either driver through the same adapters.
type storageRepositories struct {
	reservations persistence.ReservationRepository
	resources    persistence.ResourceRepository
	users        persistence.UserRepository
	patterns     persistence.PatternRepository
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) CreateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	stored, err := a.repo.CreateReservation(ctx, toPersistenceReservation(reservation))
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) UpdateReservationStatus(ctx context.Context, id string, status application.Status, updatedAt time.Time) (application.Reservation, error) {
	stored, err := a.repo.UpdateReservationStatus(ctx, id, string(status), updatedAt)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) FindConflicts(ctx context.Context, resourceID string, start, end time.Time, excludeID string) ([]application.Reservation, error) {
	stored, err := a.repo.FindConflicts(ctx, resourceID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(stored), nil
}

func (a *reservationRepositoryAdapter) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]application.Reservation, error) {
	stored, err := a.repo.ListActiveForUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(stored), nil
}

func (a *reservationRepositoryAdapter) ListForPattern(ctx context.Context, patternID string) ([]application.Reservation, error) {
	stored, err := a.repo.ListForPattern(ctx, patternID)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(stored), nil
}

type resourceCatalogAdapter struct {
	repo persistence.ResourceRepository
}

func newResourceCatalogAdapter(repo persistence.ResourceRepository) *resourceCatalogAdapter {
	return &resourceCatalogAdapter{repo: repo}
}

func (a *resourceCatalogAdapter) GetResource(ctx context.Context, id string) (application.Resource, error) {
	stored, err := a.repo.GetResource(ctx, id)
	if err != nil {
		return application.Resource{}, err
	}
	return application.Resource{
		ID:                 stored.ID,
		Name:               stored.Name,
		Capacity:           stored.Capacity,
		Active:             stored.Active,
		ResourceTypeID:     stored.ResourceTypeID,
		ValidationStrategy: stored.ValidationStrategy,
		Metadata:           stored.Metadata,
	}, nil
}

func (a *resourceCatalogAdapter) GetResourceType(ctx context.Context, id string) (application.ResourceType, error) {
	stored, err := a.repo.GetResourceType(ctx, id)
	if err != nil {
		return application.ResourceType{}, err
	}
	return application.ResourceType{
		ID:                 stored.ID,
		Name:               stored.Name,
		DefaultDuration:    stored.DefaultDuration,
		RequiresApproval:   stored.RequiresApproval,
		ValidationStrategy: stored.ValidationStrategy,
	}, nil
}

type userDirectoryAdapter struct {
	repo persistence.UserRepository
}

func newUserDirectoryAdapter(repo persistence.UserRepository) *userDirectoryAdapter {
	return &userDirectoryAdapter{repo: repo}
}

func (a *userDirectoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return application.User{
		ID:          stored.ID,
		DisplayName: stored.DisplayName,
		Email:       stored.Email,
	}, nil
}

type patternRepositoryAdapter struct {
	repo persistence.PatternRepository
}

func newPatternRepositoryAdapter(repo persistence.PatternRepository) *patternRepositoryAdapter {
	return &patternRepositoryAdapter{repo: repo}
}

func (a *patternRepositoryAdapter) CreatePattern(ctx context.Context, pattern application.RecurringPattern) (application.RecurringPattern, error) {
	stored, err := a.repo.CreatePattern(ctx, toPersistencePattern(pattern))
	if err != nil {
		return application.RecurringPattern{}, err
	}
	return toApplicationPattern(stored), nil
}

func (a *patternRepositoryAdapter) GetPattern(ctx context.Context, id string) (application.RecurringPattern, error) {
	stored, err := a.repo.GetPattern(ctx, id)
	if err != nil {
		return application.RecurringPattern{}, err
	}
	return toApplicationPattern(stored), nil
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	stored := persistence.Reservation{
		ID:               reservation.ID,
		UserID:           reservation.UserID,
		ResourceID:       reservation.ResourceID,
		Start:            reservation.Start,
		End:              reservation.End,
		Status:           string(reservation.Status),
		Metadata:         reservation.Metadata,
		ConfirmationCode: reservation.ConfirmationCode,
		CreatedAt:        reservation.CreatedAt,
		UpdatedAt:        reservation.UpdatedAt,
	}
	if reservation.Notes != "" {
		notes := reservation.Notes
		stored.Notes = &notes
	}
	if reservation.RecurringPatternID != "" {
		patternID := reservation.RecurringPatternID
		stored.RecurringPatternID = &patternID
	}
	return stored
}

func toApplicationReservation(stored persistence.Reservation) application.Reservation {
	reservation := application.Reservation{
		ID:               stored.ID,
		UserID:           stored.UserID,
		ResourceID:       stored.ResourceID,
		Start:            stored.Start,
		End:              stored.End,
		Status:           application.Status(stored.Status),
		Metadata:         stored.Metadata,
		ConfirmationCode: stored.ConfirmationCode,
		CreatedAt:        stored.CreatedAt,
		UpdatedAt:        stored.UpdatedAt,
	}
	if stored.Notes != nil {
		reservation.Notes = *stored.Notes
	}
	if stored.RecurringPatternID != nil {
		reservation.RecurringPatternID = *stored.RecurringPatternID
	}
	return reservation
}

func toApplicationReservations(stored []persistence.Reservation) []application.Reservation {
	if stored == nil {
		return nil
	}
	reservations := make([]application.Reservation, 0, len(stored))
	for _, record := range stored {
		reservations = append(reservations, toApplicationReservation(record))
	}
	return reservations
}

func toPersistencePattern(pattern application.RecurringPattern) persistence.RecurringPattern {
	return persistence.RecurringPattern{
		ID:           pattern.ID,
		Frequency:    pattern.Frequency,
		Interval:     pattern.Interval,
		StartDate:    pattern.StartDate,
		EndDate:      pattern.EndDate,
		Weekdays:     pattern.Weekdays,
		MaxInstances: pattern.MaxInstances,
		Metadata:     pattern.Metadata,
		CreatedAt:    pattern.CreatedAt,
	}
}

func toApplicationPattern(stored persistence.RecurringPattern) application.RecurringPattern {
	return application.RecurringPattern{
		ID:           stored.ID,
		Frequency:    stored.Frequency,
		Interval:     stored.Interval,
		StartDate:    stored.StartDate,
		EndDate:      stored.EndDate,
		Weekdays:     stored.Weekdays,
		MaxInstances: stored.MaxInstances,
		Metadata:     stored.Metadata,
		CreatedAt:    stored.CreatedAt,
	}
}
