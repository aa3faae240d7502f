package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/resource-booking/internal/events"
	"github.com/example/resource-booking/internal/policy"
)

func newRecurringFixture(t *testing.T) (*RecurringService, *memStore, *recordingPublisher) {
	t.Helper()
	store := newMemStore()
	store.addUser(User{ID: "user-1", DisplayName: "Alice Chen", Email: "alice@example.com"})
	store.addResource(Resource{ID: "res-1", Name: "Projector", Active: true})
	publisher := &recordingPublisher{}
	admission := NewReservationService(store, store, store, policy.NewRegistry(), publisher,
		sequenceIDs("resv"), sequenceIDs("CODE"), func() time.Time { return testNow })
	svc := NewRecurringService(store, admission, sequenceIDs("pattern"), func() time.Time { return testNow })
	return svc, store, publisher
}

// weeklyParams is three slots a week starting Monday 2026-03-16, capped at
// six occurrences: March 16, 18, 20, 23, 25 and 27.
func weeklyParams() CreateRecurringReservationParams {
	return CreateRecurringReservationParams{
		UserID:       "user-1",
		ResourceID:   "res-1",
		Frequency:    "weekly",
		Interval:     1,
		StartDate:    testMonday,
		Weekdays:     []int{1, 3, 5},
		MaxInstances: 6,
		DayStart:     at(testMonday, 10, 0),
		DayEnd:       at(testMonday, 11, 0),
	}
}

func TestRecurringService_CreateRecurringReservation_WeeklyExpansion(t *testing.T) {
	t.Parallel()

	svc, store, publisher := newRecurringFixture(t)

	result, err := svc.CreateRecurringReservation(context.Background(), weeklyParams())
	if err != nil {
		t.Fatalf("CreateRecurringReservation failed: %v", err)
	}

	if result.Pattern.ID != "pattern-1" {
		t.Errorf("expected persisted pattern id pattern-1, got %q", result.Pattern.ID)
	}
	if len(result.Created) != 6 {
		t.Fatalf("expected 6 occurrences, got %d", len(result.Created))
	}
	if len(result.Skipped) != 0 {
		t.Errorf("expected no skipped occurrences, got %v", result.Skipped)
	}

	wantDays := []int{16, 18, 20, 23, 25, 27}
	for i, created := range result.Created {
		if created.Start.Day() != wantDays[i] {
			t.Errorf("occurrence %d: expected day %d, got %d", i, wantDays[i], created.Start.Day())
		}
		if created.Start.Hour() != 10 || created.End.Hour() != 11 {
			t.Errorf("occurrence %d: expected 10:00-11:00, got %v-%v", i, created.Start, created.End)
		}
		if created.RecurringPatternID != result.Pattern.ID {
			t.Errorf("occurrence %d: expected pattern link %q, got %q", i, result.Pattern.ID, created.RecurringPatternID)
		}
		if created.Status != StatusPending {
			t.Errorf("occurrence %d: expected pending, got %q", i, created.Status)
		}
	}

	if _, err := store.GetPattern(context.Background(), "pattern-1"); err != nil {
		t.Errorf("expected pattern persisted, got %v", err)
	}
	if got := len(publisher.recorded()); got != 6 {
		t.Errorf("expected 6 created events, got %d", got)
	}
}

func TestRecurringService_CreateRecurringReservation_SkipsConflictingOccurrence(t *testing.T) {
	t.Parallel()

	svc, store, _ := newRecurringFixture(t)
	wednesday := testMonday.AddDate(0, 0, 2)
	store.addReservation(Reservation{
		ID: "existing", UserID: "user-1", ResourceID: "res-1",
		Start: at(wednesday, 10, 30), End: at(wednesday, 11, 30), Status: StatusConfirmed,
	})

	result, err := svc.CreateRecurringReservation(context.Background(), weeklyParams())
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}

	if len(result.Created) != 5 {
		t.Errorf("expected 5 admitted occurrences, got %d", len(result.Created))
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("expected 1 skipped occurrence, got %d", len(result.Skipped))
	}
	skipped := result.Skipped[0]
	if !skipped.Start.Equal(at(wednesday, 10, 0)) {
		t.Errorf("expected the Wednesday slot skipped, got %v", skipped.Start)
	}
	if !strings.Contains(skipped.Reason, "not available") {
		t.Errorf("expected a conflict reason, got %q", skipped.Reason)
	}
	for _, created := range result.Created {
		if created.Start.Day() == wednesday.Day() {
			t.Errorf("conflicting day should not be admitted: %v", created.Start)
		}
	}
}

func TestRecurringService_CreateRecurringReservation_SkipsPolicyRejections(t *testing.T) {
	t.Parallel()

	svc, store, _ := newRecurringFixture(t)
	meetingRoom := policy.NameMeetingRoom
	store.addResource(Resource{ID: "room-1", Name: "Room A", Active: true, ValidationStrategy: &meetingRoom})

	params := weeklyParams()
	params.ResourceID = "room-1"
	params.DayStart = at(testMonday, 10, 15)
	params.DayEnd = at(testMonday, 11, 15)

	result, err := svc.CreateRecurringReservation(context.Background(), params)
	if err != nil {
		t.Fatalf("expected per-occurrence rejections, got %v", err)
	}
	if len(result.Created) != 0 {
		t.Errorf("expected no admitted occurrences, got %d", len(result.Created))
	}
	if len(result.Skipped) != 6 {
		t.Fatalf("expected all 6 occurrences skipped, got %d", len(result.Skipped))
	}
	for _, skipped := range result.Skipped {
		if !strings.Contains(skipped.Reason, "hour or half hour") {
			t.Errorf("expected slot alignment reason, got %q", skipped.Reason)
		}
	}
}

func TestRecurringService_CreateRecurringReservation_PatternValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*CreateRecurringReservationParams)
	}{
		{"unknown frequency", func(p *CreateRecurringReservationParams) { p.Frequency = "fortnightly" }},
		{"zero interval", func(p *CreateRecurringReservationParams) { p.Interval = 0 }},
		{"unbounded", func(p *CreateRecurringReservationParams) { p.MaxInstances = 0 }},
		{"no weekdays", func(p *CreateRecurringReservationParams) { p.Weekdays = nil }},
		{"weekday out of range", func(p *CreateRecurringReservationParams) { p.Weekdays = []int{8} }},
		{"inverted day window", func(p *CreateRecurringReservationParams) {
			p.DayStart = at(testMonday, 11, 0)
			p.DayEnd = at(testMonday, 10, 0)
		}},
		{"empty expansion", func(p *CreateRecurringReservationParams) {
			end := testMonday.AddDate(0, 0, 1)
			p.Weekdays = []int{6}
			p.EndDate = &end
			p.MaxInstances = 0
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc, store, _ := newRecurringFixture(t)
			params := weeklyParams()
			tc.mutate(&params)

			_, err := svc.CreateRecurringReservation(context.Background(), params)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(store.reservations) != 0 {
				t.Errorf("expected no reservations persisted, got %d", len(store.reservations))
			}
		})
	}
}

func TestRecurringService_CreateRecurringReservation_AbortsOnMissingUser(t *testing.T) {
	t.Parallel()

	svc, _, _ := newRecurringFixture(t)
	params := weeklyParams()
	params.UserID = "ghost"

	_, err := svc.CreateRecurringReservation(context.Background(), params)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func seedPatternReservations(store *memStore) {
	store.patterns["pattern-1"] = RecurringPattern{ID: "pattern-1", Frequency: "weekly", Interval: 1}
	store.addReservation(Reservation{
		ID: "past", UserID: "user-1", ResourceID: "res-1", RecurringPatternID: "pattern-1",
		Start: testNow.Add(-48 * time.Hour), End: testNow.Add(-47 * time.Hour), Status: StatusConfirmed,
	})
	store.addReservation(Reservation{
		ID: "upcoming-pending", UserID: "user-1", ResourceID: "res-1", RecurringPatternID: "pattern-1",
		Start: at(testMonday, 10, 0), End: at(testMonday, 11, 0), Status: StatusPending,
	})
	store.addReservation(Reservation{
		ID: "upcoming-confirmed", UserID: "user-1", ResourceID: "res-1", RecurringPatternID: "pattern-1",
		Start: at(testMonday.AddDate(0, 0, 2), 10, 0), End: at(testMonday.AddDate(0, 0, 2), 11, 0), Status: StatusConfirmed,
	})
	store.addReservation(Reservation{
		ID: "done", UserID: "user-1", ResourceID: "res-1", RecurringPatternID: "pattern-1",
		Start: testNow.Add(-72 * time.Hour), End: testNow.Add(-71 * time.Hour), Status: StatusCompleted,
	})
	store.addReservation(Reservation{
		ID: "unrelated", UserID: "user-1", ResourceID: "res-1",
		Start: at(testMonday, 14, 0), End: at(testMonday, 15, 0), Status: StatusPending,
	})
}

func TestRecurringService_CancelRecurringReservations(t *testing.T) {
	t.Parallel()

	svc, store, publisher := newRecurringFixture(t)
	seedPatternReservations(store)

	cancelled, err := svc.CancelRecurringReservations(context.Background(), "pattern-1")
	if err != nil {
		t.Fatalf("CancelRecurringReservations failed: %v", err)
	}
	if cancelled != 3 {
		t.Errorf("expected 3 cancellations, got %d", cancelled)
	}

	for _, id := range []string{"past", "upcoming-pending", "upcoming-confirmed"} {
		if got := store.reservations[id].Status; got != StatusCancelled {
			t.Errorf("expected %s cancelled, got %q", id, got)
		}
	}
	if got := store.reservations["done"].Status; got != StatusCompleted {
		t.Errorf("expected completed reservation untouched, got %q", got)
	}
	if got := store.reservations["unrelated"].Status; got != StatusPending {
		t.Errorf("expected unrelated reservation untouched, got %q", got)
	}

	recorded := publisher.recorded()
	if len(recorded) != 3 {
		t.Fatalf("expected 3 cancelled events, got %d", len(recorded))
	}
	for _, event := range recorded {
		if event.Type != events.TypeReservationCancelled {
			t.Errorf("expected cancelled event, got %q", event.Type)
		}
	}
}

func TestRecurringService_CancelFutureReservations(t *testing.T) {
	t.Parallel()

	svc, store, _ := newRecurringFixture(t)
	seedPatternReservations(store)

	cancelled, err := svc.CancelFutureReservations(context.Background(), "pattern-1")
	if err != nil {
		t.Fatalf("CancelFutureReservations failed: %v", err)
	}
	if cancelled != 2 {
		t.Errorf("expected 2 cancellations, got %d", cancelled)
	}
	if got := store.reservations["past"].Status; got != StatusConfirmed {
		t.Errorf("expected past reservation untouched, got %q", got)
	}
	for _, id := range []string{"upcoming-pending", "upcoming-confirmed"} {
		if got := store.reservations[id].Status; got != StatusCancelled {
			t.Errorf("expected %s cancelled, got %q", id, got)
		}
	}
}

func TestRecurringService_CancelRecurringReservations_UnknownPattern(t *testing.T) {
	t.Parallel()

	svc, _, _ := newRecurringFixture(t)

	_, err := svc.CancelRecurringReservations(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
