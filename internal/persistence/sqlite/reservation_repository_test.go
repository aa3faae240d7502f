package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/resource-booking/internal/persistence"
	"github.com/example/resource-booking/internal/testfixtures"
)

func setupReservationTest(t *testing.T) (*ReservationRepository, *ConnectionPool) {
	t.Helper()

	pool := setupPool(t)
	ctx := context.Background()

	users := NewUserRepository(pool)
	if err := users.CreateUser(ctx, testfixtures.NewUserFixture(testfixtures.WithUserID("user-1"))); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	resources := NewResourceRepository(pool)
	if err := resources.CreateResource(ctx, testfixtures.NewResourceFixture(testfixtures.WithResourceID("resource-1"))); err != nil {
		t.Fatalf("failed to seed resource: %v", err)
	}

	return NewReservationRepository(pool), pool
}

func mondayWindow(t *testing.T, startHour, endHour int) (time.Time, time.Time) {
	t.Helper()
	monday := testfixtures.ReferenceMonday()
	return testfixtures.At(monday, startHour, 0), testfixtures.At(monday, endHour, 0)
}

func TestReservationRepository_CreateAndGet(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	start, end := mondayWindow(t, 10, 11)
	reservation := testfixtures.NewReservationFixture("user-1", "resource-1",
		testfixtures.WithReservationID("resv-1"),
		testfixtures.WithReservationWindow(start, end),
		testfixtures.WithReservationNotes("projector demo"),
	)
	reservation.Metadata = map[string]string{"cost_center": "eng"}

	if _, err := repo.CreateReservation(ctx, reservation); err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}

	retrieved, err := repo.GetReservation(ctx, "resv-1")
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if !retrieved.Start.Equal(start) || !retrieved.End.Equal(end) {
		t.Errorf("unexpected window round trip: %v-%v", retrieved.Start, retrieved.End)
	}
	if retrieved.Status != persistence.StatusPending {
		t.Errorf("expected pending, got %q", retrieved.Status)
	}
	if retrieved.Notes == nil || *retrieved.Notes != "projector demo" {
		t.Errorf("expected notes round trip, got %v", retrieved.Notes)
	}
	if retrieved.Metadata["cost_center"] != "eng" {
		t.Errorf("expected metadata round trip, got %v", retrieved.Metadata)
	}
	if retrieved.ConfirmationCode != reservation.ConfirmationCode {
		t.Errorf("expected confirmation code %q, got %q", reservation.ConfirmationCode, retrieved.ConfirmationCode)
	}

	if _, err := repo.GetReservation(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReservationRepository_CreateReservation_RejectsOverlap(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	start, end := mondayWindow(t, 10, 12)
	first := testfixtures.NewReservationFixture("user-1", "resource-1",
		testfixtures.WithReservationWindow(start, end),
	)
	if _, err := repo.CreateReservation(ctx, first); err != nil {
		t.Fatalf("first CreateReservation failed: %v", err)
	}

	overlapStart, overlapEnd := mondayWindow(t, 11, 13)
	second := testfixtures.NewReservationFixture("user-1", "resource-1",
		testfixtures.WithReservationWindow(overlapStart, overlapEnd),
	)
	if _, err := repo.CreateReservation(ctx, second); !errors.Is(err, persistence.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if _, err := repo.GetReservation(ctx, second.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected conflicting reservation not persisted, got %v", err)
	}
}

func TestReservationRepository_CreateReservation_AllowsBackToBack(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	start, end := mondayWindow(t, 10, 11)
	first := testfixtures.NewReservationFixture("user-1", "resource-1",
		testfixtures.WithReservationWindow(start, end),
	)
	if _, err := repo.CreateReservation(ctx, first); err != nil {
		t.Fatalf("first CreateReservation failed: %v", err)
	}

	nextStart, nextEnd := mondayWindow(t, 11, 12)
	second := testfixtures.NewReservationFixture("user-1", "resource-1",
		testfixtures.WithReservationWindow(nextStart, nextEnd),
	)
	if _, err := repo.CreateReservation(ctx, second); err != nil {
		t.Fatalf("expected back-to-back booking to succeed, got %v", err)
	}
}

func TestReservationRepository_CreateReservation_CancelledFreesSlot(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	start, end := mondayWindow(t, 10, 11)
	first := testfixtures.NewReservationFixture("user-1", "resource-1",
		testfixtures.WithReservationWindow(start, end),
		testfixtures.WithReservationStatus(persistence.StatusCancelled),
	)
	if _, err := repo.CreateReservation(ctx, first); err != nil {
		t.Fatalf("first CreateReservation failed: %v", err)
	}

	second := testfixtures.NewReservationFixture("user-1", "resource-1",
		testfixtures.WithReservationWindow(start, end),
	)
	if _, err := repo.CreateReservation(ctx, second); err != nil {
		t.Fatalf("expected cancelled reservation to free the slot, got %v", err)
	}
}

func TestReservationRepository_CreateReservation_ConstraintFailures(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	start, end := mondayWindow(t, 10, 11)

	t.Run("inverted window", func(t *testing.T) {
		reservation := testfixtures.NewReservationFixture("user-1", "resource-1",
			testfixtures.WithReservationWindow(end, start),
		)
		if _, err := repo.CreateReservation(ctx, reservation); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		reservation := testfixtures.NewReservationFixture("ghost", "resource-1",
			testfixtures.WithReservationWindow(start, end),
		)
		if _, err := repo.CreateReservation(ctx, reservation); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})

	t.Run("duplicate confirmation code", func(t *testing.T) {
		first := testfixtures.NewReservationFixture("user-1", "resource-1",
			testfixtures.WithReservationWindow(start, end),
		)
		first.ConfirmationCode = "AAAA111122223333"
		if _, err := repo.CreateReservation(ctx, first); err != nil {
			t.Fatalf("first CreateReservation failed: %v", err)
		}

		laterStart, laterEnd := mondayWindow(t, 14, 15)
		second := testfixtures.NewReservationFixture("user-1", "resource-1",
			testfixtures.WithReservationWindow(laterStart, laterEnd),
		)
		second.ConfirmationCode = "AAAA111122223333"
		if _, err := repo.CreateReservation(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})
}

func TestReservationRepository_UpdateReservationStatus(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	start, end := mondayWindow(t, 10, 11)
	reservation := testfixtures.NewReservationFixture("user-1", "resource-1",
		testfixtures.WithReservationID("resv-status"),
		testfixtures.WithReservationWindow(start, end),
	)
	if _, err := repo.CreateReservation(ctx, reservation); err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}

	updatedAt := testfixtures.ReferenceTime().Add(time.Hour)
	updated, err := repo.UpdateReservationStatus(ctx, "resv-status", persistence.StatusConfirmed, updatedAt)
	if err != nil {
		t.Fatalf("UpdateReservationStatus failed: %v", err)
	}
	if updated.Status != persistence.StatusConfirmed {
		t.Errorf("expected confirmed, got %q", updated.Status)
	}
	if !updated.UpdatedAt.Equal(updatedAt) {
		t.Errorf("expected updated_at %v, got %v", updatedAt, updated.UpdatedAt)
	}

	if _, err := repo.UpdateReservationStatus(ctx, "missing", persistence.StatusCancelled, updatedAt); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := repo.UpdateReservationStatus(ctx, "resv-status", "unknown", updatedAt); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Errorf("expected ErrConstraintViolation for status outside the allowed set, got %v", err)
	}
}

func TestReservationRepository_FindConflicts(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	start, end := mondayWindow(t, 10, 12)
	existing := testfixtures.NewReservationFixture("user-1", "resource-1",
		testfixtures.WithReservationID("resv-base"),
		testfixtures.WithReservationWindow(start, end),
	)
	if _, err := repo.CreateReservation(ctx, existing); err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}

	overlapStart, overlapEnd := mondayWindow(t, 11, 13)
	conflicts, err := repo.FindConflicts(ctx, "resource-1", overlapStart, overlapEnd, "")
	if err != nil {
		t.Fatalf("FindConflicts failed: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].ID != "resv-base" {
		t.Errorf("expected the existing reservation, got %v", conflicts)
	}

	// Excluding the existing reservation models availability checks during
	// an update of that same reservation.
	conflicts, err = repo.FindConflicts(ctx, "resource-1", overlapStart, overlapEnd, "resv-base")
	if err != nil {
		t.Fatalf("FindConflicts with exclusion failed: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("expected no conflicts after exclusion, got %v", conflicts)
	}

	touchStart, touchEnd := mondayWindow(t, 12, 13)
	conflicts, err = repo.FindConflicts(ctx, "resource-1", touchStart, touchEnd, "")
	if err != nil {
		t.Fatalf("FindConflicts failed: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("expected boundary touch to be free, got %v", conflicts)
	}
}

func TestReservationRepository_ListActiveForUser(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	monday := testfixtures.ReferenceMonday()
	seed := []struct {
		id     string
		start  time.Time
		status string
	}{
		{"resv-late", testfixtures.At(monday, 15, 0), persistence.StatusConfirmed},
		{"resv-early", testfixtures.At(monday, 9, 0), persistence.StatusPending},
		{"resv-cancelled", testfixtures.At(monday, 11, 0), persistence.StatusCancelled},
		{"resv-done", testfixtures.ReferenceTime().Add(-5 * time.Hour), persistence.StatusConfirmed},
		{"resv-ending-now", testfixtures.ReferenceTime().Add(-time.Hour), persistence.StatusConfirmed},
	}
	for _, item := range seed {
		reservation := testfixtures.NewReservationFixture("user-1", "resource-1",
			testfixtures.WithReservationID(item.id),
			testfixtures.WithReservationWindow(item.start, item.start.Add(time.Hour)),
			testfixtures.WithReservationStatus(item.status),
		)
		if _, err := repo.CreateReservation(ctx, reservation); err != nil {
			t.Fatalf("failed to seed %s: %v", item.id, err)
		}
	}

	active, err := repo.ListActiveForUser(ctx, "user-1", testfixtures.ReferenceTime())
	if err != nil {
		t.Fatalf("ListActiveForUser failed: %v", err)
	}
	// resv-ending-now closes exactly at the query instant and still counts.
	if len(active) != 3 {
		t.Fatalf("expected 3 active reservations, got %d", len(active))
	}
	if active[0].ID != "resv-ending-now" || active[1].ID != "resv-early" || active[2].ID != "resv-late" {
		t.Errorf("expected [resv-ending-now resv-early resv-late], got [%s %s %s]",
			active[0].ID, active[1].ID, active[2].ID)
	}
}

func TestReservationRepository_ListForPattern(t *testing.T) {
	repo, pool := setupReservationTest(t)
	ctx := context.Background()

	patterns := NewPatternRepository(pool)
	if _, err := patterns.CreatePattern(ctx, testfixtures.NewPatternFixture(testfixtures.WithPatternID("pattern-1"))); err != nil {
		t.Fatalf("CreatePattern failed: %v", err)
	}

	monday := testfixtures.ReferenceMonday()
	for i, hour := range []int{14, 10} {
		reservation := testfixtures.NewReservationFixture("user-1", "resource-1",
			testfixtures.WithReservationID([]string{"resv-b", "resv-a"}[i]),
			testfixtures.WithReservationWindow(testfixtures.At(monday, hour, 0), testfixtures.At(monday, hour+1, 0)),
			testfixtures.WithReservationPattern("pattern-1"),
		)
		if _, err := repo.CreateReservation(ctx, reservation); err != nil {
			t.Fatalf("failed to seed reservation: %v", err)
		}
	}

	linked, err := repo.ListForPattern(ctx, "pattern-1")
	if err != nil {
		t.Fatalf("ListForPattern failed: %v", err)
	}
	if len(linked) != 2 {
		t.Fatalf("expected 2 linked reservations, got %d", len(linked))
	}
	if linked[0].ID != "resv-a" || linked[1].ID != "resv-b" {
		t.Errorf("expected start ordering [resv-a resv-b], got [%s %s]", linked[0].ID, linked[1].ID)
	}
}

func TestReservationRepository_ConcurrentCreatesAdmitOne(t *testing.T) {
	repo, _ := setupReservationTest(t)
	ctx := context.Background()

	start, end := mondayWindow(t, 10, 11)

	const workers = 8
	results := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reservation := testfixtures.NewReservationFixture("user-1", "resource-1",
				testfixtures.WithReservationWindow(start, end),
			)
			_, err := repo.CreateReservation(ctx, reservation)
			results[i] = err
		}(i)
	}
	wg.Wait()

	var admitted, conflicted int
	for _, err := range results {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, persistence.ErrConflict):
			conflicted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if admitted != 1 {
		t.Errorf("expected exactly one admission, got %d", admitted)
	}
	if conflicted != workers-1 {
		t.Errorf("expected %d conflicts, got %d", workers-1, conflicted)
	}
}
