package booking

import (
	"testing"
	"time"
)

func at(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	return time.Date(2026, time.March, 16, hour, minute, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"identical windows", at(t, 10, 0), at(t, 11, 0), at(t, 10, 0), at(t, 11, 0), true},
		{"partial overlap", at(t, 10, 0), at(t, 11, 0), at(t, 10, 30), at(t, 11, 30), true},
		{"contained window", at(t, 10, 0), at(t, 12, 0), at(t, 10, 30), at(t, 11, 0), true},
		{"back to back", at(t, 10, 0), at(t, 11, 0), at(t, 11, 0), at(t, 12, 0), false},
		{"back to back reversed", at(t, 11, 0), at(t, 12, 0), at(t, 10, 0), at(t, 11, 0), false},
		{"disjoint", at(t, 8, 0), at(t, 9, 0), at(t, 10, 0), at(t, 11, 0), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Fatalf("Overlaps(%v, %v, %v, %v) = %v, want %v", tc.aStart, tc.aEnd, tc.bStart, tc.bEnd, got, tc.want)
			}
		})
	}
}

func TestFindConflicts(t *testing.T) {
	t.Parallel()

	existing := []Booking{
		{ID: "b-1", ResourceID: "room-1", Start: at(t, 9, 0), End: at(t, 10, 0)},
		{ID: "b-2", ResourceID: "room-1", Start: at(t, 10, 0), End: at(t, 11, 0)},
		{ID: "b-3", ResourceID: "room-1", Start: at(t, 10, 30), End: at(t, 11, 30), Cancelled: true},
		{ID: "b-4", ResourceID: "room-2", Start: at(t, 10, 0), End: at(t, 11, 0)},
	}

	t.Run("overlap on same resource is reported", func(t *testing.T) {
		t.Parallel()
		conflicts := FindConflicts(existing, "room-1", at(t, 10, 30), at(t, 11, 30), "")
		if len(conflicts) != 1 || conflicts[0].ID != "b-2" {
			t.Fatalf("expected conflict with b-2, got %+v", conflicts)
		}
	})

	t.Run("cancelled bookings never conflict", func(t *testing.T) {
		t.Parallel()
		conflicts := FindConflicts(existing, "room-1", at(t, 11, 0), at(t, 11, 30), "")
		if len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("other resources are ignored", func(t *testing.T) {
		t.Parallel()
		conflicts := FindConflicts(existing, "room-2", at(t, 9, 0), at(t, 10, 30), "")
		if len(conflicts) != 1 || conflicts[0].ID != "b-4" {
			t.Fatalf("expected conflict with b-4, got %+v", conflicts)
		}
	})

	t.Run("exclusion id skips the booking itself", func(t *testing.T) {
		t.Parallel()
		conflicts := FindConflicts(existing, "room-1", at(t, 10, 0), at(t, 11, 0), "b-2")
		if len(conflicts) != 0 {
			t.Fatalf("expected no conflicts when excluding b-2, got %+v", conflicts)
		}
	})

	t.Run("back to back booking is allowed", func(t *testing.T) {
		t.Parallel()
		conflicts := FindConflicts(existing, "room-1", at(t, 11, 0), at(t, 12, 0), "")
		if len(conflicts) != 0 {
			t.Fatalf("expected no conflicts for back-to-back window, got %+v", conflicts)
		}
	})
}
