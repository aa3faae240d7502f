package booking

import "time"

// Booking is the minimal view of a reservation needed for overlap checks.
type Booking struct {
	ID         string
	ResourceID string
	Start      time.Time
	End        time.Time
	Cancelled  bool
}

// Overlaps reports whether the two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share any instant. Back-to-back intervals, where one ends
// exactly when the other starts, do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// FindConflicts returns the bookings on the given resource that overlap the
// candidate window [start, end). Cancelled bookings never conflict. When
// excludeID is non-empty the booking with that ID is skipped, letting callers
// re-validate an existing booking against its peers.
func FindConflicts(existing []Booking, resourceID string, start, end time.Time, excludeID string) []Booking {
	var conflicts []Booking
	for _, b := range existing {
		if b.ResourceID != resourceID {
			continue
		}
		if b.Cancelled {
			continue
		}
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if Overlaps(b.Start, b.End, start, end) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts
}
