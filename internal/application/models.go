package application

import "time"

// Status tracks a reservation through its lifecycle.
type Status string

const (
	// StatusPending is the state every reservation is created in.
	StatusPending Status = "pending"
	// StatusConfirmed marks a reservation approved by an approver.
	StatusConfirmed Status = "confirmed"
	// StatusCancelled marks a reservation withdrawn; cancelled
	// reservations never count toward conflict detection.
	StatusCancelled Status = "cancelled"
	// StatusCompleted marks a reservation whose window has passed. It is
	// assigned externally, never by the engine.
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// User is a read-only account reference.
type User struct {
	ID          string
	DisplayName string
	Email       string
}

// ResourceType carries the defaults shared by resources of one class.
type ResourceType struct {
	ID                 string
	Name               string
	DefaultDuration    time.Duration
	RequiresApproval   bool
	ValidationStrategy string
}

// Resource is a bookable entity. ValidationStrategy, when set, overrides the
// resource type's default policy.
type Resource struct {
	ID                 string
	Name               string
	Capacity           int
	Active             bool
	ResourceTypeID     string
	ValidationStrategy *string
	Metadata           map[string]string
}

// Reservation books one resource over the half-open window [Start, End).
type Reservation struct {
	ID                 string
	UserID             string
	ResourceID         string
	Start              time.Time
	End                time.Time
	Status             Status
	Notes              string
	Metadata           map[string]string
	RecurringPatternID string
	ConfirmationCode   string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RecurringPattern is a persisted recurring reservation configuration.
type RecurringPattern struct {
	ID           string
	Frequency    string
	Interval     int
	StartDate    time.Time
	EndDate      *time.Time
	Weekdays     []int
	MaxInstances int
	Metadata     map[string]string
	CreatedAt    time.Time
}

// CreateReservationParams wraps the data required to admit a reservation.
type CreateReservationParams struct {
	UserID     string
	ResourceID string
	Start      time.Time
	End        time.Time
	Notes      string
	Metadata   map[string]string
}

// CreateRecurringReservationParams wraps the data required to create a
// recurring pattern and its occurrences. DayStart and DayEnd are the
// timestamps of the originally requested window; only their time-of-day
// components are combined with each accepted date.
type CreateRecurringReservationParams struct {
	UserID       string
	ResourceID   string
	Frequency    string
	Interval     int
	StartDate    time.Time
	EndDate      *time.Time
	Weekdays     []int
	MaxInstances int
	DayStart     time.Time
	DayEnd       time.Time
	Notes        string
	Metadata     map[string]string
}

// SkippedOccurrence reports an expanded occurrence that could not be
// admitted, with the reason it was rejected.
type SkippedOccurrence struct {
	Start  time.Time
	End    time.Time
	Reason string
}

// RecurringReservationResult reports the outcome of a recurring creation:
// the persisted pattern, the admitted occurrences, and the ones rejected by
// validation or conflicts.
type RecurringReservationResult struct {
	Pattern RecurringPattern
	Created []Reservation
	Skipped []SkippedOccurrence
}

// FirstOccurrence returns the earliest admitted reservation, if any.
func (r RecurringReservationResult) FirstOccurrence() (Reservation, bool) {
	if len(r.Created) == 0 {
		return Reservation{}, false
	}
	return r.Created[0], true
}

// LastOccurrence returns the latest admitted reservation, if any.
func (r RecurringReservationResult) LastOccurrence() (Reservation, bool) {
	if len(r.Created) == 0 {
		return Reservation{}, false
	}
	return r.Created[len(r.Created)-1], true
}
