package persistence

import "time"

// Reservation status values stored in the reservations table.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// User represents a read-only account reference in the booking domain.
type User struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ResourceType groups resources sharing defaults such as the validation
// policy and approval requirement.
type ResourceType struct {
	ID                 string
	Name               string
	DefaultDuration    time.Duration
	RequiresApproval   bool
	ValidationStrategy string
}

// Resource is a bookable entity (room, server, vehicle, equipment).
type Resource struct {
	ID                 string
	Name               string
	Capacity           int
	Active             bool
	ResourceTypeID     string
	ValidationStrategy *string
	Metadata           map[string]string
}

// Reservation is a booking of one resource over a half-open time window.
type Reservation struct {
	ID                 string
	UserID             string
	ResourceID         string
	Start              time.Time
	End                time.Time
	Status             string
	Notes              *string
	Metadata           map[string]string
	RecurringPatternID *string
	ConfirmationCode   string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RecurringPattern stores a recurring reservation configuration. Patterns
// are immutable after creation except for their metadata.
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
