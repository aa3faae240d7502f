package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/resource-booking/internal/persistence"
)

var (
	userCounter        uint64
	resourceCounter    uint64
	typeCounter        uint64
	reservationCounter uint64
	patternCounter     uint64
)

// The baseline is a Tuesday morning so fixtures have weekdays on both sides
// for lead-time and weekday rules.
var referenceTime = time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceMonday returns the Monday following ReferenceTime, the default
// booking day used by fixtures.
func ReferenceMonday() time.Time {
	return time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC)
}

// At combines a fixture day with an hour and minute in UTC.
func At(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

// ----------------------------- User fixtures -----------------------------

// UserOption configures a generated user fixture.
type UserOption func(*persistence.User)

// NewUserFixture returns a deterministic user record with optional overrides.
func NewUserFixture(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := persistence.User{
		ID:          id,
		DisplayName: fmt.Sprintf("User %03d", idx),
		Email:       fmt.Sprintf("%s@example.com", id),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) {
		u.ID = id
	}
}

// WithUserDisplayName overrides the generated display name.
func WithUserDisplayName(name string) UserOption {
	return func(u *persistence.User) {
		u.DisplayName = name
	}
}

// ------------------------- Resource type fixtures -------------------------

// ResourceTypeOption configures a generated resource type fixture.
type ResourceTypeOption func(*persistence.ResourceType)

// NewResourceTypeFixture returns a deterministic resource type record.
func NewResourceTypeFixture(opts ...ResourceTypeOption) persistence.ResourceType {
	idx := atomic.AddUint64(&typeCounter, 1)
	fixture := persistence.ResourceType{
		ID:                 fmt.Sprintf("type-%03d", idx),
		Name:               fmt.Sprintf("Type %03d", idx),
		DefaultDuration:    time.Hour,
		RequiresApproval:   false,
		ValidationStrategy: "",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTypeID overrides the generated resource type ID.
func WithTypeID(id string) ResourceTypeOption {
	return func(rt *persistence.ResourceType) {
		rt.ID = id
	}
}

// WithTypeValidationStrategy sets the default policy name for the type.
func WithTypeValidationStrategy(name string) ResourceTypeOption {
	return func(rt *persistence.ResourceType) {
		rt.ValidationStrategy = name
	}
}

// WithTypeRequiresApproval sets the approval flag on the type.
func WithTypeRequiresApproval(required bool) ResourceTypeOption {
	return func(rt *persistence.ResourceType) {
		rt.RequiresApproval = required
	}
}

// --------------------------- Resource fixtures ---------------------------

// ResourceOption configures a generated resource fixture.
type ResourceOption func(*persistence.Resource)

// NewResourceFixture returns a deterministic active resource record.
func NewResourceFixture(opts ...ResourceOption) persistence.Resource {
	idx := atomic.AddUint64(&resourceCounter, 1)
	fixture := persistence.Resource{
		ID:       fmt.Sprintf("resource-%03d", idx),
		Name:     fmt.Sprintf("Resource %03d", idx),
		Capacity: 4,
		Active:   true,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithResourceID overrides the generated resource ID.
func WithResourceID(id string) ResourceOption {
	return func(r *persistence.Resource) {
		r.ID = id
	}
}

// WithResourceActive sets the active flag.
func WithResourceActive(active bool) ResourceOption {
	return func(r *persistence.Resource) {
		r.Active = active
	}
}

// WithResourceType links the resource to a resource type.
func WithResourceType(typeID string) ResourceOption {
	return func(r *persistence.Resource) {
		r.ResourceTypeID = typeID
	}
}

// WithResourceValidationStrategy sets the per-resource policy override.
func WithResourceValidationStrategy(name string) ResourceOption {
	return func(r *persistence.Resource) {
		r.ValidationStrategy = &name
	}
}

// WithResourceMetadata sets arbitrary metadata on the resource.
func WithResourceMetadata(metadata map[string]string) ResourceOption {
	return func(r *persistence.Resource) {
		r.Metadata = metadata
	}
}

// -------------------------- Reservation fixtures --------------------------

// ReservationOption configures a generated reservation fixture.
type ReservationOption func(*persistence.Reservation)

// NewReservationFixture returns a deterministic pending reservation. The
// default window is one hour starting at 10:00 on ReferenceMonday, offset by
// the fixture counter so sibling fixtures never collide.
func NewReservationFixture(userID, resourceID string, opts ...ReservationOption) persistence.Reservation {
	idx := atomic.AddUint64(&reservationCounter, 1)
	start := At(ReferenceMonday(), 10, 0).Add(time.Duration(idx) * 2 * time.Hour)
	fixture := persistence.Reservation{
		ID:               fmt.Sprintf("reservation-%03d", idx),
		UserID:           userID,
		ResourceID:       resourceID,
		Start:            start,
		End:              start.Add(time.Hour),
		Status:           persistence.StatusPending,
		ConfirmationCode: fmt.Sprintf("%016X", idx),
		CreatedAt:        referenceTime,
		UpdatedAt:        referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(r *persistence.Reservation) {
		r.ID = id
	}
}

// WithReservationWindow sets the reservation time window.
func WithReservationWindow(start, end time.Time) ReservationOption {
	return func(r *persistence.Reservation) {
		r.Start = start
		r.End = end
	}
}

// WithReservationStatus sets the reservation status.
func WithReservationStatus(status string) ReservationOption {
	return func(r *persistence.Reservation) {
		r.Status = status
	}
}

// WithReservationPattern links the reservation to a recurring pattern.
func WithReservationPattern(patternID string) ReservationOption {
	return func(r *persistence.Reservation) {
		r.RecurringPatternID = &patternID
	}
}

// WithReservationNotes sets the free-form notes.
func WithReservationNotes(notes string) ReservationOption {
	return func(r *persistence.Reservation) {
		r.Notes = &notes
	}
}

// ---------------------------- Pattern fixtures ----------------------------

// PatternOption configures a generated recurring pattern fixture.
type PatternOption func(*persistence.RecurringPattern)

// NewPatternFixture returns a deterministic weekly pattern capped at six
// occurrences on Monday, Wednesday and Friday.
func NewPatternFixture(opts ...PatternOption) persistence.RecurringPattern {
	idx := atomic.AddUint64(&patternCounter, 1)
	fixture := persistence.RecurringPattern{
		ID:           fmt.Sprintf("pattern-%03d", idx),
		Frequency:    "weekly",
		Interval:     1,
		StartDate:    ReferenceMonday(),
		Weekdays:     []int{1, 3, 5},
		MaxInstances: 6,
		CreatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPatternID overrides the generated pattern ID.
func WithPatternID(id string) PatternOption {
	return func(p *persistence.RecurringPattern) {
		p.ID = id
	}
}

// WithPatternFrequency sets the frequency and interval.
func WithPatternFrequency(frequency string, interval int) PatternOption {
	return func(p *persistence.RecurringPattern) {
		p.Frequency = frequency
		p.Interval = interval
	}
}

// WithPatternEndDate bounds the pattern by date instead of instance count.
func WithPatternEndDate(end time.Time) PatternOption {
	return func(p *persistence.RecurringPattern) {
		p.EndDate = &end
		p.MaxInstances = 0
	}
}
