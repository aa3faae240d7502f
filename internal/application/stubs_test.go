package application

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/example/resource-booking/internal/booking"
	"github.com/example/resource-booking/internal/events"
)

// memStore is an in-memory backend implementing the repository interfaces
// the services depend on. CreateReservation holds the lock across the
// conflict check and the insert, matching the atomicity contract of the
// real backends.
type memStore struct {
	mu           sync.Mutex
	reservations map[string]Reservation
	resources    map[string]Resource
	types        map[string]ResourceType
	users        map[string]User
	patterns     map[string]RecurringPattern

	createErr error
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{
		reservations: make(map[string]Reservation),
		resources:    make(map[string]Resource),
		types:        make(map[string]ResourceType),
		users:        make(map[string]User),
		patterns:     make(map[string]RecurringPattern),
	}
}

func (m *memStore) addUser(u User)               { m.users[u.ID] = u }
func (m *memStore) addResource(r Resource)       { m.resources[r.ID] = r }
func (m *memStore) addType(rt ResourceType)      { m.types[rt.ID] = rt }
func (m *memStore) addReservation(r Reservation) { m.reservations[r.ID] = r }

func (m *memStore) CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return Reservation{}, m.createErr
	}
	if len(m.conflictsLocked(reservation.ResourceID, reservation.Start, reservation.End, reservation.ID)) > 0 {
		return Reservation{}, ErrConflict
	}
	m.reservations[reservation.ID] = reservation
	return reservation, nil
}

func (m *memStore) GetReservation(ctx context.Context, id string) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reservation, ok := m.reservations[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return reservation, nil
}

func (m *memStore) UpdateReservationStatus(ctx context.Context, id string, status Status, updatedAt time.Time) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return Reservation{}, m.updateErr
	}
	reservation, ok := m.reservations[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	reservation.Status = status
	reservation.UpdatedAt = updatedAt
	m.reservations[id] = reservation
	return reservation, nil
}

func (m *memStore) FindConflicts(ctx context.Context, resourceID string, start, end time.Time, excludeID string) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conflictsLocked(resourceID, start, end, excludeID), nil
}

func (m *memStore) conflictsLocked(resourceID string, start, end time.Time, excludeID string) []Reservation {
	existing := make([]booking.Booking, 0, len(m.reservations))
	for _, r := range m.reservations {
		existing = append(existing, booking.Booking{
			ID:         r.ID,
			ResourceID: r.ResourceID,
			Start:      r.Start,
			End:        r.End,
			Cancelled:  r.Status == StatusCancelled,
		})
	}
	var out []Reservation
	for _, hit := range booking.FindConflicts(existing, resourceID, start, end, excludeID) {
		out = append(out, m.reservations[hit.ID])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (m *memStore) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Reservation
	for _, r := range m.reservations {
		if r.UserID != userID {
			continue
		}
		if r.Status != StatusPending && r.Status != StatusConfirmed {
			continue
		}
		if r.End.Before(now) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *memStore) ListForPattern(ctx context.Context, patternID string) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Reservation
	for _, r := range m.reservations {
		if r.RecurringPatternID == patternID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *memStore) GetResource(ctx context.Context, id string) (Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resource, ok := m.resources[id]
	if !ok {
		return Resource{}, ErrNotFound
	}
	return resource, nil
}

func (m *memStore) GetResourceType(ctx context.Context, id string) (ResourceType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resourceType, ok := m.types[id]
	if !ok {
		return ResourceType{}, ErrNotFound
	}
	return resourceType, nil
}

func (m *memStore) GetUser(ctx context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (m *memStore) CreatePattern(ctx context.Context, pattern RecurringPattern) (RecurringPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns[pattern.ID] = pattern
	return pattern, nil
}

func (m *memStore) GetPattern(ctx context.Context, id string) (RecurringPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pattern, ok := m.patterns[id]
	if !ok {
		return RecurringPattern{}, ErrNotFound
	}
	return pattern, nil
}

// recordingPublisher captures emitted events and can be primed to fail.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ReservationEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) recorded() []events.ReservationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.ReservationEvent, len(p.events))
	copy(out, p.events)
	return out
}

// sequenceIDs returns a generator yielding prefix-1, prefix-2, ...
func sequenceIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
