package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/resource-booking/internal/persistence"
)

const reservationColumns = `id, user_id, resource_id, start_time, end_time, status,
	notes, metadata, recurring_pattern_id, confirmation_code, created_at, updated_at`

// ReservationRepository implements persistence.ReservationRepository on
// PostgreSQL.
type ReservationRepository struct {
	db *pgxpool.Pool
}

// NewReservationRepository constructs a ReservationRepository.
func NewReservationRepository(db *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// CreateReservation performs the conflict check and insert while holding a
// row-level lock on the resource, so concurrent admissions of the same
// resource serialize and at most one overlapping insert succeeds.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) (created persistence.Reservation, err error) {
	if reservation.ID == "" || !reservation.Start.Before(reservation.End) {
		return persistence.Reservation{}, persistence.ErrConstraintViolation
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return persistence.Reservation{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock the resource row. Concurrent transactions booking the same
	// resource block here until this one commits or rolls back.
	var resourceID string
	err = tx.QueryRow(ctx,
		`SELECT id FROM resources WHERE id = $1 FOR UPDATE`,
		reservation.ResourceID,
	).Scan(&resourceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return persistence.Reservation{}, persistence.ErrForeignKeyViolation
		}
		return persistence.Reservation{}, fmt.Errorf("lock resource row: %w", err)
	}

	var conflicts int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM reservations
		 WHERE resource_id = $1
		   AND status != 'cancelled'
		   AND start_time < $2
		   AND end_time > $3`,
		reservation.ResourceID, reservation.End.UTC(), reservation.Start.UTC(),
	).Scan(&conflicts)
	if err != nil {
		return persistence.Reservation{}, fmt.Errorf("check conflicts: %w", err)
	}
	if conflicts > 0 {
		return persistence.Reservation{}, persistence.ErrConflict
	}

	metadata, err := encodeMetadata(reservation.Metadata)
	if err != nil {
		return persistence.Reservation{}, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO reservations (`+reservationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		reservation.ID,
		reservation.UserID,
		reservation.ResourceID,
		reservation.Start.UTC(),
		reservation.End.UTC(),
		reservation.Status,
		reservation.Notes,
		metadata,
		reservation.RecurringPatternID,
		emptyAsNil(reservation.ConfirmationCode),
		reservation.CreatedAt.UTC(),
		reservation.UpdatedAt.UTC(),
	)
	if err != nil {
		return persistence.Reservation{}, mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return persistence.Reservation{}, fmt.Errorf("commit transaction: %w", err)
	}
	return reservation, nil
}

// GetReservation retrieves a reservation by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	row := r.db.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	reservation, err := scanReservation(row)
	if err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	return reservation, nil
}

// UpdateReservationStatus transitions a reservation's status and returns the
// updated record.
func (r *ReservationRepository) UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	row := r.db.QueryRow(ctx,
		`UPDATE reservations
		 SET status = $1, updated_at = $2
		 WHERE id = $3
		 RETURNING `+reservationColumns,
		status, updatedAt.UTC(), id,
	)
	reservation, err := scanReservation(row)
	if err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	return reservation, nil
}

// FindConflicts returns non-cancelled reservations on the resource
// overlapping [start, end), optionally excluding one reservation id.
func (r *ReservationRepository) FindConflicts(ctx context.Context, resourceID string, start, end time.Time, excludeID string) ([]persistence.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE resource_id = $1
		  AND status != 'cancelled'
		  AND start_time < $2
		  AND end_time > $3`
	args := []any{resourceID, end.UTC(), start.UTC()}
	if excludeID != "" {
		query += ` AND id != $4`
		args = append(args, excludeID)
	}
	query += ` ORDER BY start_time ASC, id ASC`

	return r.queryReservations(ctx, query, args...)
}

// ListActiveForUser returns the user's pending and confirmed reservations
// ending at or after now, ordered by start time ascending.
func (r *ReservationRepository) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]persistence.Reservation, error) {
	return r.queryReservations(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE user_id = $1
		   AND status IN ('pending', 'confirmed')
		   AND end_time >= $2
		 ORDER BY start_time ASC, id ASC`,
		userID, now.UTC(),
	)
}

// ListForPattern returns all reservations generated from a recurring
// pattern, ordered by start time ascending.
func (r *ReservationRepository) ListForPattern(ctx context.Context, patternID string) ([]persistence.Reservation, error) {
	return r.queryReservations(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE recurring_pattern_id = $1
		 ORDER BY start_time ASC, id ASC`,
		patternID,
	)
}

func (r *ReservationRepository) queryReservations(ctx context.Context, query string, args ...any) ([]persistence.Reservation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, mapError(err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return reservations, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	var metadata []byte
	var code *string

	err := row.Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.ResourceID,
		&reservation.Start,
		&reservation.End,
		&reservation.Status,
		&reservation.Notes,
		&metadata,
		&reservation.RecurringPatternID,
		&code,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)
	if err != nil {
		return persistence.Reservation{}, err
	}
	if code != nil {
		reservation.ConfirmationCode = *code
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &reservation.Metadata); err != nil {
			return persistence.Reservation{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return reservation, nil
}

func encodeMetadata(metadata map[string]string) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return encoded, nil
}

func emptyAsNil(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
