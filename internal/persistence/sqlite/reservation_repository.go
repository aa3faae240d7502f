package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/resource-booking/internal/persistence"
)

const reservationColumns = `id, user_id, resource_id, start_time, end_time, status,
	notes, metadata, recurring_pattern_id, confirmation_code, created_at, updated_at`

// ReservationRepository implements persistence.ReservationRepository using
// SQLite. The conflict check and insert run in one transaction; with the
// busy-timeout pragma and the retry helper concurrent admissions serialize
// on the database lock, so at most one overlapping insert succeeds.
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewReservationRepository creates a new SQLite reservation repository.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateReservation checks for overlapping non-cancelled reservations and
// inserts the record in one transaction.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) (persistence.Reservation, error) {
	if reservation.ID == "" {
		return persistence.Reservation{}, persistence.ErrConstraintViolation
	}
	if !reservation.Start.Before(reservation.End) {
		return persistence.Reservation{}, persistence.ErrConstraintViolation
	}

	reservation.Start = reservation.Start.UTC()
	reservation.End = reservation.End.UTC()

	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var conflicts int
			err := r.helper.QueryRowTx(tx, `
				SELECT COUNT(*)
				FROM reservations
				WHERE resource_id = ?
				  AND status != 'cancelled'
				  AND start_time < ?
				  AND end_time > ?
			`,
				reservation.ResourceID,
				reservation.End.Format(time.RFC3339),
				reservation.Start.Format(time.RFC3339),
			).Scan(&conflicts)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if conflicts > 0 {
				return persistence.ErrConflict
			}

			metadata, err := encodeMetadata(reservation.Metadata)
			if err != nil {
				return err
			}

			_, err = r.helper.ExecTx(tx, `
				INSERT INTO reservations (`+reservationColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				reservation.ID,
				reservation.UserID,
				reservation.ResourceID,
				reservation.Start.Format(time.RFC3339),
				reservation.End.Format(time.RFC3339),
				reservation.Status,
				nullString(reservation.Notes),
				metadata,
				nullString(reservation.RecurringPatternID),
				emptyAsNull(reservation.ConfirmationCode),
				reservation.CreatedAt.UTC().Format(time.RFC3339),
				reservation.UpdatedAt.UTC().Format(time.RFC3339),
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			return nil
		})
	})
	if err != nil {
		return persistence.Reservation{}, err
	}

	return reservation, nil
}

// GetReservation retrieves a reservation by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = ?
	`, id)

	reservation, err := scanReservation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, r.mapper.MapError(err)
	}
	return reservation, nil
}

// UpdateReservationStatus transitions a reservation's status and returns the
// updated record.
func (r *ReservationRepository) UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	var updated persistence.Reservation
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(tx, `
				UPDATE reservations
				SET status = ?, updated_at = ?
				WHERE id = ?
			`, status, updatedAt.UTC().Format(time.RFC3339), id)
			if err != nil {
				return r.mapper.MapError(err)
			}

			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if affected == 0 {
				return persistence.ErrNotFound
			}

			row := r.helper.QueryRowTx(tx, `
				SELECT `+reservationColumns+`
				FROM reservations
				WHERE id = ?
			`, id)
			updated, err = scanReservation(row)
			if err != nil {
				return r.mapper.MapError(err)
			}
			return nil
		})
	})
	if err != nil {
		return persistence.Reservation{}, err
	}
	return updated, nil
}

// FindConflicts returns non-cancelled reservations on the resource
// overlapping [start, end), optionally excluding one reservation id.
func (r *ReservationRepository) FindConflicts(ctx context.Context, resourceID string, start, end time.Time, excludeID string) ([]persistence.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE resource_id = ?
		  AND status != 'cancelled'
		  AND start_time < ?
		  AND end_time > ?
	`
	args := []any{
		resourceID,
		end.UTC().Format(time.RFC3339),
		start.UTC().Format(time.RFC3339),
	}
	if excludeID != "" {
		query += " AND id != ?"
		args = append(args, excludeID)
	}
	query += " ORDER BY start_time ASC, id ASC"

	return r.queryReservations(ctx, query, args...)
}

// ListActiveForUser returns the user's pending and confirmed reservations
// ending at or after now, ordered by start time ascending.
func (r *ReservationRepository) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]persistence.Reservation, error) {
	return r.queryReservations(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE user_id = ?
		  AND status IN ('pending', 'confirmed')
		  AND end_time >= ?
		ORDER BY start_time ASC, id ASC
	`, userID, now.UTC().Format(time.RFC3339))
}

// ListForPattern returns all reservations generated from a recurring
// pattern, ordered by start time ascending.
func (r *ReservationRepository) ListForPattern(ctx context.Context, patternID string) ([]persistence.Reservation, error) {
	return r.queryReservations(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE recurring_pattern_id = ?
		ORDER BY start_time ASC, id ASC
	`, patternID)
}

func (r *ReservationRepository) queryReservations(ctx context.Context, query string, args ...any) ([]persistence.Reservation, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return reservations, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	var startStr, endStr, createdStr, updatedStr string
	var notes, metadata, patternID, code sql.NullString

	err := row.Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.ResourceID,
		&startStr,
		&endStr,
		&reservation.Status,
		&notes,
		&metadata,
		&patternID,
		&code,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.Reservation{}, err
	}

	if notes.Valid {
		reservation.Notes = &notes.String
	}
	if patternID.Valid {
		reservation.RecurringPatternID = &patternID.String
	}
	if code.Valid {
		reservation.ConfirmationCode = code.String
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &reservation.Metadata); err != nil {
			return persistence.Reservation{}, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}

	if reservation.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if reservation.End, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if reservation.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if reservation.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return reservation, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func emptyAsNull(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func encodeMetadata(metadata map[string]string) (sql.NullString, error) {
	if len(metadata) == 0 {
		return sql.NullString{}, nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return sql.NullString{String: string(encoded), Valid: true}, nil
}
