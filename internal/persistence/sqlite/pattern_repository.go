package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/resource-booking/internal/persistence"
)

// PatternRepository implements persistence.PatternRepository using SQLite.
// Weekdays are stored as a bitmask over ISO numbering (Monday == bit 1).
type PatternRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPatternRepository creates a new SQLite pattern repository.
func NewPatternRepository(pool *ConnectionPool) *PatternRepository {
	return &PatternRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreatePattern inserts a new recurring pattern.
func (r *PatternRepository) CreatePattern(ctx context.Context, pattern persistence.RecurringPattern) (persistence.RecurringPattern, error) {
	if pattern.ID == "" {
		return persistence.RecurringPattern{}, persistence.ErrConstraintViolation
	}

	metadata, err := encodeMetadata(pattern.Metadata)
	if err != nil {
		return persistence.RecurringPattern{}, err
	}

	var endDate sql.NullString
	if pattern.EndDate != nil {
		endDate = sql.NullString{String: pattern.EndDate.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err = r.helper.Exec(ctx, `
		INSERT INTO recurring_patterns
			(id, frequency, interval_value, start_date, end_date, weekdays, max_instances, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		pattern.ID,
		pattern.Frequency,
		pattern.Interval,
		pattern.StartDate.UTC().Format(time.RFC3339),
		endDate,
		persistence.EncodeWeekdays(pattern.Weekdays),
		pattern.MaxInstances,
		metadata,
		pattern.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return persistence.RecurringPattern{}, r.mapper.MapError(err)
	}
	return pattern, nil
}

// GetPattern retrieves a recurring pattern by ID.
func (r *PatternRepository) GetPattern(ctx context.Context, id string) (persistence.RecurringPattern, error) {
	if id == "" {
		return persistence.RecurringPattern{}, persistence.ErrNotFound
	}

	var pattern persistence.RecurringPattern
	var startStr, createdStr string
	var endDate, metadata sql.NullString
	var weekdayMask int64

	err := r.helper.QueryRow(ctx, `
		SELECT id, frequency, interval_value, start_date, end_date, weekdays, max_instances, metadata, created_at
		FROM recurring_patterns
		WHERE id = ?
	`, id).Scan(
		&pattern.ID,
		&pattern.Frequency,
		&pattern.Interval,
		&startStr,
		&endDate,
		&weekdayMask,
		&pattern.MaxInstances,
		&metadata,
		&createdStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.RecurringPattern{}, persistence.ErrNotFound
		}
		return persistence.RecurringPattern{}, r.mapper.MapError(err)
	}

	pattern.Weekdays = persistence.DecodeWeekdays(weekdayMask)
	if endDate.Valid {
		parsed, err := time.Parse(time.RFC3339, endDate.String)
		if err != nil {
			return persistence.RecurringPattern{}, fmt.Errorf("failed to parse end_date: %w", err)
		}
		pattern.EndDate = &parsed
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &pattern.Metadata); err != nil {
			return persistence.RecurringPattern{}, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	if pattern.StartDate, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.RecurringPattern{}, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if pattern.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.RecurringPattern{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return pattern, nil
}
