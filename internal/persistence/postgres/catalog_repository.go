package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/resource-booking/internal/persistence"
)

// ResourceRepository implements persistence.ResourceRepository on PostgreSQL.
type ResourceRepository struct {
	db *pgxpool.Pool
}

// NewResourceRepository constructs a ResourceRepository.
func NewResourceRepository(db *pgxpool.Pool) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// CreateResource inserts a new resource.
func (r *ResourceRepository) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}
	metadata, err := encodeMetadata(resource.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO resources (id, name, capacity, active, resource_type_id, validation_strategy, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		resource.ID,
		resource.Name,
		resource.Capacity,
		resource.Active,
		emptyAsNil(resource.ResourceTypeID),
		resource.ValidationStrategy,
		metadata,
	)
	return mapError(err)
}

// GetResource retrieves a resource by ID.
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	if id == "" {
		return persistence.Resource{}, persistence.ErrNotFound
	}

	var resource persistence.Resource
	var typeID *string
	var metadata []byte

	err := r.db.QueryRow(ctx,
		`SELECT id, name, capacity, active, resource_type_id, validation_strategy, metadata
		 FROM resources WHERE id = $1`, id,
	).Scan(
		&resource.ID,
		&resource.Name,
		&resource.Capacity,
		&resource.Active,
		&typeID,
		&resource.ValidationStrategy,
		&metadata,
	)
	if err != nil {
		return persistence.Resource{}, mapError(err)
	}

	if typeID != nil {
		resource.ResourceTypeID = *typeID
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &resource.Metadata); err != nil {
			return persistence.Resource{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return resource, nil
}

// ListResources returns all resources ordered by name.
func (r *ResourceRepository) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, capacity, active, resource_type_id, validation_strategy, metadata
		 FROM resources ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var resources []persistence.Resource
	for rows.Next() {
		var resource persistence.Resource
		var typeID *string
		var metadata []byte
		if err := rows.Scan(
			&resource.ID,
			&resource.Name,
			&resource.Capacity,
			&resource.Active,
			&typeID,
			&resource.ValidationStrategy,
			&metadata,
		); err != nil {
			return nil, mapError(err)
		}
		if typeID != nil {
			resource.ResourceTypeID = *typeID
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &resource.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		resources = append(resources, resource)
	}
	return resources, rows.Err()
}

// CreateResourceType inserts a new resource type.
func (r *ResourceRepository) CreateResourceType(ctx context.Context, resourceType persistence.ResourceType) error {
	if resourceType.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO resource_types (id, name, default_duration_seconds, requires_approval, validation_strategy)
		 VALUES ($1, $2, $3, $4, $5)`,
		resourceType.ID,
		resourceType.Name,
		int64(resourceType.DefaultDuration/time.Second),
		resourceType.RequiresApproval,
		resourceType.ValidationStrategy,
	)
	return mapError(err)
}

// GetResourceType retrieves a resource type by ID.
func (r *ResourceRepository) GetResourceType(ctx context.Context, id string) (persistence.ResourceType, error) {
	if id == "" {
		return persistence.ResourceType{}, persistence.ErrNotFound
	}

	var resourceType persistence.ResourceType
	var durationSeconds int64

	err := r.db.QueryRow(ctx,
		`SELECT id, name, default_duration_seconds, requires_approval, validation_strategy
		 FROM resource_types WHERE id = $1`, id,
	).Scan(
		&resourceType.ID,
		&resourceType.Name,
		&durationSeconds,
		&resourceType.RequiresApproval,
		&resourceType.ValidationStrategy,
	)
	if err != nil {
		return persistence.ResourceType{}, mapError(err)
	}
	resourceType.DefaultDuration = time.Duration(durationSeconds) * time.Second
	return resourceType, nil
}

// UserRepository implements persistence.UserRepository on PostgreSQL.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, display_name, email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.DisplayName, user.Email, user.CreatedAt.UTC(), user.UpdatedAt.UTC(),
	)
	return mapError(err)
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	var user persistence.User
	err := r.db.QueryRow(ctx,
		`SELECT id, display_name, email, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.DisplayName, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	return user, nil
}

// PatternRepository implements persistence.PatternRepository on PostgreSQL.
// Weekdays are stored as a bitmask over ISO numbering, matching the SQLite
// backend.
type PatternRepository struct {
	db *pgxpool.Pool
}

// NewPatternRepository constructs a PatternRepository.
func NewPatternRepository(db *pgxpool.Pool) *PatternRepository {
	return &PatternRepository{db: db}
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

	var endDate *time.Time
	if pattern.EndDate != nil {
		utc := pattern.EndDate.UTC()
		endDate = &utc
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO recurring_patterns
			(id, frequency, interval_value, start_date, end_date, weekdays, max_instances, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		pattern.ID,
		pattern.Frequency,
		pattern.Interval,
		pattern.StartDate.UTC(),
		endDate,
		persistence.EncodeWeekdays(pattern.Weekdays),
		pattern.MaxInstances,
		metadata,
		pattern.CreatedAt.UTC(),
	)
	if err != nil {
		return persistence.RecurringPattern{}, mapError(err)
	}
	return pattern, nil
}

// GetPattern retrieves a recurring pattern by ID.
func (r *PatternRepository) GetPattern(ctx context.Context, id string) (persistence.RecurringPattern, error) {
	if id == "" {
		return persistence.RecurringPattern{}, persistence.ErrNotFound
	}

	var pattern persistence.RecurringPattern
	var weekdayMask int64
	var metadata []byte

	err := r.db.QueryRow(ctx,
		`SELECT id, frequency, interval_value, start_date, end_date, weekdays, max_instances, metadata, created_at
		 FROM recurring_patterns WHERE id = $1`, id,
	).Scan(
		&pattern.ID,
		&pattern.Frequency,
		&pattern.Interval,
		&pattern.StartDate,
		&pattern.EndDate,
		&weekdayMask,
		&pattern.MaxInstances,
		&metadata,
		&pattern.CreatedAt,
	)
	if err != nil {
		return persistence.RecurringPattern{}, mapError(err)
	}

	pattern.Weekdays = persistence.DecodeWeekdays(weekdayMask)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &pattern.Metadata); err != nil {
			return persistence.RecurringPattern{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return pattern, nil
}
