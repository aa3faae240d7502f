package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/resource-booking/internal/persistence"
)

// ResourceRepository implements persistence.ResourceRepository using SQLite.
type ResourceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewResourceRepository creates a new SQLite resource repository.
func NewResourceRepository(pool *ConnectionPool) *ResourceRepository {
	return &ResourceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
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

	_, err = r.helper.Exec(ctx, `
		INSERT INTO resources (id, name, capacity, active, resource_type_id, validation_strategy, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		resource.ID,
		resource.Name,
		resource.Capacity,
		boolToInt(resource.Active),
		emptyAsNull(resource.ResourceTypeID),
		nullString(resource.ValidationStrategy),
		metadata,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetResource retrieves a resource by ID.
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	if id == "" {
		return persistence.Resource{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `
		SELECT id, name, capacity, active, resource_type_id, validation_strategy, metadata
		FROM resources
		WHERE id = ?
	`, id)

	resource, err := scanResource(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Resource{}, persistence.ErrNotFound
		}
		return persistence.Resource{}, r.mapper.MapError(err)
	}
	return resource, nil
}

// ListResources returns all resources ordered by name.
func (r *ResourceRepository) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, name, capacity, active, resource_type_id, validation_strategy, metadata
		FROM resources
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var resources []persistence.Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return resources, nil
}

// CreateResourceType inserts a new resource type.
func (r *ResourceRepository) CreateResourceType(ctx context.Context, resourceType persistence.ResourceType) error {
	if resourceType.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO resource_types (id, name, default_duration_seconds, requires_approval, validation_strategy)
		VALUES (?, ?, ?, ?, ?)
	`,
		resourceType.ID,
		resourceType.Name,
		int64(resourceType.DefaultDuration/time.Second),
		boolToInt(resourceType.RequiresApproval),
		resourceType.ValidationStrategy,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetResourceType retrieves a resource type by ID.
func (r *ResourceRepository) GetResourceType(ctx context.Context, id string) (persistence.ResourceType, error) {
	if id == "" {
		return persistence.ResourceType{}, persistence.ErrNotFound
	}

	var resourceType persistence.ResourceType
	var durationSeconds int64
	var requiresApproval int

	err := r.helper.QueryRow(ctx, `
		SELECT id, name, default_duration_seconds, requires_approval, validation_strategy
		FROM resource_types
		WHERE id = ?
	`, id).Scan(
		&resourceType.ID,
		&resourceType.Name,
		&durationSeconds,
		&requiresApproval,
		&resourceType.ValidationStrategy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.ResourceType{}, persistence.ErrNotFound
		}
		return persistence.ResourceType{}, r.mapper.MapError(err)
	}

	resourceType.DefaultDuration = time.Duration(durationSeconds) * time.Second
	resourceType.RequiresApproval = requiresApproval != 0
	return resourceType, nil
}

func scanResource(row rowScanner) (persistence.Resource, error) {
	var resource persistence.Resource
	var active int
	var typeID, strategy, metadata sql.NullString

	err := row.Scan(
		&resource.ID,
		&resource.Name,
		&resource.Capacity,
		&active,
		&typeID,
		&strategy,
		&metadata,
	)
	if err != nil {
		return persistence.Resource{}, err
	}

	resource.Active = active != 0
	if typeID.Valid {
		resource.ResourceTypeID = typeID.String
	}
	if strategy.Valid {
		resource.ValidationStrategy = &strategy.String
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &resource.Metadata); err != nil {
			return persistence.Resource{}, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	return resource, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
