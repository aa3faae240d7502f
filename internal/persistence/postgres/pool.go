// Package postgres implements the persistence repositories on PostgreSQL
// using pgx. Admission relies on a row-level lock on the resource: the
// conflict check and insert run while the resource row is held FOR UPDATE,
// so concurrent bookings of the same resource serialize.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/resource-booking/internal/persistence"
)

// NewPool creates and validates a pgx connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS resource_types (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	default_duration_seconds BIGINT NOT NULL DEFAULT 3600,
	requires_approval BOOLEAN NOT NULL DEFAULT FALSE,
	validation_strategy TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS resources (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	capacity INTEGER NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	resource_type_id TEXT REFERENCES resource_types(id),
	validation_strategy TEXT,
	metadata JSONB
);

CREATE TABLE IF NOT EXISTS recurring_patterns (
	id TEXT PRIMARY KEY,
	frequency TEXT NOT NULL,
	interval_value INTEGER NOT NULL DEFAULT 1,
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ,
	weekdays BIGINT NOT NULL DEFAULT 0,
	max_instances INTEGER NOT NULL DEFAULT 0,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS reservations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	resource_id TEXT NOT NULL REFERENCES resources(id),
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'confirmed', 'cancelled', 'completed')),
	notes TEXT,
	metadata JSONB,
	recurring_pattern_id TEXT REFERENCES recurring_patterns(id),
	confirmation_code TEXT UNIQUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CHECK (start_time < end_time)
);

CREATE INDEX IF NOT EXISTS idx_reservations_resource_window
	ON reservations (resource_id, start_time, end_time);
CREATE INDEX IF NOT EXISTS idx_reservations_user
	ON reservations (user_id);
CREATE INDEX IF NOT EXISTS idx_reservations_pattern
	ON reservations (recurring_pattern_id);
`

// Migrate creates the schema. Safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

// PostgreSQL error codes for constraint classes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// mapError translates pgx errors into persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return persistence.ErrDuplicate
		case codeForeignKeyViolation:
			return persistence.ErrForeignKeyViolation
		case codeCheckViolation:
			return persistence.ErrConstraintViolation
		}
	}
	return err
}
