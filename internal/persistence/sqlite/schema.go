package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// schemaVersion identifies the baseline schema. Migrate records applied
// versions in schema_migrations so reopening an existing database is a
// no-op.
const schemaVersion = "001"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS resource_types (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	default_duration_seconds INTEGER NOT NULL DEFAULT 3600,
	requires_approval INTEGER NOT NULL DEFAULT 0,
	validation_strategy TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS resources (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	capacity INTEGER NOT NULL DEFAULT 0,
	active INTEGER NOT NULL DEFAULT 1,
	resource_type_id TEXT REFERENCES resource_types(id),
	validation_strategy TEXT,
	metadata TEXT
);

CREATE TABLE IF NOT EXISTS recurring_patterns (
	id TEXT PRIMARY KEY,
	frequency TEXT NOT NULL,
	interval_value INTEGER NOT NULL DEFAULT 1,
	start_date TEXT NOT NULL,
	end_date TEXT,
	weekdays INTEGER NOT NULL DEFAULT 0,
	max_instances INTEGER NOT NULL DEFAULT 0,
	metadata TEXT,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reservations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	resource_id TEXT NOT NULL REFERENCES resources(id),
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'confirmed', 'cancelled', 'completed')),
	notes TEXT,
	metadata TEXT,
	recurring_pattern_id TEXT REFERENCES recurring_patterns(id),
	confirmation_code TEXT UNIQUE,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	CHECK (start_time < end_time)
);

CREATE INDEX IF NOT EXISTS idx_reservations_resource_window
	ON reservations(resource_id, start_time, end_time);
CREATE INDEX IF NOT EXISTS idx_reservations_user
	ON reservations(user_id);
CREATE INDEX IF NOT EXISTS idx_reservations_pattern
	ON reservations(recurring_pattern_id);
`

// Migrate creates the schema and records the applied version. It is safe to
// call on every startup.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to initialise version table: %w", err)
	}

	applied, err := cp.versionApplied(ctx, schemaVersion)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	return cp.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(schemaSQL); err != nil {
			return fmt.Errorf("failed to apply schema %s: %w", schemaVersion, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			schemaVersion, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}

func (cp *ConnectionPool) versionApplied(ctx context.Context, version string) (bool, error) {
	var count int
	err := cp.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return count > 0, nil
}
