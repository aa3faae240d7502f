package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrConflict is returned when an insert would overlap an existing
	// non-cancelled reservation on the same resource.
	ErrConflict = errors.New("persistence: booking conflict")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a record breaks a schema
	// level check such as start < end.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced record is
	// missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)
