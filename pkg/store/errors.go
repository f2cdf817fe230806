package store

import "errors"

var (
	// ErrNotInitialized names a store that has not run its migrations.
	// No function in this package currently returns it; Open runs the
	// migrations before it returns a Store.
	ErrNotInitialized = errors.New("store: not initialized")

	// ErrSchemaMismatch is returned when a vault's on-disk schema_version
	// is newer than this build knows how to read.
	ErrSchemaMismatch = errors.New("store: schema version mismatch")

	// ErrNotFound is returned when a lookup by ID matches no row.
	ErrNotFound = errors.New("store: not found")

	// ErrConstraintViolation wraps a SQLite constraint failure (unique
	// index, foreign key, not-null) with a store-level sentinel so
	// callers can branch without depending on driver error types.
	ErrConstraintViolation = errors.New("store: constraint violation")

	// ErrInvalidStatusTransition is returned when a Project update moves
	// Status along an edge the lifecycle graph does not allow.
	ErrInvalidStatusTransition = errors.New("store: invalid status transition")
)
