package storage

import "errors"

var (
	// ErrNotFound is returned when a record does not exist or belongs to
	// another tenant.
	ErrNotFound = errors.New("audit record not found")

	// ErrConflict is returned when a record with the given ID already exists.
	ErrConflict = errors.New("audit record already exists")
)
