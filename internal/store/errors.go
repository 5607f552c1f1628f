package store

import "errors"

// Sentinel errors shared by all store methods. Callers match them with
// errors.Is; everything else is a persistence failure that aborts the
// request.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert would violate a
	// uniqueness constraint, such as an already registered email.
	ErrDuplicate = errors.New("entity already exists")
)
