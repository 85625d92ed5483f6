package domain

import "errors"

var (
	// ErrNotFound reports a missing entity, for example when no active workflow
	// template exists for an entity type.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState reports that an entity left its expected state between read
	// and write, typically under a concurrent status change.
	ErrInvalidState = errors.New("invalid state")
)
