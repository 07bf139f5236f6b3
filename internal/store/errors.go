package store

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrAlreadyResolved guards resolve idempotence: a resolved doubt is
	// terminal and a second resolve must not double-create patterns.
	ErrAlreadyResolved = errors.New("doubt already resolved")

	// ErrNotClaimed is returned when resolving an item that was never
	// claimed (or has been requeued).
	ErrNotClaimed = errors.New("doubt is not claimed")
)
