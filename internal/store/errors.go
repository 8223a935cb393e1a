package store

import "errors"

var (
	// ErrAddressOccupied is returned by Create when a record already exists
	// at the address.
	ErrAddressOccupied = errors.New("address occupied")

	// ErrNotFound is returned by Load and Save when no record exists at the
	// address.
	ErrNotFound = errors.New("record not found")

	// ErrKindMismatch is returned by Save when the new record's kind differs
	// from the stored record's kind.
	ErrKindMismatch = errors.New("record kind mismatch")
)
