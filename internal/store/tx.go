package store

import (
	"context"

	"github.com/roach88/quorum/internal/ir"
)

// Tx is the record access handle for one atomic unit of work.
// Handles are only valid inside the Update or View callback that
// received them.
type Tx interface {
	// Create stores data at addr. Returns ErrAddressOccupied if a record
	// already exists there.
	Create(ctx context.Context, addr ir.Address, data []byte) error

	// Load returns the record stored at addr. Returns ErrNotFound if absent.
	Load(ctx context.Context, addr ir.Address) ([]byte, error)

	// Save replaces the record stored at addr. Returns ErrNotFound if absent.
	Save(ctx context.Context, addr ir.Address, data []byte) error

	// Append adds a journal entry. Entries become visible only if the unit
	// commits.
	Append(ctx context.Context, t ir.Transition) error
}
