package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/quorum/internal/authz"
	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/store"
)

// unit is the state of one transition being applied.
type unit struct {
	ctx    context.Context
	tx     store.Tx
	caller ir.Address
	now    int64
	policy ApprovalPolicy
}

// load reads and decodes the record at addr into rec.
// A missing record is a NOT_FOUND rejection.
func (u *unit) load(addr ir.Address, rec ir.Record) error {
	data, err := u.tx.Load(u.ctx, addr)
	if errors.Is(err, store.ErrNotFound) {
		return reject(CodeNotFound, "%s %s not found", rec.Kind(), addr.Short())
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", rec.Kind(), err)
	}
	if err := ir.Decode(data, rec); err != nil {
		return fmt.Errorf("load %s %s: %w", rec.Kind(), addr.Short(), err)
	}
	return nil
}

// create encodes rec and stores it at addr. Returns store.ErrAddressOccupied
// unwrapped so callers can pick the rejection code.
func (u *unit) create(addr ir.Address, rec ir.Record) error {
	data, err := ir.Encode(rec)
	if err != nil {
		return err
	}
	if err := u.tx.Create(u.ctx, addr, data); err != nil {
		if errors.Is(err, store.ErrAddressOccupied) {
			return store.ErrAddressOccupied
		}
		return fmt.Errorf("create %s: %w", rec.Kind(), err)
	}
	return nil
}

// save encodes rec and replaces the record at addr.
func (u *unit) save(addr ir.Address, rec ir.Record) error {
	data, err := ir.Encode(rec)
	if err != nil {
		return err
	}
	if err := u.tx.Save(u.ctx, addr, data); err != nil {
		return fmt.Errorf("save %s: %w", rec.Kind(), err)
	}
	return nil
}

// deny converts a guard denial into the rejection code for its capability.
func deny(err error, codes map[authz.Capability]Code) error {
	var d *authz.Denial
	if !errors.As(err, &d) {
		return err
	}
	code, ok := codes[d.Capability]
	if !ok {
		code = CodeUnauthorized
	}
	return wrapReject(code, d, "%s", d.Reason)
}
