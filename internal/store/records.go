package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/schema"
)

// errReadOnly is returned by writes attempted inside View.
var errReadOnly = errors.New("write attempted in read-only view")

// sqliteTx implements Tx over a database/sql transaction.
type sqliteTx struct {
	tx        *sql.Tx
	validator *schema.Validator
	readOnly  bool
}

// Create inserts a record. Uses ON CONFLICT(address) DO NOTHING and checks
// RowsAffected, so an occupied address is a clean ErrAddressOccupied rather
// than a constraint error that poisons the transaction.
func (t *sqliteTx) Create(ctx context.Context, addr ir.Address, data []byte) error {
	if t.readOnly {
		return errReadOnly
	}
	kind, err := t.check(data)
	if err != nil {
		return fmt.Errorf("create %s: %w", addr.Short(), err)
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO records (address, kind, data)
		VALUES (?, ?, ?)
		ON CONFLICT(address) DO NOTHING
	`, addr.String(), string(kind), string(data))
	if err != nil {
		return fmt.Errorf("create %s: %w", addr.Short(), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create %s: rows affected: %w", addr.Short(), err)
	}
	if rowsAffected == 0 {
		return ErrAddressOccupied
	}
	return nil
}

// Load returns the record at addr after validating its shape.
func (t *sqliteTx) Load(ctx context.Context, addr ir.Address) ([]byte, error) {
	var data string
	err := t.tx.QueryRowContext(ctx, `
		SELECT data FROM records WHERE address = ?
	`, addr.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", addr.Short(), err)
	}

	if _, err := t.check([]byte(data)); err != nil {
		return nil, fmt.Errorf("load %s: %w", addr.Short(), err)
	}
	return []byte(data), nil
}

// Save replaces the record at addr. The stored kind must match.
func (t *sqliteTx) Save(ctx context.Context, addr ir.Address, data []byte) error {
	if t.readOnly {
		return errReadOnly
	}
	kind, err := t.check(data)
	if err != nil {
		return fmt.Errorf("save %s: %w", addr.Short(), err)
	}

	var stored string
	err = t.tx.QueryRowContext(ctx, `
		SELECT kind FROM records WHERE address = ?
	`, addr.String()).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", addr.Short(), err)
	}
	if stored != string(kind) {
		return fmt.Errorf("save %s: %w: stored %s, got %s", addr.Short(), ErrKindMismatch, stored, kind)
	}

	if _, err := t.tx.ExecContext(ctx, `
		UPDATE records SET data = ? WHERE address = ?
	`, string(data), addr.String()); err != nil {
		return fmt.Errorf("save %s: %w", addr.Short(), err)
	}
	return nil
}

// Append inserts a journal entry.
func (t *sqliteTx) Append(ctx context.Context, tr ir.Transition) error {
	if t.readOnly {
		return errReadOnly
	}
	argsJSON, err := marshalArgs(tr.Args)
	if err != nil {
		return fmt.Errorf("append transition %d: %w", tr.Seq, err)
	}

	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO transitions
		(seq, id, request_id, op, caller, args, at, outcome, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tr.Seq,
		tr.ID,
		tr.RequestID,
		string(tr.Op),
		tr.Caller.String(),
		argsJSON,
		tr.At,
		tr.Outcome,
		tr.Result,
	); err != nil {
		return fmt.Errorf("append transition %d: %w", tr.Seq, err)
	}
	return nil
}

// check validates record bytes and returns their kind.
func (t *sqliteTx) check(data []byte) (ir.Kind, error) {
	if err := t.validator.Validate(data); err != nil {
		return "", err
	}
	return ir.PeekKind(data)
}
