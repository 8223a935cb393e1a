package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/quorum/internal/ir"
)

// ReadJournal returns journal entries with seq > after, ordered by seq.
// A limit of zero or less returns every remaining entry.
//
// Returns an empty slice (not nil) when there are no entries.
func (s *Store) ReadJournal(ctx context.Context, after int64, limit int) ([]ir.Transition, error) {
	query := `
		SELECT seq, id, request_id, op, caller, args, at, outcome, result
		FROM transitions
		WHERE seq > ?
		ORDER BY seq ASC
	`
	args := []any{after}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	transitions := []ir.Transition{}
	for rows.Next() {
		tr, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return transitions, nil
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
// The sequencer resumes its clock from here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM transitions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// Snapshot returns every stored record keyed by address.
func (s *Store) Snapshot(ctx context.Context) (map[ir.Address][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT address, data FROM records ORDER BY address ASC`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make(map[ir.Address][]byte)
	for rows.Next() {
		var addrHex, data string
		if err := rows.Scan(&addrHex, &data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		addr, err := ir.ParseAddress(addrHex)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records[addr] = []byte(data)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// scanTransition scans a journal row.
func scanTransition(rows *sql.Rows) (ir.Transition, error) {
	var tr ir.Transition
	var op, caller, argsJSON string

	if err := rows.Scan(
		&tr.Seq, &tr.ID, &tr.RequestID, &op, &caller, &argsJSON, &tr.At, &tr.Outcome, &tr.Result,
	); err != nil {
		return tr, fmt.Errorf("scan transition: %w", err)
	}

	tr.Op = ir.Op(op)

	addr, err := ir.ParseAddress(caller)
	if err != nil {
		return tr, fmt.Errorf("scan transition %d: %w", tr.Seq, err)
	}
	tr.Caller = addr

	args, err := unmarshalArgs(argsJSON)
	if err != nil {
		return tr, fmt.Errorf("scan transition %d: %w", tr.Seq, err)
	}
	tr.Args = args

	return tr, nil
}
