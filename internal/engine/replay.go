package engine

import (
	"context"
	"fmt"

	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/ledger"
	"github.com/roach88/quorum/internal/store"
)

// replayBatch is how many journal entries Replay reads per query.
const replayBatch = 500

// Mismatch is a journal entry whose replayed outcome differs from the
// recorded one.
type Mismatch struct {
	Seq  int64  `json:"seq"`
	Op   ir.Op  `json:"op"`
	Want string `json:"want"`
	Got  string `json:"got"`
}

// ReplayResult summarizes a replay verification.
type ReplayResult struct {
	Entries      int        `json:"entries"`
	Committed    int        `json:"committed"`
	Rejected     int        `json:"rejected"`
	LiveDigest   string     `json:"live_digest"`
	ReplayDigest string     `json:"replay_digest"`
	Mismatches   []Mismatch `json:"mismatches,omitempty"`
}

// OK reports whether replay reproduced every outcome and the live state.
func (r ReplayResult) OK() bool {
	return len(r.Mismatches) == 0 && r.LiveDigest == r.ReplayDigest
}

// Replay re-applies src's journal, in seq order, to a fresh in-memory store
// and compares the result with src's live records.
//
// Each entry is applied at the wall time it originally observed, so the
// same journal always produces the same records. Rejected entries are
// replayed too and must be rejected with the same code. The ledger options
// must match the ones the journal was written with (notably the approval
// policy); the clock option is ignored.
func Replay(ctx context.Context, src Store, opts ...ledger.Option) (ReplayResult, error) {
	var res ReplayResult

	mem := store.NewMemory()
	l := ledger.New(mem, opts...)

	var after int64
	for {
		entries, err := src.ReadJournal(ctx, after, replayBatch)
		if err != nil {
			return res, fmt.Errorf("replay: %w", err)
		}
		if len(entries) == 0 {
			break
		}

		for _, tr := range entries {
			got, err := replayOne(ctx, mem, l, tr)
			if err != nil {
				return res, fmt.Errorf("replay seq %d: %w", tr.Seq, err)
			}

			res.Entries++
			if tr.Committed() {
				res.Committed++
			} else {
				res.Rejected++
			}

			want := tr.Outcome
			if tr.Committed() {
				want = tr.Outcome + " " + tr.Result
			}
			if got != want {
				res.Mismatches = append(res.Mismatches, Mismatch{Seq: tr.Seq, Op: tr.Op, Want: want, Got: got})
			}
		}
		after = entries[len(entries)-1].Seq
	}

	live, err := src.Snapshot(ctx)
	if err != nil {
		return res, fmt.Errorf("replay: %w", err)
	}
	replayed, err := mem.Snapshot(ctx)
	if err != nil {
		return res, fmt.Errorf("replay: %w", err)
	}
	res.LiveDigest = store.Digest(live)
	res.ReplayDigest = store.Digest(replayed)

	return res, nil
}

// replayOne applies tr to mem and returns its outcome in the same form
// Replay compares against: the code, or "OK <result>" when committed.
func replayOne(ctx context.Context, mem *store.Memory, l *ledger.Ledger, tr ir.Transition) (string, error) {
	ins, err := ledger.DecodeInstruction(tr.Op, tr.Args)
	if err != nil {
		return string(ledger.CodeOf(err)), nil
	}

	var addr ir.Address
	applyErr := mem.Update(ctx, func(tx store.Tx) error {
		a, err := l.Apply(ctx, tx, tr.Caller, ins, tr.At)
		if err != nil {
			return err
		}
		addr = a
		return tx.Append(ctx, tr)
	})
	if applyErr == nil {
		return ir.OutcomeOK + " " + addr.String(), nil
	}
	if ledger.IsRejection(applyErr) {
		if err := mem.Update(ctx, func(tx store.Tx) error { return tx.Append(ctx, tr) }); err != nil {
			return "", err
		}
		return string(ledger.CodeOf(applyErr)), nil
	}
	return "", applyErr
}
