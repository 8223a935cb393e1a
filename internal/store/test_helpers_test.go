package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/quorum/internal/ir"
)

// backend is the surface shared by Store and Memory.
type backend interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
	ReadJournal(ctx context.Context, after int64, limit int) ([]ir.Transition, error)
	LastSeq(ctx context.Context) (int64, error)
	Snapshot(ctx context.Context) (map[ir.Address][]byte, error)
}

// createTestStore creates a new SQLite store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachBackend runs fn against a fresh SQLite store and a fresh Memory.
func forEachBackend(t *testing.T, fn func(t *testing.T, b backend)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, createTestStore(t))
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemory())
	})
}

func encode(t *testing.T, rec ir.Record) []byte {
	t.Helper()
	data, err := ir.Encode(rec)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	return data
}

func testCommunity(name string) ir.Community {
	return ir.Community{
		Admin:       ir.NamedIdentity("alice"),
		Name:        name,
		Description: "test community",
	}
}

func testTransition(t *testing.T, seq int64, outcome string) ir.Transition {
	t.Helper()
	caller := ir.NamedIdentity("alice")
	args := ir.IRObject{"name": ir.IRString("dao")}
	id, err := ir.TransitionID(seq, ir.OpInitializeCommunity, caller, args, 1000+seq)
	require.NoError(t, err)
	return ir.Transition{
		ID:        id,
		RequestID: "req-test",
		Seq:       seq,
		Op:        ir.OpInitializeCommunity,
		Caller:    caller,
		Args:      args,
		At:        1000 + seq,
		Outcome:   outcome,
	}
}
