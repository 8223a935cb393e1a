package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/ledger"
	"github.com/roach88/quorum/internal/store"
	"github.com/roach88/quorum/internal/testutil"
)

const testNow = int64(1_700_000_000)

var (
	admin = ir.NamedIdentity("admin")
	alice = ir.NamedIdentity("alice")
	bob   = ir.NamedIdentity("bob")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openSQLite(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// startEngine runs an engine over s until the test ends.
func startEngine(t *testing.T, s Store, clock *testutil.ManualClock, opts ...Option) *Engine {
	t.Helper()
	l := ledger.New(s, ledger.WithClock(clock), ledger.WithLogger(discardLogger()))
	e, err := Resume(context.Background(), s, l, append([]Option{WithLogger(discardLogger())}, opts...)...)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	t.Cleanup(func() {
		e.Stop()
		<-done
	})
	return e
}

func submit(t *testing.T, e *Engine, caller ir.Address, ins ledger.Instruction) Receipt {
	t.Helper()
	r, err := e.Submit(context.Background(), Request{Caller: caller, Instruction: ins})
	require.NoError(t, err)
	return r
}

// setupPoll creates "Devs", approves members, and opens a poll by the
// first member. Returns the community and poll addresses.
func setupPoll(t *testing.T, e *Engine, members ...ir.Address) (ir.Address, ir.Address) {
	t.Helper()
	community := submit(t, e, admin, ledger.InitializeCommunity{Name: "Devs", Description: "developers"}).Result
	for _, m := range members {
		submit(t, e, m, ledger.JoinCommunity{Community: community})
		submit(t, e, admin, ledger.ApproveMembership{Community: community, Member: m})
	}
	poll := submit(t, e, members[0], ledger.CreatePoll{
		Community: community,
		Question:  "Best lang?",
		Options:   []string{"Rust", "Go"},
		EndTime:   testNow + 3600,
	}).Result
	return community, poll
}
