package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/store"
	"github.com/roach88/quorum/internal/testutil"
)

const testNow = int64(1_700_000_000)

var (
	admin = ir.NamedIdentity("admin")
	alice = ir.NamedIdentity("alice")
	bob   = ir.NamedIdentity("bob")
	carol = ir.NamedIdentity("carol")
)

type fixture struct {
	ledger *Ledger
	clock  *testutil.ManualClock
	store  *store.Memory
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	clock := testutil.NewManualClock(testNow)
	mem := store.NewMemory()
	opts = append([]Option{
		WithClock(clock),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return &fixture{ledger: New(mem, opts...), clock: clock, store: mem}
}

// community creates "Devs" administered by admin.
func (f *fixture) community(t *testing.T) ir.Address {
	t.Helper()
	addr, err := f.ledger.InitializeCommunity(context.Background(), admin, "Devs", "developers")
	require.NoError(t, err)
	return addr
}

// member joins who to community and approves them.
func (f *fixture) member(t *testing.T, community, who ir.Address) {
	t.Helper()
	ctx := context.Background()
	_, err := f.ledger.JoinCommunity(ctx, who, community)
	require.NoError(t, err)
	_, err = f.ledger.ApproveMembership(ctx, admin, community, who)
	require.NoError(t, err)
}

// poll creates a two-option poll by creator ending in an hour.
func (f *fixture) poll(t *testing.T, community, creator ir.Address) ir.Address {
	t.Helper()
	addr, err := f.ledger.CreatePoll(context.Background(), creator, community,
		"Best lang?", []string{"Rust", "Go"}, f.clock.Unix()+3600)
	require.NoError(t, err)
	return addr
}

func (f *fixture) digest(t *testing.T) string {
	t.Helper()
	snap, err := f.store.Snapshot(context.Background())
	require.NoError(t, err)
	return store.Digest(snap)
}

// requireCode asserts err is a rejection with code.
func requireCode(t *testing.T, err error, code Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, CodeOf(err), "error: %v", err)
}
