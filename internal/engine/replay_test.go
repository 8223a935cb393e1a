package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/ledger"
	"github.com/roach88/quorum/internal/store"
	"github.com/roach88/quorum/internal/testutil"
)

func TestReplay_ReproducesState(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	clock := testutil.NewManualClock(testNow)
	e := startEngine(t, s, clock)

	_, poll := setupPoll(t, e, alice, bob)
	submit(t, e, alice, ledger.CastVote{Poll: poll, OptionIndex: 0})
	_, _ = e.Submit(ctx, Request{Caller: alice, Instruction: ledger.CastVote{Poll: poll, OptionIndex: 1}})
	clock.Advance(2 * time.Hour)
	_, _ = e.Submit(ctx, Request{Caller: bob, Instruction: ledger.CastVote{Poll: poll, OptionIndex: 1}})
	submit(t, e, alice, ledger.ClosePoll{Poll: poll})

	res, err := Replay(ctx, s)
	require.NoError(t, err)
	assert.True(t, res.OK(), "mismatches: %v", res.Mismatches)
	assert.Equal(t, res.LiveDigest, res.ReplayDigest)
	assert.Equal(t, 2, res.Rejected)
	assert.Equal(t, res.Entries, res.Committed+res.Rejected)
}

func TestReplay_DetectsTamperedRecord(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	e := startEngine(t, s, testutil.NewManualClock(testNow))
	community := submit(t, e, admin, ledger.InitializeCommunity{Name: "Devs"}).Result

	// Write outside the sequencer: nothing journals it.
	tampered, err := ir.Encode(ir.Community{Admin: bob, Name: "Devs", MemberCount: 99})
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		return tx.Save(ctx, community, tampered)
	}))

	res, err := Replay(ctx, s)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.NotEqual(t, res.LiveDigest, res.ReplayDigest)
}

func TestReplay_PolicyMustMatch(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	clock := testutil.NewManualClock(testNow)
	l := ledger.New(s, ledger.WithClock(clock), ledger.WithApprovalPolicy(ledger.ApprovalLegacy), ledger.WithLogger(discardLogger()))
	e := New(s, l, WithLogger(discardLogger()))
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	defer func() { e.Stop(); <-done }()

	community := submit(t, e, admin, ledger.InitializeCommunity{Name: "Devs"}).Result
	submit(t, e, alice, ledger.JoinCommunity{Community: community})
	submit(t, e, admin, ledger.ApproveMembership{Community: community, Member: alice})
	submit(t, e, admin, ledger.ApproveMembership{Community: community, Member: alice})

	res, err := Replay(ctx, s, ledger.WithApprovalPolicy(ledger.ApprovalLegacy))
	require.NoError(t, err)
	assert.True(t, res.OK())

	res, err = Replay(ctx, s, ledger.WithApprovalPolicy(ledger.ApprovalGuarded))
	require.NoError(t, err)
	assert.False(t, res.OK())
	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, int64(4), res.Mismatches[0].Seq)
	assert.Equal(t, "ALREADY_APPROVED", res.Mismatches[0].Got)
}

func TestReplay_EmptyJournal(t *testing.T) {
	res, err := Replay(context.Background(), store.NewMemory())
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, 0, res.Entries)
}

func TestReplay_EquivalentNameSpellings(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	e := startEngine(t, s, testutil.NewManualClock(testNow))

	first := submit(t, e, admin, ledger.InitializeCommunity{Name: "cafe\u0301", Description: "cre\u0300me"})
	require.True(t, first.Committed())

	_, err := e.Submit(ctx, Request{Caller: bob, Instruction: ledger.InitializeCommunity{Name: "caf\u00e9"}})
	require.ErrorIs(t, err, ledger.ErrAlreadyExists)

	_, err = e.Submit(ctx, Request{Caller: bob, Instruction: ledger.InitializeCommunity{Name: "\xff"}})
	require.ErrorIs(t, err, ledger.ErrInvalidName)
	_, err = e.Submit(ctx, Request{Caller: bob, Instruction: ledger.InitializeCommunity{Name: "\xfe"}})
	require.ErrorIs(t, err, ledger.ErrInvalidName)

	journal, err := s.ReadJournal(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, journal, 2)

	res, err := Replay(ctx, s)
	require.NoError(t, err)
	assert.True(t, res.OK(), "mismatches: %v", res.Mismatches)
	assert.Equal(t, 1, res.Committed)
	assert.Equal(t, 1, res.Rejected)
}
