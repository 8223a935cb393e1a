package ledger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quorum/internal/ir"
)

func TestInitializeCommunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	addr, err := f.ledger.InitializeCommunity(ctx, admin, "Devs", "developers")
	require.NoError(t, err)
	assert.Equal(t, ir.CommunityAddress("Devs"), addr)

	c, err := f.ledger.Community(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, admin, c.Admin)
	assert.Equal(t, "Devs", c.Name)
	assert.Equal(t, uint64(0), c.MemberCount)
	assert.Equal(t, uint64(0), c.TotalPolls)

	byName, c2, err := f.ledger.CommunityByName(ctx, "Devs")
	require.NoError(t, err)
	assert.Equal(t, addr, byName)
	assert.Equal(t, c, c2)
}

func TestInitializeCommunity_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		community   string
		description string
		want        Code
	}{
		{"empty name", "", "x", CodeInvalidName},
		{"name too long", strings.Repeat("n", MaxNameLen+1), "x", CodeInvalidName},
		{"description too long", "ok", strings.Repeat("d", MaxDescriptionLen+1), CodeDescriptionTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.ledger.InitializeCommunity(context.Background(), admin, tt.community, tt.description)
			requireCode(t, err, tt.want)
		})
	}
}

func TestInitializeCommunity_LimitsAreInclusive(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.InitializeCommunity(context.Background(), admin,
		strings.Repeat("n", MaxNameLen), strings.Repeat("d", MaxDescriptionLen))
	assert.NoError(t, err)
}

func TestInitializeCommunity_DuplicateName(t *testing.T) {
	f := newFixture(t)
	f.community(t)

	_, err := f.ledger.InitializeCommunity(context.Background(), bob, "Devs", "hijack")
	requireCode(t, err, CodeAlreadyExists)

	c, err := f.ledger.Community(context.Background(), ir.CommunityAddress("Devs"))
	require.NoError(t, err)
	assert.Equal(t, admin, c.Admin, "duplicate must not overwrite the admin")
}

func TestInitializeCommunity_EquivalentSpellings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	decomposed, err := f.ledger.InitializeCommunity(ctx, admin, "cafe\u0301", "d\u00e9cor")
	require.NoError(t, err)
	assert.Equal(t, ir.CommunityAddress("caf\u00e9"), decomposed)

	_, err = f.ledger.InitializeCommunity(ctx, bob, "caf\u00e9", "hijack")
	requireCode(t, err, CodeAlreadyExists)

	c, err := f.ledger.Community(ctx, decomposed)
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", c.Name, "name is stored in NFC")
	assert.Equal(t, admin, c.Admin)

	byName, _, err := f.ledger.CommunityByName(ctx, "cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, decomposed, byName)

	snap, err := f.store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap, 1)
}

func TestInitializeCommunity_NameLengthIsMeasuredInNFC(t *testing.T) {
	f := newFixture(t)
	// 16 decomposed e-acute pairs are 48 bytes; the NFC form is 32.
	name := strings.Repeat("e\u0301", MaxNameLen/2)
	addr, err := f.ledger.InitializeCommunity(context.Background(), admin, name, "")
	require.NoError(t, err)

	c, err := f.ledger.Community(context.Background(), addr)
	require.NoError(t, err)
	assert.Len(t, c.Name, MaxNameLen)
}

func TestInitializeCommunity_InvalidUTF8(t *testing.T) {
	tests := []struct {
		name        string
		community   string
		description string
		want        Code
	}{
		{"name", "\xff", "x", CodeInvalidName},
		{"name differing only in invalid byte", "\xfe", "x", CodeInvalidName},
		{"truncated sequence in name", "caf\xc3", "x", CodeInvalidName},
		{"description", "ok", "bad \xff", CodeInvalidArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.ledger.InitializeCommunity(context.Background(), admin, tt.community, tt.description)
			requireCode(t, err, tt.want)

			snap, err := f.store.Snapshot(context.Background())
			require.NoError(t, err)
			assert.Empty(t, snap)
		})
	}
}

func TestJoinCommunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	community := f.community(t)

	addr, err := f.ledger.JoinCommunity(ctx, alice, community)
	require.NoError(t, err)
	assert.Equal(t, ir.MembershipAddress(community, alice), addr)

	m, err := f.ledger.Membership(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, ir.MembershipPending, m.Status)
	assert.Equal(t, testNow, m.JoinedAt)
	assert.Equal(t, alice, m.Member)
	assert.Equal(t, community, m.Community)
}

func TestJoinCommunity_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	community := f.community(t)

	_, err := f.ledger.JoinCommunity(ctx, alice, community)
	require.NoError(t, err)

	_, err = f.ledger.JoinCommunity(ctx, alice, community)
	requireCode(t, err, CodeAlreadyExists)

	_, err = f.ledger.ApproveMembership(ctx, admin, community, alice)
	require.NoError(t, err)

	_, err = f.ledger.JoinCommunity(ctx, alice, community)
	requireCode(t, err, CodeAlreadyExists)

	m, err := f.ledger.Membership(ctx, ir.MembershipAddress(community, alice))
	require.NoError(t, err)
	assert.True(t, m.IsApproved(), "rejoin must not reset approval")
}

func TestJoinCommunity_MissingCommunity(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.JoinCommunity(context.Background(), alice, ir.CommunityAddress("nowhere"))
	requireCode(t, err, CodeNotFound)
}

func TestApproveMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	community := f.community(t)

	_, err := f.ledger.JoinCommunity(ctx, alice, community)
	require.NoError(t, err)

	addr, err := f.ledger.ApproveMembership(ctx, admin, community, alice)
	require.NoError(t, err)

	m, err := f.ledger.Membership(ctx, addr)
	require.NoError(t, err)
	assert.True(t, m.IsApproved())

	c, err := f.ledger.Community(ctx, community)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.MemberCount)
}

func TestApproveMembership_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	community := f.community(t)
	_, err := f.ledger.JoinCommunity(ctx, alice, community)
	require.NoError(t, err)

	t.Run("not admin", func(t *testing.T) {
		_, err := f.ledger.ApproveMembership(ctx, bob, community, alice)
		requireCode(t, err, CodeUnauthorized)
	})
	t.Run("self approval", func(t *testing.T) {
		_, err := f.ledger.ApproveMembership(ctx, alice, community, alice)
		requireCode(t, err, CodeUnauthorized)
	})
	t.Run("no membership", func(t *testing.T) {
		_, err := f.ledger.ApproveMembership(ctx, admin, community, carol)
		requireCode(t, err, CodeNotFound)
	})
	t.Run("not admin and no membership", func(t *testing.T) {
		// A non-admin learns nothing about which memberships exist.
		_, err := f.ledger.ApproveMembership(ctx, bob, community, carol)
		requireCode(t, err, CodeUnauthorized)
	})
	t.Run("no community", func(t *testing.T) {
		_, err := f.ledger.ApproveMembership(ctx, admin, ir.CommunityAddress("nowhere"), alice)
		requireCode(t, err, CodeNotFound)
	})

	c, err := f.ledger.Community(ctx, community)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), c.MemberCount)
}

func TestApproveMembership_Twice(t *testing.T) {
	tests := []struct {
		policy    ApprovalPolicy
		wantErr   Code
		wantCount uint64
	}{
		{ApprovalGuarded, CodeAlreadyApproved, 1},
		{ApprovalLegacy, "", 2},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			f := newFixture(t, WithApprovalPolicy(tt.policy))
			ctx := context.Background()
			community := f.community(t)
			f.member(t, community, alice)
			before := f.digest(t)

			_, err := f.ledger.ApproveMembership(ctx, admin, community, alice)
			if tt.wantErr != "" {
				requireCode(t, err, tt.wantErr)
				assert.Equal(t, before, f.digest(t))
			} else {
				require.NoError(t, err)
			}

			c, err := f.ledger.Community(ctx, community)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, c.MemberCount)

			m, err := f.ledger.Membership(ctx, ir.MembershipAddress(community, alice))
			require.NoError(t, err)
			assert.True(t, m.IsApproved())
		})
	}
}

func TestMemberCountEqualsApprovals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	community := f.community(t)

	members := []ir.Address{alice, bob, carol, ir.NamedIdentity("dave")}
	for _, m := range members {
		_, err := f.ledger.JoinCommunity(ctx, m, community)
		require.NoError(t, err)
	}
	// Approve three of four, with a rejected double approval in between.
	for _, m := range members[:3] {
		_, err := f.ledger.ApproveMembership(ctx, admin, community, m)
		require.NoError(t, err)
		_, err = f.ledger.ApproveMembership(ctx, admin, community, m)
		requireCode(t, err, CodeAlreadyApproved)
	}

	c, err := f.ledger.Community(ctx, community)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), c.MemberCount)
}

func TestCreatePoll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	community := f.community(t)
	f.member(t, community, alice)

	first := f.poll(t, community, alice)
	second := f.poll(t, community, alice)
	assert.Equal(t, ir.PollAddress(community, 0), first)
	assert.Equal(t, ir.PollAddress(community, 1), second)

	p, err := f.ledger.Poll(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, alice, p.Creator)
	assert.Equal(t, community, p.Community)
	assert.Equal(t, []string{"Rust", "Go"}, p.Options)
	assert.Equal(t, []uint64{0, 0}, p.VoteCounts)
	assert.Equal(t, uint64(0), p.TotalVotes)
	assert.Equal(t, ir.PollOpen, p.Status)
	assert.Equal(t, testNow+3600, p.EndTime)

	c, err := f.ledger.Community(ctx, community)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), c.TotalPolls)

	at, p1, err := f.ledger.PollAt(ctx, community, 1)
	require.NoError(t, err)
	assert.Equal(t, second, at)
	assert.Equal(t, alice, p1.Creator)
}

func TestCreatePoll_CheckOrder(t *testing.T) {
	f := newFixture(t)
	community := f.community(t)
	_, err := f.ledger.JoinCommunity(context.Background(), bob, community)
	require.NoError(t, err)
	f.member(t, community, alice)

	past := testNow - 1
	future := testNow + 60

	tests := []struct {
		name    string
		caller  ir.Address
		options []string
		endTime int64
		want    Code
	}{
		{"one option beats bad time and non-member", carol, []string{"only"}, past, CodeInvalidOptionCount},
		{"five options", alice, []string{"a", "b", "c", "d", "e"}, future, CodeInvalidOptionCount},
		{"zero options", alice, nil, future, CodeInvalidOptionCount},
		{"past end time beats non-member", carol, []string{"a", "b"}, past, CodeInvalidEndTime},
		{"end time equal to now", alice, []string{"a", "b"}, testNow, CodeInvalidEndTime},
		{"never joined", carol, []string{"a", "b"}, future, CodeNotApprovedMember},
		{"pending member", bob, []string{"a", "b"}, future, CodeNotApprovedMember},
		{"admin without membership", admin, []string{"a", "b"}, future, CodeNotApprovedMember},
		{"four options ok", alice, []string{"a", "b", "c", "d"}, future, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.CreatePoll(context.Background(), tt.caller, community, "q", tt.options, tt.endTime)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			requireCode(t, err, tt.want)
		})
	}
}

func TestCreatePoll_Text(t *testing.T) {
	f := newFixture(t)
	community := f.community(t)
	f.member(t, community, alice)
	future := testNow + 60

	tests := []struct {
		name     string
		question string
		options  []string
		want     Code
	}{
		{"question at limit", strings.Repeat("q", MaxQuestionLen), []string{"a", "b"}, ""},
		{"question too long", strings.Repeat("q", MaxQuestionLen+1), []string{"a", "b"}, CodeQuestionTooLong},
		{"option at limit", "q", []string{strings.Repeat("o", MaxOptionLen), "b"}, ""},
		{"option too long", "q", []string{"a", strings.Repeat("o", MaxOptionLen+1)}, CodeOptionTooLong},
		{"bad option count beats long question", strings.Repeat("q", MaxQuestionLen+1), []string{"a"}, CodeInvalidOptionCount},
		{"question not UTF-8", "why\xff", []string{"a", "b"}, CodeInvalidArgs},
		{"option not UTF-8", "q", []string{"a", "\xfe"}, CodeInvalidArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.CreatePoll(context.Background(), alice, community, tt.question, tt.options, future)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			requireCode(t, err, tt.want)
		})
	}
}

func TestCreatePoll_StoresNFC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	community := f.community(t)
	f.member(t, community, alice)

	addr, err := f.ledger.CreatePoll(ctx, alice, community, "Caf\u0065\u0301?", []string{"cre\u0300me", "the\u0301"}, testNow+60)
	require.NoError(t, err)

	p, err := f.ledger.Poll(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9?", p.Question)
	assert.Equal(t, []string{"cr\u00e8me", "th\u00e9"}, p.Options)
}

func TestCreatePoll_MissingCommunity(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.CreatePoll(context.Background(), alice, ir.CommunityAddress("nowhere"),
		"q", []string{"a", "b"}, testNow+60)
	requireCode(t, err, CodeNotFound)
}

func TestCastVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	community := f.community(t)
	f.member(t, community, alice)
	f.member(t, community, bob)
	poll := f.poll(t, community, alice)

	addr, err := f.ledger.CastVote(ctx, alice, poll, 0)
	require.NoError(t, err)
	assert.Equal(t, ir.VoteAddress(poll, alice), addr)

	_, err = f.ledger.CastVote(ctx, bob, poll, 1)
	require.NoError(t, err)

	v, err := f.ledger.Vote(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, alice, v.Voter)
	assert.Equal(t, 0, v.OptionIndex)
	assert.Equal(t, testNow, v.VotedAt)

	p, err := f.ledger.Poll(ctx, poll)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 1}, p.VoteCounts)
	assert.Equal(t, uint64(2), p.TotalVotes)
	assert.NoError(t, p.CheckInvariants())
}

func TestCastVote_CheckOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	community := f.community(t)
	f.member(t, community, alice)
	_, err := f.ledger.JoinCommunity(ctx, bob, community)
	require.NoError(t, err)

	open := f.poll(t, community, alice)
	closed := f.poll(t, community, alice)
	_, err = f.ledger.ClosePoll(ctx, alice, closed)
	require.NoError(t, err)
	expiring, err := f.ledger.CreatePoll(ctx, alice, community, "soon", []string{"a", "b"}, testNow+10)
	require.NoError(t, err)
	f.clock.Advance(10 * time.Second)

	tests := []struct {
		name   string
		caller ir.Address
		poll   ir.Address
		index  int
		want   Code
	}{
		{"closed beats expired and bad index", carol, closed, 9, CodePollNotActive},
		{"expired at end time", carol, expiring, 9, CodePollExpired},
		{"negative index", carol, open, -1, CodeInvalidOptionIndex},
		{"index equal to option count", carol, open, 2, CodeInvalidOptionIndex},
		{"never joined", carol, open, 0, CodeNotApprovedMember},
		{"pending member", bob, open, 0, CodeNotApprovedMember},
		{"missing poll", alice, ir.PollAddress(community, 99), 0, CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.CastVote(ctx, tt.caller, tt.poll, tt.index)
			requireCode(t, err, tt.want)
		})
	}

	p, err := f.ledger.Poll(ctx, open)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p.TotalVotes)
}

func TestCastVote_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	community := f.community(t)
	f.member(t, community, alice)
	poll := f.poll(t, community, alice)

	_, err := f.ledger.CastVote(ctx, alice, poll, 0)
	require.NoError(t, err)

	_, err = f.ledger.CastVote(ctx, alice, poll, 1)
	requireCode(t, err, CodeAlreadyVoted)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	p, err := f.ledger.Poll(ctx, poll)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 0}, p.VoteCounts)
	assert.Equal(t, uint64(1), p.TotalVotes)
}

func TestClosePoll(t *testing.T) {
	tests := []struct {
		name   string
		closer ir.Address
		want   Code
	}{
		{"creator", alice, ""},
		{"admin", admin, ""},
		{"other member", bob, CodeUnauthorizedToClose},
		{"stranger", carol, CodeUnauthorizedToClose},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			community := f.community(t)
			f.member(t, community, alice)
			f.member(t, community, bob)
			poll := f.poll(t, community, alice)

			_, err := f.ledger.ClosePoll(ctx, tt.closer, poll)
			p, perr := f.ledger.Poll(ctx, poll)
			require.NoError(t, perr)

			if tt.want != "" {
				requireCode(t, err, tt.want)
				assert.True(t, p.IsOpen())
				return
			}
			require.NoError(t, err)
			assert.False(t, p.IsOpen())

			// Closing again succeeds and stays closed.
			_, err = f.ledger.ClosePoll(ctx, tt.closer, poll)
			require.NoError(t, err)
			p, err = f.ledger.Poll(ctx, poll)
			require.NoError(t, err)
			assert.Equal(t, ir.PollClosed, p.Status)
		})
	}
}

func TestClosePoll_AdminOfOtherCommunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	community := f.community(t)
	f.member(t, community, alice)
	poll := f.poll(t, community, alice)

	_, err := f.ledger.InitializeCommunity(ctx, carol, "Other", "")
	require.NoError(t, err)

	_, err = f.ledger.ClosePoll(ctx, carol, poll)
	requireCode(t, err, CodeUnauthorizedToClose)
}

func TestParseApprovalPolicy(t *testing.T) {
	p, err := ParseApprovalPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ApprovalGuarded, p)

	p, err = ParseApprovalPolicy(" Legacy ")
	require.NoError(t, err)
	assert.Equal(t, ApprovalLegacy, p)

	_, err = ParseApprovalPolicy("lenient")
	assert.Error(t, err)
}
