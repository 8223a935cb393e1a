package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDeterminism(t *testing.T) {
	a1 := Derive(TagCommunity, []byte("Devs"))
	a2 := Derive(TagCommunity, []byte("Devs"))

	assert.Equal(t, a1, a2, "Derive must be deterministic")
	assert.Len(t, a1.String(), 64, "SHA-256 hex is 64 characters")
	assert.Equal(t, a1, CommunityAddress("Devs"))
}

func TestDeriveDomainSeparation(t *testing.T) {
	name := []byte("Devs")

	community := Derive(TagCommunity, name)
	identity := Derive(TagIdentity, name)

	assert.NotEqual(t, community, identity, "Different tags must derive different addresses")
}

func TestDerivePartBoundaries(t *testing.T) {
	a := Derive(TagMembership, []byte("ab"), []byte("c"))
	b := Derive(TagMembership, []byte("a"), []byte("bc"))
	c := Derive(TagMembership, []byte("abc"))

	assert.NotEqual(t, a, b, "Length prefixes must keep part boundaries distinct")
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, b, c)
}

func TestDerivePartOrderMatters(t *testing.T) {
	community := CommunityAddress("Devs")
	member := NamedIdentity("alice")

	assert.NotEqual(t,
		Derive(TagMembership, community[:], member[:]),
		Derive(TagMembership, member[:], community[:]),
	)
}

func TestMembershipAddressPerPair(t *testing.T) {
	devs := CommunityAddress("Devs")
	ops := CommunityAddress("Ops")
	alice := NamedIdentity("alice")
	bob := NamedIdentity("bob")

	assert.Equal(t, MembershipAddress(devs, alice), MembershipAddress(devs, alice))
	assert.NotEqual(t, MembershipAddress(devs, alice), MembershipAddress(devs, bob))
	assert.NotEqual(t, MembershipAddress(devs, alice), MembershipAddress(ops, alice))
}

func TestPollAddressDenseSequence(t *testing.T) {
	devs := CommunityAddress("Devs")

	seen := make(map[Address]uint64)
	for i := uint64(0); i < 100; i++ {
		addr := PollAddress(devs, i)
		prev, dup := seen[addr]
		require.False(t, dup, "poll %d collides with poll %d", i, prev)
		seen[addr] = i
	}

	assert.NotEqual(t, PollAddress(devs, 0), PollAddress(CommunityAddress("Ops"), 0))
}

func TestPollAddressUsesLittleEndianIndex(t *testing.T) {
	devs := CommunityAddress("Devs")
	le := []byte{1, 0, 0, 0, 0, 0, 0, 0}

	assert.Equal(t, Derive(TagPoll, devs[:], le), PollAddress(devs, 1))
}

func TestVoteAddressPerPair(t *testing.T) {
	poll := PollAddress(CommunityAddress("Devs"), 0)
	alice := NamedIdentity("alice")
	bob := NamedIdentity("bob")

	assert.Equal(t, VoteAddress(poll, alice), VoteAddress(poll, alice))
	assert.NotEqual(t, VoteAddress(poll, alice), VoteAddress(poll, bob))
}

func TestParseAddressRoundTrip(t *testing.T) {
	addr := NamedIdentity("alice")

	parsed, err := ParseAddress(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)
}

func TestParseAddressRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "abcd"},
		{"not hex", "zz" + NamedIdentity("x").String()[2:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAddress(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestTransitionIDExcludesOutcome(t *testing.T) {
	caller := NamedIdentity("alice")
	args := IRObject{"name": IRString("Devs")}

	id1, err := TransitionID(1, OpInitializeCommunity, caller, args, 100)
	require.NoError(t, err)
	id2, err := TransitionID(1, OpInitializeCommunity, caller, args, 100)
	require.NoError(t, err)
	id3, err := TransitionID(2, OpInitializeCommunity, caller, args, 100)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3, "Different seq should produce different IDs")
	assert.Len(t, id1, 64)
}

func TestCommunityAddressNormalizesName(t *testing.T) {
	composed := CommunityAddress("caf\u00e9")
	decomposed := CommunityAddress("cafe\u0301")

	assert.Equal(t, composed, decomposed)
	assert.Equal(t, Derive(TagCommunity, []byte("caf\u00e9")), composed)
	assert.NotEqual(t, composed, CommunityAddress("cafe"))
}
