package ir

import (
	"crypto/sha256"
	"encoding/binary"

	"golang.org/x/text/unicode/norm"
)

// DomainAddress prefixes every derivation. The version suffix enables a
// future algorithm migration without colliding with v1 addresses.
const DomainAddress = "quorum/address/v1"

// Derivation tags. Each record kind has its own tag so a community name can
// never derive the same address as a (community, member) pair.
const (
	TagCommunity  = "community"
	TagMembership = "membership"
	TagPoll       = "poll"
	TagVote       = "vote"
	TagIdentity   = "identity"
)

// Derive computes a deterministic record address from a tag and ordered parts.
//
// Format: SHA256(domain || 0x00 || tag || 0x00 || for each part: u32be(len) || part)
//
// The null separators keep the domain and tag boundaries unambiguous and the
// length prefixes keep part boundaries unambiguous, so ("ab","c") and
// ("a","bc") derive different addresses. Part order is significant.
func Derive(tag string, parts ...[]byte) Address {
	h := sha256.New()
	h.Write([]byte(DomainAddress))
	h.Write([]byte{0x00})
	h.Write([]byte(tag))
	h.Write([]byte{0x00})

	var n [4]byte
	for _, p := range parts {
		binary.BigEndian.PutUint32(n[:], uint32(len(p)))
		h.Write(n[:])
		h.Write(p)
	}

	var a Address
	copy(a[:], h.Sum(nil))
	return a
}

// CommunityAddress derives the address of the community called name.
// The name is hashed in NFC, the form it is stored and journaled in, so
// canonically equivalent spellings name the same community.
func CommunityAddress(name string) Address {
	return Derive(TagCommunity, []byte(norm.NFC.String(name)))
}

// MembershipAddress derives the address of member's membership in community.
func MembershipAddress(community, member Address) Address {
	return Derive(TagMembership, community[:], member[:])
}

// PollAddress derives the address of the poll created when the community's
// total_polls counter read index. Indexes are dense and never reused.
func PollAddress(community Address, index uint64) Address {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], index)
	return Derive(TagPoll, community[:], le[:])
}

// VoteAddress derives the address of voter's vote on poll.
func VoteAddress(poll, voter Address) Address {
	return Derive(TagVote, poll[:], voter[:])
}

// NamedIdentity derives a stable identity from a human-readable name.
// Used by local tooling (CLI, scenarios, tests) in place of a real key.
func NamedIdentity(name string) Address {
	return Derive(TagIdentity, []byte(name))
}
