package ir

import "fmt"

// Kind discriminates the four persisted record shapes.
type Kind string

const (
	KindCommunity  Kind = "community"
	KindMembership Kind = "membership"
	KindPoll       Kind = "poll"
	KindVote       Kind = "vote"
)

// Record is implemented by the four persisted record types.
type Record interface {
	Kind() Kind
	// fields returns the record body without the kind/version envelope.
	fields() IRObject
}

// Community is a top-level group with one admin, an approved-member count,
// and a dense poll counter.
type Community struct {
	Admin       Address `json:"admin"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	MemberCount uint64  `json:"member_count"`
	TotalPolls  uint64  `json:"total_polls"`
}

// Kind implements Record.
func (Community) Kind() Kind { return KindCommunity }

func (c Community) fields() IRObject {
	return IRObject{
		"admin":        c.Admin.IR(),
		"name":         IRString(c.Name),
		"description":  IRString(c.Description),
		"member_count": IRInt(int64(c.MemberCount)),
		"total_polls":  IRInt(int64(c.TotalPolls)),
	}
}

// MembershipStatus is the one-way approval state of a membership.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipApproved MembershipStatus = "approved"
)

// Membership relates one member to one community.
type Membership struct {
	Community Address          `json:"community"`
	Member    Address          `json:"member"`
	Status    MembershipStatus `json:"status"`
	JoinedAt  int64            `json:"joined_at"`
}

// Kind implements Record.
func (Membership) Kind() Kind { return KindMembership }

func (m Membership) fields() IRObject {
	return IRObject{
		"community": m.Community.IR(),
		"member":    m.Member.IR(),
		"status":    IRString(m.Status),
		"joined_at": IRInt(m.JoinedAt),
	}
}

// IsApproved reports whether the membership has been approved.
func (m Membership) IsApproved() bool {
	return m.Status == MembershipApproved
}

// Approve moves the membership from pending to approved.
// Reports false, leaving the record unchanged, when it was already approved.
// There is no edge back to pending.
func (m *Membership) Approve() bool {
	if m.Status == MembershipApproved {
		return false
	}
	m.Status = MembershipApproved
	return true
}

// PollStatus is the one-way lifecycle state of a poll.
type PollStatus string

const (
	PollOpen   PollStatus = "open"
	PollClosed PollStatus = "closed"
)

// Poll limits on the number of options.
const (
	MinPollOptions = 2
	MaxPollOptions = 4
)

// Poll is a time-boxed multiple-choice vote owned by a community.
// VoteCounts is parallel to Options and TotalVotes is their sum.
type Poll struct {
	Community  Address    `json:"community"`
	Creator    Address    `json:"creator"`
	Question   string     `json:"question"`
	Options    []string   `json:"options"`
	VoteCounts []uint64   `json:"vote_counts"`
	EndTime    int64      `json:"end_time"`
	TotalVotes uint64     `json:"total_votes"`
	Status     PollStatus `json:"status"`
}

// Kind implements Record.
func (Poll) Kind() Kind { return KindPoll }

func (p Poll) fields() IRObject {
	return IRObject{
		"community":   p.Community.IR(),
		"creator":     p.Creator.IR(),
		"question":    IRString(p.Question),
		"options":     StringArray(p.Options),
		"vote_counts": IntArray(p.VoteCounts),
		"end_time":    IRInt(p.EndTime),
		"total_votes": IRInt(int64(p.TotalVotes)),
		"status":      IRString(p.Status),
	}
}

// IsOpen reports whether the poll still accepts votes (ignoring end time).
func (p Poll) IsOpen() bool {
	return p.Status == PollOpen
}

// Close moves the poll to closed. Closing a closed poll is a no-op; there
// is no edge back to open.
func (p *Poll) Close() {
	p.Status = PollClosed
}

// Count records one vote for option i. The caller has already validated i.
func (p *Poll) Count(i int) {
	p.VoteCounts[i]++
	p.TotalVotes++
}

// CheckInvariants verifies the structural poll invariants.
func (p Poll) CheckInvariants() error {
	if len(p.VoteCounts) != len(p.Options) {
		return fmt.Errorf("poll has %d options but %d counts", len(p.Options), len(p.VoteCounts))
	}
	var sum uint64
	for _, n := range p.VoteCounts {
		sum += n
	}
	if sum != p.TotalVotes {
		return fmt.Errorf("poll total_votes %d != sum of counts %d", p.TotalVotes, sum)
	}
	return nil
}

// Vote is one approved member's immutable choice on one poll.
type Vote struct {
	Poll        Address `json:"poll"`
	Voter       Address `json:"voter"`
	OptionIndex int     `json:"option_index"`
	VotedAt     int64   `json:"voted_at"`
}

// Kind implements Record.
func (Vote) Kind() Kind { return KindVote }

func (v Vote) fields() IRObject {
	return IRObject{
		"poll":         v.Poll.IR(),
		"voter":        v.Voter.IR(),
		"option_index": IRInt(int64(v.OptionIndex)),
		"voted_at":     IRInt(v.VotedAt),
	}
}
