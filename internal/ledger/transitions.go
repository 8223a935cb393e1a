package ledger

import (
	"errors"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/quorum/internal/authz"
	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/store"
)

// Text field limits, in bytes of the NFC form that is stored.
const (
	MaxNameLen        = 32
	MaxDescriptionLen = 200
	MaxQuestionLen    = 200
	MaxOptionLen      = 50
)

func (i InitializeCommunity) apply(u *unit) (ir.Address, error) {
	name := norm.NFC.String(i.Name)
	description := norm.NFC.String(i.Description)
	if name == "" || len(name) > MaxNameLen {
		return ir.Address{}, reject(CodeInvalidName, "name must be 1 to %d bytes, got %d", MaxNameLen, len(name))
	}
	if len(description) > MaxDescriptionLen {
		return ir.Address{}, reject(CodeDescriptionTooLong, "description must be at most %d bytes, got %d", MaxDescriptionLen, len(description))
	}

	addr := ir.CommunityAddress(name)
	community := ir.Community{
		Admin:       u.caller,
		Name:        name,
		Description: description,
	}
	if err := u.create(addr, community); err != nil {
		if errors.Is(err, store.ErrAddressOccupied) {
			return ir.Address{}, reject(CodeAlreadyExists, "community %q already exists", name)
		}
		return ir.Address{}, err
	}
	return addr, nil
}

func (i JoinCommunity) apply(u *unit) (ir.Address, error) {
	var community ir.Community
	if err := u.load(i.Community, &community); err != nil {
		return ir.Address{}, err
	}

	addr := ir.MembershipAddress(i.Community, u.caller)
	membership := ir.Membership{
		Community: i.Community,
		Member:    u.caller,
		Status:    ir.MembershipPending,
		JoinedAt:  u.now,
	}
	if err := u.create(addr, membership); err != nil {
		if errors.Is(err, store.ErrAddressOccupied) {
			return ir.Address{}, reject(CodeAlreadyExists, "%s already joined %q", u.caller.Short(), community.Name)
		}
		return ir.Address{}, err
	}
	return addr, nil
}

func (i ApproveMembership) apply(u *unit) (ir.Address, error) {
	var community ir.Community
	if err := u.load(i.Community, &community); err != nil {
		return ir.Address{}, err
	}

	if err := authz.RequireAdmin(u.caller, community); err != nil {
		return ir.Address{}, deny(err, map[authz.Capability]Code{authz.CapAdmin: CodeUnauthorized})
	}

	addr := ir.MembershipAddress(i.Community, i.Member)
	var membership ir.Membership
	if err := u.load(addr, &membership); err != nil {
		return ir.Address{}, err
	}

	if err := authz.RequireBinding(u.caller, membership, i.Community, i.Member); err != nil {
		return ir.Address{}, deny(err, map[authz.Capability]Code{authz.CapMembershipBind: CodeMembershipMismatch})
	}

	if membership.Approve() {
		if err := u.save(addr, membership); err != nil {
			return ir.Address{}, err
		}
	} else if u.policy == ApprovalGuarded {
		return ir.Address{}, reject(CodeAlreadyApproved, "membership %s is already approved", addr.Short())
	}

	community.MemberCount++
	if err := u.save(i.Community, community); err != nil {
		return ir.Address{}, err
	}
	return addr, nil
}

func (i CreatePoll) apply(u *unit) (ir.Address, error) {
	if n := len(i.Options); n < ir.MinPollOptions || n > ir.MaxPollOptions {
		return ir.Address{}, reject(CodeInvalidOptionCount, "polls need %d to %d options, got %d", ir.MinPollOptions, ir.MaxPollOptions, n)
	}
	question := norm.NFC.String(i.Question)
	if len(question) > MaxQuestionLen {
		return ir.Address{}, reject(CodeQuestionTooLong, "question must be at most %d bytes, got %d", MaxQuestionLen, len(question))
	}
	options := make([]string, len(i.Options))
	for n, opt := range i.Options {
		options[n] = norm.NFC.String(opt)
		if len(options[n]) > MaxOptionLen {
			return ir.Address{}, reject(CodeOptionTooLong, "option %d must be at most %d bytes, got %d", n, MaxOptionLen, len(options[n]))
		}
	}
	if i.EndTime <= u.now {
		return ir.Address{}, reject(CodeInvalidEndTime, "end time %d is not after now %d", i.EndTime, u.now)
	}

	var community ir.Community
	if err := u.load(i.Community, &community); err != nil {
		return ir.Address{}, err
	}

	var membership ir.Membership
	if err := u.load(ir.MembershipAddress(i.Community, u.caller), &membership); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ir.Address{}, reject(CodeNotApprovedMember, "%s is not a member of %q", u.caller.Short(), community.Name)
		}
		return ir.Address{}, err
	}
	if err := authz.RequireApprovedMember(u.caller, membership, i.Community); err != nil {
		return ir.Address{}, deny(err, map[authz.Capability]Code{
			authz.CapApprovedMember: CodeNotApprovedMember,
			authz.CapMembershipBind: CodeMembershipMismatch,
		})
	}

	addr := ir.PollAddress(i.Community, community.TotalPolls)
	poll := ir.Poll{
		Community:  i.Community,
		Creator:    u.caller,
		Question:   question,
		Options:    options,
		VoteCounts: make([]uint64, len(options)),
		EndTime:    i.EndTime,
		Status:     ir.PollOpen,
	}
	if err := u.create(addr, poll); err != nil {
		if errors.Is(err, store.ErrAddressOccupied) {
			return ir.Address{}, reject(CodeAlreadyExists, "poll %d of %q already exists", community.TotalPolls, community.Name)
		}
		return ir.Address{}, err
	}

	community.TotalPolls++
	if err := u.save(i.Community, community); err != nil {
		return ir.Address{}, err
	}
	return addr, nil
}

func (i CastVote) apply(u *unit) (ir.Address, error) {
	var poll ir.Poll
	if err := u.load(i.Poll, &poll); err != nil {
		return ir.Address{}, err
	}

	if !poll.IsOpen() {
		return ir.Address{}, reject(CodePollNotActive, "poll %s is closed", i.Poll.Short())
	}
	if u.now >= poll.EndTime {
		return ir.Address{}, reject(CodePollExpired, "poll %s ended at %d", i.Poll.Short(), poll.EndTime)
	}
	if i.OptionIndex < 0 || i.OptionIndex >= len(poll.Options) {
		return ir.Address{}, reject(CodeInvalidOptionIndex, "option %d out of range [0, %d)", i.OptionIndex, len(poll.Options))
	}

	var membership ir.Membership
	if err := u.load(ir.MembershipAddress(poll.Community, u.caller), &membership); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ir.Address{}, reject(CodeNotApprovedMember, "%s is not a member", u.caller.Short())
		}
		return ir.Address{}, err
	}
	if err := authz.RequireApprovedMember(u.caller, membership, poll.Community); err != nil {
		return ir.Address{}, deny(err, map[authz.Capability]Code{
			authz.CapApprovedMember: CodeNotApprovedMember,
			authz.CapMembershipBind: CodeMembershipMismatch,
		})
	}

	addr := ir.VoteAddress(i.Poll, u.caller)
	vote := ir.Vote{
		Poll:        i.Poll,
		Voter:       u.caller,
		OptionIndex: i.OptionIndex,
		VotedAt:     u.now,
	}
	if err := u.create(addr, vote); err != nil {
		if errors.Is(err, store.ErrAddressOccupied) {
			return ir.Address{}, reject(CodeAlreadyVoted, "%s already voted on %s", u.caller.Short(), i.Poll.Short())
		}
		return ir.Address{}, err
	}

	poll.Count(i.OptionIndex)
	if err := u.save(i.Poll, poll); err != nil {
		return ir.Address{}, err
	}
	return addr, nil
}

func (i ClosePoll) apply(u *unit) (ir.Address, error) {
	var poll ir.Poll
	if err := u.load(i.Poll, &poll); err != nil {
		return ir.Address{}, err
	}
	var community ir.Community
	if err := u.load(poll.Community, &community); err != nil {
		return ir.Address{}, err
	}

	if err := authz.RequireCreatorOrAdmin(u.caller, poll, community); err != nil {
		return ir.Address{}, deny(err, map[authz.Capability]Code{authz.CapCreatorOrAdmin: CodeUnauthorizedToClose})
	}

	if poll.IsOpen() {
		poll.Close()
		if err := u.save(i.Poll, poll); err != nil {
			return ir.Address{}, err
		}
	}
	return i.Poll, nil
}
