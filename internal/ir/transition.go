package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Op names one of the six ledger transitions.
type Op string

const (
	OpInitializeCommunity Op = "initialize_community"
	OpJoinCommunity       Op = "join_community"
	OpApproveMembership   Op = "approve_membership"
	OpCreatePoll          Op = "create_poll"
	OpCastVote            Op = "cast_vote"
	OpClosePoll           Op = "close_poll"
)

// Ops lists every transition in declaration order.
var Ops = []Op{
	OpInitializeCommunity,
	OpJoinCommunity,
	OpApproveMembership,
	OpCreatePoll,
	OpCastVote,
	OpClosePoll,
}

// Valid reports whether op names a known transition.
func (op Op) Valid() bool {
	for _, known := range Ops {
		if op == known {
			return true
		}
	}
	return false
}

// OutcomeOK marks a committed transition in the journal. Rejected
// transitions carry their error code instead.
const OutcomeOK = "OK"

// DomainTransition prefixes journal entry IDs.
const DomainTransition = "quorum/transition/v1"

// Transition is one journaled transition attempt.
type Transition struct {
	// ID is the content-addressed identity of the attempt (see TransitionID).
	ID string `json:"id"`

	// RequestID correlates the attempt with the submitting request.
	RequestID string `json:"request_id"`

	// Seq is the logical position assigned by the sequencer.
	Seq int64 `json:"seq"`

	Op     Op       `json:"op"`
	Caller Address  `json:"caller"`
	Args   IRObject `json:"args"`

	// At is the wall-clock reading (Unix seconds) the transition observed.
	At int64 `json:"at"`

	// Outcome is OutcomeOK or the rejection code.
	Outcome string `json:"outcome"`

	// Result is the primary record address the transition created or
	// mutated, empty when rejected.
	Result string `json:"result,omitempty"`
}

// Committed reports whether the transition was applied.
func (t Transition) Committed() bool {
	return t.Outcome == OutcomeOK
}

// TransitionID computes the content-addressed ID of a transition attempt.
// The outcome is excluded: the ID names what was asked, not what happened.
func TransitionID(seq int64, op Op, caller Address, args IRObject, at int64) (string, error) {
	obj := IRObject{
		"seq":    IRInt(seq),
		"op":     IRString(op),
		"caller": caller.IR(),
		"args":   args,
		"at":     IRInt(at),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TransitionID: failed to marshal: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainTransition))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}
