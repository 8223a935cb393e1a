// Package authz holds the capability predicates every mutating ledger
// transition consults before writing.
//
// Predicates are pure functions of the caller identity and already-loaded
// records. The Require variants return a *Denial naming the missing
// capability; the ledger maps each capability to its rejection code.
package authz

import (
	"fmt"

	"github.com/roach88/quorum/internal/ir"
)

// Capability names a permission a transition can require.
type Capability string

const (
	CapAdmin          Capability = "admin"
	CapApprovedMember Capability = "approved_member"
	CapCreatorOrAdmin Capability = "creator_or_admin"
	CapMembershipBind Capability = "membership_binding"
)

// Denial reports that the caller lacks a capability.
type Denial struct {
	Capability Capability
	Caller     ir.Address
	Reason     string
}

// Error implements the error interface.
func (d *Denial) Error() string {
	return fmt.Sprintf("%s denied for %s: %s", d.Capability, d.Caller.Short(), d.Reason)
}

// IsAdmin reports whether caller administers community.
func IsAdmin(caller ir.Address, community ir.Community) bool {
	return caller == community.Admin
}

// IsApprovedMember reports whether the membership grants member rights.
func IsApprovedMember(m ir.Membership) bool {
	return m.IsApproved()
}

// IsCreatorOrAdmin reports whether caller created poll or administers the
// community that owns it.
func IsCreatorOrAdmin(caller ir.Address, poll ir.Poll, community ir.Community) bool {
	return caller == poll.Creator || IsAdmin(caller, community)
}

// BelongsTo reports whether m is the membership of member in community.
func BelongsTo(m ir.Membership, community, member ir.Address) bool {
	return m.Community == community && m.Member == member
}

// RequireAdmin denies unless caller administers community.
func RequireAdmin(caller ir.Address, community ir.Community) error {
	if IsAdmin(caller, community) {
		return nil
	}
	return &Denial{Capability: CapAdmin, Caller: caller, Reason: fmt.Sprintf("not the admin of %q", community.Name)}
}

// RequireApprovedMember denies unless m is approved and bound to
// (community, caller).
func RequireApprovedMember(caller ir.Address, m ir.Membership, community ir.Address) error {
	if !BelongsTo(m, community, caller) {
		return &Denial{Capability: CapMembershipBind, Caller: caller, Reason: "membership belongs to another community or member"}
	}
	if !IsApprovedMember(m) {
		return &Denial{Capability: CapApprovedMember, Caller: caller, Reason: "membership is " + string(m.Status)}
	}
	return nil
}

// RequireBinding denies unless m belongs to (community, member).
func RequireBinding(caller ir.Address, m ir.Membership, community, member ir.Address) error {
	if BelongsTo(m, community, member) {
		return nil
	}
	return &Denial{Capability: CapMembershipBind, Caller: caller, Reason: "membership belongs to another community or member"}
}

// RequireCreatorOrAdmin denies unless caller created poll or administers
// community.
func RequireCreatorOrAdmin(caller ir.Address, poll ir.Poll, community ir.Community) error {
	if IsCreatorOrAdmin(caller, poll, community) {
		return nil
	}
	return &Denial{Capability: CapCreatorOrAdmin, Caller: caller, Reason: "neither the poll creator nor the community admin"}
}
