package ledger

import (
	"context"

	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/store"
)

// view loads the record at addr into rec inside a read-only unit.
func (l *Ledger) view(ctx context.Context, addr ir.Address, rec ir.Record) error {
	return l.store.View(ctx, func(tx store.Tx) error {
		u := &unit{ctx: ctx, tx: tx}
		return u.load(addr, rec)
	})
}

// Community returns the community at addr.
func (l *Ledger) Community(ctx context.Context, addr ir.Address) (ir.Community, error) {
	var c ir.Community
	err := l.view(ctx, addr, &c)
	return c, err
}

// CommunityByName returns the community called name and its address.
// Canonically equivalent spellings of name find the same community.
func (l *Ledger) CommunityByName(ctx context.Context, name string) (ir.Address, ir.Community, error) {
	addr := ir.CommunityAddress(name)
	c, err := l.Community(ctx, addr)
	return addr, c, err
}

// Membership returns the membership at addr.
func (l *Ledger) Membership(ctx context.Context, addr ir.Address) (ir.Membership, error) {
	var m ir.Membership
	err := l.view(ctx, addr, &m)
	return m, err
}

// Poll returns the poll at addr.
func (l *Ledger) Poll(ctx context.Context, addr ir.Address) (ir.Poll, error) {
	var p ir.Poll
	err := l.view(ctx, addr, &p)
	return p, err
}

// PollAt returns the index'th poll created in community and its address.
func (l *Ledger) PollAt(ctx context.Context, community ir.Address, index uint64) (ir.Address, ir.Poll, error) {
	addr := ir.PollAddress(community, index)
	p, err := l.Poll(ctx, addr)
	return addr, p, err
}

// Vote returns the vote at addr.
func (l *Ledger) Vote(ctx context.Context, addr ir.Address) (ir.Vote, error) {
	var v ir.Vote
	err := l.view(ctx, addr, &v)
	return v, err
}
