package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/store"
)

// Store is the record substrate the ledger writes through.
// Implemented by *store.Store and *store.Memory.
type Store interface {
	Update(ctx context.Context, fn func(store.Tx) error) error
	View(ctx context.Context, fn func(store.Tx) error) error
}

// Clock reads wall-clock time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ApprovalPolicy decides what approving an already-approved membership does.
type ApprovalPolicy int

const (
	// ApprovalGuarded rejects a second approval with ALREADY_APPROVED.
	ApprovalGuarded ApprovalPolicy = iota

	// ApprovalLegacy accepts a second approval and increments member_count
	// again, as deployed ledgers did before the guard existed.
	ApprovalLegacy
)

// String returns the config name of the policy.
func (p ApprovalPolicy) String() string {
	switch p {
	case ApprovalGuarded:
		return "guarded"
	case ApprovalLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("ApprovalPolicy(%d)", int(p))
	}
}

// ParseApprovalPolicy parses "guarded" or "legacy".
func ParseApprovalPolicy(s string) (ApprovalPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "guarded":
		return ApprovalGuarded, nil
	case "legacy":
		return ApprovalLegacy, nil
	default:
		return 0, fmt.Errorf("unknown approval policy %q (want guarded or legacy)", s)
	}
}

// Ledger applies transitions to a Store.
type Ledger struct {
	store  Store
	clock  Clock
	policy ApprovalPolicy
	logger *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the wall clock transitions observe.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithApprovalPolicy sets the double-approval behaviour.
func WithApprovalPolicy(p ApprovalPolicy) Option {
	return func(l *Ledger) { l.policy = p }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New creates a Ledger over st.
func New(st Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  st,
		clock:  systemClock{},
		policy: ApprovalGuarded,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Policy returns the configured approval policy.
func (l *Ledger) Policy() ApprovalPolicy {
	return l.policy
}

// Now returns the current clock reading in Unix seconds.
func (l *Ledger) Now() int64 {
	return l.clock.Now().Unix()
}

// Execute applies ins for caller in its own store unit, observing the
// ledger clock. Returns the address of the record the transition created
// or mutated.
func (l *Ledger) Execute(ctx context.Context, caller ir.Address, ins Instruction) (ir.Address, error) {
	now := l.Now()

	var result ir.Address
	err := l.store.Update(ctx, func(tx store.Tx) error {
		addr, err := l.Apply(ctx, tx, caller, ins, now)
		if err != nil {
			return err
		}
		result = addr
		return nil
	})
	if err != nil {
		l.logger.Debug("transition rejected",
			"op", ins.Op(),
			"caller", caller.Short(),
			"code", CodeOf(err),
			"error", err,
		)
		return ir.Address{}, err
	}

	l.logger.Debug("transition applied",
		"op", ins.Op(),
		"caller", caller.Short(),
		"result", result.Short(),
	)
	return result, nil
}

// Apply runs ins against tx as caller at time now (Unix seconds).
// The caller owns tx: on error it must discard the unit.
func (l *Ledger) Apply(ctx context.Context, tx store.Tx, caller ir.Address, ins Instruction, now int64) (ir.Address, error) {
	if err := CheckText(ins); err != nil {
		return ir.Address{}, err
	}
	u := &unit{
		ctx:    ctx,
		tx:     tx,
		caller: caller,
		now:    now,
		policy: l.policy,
	}
	return ins.apply(u)
}

// InitializeCommunity creates a community administered by caller.
func (l *Ledger) InitializeCommunity(ctx context.Context, caller ir.Address, name, description string) (ir.Address, error) {
	return l.Execute(ctx, caller, InitializeCommunity{Name: name, Description: description})
}

// JoinCommunity requests membership of community for caller.
func (l *Ledger) JoinCommunity(ctx context.Context, caller, community ir.Address) (ir.Address, error) {
	return l.Execute(ctx, caller, JoinCommunity{Community: community})
}

// ApproveMembership approves member's pending membership of community.
func (l *Ledger) ApproveMembership(ctx context.Context, caller, community, member ir.Address) (ir.Address, error) {
	return l.Execute(ctx, caller, ApproveMembership{Community: community, Member: member})
}

// CreatePoll opens a poll in community.
func (l *Ledger) CreatePoll(ctx context.Context, caller, community ir.Address, question string, options []string, endTime int64) (ir.Address, error) {
	return l.Execute(ctx, caller, CreatePoll{
		Community: community,
		Question:  question,
		Options:   options,
		EndTime:   endTime,
	})
}

// CastVote records caller's vote for option index on poll.
func (l *Ledger) CastVote(ctx context.Context, caller, poll ir.Address, index int) (ir.Address, error) {
	return l.Execute(ctx, caller, CastVote{Poll: poll, OptionIndex: index})
}

// ClosePoll closes poll.
func (l *Ledger) ClosePoll(ctx context.Context, caller, poll ir.Address) (ir.Address, error) {
	return l.Execute(ctx, caller, ClosePoll{Poll: poll})
}
