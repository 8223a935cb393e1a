package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/ledger"
	"github.com/roach88/quorum/internal/store"
)

// CommunityView is the show output for a community.
type CommunityView struct {
	Address ir.Address `json:"address"`
	ir.Community
}

func (v CommunityView) String() string {
	return fmt.Sprintf("Community %q\n  address:     %s\n  admin:       %s\n  description: %s\n  members:     %d\n  polls:       %d",
		v.Name, v.Address, v.Admin, v.Description, v.MemberCount, v.TotalPolls)
}

// MembershipView is the show output for a membership.
type MembershipView struct {
	Address ir.Address `json:"address"`
	ir.Membership
}

func (v MembershipView) String() string {
	return fmt.Sprintf("Membership %s\n  community: %s\n  member:    %s\n  status:    %s\n  joined:    %s",
		v.Address, v.Community, v.Member, v.Status, formatUnix(v.JoinedAt))
}

// PollView is the show output for a poll.
type PollView struct {
	Address ir.Address `json:"address"`
	ir.Poll
}

func (v PollView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Poll %q\n  address:   %s\n  community: %s\n  creator:   %s\n  status:    %s\n  ends:      %s\n  votes:     %d",
		v.Question, v.Address, v.Community, v.Creator, v.Status, formatUnix(v.EndTime), v.TotalVotes)
	for i, opt := range v.Options {
		fmt.Fprintf(&b, "\n  [%d] %-20s %d", i, opt, v.VoteCounts[i])
	}
	return b.String()
}

// VoteView is the show output for a vote.
type VoteView struct {
	Address ir.Address `json:"address"`
	ir.Vote
}

func (v VoteView) String() string {
	return fmt.Sprintf("Vote %s\n  poll:   %s\n  voter:  %s\n  option: %d\n  cast:   %s",
		v.Address, v.Poll, v.Voter, v.OptionIndex, formatUnix(v.VotedAt))
}

func formatUnix(sec int64) string {
	return fmt.Sprintf("%d (%s)", sec, time.Unix(sec, 0).UTC().Format(time.RFC3339))
}

// NewShowCommand creates the show command.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a ledger record",
		Long: `Print a community, membership, poll, or vote.

Records may be named by hex address or by the names they derive from:
communities by name, identities by name, polls as COMMUNITY:INDEX.`,
		Example: `  quorum show community Devs
  quorum show membership Devs alice
  quorum show poll Devs:0
  quorum show vote Devs:0 alice`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "community <name|address>",
		Short: "Print a community",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, opts, func(ctx context.Context, l *ledger.Ledger) (any, error) {
				addr, err := parseCommunity(args[0])
				if err != nil {
					return nil, err
				}
				c, err := l.Community(ctx, addr)
				return CommunityView{Address: addr, Community: c}, err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "membership <community> <member>",
		Short: "Print a membership",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, opts, func(ctx context.Context, l *ledger.Ledger) (any, error) {
				c, err := parseCommunity(args[0])
				if err != nil {
					return nil, err
				}
				m, err := parseIdentity(args[1])
				if err != nil {
					return nil, err
				}
				addr := ir.MembershipAddress(c, m)
				rec, err := l.Membership(ctx, addr)
				return MembershipView{Address: addr, Membership: rec}, err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "poll <address|community:index>",
		Short: "Print a poll and its tally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, opts, func(ctx context.Context, l *ledger.Ledger) (any, error) {
				addr, err := parsePoll(args[0])
				if err != nil {
					return nil, err
				}
				p, err := l.Poll(ctx, addr)
				return PollView{Address: addr, Poll: p}, err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "vote <poll> <voter>",
		Short: "Print a vote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, opts, func(ctx context.Context, l *ledger.Ledger) (any, error) {
				poll, err := parsePoll(args[0])
				if err != nil {
					return nil, err
				}
				voter, err := parseIdentity(args[1])
				if err != nil {
					return nil, err
				}
				addr := ir.VoteAddress(poll, voter)
				v, err := l.Vote(ctx, addr)
				return VoteView{Address: addr, Vote: v}, err
			})
		},
	})

	return cmd
}

// runShow opens the database, loads one record, and prints it.
func runShow(cmd *cobra.Command, opts *RootOptions, load func(context.Context, *ledger.Ledger) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.dbPath())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	f := opts.formatter(cmd)
	view, err := load(ctx, opts.newLedger(st, opts.logger()))
	var lerr *ledger.Error
	switch {
	case errors.As(err, &lerr):
		if werr := f.Error(string(lerr.Code), lerr.Message, nil); werr != nil {
			return werr
		}
		return WrapExitError(ExitFailure, "record not found", err)
	case err != nil:
		return WrapExitError(ExitCommandError, "failed to load record", err)
	}
	return f.Success(view)
}

// NewAddressCommand creates the address command.
func NewAddressCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address <kind> <parts...>",
		Short: "Derive a record address",
		Long: `Derive the address of an identity or record without opening a database.

Kinds:
  identity   NAME
  community  NAME
  membership COMMUNITY MEMBER
  poll       COMMUNITY INDEX
  vote       COMMUNITY INDEX VOTER`,
		Example: `  quorum address poll Devs 0`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := deriveAddress(args[0], args[1:])
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot derive address", err)
			}
			return opts.formatter(cmd).Success(addressView{Kind: args[0], Address: addr})
		},
	}
	return cmd
}

type addressView struct {
	Kind    string     `json:"kind"`
	Address ir.Address `json:"address"`
}

func (v addressView) String() string { return v.Address.String() }

func deriveAddress(kind string, parts []string) (ir.Address, error) {
	want := map[string]int{"identity": 1, "community": 1, "membership": 2, "poll": 2, "vote": 3}
	n, ok := want[kind]
	if !ok {
		return ir.Address{}, fmt.Errorf("unknown kind %q", kind)
	}
	if len(parts) != n {
		return ir.Address{}, fmt.Errorf("%s takes %d argument(s), got %d", kind, n, len(parts))
	}

	switch kind {
	case "identity":
		return ir.NamedIdentity(parts[0]), nil
	case "community":
		return ir.CommunityAddress(parts[0]), nil
	case "membership":
		c, err := parseCommunity(parts[0])
		if err != nil {
			return ir.Address{}, err
		}
		m, err := parseIdentity(parts[1])
		if err != nil {
			return ir.Address{}, err
		}
		return ir.MembershipAddress(c, m), nil
	}

	c, err := parseCommunity(parts[0])
	if err != nil {
		return ir.Address{}, err
	}
	index, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return ir.Address{}, fmt.Errorf("bad poll index: %w", err)
	}
	poll := ir.PollAddress(c, index)
	if kind == "poll" {
		return poll, nil
	}
	voter, err := parseIdentity(parts[2])
	if err != nil {
		return ir.Address{}, err
	}
	return ir.VoteAddress(poll, voter), nil
}
