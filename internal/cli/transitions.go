package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/quorum/internal/engine"
	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/ledger"
)

// ReceiptView is the output of a committed transition.
type ReceiptView struct {
	Seq       int64      `json:"seq"`
	RequestID string     `json:"request_id"`
	ID        string     `json:"id"`
	Op        ir.Op      `json:"op"`
	At        int64      `json:"at"`
	Outcome   string     `json:"outcome"`
	Address   ir.Address `json:"address"`
}

func newReceiptView(r engine.Receipt) ReceiptView {
	return ReceiptView{
		Seq:       r.Seq,
		RequestID: r.RequestID,
		ID:        r.TransitionID,
		Op:        r.Op,
		At:        r.At,
		Outcome:   r.Outcome,
		Address:   r.Result,
	}
}

func (v ReceiptView) String() string {
	return fmt.Sprintf("%s seq=%d op=%s\naddress: %s", v.Outcome, v.Seq, v.Op, v.Address)
}

// rejectionDetails is attached to a rejection so scripts can find its
// journal entry.
type rejectionDetails struct {
	Seq       int64  `json:"seq"`
	RequestID string `json:"request_id"`
}

func (d rejectionDetails) String() string {
	return fmt.Sprintf("seq=%d request_id=%s", d.Seq, d.RequestID)
}

// buildFunc turns flags into an instruction once a session is open.
type buildFunc func(ctx context.Context, s *session) (ledger.Instruction, error)

// runTransition submits the instruction built by build as the caller and
// prints the outcome.
func runTransition(cmd *cobra.Command, opts *RootOptions, build buildFunc) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	caller, err := opts.callerAddress()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid caller", err)
	}

	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ins, err := build(ctx, s)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}

	f := opts.formatter(cmd)
	f.VerboseLog("submitting %s as %s", ins.Op(), caller.Short())

	receipt, err := s.engine.Submit(ctx, engine.Request{Caller: caller, Instruction: ins})
	var lerr *ledger.Error
	switch {
	case errors.As(err, &lerr):
		return f.Rejection(lerr, rejectionDetails{Seq: receipt.Seq, RequestID: receipt.RequestID})
	case err != nil:
		return WrapExitError(ExitCommandError, "transition failed", err)
	}
	return f.Success(newReceiptView(receipt))
}

// static wraps an instruction that needs no session state.
func static(fn func() (ledger.Instruction, error)) buildFunc {
	return func(context.Context, *session) (ledger.Instruction, error) { return fn() }
}

// NewInitCommunityCommand creates the init-community command.
func NewInitCommunityCommand(opts *RootOptions) *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "init-community",
		Short: "Create a community administered by the caller",
		Example: `  quorum init-community --as admin --name Devs --description "Developers"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, opts, static(func() (ledger.Instruction, error) {
				return ledger.InitializeCommunity{Name: name, Description: description}, nil
			}))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "community name (1 to 32 bytes)")
	cmd.Flags().StringVar(&description, "description", "", "community description (at most 200 bytes)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// NewJoinCommand creates the join command.
func NewJoinCommand(opts *RootOptions) *cobra.Command {
	var community string
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Request membership of a community",
		Example: `  quorum join --as alice --community Devs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, opts, static(func() (ledger.Instruction, error) {
				addr, err := parseCommunity(community)
				if err != nil {
					return nil, err
				}
				return ledger.JoinCommunity{Community: addr}, nil
			}))
		},
	}
	cmd.Flags().StringVar(&community, "community", "", "community name or address")
	_ = cmd.MarkFlagRequired("community")
	return cmd
}

// NewApproveCommand creates the approve command.
func NewApproveCommand(opts *RootOptions) *cobra.Command {
	var community, member string
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a pending membership (admin only)",
		Example: `  quorum approve --as admin --community Devs --member alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, opts, static(func() (ledger.Instruction, error) {
				c, err := parseCommunity(community)
				if err != nil {
					return nil, err
				}
				m, err := parseIdentity(member)
				if err != nil {
					return nil, err
				}
				return ledger.ApproveMembership{Community: c, Member: m}, nil
			}))
		},
	}
	cmd.Flags().StringVar(&community, "community", "", "community name or address")
	cmd.Flags().StringVar(&member, "member", "", "member name or identity")
	_ = cmd.MarkFlagRequired("community")
	_ = cmd.MarkFlagRequired("member")
	return cmd
}

// NewCreatePollCommand creates the create-poll command.
func NewCreatePollCommand(opts *RootOptions) *cobra.Command {
	var (
		community string
		question  string
		options   []string
		endsIn    time.Duration
		endTime   int64
	)
	cmd := &cobra.Command{
		Use:   "create-poll",
		Short: "Open a poll in a community (approved members only)",
		Example: `  quorum create-poll --as alice --community Devs --question "Best lang?" \
    --option Rust --option Go --ends-in 24h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, opts, func(ctx context.Context, s *session) (ledger.Instruction, error) {
				c, err := parseCommunity(community)
				if err != nil {
					return nil, err
				}
				end := endTime
				if endsIn != 0 {
					end = s.ledger.Now() + int64(endsIn/time.Second)
				}
				return ledger.CreatePoll{Community: c, Question: question, Options: options, EndTime: end}, nil
			})
		},
	}
	cmd.Flags().StringVar(&community, "community", "", "community name or address")
	cmd.Flags().StringVar(&question, "question", "", "poll question")
	cmd.Flags().StringArrayVar(&options, "option", nil, "poll option (repeat 2 to 4 times)")
	cmd.Flags().DurationVar(&endsIn, "ends-in", 0, "voting window from now")
	cmd.Flags().Int64Var(&endTime, "end-time", 0, "voting end as Unix seconds")
	_ = cmd.MarkFlagRequired("community")
	_ = cmd.MarkFlagRequired("question")
	cmd.MarkFlagsOneRequired("ends-in", "end-time")
	cmd.MarkFlagsMutuallyExclusive("ends-in", "end-time")
	return cmd
}

// NewVoteCommand creates the vote command.
func NewVoteCommand(opts *RootOptions) *cobra.Command {
	var (
		poll   string
		option int
	)
	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Vote on an open poll (approved members only)",
		Example: `  quorum vote --as alice --poll Devs:0 --option 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, opts, static(func() (ledger.Instruction, error) {
				addr, err := parsePoll(poll)
				if err != nil {
					return nil, err
				}
				return ledger.CastVote{Poll: addr, OptionIndex: option}, nil
			}))
		},
	}
	cmd.Flags().StringVar(&poll, "poll", "", "poll address or COMMUNITY:INDEX")
	cmd.Flags().IntVar(&option, "option", 0, "zero-based option index")
	_ = cmd.MarkFlagRequired("poll")
	_ = cmd.MarkFlagRequired("option")
	return cmd
}

// NewClosePollCommand creates the close-poll command.
func NewClosePollCommand(opts *RootOptions) *cobra.Command {
	var poll string
	cmd := &cobra.Command{
		Use:   "close-poll",
		Short: "Close a poll (creator or community admin)",
		Example: `  quorum close-poll --as alice --poll Devs:0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, opts, static(func() (ledger.Instruction, error) {
				addr, err := parsePoll(poll)
				if err != nil {
					return nil, err
				}
				return ledger.ClosePoll{Poll: addr}, nil
			}))
		},
	}
	cmd.Flags().StringVar(&poll, "poll", "", "poll address or COMMUNITY:INDEX")
	_ = cmd.MarkFlagRequired("poll")
	return cmd
}
