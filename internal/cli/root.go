package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/quorum/internal/config"
	"github.com/roach88/quorum/internal/ledger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose        bool
	Format         string // "json" | "text"
	Database       string
	As             string // caller name, resolved with ir.NamedIdentity
	Caller         string // caller identity as hex
	ApprovalPolicy string

	// Config is loaded from the environment before any command runs.
	Config config.Config

	// Clock overrides the ledger wall clock (for testing).
	Clock ledger.Clock

	// Logger is set up from -v and QUORUM_LOG_LEVEL.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the quorum CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quorum",
		Short: "quorum - community governance ledger",
		Long: `A ledger of communities, memberships, polls, and votes.

Every transition is sequenced, journaled, and replayable: the journal
re-applied from scratch reproduces the stored state byte for byte.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Config = cfg

			if _, err := ledger.ParseApprovalPolicy(opts.ApprovalPolicy); err != nil {
				return WrapExitError(ExitCommandError, "invalid --approval-policy", err)
			}

			level, _ := config.ParseLogLevel(cfg.LogLevel)
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.Database, "db", "", "path to SQLite database (default $QUORUM_DB_PATH or quorum.db)")
	pf.StringVar(&opts.As, "as", "", "act as the named identity")
	pf.StringVar(&opts.Caller, "caller", "", "act as the identity given in hex")
	pf.StringVar(&opts.ApprovalPolicy, "approval-policy", "", "guarded|legacy (default $QUORUM_APPROVAL_POLICY or guarded)")
	cmd.MarkFlagsMutuallyExclusive("as", "caller")

	// Transitions
	cmd.AddCommand(NewInitCommunityCommand(opts))
	cmd.AddCommand(NewJoinCommand(opts))
	cmd.AddCommand(NewApproveCommand(opts))
	cmd.AddCommand(NewCreatePollCommand(opts))
	cmd.AddCommand(NewVoteCommand(opts))
	cmd.AddCommand(NewClosePollCommand(opts))

	// Queries and tooling
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewAddressCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// formatter returns an OutputFormatter writing to cmd's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// dbPath returns --db, then the configured path.
func (o *RootOptions) dbPath() string {
	if o.Database != "" {
		return o.Database
	}
	if o.Config.DBPath != "" {
		return o.Config.DBPath
	}
	return "quorum.db"
}

// policy returns --approval-policy, then the configured policy.
func (o *RootOptions) policy() ledger.ApprovalPolicy {
	if o.ApprovalPolicy != "" {
		if p, err := ledger.ParseApprovalPolicy(o.ApprovalPolicy); err == nil {
			return p
		}
	}
	return o.Config.Policy()
}

// logger returns the configured logger or the default.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
