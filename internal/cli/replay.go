package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/quorum/internal/engine"
	"github.com/roach88/quorum/internal/ledger"
	"github.com/roach88/quorum/internal/store"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify determinism",
		Long: `Replay the journal into a fresh in-memory ledger and compare.

Every entry is re-applied at the wall time it originally observed. A
committed entry must commit again with the same result address; a
rejected entry must be rejected again with the same code. Finally the
digest of the replayed records must equal the digest of the stored ones.

The approval policy must match the one the journal was written with.

Exit codes:
  0 - Replay reproduced every outcome and the stored state
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  quorum replay --db ./quorum.db
  quorum replay --db ./quorum.db --approval-policy legacy --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}
	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.dbPath())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result, err := engine.Replay(ctx, st,
		ledger.WithApprovalPolicy(opts.policy()),
		ledger.WithLogger(opts.logger()),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay journal", err)
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result engine.ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.OK() {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.OK() {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result engine.ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.Entries == 0 {
		fmt.Fprintln(w, "No transitions found in journal.")
	}

	fmt.Fprintf(w, "Replay Summary: %d transition(s), %d committed, %d rejected\n",
		result.Entries, result.Committed, result.Rejected)
	if verbose {
		fmt.Fprintf(w, "  Live digest:     %s\n", result.LiveDigest)
		fmt.Fprintf(w, "  Replayed digest: %s\n", result.ReplayDigest)
	}

	for _, m := range result.Mismatches {
		fmt.Fprintf(w, "✗ seq %d %s: recorded %s, replayed %s\n", m.Seq, m.Op, m.Want, m.Got)
	}
	if result.LiveDigest != result.ReplayDigest {
		fmt.Fprintln(w, "✗ Replayed state differs from stored state")
	}

	if result.OK() {
		fmt.Fprintln(w, "✓ Journal verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
