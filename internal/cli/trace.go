package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	After    int64
	Limit    int
	Op       string // optional - filter to one transition
	Rejected bool   // optional - only rejected transitions
}

// TraceResult holds the trace output.
type TraceResult struct {
	Entries []ir.Transition `json:"entries"`
	Stats   TraceStats      `json:"stats"`
}

// TraceStats holds summary statistics for the listed entries.
type TraceStats struct {
	Total     int `json:"total"`
	Committed int `json:"committed"`
	Rejected  int `json:"rejected"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List the transition journal",
		Long: `List journaled transitions in seq order.

Every submitted transition is journaled, including rejected ones, with
its caller, arguments, observed wall time, and outcome.

Examples:
  quorum trace --db ./quorum.db
  quorum trace --db ./quorum.db --op cast_vote --rejected
  quorum trace --db ./quorum.db --after 100 --limit 20 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.After, "after", 0, "list entries after this seq")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entries to read (0 = all)")
	cmd.Flags().StringVar(&opts.Op, "op", "", "filter to one transition name")
	cmd.Flags().BoolVar(&opts.Rejected, "rejected", false, "only list rejected transitions")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Op != "" && !ir.Op(opts.Op).Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown op %q", opts.Op))
	}

	st, err := store.Open(opts.dbPath())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	journal, err := st.ReadJournal(ctx, opts.After, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := TraceResult{Entries: []ir.Transition{}}
	for _, tr := range journal {
		if opts.Op != "" && string(tr.Op) != opts.Op {
			continue
		}
		if opts.Rejected && tr.Committed() {
			continue
		}
		result.Entries = append(result.Entries, tr)
		if tr.Committed() {
			result.Stats.Committed++
		} else {
			result.Stats.Rejected++
		}
	}
	result.Stats.Total = len(result.Entries)

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: result})
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// outputTraceText prints one line per entry. Verbose output adds the
// arguments and transition ID.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "No transitions found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tAT\tOP\tCALLER\tOUTCOME\tRESULT")
	for _, tr := range result.Entries {
		res := "-"
		if tr.Result != "" {
			res = tr.Result[:8]
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n", tr.Seq, tr.At, tr.Op, tr.Caller.Short(), tr.Outcome, res)
		if verbose {
			args, err := ir.MarshalCanonical(tr.Args)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "\t\targs %s\t\t\t\n", args)
			fmt.Fprintf(tw, "\t\tid %s\t\t\t\n", tr.ID)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d transition(s): %d committed, %d rejected\n",
		result.Stats.Total, result.Stats.Committed, result.Stats.Rejected)
	return nil
}
