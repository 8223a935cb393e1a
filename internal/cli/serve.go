package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/quorum/internal/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Long: `Start the sequencer and the HTTP API.

The sequencer resumes after the journal's last seq. HTTP callers identify
themselves with the X-Quorum-Caller header (hex identity).

Example:
  quorum serve --db ./quorum.db --addr 127.0.0.1:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default $QUORUM_HTTP_ADDR)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := opts.logger()

	s, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	addr := opts.Addr
	if addr == "" {
		addr = opts.Config.HTTPAddr
	}
	srv := httpapi.New(s.engine, s.ledger, logger).NewHTTPServer(addr)
	logger.Info("serving", "addr", addr, "db", opts.dbPath(), "approval_policy", opts.policy())
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", addr)

	if err := httpapi.Serve(ctx, srv, opts.Config.ShutdownTimeout); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
