package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/quorum/internal/engine"
	"github.com/roach88/quorum/internal/ledger"
	"github.com/roach88/quorum/internal/store"
)

// session is an open database with a running sequencer.
type session struct {
	store  *store.Store
	ledger *ledger.Ledger
	engine *engine.Engine

	cancel context.CancelFunc
	done   chan error
}

// newLedger builds the ledger the options describe over st.
func (o *RootOptions) newLedger(st ledger.Store, logger *slog.Logger) *ledger.Ledger {
	lopts := []ledger.Option{
		ledger.WithApprovalPolicy(o.policy()),
		ledger.WithLogger(logger),
	}
	if o.Clock != nil {
		lopts = append(lopts, ledger.WithClock(o.Clock))
	}
	return ledger.New(st, lopts...)
}

// openSession opens the database and starts a sequencer that resumes after
// the journal's last seq. Close stops it.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	st, err := store.Open(opts.dbPath())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	logger := opts.logger()
	l := opts.newLedger(st, logger)
	eng, err := engine.Resume(ctx, st, l, engine.WithLogger(logger))
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to resume sequencer", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &session{store: st, ledger: l, engine: eng, cancel: cancel, done: make(chan error, 1)}
	go func() { s.done <- eng.Run(runCtx) }()
	return s, nil
}

// Close stops the sequencer and closes the database.
func (s *session) Close() error {
	s.engine.Stop()
	s.cancel()
	<-s.done
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
