package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/ledger"
	"github.com/roach88/quorum/internal/store"
)

// Store is the substrate the sequencer journals into.
// Implemented by *store.Store and *store.Memory.
type Store interface {
	ledger.Store
	ReadJournal(ctx context.Context, after int64, limit int) ([]ir.Transition, error)
	LastSeq(ctx context.Context) (int64, error)
	Snapshot(ctx context.Context) (map[ir.Address][]byte, error)
}

// Engine is the single-writer sequencer in front of the ledger.
//
// CRITICAL: All ledger writes happen in the Run goroutine. External callers
// use Submit, which enqueues and waits for the result.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine
//   - Run(): exactly one goroutine at a time (ErrAlreadyRunning otherwise)
//   - Stop(): safe from any goroutine, idempotent
type Engine struct {
	store   Store
	ledger  *ledger.Ledger
	seq     *Sequence
	ids     IDGenerator
	queue   *requestQueue
	logger  *slog.Logger
	running atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator sets the request ID source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an Engine numbering transitions from 1.
func New(s Store, l *ledger.Ledger, opts ...Option) *Engine {
	return NewWithSequence(s, l, NewSequence(), opts...)
}

// NewWithSequence creates an Engine with a pre-positioned sequence.
func NewWithSequence(s Store, l *ledger.Ledger, seq *Sequence, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		ledger: l,
		seq:    seq,
		ids:    UUIDv7Generator{},
		queue:  newRequestQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Resume creates an Engine that continues numbering after the journal's
// last entry.
func Resume(ctx context.Context, s Store, l *ledger.Ledger, opts ...Option) (*Engine, error) {
	last, err := s.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}
	return NewWithSequence(s, l, NewSequenceAt(last), opts...), nil
}

// Sequence returns the engine's logical clock.
func (e *Engine) Sequence() *Sequence {
	return e.seq
}

// QueueLen returns the number of requests waiting to be applied.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Submit enqueues req and waits for the Run loop to apply it.
//
// A rejected transition returns its Receipt (with the rejection code as
// Outcome) together with the *ledger.Error. If ctx ends first Submit returns
// ctx.Err(); the request stays queued and is still applied and journaled.
func (e *Engine) Submit(ctx context.Context, req Request) (Receipt, error) {
	if req.Instruction == nil {
		return Receipt{}, ErrNilInstruction
	}
	if req.RequestID == "" {
		req.RequestID = e.ids.Generate()
	}

	p := &pending{req: req, done: make(chan result, 1)}
	if !e.queue.Enqueue(p) {
		return Receipt{}, ErrStopped
	}

	select {
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	case r := <-p.done:
		return r.receipt, r.err
	}
}

// Run starts the single-writer loop.
// Blocks until ctx is cancelled or Stop() is called. Requests still queued
// when the loop exits fail with ErrStopped.
//
// ERROR HANDLING: A store failure fails only the request that hit it; the
// loop logs it and continues with the next request. Nothing is retried.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	e.logger.Info("engine starting", "seq", e.seq.Current())

	for {
		if p, ok := e.queue.TryDequeue(); ok {
			p.done <- e.process(ctx, p.req)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.drain()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed, which
			// makes this case fire immediately.
			if e.queue.Len() == 0 && e.closed() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop stops accepting requests. Run returns once it notices.
func (e *Engine) Stop() {
	e.drain()
}

func (e *Engine) drain() {
	for _, p := range e.queue.Close() {
		p.done <- result{err: ErrStopped}
	}
}

func (e *Engine) closed() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

// process applies one request and journals its outcome.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
//
// A committed transition's journal entry is written in the same store unit
// as its records. A rejected transition's unit is discarded and its entry is
// written in a unit of its own.
//
// Text that is not valid UTF-8 cannot be journaled, so such a request is
// rejected before it is given a seq and leaves no journal entry. A store
// failure after the seq is taken also leaves no entry; the journal then has
// a gap at that seq.
func (e *Engine) process(ctx context.Context, req Request) result {
	ins := req.Instruction
	now := e.ledger.Now()
	if err := ledger.CheckText(ins); err != nil {
		code := ledger.CodeOf(err)
		e.logger.Info("transition refused",
			"request_id", req.RequestID,
			"op", ins.Op(),
			"caller", req.Caller.Short(),
			"outcome", code,
		)
		return result{
			receipt: Receipt{RequestID: req.RequestID, Op: ins.Op(), At: now, Outcome: string(code)},
			err:     err,
		}
	}

	seq := e.seq.Next()
	args := ins.Args()

	id, err := ir.TransitionID(seq, ins.Op(), req.Caller, args, now)
	if err != nil {
		return result{err: fmt.Errorf("transition %d: %w", seq, err)}
	}

	tr := ir.Transition{
		ID:        id,
		RequestID: req.RequestID,
		Seq:       seq,
		Op:        ins.Op(),
		Caller:    req.Caller,
		Args:      args,
		At:        now,
	}

	var addr ir.Address
	applyErr := e.store.Update(ctx, func(tx store.Tx) error {
		a, err := e.ledger.Apply(ctx, tx, req.Caller, ins, now)
		if err != nil {
			return err
		}
		addr = a
		committed := tr
		committed.Outcome = ir.OutcomeOK
		committed.Result = a.String()
		return tx.Append(ctx, committed)
	})

	receipt := Receipt{
		Seq:          seq,
		RequestID:    req.RequestID,
		TransitionID: id,
		Op:           ins.Op(),
		At:           now,
	}

	switch {
	case applyErr == nil:
		receipt.Outcome = ir.OutcomeOK
		receipt.Result = addr
		e.logger.Info("transition committed",
			"seq", seq,
			"request_id", req.RequestID,
			"op", ins.Op(),
			"caller", req.Caller.Short(),
			"result", addr.Short(),
		)
		return result{receipt: receipt}

	case ledger.IsRejection(applyErr):
		code := ledger.CodeOf(applyErr)
		tr.Outcome = string(code)
		receipt.Outcome = string(code)
		if err := e.store.Update(ctx, func(tx store.Tx) error {
			return tx.Append(ctx, tr)
		}); err != nil {
			e.logger.Error("journal rejected transition failed",
				"seq", seq,
				"request_id", req.RequestID,
				"error", err,
			)
			return result{receipt: receipt, err: errors.Join(applyErr, fmt.Errorf("journal transition %d: %w", seq, err))}
		}
		e.logger.Info("transition rejected",
			"seq", seq,
			"request_id", req.RequestID,
			"op", ins.Op(),
			"caller", req.Caller.Short(),
			"outcome", code,
		)
		return result{receipt: receipt, err: applyErr}

	default:
		e.logger.Error("transition failed",
			"seq", seq,
			"request_id", req.RequestID,
			"op", ins.Op(),
			"error", applyErr,
		)
		return result{err: fmt.Errorf("transition %d: %w", seq, applyErr)}
	}
}
