package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/quorum/internal/engine"
	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/ledger"
	"github.com/roach88/quorum/internal/store"
	"github.com/roach88/quorum/internal/testutil"
)

// Harness is the scenario execution state.
type Harness struct {
	store  *store.Store
	ledger *ledger.Ledger
	engine *engine.Engine
	clock  *testutil.ManualClock
	refs   *refs
	policy ledger.ApprovalPolicy
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Create fresh in-memory database, ledger, and sequencer
//  2. Submit flow steps in order, comparing each outcome with its expect
//  3. Render the journal as the trace
//  4. Evaluate assertions against the trace and final state
//
// A returned error means the scenario could not be executed (bad
// references, store failure); rule outcomes that differ from expectations
// are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	policy, err := ledger.ParseApprovalPolicy(scenario.ApprovalPolicy)
	if err != nil {
		return nil, err
	}

	start := scenario.Start
	if start == 0 {
		start = DefaultStart
	}
	clock := testutil.NewManualClock(start)

	// Suppress logs in scenario runs
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	l := ledger.New(st,
		ledger.WithClock(clock),
		ledger.WithApprovalPolicy(policy),
		ledger.WithLogger(logger),
	)
	eng := engine.New(st, l,
		engine.WithIDGenerator(testutil.NewSequentialIDs(scenario.Name)),
		engine.WithLogger(logger),
	)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- eng.Run(runCtx) }()
	defer func() {
		eng.Stop()
		cancel()
		<-done
	}()

	h := &Harness{
		store:  st,
		ledger: l,
		engine: eng,
		clock:  clock,
		refs:   newRefs(clock.Unix),
		policy: policy,
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	trace, err := h.trace(ctx)
	if err != nil {
		return nil, err
	}
	result.Trace = trace

	actx := &AssertionContext{Ctx: ctx, Store: st, Refs: h.refs, Policy: policy}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeFlow submits every step in order.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		if step.Advance != "" {
			d, err := time.ParseDuration(step.Advance)
			if err != nil {
				return fmt.Errorf("flow[%d]: advance: %w", i, err)
			}
			h.clock.Advance(d)
		}
		if step.Op == "" {
			continue
		}

		caller := h.refs.identity(step.As)
		args, err := h.refs.toObject(step.Args)
		if err != nil {
			return fmt.Errorf("flow[%d]: args: %w", i, err)
		}
		ins, err := ledger.DecodeInstruction(ir.Op(step.Op), args)
		if err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}

		receipt, err := h.engine.Submit(ctx, engine.Request{Caller: caller, Instruction: ins})
		if err != nil && !ledger.IsRejection(err) {
			return fmt.Errorf("flow[%d] %s: %w", i, step.Op, err)
		}

		want := step.Expect
		if want == "" {
			want = ir.OutcomeOK
		}
		if receipt.Outcome != want {
			msg := fmt.Sprintf("flow[%d] %s as %s: expected %s, got %s", i, step.Op, step.As, want, receipt.Outcome)
			if err != nil {
				msg += fmt.Sprintf(" (%v)", err)
			}
			result.AddError(msg)
		}

		if receipt.Committed() {
			h.labelResult(ctx, step, ins, receipt.Result)
		}
	}
	return nil
}

// labelResult registers a label for the record a committed step produced.
func (h *Harness) labelResult(ctx context.Context, step Step, ins ledger.Instruction, result ir.Address) {
	var label string
	switch i := ins.(type) {
	case ledger.InitializeCommunity:
		label = "@community:" + i.Name
	case ledger.JoinCommunity:
		if name, ok := h.trimLabel(i.Community, "@community:"); ok {
			label = "@membership:" + name + ":" + step.As
		}
	case ledger.ApproveMembership:
		name, ok := h.trimLabel(i.Community, "@community:")
		member, known := h.refs.labels[i.Member]
		if ok && known && !strings.HasPrefix(member, "@") {
			label = "@membership:" + name + ":" + member
		}
	case ledger.CreatePoll:
		name, ok := h.trimLabel(i.Community, "@community:")
		if !ok {
			break
		}
		c, err := h.ledger.Community(ctx, i.Community)
		if err != nil || c.TotalPolls == 0 {
			break
		}
		label = fmt.Sprintf("@poll:%s:%d", name, c.TotalPolls-1)
	case ledger.CastVote:
		if poll, ok := h.trimLabel(i.Poll, "@poll:"); ok {
			label = "@vote:" + poll + ":" + step.As
		}
	}
	if label != "" {
		h.refs.labels[result] = label
	}
}

func (h *Harness) trimLabel(addr ir.Address, prefix string) (string, bool) {
	l, ok := h.refs.labels[addr]
	if !ok || !strings.HasPrefix(l, prefix) {
		return "", false
	}
	return strings.TrimPrefix(l, prefix), true
}

// trace renders the journal with labels in place of known addresses.
func (h *Harness) trace(ctx context.Context) ([]TraceEvent, error) {
	journal, err := h.store.ReadJournal(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	events := make([]TraceEvent, 0, len(journal))
	for _, tr := range journal {
		args, ok := h.refs.relabel(tr.Args).(ir.IRObject)
		if !ok {
			return nil, errors.New("relabel returned a non-object")
		}
		ev := TraceEvent{
			Seq:       tr.Seq,
			RequestID: tr.RequestID,
			Op:        string(tr.Op),
			Caller:    h.refs.label(tr.Caller),
			Args:      args,
			At:        tr.At,
			Outcome:   tr.Outcome,
		}
		if tr.Result != "" {
			addr, err := ir.ParseAddress(tr.Result)
			if err != nil {
				return nil, fmt.Errorf("journal seq %d: %w", tr.Seq, err)
			}
			ev.Result = h.refs.label(addr)
		}
		events = append(events, ev)
	}
	return events, nil
}
