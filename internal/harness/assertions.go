package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/quorum/internal/engine"
	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/ledger"
	"github.com/roach88/quorum/internal/store"
)

// AssertionContext carries what state-based assertions need.
type AssertionContext struct {
	Ctx    context.Context
	Store  *store.Store
	Refs   *refs
	Policy ledger.ApprovalPolicy
}

// EvaluateAssertions runs every assertion and returns failure messages.
// An empty slice means all assertions passed.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d] %s: %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a.Ops)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertFinalState:
		return assertFinalState(actx, a)
	case AssertAbsent:
		return assertAbsent(actx, a.Ref)
	case AssertReplay:
		return assertReplay(actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// matches reports whether ev satisfies the op/caller/outcome filters of a.
func matches(ev TraceEvent, a Assertion) bool {
	if ev.Op != a.Op {
		return false
	}
	if a.As != "" && ev.Caller != a.As {
		return false
	}
	if a.Outcome != "" && ev.Outcome != a.Outcome {
		return false
	}
	return true
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matches(ev, a) {
			return nil
		}
	}
	return fmt.Errorf("no %s in trace%s", a.Op, filterSuffix(a))
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		if matches(ev, a) {
			n++
		}
	}
	if n != a.Count {
		return fmt.Errorf("expected %d %s%s, got %d", a.Count, a.Op, filterSuffix(a), n)
	}
	return nil
}

func filterSuffix(a Assertion) string {
	var parts []string
	if a.As != "" {
		parts = append(parts, "as "+a.As)
	}
	if a.Outcome != "" {
		parts = append(parts, "outcome "+a.Outcome)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// assertTraceOrder checks that ops appear in the trace in the given order.
// Other entries may be interleaved.
func assertTraceOrder(trace []TraceEvent, ops []string) error {
	next := 0
	for _, ev := range trace {
		if next < len(ops) && ev.Op == ops[next] {
			next++
		}
	}
	if next < len(ops) {
		return fmt.Errorf("op %q (position %d) not found in order", ops[next], next)
	}
	return nil
}

// loadRecord reads the record at ref as a generic object.
func loadRecord(actx *AssertionContext, ref string) (ir.IRObject, error) {
	addr, err := actx.Refs.address(ref)
	if err != nil {
		return nil, err
	}

	var obj ir.IRObject
	err = actx.Store.View(actx.Ctx, func(tx store.Tx) error {
		data, err := tx.Load(actx.Ctx, addr)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &obj)
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// assertFinalState compares the listed fields of a record. Address-valued
// expectations may use "@" references.
func assertFinalState(actx *AssertionContext, a Assertion) error {
	obj, err := loadRecord(actx, a.Ref)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Ref, err)
	}

	for _, field := range sortedFields(a.Expect) {
		want, err := actx.Refs.toIR(a.Expect[field])
		if err != nil {
			return fmt.Errorf("%s.%s: %w", a.Ref, field, err)
		}
		got, ok := obj[field]
		if !ok {
			return fmt.Errorf("%s: field %q missing", a.Ref, field)
		}
		if !reflect.DeepEqual(got, want) {
			return fmt.Errorf("%s.%s: expected %v, got %v",
				a.Ref, field, ir.ToAny(actx.Refs.relabel(want)), ir.ToAny(actx.Refs.relabel(got)))
		}
	}
	return nil
}

func sortedFields(m map[string]any) []string {
	obj := make(ir.IRObject, len(m))
	for k := range m {
		obj[k] = ir.IRBool(true)
	}
	return obj.SortedKeys()
}

func assertAbsent(actx *AssertionContext, ref string) error {
	_, err := loadRecord(actx, ref)
	if err == nil {
		return fmt.Errorf("%s exists", ref)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("%s: %w", ref, err)
}

// assertReplay re-applies the journal and requires identical outcomes and
// an identical state digest.
func assertReplay(actx *AssertionContext) error {
	res, err := engine.Replay(actx.Ctx, actx.Store, ledger.WithApprovalPolicy(actx.Policy))
	if err != nil {
		return err
	}
	if len(res.Mismatches) > 0 {
		m := res.Mismatches[0]
		return fmt.Errorf("%d mismatches; first at seq %d %s: want %s, got %s",
			len(res.Mismatches), m.Seq, m.Op, m.Want, m.Got)
	}
	if res.LiveDigest != res.ReplayDigest {
		return fmt.Errorf("state digest %s, replayed %s", res.LiveDigest, res.ReplayDigest)
	}
	return nil
}
