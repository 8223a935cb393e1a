package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/quorum/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toIR converts a TraceSnapshot to an IRObject for canonical JSON.
// Transition IDs are left out; they hash caller addresses and would make
// every golden file unreadable.
func (s *TraceSnapshot) toIR() ir.IRObject {
	trace := make(ir.IRArray, len(s.Trace))
	for i, ev := range s.Trace {
		obj := ir.IRObject{
			"seq":        ir.IRInt(ev.Seq),
			"request_id": ir.IRString(ev.RequestID),
			"op":         ir.IRString(ev.Op),
			"caller":     ir.IRString(ev.Caller),
			"args":       ev.Args,
			"at":         ir.IRInt(ev.At),
			"outcome":    ir.IRString(ev.Outcome),
		}
		if ev.Result != "" {
			obj["result"] = ir.IRString(ev.Result)
		}
		trace[i] = obj
	}
	return ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"trace":         trace,
	}
}

// Canonical returns the snapshot as canonical JSON.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toIR())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}
	traceJSON, err := snapshot.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
