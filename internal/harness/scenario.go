package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/ledger"
)

// DefaultStart is the wall clock a scenario starts at when it sets none.
const DefaultStart = int64(1_700_000_000)

// Scenario is a sequence of transitions with expected outcomes and
// final-state assertions.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the wall clock (Unix seconds) at the first step.
	Start int64 `yaml:"start,omitempty"`

	// ApprovalPolicy is "guarded" (default) or "legacy".
	ApprovalPolicy string `yaml:"approval_policy,omitempty"`

	// Flow is submitted to the sequencer in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final journal and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one flow entry: an optional clock advance followed by an
// optional transition.
type Step struct {
	// Advance moves the clock forward before the transition (Go duration).
	Advance string `yaml:"advance,omitempty"`

	// As names the caller; it resolves to @identity:<as>.
	As string `yaml:"as,omitempty"`

	// Op is the transition name (e.g. "cast_vote").
	Op string `yaml:"op,omitempty"`

	// Args are the transition arguments. "@" references are resolved.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect is the expected outcome: "OK" (default) or a rejection code.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates the journal or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Op is the transition name (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// As restricts trace_contains to one caller.
	As string `yaml:"as,omitempty"`

	// Outcome restricts trace_contains and trace_count to one outcome.
	Outcome string `yaml:"outcome,omitempty"`

	// Ops is the expected order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of matches (trace_count).
	Count int `yaml:"count,omitempty"`

	// Ref names a record (final_state, absent).
	Ref string `yaml:"ref,omitempty"`

	// Expect contains expected record fields (final_state).
	// Subset match: only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertAbsent        = "absent"
	AssertReplay        = "replay"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if scenario.Start == 0 {
		scenario.Start = DefaultStart
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := ledger.ParseApprovalPolicy(s.ApprovalPolicy); err != nil {
		return err
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if step.Op == "" && step.Advance == "" {
			return fmt.Errorf("flow[%d]: op or advance is required", i)
		}
		if step.Advance != "" {
			d, err := time.ParseDuration(step.Advance)
			if err != nil {
				return fmt.Errorf("flow[%d]: advance: %w", i, err)
			}
			if d < 0 {
				return fmt.Errorf("flow[%d]: advance must not be negative", i)
			}
		}
		if step.Op == "" {
			continue
		}
		if !ir.Op(step.Op).Valid() {
			return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
		}
		if step.As == "" {
			return fmt.Errorf("flow[%d]: as is required", i)
		}
		if step.Args == nil {
			return fmt.Errorf("flow[%d]: args is required (use empty map if no args)", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertAbsent:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for absent", index)
		}
	case AssertReplay:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
