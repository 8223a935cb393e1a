package harness

import "github.com/roach88/quorum/internal/ir"

// TraceEvent is one journal entry rendered for assertions and golden files.
// Addresses the scenario referred to are shown as their "@" labels.
type TraceEvent struct {
	Seq       int64       `json:"seq"`
	RequestID string      `json:"request_id"`
	Op        string      `json:"op"`
	Caller    string      `json:"caller"`
	Args      ir.IRObject `json:"args"`
	At        int64       `json:"at"`
	Outcome   string      `json:"outcome"`
	Result    string      `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step's outcome and every assertion matched.
	Pass bool `json:"pass"`

	// Trace contains every journaled transition in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
