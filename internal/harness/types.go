package harness

import (
	"github.com/roach88/continual-learning/internal/ir"
	"github.com/roach88/continual-learning/internal/journal"
)

// TraceEvent records one step as observed from outside the hook plus the
// evaluation outcome that produced it.
type TraceEvent struct {
	Step  int    `json:"step"`
	RunID string `json:"run_id"`

	// Output is the stdout line without its trailing newline.
	Output string `json:"output"`

	GenerationID string `json:"generation_id,omitempty"`

	// Error is the hook error code, empty when the invocation succeeded.
	Error string `json:"error,omitempty"`

	// The remaining fields are zero when evaluation never ran.
	Evaluated         bool   `json:"evaluated"`
	Fired             bool   `json:"fired"`
	Reason            string `json:"reason,omitempty"`
	TrialPhase        string `json:"trial_phase,omitempty"`
	MinTurns          int    `json:"min_turns,omitempty"`
	MinMinutes        int    `json:"min_minutes,omitempty"`
	TurnsSinceLastRun int    `json:"turns_since_last_run"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses match.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the record left in the store after the last step.
	State ir.EngineState `json:"state"`

	// Journal summarizes the decision journal when the scenario enabled it.
	Journal *journal.Summary `json:"journal,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// FiredCount returns how many steps emitted a follow-up message.
func (r *Result) FiredCount() int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Fired {
			n++
		}
	}
	return n
}
