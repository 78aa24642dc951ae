// Package policy selects the thresholds in force for one invocation.
//
// Thresholds come from the normal policy unless an opted-in trial window is
// active. The window opens on the first countable turn after trial mode is
// turned on and never reopens once it has expired.
package policy

import (
	"fmt"

	"github.com/roach88/continual-learning/internal/ir"
)

// Defaults for the normal and trial thresholds.
const (
	DefaultMinTurns             = 10
	DefaultMinMinutes           = 120
	DefaultTrialMinTurns        = 3
	DefaultTrialMinMinutes      = 15
	DefaultTrialDurationMinutes = 24 * 60
)

const msPerMinute = 60_000

// Policy holds the configured thresholds. The zero value is not useful; use
// Default or fill every field.
type Policy struct {
	TrialEnabled         bool
	TrialDurationMinutes int
	TrialMinTurns        int
	TrialMinMinutes      int
	NormalMinTurns       int
	NormalMinMinutes     int
}

// Default returns the built-in policy with trial mode off.
func Default() Policy {
	return Policy{
		TrialDurationMinutes: DefaultTrialDurationMinutes,
		TrialMinTurns:        DefaultTrialMinTurns,
		TrialMinMinutes:      DefaultTrialMinMinutes,
		NormalMinTurns:       DefaultMinTurns,
		NormalMinMinutes:     DefaultMinMinutes,
	}
}

// Normal returns the thresholds used outside the trial window.
func (p Policy) Normal() ir.ThresholdSet {
	return ir.ThresholdSet{MinTurns: p.NormalMinTurns, MinMinutes: p.NormalMinMinutes}
}

// Trial returns the thresholds used inside the trial window.
func (p Policy) Trial() ir.ThresholdSet {
	return ir.ThresholdSet{MinTurns: p.TrialMinTurns, MinMinutes: p.TrialMinMinutes}
}

// PhaseKind tags a TrialPhase.
type PhaseKind int

const (
	PhaseDisabled PhaseKind = iota
	PhaseNotStarted
	PhaseActive
	PhaseExpired
)

// String returns the snake_case name used in logs, traces and the journal.
func (k PhaseKind) String() string {
	switch k {
	case PhaseDisabled:
		return "disabled"
	case PhaseNotStarted:
		return "not_started"
	case PhaseActive:
		return "active"
	case PhaseExpired:
		return "expired"
	default:
		return fmt.Sprintf("PhaseKind(%d)", int(k))
	}
}

// TrialPhase is the trial window status at one instant. At is the window end
// for PhaseActive and the expiry instant for PhaseExpired, and zero otherwise.
type TrialPhase struct {
	Kind PhaseKind
	At   int64
}

// String returns the kind name.
func (tp TrialPhase) String() string {
	return tp.Kind.String()
}

// Active reports whether trial thresholds apply.
func (tp TrialPhase) Active() bool {
	return tp.Kind == PhaseActive
}

// Phase derives the trial phase from the stored record. It has no side
// effects.
func (p Policy) Phase(st ir.EngineState, nowMs int64) TrialPhase {
	if !p.TrialEnabled {
		return TrialPhase{Kind: PhaseDisabled}
	}
	if st.TrialStartedAtMs == nil {
		return TrialPhase{Kind: PhaseNotStarted}
	}
	end := *st.TrialStartedAtMs + int64(p.TrialDurationMinutes)*msPerMinute
	if nowMs < end {
		return TrialPhase{Kind: PhaseActive, At: end}
	}
	return TrialPhase{Kind: PhaseExpired, At: end}
}

// Thresholds returns the thresholds in force for a phase.
func (p Policy) Thresholds(tp TrialPhase) ir.ThresholdSet {
	if tp.Active() {
		return p.Trial()
	}
	return p.Normal()
}

// Apply stamps the trial start on the first countable turn after trial mode
// is enabled, then returns the thresholds and phase that hold for this
// invocation. The stamp is the only mutation and is never overwritten.
func (p Policy) Apply(st *ir.EngineState, countedTurn bool, nowMs int64) (ir.ThresholdSet, TrialPhase) {
	if p.TrialEnabled && countedTurn && st.TrialStartedAtMs == nil {
		st.TrialStartedAtMs = ir.Int64Ptr(nowMs)
	}
	phase := p.Phase(*st, nowMs)
	return p.Thresholds(phase), phase
}
