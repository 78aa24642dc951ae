package engine

import (
	"github.com/roach88/continual-learning/internal/ir"
	"github.com/roach88/continual-learning/internal/policy"
)

const msPerMinute = 60_000

// Outcome is the result of evaluating one stop event.
type Outcome struct {
	// Fired is true when Decision carries a follow-up message.
	Fired    bool
	Decision ir.Decision

	// Next is the record to persist. It equals the input when Persist is
	// false.
	Next    ir.EngineState
	Persist bool

	Reason      Reason
	Thresholds  ir.ThresholdSet
	Phase       policy.TrialPhase
	CountedTurn bool

	// MinutesSinceLastRun is nil when the engine has never fired.
	MinutesSinceLastRun *int64

	// TranscriptMtimeMs is nil when the transcript could not be probed.
	TranscriptMtimeMs *int64
}

// Evaluator applies the trigger rules. It holds no per-invocation state and
// may be reused.
type Evaluator struct {
	policy      policy.Policy
	transcripts TranscriptSource
	followUp    string
}

// NewEvaluator creates an evaluator. followUp is the message attached to a
// firing decision and must not be empty.
func NewEvaluator(p policy.Policy, transcripts TranscriptSource, followUp string) *Evaluator {
	if transcripts == nil {
		transcripts = FileTranscripts{}
	}
	return &Evaluator{policy: p, transcripts: transcripts, followUp: followUp}
}

// Policy returns the policy the evaluator was built with.
func (e *Evaluator) Policy() policy.Policy {
	return e.policy
}

// Evaluate runs the trigger rules for ev against st at nowMs. st is not
// modified.
func (e *Evaluator) Evaluate(ev ir.StopEvent, st ir.EngineState, nowMs int64) Outcome {
	if ev.HasGenerationID() && st.LastProcessedGenerationID != nil &&
		*st.LastProcessedGenerationID == ev.GenerationID {
		phase := e.policy.Phase(st, nowMs)
		return Outcome{
			Next:       st.Clone(),
			Reason:     ReasonDuplicateGeneration,
			Thresholds: e.policy.Thresholds(phase),
			Phase:      phase,
		}
	}

	next := st.Clone()
	next.LastProcessedGenerationID = nil
	if ev.HasGenerationID() {
		next.LastProcessedGenerationID = ir.StringPtr(ev.GenerationID)
	}

	counted := ev.CountsAsTurn()
	turns := next.TurnsSinceLastRun
	if counted {
		turns++
	}

	thresholds, phase := e.policy.Apply(&next, counted, nowMs)

	var minutes *int64
	if next.HasRun() {
		minutes = ir.Int64Ptr(floorDiv(nowMs-next.LastRunAtMs, msPerMinute))
	}

	var mtime *int64
	if ms, ok := e.transcripts.MtimeMs(ev.TranscriptPath); ok {
		mtime = ir.Int64Ptr(ms)
	}
	advanced := mtime != nil &&
		(next.LastTranscriptMtimeMs == nil || *mtime > *next.LastTranscriptMtimeMs)

	out := Outcome{
		Persist:             true,
		Thresholds:          thresholds,
		Phase:               phase,
		CountedTurn:         counted,
		MinutesSinceLastRun: minutes,
		TranscriptMtimeMs:   mtime,
	}

	switch {
	case !counted:
		out.Reason = ReasonNotCountedTurn
	case turns < thresholds.MinTurns:
		out.Reason = ReasonBelowMinTurns
	case minutes != nil && *minutes < int64(thresholds.MinMinutes):
		out.Reason = ReasonTooSoon
	case !advanced:
		out.Reason = ReasonTranscriptStale
	default:
		out.Reason = ReasonFired
	}

	if out.Reason == ReasonFired {
		next.TurnsSinceLastRun = 0
		next.LastRunAtMs = nowMs
		next.LastTranscriptMtimeMs = ir.Int64Ptr(*mtime)
		out.Fired = true
		out.Decision = ir.Decision{FollowUpMessage: e.followUp}
	} else {
		next.TurnsSinceLastRun = turns
	}

	out.Next = next
	return out
}

// floorDiv divides rounding toward negative infinity, so a clock that moved
// backwards yields a negative elapsed time rather than zero.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
