package engine

// Reason names why an evaluation did or did not fire. When several
// conditions fail, the first in evaluation order is reported.
type Reason string

const (
	ReasonDuplicateGeneration Reason = "duplicate_generation"
	ReasonNotCountedTurn      Reason = "not_counted_turn"
	ReasonBelowMinTurns       Reason = "below_min_turns"
	ReasonTooSoon             Reason = "too_soon"
	ReasonTranscriptStale     Reason = "transcript_stale"
	ReasonFired               Reason = "fired"
)

// Reasons lists every reason in evaluation order.
var Reasons = []Reason{
	ReasonDuplicateGeneration,
	ReasonNotCountedTurn,
	ReasonBelowMinTurns,
	ReasonTooSoon,
	ReasonTranscriptStale,
	ReasonFired,
}

// String returns the reason as written to logs and the journal.
func (r Reason) String() string {
	return string(r)
}
