package journal

import (
	"github.com/roach88/continual-learning/internal/engine"
	"github.com/roach88/continual-learning/internal/ir"
)

// Entry is one journal row.
type Entry struct {
	Seq               int64  `json:"seq"`
	ID                string `json:"id"`
	RunID             string `json:"run_id"`
	DecidedAtMs       int64  `json:"decided_at_ms"`
	ConversationID    string `json:"conversation_id"`
	GenerationID      string `json:"generation_id,omitempty"`
	Status            string `json:"status"`
	LoopCount         *int   `json:"loop_count,omitempty"`
	CountedTurn       bool   `json:"counted_turn"`
	Fired             bool   `json:"fired"`
	Reason            string `json:"reason"`
	TrialPhase        string `json:"trial_phase"`
	MinTurns          int    `json:"min_turns"`
	MinMinutes        int    `json:"min_minutes"`
	TurnsSinceLastRun int    `json:"turns_since_last_run"`
	TranscriptMtimeMs *int64 `json:"transcript_mtime_ms,omitempty"`
}

// NewEntry builds the row for one evaluated event. Seq is assigned by the
// database on insert.
func NewEntry(runID string, ev ir.StopEvent, out engine.Outcome, decidedAtMs int64) Entry {
	return Entry{
		ID:                ir.MustDecisionID(ev.ConversationID, ev.GenerationID, string(out.Reason), decidedAtMs),
		RunID:             runID,
		DecidedAtMs:       decidedAtMs,
		ConversationID:    ev.ConversationID,
		GenerationID:      ev.GenerationID,
		Status:            string(ev.Status),
		LoopCount:         ev.LoopCount,
		CountedTurn:       out.CountedTurn,
		Fired:             out.Fired,
		Reason:            string(out.Reason),
		TrialPhase:        out.Phase.String(),
		MinTurns:          out.Thresholds.MinTurns,
		MinMinutes:        out.Thresholds.MinMinutes,
		TurnsSinceLastRun: out.Next.TurnsSinceLastRun,
		TranscriptMtimeMs: out.TranscriptMtimeMs,
	}
}
