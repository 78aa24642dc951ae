package journal

import (
	"context"
	"fmt"
)

// Record inserts a journal row.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
// Other constraint violations (e.g., NOT NULL) will still return errors.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO decisions
		(id, run_id, decided_at_ms, conversation_id, generation_id, status, loop_count,
		 counted_turn, fired, reason, trial_phase, min_turns, min_minutes,
		 turns_since_last_run, transcript_mtime_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.RunID,
		e.DecidedAtMs,
		e.ConversationID,
		e.GenerationID,
		e.Status,
		nullableInt(e.LoopCount),
		boolToInt(e.CountedTurn),
		boolToInt(e.Fired),
		e.Reason,
		e.TrialPhase,
		e.MinTurns,
		e.MinMinutes,
		e.TurnsSinceLastRun,
		nullableInt64(e.TranscriptMtimeMs),
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// Prune deletes all but the newest keep rows and returns how many were
// removed. keep <= 0 uses DefaultKeep.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		keep = DefaultKeep
	}
	res, err := j.db.ExecContext(ctx, `
		DELETE FROM decisions
		WHERE seq NOT IN (
			SELECT seq FROM decisions ORDER BY seq DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune decisions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune decisions: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
