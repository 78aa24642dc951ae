package journal

import (
	"context"
	"database/sql"
	"fmt"
)

// Summary aggregates the whole journal.
type Summary struct {
	Total         int            `json:"total"`
	Fired         int            `json:"fired"`
	LastFiredAtMs *int64         `json:"last_fired_at_ms,omitempty"`
	ByReason      map[string]int `json:"by_reason"`
}

// Recent returns up to limit rows, newest first.
// Returns an empty slice (not nil) when the journal is empty.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, id, run_id, decided_at_ms, conversation_id, generation_id, status,
		       loop_count, counted_turn, fired, reason, trial_phase, min_turns, min_minutes,
		       turns_since_last_run, transcript_mtime_ms
		FROM decisions
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return entries, nil
}

// Summary returns totals, the fired count, the last fire time and a count of
// rows per reason.
func (j *Journal) Summary(ctx context.Context) (Summary, error) {
	sum := Summary{ByReason: map[string]int{}}

	var lastFired sql.NullInt64
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(fired), 0),
		       MAX(CASE WHEN fired = 1 THEN decided_at_ms END)
		FROM decisions
	`).Scan(&sum.Total, &sum.Fired, &lastFired)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize decisions: %w", err)
	}
	if lastFired.Valid {
		v := lastFired.Int64
		sum.LastFiredAtMs = &v
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT reason, COUNT(*) FROM decisions GROUP BY reason ORDER BY reason
	`)
	if err != nil {
		return Summary{}, fmt.Errorf("query reasons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return Summary{}, fmt.Errorf("scan reason: %w", err)
		}
		sum.ByReason[reason] = n
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate reasons: %w", err)
	}
	return sum, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e         Entry
		loopCount sql.NullInt64
		mtime     sql.NullInt64
		counted   int
		fired     int
	)
	err := rows.Scan(
		&e.Seq, &e.ID, &e.RunID, &e.DecidedAtMs, &e.ConversationID, &e.GenerationID, &e.Status,
		&loopCount, &counted, &fired, &e.Reason, &e.TrialPhase, &e.MinTurns, &e.MinMinutes,
		&e.TurnsSinceLastRun, &mtime,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("scan decision: %w", err)
	}
	e.CountedTurn = counted == 1
	e.Fired = fired == 1
	if loopCount.Valid {
		n := int(loopCount.Int64)
		e.LoopCount = &n
	}
	if mtime.Valid {
		v := mtime.Int64
		e.TranscriptMtimeMs = &v
	}
	return e, nil
}
