package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/continual-learning/internal/journal"
	"github.com/roach88/continual-learning/internal/state"
)

func TestJournal_Missing(t *testing.T) {
	e := newCLIEnv(t)

	code, out, stderr := e.run(t, "", "journal")
	assert.Equal(t, ExitCommandError, code)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "journal not found")
}

func TestJournal_InvalidLimit(t *testing.T) {
	e := newCLIEnv(t)

	code, _, stderr := e.run(t, "", "journal", "--limit", "0")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "--limit must be positive")
}

func TestJournal_Text(t *testing.T) {
	e := newCLIEnv(t)
	path := filepath.Join(e.workDir, state.StateDir, journal.FileName)
	jr, err := journal.Open(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, jr.Record(ctx, journal.Entry{
		ID: "a", RunID: "r1", DecidedAtMs: testNow.UnixMilli(), ConversationID: "c",
		GenerationID: "g1", Status: "completed", CountedTurn: true,
		Reason: "below_min_turns", TrialPhase: "disabled", MinTurns: 10, MinMinutes: 120,
		TurnsSinceLastRun: 1,
	}))
	require.NoError(t, jr.Record(ctx, journal.Entry{
		ID: "b", RunID: "r2", DecidedAtMs: testNow.UnixMilli() + 1, ConversationID: "c",
		GenerationID: "g2", Status: "completed", CountedTurn: true, Fired: true,
		Reason: "fired", TrialPhase: "disabled", MinTurns: 10, MinMinutes: 120,
	}))
	require.NoError(t, jr.Close())

	code, out, _ := e.run(t, "", "journal", "--limit", "1")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Evaluations: 2")
	assert.Contains(t, out, "Fired:       1")
	assert.Contains(t, out, "Last fired:  2026-03-01T12:00:00Z")
	assert.Contains(t, out, "below_min_turns")
	assert.Contains(t, out, "* 2026-03-01T12:00:00Z fired")
	assert.NotContains(t, out, "gen=g1", "limit 1 shows only the newest row")
}

func TestJournalView_EmptyRecent(t *testing.T) {
	v := JournalView{Path: "/j.db", Summary: journal.Summary{ByReason: map[string]int{}}}

	var buf bytes.Buffer
	require.NoError(t, v.WriteText(&buf))
	assert.Contains(t, buf.String(), "Last fired:  -")
	assert.NotContains(t, buf.String(), "Recent:")
}
