package journal

import (
	"path/filepath"
	"testing"
)

// createTestJournal opens a fresh journal in a temp directory.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

// createTestEntry creates a row with minimal required fields.
func createTestEntry(id string, decidedAtMs int64, fired bool, reason string) Entry {
	return Entry{
		ID:             id,
		RunID:          "run-" + id,
		DecidedAtMs:    decidedAtMs,
		ConversationID: "conv-1",
		GenerationID:   "gen-" + id,
		Status:         "completed",
		Fired:          fired,
		Reason:         reason,
		TrialPhase:     "disabled",
		MinTurns:       10,
		MinMinutes:     120,
	}
}
