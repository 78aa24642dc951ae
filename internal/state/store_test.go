package state

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/continual-learning/internal/ir"
)

func setupTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(PathFor(t.TempDir()), nil)
}

func TestLoadMissingFileReturnsFresh(t *testing.T) {
	s := setupTestStore(t)
	st := s.Load(context.Background())
	assert.True(t, st.Equal(ir.NewEngineState()))
	assert.False(t, s.Exists())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	want := ir.EngineState{
		Version:                   ir.StateVersion,
		LastRunAtMs:               1_700_000_000_000,
		TurnsSinceLastRun:         7,
		LastTranscriptMtimeMs:     ir.Int64Ptr(1_699_999_999_000),
		LastProcessedGenerationID: ir.StringPtr("gen-42"),
		TrialStartedAtMs:          ir.Int64Ptr(1_699_000_000_000),
	}
	require.NoError(t, s.Save(ctx, want))

	got := s.Load(ctx)
	assert.True(t, want.Equal(got), "got %+v", got)
}

func TestSaveLoadRoundTripKeepsAbsentValuesAbsent(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	st := ir.NewEngineState()
	st.TurnsSinceLastRun = 2
	require.NoError(t, s.Save(ctx, st))

	got := s.Load(ctx)
	assert.Nil(t, got.LastTranscriptMtimeMs)
	assert.Nil(t, got.LastProcessedGenerationID)
	assert.Nil(t, got.TrialStartedAtMs)
	assert.Equal(t, 2, got.TurnsSinceLastRun)
}

func TestSaveCreatesDirectoryAndFormat(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(PathFor(dir), nil)
	require.NoError(t, s.Save(context.Background(), ir.NewEngineState()))

	info, err := os.Stat(filepath.Join(dir, StateDir))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	fileInfo, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, FileMode, fileInfo.Mode().Perm())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, `{
  "version": 1,
  "lastRunAtMs": 0,
  "turnsSinceLastRun": 0,
  "lastTranscriptMtimeMs": null,
  "lastProcessedGenerationId": null,
  "trialStartedAtMs": null
}
`, string(data))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, ir.NewEngineState()))
	require.NoError(t, s.Save(ctx, ir.NewEngineState()))

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StateFileName, entries[0].Name())
}

func TestSaveFailsWhenDirectoryIsAFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, ".cursor")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := NewFileStore(PathFor(dir), nil)
	err := s.Save(context.Background(), ir.NewEngineState())
	assert.Error(t, err)
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	s := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Save(ctx, ir.NewEngineState())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, s.Exists())
}

func TestLoadCorruptFileReturnsFresh(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "  \n"},
		{"garbage", "not json"},
		{"truncated", `{"version": 1, "lastRunAtMs": 5`},
		{"array", `[1,2,3]`},
		{"wrong version", `{"version": 2, "turnsSinceLastRun": 4}`},
		{"missing version", `{"turnsSinceLastRun": 4}`},
		{"string version", `{"version": "1", "turnsSinceLastRun": 4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), DirMode))
			require.NoError(t, os.WriteFile(s.Path(), []byte(tt.content), FileMode))

			st := s.Load(context.Background())
			assert.True(t, st.Equal(ir.NewEngineState()), "got %+v", st)
		})
	}
}

func TestLoadLogsStateCorruptCode(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{"discarded record", "not json", "state file discarded"},
		{"field fallback", `{"version": 1, "turnsSinceLastRun": "many"}`, "state fields reset to defaults"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			s := NewFileStore(PathFor(t.TempDir()), slog.New(slog.NewTextHandler(&logs, nil)))
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), DirMode))
			require.NoError(t, os.WriteFile(s.Path(), []byte(tt.content), FileMode))

			s.Load(context.Background())
			assert.Contains(t, logs.String(), tt.msg)
			assert.Contains(t, logs.String(), "code=STATE_CORRUPT")
		})
	}
}

func TestLoadMissingFileLogsNothing(t *testing.T) {
	var logs bytes.Buffer
	s := NewFileStore(PathFor(t.TempDir()), slog.New(slog.NewTextHandler(&logs, nil)))

	s.Load(context.Background())
	assert.Empty(t, logs.String())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	assert.True(t, m.Load(ctx).Equal(ir.NewEngineState()))
	assert.Nil(t, m.Raw())

	st := ir.NewEngineState()
	st.LastProcessedGenerationID = ir.StringPtr("g1")
	require.NoError(t, m.Save(ctx, st))
	assert.Equal(t, 1, m.Saves())
	assert.True(t, m.Load(ctx).Equal(st))

	boom := errors.New("disk full")
	m.FailSaves(boom)
	assert.ErrorIs(t, m.Save(ctx, ir.NewEngineState()), boom)
	assert.Equal(t, 1, m.Saves())
	assert.True(t, m.Load(ctx).Equal(st), "failed save must not change the record")

	m.FailSaves(nil)
	require.NoError(t, m.Save(ctx, ir.NewEngineState()))
	assert.Equal(t, 2, m.Saves())
}

func TestNewMemoryStoreWith(t *testing.T) {
	st := ir.NewEngineState()
	st.TurnsSinceLastRun = 9
	m := NewMemoryStoreWith(st)
	assert.Equal(t, 9, m.Load(context.Background()).TurnsSinceLastRun)
	assert.Equal(t, 0, m.Saves())
}
