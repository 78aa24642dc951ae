package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/continual-learning/internal/engine"
	"github.com/roach88/continual-learning/internal/policy"
)

func mapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, ConfigFile)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := Defaults(dir)

	assert.Equal(t, dir, cfg.WorkDir)
	assert.Equal(t, policy.Default(), cfg.Policy)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.False(t, cfg.Journal)
	assert.False(t, cfg.FileLoaded)
	assert.Equal(t, filepath.Join(dir, ".cursor/hooks/state/continual-learning.json"), cfg.StatePath())
	assert.Equal(t, filepath.Join(dir, ".cursor/hooks/state/continual-learning-journal.db"), cfg.JournalPath())
	assert.Contains(t, cfg.FollowUpMessage, "`"+filepath.Join(dir, ".cursor/hooks/state/continual-learning-index.json")+"`")
	assert.Contains(t, cfg.FollowUpMessage, "respond exactly: No high-signal memory updates.")
}

func TestDefaults_RelativeWorkDirBecomesAbsolute(t *testing.T) {
	cfg := Defaults(".")
	assert.True(t, filepath.IsAbs(cfg.WorkDir))
}

func TestLoad_NoFileNoEnv(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, mapLookup(nil), false)
	require.NoError(t, err)
	assert.Equal(t, Defaults(dir), cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, mapLookup(map[string]string{
		"CONTINUAL_LEARNING_TRIAL_MODE":             " Yes ",
		"CONTINUAL_LEARNING_TRIAL_DURATION_MINUTES": "60",
		"CONTINUAL_LEARNING_TRIAL_MIN_TURNS":        "2",
		"CONTINUAL_LEARNING_TRIAL_MIN_MINUTES":      "5",
		"CONTINUAL_LEARNING_MIN_TURNS":              "20",
		"CONTINUAL_LEARNING_MIN_MINUTES":            "240",
		"CONTINUAL_LEARNING_LOG_LEVEL":              "debug",
		"CONTINUAL_LEARNING_JOURNAL":                "on",
	}), false)
	require.NoError(t, err)

	assert.Equal(t, policy.Policy{
		TrialEnabled:         true,
		TrialDurationMinutes: 60,
		TrialMinTurns:        2,
		TrialMinMinutes:      5,
		NormalMinTurns:       20,
		NormalMinMinutes:     240,
	}, cfg.Policy)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.Journal)
}

func TestLoad_LegacyAlias(t *testing.T) {
	cfg, err := Load(t.TempDir(), mapLookup(map[string]string{
		"CONTINUOUS_LEARNING_MIN_TURNS":  "4",
		"CONTINUOUS_LEARNING_TRIAL_MODE": "1",
	}), false)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Policy.NormalMinTurns)
	assert.True(t, cfg.Policy.TrialEnabled)
}

func TestLoad_PrimaryWinsOverLegacy(t *testing.T) {
	cfg, err := Load(t.TempDir(), mapLookup(map[string]string{
		"CONTINUAL_LEARNING_MIN_TURNS":  "7",
		"CONTINUOUS_LEARNING_MIN_TURNS": "4",
	}), false)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Policy.NormalMinTurns)
}

func TestLoad_EmptyPrimaryShadowsLegacy(t *testing.T) {
	cfg, err := Load(t.TempDir(), mapLookup(map[string]string{
		"CONTINUAL_LEARNING_MIN_TURNS":  "",
		"CONTINUOUS_LEARNING_MIN_TURNS": "4",
	}), false)
	require.NoError(t, err)
	assert.Equal(t, policy.DefaultMinTurns, cfg.Policy.NormalMinTurns)
}

func TestLoad_InvalidIntsKeepDefaults(t *testing.T) {
	for _, v := range []string{"0", "-3", "abc", "1.5", "", "12abc"} {
		t.Run(v, func(t *testing.T) {
			cfg, err := Load(t.TempDir(), mapLookup(map[string]string{
				"CONTINUAL_LEARNING_MIN_MINUTES": v,
			}), false)
			require.NoError(t, err)
			assert.Equal(t, policy.DefaultMinMinutes, cfg.Policy.NormalMinMinutes)
		})
	}
}

func TestLoad_TrialFlag(t *testing.T) {
	cfg, err := Load(t.TempDir(), mapLookup(map[string]string{
		"CONTINUAL_LEARNING_TRIAL_MODE": "false",
	}), true)
	require.NoError(t, err)
	assert.True(t, cfg.Policy.TrialEnabled, "flag has highest precedence")
}

func TestLoad_InvalidLogLevelKeepsDefault(t *testing.T) {
	cfg, err := Load(t.TempDir(), mapLookup(map[string]string{
		"CONTINUAL_LEARNING_LOG_LEVEL": "loud",
	}), false)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
trial_mode:        true
trial_min_turns:   2
min_turns:         12
min_minutes:       90
log_level:         "info"
journal:           true
follow_up_message: "consolidate using ${INDEX}"
`)

	cfg, err := Load(dir, mapLookup(nil), false)
	require.NoError(t, err)
	assert.True(t, cfg.FileLoaded)
	assert.True(t, cfg.Policy.TrialEnabled)
	assert.Equal(t, 2, cfg.Policy.TrialMinTurns)
	assert.Equal(t, policy.DefaultTrialMinMinutes, cfg.Policy.TrialMinMinutes)
	assert.Equal(t, 12, cfg.Policy.NormalMinTurns)
	assert.Equal(t, 90, cfg.Policy.NormalMinMinutes)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, cfg.Journal)
	assert.Equal(t, "consolidate using "+cfg.IndexPath(), cfg.FollowUpMessage)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "min_turns: 12\ntrial_mode: true\n")

	cfg, err := Load(dir, mapLookup(map[string]string{
		"CONTINUAL_LEARNING_MIN_TURNS":  "3",
		"CONTINUAL_LEARNING_TRIAL_MODE": "no",
	}), false)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Policy.NormalMinTurns)
	assert.False(t, cfg.Policy.TrialEnabled)
}

func TestLoad_EmptyBoolEnvKeepsFileValue(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "trial_mode: true\n")

	cfg, err := Load(dir, mapLookup(map[string]string{
		"CONTINUAL_LEARNING_TRIAL_MODE": "",
	}), false)
	require.NoError(t, err)
	assert.True(t, cfg.Policy.TrialEnabled)
}

func TestLoad_InvalidFileIgnored(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax error", "min_turns: {"},
		{"unknown field", "max_turns: 3\n"},
		{"non-positive int", "min_turns: 0\n"},
		{"wrong type", "min_minutes: \"soon\"\n"},
		{"bad log level", "log_level: \"verbose\"\n"},
		{"empty follow-up", "follow_up_message: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfigFile(t, dir, "trial_mode: true\n"+tt.content)

			cfg, err := Load(dir, mapLookup(map[string]string{
				"CONTINUAL_LEARNING_MIN_TURNS": "5",
			}), false)
			require.Error(t, err)
			assert.True(t, engine.IsConfigError(err))
			assert.False(t, cfg.FileLoaded)
			assert.False(t, cfg.Policy.TrialEnabled, "whole file is ignored")
			assert.Equal(t, 5, cfg.Policy.NormalMinTurns, "env still applies")
		})
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "On"} {
		assert.True(t, ParseBool(v), v)
	}
	for _, v := range []string{"", "0", "false", "no", "off", "y", "enabled"} {
		assert.False(t, ParseBool(v), v)
	}
}

func TestParsePositiveInt(t *testing.T) {
	n, ok := ParsePositiveInt(" 42 ")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	for _, v := range []string{"", "0", "-1", "x", "4.2"} {
		_, ok := ParsePositiveInt(v)
		assert.False(t, ok, v)
	}
}

func TestOSLookup(t *testing.T) {
	t.Setenv("CONTINUAL_LEARNING_MIN_TURNS", "6")
	cfg, err := Load(t.TempDir(), OSLookup, false)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Policy.NormalMinTurns)
}

func TestEnvNames(t *testing.T) {
	assert.Equal(t, "CONTINUAL_LEARNING_TRIAL_MODE", EnvName(EnvTrialMode))
	assert.Equal(t, "CONTINUOUS_LEARNING_TRIAL_MODE", LegacyEnvName(EnvTrialMode))
}
