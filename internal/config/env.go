package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// OSLookup reads the process environment.
var OSLookup LookupFunc = os.LookupEnv

const (
	envPrefix       = "CONTINUAL_LEARNING_"
	legacyEnvPrefix = "CONTINUOUS_LEARNING_"
)

// Environment variable suffixes.
const (
	EnvTrialMode            = "TRIAL_MODE"
	EnvTrialDurationMinutes = "TRIAL_DURATION_MINUTES"
	EnvTrialMinTurns        = "TRIAL_MIN_TURNS"
	EnvTrialMinMinutes      = "TRIAL_MIN_MINUTES"
	EnvMinTurns             = "MIN_TURNS"
	EnvMinMinutes           = "MIN_MINUTES"
	EnvLogLevel             = "LOG_LEVEL"
	EnvJournal              = "JOURNAL"
)

// EnvName returns the primary variable name for a suffix.
func EnvName(suffix string) string {
	return envPrefix + suffix
}

// LegacyEnvName returns the legacy alias for a suffix.
func LegacyEnvName(suffix string) string {
	return legacyEnvPrefix + suffix
}

// readEnv returns the primary variable if it is set, even to the empty
// string, otherwise the legacy alias.
func readEnv(lookup LookupFunc, suffix string) (string, bool) {
	if v, ok := lookup(EnvName(suffix)); ok {
		return v, true
	}
	return lookup(LegacyEnvName(suffix))
}

func applyEnvOverrides(cfg *Config, lookup LookupFunc) {
	if lookup == nil {
		return
	}

	if v, ok := readEnv(lookup, EnvTrialMode); ok && v != "" {
		cfg.Policy.TrialEnabled = ParseBool(v)
	}
	if v, ok := readEnv(lookup, EnvJournal); ok && v != "" {
		cfg.Journal = ParseBool(v)
	}

	overrideInt(lookup, EnvTrialDurationMinutes, &cfg.Policy.TrialDurationMinutes)
	overrideInt(lookup, EnvTrialMinTurns, &cfg.Policy.TrialMinTurns)
	overrideInt(lookup, EnvTrialMinMinutes, &cfg.Policy.TrialMinMinutes)
	overrideInt(lookup, EnvMinTurns, &cfg.Policy.NormalMinTurns)
	overrideInt(lookup, EnvMinMinutes, &cfg.Policy.NormalMinMinutes)

	if v, ok := readEnv(lookup, EnvLogLevel); ok && v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(strings.TrimSpace(v))); err == nil {
			cfg.LogLevel = level
		}
	}
}

func overrideInt(lookup LookupFunc, suffix string, dst *int) {
	v, ok := readEnv(lookup, suffix)
	if !ok {
		return
	}
	if n, ok := ParsePositiveInt(v); ok {
		*dst = n
	}
}

// ParsePositiveInt parses a base-10 integer greater than zero. Leading and
// trailing spaces are ignored.
func ParsePositiveInt(v string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ParseBool reports whether v is one of 1, true, yes or on, ignoring case
// and surrounding space.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
