// Package config resolves the hook configuration.
//
// Values are layered, lowest precedence first:
//
//  1. built-in defaults
//  2. the CUE file <workdir>/.cursor/hooks/continual-learning.cue
//  3. environment variables (CONTINUAL_LEARNING_*, falling back to the
//     legacy CONTINUOUS_LEARNING_* names)
//  4. the --trial flag
//
// A layer never makes configuration unusable. An invalid file is ignored
// as a whole and unparsable environment values keep the lower layer's value.
package config

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/roach88/continual-learning/internal/engine"
	"github.com/roach88/continual-learning/internal/journal"
	"github.com/roach88/continual-learning/internal/policy"
	"github.com/roach88/continual-learning/internal/state"
)

// Relative locations under the working directory.
const (
	ConfigFile = ".cursor/hooks/continual-learning.cue"
	IndexFile  = "continual-learning-index.json"
)

// IndexPlaceholder in a configured follow-up message is replaced with the
// absolute transcript index path.
const IndexPlaceholder = "${INDEX}"

// Config is the resolved configuration for one invocation.
type Config struct {
	WorkDir         string
	Policy          policy.Policy
	LogLevel        slog.Level
	Journal         bool
	FollowUpMessage string

	// FileLoaded is true when the config file existed and was applied.
	FileLoaded bool
}

// Defaults returns the built-in configuration for workDir. A relative
// workDir is made absolute when possible.
func Defaults(workDir string) Config {
	if abs, err := filepath.Abs(workDir); err == nil {
		workDir = abs
	}
	cfg := Config{
		WorkDir:  workDir,
		Policy:   policy.Default(),
		LogLevel: slog.LevelWarn,
	}
	cfg.FollowUpMessage = DefaultFollowUpMessage(cfg.IndexPath())
	return cfg
}

// Load resolves the configuration. The returned Config is always usable.
// A non-nil error is a CONFIG_INVALID HookError describing a config file
// that was ignored.
func Load(workDir string, lookup LookupFunc, trialFlag bool) (Config, error) {
	cfg := Defaults(workDir)

	fileErr := applyFile(&cfg, cfg.ConfigPath())
	applyEnvOverrides(&cfg, lookup)
	if trialFlag {
		cfg.Policy.TrialEnabled = true
	}

	if fileErr != nil {
		return cfg, engine.NewHookError(engine.ErrCodeConfigInvalid, "config file ignored", fileErr)
	}
	return cfg, nil
}

// StatePath returns the state file location.
func (c Config) StatePath() string {
	return state.PathFor(c.WorkDir)
}

// JournalPath returns the decision journal location.
func (c Config) JournalPath() string {
	return filepath.Join(c.WorkDir, state.StateDir, journal.FileName)
}

// IndexPath returns the incremental transcript index location referenced by
// the follow-up message.
func (c Config) IndexPath() string {
	return filepath.Join(c.WorkDir, state.StateDir, IndexFile)
}

// ConfigPath returns the optional config file location.
func (c Config) ConfigPath() string {
	return filepath.Join(c.WorkDir, ConfigFile)
}

func (c Config) expandFollowUp(msg string) string {
	return strings.ReplaceAll(msg, IndexPlaceholder, c.IndexPath())
}

// DefaultFollowUpMessage is the consolidation instruction sent to the agent
// when the trigger fires.
func DefaultFollowUpMessage(indexPath string) string {
	return "Run the `continual-learning` skill now. " +
		"First read existing `AGENTS.md` and update existing entries in place (do not only append). " +
		"Use incremental transcript processing with index file `" + indexPath + "`: " +
		"only read transcripts not in the index or transcripts whose mtime is newer than indexed mtime (re-read changed transcripts). " +
		"After processing, write back the updated index mtimes and remove entries for deleted transcripts. " +
		"Update `AGENTS.md` only for high-signal, repeated user-correction patterns or durable workspace facts. " +
		"Exclude one-off/transient details and secrets. " +
		"Keep each learned section to at most 12 bullets. " +
		"Write plain bullet points only, with no evidence/confidence tags or other metadata annotations. " +
		"If no meaningful updates exist, respond exactly: No high-signal memory updates."
}
