package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// FileConfig mirrors #Config in schema.cue. Absent fields stay nil.
// The yaml tags let harness scenarios embed the same block.
type FileConfig struct {
	TrialMode            *bool   `json:"trial_mode" yaml:"trial_mode"`
	TrialDurationMinutes *int    `json:"trial_duration_minutes" yaml:"trial_duration_minutes"`
	TrialMinTurns        *int    `json:"trial_min_turns" yaml:"trial_min_turns"`
	TrialMinMinutes      *int    `json:"trial_min_minutes" yaml:"trial_min_minutes"`
	MinTurns             *int    `json:"min_turns" yaml:"min_turns"`
	MinMinutes           *int    `json:"min_minutes" yaml:"min_minutes"`
	LogLevel             *string `json:"log_level" yaml:"log_level"`
	Journal              *bool   `json:"journal" yaml:"journal"`
	FollowUpMessage      *string `json:"follow_up_message" yaml:"follow_up_message"`
}

// applyFile applies the config file at path. A missing file is not an
// error. On any error cfg is left untouched.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	fc, err := ParseFile(path, data)
	if err != nil {
		return err
	}

	fc.Apply(cfg)
	cfg.FileLoaded = true
	return nil
}

// ParseFile compiles CUE source and validates it against #Config.
// filename is used in error positions only.
func ParseFile(filename string, data []byte) (*FileConfig, error) {
	cctx := cuecontext.New()

	schema := cctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile embedded schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	val := cctx.CompileBytes(data, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("parse %s: %s", filename, cueerrors.Details(err, nil))
	}

	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate %s: %s", filename, cueerrors.Details(err, nil))
	}

	var fc FileConfig
	if err := unified.Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	return &fc, nil
}

// Apply overlays the fields present in the file onto cfg.
func (fc *FileConfig) Apply(cfg *Config) {
	if fc.TrialMode != nil {
		cfg.Policy.TrialEnabled = *fc.TrialMode
	}
	if fc.TrialDurationMinutes != nil {
		cfg.Policy.TrialDurationMinutes = *fc.TrialDurationMinutes
	}
	if fc.TrialMinTurns != nil {
		cfg.Policy.TrialMinTurns = *fc.TrialMinTurns
	}
	if fc.TrialMinMinutes != nil {
		cfg.Policy.TrialMinMinutes = *fc.TrialMinMinutes
	}
	if fc.MinTurns != nil {
		cfg.Policy.NormalMinTurns = *fc.MinTurns
	}
	if fc.MinMinutes != nil {
		cfg.Policy.NormalMinMinutes = *fc.MinMinutes
	}
	if fc.LogLevel != nil {
		var level slog.Level
		if err := level.UnmarshalText([]byte(*fc.LogLevel)); err == nil {
			cfg.LogLevel = level
		}
	}
	if fc.Journal != nil {
		cfg.Journal = *fc.Journal
	}
	if fc.FollowUpMessage != nil {
		cfg.FollowUpMessage = cfg.expandFollowUp(*fc.FollowUpMessage)
	}
}
