package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/continual-learning/internal/config"
	"github.com/roach88/continual-learning/internal/engine"
	"github.com/roach88/continual-learning/internal/policy"
)

// DefaultStartMs is the clock origin when a scenario omits start_ms.
const DefaultStartMs = int64(1_700_000_000_000)

// DefaultTranscriptPath is used for events that name no transcript.
const DefaultTranscriptPath = "/work/transcript.jsonl"

// Scenario defines one replayable sequence of stop-hook invocations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// StartMs is the initial fake clock reading in Unix ms.
	StartMs int64 `yaml:"start_ms,omitempty"`

	// Config overrides the built-in configuration. Same keys as the CUE
	// config file.
	Config *config.FileConfig `yaml:"config,omitempty"`

	// InitialState seeds the state store before the first step. When nil
	// the store starts empty.
	InitialState *InitialState `yaml:"initial_state,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// FinalState is checked after the last step.
	FinalState *StateExpect `yaml:"final_state,omitempty"`

	// RunIDPrefix names the sequential run ids. Defaults to "run".
	RunIDPrefix string `yaml:"run_id_prefix,omitempty"`
}

// InitialState describes a seeded record relative to the start time.
type InitialState struct {
	TurnsSinceLastRun         int     `yaml:"turns_since_last_run"`
	LastRunMinutesAgo         *int    `yaml:"last_run_minutes_ago,omitempty"`
	LastTranscriptMtimeMs     *int64  `yaml:"last_transcript_mtime_ms,omitempty"`
	LastProcessedGenerationID *string `yaml:"last_processed_generation_id,omitempty"`
	TrialStartedMinutesAgo    *int    `yaml:"trial_started_minutes_ago,omitempty"`
}

// Step is one invocation of the hook.
type Step struct {
	// Advance moves the clock forward before the event, e.g. "90m".
	Advance string `yaml:"advance,omitempty"`

	// TranscriptMtimeMs sets the transcript mtime before the event.
	TranscriptMtimeMs *int64 `yaml:"transcript_mtime_ms,omitempty"`

	// TranscriptMissing makes the transcript unreachable before the event.
	TranscriptMissing bool `yaml:"transcript_missing,omitempty"`

	// Event is encoded as the stdin payload.
	Event *EventSpec `yaml:"event,omitempty"`

	// Input is sent verbatim on stdin instead of Event.
	Input *string `yaml:"input,omitempty"`

	// Expect is checked against the outcome. Nil means no checks.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// EventSpec mirrors the stop event payload.
type EventSpec struct {
	ConversationID string `yaml:"conversation_id,omitempty"`
	GenerationID   string `yaml:"generation_id,omitempty"`
	Status         string `yaml:"status"`
	LoopCount      *int   `yaml:"loop_count,omitempty"`
	TranscriptPath string `yaml:"transcript_path,omitempty"`
}

// StepExpect lists the observable results of one step. Absent fields are
// not checked.
type StepExpect struct {
	Fired      *bool  `yaml:"fired,omitempty"`
	Reason     string `yaml:"reason,omitempty"`
	Turns      *int   `yaml:"turns,omitempty"`
	TrialPhase string `yaml:"trial_phase,omitempty"`
	Error      string `yaml:"error,omitempty"`
}

// StateExpect lists expected fields of the final record.
type StateExpect struct {
	TurnsSinceLastRun         *int    `yaml:"turns_since_last_run,omitempty"`
	LastRunAtMs               *int64  `yaml:"last_run_at_ms,omitempty"`
	LastTranscriptMtimeMs     *int64  `yaml:"last_transcript_mtime_ms,omitempty"`
	LastProcessedGenerationID *string `yaml:"last_processed_generation_id,omitempty"`
	TrialStarted              *bool   `yaml:"trial_started,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Config != nil {
		if err := validateConfig(s.Config); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	if is := s.InitialState; is != nil {
		if is.TurnsSinceLastRun < 0 {
			return fmt.Errorf("initial_state: turns_since_last_run must be >= 0")
		}
		if is.LastRunMinutesAgo != nil && *is.LastRunMinutesAgo < 0 {
			return fmt.Errorf("initial_state: last_run_minutes_ago must be >= 0")
		}
		if is.TrialStartedMinutesAgo != nil && *is.TrialStartedMinutesAgo < 0 {
			return fmt.Errorf("initial_state: trial_started_minutes_ago must be >= 0")
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	return nil
}

func validateConfig(fc *config.FileConfig) error {
	for name, v := range map[string]*int{
		"trial_duration_minutes": fc.TrialDurationMinutes,
		"trial_min_turns":        fc.TrialMinTurns,
		"trial_min_minutes":      fc.TrialMinMinutes,
		"min_turns":              fc.MinTurns,
		"min_minutes":            fc.MinMinutes,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be a positive integer", name)
		}
	}
	if fc.FollowUpMessage != nil && *fc.FollowUpMessage == "" {
		return fmt.Errorf("follow_up_message must not be empty")
	}
	return nil
}

func validateStep(i int, step *Step) error {
	if step.Event == nil && step.Input == nil {
		return fmt.Errorf("steps[%d]: event or input is required", i)
	}
	if step.Event != nil && step.Input != nil {
		return fmt.Errorf("steps[%d]: event and input are mutually exclusive", i)
	}
	if step.TranscriptMissing && step.TranscriptMtimeMs != nil {
		return fmt.Errorf("steps[%d]: transcript_missing and transcript_mtime_ms are mutually exclusive", i)
	}
	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fmt.Errorf("steps[%d]: advance: %w", i, err)
		}
		if d < 0 {
			return fmt.Errorf("steps[%d]: advance must not be negative", i)
		}
	}
	if step.Event != nil && step.Event.Status == "" {
		return fmt.Errorf("steps[%d].event: status is required", i)
	}
	if e := step.Expect; e != nil {
		if e.Reason != "" && !knownReason(e.Reason) {
			return fmt.Errorf("steps[%d].expect: unknown reason %q", i, e.Reason)
		}
		if e.TrialPhase != "" && !knownPhase(e.TrialPhase) {
			return fmt.Errorf("steps[%d].expect: unknown trial_phase %q", i, e.TrialPhase)
		}
	}
	return nil
}

func knownReason(s string) bool {
	for _, r := range engine.Reasons {
		if r.String() == s {
			return true
		}
	}
	return false
}

func knownPhase(s string) bool {
	for _, k := range []policy.PhaseKind{
		policy.PhaseDisabled, policy.PhaseNotStarted, policy.PhaseActive, policy.PhaseExpired,
	} {
		if k.String() == s {
			return true
		}
	}
	return false
}
