package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/continual-learning/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Trace        []TraceEvent   `json:"trace"`
	FinalState   ir.EngineState `json:"final_state"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// Absent values are omitted because canonical JSON carries no nulls.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"step":                 event.Step,
			"run_id":               event.RunID,
			"output":               event.Output,
			"evaluated":            event.Evaluated,
			"fired":                event.Fired,
			"turns_since_last_run": event.TurnsSinceLastRun,
		}
		if event.GenerationID != "" {
			eventMap["generation_id"] = event.GenerationID
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		if event.Evaluated {
			eventMap["reason"] = event.Reason
			eventMap["trial_phase"] = event.TrialPhase
			eventMap["min_turns"] = event.MinTurns
			eventMap["min_minutes"] = event.MinMinutes
		}
		traceList[i] = eventMap
	}

	st := s.FinalState
	final := map[string]any{
		"lastRunAtMs":       st.LastRunAtMs,
		"turnsSinceLastRun": st.TurnsSinceLastRun,
	}
	if st.LastTranscriptMtimeMs != nil {
		final["lastTranscriptMtimeMs"] = *st.LastTranscriptMtimeMs
	}
	if st.LastProcessedGenerationID != nil {
		final["lastProcessedGenerationId"] = *st.LastProcessedGenerationID
	}
	if st.TrialStartedAtMs != nil {
		final["trialStartedAtMs"] = *st.TrialStartedAtMs
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"final_state":   final,
	}
}

// Snapshot renders the canonical golden bytes for a scenario result.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		FinalState:   result.State,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
