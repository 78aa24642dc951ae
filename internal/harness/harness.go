package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/continual-learning/internal/config"
	"github.com/roach88/continual-learning/internal/engine"
	"github.com/roach88/continual-learning/internal/ir"
	"github.com/roach88/continual-learning/internal/journal"
	"github.com/roach88/continual-learning/internal/orchestrator"
	"github.com/roach88/continual-learning/internal/state"
	"github.com/roach88/continual-learning/internal/testutil"
)

// WorkDir is the virtual workspace root scenarios run in.
const WorkDir = "/work"

const msPerMinute = int64(60_000)

// Harness holds the deterministic collaborators for one scenario run.
type Harness struct {
	store       *state.MemoryStore
	transcripts *testutil.StaticTranscripts
	clock       *testutil.FakeClock
	journal     *journal.Journal
	orch        *orchestrator.Orchestrator
}

// Run executes a scenario and returns its result.
//
// The execution flow:
// 1. Resolve the configuration from defaults plus the scenario overrides
// 2. Seed the in-memory state store
// 3. For each step: move the clock, set the transcript, invoke the hook
// 4. Check step expectations and the final state
//
// A non-nil error means the scenario could not be executed at all. Failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with hook diagnostics sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	cfg := config.Defaults(WorkDir)
	if scenario.Config != nil {
		scenario.Config.Apply(&cfg)
	}

	startMs := scenario.StartMs
	if startMs == 0 {
		startMs = DefaultStartMs
	}

	h := &Harness{
		store:       state.NewMemoryStore(),
		transcripts: testutil.NewStaticTranscripts(),
		clock:       testutil.NewFakeClockMs(startMs),
	}
	if scenario.InitialState != nil {
		h.store = state.NewMemoryStoreWith(seedState(scenario.InitialState, startMs))
	}

	prefix := scenario.RunIDPrefix
	if prefix == "" {
		prefix = "run"
	}
	opts := []orchestrator.Option{
		orchestrator.WithClock(h.clock),
		orchestrator.WithRunIDs(testutil.NewSequentialRunIDGenerator(prefix)),
		orchestrator.WithLogger(logger),
	}
	if cfg.Journal {
		jr, err := journal.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to open in-memory journal: %w", err)
		}
		defer jr.Close()
		h.journal = jr
		opts = append(opts, orchestrator.WithJournal(jr, journal.DefaultKeep))
	}

	evaluator := engine.NewEvaluator(cfg.Policy, h.transcripts, cfg.FollowUpMessage)
	h.orch = orchestrator.New(h.store, evaluator, opts...)

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	result.State = h.store.Load(ctx)
	for _, msg := range checkFinalState(scenario.FinalState, result.State) {
		result.AddError(msg)
	}

	if h.journal != nil {
		if err := h.checkJournal(ctx, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// seedState builds the initial record. Relative minutes are resolved
// against the start time.
func seedState(is *InitialState, startMs int64) ir.EngineState {
	st := ir.NewEngineState()
	if is == nil {
		return st
	}
	st.TurnsSinceLastRun = is.TurnsSinceLastRun
	if is.LastRunMinutesAgo != nil {
		st.LastRunAtMs = startMs - int64(*is.LastRunMinutesAgo)*msPerMinute
	}
	if is.LastTranscriptMtimeMs != nil {
		st.LastTranscriptMtimeMs = ir.Int64Ptr(*is.LastTranscriptMtimeMs)
	}
	if is.LastProcessedGenerationID != nil {
		st.LastProcessedGenerationID = ir.StringPtr(*is.LastProcessedGenerationID)
	}
	if is.TrialStartedMinutesAgo != nil {
		st.TrialStartedAtMs = ir.Int64Ptr(startMs - int64(*is.TrialStartedMinutesAgo)*msPerMinute)
	}
	return st
}

// executeStep runs one hook invocation and records its trace event.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		h.clock.Advance(d)
	}

	path := DefaultTranscriptPath
	if step.Event != nil && step.Event.TranscriptPath != "" {
		path = step.Event.TranscriptPath
	}
	switch {
	case step.TranscriptMissing:
		h.transcripts.Remove(path)
	case step.TranscriptMtimeMs != nil:
		h.transcripts.Set(path, *step.TranscriptMtimeMs)
	}

	input, err := stepInput(step, path)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	res := h.orch.Run(ctx, strings.NewReader(input), &out)

	ev := TraceEvent{
		Step:   i,
		RunID:  res.RunID,
		Output: strings.TrimSuffix(out.String(), "\n"),
	}
	if step.Event != nil {
		ev.GenerationID = step.Event.GenerationID
	}
	if res.Err != nil {
		ev.Error = string(engine.CodeOf(res.Err))
	}
	if o := res.Outcome; o != nil {
		ev.Evaluated = true
		ev.Fired = res.Decision.Fires()
		ev.Reason = o.Reason.String()
		ev.TrialPhase = o.Phase.String()
		ev.MinTurns = o.Thresholds.MinTurns
		ev.MinMinutes = o.Thresholds.MinMinutes
		ev.TurnsSinceLastRun = o.Next.TurnsSinceLastRun
	}
	result.AddTrace(ev)

	for _, msg := range checkStep(i, step.Expect, ev) {
		result.AddError(msg)
	}
	return nil
}

// stepInput renders the stdin payload for a step.
func stepInput(step Step, path string) (string, error) {
	if step.Input != nil {
		return *step.Input, nil
	}
	payload := map[string]any{
		"conversation_id": step.Event.ConversationID,
		"status":          step.Event.Status,
		"transcript_path": path,
	}
	if step.Event.ConversationID == "" {
		payload["conversation_id"] = "conv-1"
	}
	if step.Event.GenerationID != "" {
		payload["generation_id"] = step.Event.GenerationID
	}
	if step.Event.LoopCount != nil {
		payload["loop_count"] = *step.Event.LoopCount
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	return string(data), nil
}

func checkStep(i int, exp *StepExpect, ev TraceEvent) []string {
	if exp == nil {
		return nil
	}
	var errs []string
	if exp.Fired != nil && *exp.Fired != ev.Fired {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected fired=%t, got %t (output %s)", i, *exp.Fired, ev.Fired, ev.Output))
	}
	if exp.Reason != "" && exp.Reason != ev.Reason {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected reason %q, got %q", i, exp.Reason, ev.Reason))
	}
	if exp.Turns != nil && *exp.Turns != ev.TurnsSinceLastRun {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected turns %d, got %d", i, *exp.Turns, ev.TurnsSinceLastRun))
	}
	if exp.TrialPhase != "" && exp.TrialPhase != ev.TrialPhase {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected trial_phase %q, got %q", i, exp.TrialPhase, ev.TrialPhase))
	}
	if exp.Error != "" && exp.Error != ev.Error {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected error %q, got %q", i, exp.Error, ev.Error))
	}
	return errs
}

func checkFinalState(exp *StateExpect, st ir.EngineState) []string {
	if exp == nil {
		return nil
	}
	var errs []string
	if exp.TurnsSinceLastRun != nil && *exp.TurnsSinceLastRun != st.TurnsSinceLastRun {
		errs = append(errs, fmt.Sprintf("final_state: expected turns_since_last_run %d, got %d", *exp.TurnsSinceLastRun, st.TurnsSinceLastRun))
	}
	if exp.LastRunAtMs != nil && *exp.LastRunAtMs != st.LastRunAtMs {
		errs = append(errs, fmt.Sprintf("final_state: expected last_run_at_ms %d, got %d", *exp.LastRunAtMs, st.LastRunAtMs))
	}
	if exp.LastTranscriptMtimeMs != nil {
		if st.LastTranscriptMtimeMs == nil {
			errs = append(errs, fmt.Sprintf("final_state: expected last_transcript_mtime_ms %d, got null", *exp.LastTranscriptMtimeMs))
		} else if *st.LastTranscriptMtimeMs != *exp.LastTranscriptMtimeMs {
			errs = append(errs, fmt.Sprintf("final_state: expected last_transcript_mtime_ms %d, got %d", *exp.LastTranscriptMtimeMs, *st.LastTranscriptMtimeMs))
		}
	}
	if exp.LastProcessedGenerationID != nil {
		got := "<null>"
		if st.LastProcessedGenerationID != nil {
			got = *st.LastProcessedGenerationID
		}
		if got != *exp.LastProcessedGenerationID {
			errs = append(errs, fmt.Sprintf("final_state: expected last_processed_generation_id %q, got %q", *exp.LastProcessedGenerationID, got))
		}
	}
	if exp.TrialStarted != nil && *exp.TrialStarted != (st.TrialStartedAtMs != nil) {
		errs = append(errs, fmt.Sprintf("final_state: expected trial_started=%t", *exp.TrialStarted))
	}
	return errs
}

// checkJournal verifies the journal agrees with the trace on fired steps.
// Non-firing rows can share an id when they repeat within one millisecond,
// so only the fired count is exact.
func (h *Harness) checkJournal(ctx context.Context, result *Result) error {
	sum, err := h.journal.Summary(ctx)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	result.Journal = &sum
	if fired := result.FiredCount(); sum.Fired != fired {
		result.AddError(fmt.Sprintf("journal: expected %d fired rows, got %d", fired, sum.Fired))
	}
	return nil
}
