package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/continual-learning/internal/engine"
	"github.com/roach88/continual-learning/internal/ir"
	"github.com/roach88/continual-learning/internal/state"
)

// StateOptions holds flags for the state reset command.
type StateOptions struct {
	*RootOptions
	KeepTrial bool
}

// StateView is the result of state show.
type StateView struct {
	Path                string          `json:"path"`
	Exists              bool            `json:"exists"`
	State               ir.EngineState  `json:"state"`
	TrialPhase          string          `json:"trial_phase"`
	TrialWindowEndMs    *int64          `json:"trial_window_end_ms,omitempty"`
	Thresholds          ir.ThresholdSet `json:"thresholds"`
	MinutesSinceLastRun *int64          `json:"minutes_since_last_run,omitempty"`
}

// WriteText implements TextWriter.
func (v StateView) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "State: %s", v.Path)
	if !v.Exists {
		fmt.Fprint(w, " (not written yet)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Turns since last run:   %d\n", v.State.TurnsSinceLastRun)
	if v.State.HasRun() {
		fmt.Fprintf(w, "  Last run:               %s", formatMs(v.State.LastRunAtMs))
		if v.MinutesSinceLastRun != nil {
			fmt.Fprintf(w, " (%d min ago)", *v.MinutesSinceLastRun)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "  Last run:               never")
	}
	fmt.Fprintf(w, "  Last transcript mtime:  %s\n", formatOptionalMs(v.State.LastTranscriptMtimeMs))
	fmt.Fprintf(w, "  Last generation:        %s\n", formatOptionalString(v.State.LastProcessedGenerationID))
	fmt.Fprintf(w, "  Trial started:          %s\n", formatOptionalMs(v.State.TrialStartedAtMs))
	fmt.Fprintf(w, "  Trial phase:            %s", v.TrialPhase)
	if v.TrialWindowEndMs != nil {
		fmt.Fprintf(w, " (window ends %s)", formatMs(*v.TrialWindowEndMs))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Thresholds:             %d turns, %d minutes\n", v.Thresholds.MinTurns, v.Thresholds.MinMinutes)
	return nil
}

// ResetView is the result of state reset.
type ResetView struct {
	Path  string         `json:"path"`
	State ir.EngineState `json:"state"`
}

// WriteText implements TextWriter.
func (v ResetView) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Reset %s\n", v.Path)
	if v.State.TrialStartedAtMs != nil {
		fmt.Fprintf(w, "  Trial start kept: %s\n", formatMs(*v.State.TrialStartedAtMs))
	}
	return nil
}

// NewStateCommand creates the state command group.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset the persisted trigger state",
	}

	cmd.AddCommand(newStateShowCommand(rootOpts))
	cmd.AddCommand(newStateResetCommand(rootOpts))

	return cmd
}

func newStateShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the state record with the thresholds in force now",
		Long: `Print the state record with the thresholds and trial phase that would
apply to the next stop event.

Example:
  continual-learning state show --workdir ~/project
  continual-learning state show --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStateShow(rootOpts, cmd)
		},
	}
}

func newStateResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace the state record with a fresh one",
		Long: `Replace the state record with a fresh one: zero turns, never run.

With --keep-trial the trial start is carried over, so an expired trial
stays expired.

Example:
  continual-learning state reset
  continual-learning state reset --keep-trial`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStateReset(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.KeepTrial, "keep-trial", false, "preserve the trial start timestamp")

	return cmd
}

func runStateShow(opts *RootOptions, cmd *cobra.Command) error {
	cfg, logger := opts.setup(cmd.ErrOrStderr(), false)
	store := state.NewFileStore(cfg.StatePath(), logger)

	nowMs := engine.NowMs(opts.clock())
	st := store.Load(cmd.Context())
	phase := cfg.Policy.Phase(st, nowMs)

	view := StateView{
		Path:       store.Path(),
		Exists:     store.Exists(),
		State:      st,
		TrialPhase: phase.String(),
		Thresholds: cfg.Policy.Thresholds(phase),
	}
	if phase.At != 0 {
		view.TrialWindowEndMs = ir.Int64Ptr(phase.At)
	}
	if st.HasRun() {
		view.MinutesSinceLastRun = ir.Int64Ptr((nowMs - st.LastRunAtMs) / 60_000)
	}

	return opts.formatter(cmd).Success(view)
}

func runStateReset(opts *StateOptions, cmd *cobra.Command) error {
	cfg, logger := opts.setup(cmd.ErrOrStderr(), false)
	store := state.NewFileStore(cfg.StatePath(), logger)

	fresh := ir.NewEngineState()
	if opts.KeepTrial {
		if prev := store.Load(cmd.Context()); prev.TrialStartedAtMs != nil {
			fresh.TrialStartedAtMs = ir.Int64Ptr(*prev.TrialStartedAtMs)
		}
	}

	if err := store.Save(cmd.Context(), fresh); err != nil {
		return WrapExitError(ExitFailure, "failed to write state", err)
	}
	logger.Info("state reset", "path", store.Path(), "keep_trial", opts.KeepTrial)

	return opts.formatter(cmd).Success(ResetView{Path: store.Path(), State: fresh})
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func formatOptionalMs(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return formatMs(*ms)
}

func formatOptionalString(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
