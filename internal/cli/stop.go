package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/continual-learning/internal/engine"
	"github.com/roach88/continual-learning/internal/journal"
	"github.com/roach88/continual-learning/internal/orchestrator"
	"github.com/roach88/continual-learning/internal/state"
)

const stopCommandName = "stop"

// StopOptions holds flags for the stop command.
type StopOptions struct {
	*RootOptions
	Trial bool
}

// NewStopCommand creates the stop hook command.
func NewStopCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StopOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   stopCommandName,
		Short: "Evaluate one stop event (the hook entry point)",
		Long: `Read one stop event as JSON on stdin and print the decision on stdout.

The decision is {} or {"followup_message": "..."} followed by a newline.
Diagnostics go to stderr. The command always exits 0, including for
malformed input, unknown flags and unwritable state.

Example hook configuration:
  continual-learning stop --workdir "$WORKSPACE"
  continual-learning stop --trial`,
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		SilenceUsage:       true,
		SilenceErrors:      true,
		// Replaces the root's format check: nothing may turn the hook into
		// a non-zero exit.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			runStop(opts, cmd)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Trial, "trial", false, "enable trial mode for this invocation")

	return cmd
}

func runStop(opts *StopOptions, cmd *cobra.Command) (res orchestrator.Result) {
	out := cmd.OutOrStdout()
	emitted := false
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		res = orchestrator.Result{Err: engine.NewHookError(engine.ErrCodeInternal, fmt.Sprintf("panic: %v", r), nil)}
		slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)).Error("hook failed",
			"code", engine.ErrCodeInternal, "error", res.Err)
		if !emitted {
			fmt.Fprintln(out, "{}")
		}
	}()

	cfg, logger := opts.setup(cmd.ErrOrStderr(), opts.Trial)

	store := state.NewFileStore(cfg.StatePath(), logger)
	evaluator := engine.NewEvaluator(cfg.Policy, engine.FileTranscripts{Logger: logger}, cfg.FollowUpMessage)

	orchOpts := []orchestrator.Option{
		orchestrator.WithClock(opts.clock()),
		orchestrator.WithRunIDs(opts.runIDs()),
		orchestrator.WithLogger(logger),
	}
	if cfg.Journal {
		jr, err := journal.Open(cfg.JournalPath())
		if err != nil {
			logger.Warn("journal unavailable", "code", engine.ErrCodeJournalFailed, "path", cfg.JournalPath(), "error", err)
		} else {
			defer jr.Close()
			orchOpts = append(orchOpts, orchestrator.WithJournal(jr, journal.DefaultKeep))
		}
	}

	o := orchestrator.New(store, evaluator, orchOpts...)
	emitted = true
	return o.Run(cmd.Context(), cmd.InOrStdin(), out)
}
