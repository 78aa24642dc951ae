package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/continual-learning/internal/journal"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Limit int
}

// JournalView is the result of the journal command.
type JournalView struct {
	Path    string          `json:"path"`
	Summary journal.Summary `json:"summary"`
	Recent  []journal.Entry `json:"recent"`
}

// WriteText implements TextWriter.
func (v JournalView) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Journal: %s\n", v.Path)
	fmt.Fprintf(w, "  Evaluations: %d\n", v.Summary.Total)
	fmt.Fprintf(w, "  Fired:       %d\n", v.Summary.Fired)
	fmt.Fprintf(w, "  Last fired:  %s\n", formatOptionalMs(v.Summary.LastFiredAtMs))

	reasons := make([]string, 0, len(v.Summary.ByReason))
	for r := range v.Summary.ByReason {
		reasons = append(reasons, r)
	}
	slices.Sort(reasons)
	for _, r := range reasons {
		fmt.Fprintf(w, "    %-22s %d\n", r, v.Summary.ByReason[r])
	}

	if len(v.Recent) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recent:")
	for _, e := range v.Recent {
		mark := " "
		if e.Fired {
			mark = "*"
		}
		fmt.Fprintf(w, "  %s %s %-20s turns=%d/%d phase=%s gen=%s\n",
			mark, formatMs(e.DecidedAtMs), e.Reason, e.TurnsSinceLastRun, e.MinTurns, e.TrialPhase, orDash(e.GenerationID))
	}
	return nil
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent trigger decisions",
		Long: `Show the decision journal: totals, fire count, and the most recent
evaluations, newest first.

The journal is written only when enabled with "journal: true" in the
config file or CONTINUAL_LEARNING_JOURNAL=true.

Exit codes:
  0 - Journal printed
  2 - No journal exists for this workspace

Example:
  continual-learning journal --limit 50
  continual-learning journal --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of recent decisions to show")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	if opts.Limit <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--limit must be positive, got %d", opts.Limit))
	}

	cfg, _ := opts.setup(cmd.ErrOrStderr(), false)
	path := cfg.JournalPath()
	if !journal.Exists(path) {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path))
	}

	jr, err := journal.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer jr.Close()

	ctx := cmd.Context()
	summary, err := jr.Summary(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read journal", err)
	}
	recent, err := jr.Recent(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read journal", err)
	}

	return opts.formatter(cmd).Success(JournalView{
		Path:    path,
		Summary: summary,
		Recent:  recent,
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
