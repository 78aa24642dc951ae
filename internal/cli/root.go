// Package cli implements the continual-learning command line.
//
// The stop subcommand is the hook the host invokes after every agent turn.
// It never fails: whatever happens it prints one JSON object and exits 0.
// The remaining subcommands are operator tools for inspecting and
// resetting the state record, reading the decision journal and replaying
// harness scenarios.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/continual-learning/internal/config"
	"github.com/roach88/continual-learning/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	WorkDir string

	// Lookup overrides environment lookup (for testing).
	// If nil, defaults to config.OSLookup.
	Lookup config.LookupFunc

	// Clock overrides the time source (for testing).
	// If nil, defaults to engine.SystemClock.
	Clock engine.Clock

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to engine.UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the continual-learning CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "continual-learning",
		Short: "Debounced stop hook that asks the agent to consolidate learnings",
		Long: `continual-learning decides, once per finished agent turn, whether enough
work has accumulated to ask the agent to fold recent transcripts into
AGENTS.md. Install "continual-learning stop" as the host's stop hook.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.WorkDir, "workdir", ".", "workspace root holding .cursor/")

	cmd.AddCommand(NewStopCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
// A stop invocation whose flags cannot be parsed still prints an empty
// decision and exits 0, and flags may precede the stop word.
func Execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return execute(&RootOptions{}, args, stdin, stdout, stderr)
}

func execute(opts *RootOptions, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	hook := isStopInvocation(args)
	if hook {
		args = stopFirst(args)
	}

	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	ran, err := cmd.ExecuteC()
	if err == nil {
		return ExitSuccess
	}
	if hook || (ran != nil && ran.Name() == stopCommandName) {
		fmt.Fprintln(stdout, "{}")
		slog.New(slog.NewTextHandler(stderr, nil)).Warn("stop hook not run",
			"code", engine.ErrCodeInputMalformed, "error", err)
		return ExitSuccess
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return GetExitCode(err)
}

// isStopInvocation reports whether args name the stop hook, wherever it
// sits among the flags. A word after another subcommand is that command's
// argument.
func isStopInvocation(args []string) bool {
	for _, a := range args {
		switch a {
		case stopCommandName:
			return true
		case "state", "journal", "test", "help", "completion":
			return false
		}
	}
	return false
}

// stopFirst moves the first "stop" to the front so flags given before it,
// such as --trial, parse against the stop command.
func stopFirst(args []string) []string {
	out := make([]string, 0, len(args))
	out = append(out, stopCommandName)
	moved := false
	for _, a := range args {
		if !moved && a == stopCommandName {
			moved = true
			continue
		}
		out = append(out, a)
	}
	return out
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) lookup() config.LookupFunc {
	if o.Lookup != nil {
		return o.Lookup
	}
	return config.OSLookup
}

func (o *RootOptions) clock() engine.Clock {
	if o.Clock != nil {
		return o.Clock
	}
	return engine.SystemClock{}
}

func (o *RootOptions) runIDs() engine.RunIDGenerator {
	if o.RunIDs != nil {
		return o.RunIDs
	}
	return engine.UUIDv7Generator{}
}

// newLogger builds the stderr diagnostics logger. --verbose forces debug.
func (o *RootOptions) newLogger(w io.Writer, level slog.Level) *slog.Logger {
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// setup resolves configuration and builds the logger at the configured
// level. An ignored config file is logged, never returned.
func (o *RootOptions) setup(w io.Writer, trial bool) (config.Config, *slog.Logger) {
	cfg, err := config.Load(o.WorkDir, o.lookup(), trial)
	logger := o.newLogger(w, cfg.LogLevel)
	if err != nil {
		logger.Warn("config file ignored", "code", engine.CodeOf(err), "path", cfg.ConfigPath(), "error", err)
	}
	return cfg, logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
