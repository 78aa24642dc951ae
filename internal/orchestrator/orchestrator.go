// Package orchestrator runs one hook invocation end to end:
// read the stop event, load state, evaluate, save, journal, emit.
//
// Run is the failure boundary. Malformed input, persistence failures and
// panics all end with an empty decision on the output writer, and the
// classified cause is returned in Result.Err for the caller to log.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/continual-learning/internal/engine"
	"github.com/roach88/continual-learning/internal/ir"
	"github.com/roach88/continual-learning/internal/journal"
	"github.com/roach88/continual-learning/internal/state"
)

// maxInputBytes bounds how much of stdin is read for one event.
const maxInputBytes = 4 << 20

// Journal is the subset of *journal.Journal the orchestrator writes to.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) error
	Prune(ctx context.Context, keep int) (int64, error)
}

// Result is the typed outcome of one invocation.
type Result struct {
	RunID    string
	Decision ir.Decision

	// Outcome is nil when evaluation never ran (malformed input or a panic
	// before evaluation finished).
	Outcome *engine.Outcome

	// Err is the classified failure, if any. Its presence never changes the
	// exit status of the hook.
	Err error
}

// Orchestrator wires the store, evaluator and optional journal together.
type Orchestrator struct {
	store     state.Store
	evaluator *engine.Evaluator
	clock     engine.Clock
	runIDs    engine.RunIDGenerator
	journal   Journal
	keep      int
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the time source. Defaults to engine.SystemClock.
func WithClock(c engine.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithRunIDs sets the run id generator. Defaults to engine.UUIDv7Generator.
func WithRunIDs(g engine.RunIDGenerator) Option {
	return func(o *Orchestrator) { o.runIDs = g }
}

// WithJournal records every evaluation in j, keeping the newest keep rows.
// keep <= 0 uses journal.DefaultKeep.
func WithJournal(j Journal, keep int) Option {
	return func(o *Orchestrator) {
		o.journal = j
		o.keep = keep
	}
}

// WithLogger sets the diagnostics logger. Defaults to discarding.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator.
func New(store state.Store, evaluator *engine.Evaluator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		evaluator: evaluator,
		clock:     engine.SystemClock{},
		runIDs:    engine.UUIDv7Generator{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run handles one stop event read from in and writes exactly one JSON
// object followed by a newline to out.
func (o *Orchestrator) Run(ctx context.Context, in io.Reader, out io.Writer) (res Result) {
	res.RunID = o.runIDs.Generate()
	log := o.logger.With("run_id", res.RunID)
	emitted := false

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		res.Err = engine.NewHookError(engine.ErrCodeInternal, fmt.Sprintf("panic: %v", r), nil)
		res.Decision = ir.Decision{}
		res.Outcome = nil
		log.Error("hook failed", "code", engine.ErrCodeInternal, "error", res.Err)
		if !emitted {
			_ = emit(out, ir.Decision{})
		}
	}()

	ev, err := decodeEvent(in)
	if err != nil {
		res.Err = err
		log.Warn("ignoring stop event", "code", engine.ErrCodeInputMalformed, "error", err)
		emitted = true
		o.write(log, out, ir.Decision{})
		return res
	}
	log = log.With("conversation_id", ev.ConversationID, "generation_id", ev.GenerationID)

	nowMs := engine.NowMs(o.clock)
	st := o.store.Load(ctx)
	outcome := o.evaluator.Evaluate(ev, st, nowMs)
	res.Outcome = &outcome
	res.Decision = outcome.Decision

	if outcome.Persist {
		if err := o.store.Save(ctx, outcome.Next); err != nil {
			res.Err = engine.NewHookError(engine.ErrCodePersistFailed, "state not saved", err)
			res.Decision = ir.Decision{}
			log.Error("hook failed", "code", engine.ErrCodePersistFailed, "fired", outcome.Fired, "error", err)
		}
	}

	if o.journal != nil && res.Err == nil {
		o.record(ctx, log, journal.NewEntry(res.RunID, ev, outcome, nowMs))
	}

	log.Debug("evaluated",
		"status", ev.Status,
		"counted_turn", outcome.CountedTurn,
		"turns", outcome.Next.TurnsSinceLastRun,
		"min_turns", outcome.Thresholds.MinTurns,
		"min_minutes", outcome.Thresholds.MinMinutes,
		"trial_phase", outcome.Phase.String(),
		"reason", outcome.Reason,
		"fired", res.Decision.Fires(),
	)

	emitted = true
	o.write(log, out, res.Decision)
	return res
}

func (o *Orchestrator) record(ctx context.Context, log *slog.Logger, e journal.Entry) {
	if err := o.journal.Record(ctx, e); err != nil {
		log.Warn("journal write failed", "code", engine.ErrCodeJournalFailed, "error", err)
		return
	}
	if n, err := o.journal.Prune(ctx, o.keep); err != nil {
		log.Warn("journal prune failed", "code", engine.ErrCodeJournalFailed, "error", err)
	} else if n > 0 {
		log.Debug("journal pruned", "rows", n)
	}
}

func (o *Orchestrator) write(log *slog.Logger, out io.Writer, d ir.Decision) {
	if err := emit(out, d); err != nil {
		log.Error("write decision", "code", engine.ErrCodeInternal, "error", err)
	}
}

func decodeEvent(in io.Reader) (ir.StopEvent, error) {
	data, err := io.ReadAll(io.LimitReader(in, maxInputBytes))
	if err != nil {
		return ir.StopEvent{}, engine.NewHookError(engine.ErrCodeInputMalformed, "read stdin", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ir.StopEvent{}, engine.NewHookError(engine.ErrCodeInputMalformed, "stop event is not a JSON object", nil)
	}
	var ev ir.StopEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return ir.StopEvent{}, engine.NewHookError(engine.ErrCodeInputMalformed, "decode stop event", err)
	}
	return ev, nil
}

// emit writes d as one JSON line. HTML characters are written literally.
func emit(out io.Writer, d ir.Decision) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	return enc.Encode(d)
}
