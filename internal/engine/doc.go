// Package engine decides whether a stop event should trigger a
// consolidation follow-up.
//
// The Evaluator is a pure transition function over ir.EngineState: it takes
// the event, the loaded record and the current time, and returns an Outcome
// carrying the decision, the next record and whether that record must be
// saved. Loading and saving happen outside, in the orchestrator.
//
// Evaluation order:
//
//  1. Idempotency gate. A generation id equal to the stored one ends
//     evaluation with an empty decision and nothing to persist.
//  2. The stored generation id is replaced with the event's (or cleared).
//  3. A turn counts only when status is "completed" and loop_count is 0.
//  4. Counted turns increment turnsSinceLastRun.
//  5. The trial policy may stamp the trial start and selects thresholds.
//  6. Elapsed whole minutes since the last fire are computed (infinite if
//     the engine never fired).
//  7. The transcript mtime is probed.
//  8. The transcript has advanced if its mtime is known and newer than the
//     one recorded at the last fire (or none was recorded).
//  9. Firing requires a counted turn, enough turns, enough minutes and an
//     advanced transcript.
//
// When firing the counter resets and the fire time and transcript mtime are
// recorded. Otherwise only the counter and generation id move.
//
// Time is injected through Clock so tests and the scenario harness can run
// against a fake clock. Transcript freshness goes through TranscriptSource
// for the same reason.
package engine
