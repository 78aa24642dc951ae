// Package state persists the single EngineState record between hook
// invocations.
//
// The record lives at <workdir>/.cursor/hooks/state/continual-learning.json
// and is read leniently: a missing, empty, unparsable or wrong-version file
// yields a fresh record, and individual fields with an unexpected JSON type
// fall back to their defaults. Loading never fails outward.
//
// Saves replace the whole record through a temp file and rename in the same
// directory, so a reader never observes a torn file.
//
// There is no lock and no compare-and-swap. The host is expected to run one
// invocation per state file at a time; two overlapping invocations can lose
// a turn increment or both decide to fire.
package state
