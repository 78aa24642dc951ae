// Package journal records every evaluated hook invocation in a SQLite
// database so an operator can see when and why the trigger fired.
//
// The journal is opt-in. It only ever holds the engine's own decisions;
// the hook's outward behavior never depends on it, and a failed write is
// logged and otherwise ignored.
//
// Writes are idempotent: the row id is ir.DecisionID over the event and the
// decision time, and inserts use ON CONFLICT(id) DO NOTHING.
package journal
