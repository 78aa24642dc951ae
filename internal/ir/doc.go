// Package ir defines the data model shared by every other package of the
// continual-learning hook.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - EngineState JSON keys are camelCase and absent values encode as null,
//     so the state file stays readable by earlier hook implementations
//   - StopEvent JSON keys are snake_case, matching the host's hook payload
//   - Timestamps are Unix milliseconds (int64), never floats
package ir
