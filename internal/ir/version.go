package ir

// Version constants for the persisted state schema and the engine.
const (
	// StateVersion is the schema tag written into every EngineState.
	// A stored record carrying any other value is treated as absent.
	StateVersion = 1

	// EngineVersion is the continual-learning engine version.
	EngineVersion = "0.1.0"
)
