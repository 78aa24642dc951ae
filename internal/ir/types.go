package ir

// Status is the outcome tag the host attaches to a stop event.
type Status string

// Known statuses. Any other value is carried through untouched and never
// counts as a turn.
const (
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
	StatusError     Status = "error"
)

// StopEvent is the payload delivered on stdin once per finished conversation
// turn. Unknown fields are ignored by the decoder.
type StopEvent struct {
	ConversationID string `json:"conversation_id"`
	GenerationID   string `json:"generation_id,omitempty"`
	Status         Status `json:"status"`

	// LoopCount is nil when the host omitted loop_count. A missing counter
	// is never treated as the first iteration.
	LoopCount *int `json:"loop_count,omitempty"`

	// TranscriptPath is empty when the host sent null or nothing.
	TranscriptPath string `json:"transcript_path,omitempty"`
}

// CountsAsTurn reports whether the event is a countable turn: the outer
// agent loop completed cleanly on its first iteration.
func (e StopEvent) CountsAsTurn() bool {
	return e.Status == StatusCompleted && e.LoopCount != nil && *e.LoopCount == 0
}

// HasGenerationID reports whether the event identifies its unit of work.
func (e StopEvent) HasGenerationID() bool {
	return e.GenerationID != ""
}

// EngineState is the single persisted record of the trigger engine.
type EngineState struct {
	Version int `json:"version"`

	// LastRunAtMs is the Unix ms of the last fired decision. Zero means the
	// engine has never fired.
	LastRunAtMs int64 `json:"lastRunAtMs"`

	TurnsSinceLastRun         int     `json:"turnsSinceLastRun"`
	LastTranscriptMtimeMs     *int64  `json:"lastTranscriptMtimeMs"`
	LastProcessedGenerationID *string `json:"lastProcessedGenerationId"`
	TrialStartedAtMs          *int64  `json:"trialStartedAtMs"`
}

// NewEngineState returns the zeroed default record used on first run and
// whenever a stored record cannot be trusted.
func NewEngineState() EngineState {
	return EngineState{Version: StateVersion}
}

// HasRun reports whether the engine has fired at least once.
func (s EngineState) HasRun() bool {
	return s.LastRunAtMs > 0
}

// Clone returns a deep copy; pointer fields never alias the receiver.
func (s EngineState) Clone() EngineState {
	out := s
	out.LastTranscriptMtimeMs = cloneInt64(s.LastTranscriptMtimeMs)
	out.TrialStartedAtMs = cloneInt64(s.TrialStartedAtMs)
	if s.LastProcessedGenerationID != nil {
		id := *s.LastProcessedGenerationID
		out.LastProcessedGenerationID = &id
	}
	return out
}

// Equal compares two states field by field, treating absent and present
// values as different even when the present value is zero.
func (s EngineState) Equal(o EngineState) bool {
	return s.Version == o.Version &&
		s.LastRunAtMs == o.LastRunAtMs &&
		s.TurnsSinceLastRun == o.TurnsSinceLastRun &&
		equalInt64(s.LastTranscriptMtimeMs, o.LastTranscriptMtimeMs) &&
		equalInt64(s.TrialStartedAtMs, o.TrialStartedAtMs) &&
		equalString(s.LastProcessedGenerationID, o.LastProcessedGenerationID)
}

// ThresholdSet is the pair of minimums that must be reached before firing.
// It is derived per invocation and never persisted.
type ThresholdSet struct {
	MinTurns   int `json:"min_turns"`
	MinMinutes int `json:"min_minutes"`
}

// Decision is the single JSON object written to stdout. An empty
// FollowUpMessage encodes as {} which the host treats as a no-op.
type Decision struct {
	FollowUpMessage string `json:"followup_message,omitempty"`
}

// Fires reports whether the decision asks the host to run a follow-up.
func (d Decision) Fires() bool {
	return d.FollowUpMessage != ""
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}

// StringPtr returns a pointer to v.
func StringPtr(v string) *string {
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalInt64(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
