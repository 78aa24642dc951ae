package ir

import (
	"bytes"
	"encoding/json"
	"math"
)

// stopEventWire defers field typing so one mistyped field does not discard
// the rest of the event.
type stopEventWire struct {
	ConversationID json.RawMessage `json:"conversation_id"`
	GenerationID   json.RawMessage `json:"generation_id"`
	Status         json.RawMessage `json:"status"`
	LoopCount      json.RawMessage `json:"loop_count"`
	TranscriptPath json.RawMessage `json:"transcript_path"`
}

// UnmarshalJSON decodes a stop event leniently. A field of the wrong type
// reads as absent. loop_count accepts any integral JSON number, so 0.0 is
// the first iteration while "0" and 0.5 are not.
func (e *StopEvent) UnmarshalJSON(data []byte) error {
	var w stopEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = StopEvent{
		ConversationID: stringField(w.ConversationID),
		GenerationID:   stringField(w.GenerationID),
		Status:         Status(stringField(w.Status)),
		LoopCount:      loopCountField(w.LoopCount),
		TranscriptPath: stringField(w.TranscriptPath),
	}
	return nil
}

func stringField(raw json.RawMessage) string {
	var s string
	if isAbsent(raw) || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func loopCountField(raw json.RawMessage) *int {
	if isAbsent(raw) || raw[0] == '"' {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return nil
	}
	return IntPtr(int(f))
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
