package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/roach88/continual-learning/internal/ir"
)

// Reasons a stored record is discarded as a whole.
var (
	ErrEmpty           = errors.New("state file is empty")
	ErrMalformed       = errors.New("state file is not valid JSON")
	ErrNotObject       = errors.New("state file is not a JSON object")
	ErrVersionMismatch = errors.New("state file version is not supported")
)

// Keys of the persisted record.
const (
	keyVersion             = "version"
	keyLastRunAtMs         = "lastRunAtMs"
	keyTurnsSinceLastRun   = "turnsSinceLastRun"
	keyLastTranscriptMtime = "lastTranscriptMtimeMs"
	keyLastGenerationID    = "lastProcessedGenerationId"
	keyTrialStartedAtMs    = "trialStartedAtMs"
)

// Decode parses a stored record.
//
// A non-nil error means the whole record was discarded and the returned
// state is ir.NewEngineState(). Field-level problems never produce an
// error; use DecodeFields to see which fields fell back.
func Decode(data []byte) (ir.EngineState, error) {
	st, _, err := DecodeFields(data)
	return st, err
}

// DecodeFields is Decode plus the names of fields whose stored value had the
// wrong type or range and was replaced by its default.
func DecodeFields(data []byte) (ir.EngineState, []string, error) {
	fresh := ir.NewEngineState()
	if len(bytes.TrimSpace(data)) == 0 {
		return fresh, nil, ErrEmpty
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fresh, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return fresh, nil, fmt.Errorf("%w: trailing data after record", ErrMalformed)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return fresh, nil, ErrNotObject
	}

	version, ok := numberField(obj[keyVersion])
	if !ok || version != float64(ir.StateVersion) {
		return fresh, nil, fmt.Errorf("%w: %v", ErrVersionMismatch, obj[keyVersion])
	}

	var fallbacks []string
	st := fresh

	if v, present := obj[keyLastRunAtMs]; present {
		if ms, ok := msField(v); ok {
			st.LastRunAtMs = ms
		} else {
			fallbacks = append(fallbacks, keyLastRunAtMs)
		}
	}

	if v, present := obj[keyTurnsSinceLastRun]; present {
		if n, ok := msField(v); ok && n >= 0 && n <= math.MaxInt32 {
			st.TurnsSinceLastRun = int(n)
		} else {
			fallbacks = append(fallbacks, keyTurnsSinceLastRun)
		}
	}

	st.LastTranscriptMtimeMs, fallbacks = nullableMs(obj, keyLastTranscriptMtime, fallbacks)
	st.TrialStartedAtMs, fallbacks = nullableMs(obj, keyTrialStartedAtMs, fallbacks)

	switch v := obj[keyLastGenerationID].(type) {
	case nil:
	case string:
		st.LastProcessedGenerationID = ir.StringPtr(v)
	default:
		fallbacks = append(fallbacks, keyLastGenerationID)
	}

	return st, fallbacks, nil
}

// Encode renders a record as 2-space indented JSON with a trailing newline.
// The version is always written as the current schema version.
func Encode(st ir.EngineState) ([]byte, error) {
	st.Version = ir.StateVersion
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return append(data, '\n'), nil
}

func nullableMs(obj map[string]any, key string, fallbacks []string) (*int64, []string) {
	v, present := obj[key]
	if !present || v == nil {
		return nil, fallbacks
	}
	ms, ok := msField(v)
	if !ok {
		return nil, append(fallbacks, key)
	}
	return ir.Int64Ptr(ms), fallbacks
}

// msField accepts integer or fractional JSON numbers and truncates toward
// zero. Older writers stored mtimes with a fractional millisecond part.
func msField(v any) (int64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Trunc(f)
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func numberField(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}
