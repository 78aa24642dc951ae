package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/continual-learning/internal/ir"
)

func TestDecodeWholeRecordErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"empty", "", ErrEmpty},
		{"garbage", "{nope", ErrMalformed},
		{"two values", `{"version":1} {"version":1}`, ErrMalformed},
		{"string", `"hello"`, ErrNotObject},
		{"null", `null`, ErrNotObject},
		{"version zero", `{"version":0}`, ErrVersionMismatch},
		{"version fractional", `{"version":1.5}`, ErrVersionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Decode([]byte(tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, st.Equal(ir.NewEngineState()))
		})
	}
}

func TestDecodeAcceptsFloatVersionOne(t *testing.T) {
	st, err := Decode([]byte(`{"version":1.0,"turnsSinceLastRun":3}`))
	require.NoError(t, err)
	assert.Equal(t, 3, st.TurnsSinceLastRun)
}

func TestDecodePerFieldFallback(t *testing.T) {
	raw := `{
		"version": 1,
		"lastRunAtMs": "yesterday",
		"turnsSinceLastRun": -4,
		"lastTranscriptMtimeMs": true,
		"lastProcessedGenerationId": 17,
		"trialStartedAtMs": {"at": 1}
	}`

	st, fallbacks, err := DecodeFields([]byte(raw))
	require.NoError(t, err)
	assert.True(t, st.Equal(ir.NewEngineState()), "got %+v", st)
	assert.ElementsMatch(t, []string{
		"lastRunAtMs",
		"turnsSinceLastRun",
		"lastTranscriptMtimeMs",
		"lastProcessedGenerationId",
		"trialStartedAtMs",
	}, fallbacks)
}

func TestDecodeKeepsGoodFieldsBesideBadOnes(t *testing.T) {
	raw := `{"version":1,"lastRunAtMs":500,"turnsSinceLastRun":"x","lastProcessedGenerationId":"g"}`

	st, fallbacks, err := DecodeFields([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, int64(500), st.LastRunAtMs)
	assert.Equal(t, 0, st.TurnsSinceLastRun)
	require.NotNil(t, st.LastProcessedGenerationID)
	assert.Equal(t, "g", *st.LastProcessedGenerationID)
	assert.Equal(t, []string{"turnsSinceLastRun"}, fallbacks)
}

func TestDecodeTruncatesFractionalMilliseconds(t *testing.T) {
	raw := `{"version":1,"lastRunAtMs":1700000000000.9,"turnsSinceLastRun":2,"lastTranscriptMtimeMs":1699999999123.456,"trialStartedAtMs":null}`

	st, fallbacks, err := DecodeFields([]byte(raw))
	require.NoError(t, err)
	assert.Empty(t, fallbacks)
	assert.Equal(t, int64(1_700_000_000_000), st.LastRunAtMs)
	require.NotNil(t, st.LastTranscriptMtimeMs)
	assert.Equal(t, int64(1_699_999_999_123), *st.LastTranscriptMtimeMs)
	assert.Nil(t, st.TrialStartedAtMs)
}

func TestDecodeMissingOptionalFields(t *testing.T) {
	st, fallbacks, err := DecodeFields([]byte(`{"version":1}`))
	require.NoError(t, err)
	assert.Empty(t, fallbacks)
	assert.True(t, st.Equal(ir.NewEngineState()))
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	st, err := Decode([]byte(`{"version":1,"turnsSinceLastRun":1,"future":"field"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, st.TurnsSinceLastRun)
}

func TestEncodeForcesCurrentVersion(t *testing.T) {
	st := ir.NewEngineState()
	st.Version = 0
	data, err := Encode(st)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, ir.StateVersion, back.Version)
}
