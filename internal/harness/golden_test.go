package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/continual-learning/internal/ir"
)

func TestSnapshot_Deterministic(t *testing.T) {
	scenario := loadTestdata(t, "normal_cadence")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSnapshot_OmitsAbsentValues(t *testing.T) {
	result := NewResult()
	result.State = ir.NewEngineState()
	result.AddTrace(TraceEvent{Step: 0, RunID: "r", Output: "{}", Error: "INPUT_MALFORMED"})

	data, err := Snapshot("absent", result)
	require.NoError(t, err)

	assert.Equal(t,
		`{"final_state":{"lastRunAtMs":0,"turnsSinceLastRun":0},"scenario_name":"absent",`+
			`"trace":[{"error":"INPUT_MALFORMED","evaluated":false,"fired":false,"output":"{}","run_id":"r","step":0,"turns_since_last_run":0}]}`,
		string(data))
}

func TestAssertGolden_ReusesResult(t *testing.T) {
	scenario := loadTestdata(t, "time_and_freshness_gates")
	result, err := Run(scenario)
	require.NoError(t, err)

	require.NoError(t, AssertGolden(t, scenario.Name, result))
}
