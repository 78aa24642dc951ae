package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/continual-learning/internal/ir"
)

const minute = int64(60_000)

func trialPolicy() Policy {
	p := Default()
	p.TrialEnabled = true
	return p
}

func TestDefaultThresholds(t *testing.T) {
	p := Default()
	assert.Equal(t, ir.ThresholdSet{MinTurns: 10, MinMinutes: 120}, p.Normal())
	assert.Equal(t, ir.ThresholdSet{MinTurns: 3, MinMinutes: 15}, p.Trial())
	assert.Equal(t, 1440, p.TrialDurationMinutes)
	assert.False(t, p.TrialEnabled)
}

func TestPhase(t *testing.T) {
	start := int64(1_000_000)
	stamped := ir.NewEngineState()
	stamped.TrialStartedAtMs = ir.Int64Ptr(start)

	tests := []struct {
		name    string
		policy  Policy
		state   ir.EngineState
		now     int64
		want    PhaseKind
		wantAt  int64
		wantStr string
	}{
		{"disabled without stamp", Default(), ir.NewEngineState(), start, PhaseDisabled, 0, "disabled"},
		{"disabled ignores stamp", Default(), stamped, start, PhaseDisabled, 0, "disabled"},
		{"not started", trialPolicy(), ir.NewEngineState(), start, PhaseNotStarted, 0, "not_started"},
		{"active at start", trialPolicy(), stamped, start, PhaseActive, start + 1440*minute, "active"},
		{"active just before end", trialPolicy(), stamped, start + 1440*minute - 1, PhaseActive, start + 1440*minute, "active"},
		{"expired at end", trialPolicy(), stamped, start + 1440*minute, PhaseExpired, start + 1440*minute, "expired"},
		{"expired long after", trialPolicy(), stamped, start + 10_000*minute, PhaseExpired, start + 1440*minute, "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.state.Clone()
			got := tt.policy.Phase(tt.state, tt.now)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, tt.wantAt, got.At)
			assert.Equal(t, tt.wantStr, got.String())
			assert.True(t, before.Equal(tt.state), "Phase must not mutate state")
		})
	}
}

func TestThresholdsFollowPhase(t *testing.T) {
	p := trialPolicy()
	assert.Equal(t, p.Trial(), p.Thresholds(TrialPhase{Kind: PhaseActive}))
	assert.Equal(t, p.Normal(), p.Thresholds(TrialPhase{Kind: PhaseExpired}))
	assert.Equal(t, p.Normal(), p.Thresholds(TrialPhase{Kind: PhaseNotStarted}))
	assert.Equal(t, p.Normal(), p.Thresholds(TrialPhase{Kind: PhaseDisabled}))
}

func TestApplyStampsOnFirstCountedTurn(t *testing.T) {
	p := trialPolicy()
	st := ir.NewEngineState()
	now := int64(5_000_000)

	thresholds, phase := p.Apply(&st, true, now)
	require.NotNil(t, st.TrialStartedAtMs)
	assert.Equal(t, now, *st.TrialStartedAtMs)
	assert.Equal(t, PhaseActive, phase.Kind)
	assert.Equal(t, p.Trial(), thresholds, "stamp is visible on the same invocation")
}

func TestApplyDoesNotStampUncountedTurn(t *testing.T) {
	p := trialPolicy()
	st := ir.NewEngineState()

	thresholds, phase := p.Apply(&st, false, 1000)
	assert.Nil(t, st.TrialStartedAtMs)
	assert.Equal(t, PhaseNotStarted, phase.Kind)
	assert.Equal(t, p.Normal(), thresholds)
}

func TestApplyDoesNotStampWhenDisabled(t *testing.T) {
	p := Default()
	st := ir.NewEngineState()

	_, phase := p.Apply(&st, true, 1000)
	assert.Nil(t, st.TrialStartedAtMs)
	assert.Equal(t, PhaseDisabled, phase.Kind)
}

func TestApplyNeverOverwritesStamp(t *testing.T) {
	p := trialPolicy()
	st := ir.NewEngineState()
	st.TrialStartedAtMs = ir.Int64Ptr(1000)

	later := 1000 + 5*minute
	_, phase := p.Apply(&st, true, later)
	assert.Equal(t, int64(1000), *st.TrialStartedAtMs)
	assert.Equal(t, PhaseActive, phase.Kind)
}

func TestApplyExpiredWindowStaysExpired(t *testing.T) {
	p := trialPolicy()
	st := ir.NewEngineState()
	st.TrialStartedAtMs = ir.Int64Ptr(0)

	for _, now := range []int64{1440 * minute, 2000 * minute, 9000 * minute} {
		thresholds, phase := p.Apply(&st, true, now)
		assert.Equal(t, PhaseExpired, phase.Kind)
		assert.Equal(t, p.Normal(), thresholds)
		assert.Equal(t, int64(0), *st.TrialStartedAtMs, "expired window is not restarted")
	}
}

func TestCustomDuration(t *testing.T) {
	p := trialPolicy()
	p.TrialDurationMinutes = 30
	st := ir.NewEngineState()
	st.TrialStartedAtMs = ir.Int64Ptr(0)

	assert.Equal(t, PhaseActive, p.Phase(st, 29*minute).Kind)
	assert.Equal(t, PhaseExpired, p.Phase(st, 30*minute).Kind)
}

func TestPhaseKindStringUnknown(t *testing.T) {
	assert.Equal(t, "PhaseKind(9)", PhaseKind(9).String())
}
