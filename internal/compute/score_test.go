package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- Health() table-driven tests ---

func TestHealth_States(t *testing.T) {
	tests := []struct {
		name      string
		in        Snapshot
		wantState string
		wantScore float64
	}{
		{
			name:      "empty snapshot",
			in:        Empty(),
			wantState: StateCritical,
			wantScore: 0,
		},
		{
			name: "every target met exactly",
			// (20/20)*30 + (50/50)*40 + (5/5)*30 = 100
			in:        Snapshot{LeadToL2QRPct: 20, L2QRToConvertPct: 50, ActivityCountAvg: 5},
			wantState: StateHealthy,
			wantScore: 100,
		},
		{
			name: "clamped at 100",
			// (40/20)*30 + (100/50)*40 + (5/5)*30 = 60 + 80 + 30 = 170 → 100
			in:        Snapshot{LeadToL2QRPct: 40, L2QRToConvertPct: 100, ActivityCountAvg: 10},
			wantState: StateHealthy,
			wantScore: 100,
		},
		{
			name: "warning band",
			// (10/20)*30 + (25/50)*40 + (2.5/5)*30 = 15 + 20 + 15 = 50
			in:        Snapshot{LeadToL2QRPct: 10, L2QRToConvertPct: 25, ActivityCountAvg: 2.5},
			wantState: StateWarning,
			wantScore: 50,
		},
		{
			name: "exactly 70 is still warning",
			// (20/20)*30 + (50/50)*40 + 0 = 70
			in:        Snapshot{LeadToL2QRPct: 20, L2QRToConvertPct: 50},
			wantState: StateWarning,
			wantScore: 70,
		},
		{
			name: "exactly 40 is critical",
			// 0 + (50/50)*40 + 0 = 40
			in:        Snapshot{L2QRToConvertPct: 50},
			wantState: StateCritical,
			wantScore: 40,
		},
		{
			name: "one rate above target carries the score",
			// (60/20)*30 = 90, no other input
			in:        Snapshot{LeadToL2QRPct: 60},
			wantState: StateHealthy,
			wantScore: 90,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := Health(tc.in)
			assert.Equal(t, tc.wantState, out.State, "score=%.2f", out.Score)
			assert.InDelta(t, tc.wantScore, out.Score, 0.001)
		})
	}
}

func TestHealth_TermsAreNotClampedIndividually(t *testing.T) {
	out := Health(Snapshot{LeadToL2QRPct: 40, L2QRToConvertPct: 100, ActivityCountAvg: 10})
	assert.InDelta(t, 60, out.L2QRTerm, 0.001)
	assert.InDelta(t, 80, out.ConversionTerm, 0.001)
	assert.InDelta(t, 30, out.ActivityTerm, 0.001, "activity is clamped at 5 before weighting")
	assert.InDelta(t, 100, out.Score, 0.001)
}

func TestHealth_TermsSumToScoreBelowCap(t *testing.T) {
	out := Health(Snapshot{LeadToL2QRPct: 7, L2QRToConvertPct: 12, ActivityCountAvg: 1.3})
	assert.InDelta(t, out.L2QRTerm+out.ConversionTerm+out.ActivityTerm, out.Score, 0.0001)
}

func TestHealth_ScoreNeverAbove100(t *testing.T) {
	cases := []Snapshot{
		{LeadToL2QRPct: 100, L2QRToConvertPct: 100, ActivityCountAvg: 100},
		{LeadToL2QRPct: 1000},
		{L2QRToConvertPct: 500},
	}
	for _, in := range cases {
		assert.LessOrEqual(t, Health(in).Score, 100.0, "input %+v", in)
	}
}

// --- stateFromScore ---

func TestStateFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, StateHealthy},
		{70.01, StateHealthy},
		{70, StateWarning},
		{40.01, StateWarning},
		{40, StateCritical},
		{0, StateCritical},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, stateFromScore(tc.score), "stateFromScore(%.2f)", tc.score)
	}
}
