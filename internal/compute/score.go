package compute

import "math"

// Weights and targets for the pipeline health formula.
//
//	health = min(100,
//	    (lead_to_l2qr_pct / 20) * 30 +
//	    (l2qr_to_convert_pct / 50) * 40 +
//	    (min(activity_count_avg, 5) / 5) * 30)
//
// Only the activity average and the final sum are clamped. A rate above its
// target contributes more than its weight.
const (
	weightL2QR       = 30.0
	weightConversion = 40.0
	weightActivity   = 30.0

	targetL2QRPct       = 20.0
	targetConversionPct = 50.0
	targetActivity      = 5.0

	maxHealth = 100.0
)

// State constants returned by the score calculator.
const (
	StateHealthy  = "healthy"
	StateWarning  = "warning"
	StateCritical = "critical"
	StateUnknown  = "unknown"
)

// Thresholds that map a score to a health state. Both are exclusive.
const (
	ThresholdHealthy = 70.0
	ThresholdWarning = 40.0
)

// HealthScore is the result of the pipeline health calculation.
type HealthScore struct {
	// Score is the composite health score in the range 0–100.
	Score float64 `json:"score"`

	// State is the band Score falls in: "healthy", "warning" or "critical".
	State string `json:"state"`

	// The unclamped contribution of each input, for breakdown displays.
	L2QRTerm       float64 `json:"l2qr_term"`
	ConversionTerm float64 `json:"conversion_term"`
	ActivityTerm   float64 `json:"activity_term"`
}

// Health calculates the pipeline health score of a snapshot.
func Health(s Snapshot) HealthScore {
	l2qr := (s.LeadToL2QRPct / targetL2QRPct) * weightL2QR
	conv := (s.L2QRToConvertPct / targetConversionPct) * weightConversion
	act := (math.Min(s.ActivityCountAvg, targetActivity) / targetActivity) * weightActivity

	score := math.Min(maxHealth, l2qr+conv+act)
	return HealthScore{
		Score:          score,
		State:          stateFromScore(score),
		L2QRTerm:       l2qr,
		ConversionTerm: conv,
		ActivityTerm:   act,
	}
}

// stateFromScore maps a numeric score to a named health state.
func stateFromScore(score float64) string {
	switch {
	case score > ThresholdHealthy:
		return StateHealthy
	case score > ThresholdWarning:
		return StateWarning
	default:
		return StateCritical
	}
}
