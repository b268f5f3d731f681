package compute

import "fmt"

// Insight levels, in display priority order.
const (
	LevelCritical = "critical"
	LevelWarning  = "warning"
	LevelOK       = "ok"
	LevelUnknown  = "unknown"
)

// Insight is one human-readable reading of a KPI. The dashboard shows these
// as coloured chips next to the KPI cards.
type Insight struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "warning" | "critical" | "unknown".
	Level string `json:"level"`
	// Title is a short label shown on the chip.
	Title string `json:"title"`
	// Detail is the longer explanation shown on hover.
	Detail string `json:"detail"`
	// Value is the KPI value the level was derived from.
	Value *float64 `json:"value,omitempty"`
}

// band returns ok when v > okAbove, warning when v > warnAbove, else critical.
func band(v, okAbove, warnAbove float64) string {
	switch {
	case v > okAbove:
		return LevelOK
	case v > warnAbove:
		return LevelWarning
	default:
		return LevelCritical
	}
}

// Insights derives one insight per headline KPI from a snapshot and its
// health score. The order is fixed: conversion, L2QR conversion, speed,
// activity, health.
func Insights(s Snapshot, h HealthScore) []Insight {
	out := make([]Insight, 0, 5)

	conv := s.LeadToConvertPct
	out = append(out, Insight{
		Key:   "lead_to_convert",
		Level: band(conv, 5, 2),
		Title: fmt.Sprintf("%.1f%% lead → account", conv),
		Detail: fmt.Sprintf("%d of %d leads converted to accounts. Above 5%% is healthy, "+
			"2–5%% needs attention, below 2%% is critical.", s.ConvertedCount, s.LeadCount),
		Value: &conv,
	})

	l2qrConv := s.L2QRToConvertPct
	out = append(out, Insight{
		Key:   "l2qr_to_convert",
		Level: band(l2qrConv, 20, 10),
		Title: fmt.Sprintf("%.1f%% L2QR → account", l2qrConv),
		Detail: fmt.Sprintf("%d of %d qualified leads converted. Above 20%% is healthy, "+
			"10–20%% needs attention, below 10%% is critical.", s.ConvertedCount, s.L2QRCount),
		Value: &l2qrConv,
	})

	speed := Insight{
		Key:   "speed_to_lead",
		Level: LevelUnknown,
		Title: "Speed to lead " + s.MedianSpeedToLead,
		Detail: "Typical time to first contact. Under one hour is healthy, " +
			"under four hours needs attention, anything slower is critical.",
	}
	if mins, ok := SpeedMinutes(s.MedianSpeedToLead); ok {
		m := float64(mins)
		speed.Value = &m
		switch {
		case mins < 60:
			speed.Level = LevelOK
		case mins < 240:
			speed.Level = LevelWarning
		default:
			speed.Level = LevelCritical
		}
	}
	out = append(out, speed)

	act := s.ActivityCountAvg
	out = append(out, Insight{
		Key:   "activity",
		Level: band(act, 3, 1),
		Title: fmt.Sprintf("%.1f activities / lead", act),
		Detail: "Average calls, emails, texts and form fills per lead. " +
			"More than 3 is healthy, more than 1 needs attention.",
		Value: &act,
	})

	score := h.Score
	out = append(out, Insight{
		Key:   "pipeline_health",
		Level: band(score, ThresholdHealthy, ThresholdWarning),
		Title: fmt.Sprintf("Pipeline health %.0f", score),
		Detail: fmt.Sprintf("L2QR rate %.1f%% (target 20%%+), conversion rate %.1f%% (target 50%%+), "+
			"activity coverage %.1f per lead (target 5+).",
			s.LeadToL2QRPct, s.L2QRToConvertPct, s.ActivityCountAvg),
		Value: &score,
	})

	return out
}
