package compute

import (
	"math"
	"strconv"
	"strings"

	"github.com/surstitch/leadboard/internal/leads"
)

// NoSpeed is the speed-to-lead value reported when no row carries one.
const NoSpeed = "00:00"

// speedWidth is the number of leading characters kept from a speed-to-lead
// cell (HH:MM).
const speedWidth = 5

// Snapshot is the set of funnel KPIs computed from one dataset. It is a plain
// value: recompute rather than mutate.
type Snapshot struct {
	LeadCount      int `json:"lead_count"`
	L2QRCount      int `json:"l2qr_count"`
	ConvertedCount int `json:"converted_count"`

	// Percentages are 0 when their denominator is 0.
	LeadToConvertPct float64 `json:"lead_to_convert_pct"`
	LeadToL2QRPct    float64 `json:"lead_to_l2qr_pct"`
	L2QRToConvertPct float64 `json:"l2qr_to_convert_pct"`

	// MedianSpeedToLead is the HH:MM prefix of the speed value at position
	// n/2 of the non-empty speed cells in row order. The cells are not
	// sorted first, so this is a positional pick and not a statistical median.
	MedianSpeedToLead string `json:"median_speed_to_lead"`

	// ActivityCountAvg is the mean of the activity cells that parse as a
	// finite number.
	ActivityCountAvg float64 `json:"activity_count_avg"`
}

// Empty returns the snapshot of an empty or missing dataset.
func Empty() Snapshot {
	return Snapshot{MedianSpeedToLead: NoSpeed}
}

// Metrics computes the KPI snapshot of ds. A nil dataset, an empty one, or
// one lacking any of the schema columns degrades to zero values; Metrics
// never fails.
func Metrics(ds leads.Dataset, schema leads.Schema) Snapshot {
	if ds == nil {
		return Empty()
	}
	n := ds.Len()
	if n == 0 {
		return Empty()
	}
	schema = schema.WithDefaults()

	s := Snapshot{LeadCount: n}

	var activitySum float64
	var activityN int
	var speeds []string
	for r := 0; r < n; r++ {
		if leads.TruthyAt(ds, r, schema.L2QR) {
			s.L2QRCount++
		}
		if leads.TruthyAt(ds, r, schema.Converted) {
			s.ConvertedCount++
		}
		if v, ok := ds.Value(r, schema.Speed); ok {
			speeds = append(speeds, v)
		}
		if v, ok := parseNumber(ds, r, schema.Activity); ok {
			activitySum += v
			activityN++
		}
	}

	s.LeadToConvertPct = pct(s.ConvertedCount, s.LeadCount)
	s.LeadToL2QRPct = pct(s.L2QRCount, s.LeadCount)
	s.L2QRToConvertPct = pct(s.ConvertedCount, s.L2QRCount)
	s.MedianSpeedToLead = positionalSpeed(speeds)
	if activityN > 0 {
		s.ActivityCountAvg = activitySum / float64(activityN)
	}
	return s
}

// pct returns num/den*100, or 0 when den is 0.
func pct(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

// positionalSpeed picks speeds[len/2] in the order given and truncates it to
// HH:MM. Returns NoSpeed for an empty slice.
func positionalSpeed(speeds []string) string {
	if len(speeds) == 0 {
		return NoSpeed
	}
	v := []rune(speeds[len(speeds)/2])
	if len(v) > speedWidth {
		v = v[:speedWidth]
	}
	return string(v)
}

// parseNumber reads a numeric cell. Empty, unparseable and non-finite cells
// report ok=false.
func parseNumber(ds leads.Dataset, row int, column string) (float64, bool) {
	raw, ok := ds.Value(row, column)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// SpeedMinutes converts an HH:MM speed-to-lead value into minutes.
// ok is false unless the value has exactly two unsigned integer parts.
func SpeedMinutes(speed string) (minutes int, ok bool) {
	hh, mm, found := strings.Cut(speed, ":")
	if !found || strings.Contains(mm, ":") {
		return 0, false
	}
	h, ok := digits(hh)
	if !ok {
		return 0, false
	}
	m, ok := digits(mm)
	if !ok {
		return 0, false
	}
	return h*60 + m, true
}

// digits parses s as a non-empty run of ASCII digits.
func digits(s string) (int, bool) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
