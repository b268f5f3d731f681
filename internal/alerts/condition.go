package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/surstitch/leadboard/internal/compute"
)

// Input is everything a rule can look at: the full-table KPIs of one reload.
type Input struct {
	Dataset   string
	Snapshot  compute.Snapshot
	Health    compute.HealthScore
	LoadError string
}

// numericFields lists the fields usable with a numeric comparison.
var numericFields = map[string]func(in Input) (float64, bool){
	"lead_count":          func(in Input) (float64, bool) { return float64(in.Snapshot.LeadCount), true },
	"l2qr_count":          func(in Input) (float64, bool) { return float64(in.Snapshot.L2QRCount), true },
	"converted_count":     func(in Input) (float64, bool) { return float64(in.Snapshot.ConvertedCount), true },
	"lead_to_convert_pct": func(in Input) (float64, bool) { return in.Snapshot.LeadToConvertPct, true },
	"lead_to_l2qr_pct":    func(in Input) (float64, bool) { return in.Snapshot.LeadToL2QRPct, true },
	"l2qr_to_convert_pct": func(in Input) (float64, bool) { return in.Snapshot.L2QRToConvertPct, true },
	"activity_count_avg":  func(in Input) (float64, bool) { return in.Snapshot.ActivityCountAvg, true },
	"health_score":        func(in Input) (float64, bool) { return in.Health.Score, true },
	"speed_to_lead_minutes": func(in Input) (float64, bool) {
		m, ok := compute.SpeedMinutes(in.Snapshot.MedianSpeedToLead)
		return float64(m), ok
	},
	"load_failed": func(in Input) (float64, bool) {
		if in.LoadError != "" {
			return 1, true
		}
		return 0, true
	},
}

// condition is a parsed rule expression: field operator value.
type condition struct {
	field     string
	op        string
	rhs       string
	threshold float64
}

// parseCondition parses a rule condition string.
//
// Supported expressions (field operator value):
//
//	lead_to_convert_pct < 2
//	l2qr_to_convert_pct <= 10
//	activity_count_avg < 1
//	speed_to_lead_minutes > 240
//	health_score < 40
//	lead_count == 0
//	load_failed > 0
//	state == critical
func parseCondition(cond string) (condition, error) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return condition{}, fmt.Errorf("condition %q: want \"field op value\"", cond)
	}
	c := condition{field: parts[0], op: parts[1], rhs: parts[2]}

	if c.field == "state" {
		if c.op != "==" && c.op != "!=" {
			return condition{}, fmt.Errorf("condition %q: state supports == and != only", cond)
		}
		return c, nil
	}
	if _, ok := numericFields[c.field]; !ok {
		return condition{}, fmt.Errorf("condition %q: unknown field %q", cond, c.field)
	}
	switch c.op {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return condition{}, fmt.Errorf("condition %q: unknown operator %q", cond, c.op)
	}
	v, err := strconv.ParseFloat(c.rhs, 64)
	if err != nil {
		return condition{}, fmt.Errorf("condition %q: value %q is not a number", cond, c.rhs)
	}
	c.threshold = v
	return c, nil
}

// eval reports whether the condition holds for in, and the triggering value.
// A field without a usable value (e.g. an unparseable speed) never fires.
func (c condition) eval(in Input) (bool, float64) {
	if c.field == "state" {
		eq := in.Health.State == c.rhs
		if c.op == "!=" {
			return !eq, in.Health.Score
		}
		return eq, in.Health.Score
	}
	v, ok := numericFields[c.field](in)
	if !ok {
		return false, 0
	}
	return compareFloat(v, c.op, c.threshold), v
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
