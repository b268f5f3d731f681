package report

import (
	"github.com/fatih/color"

	"github.com/surstitch/leadboard/internal/compute"
)

var (
	colorRed    = color.New(color.FgRed)
	colorYellow = color.New(color.FgYellow)
	colorGreen  = color.New(color.FgGreen)
	colorFaint  = color.New(color.Faint)
	colorBold   = color.New(color.Bold)
)

// ColorState colours a health state or insight level.
func ColorState(val string) string {
	switch val {
	case compute.StateCritical:
		return colorRed.Sprint(val)
	case compute.StateWarning:
		return colorYellow.Sprint(val)
	case compute.StateHealthy, compute.LevelOK:
		return colorGreen.Sprint(val)
	case compute.StateUnknown:
		return colorFaint.Sprint(val)
	default:
		return val
	}
}

// SectionTitle renders a bold section title.
func SectionTitle(title string) string {
	return colorBold.Sprint(title)
}
