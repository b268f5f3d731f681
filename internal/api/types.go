package api

import (
	"github.com/surstitch/leadboard/internal/compute"
	"github.com/surstitch/leadboard/internal/source"
	"github.com/surstitch/leadboard/internal/view"
)

// HealthResponse is the payload for GET /api/v1/health and POST /api/v1/reload.
type HealthResponse struct {
	// Status is "ok", or "degraded" while the last dataset load has failed.
	Status      string  `json:"status"`
	Version     string  `json:"version,omitempty"`
	Dataset     string  `json:"dataset"`
	Rows        int     `json:"rows"`
	Columns     int     `json:"columns"`
	LoadedAt    string  `json:"loaded_at,omitempty"` // RFC3339
	LoadError   string  `json:"load_error,omitempty"`
	Reloads     int     `json:"reloads"`
	Failures    int     `json:"failures"`
	HealthScore float64 `json:"health_score"`
	State       string  `json:"state"`
	AlertCount  int     `json:"alert_count"`
}

// MetricsResponse is the payload for GET /api/v1/metrics and the data of
// every WebSocket "metrics" message. Full and Health describe the whole
// table; Filtered and FilteredHealth describe the rows matching Filters.
type MetricsResponse struct {
	GeneratedAt    string            `json:"generated_at"` // RFC3339
	Filters        compute.Filters   `json:"filters"`
	FilteredActive bool              `json:"filtered_active"`
	Full           compute.Snapshot  `json:"full"`
	Filtered       compute.Snapshot  `json:"filtered"`
	Health         HealthBreakdown   `json:"health"`
	FilteredHealth HealthBreakdown   `json:"filtered_health"`
	Insights       []compute.Insight `json:"insights"`
	LoadError      string            `json:"load_error,omitempty"`
}

// HealthBreakdown is a health score with its three weighted terms.
type HealthBreakdown struct {
	Score      float64 `json:"score"`
	State      string  `json:"state"`
	L2QR       float64 `json:"l2qr_term"`
	Conversion float64 `json:"conversion_term"`
	Activity   float64 `json:"activity_term"`
}

// FiltersResponse is the payload for GET /api/v1/filters: the choices of each
// filter control, with "All" first.
type FiltersResponse struct {
	Status     []string `json:"status"`
	Source     []string `json:"source"`
	Conversion []string `json:"conversion"`
}

// LeadsResponse is the payload for GET /api/v1/leads: one page of filtered
// rows projected through the view.
type LeadsResponse struct {
	Columns []view.Column `json:"columns"`
	Rows    [][]string    `json:"rows"`
	Total   int           `json:"total"`
	Offset  int           `json:"offset"`
	Limit   int           `json:"limit"`
}

// ViewResponse is the payload for GET and PUT /api/v1/view.
type ViewResponse struct {
	Columns []view.Column     `json:"columns"`
	Visible []string          `json:"visible"`
	Labels  map[string]string `json:"labels"`
}

// ViewRequest is the body of PUT /api/v1/view. A nil Labels leaves the
// labels unchanged.
type ViewRequest struct {
	Columns []string          `json:"columns"`
	Labels  map[string]string `json:"labels"`
}

// SourceResponse is the payload for GET /api/v1/source.
type SourceResponse struct {
	source.Description
	Cert *source.CertStatus `json:"cert,omitempty"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

func breakdown(h compute.HealthScore) HealthBreakdown {
	return HealthBreakdown{
		Score:      h.Score,
		State:      h.State,
		L2QR:       h.L2QRTerm,
		Conversion: h.ConversionTerm,
		Activity:   h.ActivityTerm,
	}
}
