package compute

import (
	"time"

	"github.com/surstitch/leadboard/internal/leads"
)

// Result is one dashboard pass over a dataset. The KPI cards and insights
// describe the whole table; Snapshot and Health describe the filtered rows.
type Result struct {
	Timestamp      time.Time
	Filters        Filters
	Full           Snapshot
	FullHealth     HealthScore
	Filtered       *leads.Table
	Snapshot       Snapshot
	Health         HealthScore
	Insights       []Insight
	FilteredActive bool
}

// Engine binds a column schema to the metrics and filter functions.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	schema leads.Schema
}

// NewEngine returns an Engine reading the columns named by schema. Empty
// schema fields fall back to the defaults.
func NewEngine(schema leads.Schema) *Engine {
	return &Engine{schema: schema.WithDefaults()}
}

// Schema returns the effective column schema.
func (e *Engine) Schema() leads.Schema { return e.schema }

// Metrics computes the snapshot of ds.
func (e *Engine) Metrics(ds leads.Dataset) Snapshot {
	return Metrics(ds, e.schema)
}

// Filter narrows ds by f.
func (e *Engine) Filter(ds leads.Dataset, f Filters) *leads.Table {
	return Apply(ds, e.schema, f)
}

// Process runs filter, then metrics on the full and the filtered table.
//
// now is passed explicitly so callers (and tests) control the clock. Use
// time.Now() in production.
func (e *Engine) Process(ds leads.Dataset, f Filters, now time.Time) *Result {
	full := e.Metrics(ds)
	fullHealth := Health(full)
	filtered := e.Filter(ds, f)
	snap := e.Metrics(filtered)

	return &Result{
		Timestamp:      now,
		Filters:        f,
		Full:           full,
		FullHealth:     fullHealth,
		Filtered:       filtered,
		Snapshot:       snap,
		Health:         Health(snap),
		Insights:       Insights(full, fullHealth),
		FilteredActive: !f.IsZero(),
	}
}
