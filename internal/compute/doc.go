// Package compute derives the dashboard KPIs from a lead dataset.
//
// metrics.go provides Metrics(dataset, schema), the pure function that counts
// leads, L2QR-qualified leads and conversions, derives the three funnel
// percentages, picks the speed-to-lead value and averages the activity count.
//
// score.go provides Health(snapshot), the composite pipeline health score:
// L2QR rate (30), L2QR→account conversion (40), activity coverage (30),
// capped at 100. Bands: healthy >70, warning >40, critical otherwise.
//
// filter.go provides Apply(dataset, schema, filters): status and source
// equality, conversion state, and a case-insensitive search across every
// column, AND-ed together.
//
// engine.go ties them into one pass (Engine.Process) for the API, the
// WebSocket hub and the CLI. insights.go maps KPIs to coloured readings.
//
// Nothing in this package returns an error. Missing columns and malformed
// cells fall back to zero values.
package compute
