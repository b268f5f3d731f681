// Package telemetry exposes the dataset KPIs and service counters in the
// Prometheus text exposition format at /metrics.
//
// Metric families are built directly as client_model protobufs and encoded
// with expfmt; there is no registry. Every family is prefixed "leadboard_"
// and the dataset families carry a dataset label.
package telemetry
