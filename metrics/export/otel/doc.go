// Package otel publishes goSession metrics through an OpenTelemetry meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per gate counter and
// one Int64ObservableGauge per histogram bucket. A single callback reads
// [goSession.Gate.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate gate state.
package otel
