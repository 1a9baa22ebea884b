// Package prometheus exposes goSession metrics as a Prometheus collector.
//
// [NewPrometheusExporter] wraps a [goSession.Gate]; [PrometheusExporter.Handler]
// serves the collector from a private registry. Counter names are
// gosession_*_total and latency histograms are gosession_*_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers either mount
//     the Handler or register the exporter themselves.
//   - Mutate gate state.
package prometheus
