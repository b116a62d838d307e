// Package prometheus renders goPortal metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] wraps a [goPortal.Engine] and exposes an
// [http.Handler]. Counters are named goportal_*_total; the guard latency
// histogram is goportal_guard_latency_seconds and only appears when latency
// histograms are enabled. Engines also report two session gauges.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the
//     Handler.
//   - Mutate engine state.
package prometheus
