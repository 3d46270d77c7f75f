// Package prometheus exposes goGate engine metrics as a Prometheus collector.
//
// [NewExporter] wraps a [goGate.Engine]; the result can be registered with any
// [prometheus.Registerer] or served directly through [Exporter.Handler]. Counter
// names are gogate_*_total and the single histogram is
// gogate_invoke_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry on its own.
//   - Mutate engine state.
package prometheus
