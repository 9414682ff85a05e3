// Package otel binds goSession engine metrics to an OpenTelemetry Meter.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and an
// Int64ObservableGauge per latency bucket, all fed by one callback that reads
// Engine.MetricsSnapshot on each collection. The caller owns the MeterProvider.
package otel
