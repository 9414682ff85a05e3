// Package prometheus exports goSession engine metrics through client_golang.
//
// [Collector] reads Engine.MetricsSnapshot on each scrape and emits
// gosession_*_total counters plus the gosession_authorize_latency_seconds
// histogram. Register it on the caller's registry, or use [Handler] for a
// standalone /metrics endpoint. Nothing is registered globally.
package prometheus
