// Package prometheus exposes scopeAuth engine metrics through
// github.com/prometheus/client_golang.
//
// [NewCollector] returns a prometheus.Collector that snapshots the engine on
// every scrape. Counters are named scopeauth_*_total and latency histograms
// scopeauth_*_latency_seconds. The package never touches the global
// registry.
package prometheus
