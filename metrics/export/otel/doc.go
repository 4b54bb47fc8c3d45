// Package otel binds scopeAuth engine metrics to OpenTelemetry observable
// instruments.
//
// Counters become Int64ObservableCounter instruments. Each latency histogram
// becomes one Int64ObservableGauge per cumulative bucket plus a count gauge.
// The caller owns the MeterProvider.
package otel
