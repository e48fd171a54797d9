// Package otel bridges engine metrics to OpenTelemetry observable
// instruments.
//
// Counters map to Int64ObservableCounter; the fixed-bucket latency
// histogram maps to one Int64ObservableGauge per cumulative bucket plus a
// count gauge, since the core snapshot carries counts rather than raw
// samples.
package otel
