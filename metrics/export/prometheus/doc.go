// Package prometheus renders engine metrics in Prometheus text exposition
// format, without depending on the Prometheus client library.
//
// The exporter pulls a MetricsSnapshot on each scrape; it holds no state of
// its own and is safe for concurrent scrapes.
package prometheus
