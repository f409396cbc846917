// Package metrics counts requests, database queries, and credential
// fetches, and serves them at /metrics in Prometheus text exposition
// format. Counter methods are nil-receiver safe so instrumentation can be
// left unwired in tests.
package metrics
