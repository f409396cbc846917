// Package efd is a client for the Engineering Facilities Database — an
// InfluxDB-style time-series telemetry store queried over HTTP.
//
// Construction is two-phase:
//
//	creds, err := efd.NewResolver("").Resolve(ctx, "usdf_efd")
//	client := efd.NewClient(creds)
//
// or Connect(ctx, alias) to do both. The client is read-only after
// construction and safe for concurrent use; every call issues one
// independent blocking HTTP request with no retries.
//
// Query results are shaped into a Table: rows indexed by UTC timestamp,
// response tags broadcast as constant columns, the series name attached
// as a label. A series without a "time" column is returned exactly as
// received.
package efd
