// Package api implements the HTTP surface of wirnn-service.
//
// New(prefix, meta, querier, collector) returns an http.Handler serving,
// under the configured URL path prefix:
//
//	GET {prefix}/                             — application metadata
//	GET {prefix}/topics/{topic}/fields        — field names for a topic
//	GET {prefix}/topics/{topic}/schema        — field names and scalar types
//	GET {prefix}/topics/{topic}/timeseries    — time-indexed rows; params:
//	    fields (comma-separated), start, end (RFC3339), sal_index (int)
//
// All endpoints respond with Content-Type: application/json and return 405
// for non-GET methods. Topic routes return 503 when no EFD instance is
// configured and 502 when the database read fails. No external HTTP
// framework is used.
package api
