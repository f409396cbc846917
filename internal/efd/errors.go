package efd

import "fmt"

// ConnectionError indicates the credential fetch from the secrets service
// failed. It names the URL that could not be reached; the response body,
// if any, is never inspected.
type ConnectionError struct {
	// URL is the full secrets-service URL that failed.
	URL string

	// Status is the HTTP status code, or 0 for transport-level failures.
	Status int

	// Err is the underlying transport error, if any.
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("efd: could not connect to %s (status %d)", e.URL, e.Status)
	}
	return fmt.Sprintf("efd: could not connect to %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError indicates a database query could not be executed: a transport
// failure, a non-2xx status, or an undecodable response body. It carries the
// original query string and wraps the underlying cause.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("efd: could not read data from database with query %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
