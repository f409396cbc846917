package efd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// databaseName is the fixed database every query runs against.
const databaseName = "efd"

// Per-request timeouts. Connect is bounded separately from the full
// request so a slow query body read gets the longer budget.
const (
	connectTimeout = 30 * time.Second
	readTimeout    = 120 * time.Second
)

// isoFormat renders timestamps for WHERE clauses: ISO-8601 UTC with
// millisecond precision, "Z" appended by the query builder.
const isoFormat = "2006-01-02T15:04:05.000"

// Client issues read-only queries against one EFD instance. All fields are
// set at construction and never mutated, so a Client is safe for concurrent
// use. There is no retry, pooling, or pagination logic: every operation is
// one blocking HTTP request.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client from already-resolved credentials.
// The query base URL is https://{host}{path}.
func NewClient(creds Credentials) *Client {
	path := creds.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	transport := &basicAuthRoundTripper{
		base: &http.Transport{
			DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
		},
		username: creds.Username,
		password: creds.Password,
	}

	return &Client{
		baseURL: "https://" + creds.Host + strings.TrimSuffix(path, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   readTimeout,
		},
	}
}

// Connect resolves credentials for alias via the default secrets endpoint
// and constructs a Client from them.
func Connect(ctx context.Context, alias string) (*Client, error) {
	creds, err := NewResolver("").Resolve(ctx, alias)
	if err != nil {
		return nil, err
	}
	return NewClient(creds), nil
}

// basicAuthRoundTripper injects basic-auth credentials into every
// outgoing request.
type basicAuthRoundTripper struct {
	base     http.RoundTripper
	username string
	password string
}

func (t *basicAuthRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

// Query executes one query string against the database and returns the
// parsed response body. A transport failure, non-2xx status, or
// undecodable body returns a *QueryError carrying the original query.
func (c *Client) Query(ctx context.Context, query string) (QueryResponse, error) {
	params := url.Values{}
	params.Set("db", databaseName)
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/query?"+params.Encode(), nil)
	if err != nil {
		return QueryResponse{}, &QueryError{Query: query, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return QueryResponse{}, &QueryError{Query: query, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return QueryResponse{}, &QueryError{
			Query: query,
			Err:   fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var out QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return QueryResponse{}, &QueryError{Query: query, Err: err}
	}
	return out, nil
}

// Schema introspects the field keys of topic. The returned descriptors
// preserve the database's order, with a synthetic ("time", string) entry
// always first. The types are reported but never applied to query results.
func (c *Client) Schema(ctx context.Context, topic string) ([]FieldDescriptor, error) {
	resp, err := c.Query(ctx, fmt.Sprintf("SHOW FIELD KEYS FROM %q", topic))
	if err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 || len(resp.Results[0].Series) == 0 {
		return nil, fmt.Errorf("efd: no schema returned for topic %q", topic)
	}
	values := resp.Results[0].Series[0].Values

	fields := make([]FieldDescriptor, 0, len(values)+1)
	fields = append(fields, FieldDescriptor{Name: "time", Type: FieldString})
	for _, pair := range values {
		if len(pair) < 2 {
			return nil, fmt.Errorf("efd: malformed field key entry %v for topic %q", pair, topic)
		}
		name, ok := pair[0].(string)
		if !ok {
			return nil, fmt.Errorf("efd: field name %v is not a string", pair[0])
		}
		typ, ok := pair[1].(string)
		if !ok {
			return nil, fmt.Errorf("efd: field type %v is not a string", pair[1])
		}
		fields = append(fields, FieldDescriptor{Name: name, Type: fieldTypeOf(typ)})
	}
	return fields, nil
}

// FieldNames returns the field names of topic in schema order, "time" first.
func (c *Client) FieldNames(ctx context.Context, topic string) ([]string, error) {
	fields, err := c.Schema(ctx, topic)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names, nil
}

// TimeSeriesRequest selects rows from one topic. Nil optional fields emit
// no corresponding WHERE clause; empty Fields selects "*".
type TimeSeriesRequest struct {
	Topic  string
	Fields []string

	// Start and End bound the time column (inclusive), interpreted as UTC.
	Start *time.Time
	End   *time.Time

	// SALIndex restricts the query to one instance of a multi-instance topic.
	SALIndex *int
}

// buildQuery renders the SELECT statement for req. Clause order in the
// WHERE section is fixed: start, end, salIndex.
func buildQuery(req TimeSeriesRequest) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(req.Fields) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(req.Fields, ","))
	}
	fmt.Fprintf(&b, " FROM %q", req.Topic)

	var clauses []string
	if req.Start != nil {
		clauses = append(clauses, fmt.Sprintf("time >= '%sZ'", req.Start.UTC().Format(isoFormat)))
	}
	if req.End != nil {
		clauses = append(clauses, fmt.Sprintf("time <= '%sZ'", req.End.UTC().Format(isoFormat)))
	}
	if req.SALIndex != nil {
		clauses = append(clauses, "salIndex = "+strconv.Itoa(*req.SALIndex))
	}
	if len(clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}
	return b.String()
}

// SelectTimeSeries queries topic for a time series and shapes the first
// series of the first result into a Table. An empty result set (no series
// key) yields a zero-row, zero-column Table.
func (c *Client) SelectTimeSeries(ctx context.Context, req TimeSeriesRequest) (Table, error) {
	resp, err := c.Query(ctx, buildQuery(req))
	if err != nil {
		return Table{}, err
	}

	if len(resp.Results) == 0 {
		return Table{}, fmt.Errorf("efd: response for topic %q has no results", req.Topic)
	}
	result := resp.Results[0]

	if len(result.Series) == 0 {
		return Table{}, nil
	}
	return tableFromSeries(result.Series[0])
}
