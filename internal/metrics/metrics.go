package metrics

import (
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metric names exposed at /metrics.
const (
	requestsName          = "wirnn_http_requests_total"
	queriesName           = "wirnn_efd_queries_total"
	queryErrorsName       = "wirnn_efd_query_errors_total"
	credentialFetchesName = "wirnn_efd_credential_fetches_total"
)

// Collector counts service activity and exposes it in Prometheus text
// exposition format. All methods are safe for concurrent use and are
// no-ops on a nil receiver, so callers can leave metrics unwired.
type Collector struct {
	mu                sync.Mutex
	requests          map[string]float64 // by route
	queries           float64
	queryErrors       float64
	credentialFetches float64
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{requests: make(map[string]float64)}
}

// IncRequest counts one handled request for the named route.
func (c *Collector) IncRequest(route string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.requests[route]++
	c.mu.Unlock()
}

// IncQuery counts one successful database query.
func (c *Collector) IncQuery() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.queries++
	c.mu.Unlock()
}

// IncQueryError counts one failed database query.
func (c *Collector) IncQueryError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.queryErrors++
	c.mu.Unlock()
}

// IncCredentialFetch counts one credential resolution attempt.
func (c *Collector) IncCredentialFetch() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.credentialFetches++
	c.mu.Unlock()
}

// Handler serves GET /metrics in Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range c.gather() {
			// The text encoder rejects families with no metrics.
			if len(mf.Metric) == 0 {
				continue
			}
			if err := enc.Encode(mf); err != nil {
				return
			}
		}
	})
}

// gather builds the metric families from the current counter values.
func (c *Collector) gather() []*dto.MetricFamily {
	c.mu.Lock()
	defer c.mu.Unlock()

	requests := &dto.MetricFamily{
		Name: strPtr(requestsName),
		Help: strPtr("Requests handled, by route."),
		Type: counterType(),
	}
	routes := make([]string, 0, len(c.requests))
	for route := range c.requests {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	for _, route := range routes {
		requests.Metric = append(requests.Metric, &dto.Metric{
			Label: []*dto.LabelPair{
				{Name: strPtr("route"), Value: strPtr(route)},
			},
			Counter: &dto.Counter{Value: f64Ptr(c.requests[route])},
		})
	}

	return []*dto.MetricFamily{
		requests,
		counterFamily(queriesName, "Database queries executed.", c.queries),
		counterFamily(queryErrorsName, "Database queries that failed.", c.queryErrors),
		counterFamily(credentialFetchesName, "Credential resolutions attempted.", c.credentialFetches),
	}
}

func counterFamily(name, help string, value float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   strPtr(name),
		Help:   strPtr(help),
		Type:   counterType(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: f64Ptr(value)}}},
	}
}

func counterType() *dto.MetricType {
	t := dto.MetricType_COUNTER
	return &t
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
