package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wirnn/wirnn-service/internal/efd"
	"github.com/wirnn/wirnn-service/internal/metrics"
)

// Querier is the subset of the EFD client the HTTP surface needs.
// *efd.Client satisfies it.
type Querier interface {
	Schema(ctx context.Context, topic string) ([]efd.FieldDescriptor, error)
	FieldNames(ctx context.Context, topic string) ([]string, error)
	SelectTimeSeries(ctx context.Context, req efd.TimeSeriesRequest) (efd.Table, error)
}

// Handler serves all wirnn-service routes under the configured path prefix.
type Handler struct {
	prefix    string
	meta      Metadata
	querier   Querier
	collector *metrics.Collector
	mux       *http.ServeMux
}

// New creates a Handler and registers all routes under prefix.
// querier may be nil when no EFD instance is configured; topic routes then
// return 503. collector may be nil to disable counting.
func New(prefix string, meta Metadata, querier Querier, collector *metrics.Collector) http.Handler {
	h := &Handler{
		prefix:    strings.TrimSuffix(prefix, "/"),
		meta:      meta,
		querier:   querier,
		collector: collector,
		mux:       http.NewServeMux(),
	}

	h.mux.HandleFunc(h.prefix+"/", h.index)
	h.mux.HandleFunc(h.prefix+"/topics/", h.topics) // subtree — extracts {topic}/{op}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// index returns GET {prefix}/ — application metadata.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != h.prefix+"/" && r.URL.Path != h.prefix {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.collector.IncRequest("index")
	jsonResp(w, http.StatusOK, IndexResponse{Metadata: h.meta})
}

// topics dispatches GET {prefix}/topics/{topic}/{fields|schema|timeseries}.
func (h *Handler) topics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, h.prefix+"/topics/")
	topic, op, ok := strings.Cut(rest, "/")
	if !ok || topic == "" {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}

	if h.querier == nil {
		jsonErr(w, http.StatusServiceUnavailable, "no EFD instance configured")
		return
	}

	switch op {
	case "fields":
		h.collector.IncRequest("fields")
		h.fields(w, r, topic)
	case "schema":
		h.collector.IncRequest("schema")
		h.schema(w, r, topic)
	case "timeseries":
		h.collector.IncRequest("timeseries")
		h.timeseries(w, r, topic)
	default:
		jsonErr(w, http.StatusNotFound, "not found")
	}
}

// fields returns GET {prefix}/topics/{topic}/fields.
func (h *Handler) fields(w http.ResponseWriter, r *http.Request, topic string) {
	names, err := h.querier.FieldNames(r.Context(), topic)
	if err != nil {
		h.queryFailure(w, err)
		return
	}
	h.collector.IncQuery()
	jsonResp(w, http.StatusOK, FieldsResponse{Topic: topic, Fields: names})
}

// schema returns GET {prefix}/topics/{topic}/schema.
func (h *Handler) schema(w http.ResponseWriter, r *http.Request, topic string) {
	fields, err := h.querier.Schema(r.Context(), topic)
	if err != nil {
		h.queryFailure(w, err)
		return
	}
	h.collector.IncQuery()

	out := make([]FieldResponse, 0, len(fields))
	for _, f := range fields {
		out = append(out, FieldResponse{Name: f.Name, Type: f.Type.String()})
	}
	jsonResp(w, http.StatusOK, out)
}

// timeseries returns GET {prefix}/topics/{topic}/timeseries.
func (h *Handler) timeseries(w http.ResponseWriter, r *http.Request, topic string) {
	req := efd.TimeSeriesRequest{Topic: topic}

	q := r.URL.Query()
	if v := q.Get("fields"); v != "" {
		req.Fields = strings.Split(v, ",")
	}
	if v := q.Get("start"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid start: "+err.Error())
			return
		}
		req.Start = &ts
	}
	if v := q.Get("end"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid end: "+err.Error())
			return
		}
		req.End = &ts
	}
	if v := q.Get("sal_index"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid sal_index: "+err.Error())
			return
		}
		req.SALIndex = &n
	}

	table, err := h.querier.SelectTimeSeries(r.Context(), req)
	if err != nil {
		h.queryFailure(w, err)
		return
	}
	h.collector.IncQuery()
	jsonResp(w, http.StatusOK, ToTimeSeriesResponse(table))
}

// queryFailure maps an EFD error to an HTTP status: database read failures
// are 502, anything else (shape or coercion problems) is 500.
func (h *Handler) queryFailure(w http.ResponseWriter, err error) {
	h.collector.IncQueryError()
	var qErr *efd.QueryError
	if errors.As(err, &qErr) {
		jsonErr(w, http.StatusBadGateway, err.Error())
		return
	}
	jsonErr(w, http.StatusInternalServerError, err.Error())
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// ToTimeSeriesResponse maps an efd.Table to its JSON representation.
// Shared with the WebSocket hub so both surfaces emit the same shape.
func ToTimeSeriesResponse(t efd.Table) TimeSeriesResponse {
	resp := TimeSeriesResponse{
		Name:    t.Name,
		Columns: t.Columns,
		Index:   make([]string, len(t.Index)),
		Rows:    t.Rows,
	}
	if resp.Columns == nil {
		resp.Columns = []string{}
	}
	if resp.Rows == nil {
		resp.Rows = [][]interface{}{}
	}
	for i, ts := range t.Index {
		resp.Index[i] = ts.UTC().Format(time.RFC3339Nano)
	}
	return resp
}
