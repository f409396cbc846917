package api

// Metadata describes the running application, served at the index route.
type Metadata struct {
	Name             string `json:"name"`
	Version          string `json:"version"`
	Description      string `json:"description"`
	RepositoryURL    string `json:"repository_url"`
	DocumentationURL string `json:"documentation_url"`
}

// IndexResponse is the payload for GET {prefix}/.
type IndexResponse struct {
	Metadata Metadata `json:"metadata"`
}

// FieldsResponse is the payload for GET {prefix}/topics/{topic}/fields.
type FieldsResponse struct {
	Topic  string   `json:"topic"`
	Fields []string `json:"fields"`
}

// FieldResponse is one schema entry in GET {prefix}/topics/{topic}/schema.
type FieldResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TimeSeriesResponse is the payload for GET {prefix}/topics/{topic}/timeseries.
// Index holds one RFC3339 timestamp per row when the source data carried a
// time column.
type TimeSeriesResponse struct {
	Name    string          `json:"name,omitempty"`
	Columns []string        `json:"columns"`
	Index   []string        `json:"index"`
	Rows    [][]interface{} `json:"rows"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
