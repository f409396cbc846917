package efd

// QueryResponse is the JSON body returned by the database's /query endpoint.
type QueryResponse struct {
	Results []Result `json:"results"`
}

// Result is one statement result. An empty result set has no series key.
type Result struct {
	Series []Series `json:"series,omitempty"`
}

// Series is one measurement's data within a result: column labels, row
// values, and optional tags and measurement name.
type Series struct {
	Name    string            `json:"name,omitempty"`
	Columns []string          `json:"columns"`
	Values  [][]interface{}   `json:"values"`
	Tags    map[string]string `json:"tags,omitempty"`
}
