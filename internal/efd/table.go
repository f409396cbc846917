package efd

import (
	"fmt"
	"sort"
	"time"
)

// Table is a tabular query result. When the source series carried a "time"
// column, Index holds the parsed UTC timestamp for each row and the column
// itself is dropped from Columns. Otherwise Index is nil and the table is
// exactly what the database returned.
//
// A Table is built fresh on every query and never mutated afterwards.
// Cell values are the raw JSON values — the schema's field types are not
// applied (see Schema).
type Table struct {
	// Name is the measurement name label, when the response carried one.
	Name string

	Columns []string
	Index   []time.Time
	Rows    [][]interface{}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Column returns the values of the named column, one per row, and whether
// the column exists.
func (t Table) Column(name string) ([]interface{}, bool) {
	for i, c := range t.Columns {
		if c != name {
			continue
		}
		out := make([]interface{}, len(t.Rows))
		for j, row := range t.Rows {
			out[j] = row[i]
		}
		return out, true
	}
	return nil, false
}

// tableFromSeries shapes one response series into a Table.
//
// Without a "time" column the series is returned as-is: no index, and no
// tag or name injection. With one, each time cell is parsed as an RFC3339
// UTC timestamp to form the row index, the column is removed, tags are
// broadcast as constant-valued columns (in sorted key order), and the
// series name becomes the table label.
func tableFromSeries(s Series) (Table, error) {
	timeIdx := -1
	for i, c := range s.Columns {
		if c == "time" {
			timeIdx = i
			break
		}
	}

	if timeIdx < 0 {
		return Table{Columns: s.Columns, Rows: s.Values}, nil
	}

	cols := make([]string, 0, len(s.Columns)-1)
	for i, c := range s.Columns {
		if i != timeIdx {
			cols = append(cols, c)
		}
	}

	index := make([]time.Time, 0, len(s.Values))
	rows := make([][]interface{}, 0, len(s.Values))
	for _, v := range s.Values {
		if len(v) != len(s.Columns) {
			return Table{}, fmt.Errorf("efd: row has %d cells, want %d", len(v), len(s.Columns))
		}
		raw, ok := v[timeIdx].(string)
		if !ok {
			return Table{}, fmt.Errorf("efd: time cell %v is not a string", v[timeIdx])
		}
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Table{}, fmt.Errorf("efd: parse time cell %q: %w", raw, err)
		}
		index = append(index, ts.UTC())

		row := make([]interface{}, 0, len(v)-1)
		for i, cell := range v {
			if i != timeIdx {
				row = append(row, cell)
			}
		}
		rows = append(rows, row)
	}

	if len(s.Tags) > 0 {
		keys := make([]string, 0, len(s.Tags))
		for k := range s.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cols = append(cols, k)
			for i := range rows {
				rows[i] = append(rows[i], s.Tags[k])
			}
		}
	}

	return Table{Name: s.Name, Columns: cols, Index: index, Rows: rows}, nil
}
