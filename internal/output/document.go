// Package output serializes result tables to the supported formats.
package output

import (
	"math"
	"strconv"

	"github.com/couchcryptid/county-loads/internal/timeseries"
)

// timestampLayout matches the upstream datasets' timestamp convention.
const timestampLayout = "2006-01-02 15:04:05-07:00"

// Document is a rendered table: a header row plus pre-formatted cells. All
// writers consume this one shape, so timeseries and annual scalar results
// serialize the same way.
type Document struct {
	Columns []string
	Rows    [][]string
}

// FromTable renders a timeseries table. Precision caps the decimals written;
// negative precision writes full float64 precision.
func FromTable(t *timeseries.Table, precision int) *Document {
	cols := t.Columns()
	doc := &Document{Columns: append([]string{"timestamp"}, cols...)}
	index := t.Index()
	doc.Rows = make([][]string, len(index))
	for i, ts := range index {
		row := make([]string, len(cols)+1)
		row[0] = ts.Format(timestampLayout)
		for c, name := range cols {
			vals, _ := t.Column(name)
			row[c+1] = formatValue(vals[i], precision)
		}
		doc.Rows[i] = row
	}
	return doc
}

// FromScalars renders named scalars as a single row, for the annual sectors.
func FromScalars(names []string, values map[string]float64, precision int) *Document {
	row := make([]string, len(names))
	for i, name := range names {
		row[i] = formatValue(values[name], precision)
	}
	return &Document{Columns: names, Rows: [][]string{row}}
}

func formatValue(v float64, precision int) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if precision >= 0 {
		p := math.Pow10(precision)
		v = math.Round(v*p) / p
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
