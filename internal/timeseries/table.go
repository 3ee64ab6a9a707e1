package timeseries

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Table is an ordered timeseries table: a shared timestamp index plus named
// float64 columns of equal length. Column order is preserved as inserted
// until SortColumns is called.
type Table struct {
	index   []time.Time
	order   []string
	columns map[string][]float64
}

// New creates an empty table over the given index.
func New(index []time.Time) *Table {
	return &Table{
		index:   index,
		columns: make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.index) }

// Index returns the timestamp index. Callers must not mutate it.
func (t *Table) Index() []time.Time { return t.index }

// Columns returns the column names in table order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// AddColumn appends a named column. The value count must match the index.
func (t *Table) AddColumn(name string, values []float64) error {
	if len(values) != len(t.index) {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(t.index))
	}
	if _, ok := t.columns[name]; ok {
		return fmt.Errorf("column %q already exists", name)
	}
	t.columns[name] = values
	t.order = append(t.order, name)
	return nil
}

// SetColumn adds a column or replaces an existing one of the same name.
func (t *Table) SetColumn(name string, values []float64) error {
	if len(values) != len(t.index) {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(t.index))
	}
	if _, ok := t.columns[name]; !ok {
		t.order = append(t.order, name)
	}
	t.columns[name] = values
	return nil
}

// Column returns the named column's values, or false if absent.
func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.columns[name]
	return v, ok
}

// DropColumn removes the named column if present.
func (t *Table) DropColumn(name string) {
	if _, ok := t.columns[name]; !ok {
		return
	}
	delete(t.columns, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Remap returns a new table containing only the source columns named in the
// dictionary, renamed to their canonical names. Source columns not in the
// dictionary are dropped; dictionary entries missing from the source are
// skipped.
func (t *Table) Remap(dict map[string]string) *Table {
	out := New(t.index)
	// Deterministic output order: canonical names sorted.
	canon := make([]string, 0, len(dict))
	bySource := make(map[string]string, len(dict))
	for src, dst := range dict {
		if _, ok := t.columns[src]; !ok {
			continue
		}
		canon = append(canon, dst)
		bySource[dst] = src
	}
	sort.Strings(canon)
	for _, dst := range canon {
		_ = out.AddColumn(dst, t.columns[bySource[dst]])
	}
	return out
}

// Scale multiplies every value of the named column by factor in place.
func (t *Table) Scale(name string, factor float64) {
	if v, ok := t.columns[name]; ok {
		floats.Scale(factor, v)
	}
}

// ScaleAll multiplies every value of every column by factor in place.
func (t *Table) ScaleAll(factor float64) {
	for _, name := range t.order {
		floats.Scale(factor, t.columns[name])
	}
}

// SumOf returns the row-wise sum of the named columns. Absent columns
// contribute nothing; summing no present columns yields all zeros.
func (t *Table) SumOf(names ...string) []float64 {
	sum := make([]float64, len(t.index))
	for _, name := range names {
		if v, ok := t.columns[name]; ok {
			floats.Add(sum, v)
		}
	}
	return sum
}

// SortColumns orders columns alphabetically for a stable output schema.
func (t *Table) SortColumns() {
	sort.Strings(t.order)
}

// SortByTime orders rows chronologically, carrying all columns along.
func (t *Table) SortByTime() {
	perm := make([]int, len(t.index))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return t.index[perm[a]].Before(t.index[perm[b]])
	})
	newIndex := make([]time.Time, len(t.index))
	for i, p := range perm {
		newIndex[i] = t.index[p]
	}
	t.index = newIndex
	for name, vals := range t.columns {
		nv := make([]float64, len(vals))
		for i, p := range perm {
			nv[i] = vals[p]
		}
		t.columns[name] = nv
	}
}

// FoldYear relabels any timestamp falling in the year after ref back into
// ref, then re-sorts chronologically. This folds a series that technically
// starts a few hours into the prior UTC day back into a clean Jan 1 - Dec 31
// annual series.
func (t *Table) FoldYear(ref int) {
	for i, ts := range t.index {
		if ts.Year() == ref+1 {
			t.index[i] = time.Date(ref, ts.Month(), ts.Day(),
				ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), ts.Location())
		}
	}
	t.SortByTime()
}

// Resample converts per-interval values to average rates by dividing by the
// native interval in hours, then forward-fills onto a grid at the target
// frequency spanning the original index.
func (t *Table) Resample(target time.Duration) error {
	if target <= 0 {
		return fmt.Errorf("resample: invalid target frequency %v", target)
	}
	if len(t.index) < 2 {
		return fmt.Errorf("resample: need at least 2 rows, have %d", len(t.index))
	}
	native := t.index[1].Sub(t.index[0])
	if native <= 0 {
		return fmt.Errorf("resample: non-increasing index")
	}
	hours := native.Hours()

	grid := Range(t.index[0], t.index[len(t.index)-1], target)
	for name, vals := range t.columns {
		out := make([]float64, len(grid))
		j := 0
		for i, ts := range grid {
			for j+1 < len(t.index) && !t.index[j+1].After(ts) {
				j++
			}
			out[i] = vals[j] / hours
		}
		t.columns[name] = out
	}
	t.index = grid
	return nil
}

// Round rounds every value to the given number of decimals.
func (t *Table) Round(precision int) {
	p := math.Pow10(precision)
	for _, vals := range t.columns {
		for i, v := range vals {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals[i] = math.Round(v*p) / p
			}
		}
	}
}

// Range builds an inclusive timestamp grid from start to end at the given step.
func Range(start, end time.Time, step time.Duration) []time.Time {
	var out []time.Time
	for ts := start; !ts.After(end); ts = ts.Add(step) {
		out = append(out, ts)
	}
	return out
}

// timestampLayout is the on-disk timestamp format, matching the upstream
// datasets' "YYYY-MM-DD HH:MM:SS+ZZ:ZZ" convention.
const timestampLayout = "2006-01-02 15:04:05-07:00"

// WriteCSV encodes the table as a delimited file with a header row. A
// negative precision writes full float64 precision.
func (t *Table) WriteCSV(w io.Writer, precision int) error {
	cw := csv.NewWriter(w)
	header := append([]string{"timestamp"}, t.order...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, len(header))
	for i, ts := range t.index {
		row[0] = ts.Format(timestampLayout)
		for c, name := range t.order {
			row[c+1] = strconv.FormatFloat(t.columns[name][i], 'f', precision, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV decodes a table previously written by WriteCSV.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: empty file")
	}
	header := records[0]
	if len(header) < 1 || header[0] != "timestamp" {
		return nil, fmt.Errorf("read csv: missing timestamp column")
	}
	index := make([]time.Time, 0, len(records)-1)
	values := make([][]float64, len(header)-1)
	for i := range values {
		values[i] = make([]float64, 0, len(records)-1)
	}
	for _, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("read csv: row has %d fields, want %d", len(rec), len(header))
		}
		ts, err := time.Parse(timestampLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("read csv: parse timestamp %q: %w", rec[0], err)
		}
		index = append(index, ts)
		for c := 1; c < len(rec); c++ {
			v, err := strconv.ParseFloat(rec[c], 64)
			if err != nil {
				return nil, fmt.Errorf("read csv: parse value %q: %w", rec[c], err)
			}
			values[c-1] = append(values[c-1], v)
		}
	}
	out := New(index)
	for c, name := range header[1:] {
		if err := out.AddColumn(name, values[c]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
