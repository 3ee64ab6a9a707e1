package oedi

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/county-loads/internal/adapter/cache"
	"github.com/couchcryptid/county-loads/internal/geo"
	"github.com/couchcryptid/county-loads/internal/timeseries"
)

// weatherColumns pairs each output column with a source-header fragment. The
// source headers carry unit glyphs that do not always survive re-encoding, so
// matching is by prefix.
var weatherColumns = []struct {
	source string
	output string
}{
	{"Dry Bulb Temperature", "temperature[degF]"},
	{"Relative Humidity", "humidity[%]"},
	{"Global Horizontal Radiation", "global[W/m^2]"},
	{"Direct Normal Radiation", "direct[W/m^2]"},
	{"Diffuse Horizontal Radiation", "diffuse[W/m^2]"},
}

// Weather loads one county's hourly weather for the reference year:
// temperature converted to Fahrenheit, relative humidity, and the three
// irradiance channels. The transformed table is what gets cached.
func (c *Client) Weather(ctx context.Context, state, county string) (*timeseries.Table, error) {
	st, err := geo.StateByCode(state)
	if err != nil {
		return nil, err
	}
	ct, err := c.counties.Lookup(state, county)
	if err != nil {
		return nil, err
	}

	key := cache.Key(".csv.gz", "weather", state, county)
	data, err := c.store.Fetch("weather", key, func() ([]byte, error) {
		url := fmt.Sprintf("%s/%s_%d.csv", c.weatherURL, geo.GISJoinID(ct.FIPS), c.refYear)
		body, err := c.fetcher.Get(ctx, "weather", url)
		if err != nil {
			return nil, err
		}
		table, err := transformWeather(body, st.TZOffset, c.refYear)
		if err != nil {
			return nil, fmt.Errorf("transform weather %s %s: %w", state, county, err)
		}
		var buf bytes.Buffer
		if err := table.WriteCSV(&buf, -1); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		return nil, err
	}

	table, err := timeseries.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read cached weather %s: %w", key, err)
	}
	table.FoldYear(c.refYear)
	return table, nil
}

// transformWeather normalizes the raw archive CSV: Celsius to Fahrenheit, a
// per-state UTC offset correction, and the year-wraparound fold.
func transformWeather(raw []byte, tzOffset float64, refYear int) (*timeseries.Table, error) {
	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	header := records[0]
	tsCol := -1
	cols := make([]int, len(weatherColumns))
	for i := range cols {
		cols[i] = -1
	}
	for i, name := range header {
		if name == "date_time" {
			tsCol = i
			continue
		}
		for w, wc := range weatherColumns {
			if strings.HasPrefix(name, wc.source) {
				cols[w] = i
			}
		}
	}
	if tsCol < 0 {
		return nil, fmt.Errorf("missing date_time column")
	}
	for w, col := range cols {
		if col < 0 {
			return nil, fmt.Errorf("missing %q column", weatherColumns[w].source)
		}
	}

	// Archive timestamps are local standard time labeled one hour ahead;
	// shifting by the state offset plus one hour lands them on UTC.
	shift := time.Duration(float64(time.Hour) * (tzOffset + 1))

	rows := records[1:]
	index := make([]time.Time, len(rows))
	values := make([][]float64, len(weatherColumns))
	for w := range values {
		values[w] = make([]float64, len(rows))
	}
	for i, rec := range rows {
		ts, err := time.Parse("2006-01-02 15:04:05", rec[tsCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: parse timestamp %q: %w", i+2, rec[tsCol], err)
		}
		index[i] = ts.UTC().Add(-shift)
		for w, col := range cols {
			if col < len(rec) {
				values[w][i] = floatOrZero(rec[col])
			}
		}
	}

	table := timeseries.New(index)
	for w, wc := range weatherColumns {
		vals := values[w]
		switch wc.output {
		case "temperature[degF]":
			for i, v := range vals {
				vals[i] = v*9/5 + 32
			}
		case "humidity[%]":
			for i, v := range vals {
				vals[i] = math.Round(v*10) / 10
			}
		}
		if err := table.AddColumn(wc.output, vals); err != nil {
			return nil, err
		}
	}
	table.FoldYear(refYear)
	return table, nil
}
