// Package census resolves county housing-unit counts from the Census Bureau
// population-estimate workbooks.
package census

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/county-loads/internal/adapter/cache"
	"github.com/couchcryptid/county-loads/internal/adapter/fetch"
	"github.com/couchcryptid/county-loads/internal/geo"
	"github.com/couchcryptid/county-loads/internal/observability"
)

// Driver is a stock-driver lookup result. Degraded marks an ambiguous or
// missing county match; Value is NaN in that case and the caller continues in
// a degraded state instead of failing.
type Driver struct {
	Value    float64
	Degraded bool
}

// Client loads per-state housing-unit tables through the shared cache store.
type Client struct {
	store   *cache.Store
	fetcher *fetch.Client
	logger  *slog.Logger
	metrics *observability.Metrics

	urlRoot string
	retries int
	perTry  time.Duration
}

// NewClient wires a housing-units loader. The source is the only one fetched
// with the bounded-retry strategy.
func NewClient(store *cache.Store, fetcher *fetch.Client, urlRoot string,
	retries int, perTry time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
		urlRoot: urlRoot,
		retries: retries,
		perTry:  perTry,
	}
}

// Units resolves the housing-unit count for a county and year. Year 0 selects
// the most recent column. A county matching zero or multiple rows degrades to
// NaN with a warning; an unknown year is a configuration error.
func (c *Client) Units(ctx context.Context, state, county string, year int) (Driver, error) {
	st, err := geo.StateByCode(state)
	if err != nil {
		return Driver{}, err
	}

	key := cache.Key(".csv", state, "housing_units")
	data, err := c.store.Fetch("housing_units", key, func() ([]byte, error) {
		return c.download(ctx, st)
	})
	if err != nil {
		return Driver{}, err
	}

	labels, years, values, err := parseUnitsCSV(data)
	if err != nil {
		return Driver{}, fmt.Errorf("parse housing units %s: %w", key, err)
	}

	col := len(years) - 1
	if year != 0 {
		col = -1
		for i, y := range years {
			if y == year {
				col = i
				break
			}
		}
		if col < 0 {
			return Driver{}, fmt.Errorf("year %d is not available, must be one of %v", year, years)
		}
	}

	// County rows are labeled ".<County Name> County, <State>"; matching is
	// by name prefix.
	var matches []float64
	for i, label := range labels {
		if county == "" || strings.HasPrefix(label, "."+county) {
			matches = append(matches, values[i][col])
		}
	}
	if len(matches) != 1 {
		c.logger.Warn("housing units lookup did not match a single county",
			"state", state, "county", county, "year", years[col], "matches", len(matches))
		c.metrics.DegradedStocks.Inc()
		return Driver{Value: math.NaN(), Degraded: true}, nil
	}
	return Driver{Value: matches[0]}, nil
}

// download fetches the state workbook with bounded retries and flattens the
// county sheet into a CSV cache payload.
func (c *Client) download(ctx context.Context, st geo.State) ([]byte, error) {
	name := fmt.Sprintf("CO-EST2024-HU-%s", st.FIPS)
	url := fmt.Sprintf("%s/%s.xlsx", c.urlRoot, name)
	body, err := c.fetcher.GetRetry(ctx, "housing_units", url, c.retries, c.perTry)
	if err != nil {
		return nil, err
	}

	wb, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("open housing units workbook: %w", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	// Two preamble rows, then a title row, then the header row with the
	// county label column and one column per estimate year.
	if len(rows) < 5 {
		return nil, fmt.Errorf("sheet %s: too few rows (%d)", name, len(rows))
	}
	header := rows[3]
	if len(header) < 7 {
		return nil, fmt.Errorf("sheet %s: short header row", name)
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	out := []string{"county", header[2], header[3], header[4], header[5], header[6]}
	if err := cw.Write(out); err != nil {
		return nil, err
	}
	for _, row := range rows[4:] {
		if len(row) < 7 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		rec := []string{row[0]}
		complete := true
		for col := 2; col <= 6; col++ {
			v, err := strconv.ParseFloat(strings.ReplaceAll(row[col], ",", ""), 64)
			if err != nil {
				complete = false
				break
			}
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
		// Footnote and summary rows lack the full estimate set.
		if !complete {
			continue
		}
		if err := cw.Write(rec); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

func parseUnitsCSV(data []byte) (labels []string, years []int, values [][]float64, err error) {
	cr := csv.NewReader(bytes.NewReader(data))
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}
	if len(records) < 2 {
		return nil, nil, nil, fmt.Errorf("no data rows")
	}
	for _, h := range records[0][1:] {
		y, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("non-numeric year column %q", h)
		}
		years = append(years, y)
	}
	for _, rec := range records[1:] {
		if len(rec) != len(years)+1 {
			return nil, nil, nil, fmt.Errorf("row has %d fields, want %d", len(rec), len(years)+1)
		}
		labels = append(labels, rec[0])
		row := make([]float64, len(years))
		for i := range years {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("parse value %q: %w", rec[i+1], err)
			}
			row[i] = v
		}
		values = append(values, row)
	}
	return labels, years, values, nil
}
