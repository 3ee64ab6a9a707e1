// Package oedi loads NREL end-use load profile datasets from the OEDI data
// lake: ResStock and ComStock county timeseries aggregates and the matching
// AMY weather files.
package oedi

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/county-loads/internal/adapter/cache"
	"github.com/couchcryptid/county-loads/internal/adapter/fetch"
	"github.com/couchcryptid/county-loads/internal/geo"
	"github.com/couchcryptid/county-loads/internal/timeseries"
)

// ErrUnknownBuildingType signals a building-type code outside the sector's
// fixed enumeration. This is a configuration error, not missing data.
var ErrUnknownBuildingType = errors.New("unknown building type")

// estZone matches the datasets' naive timestamps, which are expressed in
// fixed Eastern Standard Time year-round.
var estZone = time.FixedZone("EST", -5*60*60)

// sampleOffset is the end-of-interval label offset on the raw timestamps;
// shifting it off moves samples to top-of-interval boundaries.
const sampleOffset = 15 * time.Minute

// Client loads OEDI datasets through the shared cache store.
type Client struct {
	store    *cache.Store
	fetcher  *fetch.Client
	counties *geo.Catalog
	logger   *slog.Logger

	resstockURL string
	comstockURL string
	weatherURL  string
	refYear     int
}

// NewClient wires an OEDI loader. URL roots point at the timeseries-aggregate
// and weather prefixes of the data lake.
func NewClient(store *cache.Store, fetcher *fetch.Client, counties *geo.Catalog,
	resstockURL, comstockURL, weatherURL string, refYear int, logger *slog.Logger) *Client {
	return &Client{
		store:       store,
		fetcher:     fetcher,
		counties:    counties,
		logger:      logger,
		resstockURL: resstockURL,
		comstockURL: comstockURL,
		weatherURL:  weatherURL,
		refYear:     refYear,
	}
}

// BuildingLoad is one building type's raw end-use table normalized to average
// watts per stock unit (per housing unit for residential, per square foot for
// commercial), plus the stock the model represents.
type BuildingLoad struct {
	Table *timeseries.Table
	// Stock is the model's internal stock count (units or floor area).
	Stock float64
	// StockName is the driver column name for raw output ("units" or
	// "floor_area").
	StockName string
	// Degraded is set when the remote source had no data and a zero-filled
	// table was synthesized.
	Degraded bool
}

// StockRequest selects one building type's timeseries.
type StockRequest struct {
	State        string
	County       string // empty means statewide
	BuildingType string
	Freq         time.Duration // 0 leaves the native resolution
}

type stockDataset struct {
	name        string
	urlRoot     string
	types       map[string]string // code -> dataset building-type slug
	columns     map[string]string // source column -> canonical name
	stockColumn string            // source driver column
	stockName   string            // canonical driver name
}

// load implements the shared ResStock/ComStock contract: cache-or-fetch the
// raw county CSV, rename to canonical columns, normalize to W per stock unit,
// resample, and fold the year wraparound.
func (c *Client) load(ctx context.Context, ds stockDataset, req StockRequest) (BuildingLoad, error) {
	slug, ok := ds.types[req.BuildingType]
	if !ok {
		return BuildingLoad{}, fmt.Errorf("%w: %q is not a %s code", ErrUnknownBuildingType, req.BuildingType, ds.name)
	}
	if _, err := geo.StateByCode(req.State); err != nil {
		return BuildingLoad{}, err
	}

	url, err := c.stockURL(ds, req.State, req.County, slug)
	if err != nil {
		return BuildingLoad{}, err
	}

	degraded := false
	key := cache.Key(".csv.gz", req.State, req.County, req.BuildingType)
	raw, err := c.store.Fetch(ds.name, key, func() ([]byte, error) {
		body, err := c.fetcher.Get(ctx, ds.name, url)
		var httpErr *fetch.HTTPError
		if errors.As(err, &httpErr) {
			// Missing building types in a county are common and expected.
			c.logger.Warn("building type has no data, using zero table",
				"dataset", ds.name, "building_type", slug, "state", req.State,
				"county", req.County, "status", httpErr.StatusCode)
			degraded = true
			return zeroStockCSV(ds, c.refYear, req.Freq), nil
		}
		if err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return BuildingLoad{}, err
	}

	table, stock, err := parseStockCSV(ds, raw, req, c.logger)
	if err != nil {
		return BuildingLoad{}, fmt.Errorf("parse %s %s: %w", ds.name, key, err)
	}

	if req.Freq > 0 {
		if err := table.Resample(req.Freq); err != nil {
			return BuildingLoad{}, fmt.Errorf("resample %s %s: %w", ds.name, key, err)
		}
	}
	table.FoldYear(c.refYear)

	return BuildingLoad{
		Table:     table,
		Stock:     stock,
		StockName: ds.stockName,
		Degraded:  degraded || stock == 0,
	}, nil
}

// stockURL resolves the statewide or per-county aggregate file.
func (c *Client) stockURL(ds stockDataset, state, county, slug string) (string, error) {
	if county == "" {
		return fmt.Sprintf("%s/by_state/state=%s/%s-%s.csv",
			ds.urlRoot, strings.ToUpper(state), strings.ToLower(state), slug), nil
	}
	ct, err := c.counties.Lookup(state, county)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/by_county/state=%s/%s-%s.csv",
		ds.urlRoot, strings.ToUpper(state), strings.ToLower(geo.GISJoinID(ct.FIPS)), slug), nil
}

// parseStockCSV turns the raw dataset CSV into a canonical table of W per
// stock unit and extracts the model stock driver.
func parseStockCSV(ds stockDataset, raw []byte, req StockRequest, logger *slog.Logger) (*timeseries.Table, float64, error) {
	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, 0, err
	}
	if len(records) < 2 {
		return nil, 0, fmt.Errorf("no data rows")
	}

	header := records[0]
	tsCol, stockCol := -1, -1
	srcCols := make(map[int]string) // field index -> canonical name
	for i, name := range header {
		switch {
		case name == "timestamp":
			tsCol = i
		case name == ds.stockColumn:
			stockCol = i
		default:
			if canon, ok := ds.columns[name]; ok {
				srcCols[i] = canon
			}
		}
	}
	if tsCol < 0 {
		return nil, 0, fmt.Errorf("missing timestamp column")
	}
	if stockCol < 0 {
		return nil, 0, fmt.Errorf("missing %s column", ds.stockColumn)
	}

	rows := records[1:]
	index := make([]time.Time, len(rows))
	stockMin, stockMax := 0.0, 0.0
	for i, rec := range rows {
		ts, err := time.ParseInLocation("2006-01-02 15:04:05", rec[tsCol], estZone)
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: parse timestamp %q: %w", i+2, rec[tsCol], err)
		}
		index[i] = ts.Add(-sampleOffset).UTC()

		v := floatOrZero(rec[stockCol])
		if i == 0 {
			stockMin, stockMax = v, v
		} else {
			if v < stockMin {
				stockMin = v
			}
			if v > stockMax {
				stockMax = v
			}
		}
	}
	if stockMin != stockMax {
		logger.Warn("stock driver changes across rows, using max",
			"dataset", ds.name, "state", req.State, "county", req.County,
			"building_type", req.BuildingType, "min", stockMin, "max", stockMax)
	}
	stock := stockMax

	table := timeseries.New(index)
	canon := make([]string, 0, len(srcCols))
	byCanon := make(map[string]int, len(srcCols))
	for i, name := range srcCols {
		canon = append(canon, name)
		byCanon[name] = i
	}
	sort.Strings(canon)
	for _, name := range canon {
		col := byCanon[name]
		values := make([]float64, len(rows))
		for i, rec := range rows {
			if col >= len(rec) {
				continue
			}
			if stock == 0 {
				values[i] = 0
				continue
			}
			// kW-equivalent per interval and stock unit, scaled to watts.
			values[i] = floatOrZero(rec[col]) / stock * 1000
		}
		if err := table.AddColumn(name, values); err != nil {
			return nil, 0, err
		}
	}
	return table, stock, nil
}

// zeroStockCSV synthesizes an all-zero dataset file spanning the reference
// year in the source format, so the regular parse path applies.
func zeroStockCSV(ds stockDataset, refYear int, freq time.Duration) []byte {
	if freq <= 0 {
		freq = time.Hour
	}
	hours := time.Date(refYear+1, 1, 1, 0, 0, 0, 0, time.UTC).
		Sub(time.Date(refYear, 1, 1, 0, 0, 0, 0, time.UTC)).Hours()
	n := int(hours / freq.Hours())

	names := make([]string, 0, len(ds.columns))
	for src := range ds.columns {
		names = append(names, src)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	header := append([]string{"timestamp"}, names...)
	header = append(header, ds.stockColumn)
	_ = cw.Write(header)

	row := make([]string, len(header))
	for i := 1; i < len(row); i++ {
		row[i] = "0.0"
	}
	// End-of-interval labels in naive EST, matching the source convention.
	start := time.Date(refYear, 1, 1, 0, 0, 0, 0, estZone).Add(sampleOffset)
	for i := 0; i < n; i++ {
		row[0] = start.Add(time.Duration(i) * freq).Format("2006-01-02 15:04:05")
		_ = cw.Write(row)
	}
	cw.Flush()
	return buf.Bytes()
}

func floatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
