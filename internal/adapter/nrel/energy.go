// Package nrel loads the NREL county-level industrial energy-use datasets,
// which drive the industrial and agricultural sectors.
package nrel

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"github.com/couchcryptid/county-loads/internal/adapter/cache"
	"github.com/couchcryptid/county-loads/internal/adapter/fetch"
	"github.com/couchcryptid/county-loads/internal/geo"
)

// tbtuToMW converts annual TBTU to average MW:
// TBTU/y -> BTU/y -> Wh/y -> MWh/y -> MWh/d -> MWh/h.
const tbtuToMW = 1e12 * 0.2931 / 1e6 / 365.2425 / 24

// industryFuels maps source fuel columns to the aggregate they feed. All
// non-electric fuels collapse into one total.
var industryFuels = map[string]string{
	"Coal":              "nonelec",
	"Coke_and_breeze":   "nonelec",
	"Diesel":            "nonelec",
	"LPG_NGL":           "nonelec",
	"Natural_gas":       "nonelec",
	"Net_electricity":   "elec",
	"Other":             "nonelec",
	"Residual_fuel_oil": "nonelec",
}

// agricultureFuels is the agriculture dataset's smaller fuel set.
var agricultureFuels = map[string]string{
	"Diesel":            "nonelec",
	"LPG_NGL":           "nonelec",
	"Natural_gas":       "nonelec",
	"Net_electricity":   "elec",
	"Residual_fuel_oil": "nonelec",
}

// AnnualLoad is one county's aggregate annual energy use expressed as average
// power.
type AnnualLoad struct {
	NonElectricMW float64
	NetElectricMW float64
}

// Client loads the industry and agriculture datasets through the shared cache
// store.
type Client struct {
	store    *cache.Store
	fetcher  *fetch.Client
	counties *geo.Catalog
	logger   *slog.Logger

	industryURL    string
	agricultureURL string
}

// NewClient wires an annual energy-use loader.
func NewClient(store *cache.Store, fetcher *fetch.Client, counties *geo.Catalog,
	industryURL, agricultureURL string, logger *slog.Logger) *Client {
	return &Client{
		store:          store,
		fetcher:        fetcher,
		counties:       counties,
		logger:         logger,
		industryURL:    industryURL,
		agricultureURL: agricultureURL,
	}
}

// Industry returns the aggregate industrial load for one county.
func (c *Client) Industry(ctx context.Context, state, county string) (AnnualLoad, error) {
	return c.load(ctx, "industry", c.industryURL, industryFuels, state, county)
}

// Agriculture returns the aggregate agricultural load for one county.
func (c *Client) Agriculture(ctx context.Context, state, county string) (AnnualLoad, error) {
	return c.load(ctx, "agriculture", c.agricultureURL, agricultureFuels, state, county)
}

func (c *Client) load(ctx context.Context, dataset, url string,
	fuels map[string]string, state, county string) (AnnualLoad, error) {
	ct, err := c.counties.Lookup(state, county)
	if err != nil {
		return AnnualLoad{}, err
	}

	key := dataset + ".csv.gz"
	data, err := c.store.Fetch(dataset, key, func() ([]byte, error) {
		body, err := c.fetcher.Get(ctx, dataset, url)
		if err != nil {
			return nil, err
		}
		return normalizeSource(body)
	})
	if err != nil {
		return AnnualLoad{}, err
	}

	byFIPS, err := aggregateByFIPS(data, fuels)
	if err != nil {
		return AnnualLoad{}, fmt.Errorf("aggregate %s: %w", dataset, err)
	}

	byCounty := joinCounties(byFIPS, c.counties)
	return byCounty[geo.County{State: state, Name: ct.Name, FIPS: ct.FIPS}], nil
}

// normalizeSource decompresses the source archive and re-encodes it sorted by
// the FIPS column, which is the order the county join depends on.
func normalizeSource(body []byte) ([]byte, error) {
	reader := io.Reader(bytes.NewReader(body))
	if len(body) > 1 && body[0] == 0x1f && body[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("decompress source: %w", err)
		}
		defer zr.Close()
		reader = zr
	}

	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	fipsCol := -1
	for i, name := range records[0] {
		if name == "fips_matching" {
			fipsCol = i
			break
		}
	}
	if fipsCol < 0 {
		return nil, fmt.Errorf("missing fips_matching column")
	}

	rows := records[1:]
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := strconv.Atoi(rows[i][fipsCol])
		b, _ := strconv.Atoi(rows[j][fipsCol])
		return a < b
	})

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(records[0]); err != nil {
		return nil, err
	}
	for _, rec := range rows {
		if err := cw.Write(rec); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

// aggregateByFIPS sums the selected fuel columns per FIPS code and converts
// the result to average MW.
func aggregateByFIPS(data []byte, fuels map[string]string) (map[string]AnnualLoad, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	fipsCol := -1
	cols := make(map[int]string) // field index -> aggregate
	for i, name := range records[0] {
		if name == "fips_matching" {
			fipsCol = i
			continue
		}
		if agg, ok := fuels[name]; ok {
			cols[i] = agg
		}
	}
	if fipsCol < 0 {
		return nil, fmt.Errorf("missing fips_matching column")
	}

	out := make(map[string]AnnualLoad)
	for _, rec := range records[1:] {
		n, err := strconv.Atoi(rec[fipsCol])
		if err != nil {
			return nil, fmt.Errorf("bad fips_matching %q", rec[fipsCol])
		}
		fips := fmt.Sprintf("%05d", n)
		agg := out[fips]
		for i, group := range cols {
			if i >= len(rec) {
				continue
			}
			v, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				continue
			}
			switch group {
			case "nonelec":
				agg.NonElectricMW += v * tbtuToMW
			case "elec":
				agg.NetElectricMW += v * tbtuToMW
			}
		}
		out[fips] = agg
	}
	return out, nil
}

// joinCounties walks the union of catalog and dataset FIPS codes in ascending
// order, carrying the last county labels and values forward. Dataset rows
// whose FIPS is not a valid county therefore aggregate into the preceding
// county, and counties absent from the dataset inherit the preceding county's
// load. This matches the published county tables.
func joinCounties(byFIPS map[string]AnnualLoad, counties *geo.Catalog) map[geo.County]AnnualLoad {
	catalog := counties.SortedByFIPS()
	known := make(map[string]geo.County, len(catalog))
	all := make([]string, 0, len(catalog)+len(byFIPS))
	for _, ct := range catalog {
		known[ct.FIPS] = ct
		all = append(all, ct.FIPS)
	}
	for fips := range byFIPS {
		if _, ok := known[fips]; !ok {
			all = append(all, fips)
		}
	}
	sort.Strings(all)

	out := make(map[geo.County]AnnualLoad, len(catalog))
	var last geo.County
	var lastLoad AnnualLoad
	haveCounty := false
	for _, fips := range all {
		if ct, ok := known[fips]; ok {
			last = ct
			haveCounty = true
		}
		if !haveCounty {
			continue
		}
		if load, ok := byFIPS[fips]; ok {
			lastLoad = load
		}
		agg := out[last]
		agg.NonElectricMW += lastLoad.NonElectricMW
		agg.NetElectricMW += lastLoad.NetElectricMW
		out[last] = agg
	}
	return out
}
