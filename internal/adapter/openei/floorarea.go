// Package openei loads the OpenEI commercial building inventory, which
// provides per-county floor areas used to scale the commercial load models.
package openei

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/county-loads/internal/adapter/cache"
	"github.com/couchcryptid/county-loads/internal/adapter/fetch"
	"github.com/couchcryptid/county-loads/internal/geo"
)

// DefaultYear is the most recent inventory release.
const DefaultYear = 2019

// regions are the inventory's five census-region workbooks.
var regions = []string{
	"South Central",
	"Northeast",
	"South Atlantic",
	"Midwest",
	"West",
}

// prototypeCodes maps inventory prototype names to commercial building-type
// codes. A prototype can stand for several codes; its area is split evenly
// among them.
var prototypeCodes = map[string][]string{
	"apartment":                {"CLL"},
	"full_service_restaurant":  {"CLF"},
	"hotel":                    {"CSL"},
	"no_match":                 {},
	"office":                   {"CSO", "CMO", "CLO"},
	"outpatient":               {"CSH"},
	"quick_service_restaurant": {"CSF"},
	"retail":                   {"CMS"},
	"school":                   {"CME", "CSE"},
	"strip_mall":               {"CSR"},
	"supermarket":              {"CMR"},
	"warehouse":                {"CMW"},
	"hospital":                 {"CLH"},
}

// Area is one prototype's total floor area in a county. Codes lists the
// building-type codes the prototype maps to.
type Area struct {
	Codes []string
	Area  float64
}

// Client loads the inventory through the shared cache store.
type Client struct {
	store    *cache.Store
	fetcher  *fetch.Client
	counties *geo.Catalog
	logger   *slog.Logger
	urlRoot  string
}

// NewClient wires a floor-area loader against the inventory's file root.
func NewClient(store *cache.Store, fetcher *fetch.Client, counties *geo.Catalog,
	urlRoot string, logger *slog.Logger) *Client {
	return &Client{
		store:    store,
		fetcher:  fetcher,
		counties: counties,
		logger:   logger,
		urlRoot:  urlRoot,
	}
}

// FloorAreas returns the commercial floor areas for one county, grouped by
// inventory prototype. Year 0 selects the most recent release.
func (c *Client) FloorAreas(ctx context.Context, state, county string, year int) ([]Area, error) {
	ct, err := c.counties.Lookup(state, county)
	if err != nil {
		return nil, err
	}
	if year == 0 {
		year = DefaultYear
	}

	data, err := c.store.Fetch("floorarea", "floorarea.csv.gz", func() ([]byte, error) {
		return c.buildNationwide(ctx, year)
	})
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(bytes.NewReader(data))
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read cached floor areas: %w", err)
	}

	var out []Area
	for _, rec := range records[1:] {
		if rec[0] != state {
			continue
		}
		fips, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("bad FIPS %q in floor area cache", rec[1])
		}
		if fmt.Sprintf("%05d", fips) != ct.FIPS {
			continue
		}
		codes, ok := prototypeCodes[rec[2]]
		if !ok {
			return nil, fmt.Errorf("unknown building prototype %q in floor area cache", rec[2])
		}
		area, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("bad floor area %q: %w", rec[3], err)
		}
		out = append(out, Area{Codes: codes, Area: area})
	}
	return out, nil
}

// buildNationwide assembles the combined cache payload from the five regional
// workbooks. Each region is cached individually so an interrupted build does
// not refetch completed regions.
func (c *Client) buildNationwide(ctx context.Context, year int) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write([]string{"ST", "FIPS", "BUILDING_TYPE", "FLOORAREA"}); err != nil {
		return nil, err
	}
	for n, region := range regions {
		key := fmt.Sprintf("region%d_floorarea.csv.gz", n)
		data, err := c.store.Fetch("floorarea", key, func() ([]byte, error) {
			return c.buildRegion(ctx, region, year)
		})
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", region, err)
		}
		cr := csv.NewReader(bytes.NewReader(data))
		records, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("region %q: read cache: %w", region, err)
		}
		for _, rec := range records[1:] {
			if err := cw.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

// buildRegion fetches one regional workbook and reduces the County sheet to
// summed floor area per (state, county, prototype).
func (c *Client) buildRegion(ctx context.Context, region string, year int) ([]byte, error) {
	url := fmt.Sprintf("%s/%d%%20Commercial%%20Building%%20Inventory%%20-%%20%s.xlsx",
		c.urlRoot, year, strings.ReplaceAll(region, " ", "%20"))
	body, err := c.fetcher.Get(ctx, "floorarea", url)
	if err != nil {
		return nil, err
	}

	wb, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("open inventory workbook: %w", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows("County")
	if err != nil {
		return nil, fmt.Errorf("read County sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("County sheet has no data rows")
	}

	cols := map[string]int{"statecode": -1, "countyid": -1, "doe_prototype": -1, "area_sum": -1}
	for i, name := range rows[0] {
		if _, ok := cols[name]; ok {
			cols[name] = i
		}
	}
	for name, i := range cols {
		if i < 0 {
			return nil, fmt.Errorf("County sheet missing %q column", name)
		}
	}

	type groupKey struct {
		state     string
		fips      string
		prototype string
	}
	sums := make(map[groupKey]float64)
	var order []groupKey
	for _, row := range rows[1:] {
		get := func(name string) string {
			if i := cols[name]; i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		k := groupKey{get("statecode"), get("countyid"), get("doe_prototype")}
		areaStr := get("area_sum")
		if k.state == "" || k.fips == "" || k.prototype == "" || areaStr == "" {
			continue
		}
		area, err := strconv.ParseFloat(strings.ReplaceAll(areaStr, ",", ""), 64)
		if err != nil {
			continue
		}
		if _, seen := sums[k]; !seen {
			order = append(order, k)
		}
		sums[k] += area
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write([]string{"ST", "FIPS", "BUILDING_TYPE", "FLOORAREA"}); err != nil {
		return nil, err
	}
	for _, k := range order {
		rec := []string{k.state, k.fips, k.prototype,
			strconv.FormatFloat(sums[k], 'f', -1, 64)}
		if err := cw.Write(rec); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}
