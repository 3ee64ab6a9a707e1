// Package pipeline wires the dataset adapters into sector-level load
// aggregators.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/couchcryptid/county-loads/internal/adapter/cache"
	"github.com/couchcryptid/county-loads/internal/adapter/census"
	"github.com/couchcryptid/county-loads/internal/adapter/fetch"
	"github.com/couchcryptid/county-loads/internal/adapter/nrel"
	"github.com/couchcryptid/county-loads/internal/adapter/oedi"
	"github.com/couchcryptid/county-loads/internal/adapter/openei"
	"github.com/couchcryptid/county-loads/internal/config"
	"github.com/couchcryptid/county-loads/internal/geo"
	"github.com/couchcryptid/county-loads/internal/observability"
	"github.com/couchcryptid/county-loads/internal/timeseries"
)

// Request selects one county's sector data.
type Request struct {
	State  string
	County string
	// Year selects the stock-driver vintage; 0 means the most recent.
	Year int
	// Freq is the sampling interval; 0 defaults to hourly.
	Freq time.Duration
}

// Result is a consolidated sector table. Degraded is set when any input was
// synthesized or ambiguous; the table is still usable.
type Result struct {
	Table    *timeseries.Table
	Degraded bool
}

// Pipeline holds the wired adapters for one configuration.
type Pipeline struct {
	logger   *slog.Logger
	store    *cache.Store
	counties *geo.Catalog

	oedi   *oedi.Client
	census *census.Client
	openei *openei.Client
	nrel   *nrel.Client
}

// New builds a pipeline from configuration. The county catalog is fetched
// through the cache on first use, so construction touches the network at most
// once.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Pipeline, error) {
	store, err := cache.New(cfg.CacheDir, logger, metrics)
	if err != nil {
		return nil, err
	}
	fetcher := fetch.NewClient(cfg.FetchTimeout, logger, metrics)

	countyData, err := store.Fetch("counties", "national_county.txt", func() ([]byte, error) {
		return fetcher.Get(ctx, "counties", cfg.Sources.Counties)
	})
	if err != nil {
		return nil, fmt.Errorf("load county list: %w", err)
	}
	counties, err := geo.ParseCounties(countyData)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		logger:   logger,
		store:    store,
		counties: counties,
		oedi: oedi.NewClient(store, fetcher, counties,
			cfg.Sources.ResStock, cfg.Sources.ComStock, cfg.Sources.Weather,
			cfg.ReferenceYear, logger),
		census: census.NewClient(store, fetcher, cfg.Sources.HousingUnits,
			cfg.UnitsRetries, cfg.UnitsTimeout, logger, metrics),
		openei: openei.NewClient(store, fetcher, counties, cfg.Sources.FloorArea, logger),
		nrel: nrel.NewClient(store, fetcher, counties,
			cfg.Sources.Industry, cfg.Sources.Agriculture, logger),
	}, nil
}

// Store exposes the cache store for maintenance commands.
func (p *Pipeline) Store() *cache.Store { return p.store }

// Counties exposes the county catalog.
func (p *Pipeline) Counties() *geo.Catalog { return p.counties }

// Weather returns the county's hourly weather table.
func (p *Pipeline) Weather(ctx context.Context, req Request) (Result, error) {
	table, err := p.oedi.Weather(ctx, req.State, req.County)
	if err != nil {
		return Result{}, err
	}
	return Result{Table: table}, nil
}

// RawBuildingType returns one building type's unconsolidated end-use table
// with the stock driver appended as a constant column.
func (p *Pipeline) RawBuildingType(ctx context.Context, req Request, sector, buildingType string) (Result, error) {
	stockReq := oedi.StockRequest{
		State:        req.State,
		County:       req.County,
		BuildingType: buildingType,
		Freq:         defaultFreq(req.Freq),
	}

	var (
		bl  oedi.BuildingLoad
		err error
	)
	switch sector {
	case "residential":
		bl, err = p.oedi.ResStock(ctx, stockReq)
	case "commercial":
		bl, err = p.oedi.ComStock(ctx, stockReq)
	default:
		return Result{}, fmt.Errorf("sector %q has no building type data", sector)
	}
	if err != nil {
		return Result{}, err
	}

	stock := make([]float64, bl.Table.Len())
	for i := range stock {
		stock[i] = bl.Stock
	}
	if err := bl.Table.SetColumn(bl.StockName, stock); err != nil {
		return Result{}, err
	}
	return Result{Table: bl.Table, Degraded: bl.Degraded}, nil
}

func defaultFreq(freq time.Duration) time.Duration {
	if freq == 0 {
		return time.Hour
	}
	return freq
}

func sortedCodes(types map[string]string) []string {
	codes := make([]string, 0, len(types))
	for code := range types {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
