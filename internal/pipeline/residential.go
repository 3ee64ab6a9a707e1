package pipeline

import (
	"context"

	"github.com/couchcryptid/county-loads/internal/adapter/oedi"
)

// ResidentialCategories groups the ResStock end-use columns into load
// categories. Baseload covers everything that runs regardless of outdoor
// conditions; cooling and heating cover the weather-sensitive end uses; dg is
// on-site generation.
var ResidentialCategories = CategoryMap{
	"elec_baseload": {
		"elec_bathfan",
		"elec_ceilingfan",
		"elec_dryer",
		"elec_washer",
		"elec_cooking",
		"elec_dishwasher",
		"elec_holidaylight",
		"elec_extlighting",
		"elec_extrarefrigerator",
		"elec_freezer",
		"elec_garagelighting",
		"elec_hottubheater",
		"elec_hottubpump",
		"elec_housefan",
		"elec_interiorlighting",
		"elec_plugs",
		"elec_poolheater",
		"elec_poolpump",
		"elec_rangefan",
		"elec_recircpump",
		"elec_refrigerator",
		"elec_vehicle",
		"elec_watersystems",
		"elec_wellpump",
	},
	"elec_cooling": {
		"elec_cooling",
		"elec_coolingfan",
		"elec_coolingpump",
	},
	"elec_heating": {
		"elec_heating",
		"elec_heatingfan",
		"elec_heatingsupplement",
		"elec_heatingpump",
	},
	"elec_dg": {
		"elec_pv",
	},
	"elec_total": {
		"elec_total",
	},
	"nonelec_baseload": {
		"oil_watersystems",
		"gas_dryer",
		"gas_cooking",
		"gas_grill",
		"gas_hottubheater",
		"gas_lighting",
		"gas_poolheater",
		"lng_dryer",
		"lng_range",
		"lng_watersystems",
	},
	"nonelec_cooling": {},
	"nonelec_heating": {
		"oil_heating",
		"gas_fireplace",
		"gas_heating",
		"gas_watersystems",
		"lng_heating",
		"wood_heating",
	},
	"nonelec_dg": {},
	"nonelec_total": {
		"oil_total",
		"gas_total",
		"lng_total",
		"wood_total",
	},
}

// Residential builds the consolidated residential sector table for one
// county, weighting each building type's model load by the county's actual
// housing-unit count.
func (p *Pipeline) Residential(ctx context.Context, req Request) (Result, error) {
	if _, err := p.counties.Lookup(req.State, req.County); err != nil {
		return Result{}, err
	}

	driver, err := p.census.Units(ctx, req.State, req.County, req.Year)
	if err != nil {
		return Result{}, err
	}
	degraded := driver.Degraded

	samples := make([]BuildingSample, 0, len(oedi.ResidentialTypes))
	for _, code := range sortedCodes(oedi.ResidentialTypes) {
		bl, err := p.oedi.ResStock(ctx, oedi.StockRequest{
			State:        req.State,
			County:       req.County,
			BuildingType: code,
			Freq:         defaultFreq(req.Freq),
		})
		if err != nil {
			return Result{}, err
		}
		degraded = degraded || bl.Degraded
		samples = append(samples, BuildingSample{Code: code, Load: bl, Actual: driver.Value})
	}

	table, err := Consolidate(samples, ResidentialCategories)
	if err != nil {
		return Result{}, err
	}
	return Result{Table: table, Degraded: degraded}, nil
}
