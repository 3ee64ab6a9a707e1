package pipeline

import (
	"context"

	"github.com/couchcryptid/county-loads/internal/adapter/oedi"
)

// CommercialCategories groups the ComStock end-use columns into load
// categories.
var CommercialCategories = CategoryMap{
	"elec_baseload": {
		"elec_exteriorlights",
		"elec_fans",
		"elec_heatrejection",
		"elec_equipment",
		"elec_interiorlights",
		"elec_pumps",
		"elec_refrigeration",
		"elec_watersystems",
	},
	"elec_cooling": {
		"elec_cooling",
	},
	"elec_heating": {
		"elec_heating",
		"elec_heatrecovery",
	},
	"elec_dg": {},
	"elec_total": {
		"elec_total",
	},
	"nonelec_baseload": {
		"district_hotwater",
		"gas_heating",
		"gas_equipment",
		"gas_watersystems",
		"other_watersystems",
	},
	"nonelec_cooling": {
		"district_cooling",
	},
	"nonelec_heating": {
		"other_heating",
		"district_heating",
	},
	"nonelec_dg": {},
	"nonelec_total": {
		"other_total",
		"gas_total",
		"district_totalcooling",
		"district_totalheating",
	},
}

// Commercial builds the consolidated commercial sector table for one county,
// weighting each building type's model load by the county's actual inventory
// floor area. An inventory prototype fanning out to k codes contributes
// area/k to each; codes absent from the inventory get zero area.
func (p *Pipeline) Commercial(ctx context.Context, req Request) (Result, error) {
	if _, err := p.counties.Lookup(req.State, req.County); err != nil {
		return Result{}, err
	}

	areas, err := p.openei.FloorAreas(ctx, req.State, req.County, req.Year)
	if err != nil {
		return Result{}, err
	}
	split := make(map[string]float64)
	for _, a := range areas {
		if len(a.Codes) == 0 {
			continue
		}
		share := a.Area / float64(len(a.Codes))
		for _, code := range a.Codes {
			split[code] += share
		}
	}

	degraded := false
	samples := make([]BuildingSample, 0, len(oedi.CommercialTypes))
	for _, code := range sortedCodes(oedi.CommercialTypes) {
		bl, err := p.oedi.ComStock(ctx, oedi.StockRequest{
			State:        req.State,
			County:       req.County,
			BuildingType: code,
			Freq:         defaultFreq(req.Freq),
		})
		if err != nil {
			return Result{}, err
		}
		degraded = degraded || bl.Degraded
		samples = append(samples, BuildingSample{Code: code, Load: bl, Actual: split[code]})
	}

	table, err := Consolidate(samples, CommercialCategories)
	if err != nil {
		return Result{}, err
	}
	return Result{Table: table, Degraded: degraded}, nil
}
