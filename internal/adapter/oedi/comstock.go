package oedi

import (
	"context"
)

// CommercialTypes maps commercial building-type codes to the dataset's
// building-type slugs. Codes are C, size {L,M,S}, and use {F,H,L,O,E,R,W}.
var CommercialTypes = map[string]string{
	"CLF": "fullservicerestaurant",
	"CLH": "hospital",
	"CLL": "largehotel",
	"CLO": "largeoffice",
	"CSH": "outpatient",
	"CMO": "mediumoffice",
	"CSE": "primaryschool",
	"CSF": "quickservicerestaurant",
	"CSR": "retailstandalone",
	"CMR": "retailstripmall",
	"CME": "secondaryschool",
	"CSL": "smallhotel",
	"CSO": "smalloffice",
	"CMW": "warehouse",
}

// CommercialColumns maps the dataset's end-use columns to canonical names.
// Values are normalized to average watts per square foot of floor area.
var CommercialColumns = map[string]string{
	"out.district_cooling.cooling.energy_consumption":        "district_cooling",
	"out.district_heating.heating.energy_consumption":        "district_heating",
	"out.district_heating.water_systems.energy_consumption":  "district_hotwater",
	"out.electricity.cooling.energy_consumption":             "elec_cooling",
	"out.electricity.exterior_lighting.energy_consumption":   "elec_exteriorlights",
	"out.electricity.fans.energy_consumption":                "elec_fans",
	"out.electricity.heat_recovery.energy_consumption":       "elec_heatrecovery",
	"out.electricity.heat_rejection.energy_consumption":      "elec_heatrejection",
	"out.electricity.heating.energy_consumption":             "elec_heating",
	"out.electricity.interior_equipment.energy_consumption":  "elec_equipment",
	"out.electricity.interior_lighting.energy_consumption":   "elec_interiorlights",
	"out.electricity.pumps.energy_consumption":               "elec_pumps",
	"out.electricity.refrigeration.energy_consumption":       "elec_refrigeration",
	"out.electricity.water_systems.energy_consumption":       "elec_watersystems",
	"out.natural_gas.heating.energy_consumption":             "gas_heating",
	"out.natural_gas.interior_equipment.energy_consumption":  "gas_equipment",
	"out.natural_gas.water_systems.energy_consumption":       "gas_watersystems",
	"out.district_cooling.total.energy_consumption":          "district_totalcooling",
	"out.district_heating.total.energy_consumption":          "district_totalheating",
	"out.electricity.total.energy_consumption":               "elec_total",
	"out.natural_gas.total.energy_consumption":               "gas_total",
	"out.other_fuel.heating.energy_consumption":              "other_heating",
	"out.other_fuel.water_systems.energy_consumption":        "other_watersystems",
	"out.other_fuel.total.energy_consumption":                "other_total",
	"out.site_energy.total.energy_consumption":               "total",
}

// ComStock loads one commercial building type's end-use timeseries in
// average W per square foot.
func (c *Client) ComStock(ctx context.Context, req StockRequest) (BuildingLoad, error) {
	return c.load(ctx, stockDataset{
		name:        "comstock",
		urlRoot:     c.comstockURL,
		types:       CommercialTypes,
		columns:     CommercialColumns,
		stockColumn: "floor_area_represented",
		stockName:   "floor_area",
	}, req)
}
