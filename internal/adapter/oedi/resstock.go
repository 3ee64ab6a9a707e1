package oedi

import (
	"context"
)

// ResidentialTypes maps residential building-type codes to the dataset's
// building-type slugs: single-family detached/attached, small and large
// multi-family, and mobile home.
var ResidentialTypes = map[string]string{
	"RSD": "single-family_detached",
	"RSA": "single-family_attached",
	"RSM": "multi-family_with_2_-_4_units",
	"RMM": "multi-family_with_5plus_units",
	"RMH": "mobile_home",
}

// ResidentialColumns maps the dataset's end-use columns to canonical names.
// Source columns not listed here are dropped. Values are normalized to
// average watts per housing unit.
var ResidentialColumns = map[string]string{
	"out.electricity.bath_fan.energy_consumption":           "elec_bathfan",
	"out.electricity.ceiling_fan.energy_consumption":        "elec_ceilingfan",
	"out.electricity.clothes_dryer.energy_consumption":      "elec_dryer",
	"out.electricity.clothes_washer.energy_consumption":     "elec_washer",
	"out.electricity.cooking_range.energy_consumption":      "elec_cooking",
	"out.electricity.cooling.energy_consumption":            "elec_cooling",
	"out.electricity.dishwasher.energy_consumption":         "elec_dishwasher",
	"out.electricity.ext_holiday_light.energy_consumption":  "elec_holidaylight",
	"out.electricity.exterior_lighting.energy_consumption":  "elec_extlighting",
	"out.electricity.extra_refrigerator.energy_consumption": "elec_extrarefrigerator",
	"out.electricity.fans_cooling.energy_consumption":       "elec_coolingfan",
	"out.electricity.fans_heating.energy_consumption":       "elec_heatingfan",
	"out.electricity.freezer.energy_consumption":            "elec_freezer",
	"out.electricity.garage_lighting.energy_consumption":    "elec_garagelighting",
	"out.electricity.heating.energy_consumption":            "elec_heating",
	"out.electricity.heating_supplement.energy_consumption": "elec_heatingsupplement",
	"out.electricity.hot_tub_heater.energy_consumption":     "elec_hottubheater",
	"out.electricity.hot_tub_pump.energy_consumption":       "elec_hottubpump",
	"out.electricity.house_fan.energy_consumption":          "elec_housefan",
	"out.electricity.interior_lighting.energy_consumption":  "elec_interiorlighting",
	"out.electricity.plug_loads.energy_consumption":         "elec_plugs",
	"out.electricity.pool_heater.energy_consumption":        "elec_poolheater",
	"out.electricity.pool_pump.energy_consumption":          "elec_poolpump",
	"out.electricity.pumps_cooling.energy_consumption":      "elec_coolingpump",
	"out.electricity.pumps_heating.energy_consumption":      "elec_heatingpump",
	"out.electricity.pv.energy_consumption":                 "elec_pv",
	"out.electricity.range_fan.energy_consumption":          "elec_rangefan",
	"out.electricity.recirc_pump.energy_consumption":        "elec_recircpump",
	"out.electricity.refrigerator.energy_consumption":       "elec_refrigerator",
	"out.electricity.total.energy_consumption":              "elec_total",
	"out.electricity.vehicle.energy_consumption":            "elec_vehicle",
	"out.electricity.water_systems.energy_consumption":      "elec_watersystems",
	"out.electricity.well_pump.energy_consumption":          "elec_wellpump",
	"out.fuel_oil.heating.energy_consumption":               "oil_heating",
	"out.fuel_oil.total.energy_consumption":                 "oil_total",
	"out.fuel_oil.water_systems.energy_consumption":         "oil_watersystems",
	"out.natural_gas.clothes_dryer.energy_consumption":      "gas_dryer",
	"out.natural_gas.cooking_range.energy_consumption":      "gas_cooking",
	"out.natural_gas.fireplace.energy_consumption":          "gas_fireplace",
	"out.natural_gas.grill.energy_consumption":              "gas_grill",
	"out.natural_gas.heating.energy_consumption":            "gas_heating",
	"out.natural_gas.hot_tub_heater.energy_consumption":     "gas_hottubheater",
	"out.natural_gas.lighting.energy_consumption":           "gas_lighting",
	"out.natural_gas.pool_heater.energy_consumption":        "gas_poolheater",
	"out.natural_gas.total.energy_consumption":              "gas_total",
	"out.natural_gas.water_systems.energy_consumption":      "gas_watersystems",
	"out.propane.clothes_dryer.energy_consumption":          "lng_dryer",
	"out.propane.cooking_range.energy_consumption":          "lng_range",
	"out.propane.heating.energy_consumption":                "lng_heating",
	"out.propane.total.energy_consumption":                  "lng_total",
	"out.propane.water_systems.energy_consumption":          "lng_watersystems",
	"out.site_energy.total.energy_consumption":              "total",
	"out.wood.heating.energy_consumption":                   "wood_heating",
	"out.wood.total.energy_consumption":                     "wood_total",
}

// ResStock loads one residential building type's end-use timeseries in
// average W per housing unit.
func (c *Client) ResStock(ctx context.Context, req StockRequest) (BuildingLoad, error) {
	return c.load(ctx, stockDataset{
		name:        "resstock",
		urlRoot:     c.resstockURL,
		types:       ResidentialTypes,
		columns:     ResidentialColumns,
		stockColumn: "units_represented",
		stockName:   "units",
	}, req)
}
