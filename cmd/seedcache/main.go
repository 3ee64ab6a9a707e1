// Command seedcache populates a dataset cache with synthetic fixtures for one
// county, so the loads command can run offline in demos and integration
// checks. The fixtures use the real cache keys and source file formats, so
// every loader exercises its normal parse path.
//
// Usage:
//
//	go run ./cmd/seedcache -cache-dir .cache -state CA -county Alameda
package main

import (
	"bytes"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/county-loads/internal/adapter/cache"
	"github.com/couchcryptid/county-loads/internal/geo"
	"github.com/couchcryptid/county-loads/internal/observability"
	"github.com/couchcryptid/county-loads/internal/timeseries"
)

const refYear = 2018

// countyFIPS is the synthetic county's 3-digit code within its state.
const countyFIPS = "001"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cacheDir := flag.String("cache-dir", "", "cache directory to populate")
	state := flag.String("state", "CA", "state postal code")
	county := flag.String("county", "Alameda", "county short name")
	seed := flag.Int64("seed", 1, "random seed for synthetic load values")
	flag.Parse()

	if *cacheDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -cache-dir")
	}

	st, err := geo.StateByCode(*state)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.LoggerOptions{Level: "info"})
	store, err := cache.New(*cacheDir, logger, observability.NewMetricsForTesting())
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(*seed))

	fips := st.FIPS + countyFIPS

	if err := store.Write("national_county.txt", countyList(*state, st.FIPS, *county)); err != nil {
		return fmt.Errorf("seed county list: %w", err)
	}
	log.Printf("seeded county list: %s %s (FIPS %s)", *state, *county, fips)

	resTypes := map[string][]string{
		"RSD": resColumns, "RSA": resColumns, "RSM": resColumns,
		"RMM": resColumns, "RMH": resColumns,
	}
	comTypes := map[string][]string{
		"CLF": comColumns, "CLH": comColumns, "CLL": comColumns, "CLO": comColumns,
		"CSH": comColumns, "CMO": comColumns, "CSE": comColumns, "CSF": comColumns,
		"CSR": comColumns, "CMR": comColumns, "CME": comColumns, "CSL": comColumns,
		"CSO": comColumns, "CMW": comColumns,
	}
	for code, cols := range resTypes {
		key := cache.Key(".csv.gz", *state, *county, code)
		if err := store.Write(key, stockCSV(rng, cols, "units_represented", 1000)); err != nil {
			return fmt.Errorf("seed %s: %w", key, err)
		}
	}
	for code, cols := range comTypes {
		key := cache.Key(".csv.gz", *state, *county, code)
		if err := store.Write(key, stockCSV(rng, cols, "floor_area_represented", 250000)); err != nil {
			return fmt.Errorf("seed %s: %w", key, err)
		}
	}
	log.Printf("seeded %d building type files", len(resTypes)+len(comTypes))

	weather, err := weatherCSV(rng)
	if err != nil {
		return err
	}
	if err := store.Write(cache.Key(".csv.gz", "weather", *state, *county), weather); err != nil {
		return fmt.Errorf("seed weather: %w", err)
	}

	if err := store.Write(cache.Key(".csv", *state, "housing_units"),
		housingUnitsCSV(*county, st.Name, rng)); err != nil {
		return fmt.Errorf("seed housing units: %w", err)
	}
	if err := store.Write("floorarea.csv.gz", floorAreaCSV(*state, fips, rng)); err != nil {
		return fmt.Errorf("seed floor area: %w", err)
	}
	if err := store.Write("industry.csv.gz",
		annualCSV(fips, []string{"Coal", "Coke_and_breeze", "Diesel", "LPG_NGL",
			"Natural_gas", "Net_electricity", "Other", "Residual_fuel_oil"}, rng)); err != nil {
		return fmt.Errorf("seed industry: %w", err)
	}
	if err := store.Write("agriculture.csv.gz",
		annualCSV(fips, []string{"Diesel", "LPG_NGL", "Natural_gas",
			"Net_electricity", "Residual_fuel_oil"}, rng)); err != nil {
		return fmt.Errorf("seed agriculture: %w", err)
	}

	log.Printf("cache seeded: %s", store.Dir())
	return nil
}

func countyList(state, stateFIPS, county string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s,%s,%s,%s County,H1\n", state, stateFIPS, countyFIPS, county)
	// A second county so FIPS-ordered joins have a neighbor.
	fmt.Fprintf(&buf, "%s,%s,003,Example County,H1\n", state, stateFIPS)
	return buf.Bytes()
}

// stockCSV renders a year of hourly end-use data in the aggregate file
// format: naive EST end-of-interval timestamps and per-interval energy.
func stockCSV(rng *rand.Rand, columns []string, stockColumn string, stock float64) []byte {
	names := append([]string(nil), columns...)
	sort.Strings(names)

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	header := append([]string{"timestamp"}, names...)
	header = append(header, stockColumn)
	cw.Write(header) //nolint:errcheck // bytes.Buffer writes cannot fail

	scale := make([]float64, len(names))
	for i := range scale {
		scale[i] = rng.Float64() * 1e5
	}

	start := time.Date(refYear, 1, 1, 0, 15, 0, 0, time.UTC)
	row := make([]string, len(header))
	for h := 0; h < 8760; h++ {
		row[0] = start.Add(time.Duration(h) * time.Hour).Format("2006-01-02 15:04:05")
		daily := 1 + 0.5*math.Sin(2*math.Pi*float64(h%24)/24)
		for i := range names {
			row[i+1] = strconv.FormatFloat(scale[i]*daily, 'f', 6, 64)
		}
		row[len(row)-1] = strconv.FormatFloat(stock, 'f', 1, 64)
		cw.Write(row) //nolint:errcheck // bytes.Buffer writes cannot fail
	}
	cw.Flush()
	return buf.Bytes()
}

// weatherCSV renders an already-transformed weather table, which is what the
// weather loader caches.
func weatherCSV(rng *rand.Rand) ([]byte, error) {
	start := time.Date(refYear, 1, 1, 0, 0, 0, 0, time.UTC)
	index := timeseries.Range(start, start.AddDate(1, 0, 0).Add(-time.Hour), time.Hour)
	table := timeseries.New(index)

	cols := map[string]func(h int) float64{
		"temperature[degF]": func(h int) float64 { return 50 + 20*math.Sin(2*math.Pi*float64(h)/8760) },
		"humidity[%]":       func(h int) float64 { return math.Round((40+30*rng.Float64())*10) / 10 },
		"global[W/m^2]":     func(h int) float64 { return math.Max(0, 800*math.Sin(2*math.Pi*float64(h%24)/24)) },
		"direct[W/m^2]":     func(h int) float64 { return math.Max(0, 600*math.Sin(2*math.Pi*float64(h%24)/24)) },
		"diffuse[W/m^2]":    func(h int) float64 { return math.Max(0, 200*math.Sin(2*math.Pi*float64(h%24)/24)) },
	}
	for name, fn := range cols {
		values := make([]float64, len(index))
		for h := range values {
			values[h] = fn(h)
		}
		if err := table.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	table.SortColumns()

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, -1); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func housingUnitsCSV(county, stateName string, rng *rand.Rand) []byte {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Write([]string{"county", "2020", "2021", "2022", "2023", "2024"}) //nolint:errcheck
	label := fmt.Sprintf(".%s County, %s", county, stateName)
	base := 500000 + rng.Intn(100000)
	row := []string{label}
	for y := 0; y < 5; y++ {
		row = append(row, strconv.Itoa(base+y*2500))
	}
	cw.Write(row) //nolint:errcheck
	cw.Flush()
	return buf.Bytes()
}

func floorAreaCSV(state, fips string, rng *rand.Rand) []byte {
	prototypes := []string{
		"apartment", "full_service_restaurant", "hotel", "office", "outpatient",
		"quick_service_restaurant", "retail", "school", "strip_mall",
		"supermarket", "warehouse", "hospital",
	}
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Write([]string{"ST", "FIPS", "BUILDING_TYPE", "FLOORAREA"}) //nolint:errcheck
	for _, p := range prototypes {
		area := (1 + rng.Float64()*9) * 1e6
		cw.Write([]string{state, fips, p, strconv.FormatFloat(area, 'f', 1, 64)}) //nolint:errcheck
	}
	cw.Flush()
	return buf.Bytes()
}

func annualCSV(fips string, fuels []string, rng *rand.Rand) []byte {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Write(append([]string{"fips_matching"}, fuels...)) //nolint:errcheck
	row := []string{fips}
	for range fuels {
		row = append(row, strconv.FormatFloat(rng.Float64()*5, 'f', 4, 64))
	}
	cw.Write(row) //nolint:errcheck
	cw.Flush()
	return buf.Bytes()
}

var resColumns = []string{
	"out.electricity.cooling.energy_consumption",
	"out.electricity.heating.energy_consumption",
	"out.electricity.interior_lighting.energy_consumption",
	"out.electricity.plug_loads.energy_consumption",
	"out.electricity.pv.energy_consumption",
	"out.electricity.refrigerator.energy_consumption",
	"out.electricity.total.energy_consumption",
	"out.natural_gas.heating.energy_consumption",
	"out.natural_gas.total.energy_consumption",
	"out.site_energy.total.energy_consumption",
}

var comColumns = []string{
	"out.electricity.cooling.energy_consumption",
	"out.electricity.fans.energy_consumption",
	"out.electricity.heating.energy_consumption",
	"out.electricity.interior_equipment.energy_consumption",
	"out.electricity.interior_lighting.energy_consumption",
	"out.electricity.total.energy_consumption",
	"out.natural_gas.heating.energy_consumption",
	"out.natural_gas.total.energy_consumption",
	"out.site_energy.total.energy_consumption",
}
