package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/county-loads/internal/adapter/nrel"
	"github.com/couchcryptid/county-loads/internal/adapter/oedi"
	"github.com/couchcryptid/county-loads/internal/timeseries"
)

var testCategories = CategoryMap{
	"elec_baseload":    {"elec_a", "elec_b"},
	"elec_cooling":     {"elec_c"},
	"elec_heating":     {},
	"elec_dg":          {"elec_pv"},
	"elec_total":       {"elec_total"},
	"nonelec_baseload": {"gas_a"},
	"nonelec_cooling":  {},
	"nonelec_heating":  {},
	"nonelec_dg":       {},
	"nonelec_total":    {"gas_a"},
}

// sample builds a one-row building load in W per stock unit.
func sample(t *testing.T, code string, stock float64, cols map[string]float64) BuildingSample {
	t.Helper()
	table := timeseries.New([]time.Time{time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)})
	for _, name := range []string{"elec_a", "elec_b", "elec_c", "elec_pv", "elec_total", "gas_a"} {
		require.NoError(t, table.AddColumn(name, []float64{cols[name]}))
	}
	return BuildingSample{Code: code, Load: oedi.BuildingLoad{Table: table, Stock: stock}}
}

func TestConsolidate(t *testing.T) {
	s1 := sample(t, "RSD", 30, map[string]float64{
		"elec_a": 1e6, "elec_b": 2e6, "elec_c": 3e6,
		"elec_pv": -1e6, "elec_total": 6e6, "gas_a": 4e6,
	})
	s1.Actual = 100
	s2 := sample(t, "RMH", 70, map[string]float64{
		"elec_a": 2e6, "elec_b": 2e6, "elec_c": 2e6,
		"elec_pv": 0, "elec_total": 6e6, "gas_a": 1e6,
	})
	s2.Actual = 200

	out, err := Consolidate([]BuildingSample{s1, s2}, testCategories)
	require.NoError(t, err)

	col := func(name string) float64 {
		vals, ok := out.Column(name)
		require.True(t, ok, name)
		return vals[0]
	}

	t.Run("scales each type by its stock share times the actual driver", func(t *testing.T) {
		// factor = 30/100*100 = 30 and 70/100*200 = 140.
		assert.InDelta(t, 3*30+4*140, col("elec_baseload_MW"), 1e-9)
		assert.InDelta(t, 3*30+2*140, col("elec_cooling_MW"), 1e-9)
		assert.InDelta(t, 4*30+1*140, col("nonelec_total_MW"), 1e-9)
	})

	t.Run("category sums reconcile with the totals", func(t *testing.T) {
		sum := col("elec_baseload_MW") + col("elec_cooling_MW") + col("elec_heating_MW")
		assert.InDelta(t, col("elec_total_MW"), sum, 1e-6)
	})

	t.Run("net load includes distributed generation", func(t *testing.T) {
		assert.InDelta(t, col("elec_total_MW")+col("elec_dg_MW"), col("elec_net_MW"), 1e-9)
		assert.InDelta(t, -30.0, col("elec_dg_MW"), 1e-9)
	})

	t.Run("output schema is sorted without the non-electric DG column", func(t *testing.T) {
		cols := out.Columns()
		assert.NotContains(t, cols, "nonelec_dg_MW")
		assert.Contains(t, cols, "elec_net_MW")
		for i := 1; i < len(cols); i++ {
			assert.Less(t, cols[i-1], cols[i])
		}
	})
}

func TestConsolidateZeroStockType(t *testing.T) {
	s1 := sample(t, "RSD", 100, map[string]float64{"elec_total": 6e6})
	s1.Actual = 50
	s2 := sample(t, "RMH", 0, map[string]float64{"elec_total": 9e9})
	s2.Actual = 50

	out, err := Consolidate([]BuildingSample{s1, s2}, testCategories)
	require.NoError(t, err)

	vals, _ := out.Column("elec_total_MW")
	assert.InDelta(t, 6.0*50, vals[0], 1e-9, "a zero-stock type contributes nothing")
}

func TestConsolidateZeroTotalStock(t *testing.T) {
	s := sample(t, "RSD", 0, map[string]float64{"elec_total": 0})
	out, err := Consolidate([]BuildingSample{s}, testCategories)
	require.NoError(t, err)

	vals, _ := out.Column("elec_total_MW")
	assert.True(t, math.IsNaN(vals[0]), "division by zero total stock surfaces as NaN")
}

func TestConsolidateErrors(t *testing.T) {
	_, err := Consolidate(nil, testCategories)
	assert.Error(t, err)

	s1 := sample(t, "RSD", 1, nil)
	s2 := sample(t, "RMH", 1, nil)
	s2.Load.Table = timeseries.New([]time.Time{
		time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2018, 1, 1, 1, 0, 0, 0, time.UTC),
	})
	_, err = Consolidate([]BuildingSample{s1, s2}, testCategories)
	assert.Error(t, err, "row count mismatch")
}

// Category maps may only reference canonical column names the loaders emit,
// otherwise the referenced end use silently sums to zero.
func TestCategoryMapsMatchLoaderSchemas(t *testing.T) {
	known := func(columns map[string]string) map[string]bool {
		set := make(map[string]bool, len(columns))
		for _, canon := range columns {
			set[canon] = true
		}
		return set
	}

	t.Run("residential", func(t *testing.T) {
		canon := known(oedi.ResidentialColumns)
		for cat, cols := range ResidentialCategories {
			for _, c := range cols {
				assert.True(t, canon[c], "%s references unknown column %s", cat, c)
			}
		}
	})

	t.Run("commercial", func(t *testing.T) {
		canon := known(oedi.CommercialColumns)
		for cat, cols := range CommercialCategories {
			for _, c := range cols {
				assert.True(t, canon[c], "%s references unknown column %s", cat, c)
			}
		}
	})
}

func TestShapeAnnual(t *testing.T) {
	shape, err := timeseries.RangeShape([]float64{0.5, 0.5},
		time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2018, 1, 1, 1, 0, 0, 0, time.UTC), time.Hour)
	require.NoError(t, err)

	table, err := ShapeAnnual(nrel.AnnualLoad{NonElectricMW: 100, NetElectricMW: 40}, shape)
	require.NoError(t, err)

	assert.Equal(t, AnnualColumns, table.Columns())
	nonelec, _ := table.Column("nonelec_total_MW")
	elec, _ := table.Column("elec_net_MW")
	assert.Equal(t, []float64{50, 50}, nonelec)
	assert.Equal(t, []float64{20, 20}, elec)
}
