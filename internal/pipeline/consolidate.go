package pipeline

import (
	"fmt"
	"sort"

	"github.com/couchcryptid/county-loads/internal/adapter/oedi"
	"github.com/couchcryptid/county-loads/internal/timeseries"
)

// CategoryMap groups canonical end-use columns into load categories. Category
// names become output columns with an _MW suffix.
type CategoryMap map[string][]string

// BuildingSample is one building type's contribution to a sector: the loaded
// per-stock-unit table plus the actual stock driver assigned to the type.
type BuildingSample struct {
	Code   string
	Load   oedi.BuildingLoad
	Actual float64
}

// Consolidate collapses per-building-type end-use tables into sector-level
// category columns in MW. Each type's category sums are scaled by its share
// of the total model stock times its actual stock driver, then summed across
// types. The net electric column is total plus distributed generation, and
// the meaningless non-electric DG column is dropped. Columns come out in
// alphabetical order.
func Consolidate(samples []BuildingSample, categories CategoryMap) (*timeseries.Table, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("consolidate: no building samples")
	}
	index := samples[0].Load.Table.Index()
	n := len(index)

	total := 0.0
	for _, s := range samples {
		total += s.Load.Stock
	}

	cats := make([]string, 0, len(categories))
	for cat := range categories {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	acc := make(map[string][]float64, len(cats))
	for _, cat := range cats {
		acc[cat] = make([]float64, n)
	}

	for _, s := range samples {
		if s.Load.Table.Len() != n {
			return nil, fmt.Errorf("consolidate: %s has %d rows, want %d",
				s.Code, s.Load.Table.Len(), n)
		}
		// A zero total stock propagates NaN, matching the upstream tables.
		factor := s.Load.Stock / total * s.Actual
		for _, cat := range cats {
			sum := s.Load.Table.SumOf(categories[cat]...)
			dst := acc[cat]
			for i, v := range sum {
				dst[i] += v / 1e6 * factor
			}
		}
	}

	out := timeseries.New(index)
	for _, cat := range cats {
		if err := out.AddColumn(cat+"_MW", acc[cat]); err != nil {
			return nil, err
		}
	}
	if err := out.SetColumn("elec_net_MW", out.SumOf("elec_total_MW", "elec_dg_MW")); err != nil {
		return nil, err
	}
	out.DropColumn("nonelec_dg_MW")
	out.SortColumns()
	return out, nil
}
