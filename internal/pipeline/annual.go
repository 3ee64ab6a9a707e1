package pipeline

import (
	"context"

	"github.com/couchcryptid/county-loads/internal/adapter/nrel"
	"github.com/couchcryptid/county-loads/internal/timeseries"
)

// AnnualColumns is the output schema of the annual sectors.
var AnnualColumns = []string{"nonelec_total_MW", "elec_net_MW"}

// Industrial returns the county's aggregate industrial load as average MW.
func (p *Pipeline) Industrial(ctx context.Context, req Request) (nrel.AnnualLoad, error) {
	return p.nrel.Industry(ctx, req.State, req.County)
}

// Agricultural returns the county's aggregate agricultural load as average MW.
func (p *Pipeline) Agricultural(ctx context.Context, req Request) (nrel.AnnualLoad, error) {
	return p.nrel.Agriculture(ctx, req.State, req.County)
}

// ShapeAnnual rolls an annual average load out over a load shape, producing a
// timeseries with one column per annual aggregate. The shape must total 1.0
// for the rollout's total energy to match the annual figure.
func ShapeAnnual(load nrel.AnnualLoad, shape timeseries.LoadShape) (*timeseries.Table, error) {
	return shape.Rollout(AnnualColumns, map[string]float64{
		"nonelec_total_MW": load.NonElectricMW,
		"elec_net_MW":      load.NetElectricMW,
	})
}
