package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/county-loads/internal/adapter/kafka"
	"github.com/couchcryptid/county-loads/internal/adapter/nrel"
	"github.com/couchcryptid/county-loads/internal/pipeline"
	"github.com/couchcryptid/county-loads/internal/timeseries"
)

var (
	flagBrokers []string
	flagTopic   string
)

var publishCmd = &cobra.Command{
	Use:   "publish STATE COUNTY SECTOR",
	Short: "publish a sector load profile to Kafka",
	Long: `Builds the consolidated load profile for one county sector and publishes
every row to the configured Kafka topic. Annual sectors are rolled out as a
constant hourly profile at the annual average power.`,
	Args: cobra.ExactArgs(3),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringSliceVar(&flagBrokers, "brokers", nil, "Kafka broker addresses")
	publishCmd.Flags().StringVar(&flagTopic, "topic", "", "Kafka topic (default from config)")
	publishCmd.Flags().IntVarP(&flagYear, "year", "y", 0, "stock driver year (default most recent)")
	publishCmd.Flags().DurationVar(&flagFreq, "freq", time.Hour, "sampling interval")
}

func runPublish(cmd *cobra.Command, args []string) error {
	state, county, sector := args[0], args[1], args[2]
	if err := validSector(sector); err != nil {
		return err
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	if len(flagBrokers) > 0 {
		e.cfg.KafkaBrokers = flagBrokers
	}
	if flagTopic != "" {
		e.cfg.KafkaTopic = flagTopic
	}
	if len(e.cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("no Kafka brokers configured, set --brokers or KAFKA_BROKERS")
	}
	stop := e.startMetrics()
	defer stop()

	ctx := cmd.Context()
	p, err := pipeline.New(ctx, e.cfg, e.logger, e.metrics)
	if err != nil {
		return err
	}

	res, err := sectorResult(ctx, p, newRequest(state, county), sector, e.cfg.ReferenceYear)
	if err != nil {
		return err
	}

	writer := kafka.NewWriter(e.cfg.KafkaBrokers, e.cfg.KafkaTopic, e.logger, e.metrics)
	defer writer.Close()
	return writer.PublishTable(ctx, state, county, sector, res.Table, res.Degraded)
}

// sectorResult builds the timeseries for any sector. Annual sectors are
// shaped into a constant profile over the reference year.
func sectorResult(ctx context.Context, p *pipeline.Pipeline, req pipeline.Request,
	sector string, refYear int) (pipeline.Result, error) {
	switch sector {
	case "residential":
		return p.Residential(ctx, req)
	case "commercial":
		return p.Commercial(ctx, req)
	case "weather":
		return p.Weather(ctx, req)
	case "industrial", "agricultural":
		load, err := annualLoad(ctx, p, req, sector)
		if err != nil {
			return pipeline.Result{}, err
		}
		shape, err := timeseries.RangeShape([]float64{1},
			time.Date(refYear, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(refYear, 12, 31, 23, 0, 0, 0, time.UTC),
			time.Hour)
		if err != nil {
			return pipeline.Result{}, err
		}
		table, err := pipeline.ShapeAnnual(load, shape)
		if err != nil {
			return pipeline.Result{}, err
		}
		return pipeline.Result{Table: table}, nil
	}
	return pipeline.Result{}, fmt.Errorf("sector %q is invalid", sector)
}

func annualLoad(ctx context.Context, p *pipeline.Pipeline, req pipeline.Request, sector string) (nrel.AnnualLoad, error) {
	if sector == "industrial" {
		return p.Industrial(ctx, req)
	}
	return p.Agricultural(ctx, req)
}
