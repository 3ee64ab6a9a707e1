// Package cli implements the loads command surface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/county-loads/internal/adapter/http"
	"github.com/couchcryptid/county-loads/internal/config"
	"github.com/couchcryptid/county-loads/internal/observability"
	"github.com/couchcryptid/county-loads/internal/output"
	"github.com/couchcryptid/county-loads/internal/pipeline"
)

// Sectors is the set of sector arguments the command accepts.
var Sectors = []string{"residential", "commercial", "industrial", "agricultural", "weather"}

var (
	flagConfig      string
	flagDebug       bool
	flagMetricsAddr string

	flagYear         int
	flagOutput       string
	flagBuildingType string
	flagFormat       string
	flagPrecision    int
	flagFreq         time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "loads STATE COUNTY SECTOR",
	Short: "county electric load profile retrieval and aggregation",
	Long: `Retrieves, caches, and aggregates electricity load and weather datasets into
per-county hourly load profiles by sector.

Sectors: residential, commercial, industrial, agricultural, weather.`,
	Example: `  # Consolidated residential loads for Alameda County CA
  loads CA Alameda residential

  # Raw single-family detached end-use data
  loads CA Alameda residential --building_type RSD

  # CSV export
  loads CA Alameda commercial -o alameda.csv`,
	Args: cobra.ExactArgs(3),
	RunE: runSector,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging and full error chains")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")

	rootCmd.Flags().IntVarP(&flagYear, "year", "y", 0, "stock driver year (default most recent)")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file name (default stdout)")
	rootCmd.Flags().StringVar(&flagBuildingType, "building_type", "", "return raw data for one building type code")
	rootCmd.Flags().StringVar(&flagFormat, "format", "", "output format: csv, gzip, zip, or xlsx")
	rootCmd.Flags().IntVar(&flagPrecision, "precision", 3, "output decimal precision")
	rootCmd.Flags().DurationVar(&flagFreq, "freq", time.Hour, "sampling interval")

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(publishCmd)
}

// ExecuteContext runs the command tree and returns the process exit code.
// Errors are one-line messages; --debug raises the log level so the adapters'
// diagnostics surface alongside.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "ERROR [loads]: %v\n", err)
		return 1
	}
	return 0
}

// env assembles the shared runtime pieces every subcommand needs.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

func newEnv() (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagMetricsAddr != "" {
		cfg.MetricsAddr = flagMetricsAddr
	}
	level := cfg.LogLevel
	if flagDebug {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LoggerOptions{
		Level:  level,
		Format: cfg.LogFormat,
	})
	return &env{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}, nil
}

// startMetrics serves /metrics and /healthz when configured. The returned
// stop function drains the listener.
func (e *env) startMetrics() func() {
	if e.cfg.MetricsAddr == "" {
		return func() {}
	}
	srv := httpadapter.NewServer(e.cfg.MetricsAddr, e.logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics server error", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			e.logger.Error("metrics server shutdown error", "error", err)
		}
	}
}

func validSector(sector string) error {
	for _, s := range Sectors {
		if s == sector {
			return nil
		}
	}
	return fmt.Errorf("sector %q is invalid, must be one of %v", sector, Sectors)
}

func newRequest(state, county string) pipeline.Request {
	return pipeline.Request{
		State:  state,
		County: county,
		Year:   flagYear,
		Freq:   flagFreq,
	}
}

// buildDocument runs the pipeline for one sector request and renders the
// result. Annual sectors come back as a single row of scalars.
func buildDocument(ctx context.Context, p *pipeline.Pipeline, req pipeline.Request, sector string) (*output.Document, error) {
	if flagBuildingType != "" {
		res, err := p.RawBuildingType(ctx, req, sector, flagBuildingType)
		if err != nil {
			return nil, err
		}
		return output.FromTable(res.Table, flagPrecision), nil
	}

	switch sector {
	case "residential":
		res, err := p.Residential(ctx, req)
		if err != nil {
			return nil, err
		}
		return output.FromTable(res.Table, flagPrecision), nil
	case "commercial":
		res, err := p.Commercial(ctx, req)
		if err != nil {
			return nil, err
		}
		return output.FromTable(res.Table, flagPrecision), nil
	case "weather":
		res, err := p.Weather(ctx, req)
		if err != nil {
			return nil, err
		}
		return output.FromTable(res.Table, flagPrecision), nil
	case "industrial", "agricultural":
		load, err := annualLoad(ctx, p, req, sector)
		if err != nil {
			return nil, err
		}
		return output.FromScalars(pipeline.AnnualColumns, map[string]float64{
			"nonelec_total_MW": load.NonElectricMW,
			"elec_net_MW":      load.NetElectricMW,
		}, flagPrecision), nil
	}
	return nil, fmt.Errorf("sector %q is invalid", sector)
}

func runSector(cmd *cobra.Command, args []string) error {
	state, county, sector := args[0], args[1], args[2]
	if err := validSector(sector); err != nil {
		return err
	}
	// Resolve the output format up front so a bad combination fails before
	// any download starts.
	format, err := output.Resolve(flagFormat, flagOutput)
	if err != nil {
		return err
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	stop := e.startMetrics()
	defer stop()

	ctx := cmd.Context()
	p, err := pipeline.New(ctx, e.cfg, e.logger, e.metrics)
	if err != nil {
		return err
	}

	doc, err := buildDocument(ctx, p, newRequest(state, county), sector)
	if err != nil {
		return err
	}
	return output.NewWriter(e.logger, e.metrics).Write(doc, format, flagOutput)
}
