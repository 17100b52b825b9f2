package commands

import (
	"github.com/inferloop/tsforecast/internal/comparison"
	"github.com/inferloop/tsforecast/internal/export"
	"github.com/inferloop/tsforecast/internal/forecasters"
	"github.com/inferloop/tsforecast/internal/observability/metrics"
	"github.com/inferloop/tsforecast/internal/pipeline"
	"github.com/inferloop/tsforecast/internal/series"
	"github.com/inferloop/tsforecast/internal/storage"
	"github.com/inferloop/tsforecast/internal/validation"
	"github.com/inferloop/tsforecast/internal/visualization"
	"github.com/inferloop/tsforecast/pkg/constants"
)

// components are the wired pieces a command works with
type components struct {
	factory  *storage.Factory
	adapter  *forecasters.Adapter
	pipeline *pipeline.Pipeline
	plotter  *visualization.Plotter
	exporter *export.ExportEngine
	metrics  *metrics.PrometheusMetrics
}

// build wires loader, validator, harness and exporters from the configuration.
// Metrics are created when withMetrics is set or a textfile path is configured.
func (a *App) build(withMetrics bool) (*components, error) {
	cfg := a.Config
	logger := a.Logger

	factory := storage.NewFactory(&cfg.Storage, logger)
	adapter := forecasters.NewAdapter(forecasters.NewRegistry(&cfg.Forecasters, logger))

	p := pipeline.New(
		series.NewLoader(factory, &cfg.Synthetic, logger),
		validation.NewSeriesValidator(&validation.SeriesValidatorConfig{AllowedHorizons: cfg.Horizons}, logger),
		comparison.NewHarness(adapter, &comparison.Config{Confidence: cfg.Defaults.Confidence}, logger),
		logger,
	)

	plotConfig := visualization.DefaultPlotConfig()
	plotConfig.HistoryWeeks = cfg.Plot.HistoryWeeks
	plotter := visualization.NewPlotter(plotConfig, logger)

	exporter := export.NewExportEngine(&export.ExportConfig{
		Options: export.ExportOptions{
			DateFormat: constants.DateLayout,
			Precision:  -1,
			Pretty:     true,
		},
		Plot: plotConfig,
	}, logger)

	c := &components{
		factory:  factory,
		adapter:  adapter,
		pipeline: p,
		plotter:  plotter,
		exporter: exporter,
	}

	if withMetrics || cfg.Metrics.TextfilePath != "" {
		metricsConfig := cfg.Metrics
		m, err := metrics.NewPrometheusMetrics(&metricsConfig, logger)
		if err != nil {
			return nil, err
		}
		p.SetMetrics(m)
		c.metrics = m
	}

	return c, nil
}
