package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inferloop/tsforecast/internal/comparison"
	"github.com/inferloop/tsforecast/internal/export"
	"github.com/inferloop/tsforecast/internal/pipeline"
	"github.com/inferloop/tsforecast/internal/series"
	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// CompareOptions are the flags of the compare command
type CompareOptions struct {
	Source      string
	Synthetic   bool
	ValueColumn string
	Horizon     int
	Metric      string
	Forecasters []string
	PreviewRows int
	Outputs     []string
	Plot        string
	Store       bool
	NoProgress  bool
}

const sourceGuidance = `No data source selected.

Pass --synthetic to use the built-in weekly demo series, or give a source:
  tsforecast-cli compare sales.csv
  tsforecast-cli compare s3://bucket/path/sales.csv
  tsforecast-cli compare influx://bucket/measurement?field=value
  tsforecast-cli compare timescaledb://public.sales?time=ts&columns=amount
`

// NewCompareCmd runs the whole comparison and prints the report
func NewCompareCmd(app *App) *cobra.Command {
	opts := &CompareOptions{}

	cmd := &cobra.Command{
		Use:   "compare [source]",
		Short: "Fit, predict and rank forecasters on a held-out horizon",
		Long: `Load a series, aggregate it to weeks ending Sunday, hold out the last
horizon weeks, evaluate every selected forecaster on them and rank the results.
A forecaster that fails is reported and skipped; the others still run.`,
		Example: `  # Demo series, default horizon and forecasters
  tsforecast-cli compare --synthetic

  # Own data, 26 week horizon, a few forecasters, export the report
  tsforecast-cli compare sales.csv --horizon 26 -f naive,holt,arima -o report.json -o plot.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Source = args[0]
			}
			return runCompare(cmd, app, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Source, "source", "s", "", "CSV path or source URI (s3://, influx://, timescaledb://)")
	cmd.Flags().BoolVar(&opts.Synthetic, "synthetic", false, "use the built-in synthetic weekly series")
	cmd.Flags().StringVar(&opts.ValueColumn, "value-column", "", "value column to use when the data has several")
	cmd.Flags().IntVarP(&opts.Horizon, "horizon", "H", 0, "forecast horizon in weeks (default from config)")
	cmd.Flags().StringVarP(&opts.Metric, "metric", "m", "", "ranking metric: mape, smape, mae, rmse (default from config)")
	cmd.Flags().StringSliceVarP(&opts.Forecasters, "forecasters", "f", nil, "forecasters to compare (default from config)")
	cmd.Flags().IntVar(&opts.PreviewRows, "preview", 0, "rows of the series to preview (default from config)")
	cmd.Flags().StringArrayVarP(&opts.Outputs, "output", "o", nil, "write the report to a file; format from extension (.json, .csv, .txt, .png, optional .gz)")
	cmd.Flags().StringVar(&opts.Plot, "plot", "", "write the forecast plot to this PNG file")
	cmd.Flags().BoolVar(&opts.Store, "store", false, "save the report to the configured report sink")
	cmd.Flags().BoolVar(&opts.NoProgress, "no-progress", false, "do not print per-forecaster progress")

	return cmd
}

func runCompare(cmd *cobra.Command, app *App, opts *CompareOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	cfg := app.Config

	if opts.Plot != "" {
		if format, _ := export.FormatForPath(opts.Plot); format != constants.FormatPNG {
			return errors.NewInputError(errors.CodeInvalidRequest, fmt.Sprintf("--plot needs a .png path, got %q", opts.Plot))
		}
	}

	c, err := app.build(false)
	if err != nil {
		return err
	}

	if opts.Store {
		store, err := c.factory.NewReportStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			app.Logger.Warn("No report sink configured, --store ignored")
		} else {
			defer store.Close()
			c.pipeline.SetSink(store, c.plotter)
		}
	}

	source := opts.Source
	if opts.Synthetic {
		source = constants.SourceSynthetic
	}

	runOpts := pipeline.Options{
		Request:     series.Request{Source: source},
		ValueColumn: opts.ValueColumn,
		Horizon:     firstSet(opts.Horizon, cfg.Defaults.Horizon),
		Metric:      strings.ToLower(firstString(opts.Metric, cfg.Defaults.Metric)),
		Forecasters: opts.Forecasters,
		PreviewRows: firstSet(opts.PreviewRows, cfg.Defaults.PreviewRows),
	}
	if len(runOpts.Forecasters) == 0 {
		runOpts.Forecasters = cfg.Defaults.Forecasters
	}

	app.Logger.WithFields(logFields(runOpts)).Debug("Starting comparison")

	var progress comparison.Progress
	if !opts.NoProgress {
		progress = progressPrinter(cmd.ErrOrStderr(), runOpts.Metric)
	}

	report, err := c.pipeline.Execute(ctx, runOpts, progress)
	if err != nil {
		if errors.IsUserInputMissing(err) {
			_, werr := io.WriteString(out, sourceGuidance)
			return werr
		}
		return err
	}

	if err := c.exporter.Export(ctx, report, constants.FormatText, out); err != nil {
		return err
	}

	paths := opts.Outputs
	if opts.Plot != "" {
		paths = append(paths, opts.Plot)
	}
	for _, path := range paths {
		if err := c.exporter.ExportToFile(ctx, report, path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", path)
	}

	return nil
}

// progressPrinter reports each finished forecaster, success or failure alike
func progressPrinter(w io.Writer, metric string) comparison.Progress {
	return func(done, total int, outcome models.Outcome) {
		if outcome.Succeeded() {
			value, _ := outcome.Result.Accuracy.Get(metric)
			fmt.Fprintf(w, "[%d/%d] %-22s ok      %s %.4f\n", done, total, outcome.Forecaster, metric, value)
			return
		}
		fmt.Fprintf(w, "[%d/%d] %-22s failed  %s: %s\n", done, total, outcome.Forecaster, outcome.Failure.Stage, outcome.Failure.Message)
	}
}

func firstSet(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func logFields(opts pipeline.Options) logrus.Fields {
	return logrus.Fields{
		"source":      opts.Request.Source,
		"horizon":     opts.Horizon,
		"metric":      opts.Metric,
		"forecasters": strings.Join(opts.Forecasters, ","),
	}
}
