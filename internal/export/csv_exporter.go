package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/models"
)

var csvHeaders = []string{
	"forecaster", "rank", "timestamp", "actual", "predicted", "lower", "upper",
	constants.MetricMAPE, constants.MetricSMAPE, constants.MetricMAE, constants.MetricRMSE, "error",
}

// CSVExporter writes one row per forecast step of every successful forecaster,
// in ranking order, followed by one row per failed forecaster
type CSVExporter struct{}

// Name returns the exporter name
func (ce *CSVExporter) Name() string {
	return "csv"
}

// SupportedFormats returns supported formats
func (ce *CSVExporter) SupportedFormats() []string {
	return []string{constants.FormatCSV}
}

// Export writes the report as CSV
func (ce *CSVExporter) Export(ctx context.Context, writer io.Writer, report *models.Report, options ExportOptions) error {
	csvWriter := csv.NewWriter(writer)

	if err := csvWriter.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	results := report.Results()
	if report.Ranking != nil {
		for _, row := range report.Ranking.Rows {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			result, ok := results[row.Forecaster]
			if !ok {
				continue
			}
			for i := 0; i < result.Predictions.Len(); i++ {
				if err := csvWriter.Write(ce.resultRow(row.Rank, result, report.Test, i, options)); err != nil {
					return fmt.Errorf("failed to write CSV row: %w", err)
				}
			}
		}
	}

	comparison := models.Comparison{Outcomes: report.Outcomes}
	for _, failure := range comparison.Failures() {
		row := make([]string, len(csvHeaders))
		row[0] = failure.Forecaster
		row[len(row)-1] = fmt.Sprintf("%s: %s", failure.Stage, failure.Message)
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (ce *CSVExporter) resultRow(rank int, result *models.Result, test *models.Series, i int, options ExportOptions) []string {
	format := func(v float64) string {
		return strconv.FormatFloat(v, 'f', options.Precision, 64)
	}

	actual := ""
	if i < test.Len() {
		actual = format(test.Values[i])
	}
	lower, upper := "", ""
	if i < len(result.Lower) && i < len(result.Upper) {
		lower = format(result.Lower[i])
		upper = format(result.Upper[i])
	}

	dateFormat := options.DateFormat
	if dateFormat == "" {
		dateFormat = constants.DateLayout
	}

	return []string{
		result.Forecaster,
		strconv.Itoa(rank),
		result.Predictions.Timestamps[i].Format(dateFormat),
		actual,
		format(result.Predictions.Values[i]),
		lower,
		upper,
		format(result.Accuracy.MAPE),
		format(result.Accuracy.SMAPE),
		format(result.Accuracy.MAE),
		format(result.Accuracy.RMSE),
		"",
	}
}
