package visualization

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/models"
)

// WritePreview prints the first rows of the series
func WritePreview(w io.Writer, points []models.DataPoint) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "WEEK ENDING\tVALUE")
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%.4f\n", p.Timestamp.Format(constants.DateLayout), p.Value)
	}
	return tw.Flush()
}

// WriteStatistics prints the descriptive statistics table
func WriteStatistics(w io.Writer, stats models.Statistics) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "count\t%d\n", stats.Count)
	for _, row := range []struct {
		name  string
		value float64
	}{
		{"mean", stats.Mean},
		{"std", stats.Std},
		{"min", stats.Min},
		{"25%", stats.Q25},
		{"50%", stats.Median},
		{"75%", stats.Q75},
		{"max", stats.Max},
	} {
		fmt.Fprintf(tw, "%s\t%.4f\n", row.name, row.value)
	}
	return tw.Flush()
}

// WriteRanking prints the ranked accuracy table with every metric of each result
func WriteRanking(w io.Writer, ranking *models.Ranking, results map[string]*models.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)

	header := []string{"RANK", "FORECASTER"}
	for _, m := range constants.Metrics {
		header = append(header, strings.ToUpper(m))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	if ranking != nil {
		for _, row := range ranking.Rows {
			cells := []string{fmt.Sprintf("%d", row.Rank), row.Forecaster}
			result := results[row.Forecaster]
			for _, m := range constants.Metrics {
				v := 0.0
				if result != nil {
					v, _ = result.Accuracy.Get(m)
				}
				cells = append(cells, fmt.Sprintf("%.4f", v))
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	}
	return tw.Flush()
}

// WriteFailures prints one line per failed forecaster
func WriteFailures(w io.Writer, failures []*models.Failure) error {
	for _, f := range failures {
		if _, err := fmt.Fprintf(w, "  %s failed during %s: %s\n", f.Forecaster, f.Stage, f.Message); err != nil {
			return err
		}
	}
	return nil
}

// BestMessage names the best forecaster, or says there is none
func BestMessage(ranking *models.Ranking) string {
	if !ranking.HasBest() {
		return "No forecaster produced a result, so there is no best model."
	}
	value := ranking.Rows[0].Value
	return fmt.Sprintf("Best model: %s (%s %.4f)", ranking.Best, strings.ToUpper(ranking.Metric), value)
}

// WriteReport prints the whole report as terminal text
func WriteReport(w io.Writer, report *models.Report) error {
	fmt.Fprintf(w, "Run %s  source=%s  horizon=%d  metric=%s\n\n", report.RunID, report.Source, report.Horizon, report.Metric)

	fmt.Fprintln(w, "Data preview:")
	if err := WritePreview(w, report.Preview); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nStatistics:")
	if err := WriteStatistics(w, report.Statistics); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTrain: %d weeks, test: %d weeks\n", report.Train.Len(), report.Test.Len())

	comparison := models.Comparison{Outcomes: report.Outcomes}
	if failures := comparison.Failures(); len(failures) > 0 {
		fmt.Fprintln(w, "\nFailed forecasters:")
		if err := WriteFailures(w, failures); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "\nRanking:")
	if err := WriteRanking(w, report.Ranking, report.Results()); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s\n", BestMessage(report.Ranking))
	return err
}
