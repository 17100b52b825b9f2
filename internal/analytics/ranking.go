package analytics

import (
	"sort"

	"github.com/inferloop/tsforecast/pkg/models"
)

// Rank orders results ascending by metric, ties broken by forecaster name. The
// first row is the best forecaster; with no results there is no best.
func Rank(results map[string]*models.Result, metric string) (*models.Ranking, error) {
	if err := ValidateMetric(metric); err != nil {
		return nil, err
	}

	rows := make([]models.RankRow, 0, len(results))
	for name, result := range results {
		value, _ := result.Accuracy.Get(metric)
		rows = append(rows, models.RankRow{Forecaster: name, Value: value})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Value != rows[j].Value {
			return rows[i].Value < rows[j].Value
		}
		return rows[i].Forecaster < rows[j].Forecaster
	})

	ranking := &models.Ranking{Metric: metric, Rows: rows}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	if len(rows) > 0 {
		ranking.Best = rows[0].Forecaster
	}

	return ranking, nil
}
