package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

func weeklySeries(t *testing.T, n int) *models.Series {
	t.Helper()
	start := time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, n)
	values := make([]float64, n)
	for i := range ts {
		ts[i] = start.AddDate(0, 0, 7*i)
		values[i] = float64(i + 1)
	}
	s, err := models.NewSeries("s", 7*24*time.Hour, ts, values)
	require.NoError(t, err)
	return s
}

func TestTemporalSplitProperty(t *testing.T) {
	for _, n := range []int{14, 27, 50, 200} {
		for _, h := range []int{1, 13, 26} {
			if n <= h {
				continue
			}
			s := weeklySeries(t, n)
			split, err := TemporalSplit(s, h)
			require.NoError(t, err)

			assert.Equal(t, h, split.Test.Len())
			assert.Equal(t, h, split.Horizon())
			assert.Equal(t, n-h, split.Train.Len())
			assert.Equal(t, s.Values, append(append([]float64{}, split.Train.Values...), split.Test.Values...))
			assert.Equal(t, s.Timestamps, append(append([]time.Time{}, split.Train.Timestamps...), split.Test.Timestamps...))
		}
	}
}

func TestTemporalSplitInsufficientData(t *testing.T) {
	for _, n := range []int{1, 12, 13} {
		_, err := TemporalSplit(weeklySeries(t, n), 13)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInsufficientData))
		assert.True(t, errors.IsRunFatal(err))
	}

	_, err := TemporalSplit(weeklySeries(t, 10), 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidHorizon))
}

func TestScore(t *testing.T) {
	acc, err := Score([]float64{100, 200}, []float64{110, 180})
	require.NoError(t, err)

	assert.InDelta(t, 0.1, acc.MAPE, 1e-12)
	assert.InDelta(t, 15.0, acc.MAE, 1e-12)
	assert.InDelta(t, math.Sqrt((100.0+400.0)/2), acc.RMSE, 1e-12)
	assert.InDelta(t, (20.0/210+40.0/380)/2, acc.SMAPE, 1e-12)
}

func TestScorePerfectForecast(t *testing.T) {
	acc, err := Score([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, models.Accuracy{}, acc)
}

func TestScoreZeroActualStaysFinite(t *testing.T) {
	mape, err := MAPE([]float64{0, 1}, []float64{1, 1})
	require.NoError(t, err)
	assert.False(t, math.IsInf(mape, 0) || math.IsNaN(mape))
	assert.Greater(t, mape, 0.0)
}

func TestScoreErrors(t *testing.T) {
	_, err := Score(nil, nil)
	assert.Error(t, err)

	_, err = Score([]float64{1, 2}, []float64{1})
	assert.Error(t, err)

	_, err = Score([]float64{1, 2}, []float64{1, math.NaN()})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeForecaster, errors.TypeOf(err))
}

func TestDescribe(t *testing.T) {
	stats := Describe([]float64{50, 10, 30, 20, 40})

	assert.Equal(t, 5, stats.Count)
	assert.Equal(t, 30.0, stats.Mean)
	assert.InDelta(t, 15.811, stats.Std, 0.001)
	assert.Equal(t, 10.0, stats.Min)
	assert.Equal(t, 50.0, stats.Max)
	assert.LessOrEqual(t, stats.Min, stats.Q25)
	assert.LessOrEqual(t, stats.Q25, stats.Median)
	assert.LessOrEqual(t, stats.Median, stats.Q75)
	assert.LessOrEqual(t, stats.Q75, stats.Max)

	assert.Equal(t, models.Statistics{}, Describe(nil))
	single := Describe([]float64{7})
	assert.Equal(t, 0.0, single.Std)
	assert.Equal(t, 7.0, single.Median)
}

func result(name string, mape float64) *models.Result {
	return &models.Result{Forecaster: name, Accuracy: models.Accuracy{MAPE: mape, MAE: 10 - mape}}
}

func TestRankAscending(t *testing.T) {
	results := map[string]*models.Result{
		"naive": result("naive", 0.3),
		"mean":  result("mean", 0.1),
		"drift": result("drift", 0.2),
		"holt":  result("holt", 0.1),
	}

	ranking, err := Rank(results, "mape")
	require.NoError(t, err)

	require.Len(t, ranking.Rows, 4)
	assert.Equal(t, []string{"holt", "mean", "drift", "naive"},
		[]string{ranking.Rows[0].Forecaster, ranking.Rows[1].Forecaster, ranking.Rows[2].Forecaster, ranking.Rows[3].Forecaster})
	for i := 1; i < len(ranking.Rows); i++ {
		assert.LessOrEqual(t, ranking.Rows[i-1].Value, ranking.Rows[i].Value)
		assert.Equal(t, i+1, ranking.Rows[i].Rank)
	}
	assert.Equal(t, "holt", ranking.Best)
	assert.True(t, ranking.HasBest())
}

func TestRankByOtherMetric(t *testing.T) {
	results := map[string]*models.Result{
		"naive": result("naive", 0.3),
		"mean":  result("mean", 0.1),
	}

	ranking, err := Rank(results, "mae")
	require.NoError(t, err)
	assert.Equal(t, "naive", ranking.Best)
}

func TestRankEmpty(t *testing.T) {
	ranking, err := Rank(map[string]*models.Result{}, "mape")
	require.NoError(t, err)
	assert.Empty(t, ranking.Rows)
	assert.False(t, ranking.HasBest())

	ranking, err = Rank(nil, "mape")
	require.NoError(t, err)
	assert.False(t, ranking.HasBest())
}

func TestRankUnknownMetric(t *testing.T) {
	_, err := Rank(nil, "r2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidMetric))
}
