package visualization

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/inferloop/tsforecast/pkg/models"
)

func weekly(start time.Time, values ...float64) *models.Series {
	ts := make([]time.Time, len(values))
	for i := range ts {
		ts[i] = start.AddDate(0, 0, 7*i)
	}
	return &models.Series{Name: "s", Period: 7 * 24 * time.Hour, Timestamps: ts, Values: values}
}

func testReport() *models.Report {
	start := time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC)
	train := weekly(start, 1, 2, 3, 4, 5, 6)
	test := weekly(start.AddDate(0, 0, 42), 7, 8)

	naive := &models.Result{
		Forecaster:  "naive",
		Predictions: weekly(test.Timestamps[0], 6, 6),
		Lower:       []float64{5, 4.5},
		Upper:       []float64{7, 7.5},
		Accuracy:    models.Accuracy{MAPE: 0.2, SMAPE: 0.22, MAE: 1.5, RMSE: 1.58},
	}
	drift := &models.Result{
		Forecaster:  "drift",
		Predictions: weekly(test.Timestamps[0], 7, 8),
		Accuracy:    models.Accuracy{},
	}

	return &models.Report{
		RunID:      "run-1",
		Source:     "synthetic",
		Horizon:    2,
		Metric:     "mape",
		Preview:    train.Head(3),
		Statistics: models.Statistics{Count: 8, Mean: 4.5, Std: 2.45, Min: 1, Q25: 2.75, Median: 4.5, Q75: 6.25, Max: 8},
		Train:      train,
		Test:       test,
		Outcomes: []models.Outcome{
			{Forecaster: "naive", Result: naive},
			{Forecaster: "arima", Failure: &models.Failure{Forecaster: "arima", Stage: models.StageFit, Message: "too short"}},
			{Forecaster: "drift", Result: drift},
		},
		Ranking: &models.Ranking{
			Metric: "mape",
			Rows: []models.RankRow{
				{Rank: 1, Forecaster: "drift", Value: 0},
				{Rank: 2, Forecaster: "naive", Value: 0.2},
			},
			Best: "drift",
		},
	}
}

func TestRenderPNG(t *testing.T) {
	p := NewPlotter(&PlotConfig{Width: 4 * vg.Inch, PanelHeight: 2 * vg.Inch}, logrus.New())

	data, err := p.RenderPNG(testReport())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	bounds := img.Bounds()
	assert.Greater(t, bounds.Dy(), bounds.Dx()/2, "two stacked panels")
}

func TestRenderPNGWithoutResults(t *testing.T) {
	report := testReport()
	report.Outcomes = report.Outcomes[1:2]
	report.Ranking = &models.Ranking{Metric: "mape"}

	data, err := NewPlotter(nil, logrus.New()).RenderPNG(report)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, testReport()))
	out := buf.String()

	assert.Contains(t, out, "2021-01-03")
	assert.Contains(t, out, "arima failed during fit: too short")
	assert.Contains(t, out, "Best model: drift (MAPE 0.0000)")
	assert.Contains(t, out, "Train: 6 weeks, test: 2 weeks")

	rankingAt := strings.Index(out, "Ranking:")
	require.Greater(t, rankingAt, 0)
	table := out[rankingAt:]
	assert.Less(t, strings.Index(table, "drift"), strings.Index(table, "naive"))
}

func TestBestMessageWithoutBest(t *testing.T) {
	assert.Contains(t, BestMessage(&models.Ranking{Metric: "mape"}), "no best model")
	assert.Contains(t, BestMessage(nil), "no best model")
}
