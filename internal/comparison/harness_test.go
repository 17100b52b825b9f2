package comparison

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/internal/analytics"
	"github.com/inferloop/tsforecast/internal/forecasters"
	"github.com/inferloop/tsforecast/internal/generators"
	apperrors "github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/interfaces"
	"github.com/inferloop/tsforecast/pkg/models"
)

type behaviour int

const (
	behaveOK behaviour = iota
	behaveFitError
	behavePredictPanic
	behaveWrongLength
)

type stubForecaster struct {
	descriptor models.ForecasterDescriptor
	behaviour  behaviour
	value      float64
	fitHorizon *models.ForecastHorizon
}

func (s *stubForecaster) Name() string                            { return s.descriptor.Name }
func (s *stubForecaster) Descriptor() models.ForecasterDescriptor { return s.descriptor }

func (s *stubForecaster) Fit(_ context.Context, _ *models.Series, fh *models.ForecastHorizon) error {
	s.fitHorizon = fh
	if s.descriptor.Capabilities.RequiresHorizonAtFit && fh == nil {
		return errors.New("horizon required")
	}
	if !s.descriptor.Capabilities.RequiresHorizonAtFit && fh != nil {
		return errors.New("horizon not expected")
	}
	if s.behaviour == behaveFitError {
		return errors.New("matrix is singular")
	}
	return nil
}

func (s *stubForecaster) Predict(_ context.Context, fh *models.ForecastHorizon) ([]float64, error) {
	switch s.behaviour {
	case behavePredictPanic:
		panic("index out of range")
	case behaveWrongLength:
		return []float64{s.value}, nil
	}
	out := make([]float64, fh.Len())
	for i := range out {
		out[i] = s.value
	}
	return out, nil
}

func register(t *testing.T, r *forecasters.Registry, name string, b behaviour, value float64, atFit bool) {
	t.Helper()
	d := models.ForecasterDescriptor{
		Name:         name,
		Capabilities: models.Capabilities{Target: models.TargetUnivariate, RequiresHorizonAtFit: atFit},
	}
	require.NoError(t, r.RegisterForecaster(d, func() interfaces.Forecaster {
		return &stubForecaster{descriptor: d, behaviour: b, value: value}
	}))
}

func testSplit(t *testing.T) *models.Split {
	t.Helper()
	gen, err := generators.NewRandomWalkGenerator(nil, logrus.New())
	require.NoError(t, err)
	s, err := gen.Generate(context.Background())
	require.NoError(t, err)
	split, err := analytics.TemporalSplit(s, 13)
	require.NoError(t, err)
	return split
}

func TestHarnessIsolatesFailures(t *testing.T) {
	r := forecasters.NewEmptyRegistry(logrus.New())
	register(t, r, "good", behaveOK, 100, false)
	register(t, r, "broken", behaveFitError, 0, false)
	register(t, r, "direct", behaveOK, 101, true)

	h := NewHarness(forecasters.NewAdapter(r), nil, logrus.New())
	comparison, err := h.Run(context.Background(), testSplit(t), []string{"good", "broken", "direct"}, nil)
	require.NoError(t, err)

	require.Len(t, comparison.Outcomes, 3)
	assert.Equal(t, []string{"good", "broken", "direct"},
		[]string{comparison.Outcomes[0].Forecaster, comparison.Outcomes[1].Forecaster, comparison.Outcomes[2].Forecaster})

	results := comparison.Results()
	assert.Len(t, results, 2)
	assert.Contains(t, results, "good")
	assert.Contains(t, results, "direct")

	failures := comparison.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "broken", failures[0].Forecaster)
	assert.Equal(t, models.StageFit, failures[0].Stage)
	assert.Contains(t, failures[0].Error(), "broken")
}

func TestHarnessRecoversPanics(t *testing.T) {
	r := forecasters.NewEmptyRegistry(logrus.New())
	register(t, r, "panicky", behavePredictPanic, 0, false)
	register(t, r, "good", behaveOK, 100, false)

	h := NewHarness(forecasters.NewAdapter(r), nil, logrus.New())
	comparison, err := h.Run(context.Background(), testSplit(t), []string{"panicky", "good"}, nil)
	require.NoError(t, err)

	failures := comparison.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "panicky", failures[0].Forecaster)
	assert.Equal(t, models.StagePredict, failures[0].Stage)
	assert.Contains(t, failures[0].Message, "index out of range")
	assert.Len(t, comparison.Results(), 1)
}

func TestHarnessScoreFailure(t *testing.T) {
	r := forecasters.NewEmptyRegistry(logrus.New())
	register(t, r, "short", behaveWrongLength, 1, false)

	h := NewHarness(forecasters.NewAdapter(r), nil, logrus.New())
	comparison, err := h.Run(context.Background(), testSplit(t), []string{"short"}, nil)
	require.NoError(t, err)

	require.Len(t, comparison.Failures(), 1)
	assert.Equal(t, models.StageScore, comparison.Failures()[0].Stage)
}

func TestHarnessPassesHorizonOnlyWhenRequired(t *testing.T) {
	r := forecasters.NewEmptyRegistry(logrus.New())
	register(t, r, "plain", behaveOK, 1, false)
	register(t, r, "direct", behaveOK, 1, true)

	h := NewHarness(forecasters.NewAdapter(r), nil, logrus.New())
	comparison, err := h.Run(context.Background(), testSplit(t), []string{"plain", "direct"}, nil)
	require.NoError(t, err)
	assert.Empty(t, comparison.Failures())
}

func TestHarnessProgress(t *testing.T) {
	r := forecasters.NewEmptyRegistry(logrus.New())
	register(t, r, "a", behaveOK, 1, false)
	register(t, r, "b", behaveFitError, 1, false)
	register(t, r, "c", behaveOK, 1, false)

	var done []int
	var totals []int
	h := NewHarness(forecasters.NewAdapter(r), nil, logrus.New())
	_, err := h.Run(context.Background(), testSplit(t), []string{"a", "b", "c"}, func(d, total int, _ models.Outcome) {
		done = append(done, d)
		totals = append(totals, total)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, done)
	assert.Equal(t, []int{3, 3, 3}, totals)
}

type recorder struct{ outcomes []models.Outcome }

func (r *recorder) RecordOutcome(o models.Outcome) { r.outcomes = append(r.outcomes, o) }

func TestHarnessObserver(t *testing.T) {
	r := forecasters.NewEmptyRegistry(logrus.New())
	register(t, r, "a", behaveOK, 1, false)

	rec := &recorder{}
	h := NewHarness(forecasters.NewAdapter(r), nil, logrus.New())
	h.SetObserver(rec)

	_, err := h.Run(context.Background(), testSplit(t), []string{"a"}, nil)
	require.NoError(t, err)
	require.Len(t, rec.outcomes, 1)
	assert.True(t, rec.outcomes[0].Succeeded())
}

func TestHarnessCancelled(t *testing.T) {
	r := forecasters.NewEmptyRegistry(logrus.New())
	register(t, r, "a", behaveOK, 1, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := NewHarness(forecasters.NewAdapter(r), nil, logrus.New())
	comparison, err := h.Run(ctx, testSplit(t), []string{"a"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, comparison)
	assert.Empty(t, comparison.Outcomes)
}

func TestHarnessUnknownForecaster(t *testing.T) {
	r := forecasters.NewEmptyRegistry(logrus.New())
	register(t, r, "a", behaveOK, 1, false)

	h := NewHarness(forecasters.NewAdapter(r), nil, logrus.New())
	_, err := h.Run(context.Background(), testSplit(t), []string{"a", "prophet"}, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeInput, apperrors.TypeOf(err))
}

func TestHarnessNaiveOnSyntheticSeries(t *testing.T) {
	registry := forecasters.NewRegistry(nil, logrus.New())
	h := NewHarness(forecasters.NewAdapter(registry), nil, logrus.New())
	split := testSplit(t)

	comparison, err := h.Run(context.Background(), split, []string{"naive"}, nil)
	require.NoError(t, err)

	results := comparison.Results()
	require.Len(t, results, 1)
	naive := results["naive"]
	require.NotNil(t, naive)

	assert.Equal(t, 13, naive.Predictions.Len())
	assert.Equal(t, split.Test.Timestamps, naive.Predictions.Timestamps)
	assert.False(t, math.IsNaN(naive.Accuracy.MAPE) || math.IsInf(naive.Accuracy.MAPE, 0))
	assert.GreaterOrEqual(t, naive.Accuracy.MAPE, 0.0)
	assert.Len(t, naive.Lower, 13)
	assert.Len(t, naive.Upper, 13)
	for i := range naive.Lower {
		assert.LessOrEqual(t, naive.Lower[i], naive.Predictions.Values[i])
		assert.GreaterOrEqual(t, naive.Upper[i], naive.Predictions.Values[i])
	}
}

func TestHarnessAllDefaultForecasters(t *testing.T) {
	registry := forecasters.NewRegistry(nil, logrus.New())
	adapter := forecasters.NewAdapter(registry)
	h := NewHarness(adapter, nil, logrus.New())

	comparison, err := h.Run(context.Background(), testSplit(t), adapter.Names(), nil)
	require.NoError(t, err)
	assert.Len(t, comparison.Outcomes, len(adapter.Names()))

	for _, o := range comparison.Outcomes {
		if o.Succeeded() {
			assert.Equal(t, 13, o.Result.Predictions.Len(), o.Forecaster)
		}
	}
}
