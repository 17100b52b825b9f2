package forecasters

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// estimator is the algorithm behind a Forecaster. fit receives the training values
// and, when the forecaster needs the horizon at fit time, the step offsets to be
// predicted. It returns the in-sample one-step residuals.
type estimator interface {
	fit(y []float64, steps []int) ([]float64, error)
	forecast(steps []int) ([]float64, error)
}

// Forecaster adapts an estimator to the timestamp-based forecaster contract
type Forecaster struct {
	descriptor models.ForecasterDescriptor
	est        estimator
	logger     *logrus.Logger

	fitted    bool
	cutoff    time.Time
	period    time.Duration
	fitSteps  []int
	residuals []float64
}

func newForecaster(descriptor models.ForecasterDescriptor, est estimator, logger *logrus.Logger) *Forecaster {
	if logger == nil {
		logger = logrus.New()
	}
	return &Forecaster{
		descriptor: descriptor,
		est:        est,
		logger:     logger,
	}
}

// Name returns the forecaster name
func (f *Forecaster) Name() string {
	return f.descriptor.Name
}

// Descriptor returns the forecaster descriptor
func (f *Forecaster) Descriptor() models.ForecasterDescriptor {
	return f.descriptor
}

// Fit trains the forecaster on the training series
func (f *Forecaster) Fit(ctx context.Context, train *models.Series, fh *models.ForecastHorizon) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if train.Len() == 0 {
		return errors.NewForecasterError(errors.CodeFitFailed, "training series is empty")
	}

	caps := f.descriptor.Capabilities
	if train.Len() < caps.MinTrainLength {
		return errors.NewForecasterError(errors.CodeFitFailed,
			fmt.Sprintf("%s needs at least %d training points, got %d", f.Name(), caps.MinTrainLength, train.Len()))
	}

	for i, v := range train.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewForecasterError(errors.CodeFitFailed,
				fmt.Sprintf("training value at %s is not finite", train.Timestamps[i].Format(time.RFC3339)))
		}
	}

	cutoff := train.Last().Timestamp

	var steps []int
	if caps.RequiresHorizonAtFit {
		if fh == nil {
			return errors.WrapError(errors.ErrHorizonRequired, errors.ErrorTypeForecaster, errors.CodeFitFailed,
				fmt.Sprintf("%s requires the forecast horizon at fit time", f.Name()))
		}
		var err error
		steps, err = stepsFrom(cutoff, train.Period, fh)
		if err != nil {
			return err
		}
	}

	y := make([]float64, train.Len())
	copy(y, train.Values)

	residuals, err := f.est.fit(y, steps)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeForecaster, errors.CodeFitFailed,
			fmt.Sprintf("failed to fit %s", f.Name())).WithDetails(err.Error())
	}

	f.fitted = true
	f.cutoff = cutoff
	f.period = train.Period
	f.fitSteps = steps
	f.residuals = residuals

	f.logger.WithFields(logrus.Fields{
		"forecaster":   f.Name(),
		"train_length": train.Len(),
		"cutoff":       cutoff.Format(time.RFC3339),
	}).Debug("Fitted forecaster")

	return nil
}

// Predict returns one forecast per horizon timestamp
func (f *Forecaster) Predict(ctx context.Context, fh *models.ForecastHorizon) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !f.fitted {
		return nil, errors.WrapError(errors.ErrNotFitted, errors.ErrorTypeForecaster, errors.CodePredictFailed,
			fmt.Sprintf("%s must be fitted before predicting", f.Name()))
	}
	if fh == nil || fh.Len() == 0 {
		return nil, errors.NewForecasterError(errors.CodePredictFailed, "forecast horizon is empty")
	}

	steps, err := stepsFrom(f.cutoff, f.period, fh)
	if err != nil {
		return nil, err
	}

	if f.descriptor.Capabilities.RequiresHorizonAtFit {
		known := make(map[int]bool, len(f.fitSteps))
		for _, s := range f.fitSteps {
			known[s] = true
		}
		for _, s := range steps {
			if !known[s] {
				return nil, errors.WrapError(errors.ErrHorizonMismatch, errors.ErrorTypeForecaster, errors.CodePredictFailed,
					fmt.Sprintf("%s was not fitted for step %d", f.Name(), s))
			}
		}
	}

	values, err := f.est.forecast(steps)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeForecaster, errors.CodePredictFailed,
			fmt.Sprintf("failed to predict with %s", f.Name())).WithDetails(err.Error())
	}

	if len(values) != len(steps) {
		return nil, errors.NewForecasterError(errors.CodePredictFailed,
			fmt.Sprintf("%s returned %d values for %d timestamps", f.Name(), len(values), len(steps)))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewForecasterError(errors.CodePredictFailed,
				fmt.Sprintf("%s produced a non-finite forecast at step %d", f.Name(), steps[i]))
		}
	}

	return values, nil
}

// PredictInterval returns normal-approximation bounds from the in-sample residuals.
// The margin widens with the square root of the step.
func (f *Forecaster) PredictInterval(ctx context.Context, fh *models.ForecastHorizon, confidence float64) ([]float64, []float64, error) {
	if confidence <= 0 || confidence >= 1 {
		return nil, nil, errors.NewInputError(errors.CodeInvalidRequest,
			fmt.Sprintf("confidence must be in (0, 1), got %v", confidence))
	}

	point, err := f.Predict(ctx, fh)
	if err != nil {
		return nil, nil, err
	}

	steps, err := stepsFrom(f.cutoff, f.period, fh)
	if err != nil {
		return nil, nil, err
	}

	sigma := 0.0
	if len(f.residuals) >= 2 {
		sigma = stat.StdDev(f.residuals, nil)
	}
	z := distuv.UnitNormal.Quantile(0.5 + confidence/2)

	lower := make([]float64, len(point))
	upper := make([]float64, len(point))
	for i, v := range point {
		margin := z * sigma * math.Sqrt(float64(steps[i]))
		lower[i] = v - margin
		upper[i] = v + margin
	}

	return lower, upper, nil
}

func stepsFrom(cutoff time.Time, period time.Duration, fh *models.ForecastHorizon) ([]int, error) {
	h, err := models.NewForecastHorizon(cutoff, period, fh.Timestamps)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeForecaster, errors.CodePredictFailed, "invalid forecast horizon").
			WithDetails(err.Error())
	}
	return h.Steps(), nil
}

func maxStep(steps []int) int {
	m := 0
	for _, s := range steps {
		if s > m {
			m = s
		}
	}
	return m
}
