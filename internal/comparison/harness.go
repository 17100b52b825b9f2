package comparison

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/analytics"
	"github.com/inferloop/tsforecast/internal/forecasters"
	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/interfaces"
	"github.com/inferloop/tsforecast/pkg/models"
)

// Config controls a comparison
type Config struct {
	Confidence float64 `json:"confidence" mapstructure:"confidence"` // prediction interval level, 0 disables intervals
}

// Progress reports that done of total forecasters have been evaluated
type Progress func(done, total int, outcome models.Outcome)

// Observer receives every outcome as it is produced
type Observer interface {
	RecordOutcome(outcome models.Outcome)
}

// Harness fits, predicts and scores forecasters one after another on a split.
// A forecaster that errors or panics is recorded as a failure and the loop moves on.
type Harness struct {
	adapter  *forecasters.Adapter
	config   *Config
	observer Observer
	logger   *logrus.Logger
}

// NewHarness creates a new comparison harness
func NewHarness(adapter *forecasters.Adapter, config *Config, logger *logrus.Logger) *Harness {
	if config == nil {
		config = &Config{Confidence: constants.DefaultConfidence}
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &Harness{
		adapter: adapter,
		config:  config,
		logger:  logger,
	}
}

// SetObserver attaches an observer, e.g. the Prometheus recorder
func (h *Harness) SetObserver(observer Observer) {
	h.observer = observer
}

// Run evaluates the selected forecasters in selection order. Unknown or
// ineligible names fail the whole run before anything is fitted. Cancellation
// is checked between forecasters; the outcomes gathered so far are returned
// with the context error.
func (h *Harness) Run(ctx context.Context, split *models.Split, selection []string, progress Progress) (*models.Comparison, error) {
	if split == nil || split.Train.Len() == 0 || split.Test.Len() == 0 {
		return nil, errors.NewInternalError("comparison needs a non-empty train/test split")
	}

	descriptors, err := h.adapter.Resolve(selection)
	if err != nil {
		return nil, err
	}

	fh, err := models.HorizonFromSplit(split)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("failed to build forecast horizon: %v", err))
	}

	comparison := &models.Comparison{Outcomes: make([]models.Outcome, 0, len(descriptors))}
	total := len(descriptors)

	for i, d := range descriptors {
		if err := ctx.Err(); err != nil {
			h.logger.WithFields(logrus.Fields{
				"evaluated": i,
				"total":     total,
			}).Warn("Comparison cancelled")
			return comparison, err
		}

		outcome := h.evaluate(ctx, d.Name, split, fh)
		comparison.Outcomes = append(comparison.Outcomes, outcome)

		if h.observer != nil {
			h.observer.RecordOutcome(outcome)
		}
		if progress != nil {
			progress(i+1, total, outcome)
		}
	}

	return comparison, nil
}

func (h *Harness) evaluate(ctx context.Context, name string, split *models.Split, fh *models.ForecastHorizon) (outcome models.Outcome) {
	start := time.Now()
	logger := h.logger.WithFields(logrus.Fields{
		"forecaster": name,
		"horizon":    fh.Len(),
	})

	stage := models.StageInstantiate
	outcome.Forecaster = name

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("stack", string(debug.Stack())).Errorf("Forecaster panicked: %v", r)
			outcome.Result = nil
			outcome.Failure = failure(name, stage, errors.NewForecasterError(errors.CodeForecasterFailed, fmt.Sprintf("panic: %v", r)))
		}
		outcome.Duration = time.Since(start)

		if outcome.Failure != nil {
			logger.WithFields(logrus.Fields{
				"stage":    outcome.Failure.Stage,
				"duration": outcome.Duration,
			}).Warnf("Forecaster failed: %s", outcome.Failure.Message)
			return
		}
		logger.WithFields(logrus.Fields{
			"mape":     outcome.Result.Accuracy.MAPE,
			"duration": outcome.Duration,
		}).Info("Forecaster evaluated")
	}()

	f, err := h.adapter.Create(name)
	if err != nil {
		outcome.Failure = failure(name, stage, err)
		return outcome
	}

	stage = models.StageFit
	if f.Descriptor().Capabilities.RequiresHorizonAtFit {
		err = f.Fit(ctx, split.Train, fh)
	} else {
		err = f.Fit(ctx, split.Train, nil)
	}
	if err != nil {
		outcome.Failure = failure(name, stage, err)
		return outcome
	}

	stage = models.StagePredict
	predicted, err := f.Predict(ctx, fh)
	if err != nil {
		outcome.Failure = failure(name, stage, err)
		return outcome
	}

	stage = models.StageScore
	accuracy, err := analytics.Score(split.Test.Values, predicted)
	if err != nil {
		outcome.Failure = failure(name, stage, err)
		return outcome
	}

	predictions, err := models.NewSeries(name, split.Test.Period, fh.Timestamps, predicted)
	if err != nil {
		outcome.Failure = failure(name, stage, err)
		return outcome
	}

	result := &models.Result{
		Forecaster:  name,
		Predictions: predictions,
		Accuracy:    accuracy,
	}
	h.addInterval(ctx, logger, f, fh, result)

	outcome.Result = result
	return outcome
}

// addInterval attaches a prediction interval when the forecaster offers one. An
// interval that cannot be computed is left out without failing the forecaster.
func (h *Harness) addInterval(ctx context.Context, logger *logrus.Entry, f interfaces.Forecaster, fh *models.ForecastHorizon, result *models.Result) {
	if h.config.Confidence <= 0 {
		return
	}
	ifc, ok := f.(interfaces.IntervalForecaster)
	if !ok {
		return
	}

	lower, upper, err := ifc.PredictInterval(ctx, fh, h.config.Confidence)
	if err != nil {
		logger.WithError(err).Debug("Prediction interval unavailable")
		return
	}
	result.Lower = lower
	result.Upper = upper
}

func failure(name string, stage models.Stage, err error) *models.Failure {
	return &models.Failure{
		Forecaster: name,
		Stage:      stage,
		Message:    err.Error(),
		Err:        err,
	}
}
