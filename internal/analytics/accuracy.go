package analytics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// epsilon floors percentage denominators so zero actuals stay finite
const epsilon = 2.220446049250313e-16

// Score computes every accuracy metric of predicted against actual. MAPE and sMAPE
// are fractions, not percentages.
func Score(actual, predicted []float64) (models.Accuracy, error) {
	if len(actual) == 0 {
		return models.Accuracy{}, errors.NewForecasterError(errors.CodeScoreFailed, "cannot score an empty forecast")
	}
	if len(actual) != len(predicted) {
		return models.Accuracy{}, errors.NewForecasterError(errors.CodeScoreFailed,
			fmt.Sprintf("forecast has %d values for %d actuals", len(predicted), len(actual)))
	}
	if !allFinite(actual) || !allFinite(predicted) {
		return models.Accuracy{}, errors.NewForecasterError(errors.CodeScoreFailed, "forecast contains non-finite values")
	}

	n := len(actual)
	absErr := make([]float64, n)
	pct := make([]float64, n)
	spct := make([]float64, n)
	sq := make([]float64, n)

	for i := range actual {
		e := math.Abs(actual[i] - predicted[i])
		absErr[i] = e
		pct[i] = e / math.Max(math.Abs(actual[i]), epsilon)
		spct[i] = 2 * e / math.Max(math.Abs(actual[i])+math.Abs(predicted[i]), epsilon)
		sq[i] = e * e
	}

	return models.Accuracy{
		MAPE:  stat.Mean(pct, nil),
		SMAPE: stat.Mean(spct, nil),
		MAE:   stat.Mean(absErr, nil),
		RMSE:  math.Sqrt(stat.Mean(sq, nil)),
	}, nil
}

// MAPE is the mean absolute percentage error as a fraction
func MAPE(actual, predicted []float64) (float64, error) {
	acc, err := Score(actual, predicted)
	if err != nil {
		return 0, err
	}
	return acc.MAPE, nil
}

// ValidateMetric checks metric names a supported accuracy metric
func ValidateMetric(metric string) error {
	for _, m := range constants.Metrics {
		if m == metric {
			return nil
		}
	}
	return errors.WrapError(errors.ErrInvalidMetric, errors.ErrorTypeInput, errors.CodeInvalidMetric,
		fmt.Sprintf("metric %q is not one of %v", metric, constants.Metrics))
}

func allFinite(values []float64) bool {
	return !floats.HasNaN(values) && floats.Max(values) < math.Inf(1) && floats.Min(values) > math.Inf(-1)
}
