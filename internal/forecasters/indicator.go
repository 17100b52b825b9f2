package forecasters

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// movingAverageEstimator forecasts the last value of a moving average indicator.
// The indicator output is aligned to the tail of the input.
type movingAverageEstimator struct {
	kind   string
	period int
	last   float64
}

func (m *movingAverageEstimator) compute(y []float64) ([]float64, error) {
	switch m.kind {
	case "sma":
		sma := trend.NewSmaWithPeriod[float64](m.period)
		return helper.ChanToSlice(sma.Compute(helper.SliceToChan(y))), nil
	case "ema":
		ema := trend.NewEmaWithPeriod[float64](m.period)
		return helper.ChanToSlice(ema.Compute(helper.SliceToChan(y))), nil
	default:
		return nil, fmt.Errorf("unknown moving average %q", m.kind)
	}
}

func (m *movingAverageEstimator) fit(y []float64, _ []int) ([]float64, error) {
	if m.period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", m.period)
	}
	if len(y) <= m.period {
		return nil, fmt.Errorf("need more than %d points, got %d", m.period, len(y))
	}

	values, err := m.compute(y)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s produced no values", m.kind)
	}

	offset := len(y) - len(values)
	residuals := make([]float64, 0, len(values)-1)
	for t := offset + 1; t < len(y); t++ {
		residuals = append(residuals, y[t]-values[t-1-offset])
	}

	m.last = values[len(values)-1]
	return residuals, nil
}

func (m *movingAverageEstimator) forecast(steps []int) ([]float64, error) {
	return constant(m.last, len(steps)), nil
}
