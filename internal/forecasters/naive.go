package forecasters

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// naiveEstimator repeats the last observation
type naiveEstimator struct {
	last float64
}

func (n *naiveEstimator) fit(y []float64, _ []int) ([]float64, error) {
	n.last = y[len(y)-1]
	return differences(y, 1), nil
}

func (n *naiveEstimator) forecast(steps []int) ([]float64, error) {
	return constant(n.last, len(steps)), nil
}

// meanEstimator forecasts the training mean
type meanEstimator struct {
	mean float64
}

func (m *meanEstimator) fit(y []float64, _ []int) ([]float64, error) {
	m.mean = stat.Mean(y, nil)
	residuals := make([]float64, len(y))
	for i, v := range y {
		residuals[i] = v - m.mean
	}
	return residuals, nil
}

func (m *meanEstimator) forecast(steps []int) ([]float64, error) {
	return constant(m.mean, len(steps)), nil
}

// driftEstimator extends the line through the first and last observations
type driftEstimator struct {
	last  float64
	slope float64
}

func (d *driftEstimator) fit(y []float64, _ []int) ([]float64, error) {
	n := len(y)
	if n < 2 {
		return nil, fmt.Errorf("drift needs at least 2 points")
	}
	d.last = y[n-1]
	d.slope = (y[n-1] - y[0]) / float64(n-1)

	residuals := differences(y, 1)
	for i := range residuals {
		residuals[i] -= d.slope
	}
	return residuals, nil
}

func (d *driftEstimator) forecast(steps []int) ([]float64, error) {
	out := make([]float64, len(steps))
	for i, h := range steps {
		out[i] = d.last + float64(h)*d.slope
	}
	return out, nil
}

// seasonalNaiveEstimator repeats the last observed season
type seasonalNaiveEstimator struct {
	period     int
	lastSeason []float64
}

func (s *seasonalNaiveEstimator) fit(y []float64, _ []int) ([]float64, error) {
	if s.period <= 0 {
		return nil, fmt.Errorf("season period must be positive")
	}
	if len(y) < s.period {
		return nil, fmt.Errorf("need at least one full season of %d points, got %d", s.period, len(y))
	}
	s.lastSeason = append([]float64(nil), y[len(y)-s.period:]...)
	return differences(y, s.period), nil
}

func (s *seasonalNaiveEstimator) forecast(steps []int) ([]float64, error) {
	out := make([]float64, len(steps))
	for i, h := range steps {
		out[i] = s.lastSeason[(h-1)%s.period]
	}
	return out, nil
}

// differences returns y[t] - y[t-lag]
func differences(y []float64, lag int) []float64 {
	if len(y) <= lag {
		return nil
	}
	out := make([]float64, len(y)-lag)
	for t := lag; t < len(y); t++ {
		out[t-lag] = y[t] - y[t-lag]
	}
	return out
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
