package forecasters

import (
	"fmt"
)

// sesEstimator is simple exponential smoothing
type sesEstimator struct {
	alpha float64
	level float64
}

func (s *sesEstimator) fit(y []float64, _ []int) ([]float64, error) {
	if s.alpha <= 0 || s.alpha >= 1 {
		return nil, fmt.Errorf("alpha must be in (0, 1), got %v", s.alpha)
	}

	s.level = y[0]
	residuals := make([]float64, 0, len(y)-1)
	for t := 1; t < len(y); t++ {
		residuals = append(residuals, y[t]-s.level)
		s.level = s.alpha*y[t] + (1-s.alpha)*s.level
	}
	return residuals, nil
}

func (s *sesEstimator) forecast(steps []int) ([]float64, error) {
	return constant(s.level, len(steps)), nil
}

// holtEstimator is double exponential smoothing with an additive trend
type holtEstimator struct {
	alpha float64
	beta  float64
	level float64
	trend float64
}

func (h *holtEstimator) fit(y []float64, _ []int) ([]float64, error) {
	if len(y) < 2 {
		return nil, fmt.Errorf("holt needs at least 2 points")
	}
	if h.alpha <= 0 || h.alpha >= 1 || h.beta <= 0 || h.beta >= 1 {
		return nil, fmt.Errorf("alpha and beta must be in (0, 1)")
	}

	h.level = y[0]
	h.trend = y[1] - y[0]
	residuals := make([]float64, 0, len(y)-1)
	for t := 1; t < len(y); t++ {
		residuals = append(residuals, y[t]-(h.level+h.trend))

		prevLevel := h.level
		h.level = h.alpha*y[t] + (1-h.alpha)*(h.level+h.trend)
		h.trend = h.beta*(h.level-prevLevel) + (1-h.beta)*h.trend
	}
	return residuals, nil
}

func (h *holtEstimator) forecast(steps []int) ([]float64, error) {
	out := make([]float64, len(steps))
	for i, s := range steps {
		out[i] = h.level + float64(s)*h.trend
	}
	return out, nil
}

// holtWintersEstimator is triple exponential smoothing with additive seasonality
type holtWintersEstimator struct {
	alpha  float64
	beta   float64
	gamma  float64
	period int

	level    float64
	trend    float64
	seasonal []float64
	n        int
}

func (hw *holtWintersEstimator) fit(y []float64, _ []int) ([]float64, error) {
	m := hw.period
	if m < 2 {
		return nil, fmt.Errorf("season period must be at least 2, got %d", m)
	}
	if len(y) < 2*m {
		return nil, fmt.Errorf("need at least two full seasons (%d points), got %d", 2*m, len(y))
	}

	hw.initialize(y)

	residuals := make([]float64, 0, len(y)-m)
	for t := m; t < len(y); t++ {
		pos := t % m
		residuals = append(residuals, y[t]-(hw.level+hw.trend+hw.seasonal[pos]))

		prevLevel := hw.level
		hw.level = hw.alpha*(y[t]-hw.seasonal[pos]) + (1-hw.alpha)*(hw.level+hw.trend)
		hw.trend = hw.beta*(hw.level-prevLevel) + (1-hw.beta)*hw.trend
		hw.seasonal[pos] = hw.gamma*(y[t]-hw.level) + (1-hw.gamma)*hw.seasonal[pos]
	}
	hw.n = len(y)

	return residuals, nil
}

// initialize sets the level to the first season's mean, the trend to the
// per-period change between the first two seasons and the seasonal indices to
// the average deviation from each full season's mean.
func (hw *holtWintersEstimator) initialize(y []float64) {
	m := hw.period
	seasons := len(y) / m

	means := make([]float64, seasons)
	for k := 0; k < seasons; k++ {
		for i := 0; i < m; i++ {
			means[k] += y[k*m+i]
		}
		means[k] /= float64(m)
	}

	hw.level = means[0]
	hw.trend = (means[1] - means[0]) / float64(m)

	hw.seasonal = make([]float64, m)
	for i := 0; i < m; i++ {
		sum := 0.0
		for k := 0; k < seasons; k++ {
			sum += y[k*m+i] - means[k]
		}
		hw.seasonal[i] = sum / float64(seasons)
	}
}

func (hw *holtWintersEstimator) forecast(steps []int) ([]float64, error) {
	out := make([]float64, len(steps))
	for i, s := range steps {
		pos := (hw.n - 1 + s) % hw.period
		out[i] = hw.level + float64(s)*hw.trend + hw.seasonal[pos]
	}
	return out, nil
}
