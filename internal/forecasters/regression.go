package forecasters

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// linearTrendEstimator fits a straight line against the time index
type linearTrendEstimator struct {
	slope     float64
	intercept float64
	n         int
}

func (lt *linearTrendEstimator) fit(y []float64, _ []int) ([]float64, error) {
	n := float64(len(y))
	if len(y) < 2 {
		return nil, fmt.Errorf("insufficient data for linear regression")
	}

	sumX := n * (n - 1) / 2
	sumX2 := n * (n - 1) * (2*n - 1) / 6
	sumY := 0.0
	sumXY := 0.0
	for i, v := range y {
		sumY += v
		sumXY += float64(i) * v
	}

	denominator := n*sumX2 - sumX*sumX
	if denominator == 0 {
		return nil, fmt.Errorf("cannot calculate regression: zero denominator")
	}

	lt.slope = (n*sumXY - sumX*sumY) / denominator
	lt.intercept = (sumY - lt.slope*sumX) / n
	lt.n = len(y)

	residuals := make([]float64, len(y))
	for i, v := range y {
		residuals[i] = v - (lt.slope*float64(i) + lt.intercept)
	}
	return residuals, nil
}

func (lt *linearTrendEstimator) forecast(steps []int) ([]float64, error) {
	out := make([]float64, len(steps))
	for i, s := range steps {
		out[i] = lt.slope*float64(lt.n-1+s) + lt.intercept
	}
	return out, nil
}

// directEstimator fits one lagged linear model per forecast step. It has to know
// the steps before fitting.
type directEstimator struct {
	lags   int
	models map[int]*mat.VecDense
	recent []float64
}

func (de *directEstimator) fit(y []float64, steps []int) ([]float64, error) {
	if de.lags <= 0 {
		return nil, fmt.Errorf("lags must be positive, got %d", de.lags)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("no forecast steps given")
	}

	sorted := append([]int(nil), steps...)
	sort.Ints(sorted)

	de.models = make(map[int]*mat.VecDense, len(sorted))
	var residuals []float64
	for _, h := range sorted {
		if _, done := de.models[h]; done {
			continue
		}
		x, target, err := de.design(y, h)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", h, err)
		}
		beta, err := ols(x, target)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", h, err)
		}
		de.models[h] = beta
		if residuals == nil {
			residuals = olsResiduals(x, target, beta)
		}
	}

	de.recent = features(y, len(y)-1, de.lags)
	return residuals, nil
}

// design builds rows [1, y[t], ..., y[t-lags+1]] with target y[t+h]
func (de *directEstimator) design(y []float64, h int) (*mat.Dense, *mat.VecDense, error) {
	first := de.lags - 1
	last := len(y) - 1 - h
	rows := last - first + 1
	if rows < de.lags+2 {
		return nil, nil, fmt.Errorf("need at least %d training points, got %d", 2*de.lags+h+1, len(y))
	}

	x := mat.NewDense(rows, de.lags+1, nil)
	target := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := first + r
		x.SetRow(r, features(y, t, de.lags))
		target.SetVec(r, y[t+h])
	}
	return x, target, nil
}

func (de *directEstimator) forecast(steps []int) ([]float64, error) {
	out := make([]float64, len(steps))
	for i, h := range steps {
		beta, ok := de.models[h]
		if !ok {
			return nil, fmt.Errorf("no model for step %d", h)
		}
		out[i] = dot(beta, de.recent)
	}
	return out, nil
}

// features returns [1, y[t], y[t-1], ..., y[t-lags+1]]
func features(y []float64, t, lags int) []float64 {
	row := make([]float64, lags+1)
	row[0] = 1
	for j := 0; j < lags; j++ {
		row[j+1] = y[t-j]
	}
	return row
}
