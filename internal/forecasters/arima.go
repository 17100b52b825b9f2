package forecasters

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// arimaEstimator is ARIMA(p,1,0): an AR(p) model with intercept fitted by least
// squares on first differences, integrated back onto the last level.
type arimaEstimator struct {
	order int

	beta  *mat.VecDense
	diffs []float64
	last  float64
}

func (a *arimaEstimator) fit(y []float64, _ []int) ([]float64, error) {
	if a.order <= 0 {
		return nil, fmt.Errorf("order must be positive, got %d", a.order)
	}

	d := differences(y, 1)
	if len(d)-a.order < a.order+2 {
		return nil, fmt.Errorf("need at least %d points for AR order %d, got %d", 2*a.order+3, a.order, len(y))
	}

	x, target := arDesign(d, a.order, a.order)
	beta, err := ols(x, target)
	if err != nil {
		return nil, err
	}

	a.beta = beta
	a.diffs = d
	a.last = y[len(y)-1]

	return olsResiduals(x, target, beta), nil
}

func (a *arimaEstimator) forecast(steps []int) ([]float64, error) {
	if a.beta == nil {
		return nil, fmt.Errorf("model is not fitted")
	}

	horizon := maxStep(steps)
	history := append([]float64(nil), a.diffs...)
	path := make([]float64, horizon)
	level := a.last

	lagged := make([]float64, a.order+1)
	lagged[0] = 1
	for h := 0; h < horizon; h++ {
		n := len(history)
		for j := 1; j <= a.order; j++ {
			lagged[j] = history[n-j]
		}
		next := dot(a.beta, lagged)
		history = append(history, next)
		level += next
		path[h] = level
	}

	out := make([]float64, len(steps))
	for i, s := range steps {
		out[i] = path[s-1]
	}
	return out, nil
}

// autoAREstimator picks the ARIMA(p,1,0) order with the lowest AIC. Every
// candidate is scored on the same sample so the criteria are comparable.
type autoAREstimator struct {
	maxOrder int

	chosen *arimaEstimator
}

func (aa *autoAREstimator) fit(y []float64, steps []int) ([]float64, error) {
	if aa.maxOrder <= 0 {
		return nil, fmt.Errorf("max order must be positive, got %d", aa.maxOrder)
	}

	d := differences(y, 1)
	maxOrder := aa.maxOrder
	for maxOrder > 0 && len(d)-maxOrder < maxOrder+2 {
		maxOrder--
	}
	if maxOrder == 0 {
		return nil, fmt.Errorf("series too short for any AR order, got %d points", len(y))
	}

	bestOrder := 0
	bestAIC := math.Inf(1)
	for p := 1; p <= maxOrder; p++ {
		aic, err := arAIC(d, p, maxOrder)
		if err != nil {
			continue
		}
		if aic < bestAIC {
			bestAIC = aic
			bestOrder = p
		}
	}
	if bestOrder == 0 {
		return nil, fmt.Errorf("no AR order could be fitted")
	}

	aa.chosen = &arimaEstimator{order: bestOrder}
	return aa.chosen.fit(y, steps)
}

func (aa *autoAREstimator) forecast(steps []int) ([]float64, error) {
	if aa.chosen == nil {
		return nil, fmt.Errorf("model is not fitted")
	}
	return aa.chosen.forecast(steps)
}

// Order returns the selected AR order, or 0 before fitting
func (aa *autoAREstimator) Order() int {
	if aa.chosen == nil {
		return 0
	}
	return aa.chosen.order
}

// arAIC returns m*ln(RSS/m) + 2k for an AR(p) with intercept fitted from row start
func arAIC(d []float64, p, start int) (float64, error) {
	x, target := arDesign(d, p, start)
	beta, err := ols(x, target)
	if err != nil {
		return 0, err
	}

	rss := 0.0
	for _, r := range olsResiduals(x, target, beta) {
		rss += r * r
	}
	m := float64(target.Len())
	if rss <= 0 {
		return math.Inf(-1), nil
	}
	return m*math.Log(rss/m) + 2*float64(p+1), nil
}
