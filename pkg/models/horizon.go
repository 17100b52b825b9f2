package models

import (
	"fmt"
	"math"
	"time"
)

// ForecastHorizon is an absolute forecast horizon: the exact timestamps to predict,
// anchored at the cutoff (the last training timestamp).
type ForecastHorizon struct {
	Cutoff     time.Time     `json:"cutoff"`
	Period     time.Duration `json:"period"`
	Timestamps []time.Time   `json:"timestamps"`
	steps      []int
}

// NewForecastHorizon builds a horizon and resolves each timestamp to a step count
// ahead of the cutoff. Steps must be positive and strictly increasing.
func NewForecastHorizon(cutoff time.Time, period time.Duration, timestamps []time.Time) (*ForecastHorizon, error) {
	if period <= 0 {
		return nil, fmt.Errorf("forecast horizon period must be positive, got %s", period)
	}
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("forecast horizon must contain at least one timestamp")
	}

	steps := make([]int, len(timestamps))
	for i, ts := range timestamps {
		step := int(math.Round(float64(ts.Sub(cutoff)) / float64(period)))
		if step < 1 {
			return nil, fmt.Errorf("forecast timestamp %s is not after cutoff %s", ts.Format(time.RFC3339), cutoff.Format(time.RFC3339))
		}
		if i > 0 && step <= steps[i-1] {
			return nil, fmt.Errorf("forecast timestamps must be strictly increasing")
		}
		steps[i] = step
	}

	ts := make([]time.Time, len(timestamps))
	copy(ts, timestamps)

	return &ForecastHorizon{
		Cutoff:     cutoff,
		Period:     period,
		Timestamps: ts,
		steps:      steps,
	}, nil
}

// HorizonFromSplit targets exactly the test timestamps of a split
func HorizonFromSplit(split *Split) (*ForecastHorizon, error) {
	return NewForecastHorizon(split.Train.Last().Timestamp, split.Train.Period, split.Test.Timestamps)
}

// Len returns the number of target timestamps
func (h *ForecastHorizon) Len() int {
	return len(h.Timestamps)
}

// Steps returns the step offset of each timestamp relative to the cutoff
func (h *ForecastHorizon) Steps() []int {
	out := make([]int, len(h.steps))
	copy(out, h.steps)
	return out
}

// MaxStep returns the furthest step ahead
func (h *ForecastHorizon) MaxStep() int {
	return h.steps[len(h.steps)-1]
}
