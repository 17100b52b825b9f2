package models

import (
	"time"
)

// Accuracy holds the error metrics of one forecast against held-out truth
type Accuracy struct {
	MAPE  float64 `json:"mape"`
	SMAPE float64 `json:"smape"`
	MAE   float64 `json:"mae"`
	RMSE  float64 `json:"rmse"`
}

// Get returns a metric by name
func (a Accuracy) Get(metric string) (float64, bool) {
	switch metric {
	case "mape":
		return a.MAPE, true
	case "smape":
		return a.SMAPE, true
	case "mae":
		return a.MAE, true
	case "rmse":
		return a.RMSE, true
	}
	return 0, false
}

// Result is the successful evaluation of one forecaster
type Result struct {
	Forecaster  string    `json:"forecaster"`
	Predictions *Series   `json:"predictions"`
	Lower       []float64 `json:"lower,omitempty"`
	Upper       []float64 `json:"upper,omitempty"`
	Accuracy    Accuracy  `json:"accuracy"`
}

// Metric returns the percentage error used for ranking by default
func (r *Result) Metric() float64 {
	return r.Accuracy.MAPE
}

// Stage is the harness step a forecaster was in when it failed
type Stage string

const (
	StageInstantiate Stage = "instantiate"
	StageFit         Stage = "fit"
	StagePredict     Stage = "predict"
	StageScore       Stage = "score"
)

// Failure attributes an error to one forecaster
type Failure struct {
	Forecaster string `json:"forecaster"`
	Stage      Stage  `json:"stage"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (f *Failure) Error() string {
	return string(f.Stage) + " " + f.Forecaster + ": " + f.Message
}

// Unwrap returns the underlying error
func (f *Failure) Unwrap() error {
	return f.Err
}

// Outcome is either a Result or a Failure for one selected forecaster
type Outcome struct {
	Forecaster string        `json:"forecaster"`
	Result     *Result       `json:"result,omitempty"`
	Failure    *Failure      `json:"failure,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Succeeded reports whether the outcome carries a result
func (o Outcome) Succeeded() bool {
	return o.Result != nil
}

// Comparison collects outcomes in selection order
type Comparison struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Results returns the name -> result mapping of successful forecasters
func (c *Comparison) Results() map[string]*Result {
	results := make(map[string]*Result)
	for _, o := range c.Outcomes {
		if o.Succeeded() {
			results[o.Forecaster] = o.Result
		}
	}
	return results
}

// Failures returns the failures in selection order
func (c *Comparison) Failures() []*Failure {
	var failures []*Failure
	for _, o := range c.Outcomes {
		if o.Failure != nil {
			failures = append(failures, o.Failure)
		}
	}
	return failures
}

// RankRow is one row of the ranked accuracy table
type RankRow struct {
	Rank       int     `json:"rank"`
	Forecaster string  `json:"forecaster"`
	Value      float64 `json:"value"`
}

// Ranking is the accuracy table sorted best first
type Ranking struct {
	Metric string    `json:"metric"`
	Rows   []RankRow `json:"rows"`
	Best   string    `json:"best,omitempty"`
}

// HasBest reports whether any forecaster could be designated best
func (r *Ranking) HasBest() bool {
	return r != nil && r.Best != ""
}
