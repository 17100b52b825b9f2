package models

import "time"

// Statistics is a descriptive summary of a series
type Statistics struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// Report is everything a comparison run produces
type Report struct {
	RunID      string      `json:"run_id"`
	CreatedAt  time.Time   `json:"created_at"`
	Source     string      `json:"source"`
	Horizon    int         `json:"horizon"`
	Metric     string      `json:"metric"`
	Preview    []DataPoint `json:"preview"`
	Statistics Statistics  `json:"statistics"`
	Train      *Series     `json:"train"`
	Test       *Series     `json:"test"`
	Outcomes   []Outcome   `json:"outcomes"`
	Ranking    *Ranking    `json:"ranking"`
}

// Results returns the successful results keyed by forecaster name
func (r *Report) Results() map[string]*Result {
	c := Comparison{Outcomes: r.Outcomes}
	return c.Results()
}
