package models

import (
	"fmt"
	"time"
)

// DataPoint is a single timestamped observation
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is a univariate, regularly spaced time series. Timestamps are strictly
// increasing and spaced by Period.
type Series struct {
	Name       string        `json:"name"`
	Period     time.Duration `json:"period"`
	Timestamps []time.Time   `json:"timestamps"`
	Values     []float64     `json:"values"`
}

// NewSeries creates a series after checking that timestamps and values line up
func NewSeries(name string, period time.Duration, timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, fmt.Errorf("timestamps and values must have the same length: %d != %d", len(timestamps), len(values))
	}
	return &Series{
		Name:       name,
		Period:     period,
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

// Len returns the number of observations
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Values)
}

// Slice returns a copy of the observations in [from, to)
func (s *Series) Slice(from, to int) *Series {
	timestamps := make([]time.Time, to-from)
	values := make([]float64, to-from)
	copy(timestamps, s.Timestamps[from:to])
	copy(values, s.Values[from:to])
	return &Series{
		Name:       s.Name,
		Period:     s.Period,
		Timestamps: timestamps,
		Values:     values,
	}
}

// Clone returns a deep copy of the series
func (s *Series) Clone() *Series {
	return s.Slice(0, s.Len())
}

// Points returns the series as data points
func (s *Series) Points() []DataPoint {
	points := make([]DataPoint, s.Len())
	for i := range s.Values {
		points[i] = DataPoint{Timestamp: s.Timestamps[i], Value: s.Values[i]}
	}
	return points
}

// Head returns up to n leading data points
func (s *Series) Head(n int) []DataPoint {
	if n > s.Len() {
		n = s.Len()
	}
	if n < 0 {
		n = 0
	}
	return s.Points()[:n]
}

// Last returns the final observation. The series must not be empty.
func (s *Series) Last() DataPoint {
	i := s.Len() - 1
	return DataPoint{Timestamp: s.Timestamps[i], Value: s.Values[i]}
}

// Column is one named value column of a frame. Cells that could not be read as
// numbers are NaN and counted in NonNumeric.
type Column struct {
	Name       string    `json:"name"`
	Values     []float64 `json:"values"`
	NonNumeric int       `json:"non_numeric,omitempty"`
}

// Frame is loader output: a shared time index with one or more value columns.
// A frame becomes a Series once validated as univariate.
type Frame struct {
	Name       string        `json:"name"`
	Period     time.Duration `json:"period"`
	Timestamps []time.Time   `json:"timestamps"`
	Columns    []Column      `json:"columns"`
}

// Len returns the number of rows
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Timestamps)
}

// ColumnNames returns the value column names in order
func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a value column up by name
func (f *Frame) Column(name string) (*Column, bool) {
	for i := range f.Columns {
		if f.Columns[i].Name == name {
			return &f.Columns[i], true
		}
	}
	return nil, false
}

// FrameFromSeries wraps a series as a single-column frame
func FrameFromSeries(s *Series) *Frame {
	name := s.Name
	if name == "" {
		name = "value"
	}
	return &Frame{
		Name:       s.Name,
		Period:     s.Period,
		Timestamps: s.Timestamps,
		Columns:    []Column{{Name: name, Values: s.Values}},
	}
}

// Split is a temporal train/test partition of a series
type Split struct {
	Train *Series `json:"train"`
	Test  *Series `json:"test"`
}

// Horizon returns the number of held-out periods
func (s *Split) Horizon() int {
	return s.Test.Len()
}
