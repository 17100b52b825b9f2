package series

import (
	"math"
	"sort"
	"time"

	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/models"
)

// WeekEnding returns the Sunday on or after ts, at midnight UTC
func WeekEnding(ts time.Time) time.Time {
	ts = ts.UTC()
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, (7-int(day.Weekday()))%7)
}

// ResampleWeekly aggregates every column into weekly buckets ending on Sunday by
// averaging the finite values that fall in each bucket. Buckets between the
// first and last observation with no finite value hold NaN. Input rows need not
// be sorted.
func ResampleWeekly(frame *models.Frame) *models.Frame {
	out := &models.Frame{
		Name:    frame.Name,
		Period:  constants.WeeklyPeriod,
		Columns: make([]models.Column, len(frame.Columns)),
	}
	for i, c := range frame.Columns {
		out.Columns[i] = models.Column{Name: c.Name, NonNumeric: c.NonNumeric}
	}
	if frame.Len() == 0 {
		return out
	}

	labels := make([]time.Time, frame.Len())
	for i, ts := range frame.Timestamps {
		labels[i] = WeekEnding(ts)
	}

	sorted := make([]time.Time, len(labels))
	copy(sorted, labels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	first, last := sorted[0], sorted[len(sorted)-1]

	nBuckets := int(last.Sub(first)/constants.WeeklyPeriod) + 1
	out.Timestamps = make([]time.Time, nBuckets)
	for b := range out.Timestamps {
		out.Timestamps[b] = first.AddDate(0, 0, 7*b)
	}

	for ci, c := range frame.Columns {
		sums := make([]float64, nBuckets)
		counts := make([]int, nBuckets)
		for i, v := range c.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			b := int(labels[i].Sub(first) / constants.WeeklyPeriod)
			sums[b] += v
			counts[b]++
		}

		values := make([]float64, nBuckets)
		for b := range values {
			if counts[b] == 0 {
				values[b] = math.NaN()
				continue
			}
			values[b] = sums[b] / float64(counts[b])
		}
		out.Columns[ci].Values = values
	}

	return out
}

// IsWeekly reports whether the frame is already on Sunday-ending weekly buckets
func IsWeekly(frame *models.Frame) bool {
	for i, ts := range frame.Timestamps {
		if !ts.Equal(WeekEnding(ts)) {
			return false
		}
		if i > 0 && ts.Sub(frame.Timestamps[i-1]) != constants.WeeklyPeriod {
			return false
		}
	}
	return true
}
