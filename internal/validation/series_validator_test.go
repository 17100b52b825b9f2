package validation

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

const week = 7 * 24 * time.Hour

func weeks(n int) []time.Time {
	start := time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = start.Add(time.Duration(i) * week)
	}
	return ts
}

func frameOf(values ...float64) *models.Frame {
	return &models.Frame{
		Name:       "sales",
		Period:     week,
		Timestamps: weeks(len(values)),
		Columns:    []models.Column{{Name: "value", Values: values}},
	}
}

func TestValidateSingleColumn(t *testing.T) {
	v := NewSeriesValidator(nil, logrus.New())
	frame := frameOf(1, 2, 3)

	series, err := v.Validate(context.Background(), frame, "")
	require.NoError(t, err)
	assert.Equal(t, "sales", series.Name)
	assert.Equal(t, []float64{1, 2, 3}, series.Values)

	// the series does not alias the frame
	frame.Columns[0].Values[0] = 99
	assert.Equal(t, 1.0, series.Values[0])
}

func TestValidateFailures(t *testing.T) {
	ts := weeks(3)

	tests := []struct {
		name  string
		frame *models.Frame
		code  string
	}{
		{"nil frame", nil, errors.CodeSeriesEmpty},
		{"no rows", &models.Frame{Columns: []models.Column{{Name: "v"}}}, errors.CodeSeriesEmpty},
		{"multivariate", &models.Frame{Period: week, Timestamps: ts, Columns: []models.Column{
			{Name: "a", Values: []float64{1, 2, 3}},
			{Name: "b", Values: []float64{1, 2, 3}},
		}}, errors.CodeSeriesNotUnivariate},
		{"non numeric", &models.Frame{Period: week, Timestamps: ts, Columns: []models.Column{
			{Name: "a", Values: []float64{1, math.NaN(), 3}, NonNumeric: 1},
		}}, errors.CodeSeriesNonNumeric},
		{"empty bucket", frameOf(1, math.NaN(), 3), errors.CodeSeriesNonNumeric},
		{"infinite", frameOf(1, math.Inf(1), 3), errors.CodeSeriesNonNumeric},
		{"duplicate", &models.Frame{Period: week, Timestamps: []time.Time{ts[0], ts[0]}, Columns: []models.Column{
			{Name: "a", Values: []float64{1, 2}},
		}}, errors.CodeSeriesDuplicates},
		{"unsorted", &models.Frame{Period: week, Timestamps: []time.Time{ts[1], ts[0]}, Columns: []models.Column{
			{Name: "a", Values: []float64{1, 2}},
		}}, errors.CodeSeriesUnsorted},
		{"irregular", &models.Frame{Period: week, Timestamps: []time.Time{ts[0], ts[2]}, Columns: []models.Column{
			{Name: "a", Values: []float64{1, 2}},
		}}, errors.CodeSeriesIrregular},
	}

	v := NewSeriesValidator(nil, logrus.New())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), tt.frame, "")
			require.Error(t, err)

			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
			assert.Equal(t, tt.code, appErr.Code)
			assert.True(t, errors.IsRunFatal(err))
			assert.True(t, errors.Is(err, errors.ErrValidationFailed))
		})
	}
}

func TestValidateSelectsColumn(t *testing.T) {
	frame := &models.Frame{
		Period:     week,
		Timestamps: weeks(2),
		Columns: []models.Column{
			{Name: "label", Values: []float64{math.NaN(), math.NaN()}, NonNumeric: 2},
			{Name: "amount", Values: []float64{4, 5}},
		},
	}
	v := NewSeriesValidator(nil, logrus.New())

	series, err := v.Validate(context.Background(), frame, "amount")
	require.NoError(t, err)
	assert.Equal(t, "amount", series.Name)

	_, err = v.Validate(context.Background(), frame, "missing")
	require.Error(t, err)
	var fieldErr *errors.ValidationError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "value_column", fieldErr.Field)
}

func TestValidateHorizon(t *testing.T) {
	v := NewSeriesValidator(nil, logrus.New())
	series, err := models.NewSeries("s", week, weeks(14), make([]float64, 14))
	require.NoError(t, err)

	assert.NoError(t, v.ValidateHorizon(series, 13))

	err = v.ValidateHorizon(series, 26)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientData))
	assert.Equal(t, errors.ErrorTypeInsufficientData, errors.TypeOf(err))

	err = v.ValidateHorizon(series, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidHorizon))

	assert.Error(t, v.ValidateHorizon(series, 0))
}

func TestValidateHorizonEqualLength(t *testing.T) {
	v := NewSeriesValidator(&SeriesValidatorConfig{}, logrus.New())
	series, err := models.NewSeries("s", week, weeks(5), make([]float64, 5))
	require.NoError(t, err)

	assert.NoError(t, v.ValidateHorizon(series, 4))
	err = v.ValidateHorizon(series, 5)
	assert.True(t, errors.Is(err, errors.ErrInsufficientData))
}
