package validation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// SeriesValidatorConfig contains configuration for series validation
type SeriesValidatorConfig struct {
	AllowedHorizons []int `json:"allowed_horizons" mapstructure:"allowed_horizons"` // empty allows any positive horizon
}

// SeriesValidator turns a loaded frame into a univariate series and checks it is
// usable for a given horizon
type SeriesValidator struct {
	config *SeriesValidatorConfig
	logger *logrus.Logger
}

// NewSeriesValidator creates a new series validator
func NewSeriesValidator(config *SeriesValidatorConfig, logger *logrus.Logger) *SeriesValidator {
	if config == nil {
		config = &SeriesValidatorConfig{AllowedHorizons: constants.AllowedHorizons}
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &SeriesValidator{
		config: config,
		logger: logger,
	}
}

// Validate selects the value column and checks the result is a one-dimensional,
// finite, strictly increasing and evenly spaced series. column may be empty when
// the frame has a single value column.
func (v *SeriesValidator) Validate(ctx context.Context, frame *models.Frame, column string) (*models.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if frame == nil || frame.Len() == 0 || len(frame.Columns) == 0 {
		return nil, errors.NewSeriesValidationError(errors.CodeSeriesEmpty, "series is empty")
	}

	col, err := selectColumn(frame, column)
	if err != nil {
		return nil, err
	}

	if len(col.Values) != frame.Len() {
		return nil, errors.NewSeriesValidationError(errors.CodeSeriesNotUnivariate,
			fmt.Sprintf("column %q has %d values for %d timestamps", col.Name, len(col.Values), frame.Len()))
	}

	if col.NonNumeric > 0 {
		return nil, errors.NewSeriesValidationError(errors.CodeSeriesNonNumeric,
			fmt.Sprintf("column %q has %d non-numeric values", col.Name, col.NonNumeric)).
			WithValue(col.NonNumeric)
	}

	for i, value := range col.Values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, errors.NewSeriesValidationError(errors.CodeSeriesNonNumeric,
				fmt.Sprintf("column %q has no finite value for the week ending %s",
					col.Name, frame.Timestamps[i].Format(constants.DateLayout))).
				WithValue(value)
		}
	}

	if err := checkIndex(frame); err != nil {
		return nil, err
	}

	name := col.Name
	if frame.Name != "" && len(frame.Columns) == 1 {
		name = frame.Name
	}

	series, err := models.NewSeries(name, frame.Period, frame.Timestamps, col.Values)
	if err != nil {
		return nil, errors.NewSeriesValidationError(errors.CodeSeriesNotUnivariate, err.Error())
	}
	series = series.Clone()

	v.logger.WithFields(logrus.Fields{
		"series": series.Name,
		"column": col.Name,
		"length": series.Len(),
	}).Debug("Validated series")

	return series, nil
}

// ValidateHorizon checks horizon is allowed and leaves at least one training point
func (v *SeriesValidator) ValidateHorizon(series *models.Series, horizon int) error {
	if horizon <= 0 {
		return errors.WrapError(errors.ErrInvalidHorizon, errors.ErrorTypeInput, errors.CodeInvalidHorizon,
			fmt.Sprintf("horizon must be positive, got %d", horizon))
	}

	if len(v.config.AllowedHorizons) > 0 && !containsInt(v.config.AllowedHorizons, horizon) {
		return errors.WrapError(errors.ErrInvalidHorizon, errors.ErrorTypeInput, errors.CodeInvalidHorizon,
			fmt.Sprintf("horizon %d is not one of %v", horizon, v.config.AllowedHorizons))
	}

	if series.Len() <= horizon {
		return errors.NewInsufficientDataError(series.Len(), horizon)
	}

	return nil
}

func selectColumn(frame *models.Frame, column string) (*models.Column, error) {
	if column == "" {
		if len(frame.Columns) > 1 {
			return nil, errors.NewSeriesValidationError(errors.CodeSeriesNotUnivariate,
				fmt.Sprintf("series must be univariate but has %d value columns (%s); select one",
					len(frame.Columns), strings.Join(frame.ColumnNames(), ", "))).
				WithExpected(1)
		}
		return &frame.Columns[0], nil
	}

	col, ok := frame.Column(column)
	if !ok {
		return nil, errors.NewFieldValidationError("value_column", "one_of", column, frame.ColumnNames())
	}
	return col, nil
}

func checkIndex(frame *models.Frame) error {
	ts := frame.Timestamps
	for i := 1; i < len(ts); i++ {
		switch {
		case ts[i].Equal(ts[i-1]):
			return errors.NewSeriesValidationError(errors.CodeSeriesDuplicates,
				fmt.Sprintf("duplicate timestamp %s", ts[i].Format(constants.DateLayout)))
		case ts[i].Before(ts[i-1]):
			return errors.NewSeriesValidationError(errors.CodeSeriesUnsorted,
				fmt.Sprintf("timestamp %s follows %s", ts[i].Format(constants.DateLayout), ts[i-1].Format(constants.DateLayout)))
		case frame.Period > 0 && ts[i].Sub(ts[i-1]) != frame.Period:
			return errors.NewSeriesValidationError(errors.CodeSeriesIrregular,
				fmt.Sprintf("gap of %s before %s, expected %s", ts[i].Sub(ts[i-1]), ts[i].Format(constants.DateLayout), frame.Period))
		}
	}
	return nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
