package interfaces

import (
	"context"

	"github.com/inferloop/tsforecast/pkg/models"
)

// SeriesValidator turns loader output into a validated univariate series
type SeriesValidator interface {
	// Validate checks the frame and returns the selected value column as a
	// series. column may be empty when the frame has a single value column.
	Validate(ctx context.Context, frame *models.Frame, column string) (*models.Series, error)

	// ValidateHorizon checks that the series is long enough for the horizon
	ValidateHorizon(series *models.Series, horizon int) error
}
