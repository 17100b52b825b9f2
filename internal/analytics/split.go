package analytics

import (
	"fmt"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// TemporalSplit holds out the last horizon points as the test set. Train followed
// by test is exactly the input series.
func TemporalSplit(series *models.Series, horizon int) (*models.Split, error) {
	if horizon <= 0 {
		return nil, errors.WrapError(errors.ErrInvalidHorizon, errors.ErrorTypeInput, errors.CodeInvalidHorizon,
			fmt.Sprintf("horizon must be positive, got %d", horizon))
	}

	n := series.Len()
	if n <= horizon {
		return nil, errors.NewInsufficientDataError(n, horizon)
	}

	cut := n - horizon
	return &models.Split{
		Train: series.Slice(0, cut),
		Test:  series.Slice(cut, n),
	}, nil
}
