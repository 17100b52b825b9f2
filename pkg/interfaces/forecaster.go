package interfaces

import (
	"context"

	"github.com/inferloop/tsforecast/pkg/models"
)

// Forecaster defines the interface for forecasting algorithms
type Forecaster interface {
	// Name returns the registry name of the forecaster
	Name() string

	// Descriptor returns the name, description and capability record
	Descriptor() models.ForecasterDescriptor

	// Fit trains on the training series. fh is nil unless the forecaster
	// requires the horizon at fit time.
	Fit(ctx context.Context, train *models.Series, fh *models.ForecastHorizon) error

	// Predict returns one value per horizon timestamp
	Predict(ctx context.Context, fh *models.ForecastHorizon) ([]float64, error)
}

// IntervalForecaster extends Forecaster with prediction intervals
type IntervalForecaster interface {
	Forecaster

	// PredictInterval returns lower and upper bounds per horizon timestamp at the
	// given confidence level
	PredictInterval(ctx context.Context, fh *models.ForecastHorizon, confidence float64) (lower, upper []float64, err error)
}

// ForecasterFactory creates forecaster instances with default configuration
type ForecasterFactory interface {
	// CreateForecaster creates a new forecaster instance
	CreateForecaster(name string) (Forecaster, error)

	// GetAvailableForecasters returns all registered forecaster names
	GetAvailableForecasters() []string

	// RegisterForecaster registers a new forecaster
	RegisterForecaster(descriptor models.ForecasterDescriptor, createFunc ForecasterCreateFunc) error

	// Describe returns the descriptor of every registered forecaster
	Describe() []models.ForecasterDescriptor

	// IsSupported checks if a forecaster is registered
	IsSupported(name string) bool
}

// ForecasterCreateFunc is a function that creates a forecaster instance
type ForecasterCreateFunc func() Forecaster
