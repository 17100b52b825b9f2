package forecasters

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/interfaces"
	"github.com/inferloop/tsforecast/pkg/models"
)

// Config holds the default parameters of the built-in forecasters
type Config struct {
	SeasonPeriod   int     `json:"season_period" mapstructure:"season_period"`
	SMAWindow      int     `json:"sma_window" mapstructure:"sma_window"`
	EMAPeriod      int     `json:"ema_period" mapstructure:"ema_period"`
	Alpha          float64 `json:"alpha" mapstructure:"alpha"`
	Beta           float64 `json:"beta" mapstructure:"beta"`
	Gamma          float64 `json:"gamma" mapstructure:"gamma"`
	ARIMAOrder     int     `json:"arima_order" mapstructure:"arima_order"`
	AutoARMaxOrder int     `json:"auto_ar_max_order" mapstructure:"auto_ar_max_order"`
	DirectLags     int     `json:"direct_lags" mapstructure:"direct_lags"`
}

// DefaultConfig returns the built-in forecaster defaults
func DefaultConfig() *Config {
	return &Config{
		SeasonPeriod:   constants.DefaultSeasonPeriod,
		SMAWindow:      constants.DefaultSMAWindow,
		EMAPeriod:      constants.DefaultEMAPeriod,
		Alpha:          constants.DefaultSmoothingAlpha,
		Beta:           constants.DefaultSmoothingBeta,
		Gamma:          constants.DefaultSmoothingGamma,
		ARIMAOrder:     constants.DefaultARIMAOrder,
		AutoARMaxOrder: constants.DefaultAutoARMaxOrder,
		DirectLags:     constants.DefaultDirectLags,
	}
}

type registration struct {
	descriptor models.ForecasterDescriptor
	create     interfaces.ForecasterCreateFunc
}

// Registry implements the ForecasterFactory interface
type Registry struct {
	entries map[string]registration
	mu      sync.RWMutex
	config  *Config
	logger  *logrus.Logger
}

// NewRegistry creates a registry holding the built-in forecasters
func NewRegistry(config *Config, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	if config == nil {
		config = DefaultConfig()
	}

	registry := &Registry{
		entries: make(map[string]registration),
		config:  config,
		logger:  logger,
	}

	registry.registerDefaults()

	return registry
}

// NewEmptyRegistry creates a registry without built-in forecasters
func NewEmptyRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		entries: make(map[string]registration),
		config:  DefaultConfig(),
		logger:  logger,
	}
}

// CreateForecaster creates a new forecaster instance with default configuration
func (r *Registry) CreateForecaster(name string) (interfaces.Forecaster, error) {
	r.mu.RLock()
	entry, exists := r.entries[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.WrapError(errors.ErrForecasterNotFound, errors.ErrorTypeForecaster, errors.CodeForecasterNotFound,
			fmt.Sprintf("forecaster '%s' is not registered", name))
	}

	forecaster := entry.create()
	if forecaster == nil {
		return nil, errors.NewForecasterError(errors.CodeForecasterFailed, fmt.Sprintf("failed to create %s forecaster", name))
	}

	r.logger.WithFields(logrus.Fields{
		"forecaster": name,
	}).Debug("Created forecaster instance")

	return forecaster, nil
}

// GetAvailableForecasters returns all registered forecaster names in alphabetical order
func (r *Registry) GetAvailableForecasters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// RegisterForecaster registers a forecaster
func (r *Registry) RegisterForecaster(descriptor models.ForecasterDescriptor, createFunc interfaces.ForecasterCreateFunc) error {
	if descriptor.Name == "" {
		return errors.NewValidationError("INVALID_NAME", "forecaster name cannot be empty")
	}

	if createFunc == nil {
		return errors.NewValidationError("INVALID_CREATOR", "forecaster create function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[descriptor.Name] = registration{descriptor: descriptor, create: createFunc}

	r.logger.WithFields(logrus.Fields{
		"forecaster": descriptor.Name,
	}).Debug("Registered forecaster")

	return nil
}

// Describe returns every registered descriptor in alphabetical order
func (r *Registry) Describe() []models.ForecasterDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]models.ForecasterDescriptor, 0, len(r.entries))
	for _, entry := range r.entries {
		descriptors = append(descriptors, entry.descriptor)
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})

	return descriptors
}

// IsSupported checks if a forecaster is registered
func (r *Registry) IsSupported(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.entries[name]
	return exists
}

func univariate(minTrain int) models.Capabilities {
	return models.Capabilities{Target: models.TargetUnivariate, MinTrainLength: minTrain}
}

// registerDefaults registers the built-in forecasters
func (r *Registry) registerDefaults() {
	c := r.config

	r.add(constants.ForecasterNaive, "Repeats the last observation", univariate(1),
		func() estimator { return &naiveEstimator{} })

	r.add(constants.ForecasterMean, "Forecasts the mean of the training window", univariate(1),
		func() estimator { return &meanEstimator{} })

	r.add(constants.ForecasterDrift, "Extends the average change between first and last observation", univariate(2),
		func() estimator { return &driftEstimator{} })

	r.add(constants.ForecasterSeasonalNaive, fmt.Sprintf("Repeats the last season of %d periods", c.SeasonPeriod), univariate(c.SeasonPeriod),
		func() estimator { return &seasonalNaiveEstimator{period: c.SeasonPeriod} })

	r.add(constants.ForecasterSMA, fmt.Sprintf("Last simple moving average over %d periods", c.SMAWindow), univariate(c.SMAWindow+1),
		func() estimator { return &movingAverageEstimator{kind: "sma", period: c.SMAWindow} })

	r.add(constants.ForecasterEMA, fmt.Sprintf("Last exponential moving average over %d periods", c.EMAPeriod), univariate(c.EMAPeriod+1),
		func() estimator { return &movingAverageEstimator{kind: "ema", period: c.EMAPeriod} })

	r.add(constants.ForecasterExponentialSmoothing, "Simple exponential smoothing", univariate(2),
		func() estimator { return &sesEstimator{alpha: c.Alpha} })

	r.add(constants.ForecasterHolt, "Exponential smoothing with additive trend", univariate(3),
		func() estimator { return &holtEstimator{alpha: c.Alpha, beta: c.Beta} })

	r.add(constants.ForecasterHoltWinters, fmt.Sprintf("Additive Holt-Winters with season of %d periods", c.SeasonPeriod), univariate(2*c.SeasonPeriod),
		func() estimator {
			return &holtWintersEstimator{alpha: c.Alpha, beta: c.Beta, gamma: c.Gamma, period: c.SeasonPeriod}
		})

	r.add(constants.ForecasterLinearTrend, "Least squares line against time", univariate(2),
		func() estimator { return &linearTrendEstimator{} })

	r.add(constants.ForecasterARIMA, fmt.Sprintf("ARIMA(%d,1,0) fitted by least squares", c.ARIMAOrder), univariate(2*c.ARIMAOrder+3),
		func() estimator { return &arimaEstimator{order: c.ARIMAOrder} })

	r.add(constants.ForecasterAutoAR, fmt.Sprintf("ARIMA(p,1,0) with p up to %d chosen by AIC", c.AutoARMaxOrder), univariate(6),
		func() estimator { return &autoAREstimator{maxOrder: c.AutoARMaxOrder} })

	direct := univariate(2*c.DirectLags + 2)
	direct.RequiresHorizonAtFit = true
	r.add(constants.ForecasterDirectRegression, fmt.Sprintf("One lagged linear model per step over %d lags", c.DirectLags), direct,
		func() estimator { return &directEstimator{lags: c.DirectLags} })
}

func (r *Registry) add(name, description string, caps models.Capabilities, newEstimator func() estimator) {
	descriptor := models.ForecasterDescriptor{
		Name:         name,
		Description:  description,
		Capabilities: caps,
	}
	logger := r.logger
	err := r.RegisterForecaster(descriptor, func() interfaces.Forecaster {
		return newForecaster(descriptor, newEstimator(), logger)
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register built-in forecaster %q: %v", name, err))
	}
}
