package generators

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// RandomWalkConfig contains configuration for the synthetic weekly series
type RandomWalkConfig struct {
	Name   string  `json:"name" mapstructure:"name"`
	Seed   uint64  `json:"seed" mapstructure:"seed"`     // same seed, same series
	Length int     `json:"length" mapstructure:"length"` // number of weekly points
	Level  float64 `json:"level" mapstructure:"level"`   // value before the first step
	Scale  float64 `json:"scale" mapstructure:"scale"`   // standard deviation of one step
	Start  string  `json:"start" mapstructure:"start"`   // first week ending, YYYY-MM-DD
}

// DefaultRandomWalkConfig returns the demonstration series settings
func DefaultRandomWalkConfig() *RandomWalkConfig {
	return &RandomWalkConfig{
		Name:   constants.SourceSynthetic,
		Seed:   constants.SyntheticSeed,
		Length: constants.SyntheticLength,
		Level:  constants.SyntheticLevel,
		Scale:  constants.SyntheticScale,
		Start:  constants.SyntheticStart,
	}
}

// RandomWalkGenerator produces a deterministic Gaussian random walk sampled weekly
type RandomWalkGenerator struct {
	config *RandomWalkConfig
	start  time.Time
	logger *logrus.Logger
}

// NewRandomWalkGenerator creates a new random walk generator
func NewRandomWalkGenerator(config *RandomWalkConfig, logger *logrus.Logger) (*RandomWalkGenerator, error) {
	if config == nil {
		config = DefaultRandomWalkConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	err := errors.NewValidationBuilder().
		Positive("length", config.Length).
		Range("scale", config.Scale, 0, 1e12).
		Required("start", config.Start).
		Build()
	if err != nil {
		return nil, err
	}

	start, err := time.Parse(constants.DateLayout, config.Start)
	if err != nil {
		return nil, errors.NewFieldValidationError("start", "date", config.Start, constants.DateLayout)
	}
	if start.Weekday() != time.Sunday {
		return nil, errors.NewFieldValidationError("start", "weekday", start.Weekday().String(), time.Sunday.String())
	}

	if config.Name == "" {
		config.Name = constants.SourceSynthetic
	}

	return &RandomWalkGenerator{
		config: config,
		start:  start,
		logger: logger,
	}, nil
}

// Generate returns the series. Every call with the same configuration returns
// identical values.
func (g *RandomWalkGenerator) Generate(ctx context.Context) (*models.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	step := distuv.Normal{
		Mu:    0,
		Sigma: g.config.Scale,
		Src:   rand.NewPCG(g.config.Seed, g.config.Seed),
	}

	n := g.config.Length
	timestamps := make([]time.Time, n)
	values := make([]float64, n)

	level := g.config.Level
	for i := 0; i < n; i++ {
		if g.config.Scale > 0 {
			level += step.Rand()
		}
		timestamps[i] = g.start.Add(time.Duration(i) * constants.WeeklyPeriod)
		values[i] = level
	}

	series, err := models.NewSeries(g.config.Name, constants.WeeklyPeriod, timestamps, values)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("failed to build synthetic series: %v", err))
	}

	g.logger.WithFields(logrus.Fields{
		"seed":   g.config.Seed,
		"length": n,
		"start":  g.config.Start,
	}).Debug("Generated synthetic series")

	return series, nil
}
