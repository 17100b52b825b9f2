package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/storage/implementations/file"
	"github.com/inferloop/tsforecast/internal/storage/implementations/influxdb"
	"github.com/inferloop/tsforecast/internal/storage/implementations/redis"
	"github.com/inferloop/tsforecast/internal/storage/implementations/s3"
	"github.com/inferloop/tsforecast/internal/storage/implementations/timescaledb"
	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/interfaces"
)

// Config groups the source and sink settings
type Config struct {
	File        file.FileSourceConfig         `json:"file" mapstructure:"file"`
	S3          s3.S3Config                   `json:"s3" mapstructure:"s3"`
	InfluxDB    influxdb.InfluxDBConfig       `json:"influxdb" mapstructure:"influxdb"`
	TimescaleDB timescaledb.TimescaleDBConfig `json:"timescaledb" mapstructure:"timescaledb"`
	Redis       redis.RedisConfig             `json:"redis" mapstructure:"redis"`
}

// SourceCreateFunc builds an unconnected source
type SourceCreateFunc func() (interfaces.SeriesSource, error)

// Factory creates series sources keyed by URI scheme
type Factory struct {
	creators map[string]SourceCreateFunc
	config   Config
	mu       sync.RWMutex
	logger   *logrus.Logger
}

// NewFactory creates a new source factory with the built-in schemes registered
func NewFactory(config *Config, logger *logrus.Logger) *Factory {
	if logger == nil {
		logger = logrus.New()
	}
	if config == nil {
		config = &Config{}
	}

	factory := &Factory{
		creators: make(map[string]SourceCreateFunc),
		config:   *config,
		logger:   logger,
	}

	factory.registerDefaults()

	return factory
}

// CreateSource creates a source for scheme
func (f *Factory) CreateSource(scheme string) (interfaces.SeriesSource, error) {
	f.mu.RLock()
	createFunc, exists := f.creators[scheme]
	f.mu.RUnlock()

	if !exists {
		return nil, errors.NewInputError(errors.CodeInvalidSource,
			fmt.Sprintf("source scheme '%s' is not supported (supported: %s)", scheme, strings.Join(f.GetSupportedTypes(), ", ")))
	}

	source, err := createFunc()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeInvalidConfiguration,
			fmt.Sprintf("Failed to create %s source", scheme))
	}

	f.logger.WithFields(logrus.Fields{
		"source_type": scheme,
	}).Debug("Created source instance")

	return source, nil
}

// GetSupportedTypes returns all registered schemes, sorted
func (f *Factory) GetSupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.creators))
	for scheme := range f.creators {
		types = append(types, scheme)
	}
	sort.Strings(types)

	return types
}

// RegisterSource registers a new source scheme
func (f *Factory) RegisterSource(scheme string, createFunc SourceCreateFunc) error {
	if scheme == "" {
		return errors.NewStorageError("INVALID_TYPE", "Source scheme cannot be empty")
	}

	if createFunc == nil {
		return errors.NewStorageError("INVALID_CREATOR", "Create function cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.creators[scheme] = createFunc

	return nil
}

// IsSupported checks if a scheme is registered
func (f *Factory) IsSupported(scheme string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, exists := f.creators[scheme]
	return exists
}

// Open resolves uri to a connected source and the location inside it. The
// caller closes the source.
func (f *Factory) Open(ctx context.Context, uri string) (interfaces.SeriesSource, string, error) {
	scheme, location, err := ParseURI(uri)
	if err != nil {
		return nil, "", err
	}

	source, err := f.CreateSource(scheme)
	if err != nil {
		return nil, "", err
	}

	if err := source.Connect(ctx); err != nil {
		return nil, "", err
	}

	return source, location, nil
}

// NewReportStore returns the configured report store, or nil when no sink is
// configured
func (f *Factory) NewReportStore(ctx context.Context) (interfaces.ReportStore, error) {
	if f.config.Redis.Addr == "" && len(f.config.Redis.ClusterAddrs) == 0 {
		return nil, nil
	}

	config := f.config.Redis
	store, err := redis.NewRedisStore(&config, f.logger)
	if err != nil {
		return nil, err
	}
	if err := store.Connect(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ParseURI splits a source URI into scheme and location. Plain paths are files.
func ParseURI(uri string) (scheme, location string, err error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", "", errors.NewUserInputMissingError("no data source was supplied")
	}

	scheme, location, found := strings.Cut(uri, "://")
	if !found {
		return constants.SchemeFile, uri, nil
	}

	scheme = strings.ToLower(scheme)
	if location == "" {
		return "", "", errors.NewInputError(errors.CodeInvalidSource, fmt.Sprintf("source %q has no location", uri))
	}

	return scheme, location, nil
}

func (f *Factory) registerDefaults() {
	f.creators[constants.SchemeFile] = func() (interfaces.SeriesSource, error) {
		config := f.config.File
		return file.NewFileSource(&config, f.logger)
	}

	f.creators[constants.SchemeS3] = func() (interfaces.SeriesSource, error) {
		config := f.config.S3
		return s3.NewS3Source(&config, f.logger)
	}

	f.creators[constants.SchemeInflux] = func() (interfaces.SeriesSource, error) {
		config := f.config.InfluxDB
		return influxdb.NewInfluxDBSource(&config, f.logger)
	}

	f.creators[constants.SchemeTimescaleDB] = func() (interfaces.SeriesSource, error) {
		config := f.config.TimescaleDB
		return timescaledb.NewTimescaleDBSource(&config, f.logger)
	}
}
