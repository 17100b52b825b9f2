package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/inferloop/tsforecast/internal/api"
	"github.com/inferloop/tsforecast/internal/forecasters"
	"github.com/inferloop/tsforecast/internal/generators"
	"github.com/inferloop/tsforecast/internal/observability/metrics"
	"github.com/inferloop/tsforecast/internal/storage"
	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
)

// CLIConfig is the full configuration of tsforecast-cli
type CLIConfig struct {
	Log         LogConfig                   `mapstructure:"log"`
	Horizons    []int                       `mapstructure:"horizons"`
	Defaults    DefaultsConfig              `mapstructure:"defaults"`
	Forecasters forecasters.Config          `mapstructure:"forecasters"`
	Synthetic   generators.RandomWalkConfig `mapstructure:"synthetic"`
	Storage     storage.Config              `mapstructure:"storage"`
	Metrics     metrics.PrometheusConfig    `mapstructure:"metrics"`
	Plot        PlotConfig                  `mapstructure:"plot"`
	Server      ServerConfig                `mapstructure:"server"`
}

// LogConfig selects the logrus level and formatter
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// DefaultsConfig holds the choices used when flags leave them open
type DefaultsConfig struct {
	Horizon     int      `mapstructure:"horizon"`
	Metric      string   `mapstructure:"metric"`
	Forecasters []string `mapstructure:"forecasters"`
	Confidence  float64  `mapstructure:"confidence"`
	PreviewRows int      `mapstructure:"preview_rows"`
}

// PlotConfig controls the forecast figure
type PlotConfig struct {
	HistoryWeeks int `mapstructure:"history_weeks"`
}

// ServerConfig configures the serve command
type ServerConfig struct {
	Addr            string               `mapstructure:"addr"`
	ReadTimeout     time.Duration        `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration        `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration        `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration        `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64                `mapstructure:"max_upload_bytes"`
	AllowedSchemes  []string             `mapstructure:"allowed_schemes"`
	ReportCapacity  int                  `mapstructure:"report_capacity"`
	Middleware      api.MiddlewareConfig `mapstructure:"middleware"`
}

// DefaultForecasters is the selection used when neither flags nor config name any
var DefaultForecasters = []string{
	constants.ForecasterNaive,
	constants.ForecasterSeasonalNaive,
	constants.ForecasterDrift,
	constants.ForecasterExponentialSmoothing,
	constants.ForecasterHolt,
	constants.ForecasterARIMA,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", constants.DefaultLogLevel)
	v.SetDefault("log.format", constants.DefaultLogFormat)

	v.SetDefault("horizons", constants.AllowedHorizons)

	v.SetDefault("defaults.horizon", constants.DefaultHorizon)
	v.SetDefault("defaults.metric", constants.DefaultMetric)
	v.SetDefault("defaults.forecasters", DefaultForecasters)
	v.SetDefault("defaults.confidence", constants.DefaultConfidence)
	v.SetDefault("defaults.preview_rows", constants.DefaultPreviewRows)

	fc := forecasters.DefaultConfig()
	v.SetDefault("forecasters.season_period", fc.SeasonPeriod)
	v.SetDefault("forecasters.sma_window", fc.SMAWindow)
	v.SetDefault("forecasters.ema_period", fc.EMAPeriod)
	v.SetDefault("forecasters.alpha", fc.Alpha)
	v.SetDefault("forecasters.beta", fc.Beta)
	v.SetDefault("forecasters.gamma", fc.Gamma)
	v.SetDefault("forecasters.arima_order", fc.ARIMAOrder)
	v.SetDefault("forecasters.auto_ar_max_order", fc.AutoARMaxOrder)
	v.SetDefault("forecasters.direct_lags", fc.DirectLags)

	synthetic := generators.DefaultRandomWalkConfig()
	v.SetDefault("synthetic.name", synthetic.Name)
	v.SetDefault("synthetic.seed", synthetic.Seed)
	v.SetDefault("synthetic.length", synthetic.Length)
	v.SetDefault("synthetic.level", synthetic.Level)
	v.SetDefault("synthetic.scale", synthetic.Scale)
	v.SetDefault("synthetic.start", synthetic.Start)

	v.SetDefault("storage.file.delimiter", ",")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.timeout", constants.DefaultStorageTimeout)
	v.SetDefault("storage.influxdb.range", constants.DefaultInfluxRange)
	v.SetDefault("storage.influxdb.timeout", constants.DefaultStorageTimeout)
	v.SetDefault("storage.timescaledb.host", "localhost")
	v.SetDefault("storage.timescaledb.port", 5432)
	v.SetDefault("storage.timescaledb.sslmode", "prefer")
	v.SetDefault("storage.redis.ttl", constants.DefaultReportTTL)
	v.SetDefault("storage.redis.key_prefix", constants.DefaultRedisPrefix)

	v.SetDefault("metrics.namespace", "tsforecast")

	v.SetDefault("plot.history_weeks", 104)

	v.SetDefault("server.addr", constants.DefaultListenAddr)
	v.SetDefault("server.read_timeout", constants.DefaultReadTimeout)
	v.SetDefault("server.write_timeout", constants.DefaultWriteTimeout)
	v.SetDefault("server.idle_timeout", constants.DefaultIdleTimeout)
	v.SetDefault("server.shutdown_timeout", constants.DefaultShutdownTimeout)
	v.SetDefault("server.max_upload_bytes", constants.DefaultMaxUploadBytes)
	v.SetDefault("server.allowed_schemes", []string{constants.SchemeS3, constants.SchemeInflux, constants.SchemeTimescaleDB})
	v.SetDefault("server.report_capacity", 100)
	v.SetDefault("server.middleware.enable_logging", true)
	v.SetDefault("server.middleware.enable_security", true)
}

// LoadConfig reads defaults, the optional YAML file and TSFORECAST_* environment
// variables, in increasing precedence. A missing default config file is fine; a
// missing explicit one is not.
func LoadConfig(cfgFile string) (*CLIConfig, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, constants.ConfigDirName))
		}
		v.SetConfigName(constants.ConfigFileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &CLIConfig{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// Validate checks the loaded configuration
func (c *CLIConfig) Validate() error {
	vb := errors.NewValidationBuilder().
		OneOf("log.format", c.Log.Format, []string{"text", "json"}).
		OneOfInt("defaults.horizon", c.Defaults.Horizon, c.Horizons).
		OneOf("defaults.metric", c.Defaults.Metric, constants.Metrics).
		Range("defaults.confidence", c.Defaults.Confidence, 0, 0.999).
		Positive("synthetic.length", c.Synthetic.Length).
		Positive("forecasters.season_period", c.Forecasters.SeasonPeriod).
		Required("server.addr", c.Server.Addr)

	for _, h := range c.Horizons {
		vb.Positive("horizons", h)
	}

	if err := vb.Build(); err != nil {
		return err
	}

	if len(c.Horizons) == 0 {
		return errors.NewConfigurationError("at least one horizon must be configured")
	}
	if len(c.Defaults.Forecasters) == 0 {
		return errors.NewConfigurationError("defaults.forecasters must name at least one forecaster")
	}
	return nil
}

// GetDefaultConfigPath returns $HOME/.tsforecast/config.yaml
func GetDefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, constants.ConfigDirName, constants.ConfigFileName+".yaml")
}
