package constants

import "time"

// Application constants
const (
	// Application metadata
	AppName        = "tsforecast-cli"
	AppDescription = "Time Series Forecaster Comparison"
	AppVersion     = "0.1.0"

	// API constants
	APIVersion = "v1"
	APIPrefix  = "/api/v1"

	// Environment and config file
	EnvPrefix      = "TSFORECAST"
	ConfigDirName  = ".tsforecast"
	ConfigFileName = "config"

	// Default configuration values
	DefaultListenAddr      = ":8080"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxUploadBytes  = 32 << 20

	// Comparison defaults
	DefaultHorizon     = 13
	DefaultMetric      = MetricMAPE
	DefaultConfidence  = 0.95
	DefaultPreviewRows = 5

	// Synthetic series defaults
	SyntheticSeed   = 42
	SyntheticLength = 200
	SyntheticLevel  = 100.0
	SyntheticScale  = 1.0
	SyntheticStart  = "2020-01-05"

	// Storage defaults
	DefaultStorageTimeout = 30 * time.Second
	DefaultReportTTL      = 24 * time.Hour
	DefaultRedisPrefix    = "tsforecast"
	DefaultInfluxRange    = "-10y"
	DefaultInfluxField    = "value"

	// Weekly period. Weeks end on Sunday.
	WeeklyPeriod = 7 * 24 * time.Hour

	// Date layout used for previews and CSV export
	DateLayout = "2006-01-02"
)

// AllowedHorizons enumerates the forecast horizons offered to the user.
var AllowedHorizons = []int{13, 26}

// Metric names
const (
	MetricMAPE  = "mape"
	MetricSMAPE = "smape"
	MetricMAE   = "mae"
	MetricRMSE  = "rmse"
)

// Metrics lists every supported accuracy metric.
var Metrics = []string{MetricMAPE, MetricSMAPE, MetricMAE, MetricRMSE}

// Forecaster names
const (
	ForecasterNaive                = "naive"
	ForecasterMean                 = "mean"
	ForecasterDrift                = "drift"
	ForecasterSeasonalNaive        = "seasonal_naive"
	ForecasterSMA                  = "sma"
	ForecasterEMA                  = "ema"
	ForecasterExponentialSmoothing = "exponential_smoothing"
	ForecasterHolt                 = "holt"
	ForecasterHoltWinters          = "holt_winters"
	ForecasterLinearTrend          = "linear_trend"
	ForecasterARIMA                = "arima"
	ForecasterAutoAR               = "auto_ar"
	ForecasterDirectRegression     = "direct_regression"
)

// Forecaster defaults
const (
	DefaultSeasonPeriod   = 52
	DefaultSMAWindow      = 4
	DefaultEMAPeriod      = 8
	DefaultSmoothingAlpha = 0.3
	DefaultSmoothingBeta  = 0.1
	DefaultSmoothingGamma = 0.2
	DefaultARIMAOrder     = 2
	DefaultAutoARMaxOrder = 8
	DefaultDirectLags     = 8
)

// Source schemes
const (
	SourceSynthetic   = "synthetic"
	SchemeFile        = "file"
	SchemeS3          = "s3"
	SchemeInflux      = "influx"
	SchemeTimescaleDB = "timescaledb"
)

// Report formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatPNG  = "png"
)
