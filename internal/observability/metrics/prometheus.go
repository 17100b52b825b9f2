package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/models"
)

// Run statuses
const (
	RunStatusSuccess   = "success"
	RunStatusFatal     = "fatal"
	RunStatusCancelled = "cancelled"
)

// PrometheusConfig configures Prometheus metrics
type PrometheusConfig struct {
	Namespace    string            `json:"namespace" mapstructure:"namespace"`
	Subsystem    string            `json:"subsystem" mapstructure:"subsystem"`
	TextfilePath string            `json:"textfile_path" mapstructure:"textfile_path"` // node_exporter textfile output
	Labels       map[string]string `json:"labels" mapstructure:"labels"`
}

// PrometheusMetrics records comparison runs, per-forecaster outcomes and HTTP
// traffic on a private registry
type PrometheusMetrics struct {
	logger   *logrus.Logger
	registry *prometheus.Registry
	config   *PrometheusConfig

	runsTotal           *prometheus.CounterVec
	runDuration         prometheus.Histogram
	seriesLength        prometheus.Gauge
	forecasterOutcomes  *prometheus.CounterVec
	forecasterDuration  *prometheus.HistogramVec
	forecasterAccuracy  *prometheus.GaugeVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new Prometheus metrics instance
func NewPrometheusMetrics(config *PrometheusConfig, logger *logrus.Logger) (*PrometheusMetrics, error) {
	if config == nil {
		config = getDefaultPrometheusConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	pm := &PrometheusMetrics{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		config:   config,
	}

	pm.initializeMetrics()

	if err := pm.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return pm, nil
}

// Registry returns the underlying registry
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// Handler serves the registry in the Prometheus exposition format
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordRun counts a finished run
func (pm *PrometheusMetrics) RecordRun(status string, duration time.Duration) {
	pm.runsTotal.WithLabelValues(status).Inc()
	pm.runDuration.Observe(duration.Seconds())
}

// RecordSeries records the length of the validated series
func (pm *PrometheusMetrics) RecordSeries(length int) {
	pm.seriesLength.Set(float64(length))
}

// RecordOutcome counts one forecaster evaluation and, on success, its accuracy
func (pm *PrometheusMetrics) RecordOutcome(outcome models.Outcome) {
	status, stage := "success", ""
	if !outcome.Succeeded() {
		status = "failure"
		if outcome.Failure != nil {
			stage = string(outcome.Failure.Stage)
		}
	}

	pm.forecasterOutcomes.WithLabelValues(outcome.Forecaster, status, stage).Inc()
	pm.forecasterDuration.WithLabelValues(outcome.Forecaster).Observe(outcome.Duration.Seconds())

	if outcome.Result == nil {
		return
	}
	for _, metric := range constants.Metrics {
		if v, ok := outcome.Result.Accuracy.Get(metric); ok {
			pm.forecasterAccuracy.WithLabelValues(outcome.Forecaster, metric).Set(v)
		}
	}
}

// RecordHTTPRequest counts an API request
func (pm *PrometheusMetrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	pm.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	pm.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// WriteTextfile writes the registry to the configured textfile path, if any
func (pm *PrometheusMetrics) WriteTextfile() error {
	if pm.config.TextfilePath == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(pm.config.TextfilePath, pm.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}

	pm.logger.WithFields(logrus.Fields{
		"path": pm.config.TextfilePath,
	}).Debug("Wrote metrics textfile")

	return nil
}

func (pm *PrometheusMetrics) initializeMetrics() {
	namespace := pm.config.Namespace
	subsystem := pm.config.Subsystem
	labels := prometheus.Labels(pm.config.Labels)

	pm.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "runs_total",
			Help:        "Total number of comparison runs by status",
			ConstLabels: labels,
		},
		[]string{"status"},
	)

	pm.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "run_duration_seconds",
			Help:        "Comparison run duration in seconds",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			ConstLabels: labels,
		},
	)

	pm.seriesLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "series_length",
			Help:        "Number of weekly points in the last validated series",
			ConstLabels: labels,
		},
	)

	pm.forecasterOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "forecaster_evaluations_total",
			Help:        "Total number of forecaster evaluations by status and failing stage",
			ConstLabels: labels,
		},
		[]string{"forecaster", "status", "stage"},
	)

	pm.forecasterDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "forecaster_duration_seconds",
			Help:        "Fit, predict and score duration per forecaster in seconds",
			Buckets:     []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 10},
			ConstLabels: labels,
		},
		[]string{"forecaster"},
	)

	pm.forecasterAccuracy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "forecaster_accuracy",
			Help:        "Latest accuracy of each forecaster by metric",
			ConstLabels: labels,
		},
		[]string{"forecaster", "metric"},
	)

	pm.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		},
		[]string{"method", "route", "status"},
	)

	pm.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		},
		[]string{"method", "route"},
	)
}

func (pm *PrometheusMetrics) registerMetrics() error {
	collectors := []prometheus.Collector{
		pm.runsTotal,
		pm.runDuration,
		pm.seriesLength,
		pm.forecasterOutcomes,
		pm.forecasterDuration,
		pm.forecasterAccuracy,
		pm.httpRequestsTotal,
		pm.httpRequestDuration,
	}

	for _, collector := range collectors {
		if err := pm.registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

func getDefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Namespace: "tsforecast",
		Subsystem: "",
	}
}
