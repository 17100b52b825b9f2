package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/forecasters"
	"github.com/inferloop/tsforecast/internal/observability/health"
	"github.com/inferloop/tsforecast/internal/observability/metrics"
	"github.com/inferloop/tsforecast/internal/pipeline"
	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/interfaces"
)

// Config holds the collaborators and defaults of the HTTP API. The pipeline is
// expected to use Store as its report sink so finished runs can be fetched.
type Config struct {
	Pipeline   *pipeline.Pipeline
	Adapter    *forecasters.Adapter
	Store      interfaces.ReportStore
	Health     *health.HealthMonitor
	Metrics    *metrics.PrometheusMetrics
	Middleware *MiddlewareConfig

	DefaultHorizon     int
	DefaultForecasters []string
	AllowedSchemes     []string // source schemes a request may name besides uploads and "synthetic"
	MaxUploadBytes     int64
}

// Router serves the comparison API
type Router struct {
	config *Config
	logger *logrus.Logger

	// comparisons run one at a time
	runMu sync.Mutex
}

// NewRouter creates a new router
func NewRouter(config *Config, logger *logrus.Logger) (*Router, error) {
	if config == nil || config.Pipeline == nil || config.Adapter == nil || config.Store == nil {
		return nil, errors.NewConfigurationError("api config needs a pipeline, an adapter and a report store")
	}

	if logger == nil {
		logger = logrus.New()
	}

	if config.Health == nil {
		config.Health = health.NewHealthMonitor(nil, logger)
	}
	if config.Middleware == nil {
		config.Middleware = DefaultMiddlewareConfig()
	}
	if config.DefaultHorizon == 0 {
		config.DefaultHorizon = constants.DefaultHorizon
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = constants.DefaultMaxUploadBytes
	}

	return &Router{
		config: config,
		logger: logger,
	}, nil
}

// SetupRoutes builds the mux router with middleware applied
func (router *Router) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(router.notFound)

	ApplyMiddleware(r, router.config.Middleware, router.config.Metrics, router.logger)

	if router.config.Metrics != nil {
		r.Handle("/metrics", router.config.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix(constants.APIPrefix).Subrouter()

	api.HandleFunc("/health", router.GetHealth).Methods(http.MethodGet)
	api.HandleFunc("/forecasters", router.ListForecasters).Methods(http.MethodGet)
	api.HandleFunc("/compare", router.Compare).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/reports/{id}", router.GetReport).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}/plot.png", router.GetPlot).Methods(http.MethodGet)

	r.HandleFunc("/", router.Index).Methods(http.MethodGet)

	return r
}
