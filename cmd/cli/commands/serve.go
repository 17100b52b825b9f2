package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inferloop/tsforecast/internal/api"
	"github.com/inferloop/tsforecast/internal/observability/health"
	"github.com/inferloop/tsforecast/internal/storage/implementations/memory"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/interfaces"
)

// NewServeCmd serves the comparison API over HTTP
func NewServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve comparisons, reports and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				app.Config.Server.Addr = addr
			}
			return runServe(cmd.Context(), app)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

type pinger interface {
	Ping(ctx context.Context) error
}

func runServe(ctx context.Context, app *App) error {
	cfg := app.Config
	logger := app.Logger

	c, err := app.build(true)
	if err != nil {
		return err
	}

	monitor := health.NewHealthMonitor(nil, logger)
	monitor.RegisterCheck(health.NewBasicHealthCheck("forecasters", func(ctx context.Context) error {
		if len(c.adapter.Names()) == 0 {
			return errors.NewConfigurationError("no eligible forecasters registered")
		}
		return nil
	}, true))

	var store interfaces.ReportStore
	if store, err = c.factory.NewReportStore(ctx); err != nil {
		return err
	}
	if store == nil {
		store = memory.NewReportStore(cfg.Server.ReportCapacity, logger)
	}
	defer store.Close()
	if p, ok := store.(pinger); ok {
		monitor.RegisterCheck(health.NewBasicHealthCheck("report_store", p.Ping, true))
	}
	c.pipeline.SetSink(store, c.plotter)

	middleware := cfg.Server.Middleware
	router, err := api.NewRouter(&api.Config{
		Pipeline:           c.pipeline,
		Adapter:            c.adapter,
		Store:              store,
		Health:             monitor,
		Metrics:            c.metrics,
		Middleware:         &middleware,
		DefaultHorizon:     cfg.Defaults.Horizon,
		DefaultForecasters: cfg.Defaults.Forecasters,
		AllowedSchemes:     cfg.Server.AllowedSchemes,
		MaxUploadBytes:     cfg.Server.MaxUploadBytes,
	}, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"address":     srv.Addr,
			"report_sink": store.GetType(),
		}).Info("Starting HTTP server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
		return err
	}

	logger.Info("Server stopped")
	return nil
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
