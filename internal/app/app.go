package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clay/amphora-auth/internal/config"
	"github.com/clay/amphora-auth/internal/metrics"
)

type App struct {
	httpServer    *http.Server
	metricsServer *http.Server
	cleanup       func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	gin.SetMode(gin.ReleaseMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewProm(reg)
	if err != nil {
		return nil, err
	}

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, err
	}

	router, err := setupHTTP(ctx, cfg, infra, m)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &App{
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppPort,
			Handler: router,
		},
		metricsServer: &http.Server{
			Addr:    ":" + cfg.MetricsPort,
			Handler: mux,
		},
		cleanup: infra.Close,
	}, nil
}

// Run serves until either server stops.
func (a *App) Run() error {
	errc := make(chan error, 2)
	go func() { errc <- a.metricsServer.ListenAndServe() }()
	go func() { errc <- a.httpServer.ListenAndServe() }()

	err := <-errc
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	err := errors.Join(
		a.httpServer.Shutdown(ctx),
		a.metricsServer.Shutdown(ctx),
	)
	if err != nil {
		return err
	}
	if a.cleanup != nil {
		return a.cleanup()
	}
	return nil
}
