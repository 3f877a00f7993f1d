package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/c360studio/protodb/catalog"
	"github.com/c360studio/protodb/config"
	"github.com/c360studio/protodb/finder"
	"github.com/c360studio/protodb/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App holds the state shared by subcommands.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
}

// NewApp creates the application for cfg.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	reg := prometheus.NewRegistry()
	return &App{
		cfg:     cfg,
		logger:  logger,
		reg:     reg,
		metrics: metrics.New(reg),
	}
}

func (a *App) catalogOptions() catalog.Options {
	return catalog.Options{
		ConfigPath:        a.cfg.Catalog.Path,
		Logger:            a.logger,
		Metrics:           a.metrics,
		CacheEagerLoaders: a.cfg.Catalog.CacheEagerLoaders,
		MemoizeFields:     a.cfg.Catalog.MemoizeFields,
	}
}

// LoadCatalog registers the catalog document and installs it as the
// process-wide registry.
func (a *App) LoadCatalog() (*catalog.Registry, error) {
	reg, err := catalog.Register(a.catalogOptions())
	if err != nil {
		return nil, err
	}
	if err := catalog.Init(reg); errors.Is(err, catalog.ErrAlreadyInitialized) {
		catalog.Replace(reg)
	}
	return reg, nil
}

// Finder reads the configured search space.
func (a *App) Finder() (*finder.Finder, error) {
	return finder.New(a.cfg.Finder.Path,
		finder.WithLogger(a.logger),
		finder.WithMetrics(a.metrics))
}

// Watch keeps the process-wide registry in sync with the catalog document
// until ctx is done. onReload is called for every reload attempt.
func (a *App) Watch(ctx context.Context, onReload func(catalog.ReloadEvent)) error {
	if _, err := a.LoadCatalog(); err != nil {
		return err
	}

	w, err := catalog.NewWatcher(catalog.WatcherConfig{
		Options:       a.catalogOptions(),
		DebounceDelay: a.cfg.Watch.DebounceDelay,
		Install:       true,
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	for event := range w.Events() {
		onReload(event)
	}
	return nil
}

// ServeMetrics exposes the collectors on addr until ctx is done.
func (a *App) ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	a.logger.Info("Serving metrics", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
