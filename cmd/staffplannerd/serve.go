package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"staffplan-backend/internal/api"
	"staffplan-backend/internal/metrics"
	"staffplan-backend/internal/notification"
	"staffplan-backend/internal/reconcile"
	"staffplan-backend/internal/statuscache"
	"staffplan-backend/internal/surface"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(commandContext(cmd))
		},
	}
}

func runServe(parent context.Context) error {
	cfg := app.cfg
	logger := app.logger

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.NewPrometheus(reg, "staffplan")
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	app.metrics = rec

	if err := app.initBus(rec); err != nil {
		return err
	}

	cache, err := statuscache.Load(cfg.StatusCache.SnapshotPath, cfg.StatusCache.TTL, cfg.StatusCache.CleanupInterval)
	if err != nil {
		// A broken snapshot only loses provisional values.
		logger.Warn("starting with an empty status cache", zap.Error(err))
		cache = statuscache.New(cfg.StatusCache.TTL, cfg.StatusCache.CleanupInterval)
	}
	logger.Info("status cache ready", zap.Int("entries", cache.Len()))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	plannerSvc := app.newPlanner()
	registry := surface.NewRegistry(surface.Deps{
		Store:        app.store,
		Planner:      plannerSvc,
		Cache:        cache,
		Bus:          app.bus,
		Metrics:      rec,
		Logger:       logger.Named("surface"),
		StoreTimeout: cfg.Reconcile.StoreTimeout,
	})
	defer registry.Close()

	reconciler := reconcile.NewService(registry, cache, cfg.StatusCache.SnapshotPath, cfg.Reconcile.Interval, logger.Named("reconcile"))
	reconcileDone := make(chan struct{})
	go func() {
		defer close(reconcileDone)
		reconciler.Run(ctx)
	}()

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, app.store, webpushOptions, logger.Named("push"))
		workerPool.Start(ctx)
		defer workerPool.Attach(app.bus)()
		logger.Info("push notifications enabled", zap.Int("workers", cfg.WorkerPool.Size))
	} else {
		logger.Warn("VAPID keys are not configured, push notifications are disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(api.Deps{
		Store:    app.store,
		Planner:  plannerSvc,
		Surfaces: registry,
		Bus:      app.bus,
		Webpush:  webpushOptions,
		Logger:   logger.Named("api"),
	})
	router := api.NewRouter(handler, cfg.Server, app.bus, reg)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping services")
	case err := <-serverErr:
		stop()
		<-reconcileDone
		return fmt.Errorf("HTTP server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	<-reconcileDone

	logger.Info("server gracefully stopped")
	return nil
}
