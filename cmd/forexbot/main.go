package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"forex-signal-bot/internal/api"
	"forex-signal-bot/internal/cfg"
	"forex-signal-bot/internal/metrics"
	"forex-signal-bot/internal/ml"
	"forex-signal-bot/internal/predict"
	"forex-signal-bot/internal/scheduler"
	"forex-signal-bot/internal/simulate"
	"forex-signal-bot/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const modelAgeSchedule = "@every 1m"

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	cfg.SetupLogging(c.LogLevel, c.LogFormat)
	c.LogSummary()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	store, err := storage.Open(c.StoreBackend, c.ModelPath, c.DataPath)
	if err != nil {
		log.Fatal().Err(err).Str("backend", c.StoreBackend).Msg("model store unavailable")
	}
	defer storage.Close(store)

	manager := initializeModels(c, store, mw)
	pipeline := predict.New(manager, c.Thresholds(), mw)

	var wg sync.WaitGroup
	startMetricsServer(ctx, &wg, c)

	sched := startScheduler(c, manager, mw)
	defer sched.Stop()

	server := api.New(api.Config{
		Port:           c.HTTPPort,
		RequestTimeout: c.RequestTimeout,
		StreamInterval: c.StreamInterval,
		Pairs:          c.Pairs,
		Models:         manager,
		Pipeline:       pipeline,
		Generator:      simulate.NewGenerator(0),
		Metrics:        mw,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, cancel)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown API server")
	}
	waitForGoroutines(&wg)
}

// initializeModels builds the manager and makes a model live. A failed
// initial fit is not fatal: predictions return the safe default until a
// retrain succeeds.
func initializeModels(c cfg.Settings, store storage.ModelStore, mw *metrics.MetricsWrapper) *ml.Manager {
	trees := c.ForestTrees
	manager := ml.NewManager(ml.ManagerConfig{
		Store:   store,
		Factory: func() ml.Classifier { return ml.NewForest(trees) },
		CVFolds: c.CVFolds,
		Metrics: mw,
	})
	if err := manager.Init(); err != nil {
		log.Error().Err(err).Msg("model unavailable, serving safe defaults until retrained")
		return manager
	}

	meta := manager.Current().Metadata
	log.Info().
		Str("version", meta.Version).
		Str("source", meta.Source).
		Int("trees", meta.Trees).
		Float64("cv_accuracy", meta.CVAccuracy).
		Float64("cv_kappa", meta.CVKappa).
		Msg("model ready")
	return manager
}

func startScheduler(c cfg.Settings, manager *ml.Manager, mw *metrics.MetricsWrapper) *scheduler.Scheduler {
	sched := scheduler.New(log.Logger)

	if err := sched.AddJob(modelAgeSchedule, scheduler.NewModelAgeJob(manager, mw.ModelAge())); err != nil {
		log.Error().Err(err).Msg("failed to register model age job")
	}
	if c.RetrainSchedule != "" {
		job := scheduler.NewRetrainJob(manager, mw.ScheduledRetrains())
		if err := sched.AddJob(c.RetrainSchedule, job); err != nil {
			log.Error().Err(err).Str("schedule", c.RetrainSchedule).Msg("failed to register retrain job")
		}
	}

	sched.Start()
	return sched
}

// startMetricsServer serves Prometheus metrics on the metrics port.
func startMetricsServer(ctx context.Context, wg *sync.WaitGroup, c cfg.Settings) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to shutdown metrics server")
		}
	}()
	go func() {
		defer wg.Done()
		log.Info().Int("port", c.MetricsPort).Msg("metrics server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()
}

func waitForGoroutines(wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all goroutines stopped")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}
