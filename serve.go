package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-indexer/internal/handlers"
	"media-indexer/internal/indexer"
	"media-indexer/internal/logging"
	"media-indexer/internal/memory"
	"media-indexer/internal/metrics"
	"media-indexer/internal/middleware"
	"media-indexer/internal/scheduler"
	"media-indexer/internal/startup"
	"media-indexer/internal/thumbnail"
)

const (
	shutdownTimeout        = 30 * time.Second
	metricsCollectInterval = time.Minute
)

func runServe(cfg *startup.Config) error {
	startTime := time.Now()

	memory.ConfigureFromEnv()
	startup.PrintBanner()
	cfg.Log()

	if _, err := startup.ValidateRoot(cfg.MediaDir); err != nil {
		return err
	}

	a, err := openApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	scanner := a.newScanner()
	gen, err := a.newGenerator(context.Background(), monitor)
	if err != nil {
		return fmt.Errorf("failed to initialize thumbnail generator: %w", err)
	}

	history := handlers.NewHistory()
	sched := newScheduler(cfg, scanner, gen, history)
	startup.LogSchedulerInit(time.Duration(cfg.IndexInterval), time.Duration(cfg.ThumbnailInterval))

	collector := metrics.NewCollector(a.db, metricsCollectInterval)
	collector.Start()

	h := handlers.New(a.db, sched, history)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           middleware.Logger(middleware.DefaultLoggingConfig())(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	startup.LogServerStarted(cfg.ListenAddr, time.Since(startTime))

	var runErr error
	select {
	case sig := <-sigChan:
		startup.LogShutdownInitiated(sig.String())
		go func() {
			sig := <-sigChan
			logging.Error("Received %s during shutdown, forcing exit", sig)
			os.Exit(1)
		}()
	case err := <-serverErr:
		logging.Error("Server error: %v", err)
		runErr = fmt.Errorf("status server: %w", err)
	}

	shutdown(srv, sched, collector, cancel)
	return runErr
}

// indexGroup keeps thumbnail runs from reading the index while a scan is
// rewriting it.
const indexGroup = "index"

// newScheduler wires the scan and thumbnail jobs. A successful scan queues a
// thumbnail run so new images are rendered without waiting a full interval.
func newScheduler(cfg *startup.Config, scanner *indexer.Scanner, gen *thumbnail.Generator, history *handlers.History) *scheduler.Scheduler {
	var sched *scheduler.Scheduler
	sched = scheduler.New(
		scheduler.Job{
			Name:       handlers.JobScan,
			Interval:   time.Duration(cfg.IndexInterval),
			RunAtStart: true,
			Group:      indexGroup,
			Run: func(ctx context.Context) error {
				report, err := scanner.Run(ctx, cfg.MediaDir)
				history.RecordScan(report, err)
				if err != nil {
					return err
				}
				sched.Trigger(handlers.JobThumbnails)
				return nil
			},
		},
		scheduler.Job{
			Name:     handlers.JobThumbnails,
			Interval: time.Duration(cfg.ThumbnailInterval),
			Group:    indexGroup,
			Run: func(ctx context.Context) error {
				report, err := gen.GenerateAll(ctx, history.TakeForce())
				history.RecordThumbnails(report, err)
				return err
			},
		},
	)
	return sched
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	r.HandleFunc("/healthz", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/status", h.Status).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/scan", h.TriggerScan).Methods("POST")
	api.HandleFunc("/thumbnails", h.TriggerThumbnails).Methods("POST")

	return r
}

func shutdown(srv *http.Server, sched *scheduler.Scheduler, collector *metrics.Collector, cancel context.CancelFunc) {
	ctx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping scheduled jobs")
	cancel()
	sched.Stop()
	startup.LogShutdownStepComplete("Scheduled jobs stopped")

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownComplete()
}
