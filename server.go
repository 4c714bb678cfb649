package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"mp4-creator/internal/handlers"
	"mp4-creator/internal/logging"
	"mp4-creator/internal/metrics"
	"mp4-creator/internal/middleware"
	"mp4-creator/internal/pipeline"
	"mp4-creator/internal/startup"
	"mp4-creator/internal/streaming"
	"mp4-creator/internal/transcoder"
	"mp4-creator/internal/upload"
	"mp4-creator/internal/workers"
	"mp4-creator/internal/workspace"
)

const shutdownTimeout = 30 * time.Second

func runServer(ctx context.Context, configPath string) error {
	startTime := time.Now()

	config, err := startup.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	// Probe once; a missing engine keeps the server up but rejects merges.
	engine := transcoder.NewFFmpeg(config.Engine.FFmpegPath, config.Engine.FFprobePath)
	startup.LogEngineInit(engine.Probe(ctx))

	workspaces := newWorkspaceManager(config)
	swept, sweepErr := workspaces.SweepOrphans()
	startup.LogWorkspaceInit(workspaces.Root(), swept, sweepErr)

	coord := pipeline.NewCoordinator(pipeline.Options{
		Gate:       engine,
		Workspaces: workspaces,
		Transcoder: transcoder.New(engine, transcoder.DefaultProfile()),
		Delivery:   streaming.New(streaming.DefaultConfig()),
		Pool:       workers.NewPool(config.Engine.MaxConcurrent),
	})
	uploads := upload.NewReader(upload.Limits{
		MaxFiles:       config.Limits.MaxFiles,
		MaxFileSize:    config.Limits.MaxFileSizeBytes,
		MaxRequestSize: config.Limits.MaxRequestSizeBytes,
	})
	h := handlers.New(coord, uploads, engine, workspaces)

	router := setupRouter(h, config)
	startup.LogHTTPRoutes(router, config.Logging.StaticFiles, config.Logging.HealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.Logging.StaticFiles
	loggingConfig.LogHealthChecks = config.Logging.HealthChecks
	handler := middleware.Logger(loggingConfig)(middleware.Metrics(middleware.DefaultMetricsConfig())(router))

	// No ReadTimeout or WriteTimeout: uploads and merged downloads can be
	// large. Delivery sets its own per-chunk write deadline.
	srv := &http.Server{
		Addr:              ":" + config.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.Server.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.Server.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return listen(srv) })
	if metricsSrv != nil {
		g.Go(func() error { return listen(metricsSrv) })
	}
	g.Go(func() error {
		select {
		case sig := <-sigChan:
			startup.LogShutdownInitiated(sig.String())
		case <-gctx.Done():
			startup.LogShutdownInitiated("listener stopped")
		}
		shutdown(srv, metricsSrv, engine, workspaces)
		return nil
	})

	startup.LogServerStarted(startup.StartedInfo{
		Port:            config.Server.Port,
		MetricsPort:     config.Server.MetricsPort,
		MetricsEnabled:  config.Server.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	return g.Wait()
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s: %w", srv.Addr, err)
	}
	return nil
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes (no auth required)
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.TokenAuth(config.Server.APITokenHash))
	api.HandleFunc("/merge", h.Merge).Methods(http.MethodPost)
	api.HandleFunc("/limits", h.GetLimits).Methods(http.MethodGet)

	// Static files. /api is excluded so unknown methods on API routes get 405
	// instead of falling through to the file server.
	r.PathPrefix("/").MatcherFunc(notAPI).Handler(http.FileServer(http.Dir(config.Server.StaticDir)))

	return r
}

func notAPI(r *http.Request, _ *mux.RouteMatch) bool {
	return r.URL.Path != "/api" && !strings.HasPrefix(r.URL.Path, "/api/")
}

func shutdown(srv, metricsSrv *http.Server, engine *transcoder.FFmpeg, workspaces *workspace.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v; closing remaining connections", err)
		if err := srv.Close(); err != nil {
			logging.Warn("Server close error: %v", err)
		}
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Killing engine processes")
	engine.Cleanup()
	startup.LogShutdownStepComplete("Engine processes stopped")

	startup.LogShutdownStep("Removing pending workspaces")
	removed := workspaces.Shutdown()
	startup.LogShutdownStepComplete(fmt.Sprintf("Removed %d pending workspace(s)", removed))

	startup.LogShutdownComplete()
}
