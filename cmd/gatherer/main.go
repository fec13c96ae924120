package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridsync/internal/api"
	"gridsync/internal/config"
	"gridsync/internal/database"
	"gridsync/internal/store"
	"gridsync/internal/syncer"
	"gridsync/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/gatherer.local.yaml", "path to config file")
	flag.Parse()

	// A .env file is optional; in production the token comes from the
	// environment directly.
	godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting gatherer",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration. A missing credential or malformed config is fatal
	// at startup; no partial run is attempted.
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"api_url", cfg.API.BaseURL,
		"mode", cfg.Sync.Mode,
		"zones", len(cfg.Zones),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool,
		store.WithLogger(logger),
		store.WithTables(cfg.Database.PointsTable, cfg.Database.DaysTable),
	)
	if err := st.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	logger.Info("database connected",
		"points_table", cfg.Database.PointsTable,
		"days_table", cfg.Database.DaysTable,
	)

	// Create API client
	client := api.NewClient(
		cfg.API.BaseURL,
		cfg.API.SecurityToken,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetryPolicy(api.RetryPolicy{
			MaxRetries:        cfg.API.MaxRetries,
			Backoff:           cfg.API.RetryBackoff,
			RetryableStatuses: api.DefaultRetryPolicy().RetryableStatuses,
		}),
		api.WithGenerationTypes(
			cfg.API.GenerationDocumentType,
			cfg.API.GenerationProcessType,
			cfg.API.PsrType,
		),
		api.WithPriceDocumentType(cfg.API.PriceDocumentType),
		api.WithZeroPriceFilter(cfg.API.DropZeroPrices),
	)

	from, err := cfg.Sync.StartTime()
	if err != nil {
		logger.Error("invalid start date", "error", err)
		os.Exit(1)
	}

	runner := syncer.NewRunner(syncer.Config{
		Mode:            syncer.Mode(cfg.Sync.Mode),
		From:            from,
		ZoneConcurrency: cfg.Sync.ZoneConcurrency,
		Pace:            cfg.Sync.PaceDuration(),
		SummaryLabels:   cfg.Sync.SummaryLabels,
	}, client, st, cfg.Zones, logger)

	// Health and metrics server, up for the lifetime of the run.
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHealthHandler(st, cfg.Metrics.Path, logger),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port, "metrics_path", cfg.Metrics.Path)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	report, runErr := runner.Run(ctx)

	mins := int(report.Duration.Minutes())
	secs := int(report.Duration.Seconds()) % 60
	logger.Info("pipeline completed",
		"run_id", report.RunID,
		"duration", fmt.Sprintf("%dm%ds", mins, secs),
		"records_written", report.Written(),
		"zones_failed", len(report.Failed()),
	)
	for _, z := range report.Failed() {
		logger.Warn("zone failed", "zone", z.Zone, "error", z.Err)
	}

	// Graceful shutdown of health server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("run aborted", "error", runErr)
		os.Exit(1)
	}
	logger.Info("gatherer stopped")
}

// createHealthHandler creates the HTTP handler for health checks and metrics.
func createHealthHandler(st *store.Store, metricsPath string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(metricsPath, promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string            `json:"status"`
			Version    string            `json:"version"`
			Components map[string]string `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.String(),
			Components: make(map[string]string),
		}

		if err := st.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = "disconnected: " + err.Error()
		} else {
			health.Components["postgres"] = "connected"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
