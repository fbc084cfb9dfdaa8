package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dandantas/turnstile/internal/alert"
	"github.com/dandantas/turnstile/internal/config"
	"github.com/dandantas/turnstile/internal/database"
	"github.com/dandantas/turnstile/internal/engine"
	"github.com/dandantas/turnstile/internal/handler"
	"github.com/dandantas/turnstile/internal/session"
	"github.com/dandantas/turnstile/internal/sweeper"
	"github.com/dandantas/turnstile/internal/webhook"
	"github.com/dandantas/turnstile/pkg/middleware"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	config.InitLogger(cfg)

	slog.Info("Starting Turnstile Gateway", "version", version, "engine", cfg.EngineBaseURL)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to MongoDB
	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			slog.Error("Failed to disconnect from MongoDB", "error", err)
		}
	}()

	// Create indexes
	if err := database.CreateIndexes(ctx, db); err != nil {
		slog.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	jobRepo := database.NewJobRepository(db)
	observationRepo := database.NewObservationRepository(db)
	alertRuleRepo := database.NewAlertRuleRepository(db)
	alertLogRepo := database.NewAlertLogRepository(db)
	lockRepo := database.NewSweepLockRepository(db)

	// Counting engine client and session registry
	client := engine.NewClient(cfg.EngineBaseURL, cfg.EngineSubmitTimeout)
	store := session.NewStore(cfg.DefaultParameters)

	// Alerting pipeline
	dispatcher := webhook.NewDispatcher(cfg.DefaultWebhookTimeout)
	notifier := alert.NewNotifier(alertRuleRepo, dispatcher, alertLogRepo)

	// Retention sweeper
	sweep, err := sweeper.New(cfg, jobRepo, observationRepo, alertLogRepo, lockRepo)
	if err != nil {
		slog.Error("Failed to create retention sweeper", "error", err)
		os.Exit(1)
	}
	sweep.Start(ctx)

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(store, client, jobRepo, observationRepo, notifier)
	jobHandler := handler.NewJobHandler(jobRepo, observationRepo, alertLogRepo)
	alertRuleHandler := handler.NewAlertRuleHandler(alertRuleRepo)
	healthHandler := handler.NewHealthHandler(db, version)

	// Create CORS config
	corsConfig := middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           cfg.CORSMaxAge,
	}

	// Create router
	router := handler.NewRouter(
		sessionHandler,
		jobHandler,
		alertRuleHandler,
		healthHandler,
		corsConfig,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	// Start server in goroutine
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("Received shutdown signal, initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the sweeper first (wait for an in-flight sweep)
	slog.Info("Stopping retention sweeper...")
	sweep.Stop(shutdownCtx)

	// Shutdown HTTP server
	slog.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
