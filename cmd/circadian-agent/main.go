package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jkaariainen/circadia/internal/history"
	"github.com/jkaariainen/circadia/internal/orchestrator"
	"github.com/jkaariainen/circadia/internal/setup"
	"github.com/jkaariainen/circadia/pkg/config"
	"github.com/jkaariainen/circadia/pkg/health"
	"github.com/jkaariainen/circadia/pkg/mqtt"
	"github.com/jkaariainen/circadia/pkg/postgres"
	"github.com/jkaariainen/circadia/pkg/redis"
)

func main() {
	// Load configuration with hierarchy: defaults → env → flags
	cfg := config.NewConfig()
	cfg.ServiceName = "circadian-agent"
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting Circadia Agent",
		"service_name", cfg.ServiceName,
		"mqtt_broker", cfg.MQTTAddress(),
		"redis_host", cfg.RedisAddress(),
		"setups_file", cfg.SetupsFile,
		"log_level", cfg.LogLevel)

	// Load setup definitions
	setups, err := setup.LoadFile(cfg.SetupsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setups file error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Loaded setup definitions", "count", len(setups))

	// Set up context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize MQTT client
	mqttClient := mqtt.NewClient(cfg, logger)

	// Initialize Redis client
	redisClient := redis.NewClient(cfg, logger)

	// Optional pass history in postgres
	var recorder *history.Recorder
	var pgClient postgres.Client
	if cfg.HistoryEnabled() {
		pgClient = postgres.NewClient(cfg, logger)
		if err := pgClient.Connect(ctx); err != nil {
			logger.Error("Failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		recorder = history.NewRecorder(pgClient, logger)
		if err := recorder.Init(ctx); err != nil {
			logger.Error("Failed to initialize pass history", "error", err)
			os.Exit(1)
		}
		logger.Info("Pass history enabled",
			"postgres", fmt.Sprintf("%s:%d/%s", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB))
	}

	// Create the orchestrator
	orch := orchestrator.New(mqttClient, redisClient, recorder, setups, cfg, logger)

	// Start health check server
	healthChecker := health.NewChecker(mqttClient, redisClient, logger)
	httpServer := startHealthServer(cfg.HealthPort, healthChecker, logger)

	// Start orchestrator in a goroutine
	orchErr := make(chan error, 1)
	go func() {
		if err := orch.Start(ctx); err != nil {
			logger.Error("Orchestrator error", "error", err)
			orchErr <- err
		}
	}()

	// Wait for shutdown signal or orchestrator error
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received (SIGTERM/SIGINT)")
	case err := <-orchErr:
		logger.Error("Orchestrator failed", "error", err)
	}

	// Graceful shutdown
	logger.Info("Initiating graceful shutdown")
	cancel()

	if err := orch.Stop(); err != nil {
		logger.Error("Error stopping orchestrator", "error", err)
	}

	if pgClient != nil {
		if err := pgClient.Disconnect(); err != nil {
			logger.Error("Error closing postgres connection", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down health server", "error", err)
	}

	logger.Info("Circadia agent shutdown complete")
}

func startHealthServer(port int, checker *health.Checker, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.HandlerFunc())
	mux.HandleFunc("/health/detailed", checker.DetailedHandlerFunc())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("Starting health check server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server error", "error", err)
		}
	}()

	return server
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
