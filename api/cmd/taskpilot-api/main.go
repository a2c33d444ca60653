package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskpilot/taskpilot/api/internal/api/handlers"
	"github.com/taskpilot/taskpilot/api/internal/api/middleware"
	"github.com/taskpilot/taskpilot/api/internal/api/router"
	"github.com/taskpilot/taskpilot/api/internal/config"
	"github.com/taskpilot/taskpilot/api/internal/core/domain"
	"github.com/taskpilot/taskpilot/api/internal/core/services"
	"github.com/taskpilot/taskpilot/api/internal/db/memory"
	"github.com/taskpilot/taskpilot/api/internal/db/postgres"
	delivery "github.com/taskpilot/taskpilot/api/internal/delivery/http"
	"github.com/taskpilot/taskpilot/api/internal/infrastructure/crypto"
	"github.com/taskpilot/taskpilot/api/internal/telemetry"
)

func main() {
	// --- 1. Core Telemetry & Configuration ---
	logger := telemetry.NewLogger(os.Stdout, slog.LevelInfo)
	slog.SetDefault(logger)
	logger.Info("Booting TaskPilot API")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("FATAL: configuration invalid", "error", err)
		os.Exit(1)
	}
	for _, warning := range cfg.SecurityWarnings() {
		logger.Warn("SECURITY: "+warning, "environment", cfg.Environment)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- 2. Storage ---
	var (
		credentialRepo domain.CredentialRepository
		auditRepo      domain.AuditRepository
		healthHandler  *delivery.HealthHandler
	)

	switch cfg.StorageDriver {
	case config.StorageMemory:
		credentialRepo = memory.NewCredentialRepository()
		auditRepo = memory.NewAuditRepository()
		healthHandler = delivery.NewHealthHandler(nil, logger)

	default:
		dbPool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("FATAL: DB failed", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := postgres.Migrate(ctx, dbPool); err != nil {
			logger.Error("FATAL: schema migration failed", "error", err)
			os.Exit(1)
		}

		credentialRepo = postgres.NewCredentialRepository(dbPool)
		auditRepo = postgres.NewAuditRepository(postgres.NewSQLX(dbPool))
		healthHandler = delivery.NewHealthHandler(dbPool, logger)
	}

	// --- 3. Dependency Injection ---
	cipher, err := crypto.NewSecretCipher(cfg.EncryptionSecret)
	if err != nil {
		logger.Error("FATAL: cipher init failed", "error", err)
		os.Exit(1)
	}

	tokenService := services.NewTokenService(cfg.JWTSecret)
	credentialService := services.NewCredentialService(credentialRepo, auditRepo, cipher, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go rateLimiter.Cleanup(ctx)

	// --- 4. HTTP Gateway ---
	mux := router.NewRouter(router.RouterConfig{
		AllowedOrigins:    cfg.AllowedOrigins,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		CredentialHandler: handlers.NewCredentialHandler(credentialService),
		HealthHandler:     healthHandler,
		AuthMiddleware:    middleware.NewAuthMiddleware(tokenService, logger),
		RateLimiter:       rateLimiter,
		Logger:            logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	// --- 5. Graceful Exit ---
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("TaskPilot API active", "port", cfg.Port, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Error("CRITICAL: Server crashed", "error", err)
	case <-ctx.Done():
		logger.Info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ERROR: Forced shutdown", "error", err)
	}
	logger.Info("TaskPilot API stopped")
}
