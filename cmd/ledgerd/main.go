package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"token-ledger/config"
	httpHandler "token-ledger/internal/adapter/http/handler"
	"token-ledger/internal/adapter/notify"
	"token-ledger/internal/adapter/storage/memory"
	pgStorage "token-ledger/internal/adapter/storage/postgres"
	redisStorage "token-ledger/internal/adapter/storage/redis"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/internal/service"
	"token-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("store", cfg.Ledger.Store).
		Int("port", cfg.Server.Port).
		Msg("Starting Token Ledger")

	ctx := context.Background()

	// Ledger store backend
	var (
		store          ports.LedgerStore
		sinks          []ports.NotificationSink
		healthCheckers []ports.HealthChecker
	)
	sinks = append(sinks, notify.NewLogSink(log))

	switch cfg.Ledger.Store {
	case "memory":
		store = memory.NewStore()

	case "postgres":
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()

		pgStore := pgStorage.NewStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure ledger schema")
		}
		store = pgStore
		healthCheckers = append(healthCheckers, pgStorage.NewHealthCheck(pool))
		log.Info().Msg("PostgreSQL connected")

	case "redis":
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()

		store = redisStorage.NewStore(rdb)
		sinks = append(sinks, redisStorage.NewNotificationStream(rdb))
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
		log.Info().Msg("Redis connected")

	default:
		log.Fatal().Str("store", cfg.Ledger.Store).Msg("Unknown ledger store backend")
	}

	// Bootstrap the mint authority
	if cfg.Ledger.Owner != "" {
		owner, err := domain.ParsePrincipal(cfg.Ledger.Owner)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid ledger owner principal")
		}
		if err := store.SetOwner(ctx, owner); err != nil {
			log.Fatal().Err(err).Msg("Failed to set ledger owner")
		}
		log.Info().Str("owner", owner.Hex()).Msg("Ledger owner configured")
	} else {
		log.Warn().Msg("No ledger owner configured, minting is disabled")
	}

	// Initialize core services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	ledgerSvc := service.NewLedgerService(store, notify.NewMulti(sinks...), log)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		TokenSvc:       tokenSvc,
		HealthCheckers: healthCheckers,
		DebugAuth:      cfg.Server.Mode == "debug",
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
