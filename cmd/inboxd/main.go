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

	"github.com/joho/godotenv"

	"github.com/telfeed/inboxd/internal/inbox/app"
	"github.com/telfeed/inboxd/internal/inbox/domain"
	"github.com/telfeed/inboxd/internal/inbox/repository"
	pgrepo "github.com/telfeed/inboxd/internal/inbox/repository/postgres"
	sqliterepo "github.com/telfeed/inboxd/internal/inbox/repository/sqlite"
	httptransport "github.com/telfeed/inboxd/internal/inbox/transport/http"
	"github.com/telfeed/inboxd/internal/platform/config"
	"github.com/telfeed/inboxd/internal/platform/database"
	"github.com/telfeed/inboxd/internal/platform/logger"
)

func main() {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("inboxd starting", "port", cfg.ServerPort)

	if !cfg.SecretConfigured() {
		appLogger.Warn("webhook secret not configured; service will report not ready and reject all webhooks")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo repository.MessageRepository
	if strings.HasPrefix(cfg.DatabaseURL, "postgres://") || strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
		dbPool, err := database.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			appLogger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		pg := pgrepo.NewPgMessageRepository(dbPool, appLogger)
		if err := pg.InitSchema(ctx); err != nil {
			appLogger.Error("failed to initialize PostgreSQL schema", "error", err)
			os.Exit(1)
		}
		repo = pg
		appLogger.Info("connected to PostgreSQL store")
	} else {
		db, err := sqliterepo.Open(cfg.DatabaseURL)
		if err != nil {
			appLogger.Error("failed to open SQLite database", "error", err, "path", cfg.DatabaseURL)
			os.Exit(1)
		}
		defer db.Close()

		sq := sqliterepo.NewSQLiteMessageRepository(db, appLogger)
		if err := sq.InitSchema(ctx); err != nil {
			appLogger.Error("failed to initialize SQLite schema", "error", err)
			os.Exit(1)
		}
		repo = sq
		appLogger.Info("opened SQLite store", "path", cfg.DatabaseURL)
	}

	validate := domain.NewPayloadValidator()
	ingestService := app.NewIngestService(repo, validate, cfg.WebhookSecret, appLogger)
	queryService := app.NewQueryService(repo, appLogger)
	statsService := app.NewStatsService(repo, appLogger)

	router := httptransport.NewRouter(
		httptransport.NewWebhookHandler(ingestService, appLogger),
		httptransport.NewMessageHandler(queryService, appLogger),
		httptransport.NewStatsHandler(statsService, appLogger),
		httptransport.NewHealthHandler(repo, cfg.SecretConfigured(), appLogger),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP server listening", "addr", srv.Addr)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		appLogger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("graceful shutdown failed", "error", err)
	}
	appLogger.Info("inboxd stopped")
}
