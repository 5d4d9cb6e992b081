package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskmint/internal/bootstrap"
	"taskmint/internal/config"
	"taskmint/internal/engine"
	"taskmint/internal/pkg/httpclient"
	"taskmint/internal/pkg/mailer"
	"taskmint/internal/router"
	"taskmint/internal/routing"
	"taskmint/internal/runlock"
)

const runLockKey = "taskmint:scheduler:run"

func main() {
	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if hasArg("--bootstrap-db") {
		if err := runDBBootstrap(logger); err != nil {
			logger.Fatal("Database bootstrap failed", zap.Error(err))
		}
		logger.Info("Database bootstrap completed")
		return
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := bootstrap.MigrateAndSeed(db); err != nil {
		logger.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	// --- External collaborators ---
	var routeService routing.Service
	if cfg.Routing.BaseURL != "" {
		routeService = routing.New(httpclient.New().
			WithBaseURL(cfg.Routing.BaseURL).
			WithBearerToken(cfg.Routing.APIKey).
			WithTimeout(cfg.Routing.Timeout))
	}

	var mailSender mailer.Sender
	if cfg.Mail.GatewayURL != "" {
		mailSender = mailer.New(httpclient.New().
			WithBaseURL(cfg.Mail.GatewayURL).
			WithBearerToken(cfg.Mail.APIKey), cfg.Mail.From)
	}

	// --- Run lock (Redis with in-memory fallback) ---
	lock, lockErr := runlock.New(cfg.Redis.Addr, cfg.Redis.Pass, cfg.Redis.DB, runLockKey, cfg.Scheduler.LockTTL)
	if lockErr != nil {
		logger.Warn("Redis unavailable for run lock, using in-memory fallback", zap.Error(lockErr))
	}

	// --- Engine + periodic trigger ---
	eng := engine.New(db, cfg, engine.NewRepos(db), routeService, mailSender, logger)
	scheduler := engine.NewScheduler(eng, lock, cfg, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true
	router.Setup(e, db, eng, lock, logger, cfg.API.Key)

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting taskmint server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Stop cron; waits for a running batch to finish
	ctx := scheduler.Stop()
	<-ctx.Done()

	// Stop HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func hasArg(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == name {
			return true
		}
	}
	return false
}

func runDBBootstrap(logger *zap.Logger) error {
	dbCfg, err := config.LoadDatabaseOnly()
	if err != nil {
		return err
	}
	db, err := config.NewDatabase(dbCfg)
	if err != nil {
		return err
	}
	if err := bootstrap.MigrateAndSeed(db); err != nil {
		return err
	}
	logger.Info("Schema migration completed")
	return nil
}
