package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/bootstrap"
	"github.com/Doud-FR/Wiki/internal/config"
	"github.com/Doud-FR/Wiki/internal/db"
	"github.com/Doud-FR/Wiki/internal/http/router"
	"github.com/Doud-FR/Wiki/internal/logging"
	"github.com/Doud-FR/Wiki/internal/metrics"
	"github.com/Doud-FR/Wiki/internal/security"
)

func main() {
	configPath := flag.String("config", "config/app.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	database, err := db.Connect(ctx, cfg.DBDriver, cfg.DBDSN, db.Options{
		Retries:  cfg.ConnectRetries,
		Interval: cfg.ConnectInterval,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("database schema synchronized")

	if _, err := bootstrap.EnsureAdminExists(ctx, database, logger); err != nil {
		return err
	}

	sessionStore := security.NewSessionStore(cfg.Secret(), cfg.SessionMaxAge, cfg.Production())
	r := router.Setup(database, sessionStore, metrics.New(), logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
