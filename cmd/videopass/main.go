package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ManuelReschke/videopass/internal/pkg/config"
	"github.com/ManuelReschke/videopass/internal/pkg/database"
	"github.com/ManuelReschke/videopass/internal/pkg/env"
	"github.com/ManuelReschke/videopass/internal/pkg/logging"
	"github.com/ManuelReschke/videopass/internal/pkg/tracing"
)

func main() {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.App.IsDev() {
		cfg.Log.Dev = true
	}
	lg, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			lg.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	db, err := database.Open(cfg.Database, lg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if !cfg.Paddle.VerifySignatures() {
		lg.Warn("paddle webhook signature verification is DISABLED; any caller can mark orders paid")
	}
	if cfg.Paddle.APIKey == "" {
		lg.Warn("PADDLE_API_KEY is not set; checkout will answer provider_not_configured")
	}

	app := NewApplication(ctx, cfg, lg, db)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
		lg.Info("listening", zap.String("addr", addr), zap.String("paddle_env", cfg.Paddle.Environment))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}
