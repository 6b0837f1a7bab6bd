package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"loyalty-service/internal/config"
	"loyalty-service/internal/server"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("Loyalty: No .env file found, relying on system env vars")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("loyalty service starting",
		zap.String("env", cfg.Env),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("grpc_addr", cfg.GRPCAddr),
	)

	if err := server.NewLoyaltyServer(ctx, cfg, logger); err != nil {
		logger.Error("loyalty service stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("loyalty service stopped")
}

func newLogger(cfg config.AppConfig) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
