package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"minicrm-service/internal/app"
	"minicrm-service/internal/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[MAIN] No .env file found, relying on system env vars")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := app.NewServer(config.Load(), logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
