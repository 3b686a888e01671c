package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/inkwell-games/scribble-server/internal/config"
	"github.com/inkwell-games/scribble-server/internal/game"
	"github.com/inkwell-games/scribble-server/internal/logger"
	"github.com/inkwell-games/scribble-server/internal/moderation"
	"github.com/inkwell-games/scribble-server/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	defer func() { _ = zap.L().Sync() }()

	registry := game.NewRegistry(game.DefaultTiming())
	srv := server.New(cfg, registry, moderation.Default())

	go func() {
		if err := srv.ServeTCP(); err != nil {
			zap.S().Fatalf("tcp server: %v", err)
		}
	}()
	go func() {
		if err := srv.ServeHTTP(); err != nil {
			zap.S().Fatalf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zap.S().Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
