package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stockroom/internal/activity"
	"stockroom/internal/config"
	"stockroom/internal/identity"
	"stockroom/internal/infrastructure/logger"
	"stockroom/internal/infrastructure/migration"
	"stockroom/internal/infrastructure/mysql"
	"stockroom/internal/inventory"
	"stockroom/internal/sales"
	"stockroom/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	if err := migration.Up(db, cfg.Database.Name); err != nil {
		zapLogger.Fatal("running migrations", zap.Error(err))
	}

	inventoryCtrl := inventory.NewModule(db, cfg, zapLogger)
	activityCtrl := activity.NewModule(db, cfg, zapLogger)
	salesCtrl := sales.NewModule(db, cfg, zapLogger)
	auth := identity.NewMiddleware(cfg.Auth.JWTSecret, zapLogger)

	router := server.NewRouter(inventoryCtrl, activityCtrl, salesCtrl, auth, zapLogger)

	srv := server.New(cfg.Server, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
