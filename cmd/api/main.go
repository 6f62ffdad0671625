package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rankontop/backend/internal/analysis"
	"github.com/rankontop/backend/internal/api"
	"github.com/rankontop/backend/internal/auth"
	"github.com/rankontop/backend/internal/bootstrap"
	"github.com/rankontop/backend/internal/metrics"
	"github.com/rankontop/backend/internal/middleware/ratelimit"
	"github.com/rankontop/backend/internal/storage/sqlite"
	"github.com/rankontop/backend/pkg/config"
	appLogger "github.com/rankontop/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting RankOnTop API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	pipeline, err := bootstrap.Build(cfg)
	if err != nil {
		appLogger.Fatal("Failed to build analysis pipeline", zap.Error(err))
	}
	defer pipeline.Close()

	service := analysis.NewService(pipeline.Sources, sqliteClient, sqliteClient, pipeline.Config)

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.Named("ratelimit"),
	})
	defer limiter.Stop()

	app := api.NewApp(api.Deps{
		Analyzer:       service,
		Store:          sqliteClient,
		Tokens:         auth.NewTokens(cfg.Auth.SecretKey, time.Duration(cfg.Auth.TokenExpireMinute)*time.Minute),
		RateLimiter:    limiter,
		Gate:           pipeline.Config.Gate,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:      cfg.Server.BodyLimit,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.Server.IsDevelopment,
		AccessLog:      true,
		EnableMetrics:  true,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
