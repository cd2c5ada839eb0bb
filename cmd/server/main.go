// Package main is the entry point for the stock matching server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/stockmatch/internal/auth"
	"github.com/vyrodovalexey/stockmatch/internal/config"
	"github.com/vyrodovalexey/stockmatch/internal/engine"
	"github.com/vyrodovalexey/stockmatch/internal/server"
	"github.com/vyrodovalexey/stockmatch/internal/session"
	"github.com/vyrodovalexey/stockmatch/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("auth_mode", cfg.AuthMode),
		zap.String("search_tolerance", cfg.Tolerance.String()),
		zap.Int("search_max_items", cfg.MaxItems),
		zap.String("search_admissibility", cfg.Admissibility),
		zap.Bool("search_greedy_first", cfg.GreedyFirst),
	)

	authenticator, err := auth.New(cfg.AuthMode, cfg.BasicAuthUsers, cfg.APIKeys)
	if err != nil {
		logger.Error("failed to create authenticator", zap.Error(err))
		return 1
	}
	if authenticator == nil {
		logger.Info("authentication disabled")
	} else {
		logger.Info("authentication enabled", zap.String("method", string(authenticator.Method())))
	}

	searchCfg, err := searchConfig(cfg)
	if err != nil {
		logger.Error("invalid search configuration", zap.Error(err))
		return 1
	}
	sup := session.NewSupervisor(searchCfg, logger.Named("session"))

	srv := server.New(cfg, logger, store.NewMemoryStore(), store.NewMemoryBlacklist(), sup, authenticator)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// searchConfig translates the loaded settings into supervisor settings.
func searchConfig(cfg *config.Config) (session.Config, error) {
	admissibility, err := engine.ParseAdmissibility(cfg.Admissibility)
	if err != nil {
		return session.Config{}, fmt.Errorf("search admissibility: %w", err)
	}

	return session.Config{
		Tolerance:        cfg.Tolerance,
		MaxItems:         cfg.MaxItems,
		LongRunningAfter: cfg.LongRunningAfter,
		Admissibility:    admissibility,
		GreedyFirst:      cfg.GreedyFirst,
		MaxCells:         cfg.MaxTableCells,
	}, nil
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}
