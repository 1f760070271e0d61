// Package main is the entry point for chatbridge, the webhook gateway
// between chat client platforms and the bot backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zlc_ai/chatbridge/internal/botlink"
	"github.com/zlc_ai/chatbridge/internal/channel"
	"github.com/zlc_ai/chatbridge/internal/channel/hangouts"
	"github.com/zlc_ai/chatbridge/internal/channel/local"
	"github.com/zlc_ai/chatbridge/internal/config"
	"github.com/zlc_ai/chatbridge/internal/router"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("chatbridge v%s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting chatbridge",
		zap.String("version", version),
		zap.String("config", *configPath))

	registry := channel.NewRegistry()

	var localAdapter *local.Adapter
	if cfg.Channels.Local.Enabled {
		localAdapter = local.NewAdapter(logger)
		if err := registry.Register(localAdapter); err != nil {
			logger.Fatal("Failed to register local channel", zap.Error(err))
		}
	}

	if cfg.Channels.Hangouts.Enabled {
		hangoutsAdapter, err := hangouts.NewAdapter(cfg.Channels.Hangouts, logger)
		if err != nil {
			logger.Fatal("Failed to create hangouts channel", zap.Error(err))
		}
		if err := registry.Register(hangoutsAdapter); err != nil {
			logger.Fatal("Failed to register hangouts channel", zap.Error(err))
		}
	}

	logger.Info("Channels registered", zap.Int("count", registry.Len()))

	bot := botlink.NewClient(cfg.Bot, logger)
	rt := router.New(registry, bot, cfg.Server.RequestTimeout, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}
	if cfg.Server.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"` + version + `"}`))
	})

	if localAdapter != nil {
		r.Get("/local/subscribe", localAdapter.SubscribeHandler())
	}

	r.Mount("/", rt.Routes())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	logger.Info("Stopped")
}

// initLogger creates a zap logger at the configured level, falling back to
// info on an unknown level name.
func initLogger(level string) *zap.Logger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := logCfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
