package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/cors"

	"roomstatus-backend/config"
	"roomstatus-backend/internal/api"
	"roomstatus-backend/internal/auth"
	"roomstatus-backend/internal/db"
	"roomstatus-backend/internal/notify"
	"roomstatus-backend/internal/rooms"
	"roomstatus-backend/internal/store"
	"roomstatus-backend/internal/ws"
)

func newLogger(env string) *slog.Logger {
	if env == "prod" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", configPath, "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Server.Env)
	logger.Info("configuration loaded", "path", configPath)

	if cfg.Auth.JWTSecret == "" {
		logger.Error("auth.jwt_secret must be configured")
		os.Exit(1)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Error("failed to initialize database", "err", err)
		os.Exit(1)
	}
	appStore := store.NewGormStore(gormDB)
	logger.Info("data store initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jwt := auth.New(cfg.Auth.JWTSecret)
	hub := ws.NewHub(logger, jwt.Verify)

	var notifier rooms.Notifier = notify.Nop{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout, logger)
		logger.Info("webhook notifier enabled")
	}

	var workerPool *notify.WorkerPool
	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool = notify.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, logger)
		workerPool.Start(ctx)
		logger.Info("push worker pool started", "size", cfg.WorkerPool.Size)
	}
	var dispatcher rooms.PushDispatcher
	if workerPool != nil {
		dispatcher = workerPool
	}
	svc := rooms.NewService(appStore, hub, notifier, dispatcher, logger)

	router := api.NewRouter(&cfg.Server, svc, appStore, hub, jwt, webpushOptions)

	corsWrapper := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSAllow,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           corsWrapper.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "err", err)
		os.Exit(1)
	}

	logger.Info("server gracefully stopped")
}
