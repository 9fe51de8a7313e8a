package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orlevy/shortly-bot/internal/config"
	"github.com/orlevy/shortly-bot/internal/events"
	"github.com/orlevy/shortly-bot/internal/infrastructure/db"
	"github.com/orlevy/shortly-bot/internal/infrastructure/logger"
	"github.com/orlevy/shortly-bot/internal/infrastructure/telemetry"
	"github.com/orlevy/shortly-bot/internal/qr"
	"github.com/orlevy/shortly-bot/internal/ratelimit"
	"github.com/orlevy/shortly-bot/internal/shortener"
	mongoStorage "github.com/orlevy/shortly-bot/internal/storage/mongo"
	httpTransport "github.com/orlevy/shortly-bot/internal/transport/http"
	"github.com/orlevy/shortly-bot/internal/transport/telegram"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)

	var shutdownTracer func(context.Context) error
	if cfg.OTel.Enabled {
		var err error
		shutdownTracer, err = telemetry.InitTracer(cfg.OTel.Endpoint, cfg.App.Name, cfg.App.Version)
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
		}
	}

	mongoConn, err := db.ConnectMongo(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = mongoConn.Disconnect() }()

	linkRepo, err := mongoStorage.NewLinksRepository(mongoConn)
	if err != nil {
		logger.Fatal("Failed to initialize links repository", zap.Error(err))
	}
	userRepo, err := mongoStorage.NewUsersRepository(mongoConn)
	if err != nil {
		logger.Fatal("Failed to initialize users repository", zap.Error(err))
	}

	svc := shortener.NewService(
		linkRepo,
		userRepo,
		shortener.NewRandomCodeGenerator(),
		shortener.SafetyPolicy{
			MaxURLLength:   cfg.Shortener.MaxURLLength,
			BlockedDomains: cfg.Shortener.BlockedDomains,
		},
		cfg.Shortener.CodeLength,
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.NewLimiter(cfg.RateLimit.MaxURLsPerHour)
	go limiter.Run(rootCtx, 10*time.Minute)

	var activity *mongoStorage.ActivityRepository
	if cfg.Monitor.ServiceID != "" {
		activity = mongoStorage.NewActivityRepository(mongoConn, cfg.Monitor.Database, cfg.Monitor.ServiceID)
		go activity.Run(rootCtx, time.Minute)
	}

	publisher := events.NewClickPublisher(cfg.Kafka.Brokers, cfg.Kafka.ClicksTopic, 5*time.Second)
	defer func() { _ = publisher.Close() }()

	qrGen := qr.NewGenerator(cfg.QR.BoxSize, cfg.QR.Border)

	var reporter telegram.ActivityReporter
	if activity != nil {
		reporter = activity
	}
	bot := telegram.NewBot(cfg, svc, limiter, qrGen, reporter)
	go bot.Start(rootCtx)

	linksHandler := httpTransport.NewLinksHandler(cfg, svc, qrGen, publisher)
	webhookHandler := httpTransport.NewWebhookHandler(bot, cfg.Bot.WebhookSecret)
	router := httpTransport.NewRouter(cfg, linksHandler, webhookHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-rootCtx.Done()

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if shutdownTracer != nil {
			_ = shutdownTracer(shutdownCtx)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.App.Env),
		zap.String("address", fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
