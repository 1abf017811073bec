package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-sms-gateway/internal/adapters/db/postgres"
	"golang-sms-gateway/internal/adapters/media"
	"golang-sms-gateway/internal/adapters/queue/rabbitmq"
	"golang-sms-gateway/internal/app"
	"golang-sms-gateway/internal/bootstrap"
	cfg "golang-sms-gateway/internal/config"
	"golang-sms-gateway/internal/middleware"
	"golang-sms-gateway/internal/ports"
	"golang-sms-gateway/internal/transport"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	log := bootstrap.Logger(true)
	if err := run(log); err != nil {
		log.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	conf, err := cfg.FromEnv()
	if err != nil {
		return err
	}

	cipher, err := bootstrap.SenderCipher(conf)
	if err != nil {
		return err
	}

	repo, err := postgres.New(conf.DatabaseURL, cipher)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer repo.Close()

	channels, err := bootstrap.Channels(conf, repo)
	if err != nil {
		return err
	}

	files, err := media.NewLocalStore(conf.MediaDir)
	if err != nil {
		return err
	}

	hooks := app.NewHookRegistry()
	var events ports.EventPublisher
	if pub, err := rabbitmq.NewEventPublisher(conf.AMQPURL, log); err != nil {
		log.Warn("event publishing disabled", "err", err)
	} else {
		defer pub.Close()
		hooks.Register(pub)
		events = pub
	}

	providers := bootstrap.Providers(conf)
	dispatcher := app.NewDispatcher(conf, providers, nil, log)
	reconciler := app.NewReconciler(conf, providers, channels, log)

	handler := transport.NewHandler(transport.Services{
		Inbound:             app.NewInboundProcessor(repo, media.NewHTTPFetcher(), files, hooks, log),
		Outbox:              app.NewOutboxService(repo, nil, dispatcher, channels, log),
		Lookup:              app.NewLookup(conf, providers, channels, log),
		Dashboard:           app.NewDashboard(conf, providers, log),
		Sync:                app.NewSyncJob(reconciler, repo, events, log),
		Repo:                repo,
		SyncLookback:        conf.SyncLookback,
		DashboardWindowDays: conf.DashboardWindowDays,
	}, log)

	fiberApp := fiber.New(fiber.Config{
		AppName:               "gateway-api",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          app.MediaFetchTimeout + 10*time.Second,
		IdleTimeout:           120 * time.Second,
		ServerHeader:          "",
		BodyLimit:             1 * 1024 * 1024, // 1MB
	})

	fiberApp.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	fiberApp.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${method} ${path} ${latency}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	fiberApp.Use(middleware.RequestIDMiddleware())
	fiberApp.Use(middleware.SecurityHeaders())
	fiberApp.Use(middleware.DDoSProtection(600, 1*time.Minute))

	fiberApp.Get("/health", transport.Health)

	var webhookMW []fiber.Handler
	if conf.WebhookVerifySignature {
		webhookMW = append(webhookMW, middleware.TwilioSignature(conf.Twilio.AuthToken, conf.WebhookPublicURL))
	}
	handler.RegisterWebhook(fiberApp, webhookMW...)

	// 100 requests per minute per IP on the JSON API.
	rateLimiter := middleware.NewRateLimiter(100, 1*time.Minute, middleware.ByIP)
	defer rateLimiter.Stop()
	handler.RegisterAPI(fiberApp, middleware.CORSConfig(conf.AllowedOrigins), rateLimiter.Middleware())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Info("gateway-api started", "addr", conf.HTTPAddr)
		if err := fiberApp.Listen(conf.HTTPAddr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		return errors.New("failed to shutdown gracefully: " + err.Error())
	}

	log.Info("gateway-api stopped gracefully")
	return nil
}
