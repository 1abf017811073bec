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

	files, err := media.NewLocalStore(conf.MediaDir)
	if err != nil {
		return err
	}

	hooks := app.NewHookRegistry()
	events, err := rabbitmq.NewEventPublisher(conf.AMQPURL, log)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	defer events.Close()
	hooks.Register(events)

	handler := transport.NewHandler(transport.Services{
		Inbound: app.NewInboundProcessor(repo, media.NewHTTPFetcher(), files, hooks, log),
	}, log)

	fiberApp := fiber.New(fiber.Config{
		AppName:               "inbound-webhook",
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Second,
		// Media fetches run inside the request.
		WriteTimeout: app.MediaFetchTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
		ServerHeader: "",
		BodyLimit:    512 * 1024, // 512KB - webhooks are small
	})

	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())
	fiberApp.Use(middleware.RequestIDMiddleware())
	fiberApp.Use(middleware.SecurityHeaders())

	// 30 callbacks per minute per sender.
	rateLimiter := middleware.NewRateLimiter(30, 1*time.Minute, middleware.BySender)
	defer rateLimiter.Stop()
	fiberApp.Use(rateLimiter.Middleware())

	fiberApp.Get("/health", transport.Health)

	var webhookMW []fiber.Handler
	if conf.WebhookVerifySignature {
		webhookMW = append(webhookMW, middleware.TwilioSignature(conf.Twilio.AuthToken, conf.WebhookPublicURL))
	}
	handler.RegisterWebhook(fiberApp, webhookMW...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Info("inbound-webhook started", "addr", conf.WebhookAddr)
		if err := fiberApp.Listen(conf.WebhookAddr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		return errors.New("failed to shutdown gracefully: " + err.Error())
	}

	log.Info("inbound-webhook stopped gracefully")
	return nil
}
