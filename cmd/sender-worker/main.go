package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang-sms-gateway/internal/adapters/db/postgres"
	"golang-sms-gateway/internal/adapters/queue/rabbitmq"
	"golang-sms-gateway/internal/app"
	"golang-sms-gateway/internal/bootstrap"
	cfg "golang-sms-gateway/internal/config"

	"github.com/google/uuid"
)

func main() {
	log := bootstrap.Logger(false)

	conf, err := cfg.FromEnv()
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	// ── Adapters ─────────────────────────────────────────────────────────────
	repo, err := postgres.New(conf.DatabaseURL, nil)
	if err != nil {
		log.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	consumer, err := rabbitmq.NewConsumer(conf.AMQPURL, log)
	if err != nil {
		log.Error("connect rabbitmq consumer", "err", err)
		os.Exit(1)
	}
	defer consumer.Close()

	channels, err := bootstrap.Channels(conf, repo)
	if err != nil {
		log.Error("load channels", "err", err)
		os.Exit(1)
	}

	// ── Application service ──────────────────────────────────────────────────
	dispatcher := app.NewDispatcher(conf, bootstrap.Providers(conf), nil, log)
	svc := app.NewOutboxService(repo, nil, dispatcher, channels, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("sender-worker started", "media_enabled", dispatcher.MediaEnabled())

	if err := consumer.Consume(ctx, func(ctx context.Context, id uuid.UUID) error {
		return svc.SendMessage(ctx, id)
	}); err != nil && ctx.Err() == nil {
		log.Error("consumer error", "err", err)
		os.Exit(1)
	}

	log.Info("shutting down sender-worker")
}
