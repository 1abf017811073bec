package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-sms-gateway/internal/adapters/db/postgres"
	"golang-sms-gateway/internal/adapters/queue/rabbitmq"
	"golang-sms-gateway/internal/app"
	"golang-sms-gateway/internal/bootstrap"
	cfg "golang-sms-gateway/internal/config"
)

func main() {
	log := bootstrap.Logger(false)

	conf, err := cfg.FromEnv()
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	// ── Adapters ─────────────────────────────────────────────────────────────
	// Publishing never touches incoming senders, so no cipher is needed.
	repo, err := postgres.New(conf.DatabaseURL, nil)
	if err != nil {
		log.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	publisher, err := rabbitmq.NewPublisher(conf.AMQPURL)
	if err != nil {
		log.Error("connect rabbitmq publisher", "err", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// ── Application service ──────────────────────────────────────────────────
	dispatcher := app.NewDispatcher(conf, bootstrap.Providers(conf), nil, log)
	svc := app.NewOutboxService(repo, publisher, dispatcher, nil, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(conf.OutboxInterval)
	defer ticker.Stop()

	log.Info("outbox-publisher started", "interval", conf.OutboxInterval.String(), "batch", conf.OutboxBatchSize)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down outbox-publisher")
			return

		case <-ticker.C:
			n, err := svc.PublishPendingMessages(ctx, conf.OutboxBatchSize)
			if err != nil {
				log.Error("publish pending messages", "err", err)
				continue
			}
			if n > 0 {
				log.Info("published pending messages", "count", n)
			}
		}
	}
}
