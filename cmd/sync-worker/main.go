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

	"github.com/adhocore/gronx"
)

func main() {
	log := bootstrap.Logger(false)

	conf, err := cfg.FromEnv()
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	gx := gronx.New()
	if !gx.IsValid(conf.SyncSchedule) {
		log.Error("invalid sync schedule", "schedule", conf.SyncSchedule)
		os.Exit(1)
	}

	// ── Adapters ─────────────────────────────────────────────────────────────
	repo, err := postgres.New(conf.DatabaseURL, nil)
	if err != nil {
		log.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	events, err := rabbitmq.NewEventPublisher(conf.AMQPURL, log)
	if err != nil {
		log.Error("connect rabbitmq events", "err", err)
		os.Exit(1)
	}
	defer events.Close()

	channels, err := bootstrap.Channels(conf, repo)
	if err != nil {
		log.Error("load channels", "err", err)
		os.Exit(1)
	}

	// ── Application service ──────────────────────────────────────────────────
	reconciler := app.NewReconciler(conf, bootstrap.Providers(conf), channels, log)
	job := app.NewSyncJob(reconciler, repo, events, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("sync-worker started", "schedule", conf.SyncSchedule, "lookback", conf.SyncLookback.String())

	for {
		next, err := gronx.NextTick(conf.SyncSchedule, false)
		if err != nil {
			log.Error("compute next sync", "err", err)
			os.Exit(1)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("shutting down sync-worker")
			return

		case <-timer.C:
			if _, err := job.Run(ctx, time.Now().Add(-conf.SyncLookback)); err != nil {
				log.Error("sync run", "err", err)
			}
		}
	}
}
