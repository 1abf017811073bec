package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang-sms-gateway/internal/ports"
)

// SyncResult summarizes one sync run.
type SyncResult struct {
	Events int                `json:"events"`
	New    int                `json:"new"`
	Failed []ChannelSyncError `json:"failed,omitempty"`
}

// SyncJob reconciles provider history and merges it downstream. Store and
// events are both optional.
type SyncJob struct {
	reconciler *Reconciler
	store      ports.MessageRepository
	events     ports.EventPublisher
	log        *slog.Logger
}

// NewSyncJob wires a sync job.
func NewSyncJob(reconciler *Reconciler, store ports.MessageRepository, events ports.EventPublisher, log *slog.Logger) *SyncJob {
	return &SyncJob{reconciler: reconciler, store: store, events: events, log: log}
}

// Run reconciles everything sent after since. Overlapping runs are safe:
// the store upsert is keyed by provider SID.
func (j *SyncJob) Run(ctx context.Context, since time.Time) (SyncResult, error) {
	rec, err := j.reconciler.Reconcile(ctx, since)
	if err != nil {
		return SyncResult{}, fmt.Errorf("reconcile: %w", err)
	}
	events := rec.Events
	res := SyncResult{Events: len(events), Failed: rec.Failed}

	if j.store != nil && len(events) > 0 {
		added, err := j.store.UpsertSyncEvents(ctx, events)
		if err != nil {
			return res, fmt.Errorf("upsert sync events: %w", err)
		}
		res.New = added
	}

	if j.events != nil && len(events) > 0 {
		if err := j.events.PublishSyncEvents(ctx, events); err != nil {
			return res, fmt.Errorf("publish sync events: %w", err)
		}
	}

	j.log.Info("sync run complete", "since", since, "events", res.Events, "new", res.New, "failed_channels", len(res.Failed))
	return res, nil
}
