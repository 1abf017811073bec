package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang-sms-gateway/internal/config"
	"golang-sms-gateway/internal/ports"
)

// SignalRefreshInterval is how often dashboards should refresh the status signal.
const SignalRefreshInterval = 1800 * time.Second

// DaySummary holds message counts for one calendar day.
type DaySummary struct {
	Date               string `json:"date"`
	IncomingCount      int    `json:"incoming_count"`
	IncomingErrorCount int    `json:"incoming_error_count"`
	OutgoingCount      int    `json:"outgoing_count"`
	OutgoingErrorCount int    `json:"outgoing_error_count"`
}

// Summary is the status signal value for one channel.
type Summary struct {
	Dates        []DaySummary   `json:"dates"`
	Balance      *ports.Balance `json:"balance,omitempty"`
	DisplayValue string         `json:"display_value"`
}

// Signal describes one dashboard signal this gateway can report.
type Signal struct {
	Name            string `json:"name"`
	RefreshInterval int    `json:"refresh_interval"`
	WidgetColumns   int    `json:"widget_columns"`
	Active          bool   `json:"active"`
}

// DashboardOverrides replace configured credentials for one summary.
type DashboardOverrides struct {
	ClientID      string
	AuthToken     string
	PhoneNumber   string
	RootClientID  string
	RootAuthToken string
}

// Dashboard reports per-day traffic and account balance.
type Dashboard struct {
	cfg       config.Config
	providers ports.ProviderFactory
	log       *slog.Logger
	now       func() time.Time
}

// NewDashboard wires the reporter.
func NewDashboard(cfg config.Config, providers ports.ProviderFactory, log *slog.Logger) *Dashboard {
	return &Dashboard{cfg: cfg, providers: providers, log: log, now: time.Now}
}

// Signals lists the status signal of the static channel, if configured.
func (d *Dashboard) Signals() []Signal {
	if !d.cfg.HasStaticCredentials() {
		return []Signal{}
	}
	return []Signal{{
		Name:            "Twilio: " + d.cfg.Twilio.PhoneNumber,
		RefreshInterval: int(SignalRefreshInterval / time.Second),
		WidgetColumns:   6,
		Active:          true,
	}}
}

// Summarize counts messages for every day in [today-windowDays, today] in the
// configured time zone. Provider failures while listing yield nil. A failed
// balance fetch only drops the balance from the display value.
//
// DisplayValue is built from the last day's counts, not the window total.
func (d *Dashboard) Summarize(ctx context.Context, windowDays int, ov DashboardOverrides) *Summary {
	clientID := firstNonEmpty(ov.ClientID, d.cfg.Twilio.ClientID)
	authToken := firstNonEmpty(ov.AuthToken, d.cfg.Twilio.AuthToken)
	number := firstNonEmpty(ov.PhoneNumber, d.cfg.Twilio.PhoneNumber)
	if clientID == "" || authToken == "" || number == "" {
		d.log.Debug("dashboard summary skipped, provider not configured")
		return nil
	}
	provider := d.providers.ForCredentials(ports.Credentials{ClientID: clientID, AuthToken: authToken})

	loc := d.cfg.Location()
	now := d.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	start := today.AddDate(0, 0, -windowDays)

	summary := &Summary{Dates: make([]DaySummary, 0, windowDays+1)}
	var last DaySummary
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		ds, err := d.countDay(ctx, provider, number, day)
		if err != nil {
			d.log.Error("dashboard listing failed", "date", day.Format(time.DateOnly), "err", err)
			return nil
		}
		summary.Dates = append(summary.Dates, ds)
		last = ds
	}

	rootID := firstNonEmpty(ov.RootClientID, d.cfg.Twilio.MainClientID, clientID)
	rootToken := firstNonEmpty(ov.RootAuthToken, d.cfg.Twilio.MainAuthToken, authToken)
	root := d.providers.ForCredentials(ports.Credentials{ClientID: rootID, AuthToken: rootToken})

	balance, err := root.FetchBalance(ctx, rootID)
	if err != nil {
		d.log.Warn("balance fetch failed", "err", err)
		summary.DisplayValue = fmt.Sprintf("%d incoming msgs., %d outgoing msgs.", last.IncomingCount, last.OutgoingCount)
		return summary
	}
	summary.Balance = &balance
	summary.DisplayValue = fmt.Sprintf("%d incoming msgs., %d outgoing msgs., %s %s remaining",
		last.IncomingCount, last.OutgoingCount, balance.Amount, balance.Currency)
	return summary
}

func (d *Dashboard) countDay(ctx context.Context, provider ports.Provider, number string, day time.Time) (DaySummary, error) {
	ds := DaySummary{Date: day.Format(time.DateOnly)}

	incoming, err := provider.ListMessages(ctx, ports.MessageFilter{To: number, SentOn: day})
	if err != nil {
		return ds, fmt.Errorf("list incoming: %w", err)
	}
	for _, m := range incoming {
		if m.ErrorCode == nil {
			ds.IncomingCount++
		} else {
			ds.IncomingErrorCount++
		}
	}

	outgoing, err := provider.ListMessages(ctx, ports.MessageFilter{From: number, SentOn: day})
	if err != nil {
		return ds, fmt.Errorf("list outgoing: %w", err)
	}
	for _, m := range outgoing {
		if m.ErrorCode == nil {
			ds.OutgoingCount++
		} else {
			ds.OutgoingErrorCount++
		}
	}
	return ds, nil
}
