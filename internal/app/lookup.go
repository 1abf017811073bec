package app

import (
	"context"
	"log/slog"

	"golang-sms-gateway/internal/config"
	"golang-sms-gateway/internal/phone"
	"golang-sms-gateway/internal/ports"
)

// Lookup result markers.
const (
	UnparseableType = "Unparseable or invalid phone number"
	UnknownCarrier  = "Unknown"
	LookupFailed    = "Lookup failed"
)

// LookupResult describes one looked-up number. Errors are reported in band.
type LookupResult struct {
	Number  string `json:"number"`
	Type    string `json:"type"`
	Carrier string `json:"carrier"`
	Notes   string `json:"notes,omitempty"`
}

// Lookup resolves line type information for batches of numbers.
type Lookup struct {
	cfg       config.Config
	providers ports.ProviderFactory
	channels  ports.ChannelSource
	log       *slog.Logger
}

// NewLookup wires the lookup service. channels may be nil.
func NewLookup(cfg config.Config, providers ports.ProviderFactory, channels ports.ChannelSource, log *slog.Logger) *Lookup {
	return &Lookup{cfg: cfg, providers: providers, channels: channels, log: log}
}

// LookupNumbers returns one result per input number, in input order. It
// returns nil when no credentials are configured.
func (l *Lookup) LookupNumbers(ctx context.Context, numbers []string) []LookupResult {
	creds, ok := l.credentials(ctx)
	if !ok {
		l.log.Debug("lookup skipped, provider not configured")
		return nil
	}
	provider := l.providers.ForCredentials(creds)

	results := make([]LookupResult, 0, len(numbers))
	for _, raw := range numbers {
		results = append(results, l.lookupOne(ctx, provider, raw))
	}
	return results
}

func (l *Lookup) lookupOne(ctx context.Context, provider ports.Provider, raw string) LookupResult {
	e164, err := phone.Normalize(raw, l.cfg.CountryCode)
	if err != nil {
		return unparseable(raw)
	}

	info, err := provider.LookupNumber(ctx, e164)
	if err != nil {
		l.log.Warn("number lookup failed", "number", e164, "err", err)
		return LookupResult{Number: raw, Type: LookupFailed, Carrier: UnknownCarrier, Notes: err.Error()}
	}
	if info == nil {
		return unparseable(raw)
	}

	res := LookupResult{
		Number:  info.PhoneNumber,
		Type:    orUnknown(info.Type),
		Carrier: orUnknown(info.CarrierName),
	}
	if res.Number == "" {
		res.Number = e164
	}
	if !info.Valid {
		res.Notes = "Number reported as invalid. Please verify that it was entered correctly."
	}
	return res
}

// credentials prefers the first registry channel carrying both a client id
// and an auth token, then the static configuration.
func (l *Lookup) credentials(ctx context.Context) (ports.Credentials, bool) {
	var creds ports.Credentials
	if l.channels != nil {
		registered, err := l.channels.Channels(ctx)
		if err != nil {
			l.log.Warn("channel registry unavailable", "err", err)
		}
		for _, ch := range registered {
			if ch.ClientID != "" && ch.AuthToken != "" {
				creds = ports.Credentials{ClientID: ch.ClientID, AuthToken: ch.AuthToken}
				break
			}
		}
	}
	if creds.ClientID == "" {
		creds.ClientID = l.cfg.Twilio.ClientID
	}
	if creds.AuthToken == "" {
		creds.AuthToken = l.cfg.Twilio.AuthToken
	}
	return creds, creds.ClientID != "" && creds.AuthToken != ""
}

func unparseable(raw string) LookupResult {
	return LookupResult{
		Number:  raw,
		Type:    UnparseableType,
		Carrier: UnknownCarrier,
		Notes:   `Unable to parse phone number "` + raw + `". Please verify that it was entered correctly.`,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownCarrier
	}
	return s
}
