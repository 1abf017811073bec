package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang-sms-gateway/internal/config"
	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/ports"
)

// Overrides replace configured values for a single dispatch. Extra is
// copied into the returned metadata.
type Overrides struct {
	ClientID    string
	AuthToken   string
	PhoneNumber string
	Destination string
	Extra       map[string]any
}

// ContentRenderer produces the text body of an outgoing message.
type ContentRenderer interface {
	Render(msg domain.OutgoingMessage, metadata map[string]any) string
}

// ContentRendererFunc adapts a function to ContentRenderer.
type ContentRendererFunc func(msg domain.OutgoingMessage, metadata map[string]any) string

func (f ContentRendererFunc) Render(msg domain.OutgoingMessage, metadata map[string]any) string {
	return f(msg, metadata)
}

// BodyRenderer sends the stored body unchanged.
var BodyRenderer = ContentRendererFunc(func(msg domain.OutgoingMessage, _ map[string]any) string {
	return msg.Message
})

// Dispatcher turns one outgoing message into provider sends.
type Dispatcher struct {
	cfg       config.Config
	providers ports.ProviderFactory
	renderer  ContentRenderer
	log       *slog.Logger
}

// NewDispatcher wires the dispatcher. A nil renderer sends the body as is.
func NewDispatcher(cfg config.Config, providers ports.ProviderFactory, renderer ContentRenderer, log *slog.Logger) *Dispatcher {
	if renderer == nil {
		renderer = BodyRenderer
	}
	return &Dispatcher{cfg: cfg, providers: providers, renderer: renderer, log: log}
}

// MediaEnabled reports whether outbound media attachments are allowed.
func (d *Dispatcher) MediaEnabled() bool {
	return d.cfg.MediaEnabled
}

// Dispatch sends msg and returns the transmission metadata to record, with
// provider SIDs under domain.MetadataProviderSID in send order.
//
// A nil map with a nil error means no credentials resolved and nothing was
// sent. On a provider failure the returned map holds the SIDs of the sends
// that already went out, alongside the error.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.OutgoingMessage, ov Overrides) (map[string]any, error) {
	clientID := firstNonEmpty(ov.ClientID, d.cfg.Twilio.ClientID)
	authToken := firstNonEmpty(ov.AuthToken, d.cfg.Twilio.AuthToken)
	from := firstNonEmpty(ov.PhoneNumber, d.cfg.Twilio.PhoneNumber)
	if clientID == "" || authToken == "" || from == "" {
		d.log.Debug("dispatch skipped, provider not configured", "msg_id", msg.ID)
		return nil, nil
	}

	provider := d.providers.ForCredentials(ports.Credentials{ClientID: clientID, AuthToken: authToken})

	to := ov.Destination
	if to == "" {
		to = msg.CurrentDestination()
	}

	metadata := make(map[string]any, len(ov.Extra)+1)
	for k, v := range ov.Extra {
		metadata[k] = v
	}
	if ov.Destination != "" {
		metadata["destination"] = ov.Destination
	}

	var sids []string
	send := func(req ports.SendRequest) error {
		req.From = from
		req.To = to
		sid, err := provider.Send(ctx, req)
		if err != nil {
			return err
		}
		sids = append(sids, sid)
		return nil
	}

	err := d.sendAll(ctx, msg, send)
	recordSIDs(metadata, sids)

	if err != nil {
		return metadata, fmt.Errorf("dispatch %s after %d sends: %w", msg.ID, len(sids), err)
	}
	if len(sids) == 0 {
		d.log.Warn("dispatch produced no sends", "msg_id", msg.ID)
	}
	d.log.Info("message dispatched", "msg_id", msg.ID, "sends", len(sids))
	return metadata, nil
}

func (d *Dispatcher) sendAll(ctx context.Context, msg domain.OutgoingMessage, send func(ports.SendRequest) error) error {
	if msg.IsImageShorthand() {
		return send(ports.SendRequest{MediaURLs: []string{strings.TrimPrefix(msg.Message, domain.ImagePrefix)}})
	}

	for _, media := range msg.OrderedMedia() {
		if err := ctx.Err(); err != nil {
			return &domain.ProviderError{Op: "send", Err: err}
		}
		if err := send(ports.SendRequest{MediaURLs: []string{d.publicMediaURL(media.URL)}}); err != nil {
			return err
		}
	}

	content := d.renderer.Render(msg, msg.ParsedMetadata())
	if strings.TrimSpace(content) == "" {
		return nil
	}
	for _, bundle := range SplitIntoBundles(content, BundleSize) {
		if err := send(ports.SendRequest{Body: bundle}); err != nil {
			return err
		}
	}
	return nil
}

// publicMediaURL prefixes site-relative attachment paths with SITE_URL.
func (d *Dispatcher) publicMediaURL(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || d.cfg.SiteURL == "" {
		return u
	}
	return strings.TrimRight(d.cfg.SiteURL, "/") + "/" + strings.TrimLeft(u, "/")
}

func recordSIDs(metadata map[string]any, sids []string) {
	switch len(sids) {
	case 0:
	case 1:
		metadata[domain.MetadataProviderSID] = sids[0]
	default:
		metadata[domain.MetadataProviderSID] = sids
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
