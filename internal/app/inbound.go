package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/ports"

	"github.com/google/uuid"
)

// MediaFetchTimeout bounds each inbound media retrieval.
const MediaFetchTimeout = 120 * time.Second

// ReplyContentType is the content type of webhook replies.
const ReplyContentType = "text/xml"

// Callback field names sent by the provider.
const (
	FieldMessageSID = "MessageSid"
	FieldFrom       = "From"
	FieldTo         = "To"
	FieldBody       = "Body"
	FieldNumMedia   = "NumMedia"
	fieldMediaURL   = "MediaUrl"
	fieldMediaType  = "MediaContentType"
)

// Reply is the webhook response body.
type Reply struct {
	Lines []string
}

// XML renders the reply envelope. Lines pass through unescaped.
func (r Reply) XML() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" ?><Response>`)
	for _, line := range r.Lines {
		b.WriteString("<Message>")
		b.WriteString(line)
		b.WriteString("</Message>")
	}
	b.WriteString("</Response>")
	return b.String()
}

// InboundProcessor ingests provider delivery callbacks.
type InboundProcessor struct {
	repo    ports.MessageRepository
	fetcher ports.MediaFetcher
	files   ports.FileStore
	hooks   *HookRegistry
	log     *slog.Logger
}

// NewInboundProcessor wires the processor. hooks may be nil.
func NewInboundProcessor(
	repo ports.MessageRepository,
	fetcher ports.MediaFetcher,
	files ports.FileStore,
	hooks *HookRegistry,
	log *slog.Logger,
) *InboundProcessor {
	if hooks == nil {
		hooks = NewHookRegistry()
	}
	return &InboundProcessor{repo: repo, fetcher: fetcher, files: files, hooks: hooks, log: log}
}

// Ingest handles one callback. Reply lines are gathered before the blocked
// sender check, so a blocked sender still gets them back even though nothing
// is stored.
func (p *InboundProcessor) Ingest(ctx context.Context, payload ports.Payload) (Reply, error) {
	sid, ok := payload[FieldMessageSID]
	if !ok || sid == "" {
		return Reply{}, nil
	}

	reply := Reply{Lines: p.hooks.ReplyLines(ctx, payload)}

	sender := payload[FieldFrom]
	blocked, err := p.repo.IsSenderBlocked(ctx, sender)
	if err != nil {
		return reply, fmt.Errorf("check blocked sender: %w", err)
	}
	if blocked {
		p.log.Info("callback from blocked sender dropped", "message_sid", sid)
		return reply, nil
	}

	if !p.hooks.ShouldRecord(ctx, payload) {
		p.log.Debug("callback not recorded", "message_sid", sid)
		return reply, nil
	}

	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return reply, fmt.Errorf("marshal payload: %w", err)
	}

	incoming := domain.NewIncomingMessage(sender, payload[FieldTo], strings.TrimSpace(payload[FieldBody]), string(raw))
	if err := p.repo.CreateIncomingMessage(ctx, incoming); err != nil {
		return reply, fmt.Errorf("save incoming message: %w", err)
	}
	sealed, err := p.repo.EncryptSender(ctx, incoming.ID)
	if err != nil {
		return reply, fmt.Errorf("encrypt sender: %w", err)
	}
	// Hooks only ever see the sealed sender.
	incoming.Sender = sealed

	if err := p.ingestMedia(ctx, incoming.ID, payload); err != nil {
		return reply, err
	}

	p.hooks.OnIncoming(ctx, incoming)

	p.log.Info("incoming message stored", "msg_id", incoming.ID, "message_sid", sid)
	return reply, nil
}

func (p *InboundProcessor) ingestMedia(ctx context.Context, messageID uuid.UUID, payload ports.Payload) error {
	numMedia := 0
	if raw, ok := payload[FieldNumMedia]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			p.log.Warn("invalid NumMedia", "msg_id", messageID, "value", raw)
		}
		numMedia = n
	}

	for i := 0; i < numMedia; i++ {
		idx := strconv.Itoa(i)
		url, ok := payload[fieldMediaURL+idx]
		if !ok {
			p.log.Warn("media url missing", "msg_id", messageID, "index", i)
			continue
		}

		media := domain.IncomingMessageMedia{
			ID:          uuid.New(),
			MessageID:   messageID,
			ContentURL:  url,
			ContentType: payload[fieldMediaType+idx],
			Index:       i,
		}
		if err := p.repo.CreateIncomingMedia(ctx, media); err != nil {
			return fmt.Errorf("save media %d: %w", i, err)
		}

		if err := p.cacheMedia(ctx, media); err != nil {
			return err
		}
	}
	return nil
}

// cacheMedia fetches one media item. Fetch failures are logged and leave the
// row without a cached file; only store failures are returned.
func (p *InboundProcessor) cacheMedia(ctx context.Context, media domain.IncomingMessageMedia) error {
	fetchCtx, cancel := context.WithTimeout(ctx, MediaFetchTimeout)
	defer cancel()

	status, body, err := p.fetcher.Fetch(fetchCtx, media.ContentURL)
	if err != nil {
		p.log.Warn("media fetch failed", "media_id", media.ID, "index", media.Index, "err", err)
		return nil
	}
	if status != http.StatusOK {
		p.log.Warn("media fetch returned non-200", "media_id", media.ID, "index", media.Index, "status", status)
		return nil
	}

	path, err := p.files.Save(ctx, MediaFilename(media.ContentURL, media.ContentType), body)
	if err != nil {
		return fmt.Errorf("cache media %d: %w", media.Index, err)
	}
	if err := p.repo.AttachMediaFile(ctx, media.ID, path); err != nil {
		return fmt.Errorf("attach media %d: %w", media.Index, err)
	}
	return nil
}

// MediaFilename is the last path segment of url plus an extension guessed
// from contentType.
func MediaFilename(url, contentType string) string {
	name := url
	if i := strings.LastIndex(url, "/"); i >= 0 {
		name = url[i+1:]
	}
	return name + guessExtension(contentType)
}

var knownExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"audio/mpeg":      ".mp3",
	"audio/ogg":       ".ogg",
	"audio/amr":       ".amr",
	"video/mp4":       ".mp4",
	"video/3gpp":      ".3gp",
	"text/vcard":      ".vcf",
	"text/x-vcard":    ".vcf",
	"text/plain":      ".txt",
	"application/pdf": ".pdf",
}

func guessExtension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if ext, ok := knownExtensions[mediaType]; ok {
		return normalizeExtension(ext)
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return normalizeExtension(exts[0])
}

func normalizeExtension(ext string) string {
	if ext == ".jpe" {
		return ".jpg"
	}
	return ext
}
