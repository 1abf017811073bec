package transport

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang-sms-gateway/internal/app"
	"golang-sms-gateway/internal/ports"

	"github.com/gofiber/fiber/v2"
)

// Services are the application services behind the HTTP surface. Any of
// them may be nil; routes for missing services are not mounted.
type Services struct {
	Inbound   *app.InboundProcessor
	Outbox    *app.OutboxService
	Lookup    *app.Lookup
	Dashboard *app.Dashboard
	Sync      *app.SyncJob
	Repo      ports.MessageRepository

	SyncLookback        time.Duration
	DashboardWindowDays int
}

// Handler holds all HTTP handlers for the gateway.
type Handler struct {
	svc Services
	log *slog.Logger
	now func() time.Time
}

// NewHandler wires up a Handler with its dependencies.
func NewHandler(svc Services, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log, now: time.Now}
}

// RegisterWebhook mounts the provider callback route.
func (h *Handler) RegisterWebhook(router fiber.Router, mw ...fiber.Handler) {
	if h.svc.Inbound == nil {
		return
	}
	handlers := append(mw, h.HandleIncoming)
	router.Post("/twilio/incoming", handlers...)
}

// RegisterAPI mounts the JSON API under /api behind mw.
func (h *Handler) RegisterAPI(router fiber.Router, mw ...fiber.Handler) {
	api := router.Group("/api", mw...)
	if h.svc.Outbox != nil {
		api.Post("/messages", h.QueueMessage)
	}
	if h.svc.Lookup != nil {
		api.Post("/lookup", h.LookupNumbers)
	}
	if h.svc.Dashboard != nil {
		api.Get("/status", h.Status)
		api.Get("/dashboard/signals", h.Signals)
	}
	if h.svc.Sync != nil {
		api.Post("/sync", h.Sync)
	}
	if h.svc.Repo != nil {
		api.Post("/blocked-senders", h.BlockSender)
	}
}

// Health reports liveness.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ── Provider webhook ─────────────────────────────────────────────────────────

// HandleIncoming ingests one provider callback and answers with the reply XML.
//
// POST /twilio/incoming (application/x-www-form-urlencoded)
func (h *Handler) HandleIncoming(c *fiber.Ctx) error {
	payload := ports.Payload{}
	c.Request().PostArgs().VisitAll(func(k, v []byte) {
		key := string(k)
		if _, seen := payload[key]; !seen {
			payload[key] = string(v)
		}
	})

	reply, err := h.svc.Inbound.Ingest(c.Context(), payload)
	if err != nil {
		h.log.Error("ingest callback", "message_sid", payload[app.FieldMessageSID], "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	c.Set(fiber.HeaderContentType, app.ReplyContentType)
	return c.SendString(reply.XML())
}

// ── JSON API ─────────────────────────────────────────────────────────────────

type queueMessageRequest struct {
	Destination string   `json:"destination"`
	Body        string   `json:"body"`
	MediaURLs   []string `json:"media_urls"`
	Channel     string   `json:"channel"`
}

type queueMessageResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// QueueMessage saves an outgoing message to the outbox.
//
// POST /api/messages
// Body: { "destination": "...", "body": "...", "media_urls": ["..."], "channel": "..." }
func (h *Handler) QueueMessage(c *fiber.Ctx) error {
	var req queueMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Destination == "" || (strings.TrimSpace(req.Body) == "" && len(req.MediaURLs) == 0) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "destination and body or media_urls are required"})
	}

	msg, err := h.svc.Outbox.QueueMessage(c.Context(), app.QueueMessageRequest{
		Destination: req.Destination,
		Body:        req.Body,
		MediaURLs:   req.MediaURLs,
		ChannelID:   req.Channel,
	})
	if errors.Is(err, app.ErrMediaDisabled) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		h.log.Error("queue message", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(queueMessageResponse{
		ID:     msg.ID.String(),
		Status: string(msg.Status),
	})
}

type lookupRequest struct {
	Numbers []string `json:"numbers"`
}

// LookupNumbers returns line type information for each number.
//
// POST /api/lookup
// Body: { "numbers": ["...", ...] }
func (h *Handler) LookupNumbers(c *fiber.Ctx) error {
	var req lookupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if len(req.Numbers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "numbers are required"})
	}

	results := h.svc.Lookup.LookupNumbers(c.Context(), req.Numbers)
	if results == nil {
		results = []app.LookupResult{}
	}
	return c.JSON(fiber.Map{"results": results})
}

// Status returns the traffic summary of the static channel.
//
// GET /api/status?window_days=28
func (h *Handler) Status(c *fiber.Ctx) error {
	window := h.svc.DashboardWindowDays
	if raw := c.Query("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "window_days must be a non-negative integer"})
		}
		window = n
	}

	summary := h.svc.Dashboard.Summarize(c.Context(), window, app.DashboardOverrides{})
	if summary == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "status unavailable"})
	}
	return c.JSON(summary)
}

// Signals lists the dashboard signals this gateway reports.
//
// GET /api/dashboard/signals
func (h *Handler) Signals(c *fiber.Ctx) error {
	return c.JSON(h.svc.Dashboard.Signals())
}

type syncRequest struct {
	Since string `json:"since"`
}

// Sync runs one reconciliation against the provider history.
//
// POST /api/sync
// Body: { "since": "2024-01-01T00:00:00Z" } (optional)
func (h *Handler) Sync(c *fiber.Ctx) error {
	var req syncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	since := h.now().Add(-h.svc.SyncLookback)
	if req.Since != "" {
		t, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "since must be RFC 3339"})
		}
		since = t
	}

	res, err := h.svc.Sync.Run(c.Context(), since)
	if err != nil {
		h.log.Error("sync", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(res)
}

type blockSenderRequest struct {
	Sender string `json:"sender"`
}

// BlockSender denies further ingestion from a sender.
//
// POST /api/blocked-senders
// Body: { "sender": "+15551234567" }
func (h *Handler) BlockSender(c *fiber.Ctx) error {
	var req blockSenderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Sender == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sender is required"})
	}

	if err := h.svc.Repo.BlockSender(c.Context(), req.Sender); err != nil {
		h.log.Error("block sender", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
