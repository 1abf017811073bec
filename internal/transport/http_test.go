package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang-sms-gateway/internal/adapters/db/memory"
	"golang-sms-gateway/internal/app"
	"golang-sms-gateway/internal/config"
	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/ports"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider answers lookups and rejects everything else.
type stubProvider struct{}

func (stubProvider) Send(context.Context, ports.SendRequest) (string, error) {
	return "", &domain.ProviderError{Op: "send", StatusCode: 500}
}

func (stubProvider) FetchMessage(context.Context, string) (json.RawMessage, error) {
	return nil, &domain.ProviderError{Op: "fetch", StatusCode: 404}
}

func (stubProvider) ListMessages(context.Context, ports.MessageFilter) ([]ports.ProviderMessage, error) {
	return nil, &domain.ProviderError{Op: "list", StatusCode: 503}
}

func (stubProvider) LookupNumber(_ context.Context, e164 string) (*ports.LineTypeInfo, error) {
	return &ports.LineTypeInfo{PhoneNumber: e164, Type: "mobile", CarrierName: "Acme", Valid: true}, nil
}

func (stubProvider) FetchBalance(context.Context, string) (ports.Balance, error) {
	return ports.Balance{}, &domain.ProviderError{Op: "balance", StatusCode: 500}
}

type noopFetcher struct{}

func (noopFetcher) Fetch(context.Context, string) (int, []byte, error) { return http.StatusNotFound, nil, nil }

type noopFiles struct{}

func (noopFiles) Save(_ context.Context, name string, _ []byte) (string, error) { return name, nil }

type sealAll struct{}

func (sealAll) Seal(p string) (string, error) { return "sealed:" + p, nil }
func (sealAll) Open(s string) (string, error) { return strings.TrimPrefix(s, "sealed:"), nil }

type testServer struct {
	app   *fiber.App
	store *memory.Store
	hooks *app.HookRegistry
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Config{
		Twilio:       config.TwilioConfig{ClientID: "AC123", AuthToken: "token", PhoneNumber: "+15550001111", APIBaseURL: "https://api.twilio.com"},
		CountryCode:  "US",
		MediaEnabled: true,
		TimeZone:     "UTC",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New(sealAll{})
	providers := ports.ProviderFactoryFunc(func(ports.Credentials) ports.Provider { return stubProvider{} })
	hooks := app.NewHookRegistry()
	reconciler := app.NewReconciler(cfg, providers, nil, log)

	h := NewHandler(Services{
		Inbound:             app.NewInboundProcessor(store, noopFetcher{}, noopFiles{}, hooks, log),
		Outbox:              app.NewOutboxService(store, nil, app.NewDispatcher(cfg, providers, nil, log), nil, log),
		Lookup:              app.NewLookup(cfg, providers, nil, log),
		Dashboard:           app.NewDashboard(cfg, providers, log),
		Sync:                app.NewSyncJob(reconciler, store, nil, log),
		Repo:                store,
		DashboardWindowDays: 1,
	}, log)

	fa := fiber.New()
	fa.Get("/health", Health)
	h.RegisterWebhook(fa)
	h.RegisterAPI(fa)
	return &testServer{app: fa, store: store, hooks: hooks}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func webhookRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/twilio/incoming", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandleIncoming_RepliesWithXML(t *testing.T) {
	s := newTestServer(t, nil)
	s.hooks.Register(app.ReplyFunc(func(_ context.Context, p ports.Payload) []string {
		return []string{"got " + p["Body"]}
	}))

	resp, body := s.do(t, webhookRequest(url.Values{
		"MessageSid": {"SM1"},
		"From":       {"+15552223333"},
		"To":         {"+15550001111"},
		"Body":       {"hi"},
	}))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/xml", resp.Header.Get("Content-Type"))
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8" ?><Response><Message>got hi</Message></Response>`, body)
	assert.Len(t, s.store.IncomingMessages(), 1)
}

func TestHandleIncoming_WithoutSIDIsNoop(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, webhookRequest(url.Values{"From": {"+15552223333"}}))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8" ?><Response></Response>`, body)
	assert.Empty(t, s.store.IncomingMessages())
}

func TestBlockSender_ThenCallbackIsDropped(t *testing.T) {
	s := newTestServer(t, nil)

	resp, _ := s.do(t, jsonRequest(http.MethodPost, "/api/blocked-senders", `{"sender":"+15552223333"}`))
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(t, webhookRequest(url.Values{"MessageSid": {"SM1"}, "From": {"+15552223333"}}))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, s.store.IncomingMessages())

	resp, _ = s.do(t, jsonRequest(http.MethodPost, "/api/blocked-senders", `{}`))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestQueueMessage(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/api/messages", `{"destination":"+15552223333","body":"hello"}`))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out queueMessageResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "pending", out.Status)
	assert.NotEmpty(t, out.ID)

	resp, _ = s.do(t, jsonRequest(http.MethodPost, "/api/messages", `{"destination":"+15552223333"}`))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestQueueMessage_MediaDisabled(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.MediaEnabled = false })

	resp, _ := s.do(t, jsonRequest(http.MethodPost, "/api/messages", `{"destination":"+15552223333","media_urls":["https://x/y.png"]}`))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestLookupNumbers(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/api/lookup", `{"numbers":["garbage","(617) 555-1212"]}`))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Results []app.LookupResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Len(t, out.Results, 2)
	assert.Equal(t, app.UnparseableType, out.Results[0].Type)
	assert.Equal(t, "+16175551212", out.Results[1].Number)
	assert.Equal(t, "mobile", out.Results[1].Type)
}

func TestStatus_UnavailableWhenProviderFails(t *testing.T) {
	s := newTestServer(t, nil)

	resp, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/status?window_days=x", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSignalsAndHealth(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/dashboard/signals", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"name":"Twilio: +15550001111"`)

	resp, body = s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestSync_ReportsFailingChannels(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/api/sync", `{"since":"2024-01-01T00:00:00Z"}`))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var res app.SyncResult
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	assert.Equal(t, 0, res.Events)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, domain.DefaultChannelID, res.Failed[0].ChannelID)
	assert.Contains(t, res.Failed[0].Error, "HTTP 503")

	resp, _ = s.do(t, jsonRequest(http.MethodPost, "/api/sync", `{"since":"yesterday"}`))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
