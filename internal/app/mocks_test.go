package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"golang-sms-gateway/internal/config"
	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/ports"

	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	return config.Config{
		Twilio: config.TwilioConfig{
			ClientID:    "AC123",
			AuthToken:   "token",
			PhoneNumber: "+15550001111",
			APIBaseURL:  "https://api.twilio.com",
		},
		CountryCode:  "US",
		MediaEnabled: true,
		TimeZone:     "UTC",
	}
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Send(ctx context.Context, req ports.SendRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) FetchMessage(ctx context.Context, sid string) (json.RawMessage, error) {
	args := m.Called(ctx, sid)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockProvider) ListMessages(ctx context.Context, filter ports.MessageFilter) ([]ports.ProviderMessage, error) {
	args := m.Called(ctx, filter)
	msgs, _ := args.Get(0).([]ports.ProviderMessage)
	return msgs, args.Error(1)
}

func (m *mockProvider) LookupNumber(ctx context.Context, e164 string) (*ports.LineTypeInfo, error) {
	args := m.Called(ctx, e164)
	info, _ := args.Get(0).(*ports.LineTypeInfo)
	return info, args.Error(1)
}

func (m *mockProvider) FetchBalance(ctx context.Context, accountID string) (ports.Balance, error) {
	args := m.Called(ctx, accountID)
	b, _ := args.Get(0).(ports.Balance)
	return b, args.Error(1)
}

type mockFactory struct {
	mock.Mock
}

func (m *mockFactory) ForCredentials(creds ports.Credentials) ports.Provider {
	args := m.Called(creds)
	return args.Get(0).(ports.Provider)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, msg domain.OutgoingMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type staticChannels []domain.Channel

func (s staticChannels) Channels(context.Context) ([]domain.Channel, error) {
	return s, nil
}

type fakeFetcher map[string]int

func (f fakeFetcher) Fetch(_ context.Context, url string) (int, []byte, error) {
	status, ok := f[url]
	if !ok {
		return 0, nil, io.ErrUnexpectedEOF
	}
	if status != 200 {
		return status, nil, nil
	}
	return status, []byte("data:" + url), nil
}

type fakeFiles struct {
	saved []string
}

func (f *fakeFiles) Save(_ context.Context, filename string, _ []byte) (string, error) {
	f.saved = append(f.saved, filename)
	return "/media/" + filename, nil
}

// plainCipher marks senders without real cryptography.
type plainCipher struct{}

func (plainCipher) Seal(plain string) (string, error)  { return "sealed:" + plain, nil }
func (plainCipher) Open(sealed string) (string, error) { return sealed[len("sealed:"):], nil }
