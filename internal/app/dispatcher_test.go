package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang-sms-gateway/internal/config"
	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(cfg config.Config) (*Dispatcher, *mockFactory, *mockProvider) {
	provider := &mockProvider{}
	factory := &mockFactory{}
	factory.On("ForCredentials", mock.Anything).Return(provider).Maybe()
	return NewDispatcher(cfg, factory, nil, discardLogger()), factory, provider
}

func TestDispatch_ImageShorthandSendsOneMediaMessage(t *testing.T) {
	d, _, provider := newTestDispatcher(testConfig())
	provider.On("Send", mock.Anything, ports.SendRequest{
		From:      "+15550001111",
		To:        "+15552223333",
		MediaURLs: []string{"https://x/y.png"},
	}).Return("SM1", nil).Once()

	msg := domain.NewOutgoingMessage("+15552223333", "image:https://x/y.png", []domain.OutgoingMedia{
		{URL: "https://ignored/0.png", Index: 0},
	})

	meta, err := d.Dispatch(context.Background(), msg, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "SM1", meta[domain.MetadataProviderSID])
	provider.AssertNumberOfCalls(t, "Send", 1)
	provider.AssertExpectations(t)
}

func TestDispatch_MediaThenBundlesInOrder(t *testing.T) {
	d, _, provider := newTestDispatcher(testConfig())

	text := strings.TrimSpace(strings.Repeat("abcd ", 440))
	msg := domain.NewOutgoingMessage("+15552223333", text, []domain.OutgoingMedia{
		{URL: "https://x/1.png", Index: 1},
		{URL: "https://x/0.png", Index: 0},
	})

	var sent []ports.SendRequest
	for i := 1; i <= 5; i++ {
		provider.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			sent = append(sent, args.Get(1).(ports.SendRequest))
		}).Return(fmt.Sprintf("SM%d", i), nil).Once()
	}

	meta, err := d.Dispatch(context.Background(), msg, Overrides{})
	require.NoError(t, err)

	require.Len(t, sent, 5)
	assert.Equal(t, []string{"https://x/0.png"}, sent[0].MediaURLs)
	assert.Empty(t, sent[0].Body)
	assert.Equal(t, []string{"https://x/1.png"}, sent[1].MediaURLs)
	for i, want := range []int{999, 999, 199} {
		assert.Len(t, sent[2+i].Body, want)
		assert.Empty(t, sent[2+i].MediaURLs)
	}
	assert.Equal(t, []string{"SM1", "SM2", "SM3", "SM4", "SM5"}, meta[domain.MetadataProviderSID])
}

// fullBundleText returns bundles of "abcde" followed by space-joined "abcd"
// tokens, one bundle per requested length.
func fullBundleText(lens ...int) string {
	parts := make([]string, 0, len(lens))
	for _, n := range lens {
		parts = append(parts, "abcde"+strings.Repeat(" abcd", (n-5)/5))
	}
	return strings.Join(parts, " ")
}

func TestDispatch_ExactBundleBoundary(t *testing.T) {
	d, _, provider := newTestDispatcher(testConfig())

	var sent []ports.SendRequest
	for i := 1; i <= 3; i++ {
		provider.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			sent = append(sent, args.Get(1).(ports.SendRequest))
		}).Return(fmt.Sprintf("SM%d", i), nil).Once()
	}

	msg := domain.NewOutgoingMessage("+15552223333", fullBundleText(1000, 1000, 200), nil)
	meta, err := d.Dispatch(context.Background(), msg, Overrides{})
	require.NoError(t, err)

	require.Len(t, sent, 3)
	for i, want := range []int{1000, 1000, 200} {
		assert.Len(t, sent[i].Body, want)
	}
	assert.Equal(t, []string{"SM1", "SM2", "SM3"}, meta[domain.MetadataProviderSID])
}

func TestDispatch_MissingCredentialMakesNoCalls(t *testing.T) {
	cases := map[string]func(*config.Config){
		"client id":    func(c *config.Config) { c.Twilio.ClientID = "" },
		"auth token":   func(c *config.Config) { c.Twilio.AuthToken = "" },
		"phone number": func(c *config.Config) { c.Twilio.PhoneNumber = "" },
	}
	for name, unset := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			unset(&cfg)
			d, factory, provider := newTestDispatcher(cfg)

			meta, err := d.Dispatch(context.Background(), domain.NewOutgoingMessage("+15552223333", "hi", nil), Overrides{})
			require.NoError(t, err)
			assert.Nil(t, meta)
			factory.AssertNumberOfCalls(t, "ForCredentials", 0)
			provider.AssertNumberOfCalls(t, "Send", 0)
		})
	}
}

func TestDispatch_OverridesWin(t *testing.T) {
	cfg := testConfig()
	cfg.Twilio.ClientID = ""
	provider := &mockProvider{}
	factory := &mockFactory{}
	factory.On("ForCredentials", ports.Credentials{ClientID: "ACother", AuthToken: "token"}).Return(provider).Once()
	provider.On("Send", mock.Anything, ports.SendRequest{From: "+15559990000", To: "+15554445555", Body: "hi"}).Return("SM9", nil).Once()

	d := NewDispatcher(cfg, factory, nil, discardLogger())
	meta, err := d.Dispatch(context.Background(), domain.NewOutgoingMessage("+15552223333", "hi", nil), Overrides{
		ClientID:    "ACother",
		PhoneNumber: "+15559990000",
		Destination: "+15554445555",
		Extra:       map[string]any{"channel": "ops"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SM9", meta[domain.MetadataProviderSID])
	assert.Equal(t, "ops", meta["channel"])
	assert.Equal(t, "+15554445555", meta["destination"])
	factory.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestDispatch_PartialFailureKeepsEarlierSIDs(t *testing.T) {
	d, _, provider := newTestDispatcher(testConfig())
	provider.On("Send", mock.Anything, mock.MatchedBy(func(r ports.SendRequest) bool { return len(r.MediaURLs) == 1 })).Return("SM1", nil).Once()
	provider.On("Send", mock.Anything, mock.MatchedBy(func(r ports.SendRequest) bool { return r.Body != "" })).
		Return("", &domain.ProviderError{Op: "send", StatusCode: 400, Code: 21211, Message: "bad"}).Once()

	msg := domain.NewOutgoingMessage("+15552223333", "hello", []domain.OutgoingMedia{{URL: "https://x/0.png"}})
	meta, err := d.Dispatch(context.Background(), msg, Overrides{})
	require.Error(t, err)

	var pe *domain.ProviderError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "SM1", meta[domain.MetadataProviderSID])
}

func TestDispatch_RendererAndSiteURL(t *testing.T) {
	cfg := testConfig()
	cfg.SiteURL = "https://example.org/"
	provider := &mockProvider{}
	factory := &mockFactory{}
	factory.On("ForCredentials", mock.Anything).Return(provider)
	provider.On("Send", mock.Anything, mock.MatchedBy(func(r ports.SendRequest) bool {
		return len(r.MediaURLs) == 1 && r.MediaURLs[0] == "https://example.org/media/a.png"
	})).Return("SM1", nil).Once()
	provider.On("Send", mock.Anything, mock.MatchedBy(func(r ports.SendRequest) bool {
		return r.Body == "Hi Ann"
	})).Return("SM2", nil).Once()

	renderer := ContentRendererFunc(func(msg domain.OutgoingMessage, meta map[string]any) string {
		return "Hi " + fmt.Sprint(meta["name"])
	})
	d := NewDispatcher(cfg, factory, renderer, discardLogger())

	msg := domain.NewOutgoingMessage("+15552223333", "ignored", []domain.OutgoingMedia{{URL: "/media/a.png"}})
	msg.TransmissionMetadata = `{"name":"Ann"}`

	meta, err := d.Dispatch(context.Background(), msg, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, []string{"SM1", "SM2"}, meta[domain.MetadataProviderSID])
	provider.AssertExpectations(t)
}

func TestDispatch_BlankTextMalformedMetadata(t *testing.T) {
	d, _, provider := newTestDispatcher(testConfig())
	msg := domain.NewOutgoingMessage("+15552223333", "   ", nil)
	msg.TransmissionMetadata = "{not json"

	meta, err := d.Dispatch(context.Background(), msg, Overrides{})
	require.NoError(t, err)
	assert.NotNil(t, meta)
	assert.NotContains(t, meta, domain.MetadataProviderSID)
	provider.AssertNumberOfCalls(t, "Send", 0)
}
