package app

import (
	"context"
	"testing"

	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLookupNumbers_BadNumbersDoNotAbortBatch(t *testing.T) {
	provider := &mockProvider{}
	factory := &mockFactory{}
	factory.On("ForCredentials", ports.Credentials{ClientID: "AC123", AuthToken: "token"}).Return(provider).Once()

	provider.On("LookupNumber", mock.Anything, "+16175551212").
		Return(&ports.LineTypeInfo{PhoneNumber: "+16175551212", Type: "mobile", CarrierName: "Acme", Valid: true}, nil).Once()
	provider.On("LookupNumber", mock.Anything, "+16175550000").
		Return((*ports.LineTypeInfo)(nil), nil).Once()
	provider.On("LookupNumber", mock.Anything, "+16175559999").
		Return((*ports.LineTypeInfo)(nil), &domain.ProviderError{Op: "lookup", StatusCode: 500, Message: "boom"}).Once()
	provider.On("LookupNumber", mock.Anything, "+16175558888").
		Return(&ports.LineTypeInfo{PhoneNumber: "+16175558888", Valid: false}, nil).Once()

	l := NewLookup(testConfig(), factory, nil, discardLogger())
	results := l.LookupNumbers(context.Background(), []string{
		"not a number",
		"(617) 555-1212",
		"617-555-0000",
		"6175559999",
		"+1 617 555 8888",
	})
	require.Len(t, results, 5)

	assert.Equal(t, "not a number", results[0].Number)
	assert.Equal(t, UnparseableType, results[0].Type)
	assert.Equal(t, UnknownCarrier, results[0].Carrier)

	assert.Equal(t, LookupResult{Number: "+16175551212", Type: "mobile", Carrier: "Acme"}, results[1])

	assert.Equal(t, UnparseableType, results[2].Type)
	assert.Equal(t, "617-555-0000", results[2].Number)

	assert.Equal(t, LookupFailed, results[3].Type)

	assert.Equal(t, "Unknown", results[4].Type)
	assert.Contains(t, results[4].Notes, "reported as invalid")

	provider.AssertExpectations(t)
}

func TestLookupNumbers_CredentialSelection(t *testing.T) {
	cfg := testConfig()
	cfg.Twilio.ClientID = ""
	cfg.Twilio.AuthToken = ""

	factory := &mockFactory{}
	l := NewLookup(cfg, factory, nil, discardLogger())
	assert.Nil(t, l.LookupNumbers(context.Background(), []string{"+16175551212"}))
	factory.AssertNumberOfCalls(t, "ForCredentials", 0)

	provider := &mockProvider{}
	factory.On("ForCredentials", ports.Credentials{ClientID: "ACchan", AuthToken: "chantoken"}).Return(provider).Once()
	provider.On("LookupNumber", mock.Anything, "+16175551212").Return(&ports.LineTypeInfo{Type: "landline"}, nil).Once()

	channels := staticChannels{
		{ID: "incomplete", ClientID: "ACnone"},
		{ID: "ops", ClientID: "ACchan", AuthToken: "chantoken"},
	}
	l = NewLookup(cfg, factory, channels, discardLogger())
	results := l.LookupNumbers(context.Background(), []string{"+16175551212"})
	require.Len(t, results, 1)
	assert.Equal(t, "+16175551212", results[0].Number)
	assert.Equal(t, "landline", results[0].Type)
	factory.AssertExpectations(t)
}
