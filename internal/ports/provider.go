package ports

import (
	"context"
	"encoding/json"
	"time"
)

// Credentials is one provider account credential pair.
type Credentials struct {
	ClientID  string
	AuthToken string
}

// SendRequest is one provider message creation. Body or MediaURLs may be empty.
type SendRequest struct {
	From      string
	To        string
	Body      string
	MediaURLs []string
}

// MessageFilter narrows a history listing. Exactly one of To/From is expected.
// SentAfter keeps messages sent strictly after the instant; SentOn keeps
// messages sent on that calendar day.
type MessageFilter struct {
	To        string
	From      string
	SentAfter time.Time
	SentOn    time.Time
}

// ProviderMessage is a message resource as returned by the provider.
type ProviderMessage struct {
	SID          string
	To           string
	From         string
	Body         string
	Status       string
	Direction    string
	ErrorCode    *int
	ErrorMessage string
	DateSent     time.Time
	Media        []ProviderMedia
}

// ProviderMedia is a media resource attached to a provider message. URI is
// the provider's resource path, including its ".json" suffix.
type ProviderMedia struct {
	SID         string
	ContentType string
	URI         string
}

// LineTypeInfo is the provider's line type intelligence for one number.
type LineTypeInfo struct {
	PhoneNumber string
	Type        string
	CarrierName string
	Valid       bool
}

// Balance is an account balance.
type Balance struct {
	AccountID string `json:"account_sid"`
	Amount    string `json:"balance"`
	Currency  string `json:"currency"`
}

// Provider abstracts the external SMS/MMS service. Implementations never
// retry and report failures as *domain.ProviderError.
type Provider interface {
	// Send creates one provider message and returns its SID.
	Send(ctx context.Context, req SendRequest) (string, error)

	// FetchMessage returns the raw message resource.
	FetchMessage(ctx context.Context, sid string) (json.RawMessage, error)

	// ListMessages returns history matching the filter, in provider order.
	ListMessages(ctx context.Context, filter MessageFilter) ([]ProviderMessage, error)

	// LookupNumber returns nil when the provider has no line type data.
	LookupNumber(ctx context.Context, e164 string) (*LineTypeInfo, error)

	// FetchBalance returns the balance of accountID.
	FetchBalance(ctx context.Context, accountID string) (Balance, error)
}

// ProviderFactory builds a Provider bound to one credential pair.
type ProviderFactory interface {
	ForCredentials(creds Credentials) Provider
}

// ProviderFactoryFunc adapts a function to ProviderFactory.
type ProviderFactoryFunc func(creds Credentials) Provider

func (f ProviderFactoryFunc) ForCredentials(creds Credentials) Provider { return f(creds) }
