package domain

import "time"

// TwilioPackage identifies registry channels served by this gateway.
const TwilioPackage = "simple_messaging_twilio"

// DefaultChannelID names the channel built from static configuration.
const DefaultChannelID = "default"

// Channel is one configured phone-number endpoint with its own credentials.
type Channel struct {
	ID          string `yaml:"id" json:"id"`
	PackageName string `yaml:"package" json:"package"`
	PhoneNumber string `yaml:"phone_number" json:"phone_number"`
	CountryCode string `yaml:"country_code" json:"country_code"`
	ClientID    string `yaml:"client_id" json:"client_id"`
	AuthToken   string `yaml:"auth_token" json:"-"`
}

// Configured reports whether every field needed to query the provider is set.
func (c Channel) Configured() bool {
	return c.ClientID != "" && c.AuthToken != "" && c.PhoneNumber != "" && c.CountryCode != ""
}

// Direction classifies a provider message relative to a channel.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// SyncEvent is a provider message normalized for downstream merging. It is
// rebuilt on every reconcile; consumers dedupe by TwilioSID.
type SyncEvent struct {
	CallbackID string            `json:"callback_id"`
	TwilioSID  string            `json:"twilio_sid"`
	ChannelID  string            `json:"channel"`
	To         string            `json:"to"`
	From       string            `json:"from"`
	Body       string            `json:"body"`
	SentAt     time.Time         `json:"sent_at"`
	Direction  Direction         `json:"direction"`
	Status     SyncStatus        `json:"status"`
	Media      []MediaDescriptor `json:"media"`
}

// SyncStatus carries the provider's delivery outcome.
type SyncStatus struct {
	ErrorCode      *int   `json:"error_code,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	DeliveryStatus string `json:"delivery_status"`
}

// MediaDescriptor points at media retrievable from the provider.
type MediaDescriptor struct {
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}
