// Package bootstrap builds the adapters shared by the cmd binaries.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"

	"golang-sms-gateway/internal/adapters/channels/yamlfile"
	"golang-sms-gateway/internal/adapters/db/postgres"
	"golang-sms-gateway/internal/adapters/provider/twilio"
	"golang-sms-gateway/internal/config"
	"golang-sms-gateway/internal/ports"
	"golang-sms-gateway/internal/secure"
)

// Logger returns the JSON logger every binary writes to stdout.
func Logger(addSource bool) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: addSource}))
}

// Providers builds Twilio clients from the configured endpoints.
func Providers(conf config.Config) ports.ProviderFactory {
	return twilio.Factory{Options: twilio.Options{
		APIBaseURL:     conf.Twilio.APIBaseURL,
		LookupsBaseURL: conf.Twilio.LookupsBaseURL,
		Timeout:        conf.Twilio.Timeout,
	}}
}

// SenderCipher builds the cipher sealing incoming senders. SENDER_KEY is
// required wherever incoming messages are stored.
func SenderCipher(conf config.Config) (*secure.SenderCipher, error) {
	if conf.SenderKey == "" {
		return nil, fmt.Errorf("SENDER_KEY is not set")
	}
	return secure.NewSenderCipher(conf.SenderKey)
}

// Channels returns the channel registry: the YAML file when CHANNELS_FILE
// is set, otherwise the channels table of repo. Both may be absent.
func Channels(conf config.Config, repo *postgres.Repository) (ports.ChannelSource, error) {
	if conf.ChannelsFile != "" {
		src, err := yamlfile.Load(conf.ChannelsFile)
		if err != nil {
			return nil, fmt.Errorf("load channels file: %w", err)
		}
		return src, nil
	}
	if repo != nil {
		return postgres.NewChannelRegistry(repo.DB()), nil
	}
	return nil, nil
}
