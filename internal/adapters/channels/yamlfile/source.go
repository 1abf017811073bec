// Package yamlfile loads a static channel registry from a YAML document.
package yamlfile

import (
	"context"
	"fmt"
	"os"

	"golang-sms-gateway/internal/domain"

	"gopkg.in/yaml.v3"
)

type document struct {
	Channels []domain.Channel `yaml:"channels"`
}

// Source implements ports.ChannelSource from a file read once at load time.
type Source struct {
	channels []domain.Channel
}

// Load parses path. Channels without a package are assumed to belong to
// this gateway.
func Load(path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channels file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse channels file: %w", err)
	}

	for i := range doc.Channels {
		if doc.Channels[i].PackageName == "" {
			doc.Channels[i].PackageName = domain.TwilioPackage
		}
	}
	return &Source{channels: doc.Channels}, nil
}

// Channels returns the entries belonging to this gateway's package.
func (s *Source) Channels(context.Context) ([]domain.Channel, error) {
	out := make([]domain.Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		if ch.PackageName == domain.TwilioPackage {
			out = append(out, ch)
		}
	}
	return out, nil
}
