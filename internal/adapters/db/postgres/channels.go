package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"golang-sms-gateway/internal/domain"

	"gorm.io/gorm"
)

// channelConfiguration is the JSON stored in channels.configuration.
type channelConfiguration struct {
	ClientID    string `json:"client_id"`
	AuthToken   string `json:"auth_token"`
	PhoneNumber string `json:"phone_number"`
	CountryCode string `json:"country_code"`
}

// ChannelRegistry implements ports.ChannelSource over the channels table.
type ChannelRegistry struct {
	db *gorm.DB
}

// NewChannelRegistry shares db with the repository.
func NewChannelRegistry(db *gorm.DB) *ChannelRegistry {
	return &ChannelRegistry{db: db}
}

// Channels returns every active channel of this gateway's package. Rows with
// unreadable configuration are returned with empty credentials so callers
// skip them as unconfigured.
func (c *ChannelRegistry) Channels(ctx context.Context) ([]domain.Channel, error) {
	var rows []ChannelRow
	err := c.db.WithContext(ctx).
		Where("package_name = ? AND active = ?", domain.TwilioPackage, true).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}

	out := make([]domain.Channel, 0, len(rows))
	for _, row := range rows {
		ch := domain.Channel{ID: row.ID, PackageName: row.PackageName}
		var cfg channelConfiguration
		if err := json.Unmarshal(row.Configuration, &cfg); err == nil {
			ch.ClientID = cfg.ClientID
			ch.AuthToken = cfg.AuthToken
			ch.PhoneNumber = cfg.PhoneNumber
			ch.CountryCode = cfg.CountryCode
		}
		out = append(out, ch)
	}
	return out, nil
}
