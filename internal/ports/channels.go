package ports

import (
	"context"

	"golang-sms-gateway/internal/domain"
)

// ChannelSource enumerates dynamically registered channels. It is optional;
// a nil source contributes no channels.
type ChannelSource interface {
	Channels(ctx context.Context) ([]domain.Channel, error)
}
