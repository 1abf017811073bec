package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "US", c.CountryCode)
	assert.True(t, c.MediaEnabled)
	assert.Equal(t, "https://api.twilio.com", c.Twilio.APIBaseURL)
	assert.Equal(t, 30*time.Second, c.Twilio.Timeout)
	assert.Equal(t, 24*time.Hour, c.SyncLookback)
	assert.Equal(t, 28, c.DashboardWindowDays)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("TWILIO_CLIENT_ID", "AC1")
	t.Setenv("TWILIO_AUTH_TOKEN", "tok")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15550001111")
	t.Setenv("MEDIA_ENABLED", "false")
	t.Setenv("SYNC_LOOKBACK", "2h")
	t.Setenv("TIME_ZONE", "America/New_York")

	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "AC1", c.Twilio.ClientID)
	assert.False(t, c.MediaEnabled)
	assert.Equal(t, 2*time.Hour, c.SyncLookback)
	assert.True(t, c.HasStaticCredentials())
	assert.Equal(t, "America/New_York", c.Location().String())
}

func TestFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("DASHBOARD_WINDOW_DAYS", "many")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestLocation_UnknownFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Config{TimeZone: "Mars/Olympus"}.Location())
}

func TestHasStaticCredentials(t *testing.T) {
	c := Config{Twilio: TwilioConfig{ClientID: "AC1", AuthToken: "tok"}}
	assert.False(t, c.HasStaticCredentials())

	c.Twilio.PhoneNumber = "+15550001111"
	assert.True(t, c.HasStaticCredentials())
}
