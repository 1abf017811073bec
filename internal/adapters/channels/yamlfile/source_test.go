package yamlfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const channelsYAML = `
channels:
  - id: support
    phone_number: "+15550001111"
    country_code: US
    client_id: AC1
    auth_token: tok1
  - id: whatsapp
    package: simple_messaging_whatsapp
    phone_number: "+15550002222"
  - id: partial
    phone_number: "+15550003333"
`

func TestLoad_FiltersPackageAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(channelsYAML), 0o600))

	src, err := Load(path)
	require.NoError(t, err)

	chans, err := src.Channels(context.Background())
	require.NoError(t, err)
	require.Len(t, chans, 2)

	assert.Equal(t, "support", chans[0].ID)
	assert.True(t, chans[0].Configured())
	assert.Equal(t, "tok1", chans[0].AuthToken)

	assert.Equal(t, "partial", chans[1].ID)
	assert.False(t, chans[1].Configured())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
