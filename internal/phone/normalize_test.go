package phone

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		country string
		want    string
	}{
		{name: "national US", raw: "(555) 666-7777", country: "US", want: "+15556667777"},
		{name: "already E164", raw: "+15556667777", country: "US", want: "+15556667777"},
		{name: "international ignores region", raw: "+44 20 7946 0958", country: "US", want: "+442079460958"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, tt.country)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Unparseable(t *testing.T) {
	_, err := Normalize("not a number", "US")
	require.Error(t, err)

	var nfe *NumberFormatError
	require.True(t, errors.As(err, &nfe))
	assert.Equal(t, "not a number", nfe.Number)
}
