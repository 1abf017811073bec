package memory

import (
	"context"
	"testing"

	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/secure"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	c, err := secure.NewSenderCipher("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)
	return New(c)
}

func TestEncryptSender(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	msg := domain.NewIncomingMessage("+15551112222", "+15550000000", "hi", "{}")
	require.NoError(t, s.CreateIncomingMessage(ctx, msg))
	sealed, err := s.EncryptSender(ctx, msg.ID)
	require.NoError(t, err)

	stored := s.IncomingMessages()
	require.Len(t, stored, 1)
	assert.True(t, secure.IsSealed(stored[0].Sender))
	assert.Equal(t, stored[0].Sender, sealed)

	_, err = s.EncryptSender(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}

func TestClaimPendingMessages_ClaimsOnce(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveOutgoingMessage(ctx, domain.NewOutgoingMessage("+1555", "hi", nil)))
	}

	first, err := s.ClaimPendingMessages(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := s.ClaimPendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, second, 1)

	ok, err := s.TransitionStatus(ctx, second[0].ID, domain.StatusQueued, domain.StatusSending)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TransitionStatus(ctx, second[0].ID, domain.StatusQueued, domain.StatusSending)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppendTransmissionMetadata_MergesIntoExisting(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	msg := domain.NewOutgoingMessage("+1555", "hi", nil)
	msg.TransmissionMetadata = `{"campaign":"spring"}`
	require.NoError(t, s.SaveOutgoingMessage(ctx, msg))

	require.NoError(t, s.AppendTransmissionMetadata(ctx, msg.ID, map[string]any{"twilio_sid": []string{"SM1", "SM2"}}))

	got, err := s.GetOutgoingMessage(ctx, msg.ID)
	require.NoError(t, err)
	meta := got.ParsedMetadata()
	assert.Equal(t, "spring", meta["campaign"])
	assert.Equal(t, []any{"SM1", "SM2"}, meta["twilio_sid"])
}

func TestUpsertSyncEvents_SkipsKnownSIDs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	n, err := s.UpsertSyncEvents(ctx, []domain.SyncEvent{{TwilioSID: "SM1"}, {TwilioSID: "SM2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.UpsertSyncEvents(ctx, []domain.SyncEvent{{TwilioSID: "SM2"}, {TwilioSID: "SM3"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
