package app

import (
	"context"
	"strings"
	"testing"

	"golang-sms-gateway/internal/adapters/db/memory"
	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inboundFixture struct {
	store *memory.Store
	files *fakeFiles
	hooks *HookRegistry
	proc  *InboundProcessor
}

func newInboundFixture(fetcher fakeFetcher) *inboundFixture {
	f := &inboundFixture{
		store: memory.New(plainCipher{}),
		files: &fakeFiles{},
		hooks: NewHookRegistry(),
	}
	f.proc = NewInboundProcessor(f.store, fetcher, f.files, f.hooks, discardLogger())
	return f
}

func callback(extra map[string]string) ports.Payload {
	p := ports.Payload{
		FieldMessageSID: "SM100",
		FieldFrom:       "+15552223333",
		FieldTo:         "+15550001111",
		FieldBody:       "  hello there \n",
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

func TestIngest_NotADeliveryCallback(t *testing.T) {
	f := newInboundFixture(nil)
	called := false
	f.hooks.Register(ReplyFunc(func(context.Context, ports.Payload) []string {
		called = true
		return []string{"x"}
	}))

	reply, err := f.proc.Ingest(context.Background(), ports.Payload{FieldFrom: "+15552223333"})
	require.NoError(t, err)
	assert.Empty(t, reply.Lines)
	assert.False(t, called)
	assert.Empty(t, f.store.IncomingMessages())
}

func TestIngest_StoresMessageAndSealsSender(t *testing.T) {
	f := newInboundFixture(nil)
	var seen []domain.IncomingMessage
	f.hooks.Register(IncomingFunc(func(_ context.Context, msg domain.IncomingMessage) {
		seen = append(seen, msg)
	}))

	_, err := f.proc.Ingest(context.Background(), callback(nil))
	require.NoError(t, err)

	msgs := f.store.IncomingMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "sealed:+15552223333", msgs[0].Sender)
	assert.Equal(t, "+15550001111", msgs[0].Recipient)
	assert.Equal(t, "hello there", msgs[0].Message)
	assert.Contains(t, msgs[0].TransmissionMetadata, `"MessageSid": "SM100"`)
	require.Len(t, seen, 1)
	assert.Equal(t, msgs[0].ID, seen[0].ID)
	assert.Equal(t, "sealed:+15552223333", seen[0].Sender)
}

// Blocked senders are not stored but still get contributor replies, because
// replies are gathered before the block check.
func TestIngest_BlockedSenderStillGetsReplies(t *testing.T) {
	f := newInboundFixture(nil)
	require.NoError(t, f.store.BlockSender(context.Background(), "+15552223333"))
	f.hooks.Register(ReplyFunc(func(context.Context, ports.Payload) []string {
		return []string{"Thanks!"}
	}))
	processed := false
	f.hooks.Register(IncomingFunc(func(context.Context, domain.IncomingMessage) { processed = true }))

	reply, err := f.proc.Ingest(context.Background(), callback(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"Thanks!"}, reply.Lines)
	assert.Empty(t, f.store.IncomingMessages())
	assert.False(t, processed)
}

func TestIngest_ShouldRecordLastVoteWins(t *testing.T) {
	cases := []struct {
		name  string
		votes []bool
		want  int
	}{
		{"no voters", nil, 1},
		{"false then true", []bool{false, true}, 1},
		{"true then false", []bool{true, false}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newInboundFixture(nil)
			f.hooks.Register(ReplyFunc(func(context.Context, ports.Payload) []string { return []string{"ok"} }))
			for _, v := range tc.votes {
				vote := v
				f.hooks.Register(RecordFunc(func(context.Context, ports.Payload) bool { return vote }))
			}

			reply, err := f.proc.Ingest(context.Background(), callback(nil))
			require.NoError(t, err)
			assert.Equal(t, []string{"ok"}, reply.Lines)
			assert.Len(t, f.store.IncomingMessages(), tc.want)
		})
	}
}

func TestIngest_MediaFailureDoesNotStopLaterIndexes(t *testing.T) {
	f := newInboundFixture(fakeFetcher{
		"https://api.twilio.com/media/ME0": 404,
		"https://api.twilio.com/media/ME1": 200,
	})

	_, err := f.proc.Ingest(context.Background(), callback(map[string]string{
		FieldNumMedia:       "2",
		"MediaUrl0":         "https://api.twilio.com/media/ME0",
		"MediaContentType0": "image/png",
		"MediaUrl1":         "https://api.twilio.com/media/ME1",
		"MediaContentType1": "image/jpeg",
	}))
	require.NoError(t, err)

	msgs := f.store.IncomingMessages()
	require.Len(t, msgs, 1)
	media := f.store.MediaFor(msgs[0].ID)
	require.Len(t, media, 2)

	assert.Equal(t, 0, media[0].Index)
	assert.Empty(t, media[0].ContentFile)
	assert.Equal(t, 1, media[1].Index)
	assert.Equal(t, "/media/ME1.jpg", media[1].ContentFile)
	assert.Equal(t, []string{"ME1.jpg"}, f.files.saved)
}

func TestIngest_MalformedMediaFields(t *testing.T) {
	f := newInboundFixture(fakeFetcher{})

	_, err := f.proc.Ingest(context.Background(), callback(map[string]string{FieldNumMedia: "two"}))
	require.NoError(t, err)

	_, err = f.proc.Ingest(context.Background(), callback(map[string]string{
		FieldNumMedia: "2",
		"MediaUrl1":   "https://unreachable/ME1",
	}))
	require.NoError(t, err)

	var total int
	for _, m := range f.store.IncomingMessages() {
		for _, media := range f.store.MediaFor(m.ID) {
			total++
			assert.Equal(t, 1, media.Index)
			assert.Empty(t, media.ContentFile)
		}
	}
	assert.Equal(t, 1, total)
}

func TestReplyXML(t *testing.T) {
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8" ?><Response></Response>`, Reply{}.XML())

	xml := Reply{Lines: []string{"one", "<b>two</b>"}}.XML()
	assert.True(t, strings.HasSuffix(xml, "<Response><Message>one</Message><Message><b>two</b></Message></Response>"))
}

func TestMediaFilename(t *testing.T) {
	assert.Equal(t, "ME1.jpg", MediaFilename("https://x/Media/ME1", "image/jpeg"))
	assert.Equal(t, "ME2.png", MediaFilename("https://x/Media/ME2", "image/png; charset=binary"))
	assert.Equal(t, "ME3", MediaFilename("https://x/Media/ME3", ""))
	assert.Equal(t, ".jpg", normalizeExtension(".jpe"))
}

func TestHookRegistry_RegisterDetectsCapabilities(t *testing.T) {
	r := NewHookRegistry()
	assert.False(t, r.Register(struct{}{}))
	assert.True(t, r.Register(ReplyFunc(func(context.Context, ports.Payload) []string { return []string{"a"} })))
	assert.True(t, r.Register(ReplyFunc(func(context.Context, ports.Payload) []string { return []string{"b", "c"} })))

	assert.Equal(t, []string{"a", "b", "c"}, r.ReplyLines(context.Background(), nil))
	assert.True(t, r.ShouldRecord(context.Background(), nil))
}
