package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// mockMessage mirrors the Twilio message resource fields the gateway reads.
type mockMessage struct {
	SID             string            `json:"sid"`
	AccountSID      string            `json:"account_sid"`
	To              string            `json:"to"`
	From            string            `json:"from"`
	Body            string            `json:"body"`
	Status          string            `json:"status"`
	Direction       string            `json:"direction"`
	ErrorCode       *int              `json:"error_code"`
	ErrorMessage    *string           `json:"error_message"`
	DateSent        string            `json:"date_sent"`
	NumMedia        string            `json:"num_media"`
	SubresourceURIs map[string]string `json:"subresource_uris"`

	media []string
}

type store struct {
	mu       sync.Mutex
	messages []*mockMessage
}

func (s *store) add(m *mockMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

func (s *store) find(sid string) *mockMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.SID == sid {
			return m
		}
	}
	return nil
}

func (s *store) list(account, to, from string) []*mockMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*mockMessage{}
	for _, m := range s.messages {
		if m.AccountSID != account || (to != "" && m.To != to) || (from != "" && m.From != from) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	addr := getenv("HTTP_ADDR", ":9090")
	inboundHook := os.Getenv("INBOUND_WEBHOOK_URL")

	st := &store{}
	fiberApp := fiber.New(fiber.Config{AppName: "mock-sms-provider"})
	api := fiberApp.Group("/2010-04-01/Accounts/:account")

	// POST Messages.json accepts a send and answers with a generated SID.
	api.Post("/Messages.json", func(c *fiber.Ctx) error {
		to, from := c.FormValue("To"), c.FormValue("From")
		if to == "" || from == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"code": 21604, "message": "A 'To' and 'From' phone number is required.", "status": 400})
		}

		media := c.Request().PostArgs().PeekMulti("MediaUrl")
		msg := newMessage(c.Params("account"), to, from, c.FormValue("Body"), "outbound-api", len(media))
		for _, m := range media {
			msg.media = append(msg.media, string(m))
		}
		st.add(msg)

		log.Info("mock provider accepted message", "sid", msg.SID, "to", to, "media", len(media))

		if inboundHook != "" && msg.Body != "" {
			go simulateReply(inboundHook, st, msg, log)
		}

		return c.Status(fiber.StatusCreated).JSON(msg)
	})

	api.Get("/Messages.json", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"messages":      st.list(c.Params("account"), c.Query("To"), c.Query("From")),
			"next_page_uri": nil,
		})
	})

	api.Get("/Messages/:sid/Media.json", func(c *fiber.Ctx) error {
		msg := st.find(c.Params("sid"))
		if msg == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"code": 20404, "message": "not found", "status": 404})
		}
		list := make([]fiber.Map, 0, len(msg.media))
		for i := range msg.media {
			meSID := "ME" + strings.ReplaceAll(uuid.NewString(), "-", "")
			list = append(list, fiber.Map{
				"sid":          meSID,
				"content_type": "image/jpeg",
				"uri":          "/2010-04-01/Accounts/" + msg.AccountSID + "/Messages/" + msg.SID + "/Media/" + meSID + ".json",
				"index":        i,
			})
		}
		return c.JSON(fiber.Map{"media_list": list})
	})

	api.Get("/Messages/:sid.json", func(c *fiber.Ctx) error {
		msg := st.find(c.Params("sid"))
		if msg == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"code": 20404, "message": "The requested resource was not found", "status": 404})
		}
		return c.JSON(msg)
	})

	api.Get("/Balance.json", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"account_sid": c.Params("account"), "balance": "100.00", "currency": "USD"})
	})

	fiberApp.Get("/v2/PhoneNumbers/:number", func(c *fiber.Ctx) error {
		number, _ := url.PathUnescape(c.Params("number"))
		if !strings.HasPrefix(number, "+") {
			return c.JSON(fiber.Map{"phone_number": number, "valid": false, "line_type_intelligence": nil})
		}
		return c.JSON(fiber.Map{
			"phone_number": number,
			"valid":        true,
			"line_type_intelligence": fiber.Map{
				"type":         "mobile",
				"carrier_name": "Mock Wireless",
			},
		})
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("mock-sms-provider listening", "addr", addr)
		if err := fiberApp.Listen(addr); err != nil {
			log.Error("fiber listen", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down mock-sms-provider")
	_ = fiberApp.Shutdown()
}

func newMessage(account, to, from, body, direction string, numMedia int) *mockMessage {
	sid := "SM" + strings.ReplaceAll(uuid.NewString(), "-", "")
	msg := &mockMessage{
		SID:        sid,
		AccountSID: account,
		To:         to,
		From:       from,
		Body:       body,
		Status:     "delivered",
		Direction:  direction,
		DateSent:   time.Now().UTC().Format(time.RFC1123Z),
		NumMedia:   strconv.Itoa(numMedia),
		SubresourceURIs: map[string]string{
			"media": "/2010-04-01/Accounts/" + account + "/Messages/" + sid + "/Media.json",
		},
	}
	if direction != "outbound-api" {
		msg.Status = "received"
	}
	return msg
}

// simulateReply has the recipient answer, delivering the reply to the
// gateway's webhook after a short delay.
func simulateReply(hookURL string, st *store, sent *mockMessage, log *slog.Logger) {
	time.Sleep(500 * time.Millisecond) // simulate async network delivery

	reply := newMessage(sent.AccountSID, sent.From, sent.To, "Re: "+sent.Body, "inbound", 0)
	st.add(reply)

	form := url.Values{
		"MessageSid": {reply.SID},
		"AccountSid": {reply.AccountSID},
		"From":       {reply.From},
		"To":         {reply.To},
		"Body":       {reply.Body},
		"NumMedia":   {"0"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hookURL, strings.NewReader(form.Encode()))
	if err != nil {
		log.Error("create webhook request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Error("inbound webhook call failed", "sid", reply.SID, "err", err)
		return
	}
	defer resp.Body.Close()
	log.Info("inbound webhook called", "sid", reply.SID, "status", resp.StatusCode)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
