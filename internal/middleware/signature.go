package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SignatureHeader is the header carrying the provider's request signature.
const SignatureHeader = "X-Twilio-Signature"

// TwilioSignature rejects webhook requests whose signature does not match
// authToken. publicURL is the externally visible base URL the provider
// calls; when empty the request's own URL is used.
func TwilioSignature(authToken, publicURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		url := c.OriginalURL()
		if publicURL != "" {
			url = strings.TrimRight(publicURL, "/") + url
		} else {
			url = c.BaseURL() + url
		}

		params := map[string]string{}
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			params[string(k)] = string(v)
		})

		expected := ComputeSignature(authToken, url, params)
		if !hmac.Equal([]byte(expected), []byte(c.Get(SignatureHeader))) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid signature"})
		}
		return c.Next()
	}
}

// ComputeSignature signs url followed by every parameter name and value,
// sorted by name, with HMAC-SHA1 keyed by authToken.
func ComputeSignature(authToken, url string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(url)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
