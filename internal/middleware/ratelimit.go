package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *fiber.Ctx) string

// ByIP counts requests per client address.
func ByIP(c *fiber.Ctx) string { return c.IP() }

// BySender counts webhook callbacks per From number, falling back to the
// client address for requests without one.
func BySender(c *fiber.Ctx) string {
	if from := c.FormValue("From"); from != "" {
		return "from:" + from
	}
	return c.IP()
}

// RateLimiter implements token bucket algorithm for rate limiting
type RateLimiter struct {
	visitors map[string]*Visitor
	mu       sync.Mutex
	rate     int           // requests per window
	window   time.Duration // time window
	key      KeyFunc
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type Visitor struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a rate limiter allowing rate requests per window for
// each key. Call Stop to end the background cleanup.
func NewRateLimiter(rate int, window time.Duration, key KeyFunc) *RateLimiter {
	if key == nil {
		key = ByIP
	}
	rl := &RateLimiter{
		visitors: make(map[string]*Visitor),
		rate:     rate,
		window:   window,
		key:      key,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	go rl.cleanup(5 * time.Minute)

	return rl
}

// Middleware returns a Fiber middleware handler
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" {
			return c.Next()
		}

		if !rl.allow(rl.key(c)) {
			retry := strconv.Itoa(int(rl.window.Seconds()))
			c.Set("X-RateLimit-Limit", strconv.Itoa(rl.rate))
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("Retry-After", retry)

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"message":     "Too many requests. Please try again later.",
				"retry_after": int(rl.window.Seconds()),
			})
		}

		return c.Next()
	}
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	visitor, exists := rl.visitors[key]
	if !exists {
		visitor = &Visitor{
			tokens:     rl.rate,
			lastRefill: rl.now(),
		}
		rl.visitors[key] = visitor
	}
	rl.mu.Unlock()

	visitor.mu.Lock()
	defer visitor.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(visitor.lastRefill)

	if elapsed >= rl.window {
		visitor.tokens = rl.rate
		visitor.lastRefill = now
	} else {
		tokensToAdd := int(float64(rl.rate) * (elapsed.Seconds() / rl.window.Seconds()))
		visitor.tokens += tokensToAdd
		if visitor.tokens > rl.rate {
			visitor.tokens = rl.rate
		}
		if tokensToAdd > 0 {
			visitor.lastRefill = now
		}
	}

	if visitor.tokens > 0 {
		visitor.tokens--
		return true
	}

	return false
}

// cleanup removes inactive visitors
func (rl *RateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, visitor := range rl.visitors {
		visitor.mu.Lock()
		if now.Sub(visitor.lastRefill) > rl.window*2 {
			delete(rl.visitors, key)
		}
		visitor.mu.Unlock()
	}
}
