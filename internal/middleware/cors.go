package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORSConfig returns CORS configuration for the JSON API.
// allowedOrigins is a comma-separated list; "*" is never used with credentials.
func CORSConfig(allowedOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: allowedOrigins,

		// The API only reads and creates resources.
		AllowMethods: "GET,POST,OPTIONS",

		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",

		AllowCredentials: false,

		ExposeHeaders: "Content-Length,X-Request-ID",

		MaxAge: 3600, // 1 hour
	})
}
