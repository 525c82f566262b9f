package router

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	deps Deps
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	origins := "*"
	if len(h.deps.Config.App.AllowedOrigins) > 0 {
		origins = strings.Join(h.deps.Config.App.AllowedOrigins, ",")
	}

	orders := app.Group("/api/orders", cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	orders.Get("/videos", h.deps.Shop.HandleListVideos)
	orders.Get("/videos/:id/playback", h.deps.Shop.HandlePlayback)
	orders.Post("/checkout", h.checkoutLimiter(), h.deps.Shop.HandleCheckout)
	orders.Get("/access/check", h.deps.Shop.HandleAccessCheck)

	// Paddle signs the raw body; no CORS preflight ever reaches this route
	orders.Post("/webhook", h.deps.Webhooks.HandlePaddleWebhook)
}

func (h ApiRouter) checkoutLimiter() fiber.Handler {
	rl := h.deps.Config.RateLimit
	if rl.Max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        rl.Max,
		Expiration: rl.Expiration,
		Storage:    h.deps.LimiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		},
	})
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}
