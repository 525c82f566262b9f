package router

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/videopass/app/controllers"
	"github.com/ManuelReschke/videopass/internal/pkg/config"
	"github.com/ManuelReschke/videopass/internal/pkg/metrics"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps carries everything the route tables need. LimiterStorage may be nil,
// in which case the rate limiter keeps its counters in memory.
type Deps struct {
	Config         *config.Config
	Log            *zap.Logger
	Metrics        *metrics.Metrics
	LimiterStorage fiber.Storage

	Shop     *controllers.ShopController
	Webhooks *controllers.WebhookController
	Health   *controllers.HealthController
}

func InstallRouter(app *fiber.App, deps Deps) {
	// operational routes first so /metrics and /health stay outside the CORS group
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
