package router

import (
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"go.uber.org/zap"
)

type HttpRouter struct {
	deps Deps
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", h.deps.Health.HandleHealth)

	if h.deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(h.deps.Metrics.Handler()))
	}

	// fiber monitor is only exposed behind credentials
	if mon := h.deps.Config.Monitor; mon.Password != "" {
		app.Get("/monitor", basicauth.New(basicauth.Config{
			Users: map[string]string{mon.User: mon.Password},
		}), monitor.New(monitor.Config{Title: "videopass"}))
	}

	// SWAGGER / OPENAPI
	docs := h.deps.Config.App.DocsPath
	if _, err := os.Stat(docs); err != nil {
		h.deps.Log.Warn("openapi document not found, /docs/api disabled", zap.String("path", docs))
		return
	}
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: docs,
		Path:     "v1",
		Title:    "videopass API",
	}))
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{deps: deps}
}
