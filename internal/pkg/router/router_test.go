package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ManuelReschke/videopass/app/controllers"
	"github.com/ManuelReschke/videopass/app/repository"
	"github.com/ManuelReschke/videopass/internal/pkg/billing"
	"github.com/ManuelReschke/videopass/internal/pkg/commerce"
	"github.com/ManuelReschke/videopass/internal/pkg/config"
	"github.com/ManuelReschke/videopass/internal/pkg/database"
	"github.com/ManuelReschke/videopass/internal/pkg/metrics"
	"github.com/ManuelReschke/videopass/internal/pkg/playback"
)

const openAPIFile = "../../../public/docs/v1/openapi.yml"

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "4000", DocsPath: openAPIFile},
		Paddle: config.PaddleConfig{
			APIKey:                "pdl_test",
			Environment:           config.PADDLE_ENV_SANDBOX,
			BaseURL:               "http://127.0.0.1:1",
			WebhookSecret:         "secret",
			SignatureVerification: config.SIGNATURE_VERIFICATION_ENABLED,
			HTTPTimeout:           time.Second,
			PriceMap:              config.PriceMap{8: "pri_08"},
		},
		RateLimit: config.RateLimitConfig{Max: 2, Expiration: time.Minute},
		Monitor:   config.MonitorConfig{User: "admin", Password: "s3cret"},
	}
}

func newApp(t *testing.T, cfg *config.Config) *fiber.App {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	log := zap.NewNop()
	m := metrics.New()
	repos := repository.NewRepositories(db)
	gate := commerce.NewAccessGate(repos, log, m)

	app := fiber.New()
	InstallRouter(app, Deps{
		Config:  cfg,
		Log:     log,
		Metrics: m,
		Shop: controllers.NewShopController(
			commerce.NewCatalog(repos.Video, nil, 0, log),
			commerce.NewOrderService(cfg.Paddle, repos, billing.NewPaddleClient(cfg.Paddle), log, m),
			gate,
			playback.NewService(gate, repos.Video, nil, 0, log),
		),
		Webhooks: controllers.NewWebhookController(commerce.NewReconciler(cfg.Paddle, repos, log, m)),
		Health:   controllers.NewHealthController(db),
	})
	return app
}

func call(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestOperationalRoutes(t *testing.T) {
	app := newApp(t, testConfig())

	resp, body := call(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"ok"`)

	call(t, app, httptest.NewRequest(http.MethodGet, "/api/orders/access/check?userEmail=a@b.co&videoId=8", nil))
	resp, body = call(t, app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `videopass_access_checks_total{has_access="false"} 1`)
	assert.Contains(t, body, "go_goroutines")

	resp, _ = call(t, app, httptest.NewRequest(http.MethodGet, "/monitor", nil))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/monitor", nil)
	req.SetBasicAuth("admin", "s3cret")
	resp, _ = call(t, app, req)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = call(t, app, httptest.NewRequest(http.MethodGet, "/docs/api/v1", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMonitorDisabledWithoutPassword(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.Password = ""
	cfg.App.DocsPath = "does/not/exist.yml"
	app := newApp(t, cfg)

	resp, _ := call(t, app, httptest.NewRequest(http.MethodGet, "/monitor", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = call(t, app, httptest.NewRequest(http.MethodGet, "/docs/api/v1", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCheckoutIsRateLimited(t *testing.T) {
	app := newApp(t, testConfig())

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/orders/checkout", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp, body := call(t, app, req)
		statuses = append(statuses, resp.StatusCode)
		if resp.StatusCode == fiber.StatusTooManyRequests {
			assert.Contains(t, body, "rate_limited")
		}
	}
	assert.Equal(t, []int{400, 400, 429}, statuses)

	// other routes are not limited
	for i := 0; i < 3; i++ {
		resp, _ := call(t, app, httptest.NewRequest(http.MethodGet, "/api/orders/videos", nil))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig()
	cfg.App.AllowedOrigins = []string{"https://shop.example.com"}
	app := newApp(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/orders/checkout", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, _ := call(t, app, req)

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://shop.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestOpenAPIDocumentIsValid(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(openAPIFile)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))

	for _, path := range []string{
		"/api/orders/videos",
		"/api/orders/checkout",
		"/api/orders/webhook",
		"/api/orders/access/check",
		"/api/orders/videos/{id}/playback",
	} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}
}
