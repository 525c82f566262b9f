package main

import (
	"context"
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	fiberredis "github.com/gofiber/storage/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ManuelReschke/videopass/app/controllers"
	"github.com/ManuelReschke/videopass/app/repository"
	"github.com/ManuelReschke/videopass/internal/pkg/billing"
	"github.com/ManuelReschke/videopass/internal/pkg/cache"
	"github.com/ManuelReschke/videopass/internal/pkg/commerce"
	"github.com/ManuelReschke/videopass/internal/pkg/config"
	"github.com/ManuelReschke/videopass/internal/pkg/metrics"
	"github.com/ManuelReschke/videopass/internal/pkg/middleware"
	"github.com/ManuelReschke/videopass/internal/pkg/playback"
	"github.com/ManuelReschke/videopass/internal/pkg/router"
)

// NewApplication wires repositories, services and routes onto a fiber app.
func NewApplication(ctx context.Context, cfg *config.Config, lg *zap.Logger, db *gorm.DB) *fiber.App {
	repos := repository.NewRepositories(db)
	m := metrics.New()

	var (
		store          cache.Store
		limiterStorage fiber.Storage
		closers        []func() error
	)
	if cfg.Cache.RedisEnabled() {
		redisStore := cache.NewRedisStore(ctx, cfg.Cache, lg)
		limiterStorage = newLimiterStorage(cfg.Cache)
		store = redisStore
		closers = append(closers, redisStore.Close, limiterStorage.Close)
	} else {
		store = cache.NewMemoryStore(32, cfg.Cache.CatalogTTL)
	}

	var signer playback.URLSigner
	if cfg.Playback.S3Enabled() {
		s3Signer, err := playback.NewS3Signer(ctx, cfg.Playback)
		if err != nil {
			lg.Warn("s3 playback signing disabled", zap.Error(err))
		} else {
			signer = s3Signer
		}
	}

	gate := commerce.NewAccessGate(repos, lg, m)
	shop := controllers.NewShopController(
		commerce.NewCatalog(repos.Video, store, cfg.Cache.CatalogTTL, lg),
		commerce.NewOrderService(cfg.Paddle, repos, billing.NewPaddleClient(cfg.Paddle), lg, m),
		gate,
		playback.NewService(gate, repos.Video, signer, cfg.Playback.URLTTL, lg),
	)

	app := fiber.New(fiber.Config{
		AppName:   "videopass",
		BodyLimit: 1 << 20,
	})
	app.Use(recover.New(), requestid.New(), middleware.RequestLogger(lg))
	app.Hooks().OnShutdown(func() error {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				lg.Warn("closing cache connection", zap.Error(err))
			}
		}
		return nil
	})

	// ROUTER
	router.InstallRouter(app, router.Deps{
		Config:         cfg,
		Log:            lg,
		Metrics:        m,
		LimiterStorage: limiterStorage,
		Shop:           shop,
		Webhooks:       controllers.NewWebhookController(commerce.NewReconciler(cfg.Paddle, repos, lg, m)),
		Health:         controllers.NewHealthController(db),
	})

	return app
}

// newLimiterStorage keeps rate limit counters in the cache server so all
// instances share them. Database 1 is used to stay clear of the catalog keys.
func newLimiterStorage(cfg config.CacheConfig) fiber.Storage {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		port = 6379
	}
	host := cfg.Host
	if h, _, err := net.SplitHostPort(cfg.Host); err == nil {
		host = h
	}
	return fiberredis.New(fiberredis.Config{
		Host:     host,
		Port:     port,
		Password: cfg.Password,
		Database: 1,
		Reset:    false,
	})
}
