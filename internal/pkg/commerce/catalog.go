package commerce

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ManuelReschke/videopass/app/models"
	"github.com/ManuelReschke/videopass/app/repository"
	"github.com/ManuelReschke/videopass/internal/pkg/cache"
)

const catalogCacheKey = "videopass:catalog:v1"

// VideoView is the public catalog entry.
type VideoView struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	URL         string  `json:"url"`
}

func NewVideoView(v models.Video) VideoView {
	return VideoView{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		Price:       v.Price.InexactFloat64(),
		URL:         v.PrivateURL,
	}
}

// Catalog lists videos through an optional read-through cache. Cache
// errors fall back to the store.
type Catalog struct {
	videos repository.VideoRepository
	cache  cache.Store
	ttl    time.Duration
	log    *zap.Logger
}

// NewCatalog builds a Catalog. A nil store or a zero ttl disables caching.
func NewCatalog(videos repository.VideoRepository, store cache.Store, ttl time.Duration, log *zap.Logger) *Catalog {
	if ttl <= 0 {
		store = nil
	}
	return &Catalog{videos: videos, cache: store, ttl: ttl, log: log}
}

func (c *Catalog) ListVideos(ctx context.Context) ([]VideoView, error) {
	if c.cache != nil {
		if raw, ok, err := c.cache.Get(ctx, catalogCacheKey); err != nil {
			c.log.Warn("catalog cache read failed", zap.Error(err))
		} else if ok {
			var views []VideoView
			if err := json.Unmarshal(raw, &views); err == nil {
				return views, nil
			}
			c.log.Warn("discarding undecodable catalog cache entry")
		}
	}

	videos, err := c.videos.List(ctx)
	if err != nil {
		c.log.Error("catalog query failed", zap.Error(err))
		return nil, newError(KindDownstream, CodeStoreUnavailable, err)
	}

	views := make([]VideoView, 0, len(videos))
	for _, v := range videos {
		views = append(views, NewVideoView(v))
	}

	if c.cache != nil {
		if raw, err := json.Marshal(views); err == nil {
			if err := c.cache.Set(ctx, catalogCacheKey, raw, c.ttl); err != nil {
				c.log.Warn("catalog cache write failed", zap.Error(err))
			}
		}
	}
	return views, nil
}

// invalidate drops the cached catalog.
func (c *Catalog) invalidate(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Delete(ctx, catalogCacheKey)
}
