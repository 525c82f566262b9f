package commerce

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ManuelReschke/videopass/app/models"
	"github.com/ManuelReschke/videopass/internal/pkg/cache"
)

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}
func (brokenStore) Delete(context.Context, string) error { return errors.New("cache down") }

func TestListVideos(t *testing.T) {
	env := newTestEnv(t)
	env.seedVideo(t, 9, "12.50")
	env.seedVideo(t, 8, "10")

	views, err := NewCatalog(env.repos.Video, nil, 0, zap.NewNop()).ListVideos(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, uint(8), views[0].ID)
	assert.Equal(t, 12.5, views[1].Price)
	assert.Equal(t, "https://cdn.example.com/private/video.mp4", views[0].URL)
}

func TestListVideosEmpty(t *testing.T) {
	env := newTestEnv(t)
	views, err := NewCatalog(env.repos.Video, nil, 0, zap.NewNop()).ListVideos(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestListVideosUsesCache(t *testing.T) {
	env := newTestEnv(t)
	env.seedVideo(t, 8, "10")
	catalog := NewCatalog(env.repos.Video, cache.NewMemoryStore(8, time.Minute), time.Minute, zap.NewNop())

	first, err := catalog.ListVideos(context.Background())
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&models.Video{}).Where("id = ?", 8).Update("precio", decimal.NewFromInt(20)).Error)

	cached, err := catalog.ListVideos(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	require.NoError(t, catalog.invalidate(context.Background()))
	fresh, err := catalog.ListVideos(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(20), fresh[0].Price)
}

func TestListVideosCacheFailureFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.seedVideo(t, 8, "10")

	views, err := NewCatalog(env.repos.Video, brokenStore{}, time.Minute, zap.NewNop()).ListVideos(context.Background())
	require.NoError(t, err)
	assert.Len(t, views, 1)
}
