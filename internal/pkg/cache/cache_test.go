package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ManuelReschke/videopass/internal/pkg/config"
)

func TestRedisStoreUnreachableReturnsErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	store := NewRedisStore(ctx, config.CacheConfig{Host: "127.0.0.1", Port: "1"}, zap.NewNop())
	defer store.Close()

	_, ok, err := store.Get(ctx, "videopass:test")
	assert.False(t, ok)
	require.Error(t, err)
	assert.Error(t, store.Set(ctx, "videopass:test", []byte("x"), time.Second))
	assert.Error(t, store.Delete(ctx, "videopass:test"))
}
