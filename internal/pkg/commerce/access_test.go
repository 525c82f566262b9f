package commerce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ManuelReschke/videopass/app/models"
)

func TestCheckAccess(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "ana@example.com")
	_, err := env.repos.Access.Grant(context.Background(), &models.Access{UserID: user.ID, VideoID: 8})
	require.NoError(t, err)

	gate := NewAccessGate(env.repos, zap.NewNop(), nil)

	ok, err := gate.CheckAccess(context.Background(), "ana@example.com", 8)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = gate.CheckAccess(context.Background(), "ana@example.com", 9)
	require.NoError(t, err)
	assert.False(t, ok)

	// emails are exact keys
	ok, err = gate.CheckAccess(context.Background(), "ANA@example.com", 8)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckAccessUnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	gate := NewAccessGate(env.repos, zap.NewNop(), nil)

	ok, err := gate.CheckAccess(context.Background(), "nobody@x.com", 8)
	require.NoError(t, err)
	assert.False(t, ok)

	var users int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
}

func TestCheckAccessValidation(t *testing.T) {
	env := newTestEnv(t)
	gate := NewAccessGate(env.repos, zap.NewNop(), nil)

	_, err := gate.CheckAccess(context.Background(), "", 8)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = gate.CheckAccess(context.Background(), "ana@example.com", 0)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, CodeInvalidVideoID, CodeOf(err))
}
