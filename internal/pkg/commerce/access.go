package commerce

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ManuelReschke/videopass/app/repository"
	"github.com/ManuelReschke/videopass/internal/pkg/metrics"
	"github.com/ManuelReschke/videopass/internal/pkg/tracing"
)

// AccessGate answers whether a buyer may play a video. It has no cache;
// a grant is visible as soon as the webhook commits it.
type AccessGate struct {
	users   repository.UserRepository
	access  repository.AccessRepository
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewAccessGate(repos *repository.Repositories, log *zap.Logger, m *metrics.Metrics) *AccessGate {
	return &AccessGate{
		users:   repos.User,
		access:  repos.Access,
		log:     log,
		metrics: m,
	}
}

// CheckAccess reports whether email has been granted videoID. An unknown
// email is not an error.
func (g *AccessGate) CheckAccess(ctx context.Context, email string, videoID uint) (bool, error) {
	ctx, span := tracing.Tracer().Start(ctx, "commerce.CheckAccess")
	defer span.End()
	span.SetAttributes(attribute.Int64("video.id", int64(videoID)))

	email = strings.TrimSpace(email)
	if email == "" {
		return false, newError(KindValidation, CodeInvalidEmail, nil)
	}
	if videoID == 0 {
		return false, newError(KindValidation, CodeInvalidVideoID, nil)
	}

	user, err := g.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			g.metrics.AccessCheck(false)
			return false, nil
		}
		g.log.Error("user lookup failed", zap.Uint("video_id", videoID), zap.Error(err))
		return false, newError(KindDownstream, CodeStoreUnavailable, err)
	}

	ok, err := g.access.Exists(ctx, user.ID, videoID)
	if err != nil {
		g.log.Error("access lookup failed",
			zap.Uint("user_id", user.ID),
			zap.Uint("video_id", videoID),
			zap.Error(err),
		)
		return false, newError(KindDownstream, CodeStoreUnavailable, err)
	}
	g.metrics.AccessCheck(ok)
	span.SetAttributes(attribute.Bool("access.granted", ok))
	return ok, nil
}
