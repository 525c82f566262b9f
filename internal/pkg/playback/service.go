package playback

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ManuelReschke/videopass/app/repository"
	"github.com/ManuelReschke/videopass/internal/pkg/commerce"
)

// AccessChecker is satisfied by *commerce.AccessGate.
type AccessChecker interface {
	CheckAccess(ctx context.Context, email string, videoID uint) (bool, error)
}

// Link is a playable URL. ExpiresAt is nil for URLs that are not signed.
type Link struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

type Service struct {
	gate   AccessChecker
	videos repository.VideoRepository
	signer URLSigner
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

// NewService builds the playback resolver. signer may be nil, in which case
// stored URLs are returned unchanged.
func NewService(gate AccessChecker, videos repository.VideoRepository, signer URLSigner, ttl time.Duration, log *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{gate: gate, videos: videos, signer: signer, ttl: ttl, log: log, now: time.Now}
}

// Resolve returns a playable link for videoID if email holds access to it.
func (s *Service) Resolve(ctx context.Context, email string, videoID uint) (*Link, error) {
	if videoID == 0 {
		return nil, &commerce.Error{Kind: commerce.KindValidation, Code: commerce.CodeInvalidVideoID}
	}

	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, &commerce.Error{Kind: commerce.KindNotFound, Code: commerce.CodeVideoNotFound, Err: err}
		}
		return nil, &commerce.Error{Kind: commerce.KindDownstream, Code: commerce.CodeStoreUnavailable, Err: err}
	}

	ok, err := s.gate.CheckAccess(ctx, email, videoID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &commerce.Error{Kind: commerce.KindForbidden, Code: commerce.CodeForbidden}
	}

	bucket, key, isS3 := parseS3URL(video.PrivateURL)
	if !isS3 || s.signer == nil {
		return &Link{URL: video.PrivateURL}, nil
	}

	signed, err := s.signer.PresignGet(ctx, bucket, key, s.ttl)
	if err != nil {
		s.log.Error("presigning playback url failed", zap.Uint("video_id", videoID), zap.Error(err))
		return nil, &commerce.Error{Kind: commerce.KindDownstream, Code: "playback_unavailable", Err: err}
	}
	expires := s.now().Add(s.ttl).UTC()
	return &Link{URL: signed, ExpiresAt: &expires}, nil
}

// parseS3URL splits "s3://bucket/some/key.mp4".
func parseS3URL(raw string) (bucket, key string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", false
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", false
	}
	return u.Host, key, true
}
