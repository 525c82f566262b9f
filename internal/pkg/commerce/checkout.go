package commerce

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ManuelReschke/videopass/app/models"
	"github.com/ManuelReschke/videopass/app/repository"
	"github.com/ManuelReschke/videopass/internal/pkg/billing"
	"github.com/ManuelReschke/videopass/internal/pkg/config"
	"github.com/ManuelReschke/videopass/internal/pkg/metrics"
	"github.com/ManuelReschke/videopass/internal/pkg/tracing"
)

var validate = validator.New()

// PaymentProvider creates hosted transactions. *billing.PaddleClient is the
// production implementation.
type PaymentProvider interface {
	CreateTransaction(ctx context.Context, in billing.TransactionRequest) (*billing.Transaction, error)
}

type CheckoutResult struct {
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
	CheckoutURL   string `json:"checkoutUrl"`
}

// OrderService turns a checkout request into a pending order plus a Paddle
// transaction.
type OrderService struct {
	paddle   config.PaddleConfig
	users    repository.UserRepository
	videos   repository.VideoRepository
	orders   repository.OrderRepository
	provider PaymentProvider
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewOrderService(paddle config.PaddleConfig, repos *repository.Repositories, provider PaymentProvider, log *zap.Logger, m *metrics.Metrics) *OrderService {
	return &OrderService{
		paddle:   paddle,
		users:    repos.User,
		videos:   repos.Video,
		orders:   repos.Order,
		provider: provider,
		log:      log,
		metrics:  m,
	}
}

// CreateCheckout creates a pending order for (email, videoID) and hands it
// to Paddle. A pending order is left behind when the Paddle call fails;
// pending orders never grant access.
func (s *OrderService) CreateCheckout(ctx context.Context, email string, videoID uint) (result *CheckoutResult, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "commerce.CreateCheckout")
	span.SetAttributes(attribute.Int64("video.id", int64(videoID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, CodeOf(err))
			s.metrics.CheckoutResult(KindOf(err).String())
		} else {
			s.metrics.CheckoutResult("ok")
		}
		span.End()
	}()

	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email,max=200"); err != nil {
		return nil, newError(KindValidation, CodeInvalidEmail, err)
	}
	if videoID == 0 {
		return nil, newError(KindValidation, CodeInvalidVideoID, nil)
	}

	priceID, ok := s.paddle.PriceMap.PriceID(videoID)
	if !ok {
		s.log.Error("no paddle price configured for video", zap.Uint("video_id", videoID))
		return nil, newError(KindConfiguration, CodePriceNotConfigured, nil)
	}
	if strings.TrimSpace(s.paddle.APIKey) == "" {
		s.log.Error("paddle api key is not configured")
		return nil, newError(KindConfiguration, CodeProviderNotConfigured, billing.ErrMissingAPIKey)
	}

	user, err := s.findOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}

	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(KindNotFound, CodeVideoNotFound, err)
		}
		s.log.Error("video lookup failed", zap.Uint("video_id", videoID), zap.Error(err))
		return nil, newError(KindDownstream, CodeStoreUnavailable, err)
	}

	order := &models.Order{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		VideoID:  video.ID,
		Amount:   video.Price,
		State:    models.ORDER_STATE_PENDING,
		Provider: models.PROVIDER_PADDLE,
	}
	if err := order.Validate(); err != nil {
		return nil, newError(KindInternal, "invalid_order", err)
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.log.Error("order insert failed",
			zap.Uint("user_id", user.ID),
			zap.Uint("video_id", video.ID),
			zap.Error(err),
		)
		return nil, newError(KindDownstream, CodeStoreUnavailable, err)
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	tx, err := s.provider.CreateTransaction(ctx, billing.TransactionRequest{
		PriceID:       priceID,
		Quantity:      1,
		CustomerEmail: email,
		CustomData: billing.CustomData{
			OrderID: order.ID,
			UserID:  user.ID,
			VideoID: video.ID,
		},
	})
	if err != nil {
		s.log.Error("paddle transaction failed",
			zap.String("order_id", order.ID),
			zap.String("price_id", priceID),
			zap.Error(err),
		)
		return nil, newError(KindDownstream, CodeProviderUnavailable, err)
	}
	span.SetAttributes(attribute.String("paddle.transaction_id", tx.ID))

	// The webhook can resolve the order by custom_data.orderId, so a failed
	// link does not fail the checkout.
	if linked, err := s.orders.LinkTransaction(ctx, order.ID, tx.ID); err != nil {
		s.log.Warn("could not link transaction to order",
			zap.String("order_id", order.ID),
			zap.String("transaction_id", tx.ID),
			zap.Error(err),
		)
	} else if !linked {
		s.log.Debug("order already linked to a transaction",
			zap.String("order_id", order.ID),
			zap.String("transaction_id", tx.ID),
		)
	}

	s.log.Info("checkout created",
		zap.String("order_id", order.ID),
		zap.String("transaction_id", tx.ID),
		zap.Uint("user_id", user.ID),
		zap.Uint("video_id", video.ID),
	)

	return &CheckoutResult{
		OrderID:       order.ID,
		TransactionID: tx.ID,
		CheckoutURL:   tx.CheckoutURL,
	}, nil
}

// findOrCreateUser treats a duplicate insert as a concurrent checkout for
// the same email and re-reads the winner's row.
func (s *OrderService) findOrCreateUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !repository.IsNotFound(err) {
		s.log.Error("user lookup failed", zap.Error(err))
		return nil, newError(KindDownstream, CodeStoreUnavailable, err)
	}

	user = &models.User{Email: email}
	err = s.users.Create(ctx, user)
	if err == nil {
		return user, nil
	}
	if !repository.IsDuplicateKey(err) {
		s.log.Error("user insert failed", zap.Error(err))
		return nil, newError(KindDownstream, CodeStoreUnavailable, err)
	}

	user, err = s.users.GetByEmail(ctx, email)
	if err != nil {
		s.log.Error("user re-read after duplicate insert failed", zap.Error(err))
		return nil, newError(KindDownstream, CodeStoreUnavailable, err)
	}
	return user, nil
}
