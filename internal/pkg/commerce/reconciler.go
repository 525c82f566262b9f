package commerce

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/videopass/app/models"
	"github.com/ManuelReschke/videopass/app/repository"
	"github.com/ManuelReschke/videopass/internal/pkg/billing"
	"github.com/ManuelReschke/videopass/internal/pkg/config"
	"github.com/ManuelReschke/videopass/internal/pkg/metrics"
	"github.com/ManuelReschke/videopass/internal/pkg/tracing"
)

// Outcome is how a webhook delivery was settled.
type Outcome string

const (
	OutcomeUnauthorized   Outcome = "unauthorized"
	OutcomeMalformed      Outcome = "malformed"
	OutcomeIgnoredEvent   Outcome = "ignored_event"
	OutcomeUnlinked       Outcome = "unlinked"
	OutcomeRejectedOrder  Outcome = "rejected_order"
	OutcomeGranted        Outcome = "granted"
	OutcomeAlreadyGranted Outcome = "already_granted"
	OutcomeFailed         Outcome = "failed"
)

// Delivery summarizes one processed webhook delivery.
type Delivery struct {
	Outcome       Outcome
	EventType     string
	TransactionID string
	OrderID       string
	UserID        uint
	VideoID       uint
}

// Reconciler applies Paddle payment notifications to local orders and
// grants access. Every step is idempotent, so any failure is answered with
// an error and left to Paddle's redelivery.
type Reconciler struct {
	paddle  config.PaddleConfig
	orders  repository.OrderRepository
	access  repository.AccessRepository
	events  repository.WebhookEventRepository
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewReconciler(paddle config.PaddleConfig, repos *repository.Repositories, log *zap.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		paddle:  paddle,
		orders:  repos.Order,
		access:  repos.Access,
		events:  repos.WebhookEvent,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// HandleDelivery authenticates and applies one delivery. A nil error means
// the delivery must be acknowledged with 200, whatever the outcome.
func (r *Reconciler) HandleDelivery(ctx context.Context, rawBody []byte, signatureHeader string) (delivery *Delivery, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "commerce.HandleDelivery")
	delivery = &Delivery{}
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, CodeOf(err))
		}
		span.SetAttributes(attribute.String("webhook.outcome", string(delivery.Outcome)))
		r.metrics.WebhookDelivery(string(delivery.Outcome))
		span.End()
	}()

	if r.paddle.VerifySignatures() {
		if verr := billing.VerifyPaddleWebhookSignature(rawBody, signatureHeader, r.paddle.WebhookSecret, r.paddle.WebhookTolerance, r.now()); verr != nil {
			r.log.Warn("webhook signature rejected", zap.Error(verr))
			delivery.Outcome = OutcomeUnauthorized
			return delivery, newError(KindUnauthorized, CodeUnauthorized, verr)
		}
	}

	ev, perr := billing.ParsePaddleWebhookEvent(rawBody)
	if perr != nil {
		r.log.Warn("webhook body is not a paddle event", zap.Error(perr))
		delivery.Outcome = OutcomeMalformed
		return delivery, nil
	}
	delivery.EventType = ev.EventType
	delivery.TransactionID = ev.TransactionID
	span.SetAttributes(
		attribute.String("webhook.event_type", ev.EventType),
		attribute.String("paddle.transaction_id", ev.TransactionID),
	)

	if !billing.IsActionableEvent(ev.EventType) {
		r.log.Debug("ignoring webhook event", zap.String("event_type", ev.EventType))
		delivery.Outcome = OutcomeIgnoredEvent
		return delivery, nil
	}
	if ev.TransactionID == "" {
		r.log.Warn("payment event without transaction id", zap.String("event_type", ev.EventType))
		delivery.Outcome = OutcomeMalformed
		return delivery, nil
	}

	order, err := r.resolveOrder(ctx, ev)
	if err != nil {
		delivery.Outcome = OutcomeFailed
		return delivery, err
	}
	if order == nil {
		r.log.Info("payment event for unknown order",
			zap.String("transaction_id", ev.TransactionID),
			zap.String("order_id", ev.CustomData.OrderID),
		)
		delivery.Outcome = OutcomeUnlinked
		return delivery, nil
	}
	delivery.OrderID = order.ID
	span.SetAttributes(attribute.String("order.id", order.ID))

	// only deliveries that reach a local order leave an audit row
	record := r.recordEvent(ctx, ev, rawBody)
	defer func() {
		processingErr := ""
		switch {
		case err != nil:
			processingErr = err.Error()
		case delivery.Outcome == OutcomeRejectedOrder:
			processingErr = "order is rejected; payment needs manual reconciliation"
		}
		r.markProcessed(ctx, record, processingErr)
	}()

	if order.IsRejected() {
		r.log.Error("payment confirmed for rejected order",
			zap.String("order_id", order.ID),
			zap.String("transaction_id", ev.TransactionID),
		)
		delivery.Outcome = OutcomeRejectedOrder
		return delivery, nil
	}

	paid, err := r.markPaid(ctx, order, ev.TransactionID)
	if err != nil {
		delivery.Outcome = OutcomeFailed
		return delivery, err
	}
	if !paid {
		r.log.Error("order was rejected before it could be marked paid",
			zap.String("order_id", order.ID),
			zap.String("transaction_id", ev.TransactionID),
		)
		delivery.Outcome = OutcomeRejectedOrder
		return delivery, nil
	}

	created, err := r.grant(ctx, order, ev, delivery)
	if err != nil {
		delivery.Outcome = OutcomeFailed
		return delivery, err
	}
	if created {
		delivery.Outcome = OutcomeGranted
	} else {
		delivery.Outcome = OutcomeAlreadyGranted
	}

	r.log.Info("payment reconciled",
		zap.String("order_id", order.ID),
		zap.String("transaction_id", ev.TransactionID),
		zap.String("event_type", ev.EventType),
		zap.Uint("user_id", delivery.UserID),
		zap.Uint("video_id", delivery.VideoID),
		zap.Bool("access_created", created),
	)
	return delivery, nil
}

// resolveOrder trusts custom_data.orderId first and falls back to the
// linked transaction id. (nil, nil) means no local order matches.
func (r *Reconciler) resolveOrder(ctx context.Context, ev *billing.PaddleWebhookEvent) (*models.Order, error) {
	if ev.CustomData.OrderID != "" {
		order, err := r.orders.GetByID(ctx, ev.CustomData.OrderID)
		if err == nil {
			return order, nil
		}
		if !repository.IsNotFound(err) {
			r.log.Error("order lookup by id failed",
				zap.String("order_id", ev.CustomData.OrderID),
				zap.String("transaction_id", ev.TransactionID),
				zap.Error(err),
			)
			return nil, newError(KindDownstream, CodeStoreUnavailable, err)
		}
	}

	order, err := r.orders.GetByProviderTransactionID(ctx, models.PROVIDER_PADDLE, ev.TransactionID)
	if err == nil {
		return order, nil
	}
	if repository.IsNotFound(err) {
		return nil, nil
	}
	r.log.Error("order lookup by transaction failed",
		zap.String("transaction_id", ev.TransactionID),
		zap.Error(err),
	)
	return nil, newError(KindDownstream, CodeStoreUnavailable, err)
}

// markPaid writes the paid state unless the order already carries it with
// a linked transaction. A different linked transaction id is kept. It
// reports false when the order is not paid afterwards, which only happens
// when it was rejected concurrently.
func (r *Reconciler) markPaid(ctx context.Context, order *models.Order, transactionID string) (bool, error) {
	linked := order.TransactionID()
	if linked != "" && linked != transactionID {
		r.log.Warn("order linked to a different transaction; keeping the linked id",
			zap.String("order_id", order.ID),
			zap.String("linked_transaction_id", linked),
			zap.String("transaction_id", transactionID),
		)
	}
	if order.IsPaid() && linked != "" {
		return true, nil
	}

	updated, err := r.orders.MarkPaid(ctx, order.ID, transactionID, r.now())
	if err != nil {
		r.log.Error("marking order paid failed",
			zap.String("order_id", order.ID),
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
		return false, newError(KindDownstream, CodeStoreUnavailable, err)
	}
	if updated {
		return true, nil
	}

	current, err := r.orders.GetByID(ctx, order.ID)
	if err != nil {
		r.log.Error("re-reading order after mark paid failed",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return false, newError(KindDownstream, CodeStoreUnavailable, err)
	}
	return current.IsPaid(), nil
}

// grant runs on every delivery that reaches a paid order so that a grant
// lost after an earlier mark-paid is created on redelivery.
func (r *Reconciler) grant(ctx context.Context, order *models.Order, ev *billing.PaddleWebhookEvent, delivery *Delivery) (bool, error) {
	userID, videoID := order.UserID, order.VideoID
	if userID == 0 {
		userID = ev.CustomData.UserID
	}
	if videoID == 0 {
		videoID = ev.CustomData.VideoID
	}
	delivery.UserID, delivery.VideoID = userID, videoID

	if userID == 0 || videoID == 0 {
		r.log.Error("paid order has no user or video to grant",
			zap.String("order_id", order.ID),
			zap.String("transaction_id", ev.TransactionID),
		)
		return false, newError(KindInternal, CodeOrderIncomplete, nil)
	}

	orderID := order.ID
	created, err := r.access.Grant(ctx, &models.Access{
		UserID:  userID,
		VideoID: videoID,
		OrderID: &orderID,
	})
	if err != nil {
		r.log.Error("access grant failed",
			zap.String("order_id", order.ID),
			zap.String("transaction_id", ev.TransactionID),
			zap.Uint("user_id", userID),
			zap.Uint("video_id", videoID),
			zap.Error(err),
		)
		return false, newError(KindDownstream, CodeAccessGrantFailed, err)
	}
	r.metrics.AccessGrant(created)
	return created, nil
}

// recordEvent writes the audit row. Failures are logged and never block
// processing.
func (r *Reconciler) recordEvent(ctx context.Context, ev *billing.PaddleWebhookEvent, rawBody []byte) *models.PaymentWebhookEvent {
	if r.events == nil || !json.Valid(rawBody) {
		return nil
	}
	stored, err := r.events.Record(ctx, &models.PaymentWebhookEvent{
		Provider:        models.PROVIDER_PADDLE,
		ProviderEventID: webhookEventID(ev, rawBody),
		EventType:       ev.EventType,
		TransactionID:   ev.TransactionID,
		PayloadJSON:     datatypes.JSON(rawBody),
	})
	if err != nil {
		r.log.Warn("could not record webhook event",
			zap.String("event_id", ev.EventID),
			zap.String("transaction_id", ev.TransactionID),
			zap.Error(err),
		)
		return nil
	}
	if stored.DeliveryCount > 1 {
		r.log.Info("webhook redelivery",
			zap.String("event_id", stored.ProviderEventID),
			zap.Int("delivery_count", stored.DeliveryCount),
		)
	}
	return stored
}

func (r *Reconciler) markProcessed(ctx context.Context, record *models.PaymentWebhookEvent, processingErr string) {
	if record == nil {
		return
	}
	if err := r.events.MarkProcessed(ctx, record.ID, processingErr); err != nil {
		r.log.Warn("could not mark webhook event processed", zap.Uint("event_row_id", record.ID), zap.Error(err))
	}
}

func webhookEventID(ev *billing.PaddleWebhookEvent, rawBody []byte) string {
	if ev.EventID != "" {
		return ev.EventID
	}
	if ev.NotificationID != "" {
		return ev.NotificationID
	}
	sum := sha256.Sum256(rawBody)
	return "sha256:" + hex.EncodeToString(sum[:])
}
