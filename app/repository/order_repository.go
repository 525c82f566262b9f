package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/videopass/app/models"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByProviderTransactionID(ctx context.Context, provider, transactionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_transaction_id = ?", provider, transactionID).
		Order("created_at ASC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) LinkTransaction(ctx context.Context, orderID, transactionID string) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND (provider_transaction_id IS NULL OR provider_transaction_id = '')", orderID).
		Update("provider_transaction_id", transactionID)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *orderRepository) MarkPaid(ctx context.Context, orderID, transactionID string, paidAt time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND state <> ?", orderID, models.ORDER_STATE_REJECTED).
		Updates(map[string]interface{}{
			"state":                   models.ORDER_STATE_PAID,
			"provider_transaction_id": gorm.Expr("COALESCE(NULLIF(provider_transaction_id, ''), ?)", transactionID),
			"paid_at":                 gorm.Expr("COALESCE(paid_at, ?)", paidAt),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
