package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	ORDER_STATE_PENDING  = "pending"
	ORDER_STATE_PAID     = "paid"
	ORDER_STATE_REJECTED = "rejected"

	PROVIDER_PADDLE = "paddle"
)

// Order records one user's intent to buy one video. Amount is a snapshot of
// the video price at checkout time.
type Order struct {
	ID                    string          `gorm:"primaryKey;type:varchar(36)" json:"id" validate:"required,uuid4"`
	UserID                uint            `gorm:"not null;index" json:"user_id" validate:"required"`
	VideoID               uint            `gorm:"not null;index" json:"video_id" validate:"required"`
	Amount                decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	State                 string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"state" validate:"oneof=pending paid rejected"`
	Provider              string          `gorm:"type:varchar(20);not null;default:'paddle'" json:"provider" validate:"required"`
	ProviderTransactionID *string         `gorm:"type:varchar(100);index" json:"provider_transaction_id,omitempty"`
	PaidAt                *time.Time      `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o *Order) Validate() error {
	v := validator.New()

	return v.Struct(o)
}

func (o *Order) IsPaid() bool {
	return o.State == ORDER_STATE_PAID
}

func (o *Order) IsRejected() bool {
	return o.State == ORDER_STATE_REJECTED
}

// TransactionID returns the linked provider transaction id or "".
func (o *Order) TransactionID() string {
	if o.ProviderTransactionID == nil {
		return ""
	}
	return *o.ProviderTransactionID
}
