package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentWebhookEvent is the audit log of authenticated provider deliveries.
// Redeliveries of the same event bump DeliveryCount on the existing row.
type PaymentWebhookEvent struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Provider        string         `gorm:"type:varchar(20);not null;index:ux_payment_webhook_events_provider_event,unique,priority:1" json:"provider"`
	ProviderEventID string         `gorm:"type:varchar(191);not null;index:ux_payment_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType       string         `gorm:"type:varchar(100);not null;index" json:"event_type"`
	TransactionID   string         `gorm:"type:varchar(100);index" json:"transaction_id"`
	PayloadJSON     datatypes.JSON `json:"payload_json"`
	DeliveryCount   int            `gorm:"not null;default:1" json:"delivery_count"`
	ProcessedAt     *time.Time     `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string         `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
