package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/videopass/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// VideoRepository defines the interface for catalog reads
type VideoRepository interface {
	List(ctx context.Context) ([]models.Video, error)
	GetByID(ctx context.Context, id uint) (*models.Video, error)
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByProviderTransactionID(ctx context.Context, provider, transactionID string) (*models.Order, error)
	// LinkTransaction stores transactionID on the order only when no id is
	// linked yet. It reports whether a row was changed.
	LinkTransaction(ctx context.Context, orderID, transactionID string) (bool, error)
	// MarkPaid moves the order to paid. An already linked transaction id is
	// kept; paid_at keeps its first value. Rejected orders are left alone and
	// the result is false when no row was changed.
	MarkPaid(ctx context.Context, orderID, transactionID string, paidAt time.Time) (bool, error)
}

// AccessRepository defines the interface for access grants
type AccessRepository interface {
	// Grant inserts the access row. created is false when the grant
	// already existed.
	Grant(ctx context.Context, access *models.Access) (created bool, err error)
	Exists(ctx context.Context, userID, videoID uint) (bool, error)
}

// WebhookEventRepository defines the interface for the webhook audit log
type WebhookEventRepository interface {
	// Record stores the event or bumps the delivery count of an existing
	// row with the same provider event id.
	Record(ctx context.Context, event *models.PaymentWebhookEvent) (*models.PaymentWebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
}

// Repositories holds all repository instances
type Repositories struct {
	User         UserRepository
	Video        VideoRepository
	Order        OrderRepository
	Access       AccessRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Video:        NewVideoRepository(db),
		Order:        NewOrderRepository(db),
		Access:       NewAccessRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
