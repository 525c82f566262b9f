package commerce

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ManuelReschke/videopass/app/models"
	"github.com/ManuelReschke/videopass/app/repository"
	"github.com/ManuelReschke/videopass/internal/pkg/billing"
	"github.com/ManuelReschke/videopass/internal/pkg/config"
	"github.com/ManuelReschke/videopass/internal/pkg/database"
)

const testWebhookSecret = "pdl_ntfset_test_secret"

type testEnv struct {
	db       *gorm.DB
	repos    *repository.Repositories
	paddle   config.PaddleConfig
	provider *fakeProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	return &testEnv{
		db:    db,
		repos: repository.NewRepositories(db),
		paddle: config.PaddleConfig{
			APIKey:                "pdl_test_key",
			Environment:           config.PADDLE_ENV_SANDBOX,
			WebhookSecret:         testWebhookSecret,
			SignatureVerification: config.SIGNATURE_VERIFICATION_ENABLED,
			PriceMap:              config.PriceMap{8: "pri_08", 9: "pri_09", 12: "pri_12"},
		},
		provider: &fakeProvider{},
	}
}

func (e *testEnv) orderService() *OrderService {
	return NewOrderService(e.paddle, e.repos, e.provider, zap.NewNop(), nil)
}

func (e *testEnv) reconciler() *Reconciler {
	return NewReconciler(e.paddle, e.repos, zap.NewNop(), nil)
}

func (e *testEnv) seedVideo(t *testing.T, id uint, price string) *models.Video {
	t.Helper()
	v := &models.Video{
		ID:          id,
		Title:       "Video",
		Description: "desc",
		Price:       decimal.RequireFromString(price),
		PrivateURL:  "https://cdn.example.com/private/video.mp4",
	}
	require.NoError(t, e.db.Create(v).Error)
	return v
}

func (e *testEnv) seedUser(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) countAccesses(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Access{}).Count(&n).Error)
	return n
}

func (e *testEnv) countOrders(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Order{}).Count(&n).Error)
	return n
}

func (e *testEnv) reloadOrder(t *testing.T, id string) *models.Order {
	t.Helper()
	o, err := e.repos.Order.GetByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

// fakeProvider records transaction requests and returns txn_<n> ids.
type fakeProvider struct {
	mu       sync.Mutex
	requests []billing.TransactionRequest
	err      error
}

func (p *fakeProvider) CreateTransaction(_ context.Context, in billing.TransactionRequest) (*billing.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.requests = append(p.requests, in)
	id := "txn_" + in.CustomData.OrderID[:8]
	return &billing.Transaction{ID: id, CheckoutURL: "https://pay.example.com/?_ptxn=" + id}, nil
}

// racingUserRepo simulates a concurrent checkout inserting the same email
// between our lookup and our insert.
type racingUserRepo struct {
	repository.UserRepository
	winner  *models.User
	lookups int
}

func (r *racingUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.winner, nil
}

func (r *racingUserRepo) Create(ctx context.Context, user *models.User) error {
	return gorm.ErrDuplicatedKey
}

type failingLinkOrderRepo struct {
	repository.OrderRepository
}

func (r failingLinkOrderRepo) LinkTransaction(ctx context.Context, orderID, transactionID string) (bool, error) {
	return false, errors.New("connection reset")
}

// flakyAccessRepo fails the first n grants with a non-duplicate error.
type flakyAccessRepo struct {
	repository.AccessRepository
	failures int
}

func (r *flakyAccessRepo) Grant(ctx context.Context, access *models.Access) (bool, error) {
	if r.failures > 0 {
		r.failures--
		return false, errors.New("connection reset")
	}
	return r.AccessRepository.Grant(ctx, access)
}

// rejectingOrderRepo rejects the order in the store right before MarkPaid
// runs, as a concurrent operator action would.
type rejectingOrderRepo struct {
	repository.OrderRepository
	db *gorm.DB
}

func (r rejectingOrderRepo) MarkPaid(ctx context.Context, orderID, transactionID string, paidAt time.Time) (bool, error) {
	if err := r.db.Model(&models.Order{}).Where("id = ?", orderID).
		Update("state", models.ORDER_STATE_REJECTED).Error; err != nil {
		return false, err
	}
	return r.OrderRepository.MarkPaid(ctx, orderID, transactionID, paidAt)
}

func (e *testEnv) countWebhookEvents(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.PaymentWebhookEvent{}).Count(&n).Error)
	return n
}
