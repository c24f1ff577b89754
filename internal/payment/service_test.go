package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"koubyte-be/internal/db"
	"koubyte-be/internal/metrics"
	"koubyte-be/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateAttempt(ctx context.Context, q db.DBTX, p *Payment) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = 7
	}
	return args.Error(0)
}

func (m *MockRepository) SetIntent(ctx context.Context, id uint, intentID, redirectURL string) error {
	return m.Called(ctx, id, intentID, redirectURL).Error(0)
}

func (m *MockRepository) MarkFailed(ctx context.Context, id uint, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *MockRepository) MarkOrderPending(ctx context.Context, orderID uint) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uint) (*Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockRepository) LatestForOrder(ctx context.Context, orderID uint) (*Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockRepository) GetOrderRef(ctx context.Context, orderID uint) (*OrderRef, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OrderRef), args.Error(1)
}

func (m *MockRepository) ApplyStatus(ctx context.Context, u Update) (*Payment, bool, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*Payment), args.Bool(1), args.Error(2)
}

func (m *MockRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]Payment, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]Payment), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter ListFilter) ([]Payment, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]Payment), args.Int(1), args.Error(2)
}

func (m *MockRepository) SavePaymentWebhook(ctx context.Context, w Webhook) (int64, bool, error) {
	args := m.Called(ctx, w)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockRepository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	return m.Called(ctx, webhookID).Error(0)
}

func (m *MockRepository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	return m.Called(ctx, webhookID, reason).Error(0)
}

func (m *MockRepository) PurgeWebhooks(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type fakeProvider struct {
	req      CheckoutSessionRequest
	session  CheckoutSession
	details  Details
	err      error
	refunded []RefundRequest
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	f.req = req
	return f.session, f.err
}

func (f *fakeProvider) LookupPayment(ctx context.Context, intentID string) (Details, error) {
	return f.details, f.err
}

func (f *fakeProvider) Refund(ctx context.Context, req RefundRequest) error {
	f.refunded = append(f.refunded, req)
	return f.err
}

type recordingNotifier struct {
	titles []string
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uint, kind, title, body string) {
	n.titles = append(n.titles, title)
}

func newTestService(repo Repository, provider Provider, notifier Notifier) *service {
	manager := NewManager(map[string]Provider{ProviderStripe: provider})
	return NewService(repo, manager, Options{
		PublicBaseURL: "https://api.example.com",
		FrontendURL:   "https://koubyte.example",
		Currency:      "EUR",
		BankIBAN:      "BE71",
	}, metrics.NewRegistry(), notifier).(*service)
}

func uintPtr(v uint) *uint { return &v }

func TestService_Supports(t *testing.T) {
	svc := newTestService(new(MockRepository), &fakeProvider{}, nil)

	p, err := svc.Supports(MethodCard)
	require.NoError(t, err)
	assert.Equal(t, ProviderStripe, p)

	_, err = svc.Supports(MethodPayPal)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)

	_, err = svc.Supports(MethodCrypto)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestService_CreatePayment(t *testing.T) {
	ctx := context.Background()
	client := utils.Requester{UserID: 1, Role: utils.RoleClient}
	order := &OrderRef{ID: 3, OrderNumber: "KB-1", UserID: uintPtr(1), CustomerEmail: "ada@example.com",
		PaymentStatus: "unpaid", Payable: decimal.NewFromInt(180)}

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		provider := &fakeProvider{session: CheckoutSession{IntentID: "cs_1", RedirectURL: "https://pay/cs_1"}}
		repo.On("GetOrderRef", ctx, uint(3)).Return(order, nil)
		repo.On("CreateAttempt", ctx, mock.MatchedBy(func(p *Payment) bool {
			return p.Provider == ProviderStripe && p.Amount.Equal(decimal.NewFromInt(180)) && *p.OrderID == 3
		})).Return(nil)
		repo.On("SetIntent", ctx, uint(7), "cs_1", "https://pay/cs_1").Return(nil)
		repo.On("MarkOrderPending", ctx, uint(3)).Return(nil)

		svc := newTestService(repo, provider, nil)
		p, err := svc.CreatePayment(ctx, CreateRequest{OrderID: 3, Amount: decimal.NewFromInt(180), Method: MethodCard}, client)
		require.NoError(t, err)
		assert.Equal(t, "https://pay/cs_1", *p.RedirectURL)
		assert.Equal(t, int64(18000), provider.req.Amount)
		assert.Equal(t, "https://api.example.com/api/payments/return?payment=7", provider.req.ReturnURL)
		assert.Equal(t, "7", provider.req.Metadata["payment_id"])
		assert.Equal(t, uint64(1), svc.metrics.PaymentsStarted.Load())
		repo.AssertExpectations(t)
	})

	t.Run("Foreign order", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetOrderRef", ctx, uint(3)).Return(order, nil)

		_, err := newTestService(repo, &fakeProvider{}, nil).CreatePayment(ctx,
			CreateRequest{OrderID: 3, Method: MethodCard}, utils.Requester{UserID: 2, Role: utils.RoleClient})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("Already paid", func(t *testing.T) {
		paid := *order
		paid.PaymentStatus = "paid"
		repo := new(MockRepository)
		repo.On("GetOrderRef", ctx, uint(3)).Return(&paid, nil)

		_, err := newTestService(repo, &fakeProvider{}, nil).CreatePayment(ctx, CreateRequest{OrderID: 3, Method: MethodCard}, client)
		assert.ErrorIs(t, err, ErrOrderAlreadyPaid)
	})

	t.Run("Amount mismatch", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetOrderRef", ctx, uint(3)).Return(order, nil)

		_, err := newTestService(repo, &fakeProvider{}, nil).CreatePayment(ctx,
			CreateRequest{OrderID: 3, Amount: decimal.NewFromInt(1), Method: MethodCard}, client)
		assert.ErrorIs(t, err, ErrAmountMismatch)
	})

	t.Run("Provider failure marks attempt failed", func(t *testing.T) {
		repo := new(MockRepository)
		provider := &fakeProvider{err: errors.New("provider down")}
		repo.On("GetOrderRef", ctx, uint(3)).Return(order, nil)
		repo.On("CreateAttempt", ctx, mock.Anything).Return(nil)
		repo.On("MarkFailed", ctx, uint(7), "provider down").Return(nil)

		svc := newTestService(repo, provider, nil)
		_, err := svc.CreatePayment(ctx, CreateRequest{OrderID: 3, Method: MethodCard}, client)
		assert.ErrorIs(t, err, ErrProviderFailure)
		repo.AssertNotCalled(t, "MarkOrderPending", mock.Anything, mock.Anything)
		assert.Equal(t, uint64(1), svc.metrics.PaymentsFailed.Load())
	})
}

func TestService_ApplyUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("Notifies owner on change", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := &recordingNotifier{}
		u := Update{Provider: ProviderStripe, IntentID: "cs_1", Status: StatusCompleted}
		repo.On("ApplyStatus", ctx, u).Return(&Payment{ID: 7, UserID: uintPtr(1), Status: StatusCompleted, OrderNumber: "KB-1"}, true, nil)

		_, changed, err := newTestService(repo, &fakeProvider{}, notifier).ApplyUpdate(ctx, u)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"Payment received"}, notifier.titles)
	})

	t.Run("Replay stays silent", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := &recordingNotifier{}
		u := Update{PaymentID: 7, Status: StatusCompleted}
		repo.On("ApplyStatus", ctx, u).Return(&Payment{ID: 7, UserID: uintPtr(1), Status: StatusCompleted}, false, nil)

		_, changed, err := newTestService(repo, &fakeProvider{}, notifier).ApplyUpdate(ctx, u)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, notifier.titles)
	})

	t.Run("Invalid update", func(t *testing.T) {
		_, _, err := newTestService(new(MockRepository), &fakeProvider{}, nil).ApplyUpdate(ctx, Update{Status: StatusCompleted})
		assert.ErrorIs(t, err, ErrInvalidUpdate)

		_, _, err = newTestService(new(MockRepository), &fakeProvider{}, nil).ApplyUpdate(ctx, Update{PaymentID: 1, Status: "done"})
		assert.ErrorIs(t, err, ErrInvalidUpdate)
	})
}

func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	provider := &fakeProvider{details: Details{Status: StatusCompleted}}
	svc := newTestService(repo, provider, nil)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	intent1, intent2 := "cs_1", "cs_2"
	repo.On("ListStale", ctx, now.Add(-10*time.Minute), reconcileBatch).Return([]Payment{
		{ID: 1, Provider: ProviderStripe, IntentID: &intent1, Status: StatusPending},
		{ID: 2, Provider: ProviderStripe, IntentID: &intent2, Status: StatusPending},
	}, nil)
	repo.On("ApplyStatus", mock.Anything, Update{PaymentID: 1, Status: StatusCompleted}).Return(&Payment{ID: 1, Status: StatusCompleted}, true, nil)
	repo.On("ApplyStatus", mock.Anything, Update{PaymentID: 2, Status: StatusCompleted}).Return(&Payment{ID: 2, Status: StatusCompleted}, false, nil)

	n, err := svc.Reconcile(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(1), svc.metrics.ReconcileRuns.Load())
	assert.Equal(t, uint64(1), svc.metrics.ReconcileUpdated.Load())
}

func TestService_Refund(t *testing.T) {
	ctx := context.Background()
	intent := "cs_1"

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		provider := &fakeProvider{}
		repo.On("GetByID", ctx, uint(7)).Return(&Payment{ID: 7, Provider: ProviderStripe, IntentID: &intent,
			Status: StatusCompleted, Amount: decimal.RequireFromString("180"), Currency: "EUR"}, nil)
		repo.On("ApplyStatus", ctx, Update{PaymentID: 7, Status: StatusRefunded}).Return(&Payment{ID: 7, Status: StatusRefunded}, true, nil)

		p, err := newTestService(repo, provider, nil).Refund(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, StatusRefunded, p.Status)
		require.Len(t, provider.refunded, 1)
		assert.Equal(t, int64(18000), provider.refunded[0].Amount)
		assert.Equal(t, "refund-7", provider.refunded[0].IdempotencyKey)
	})

	t.Run("Only completed payments", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByID", ctx, uint(7)).Return(&Payment{ID: 7, Status: StatusPending, IntentID: &intent}, nil)

		_, err := newTestService(repo, &fakeProvider{}, nil).Refund(ctx, 7)
		assert.ErrorIs(t, err, ErrNotRefundable)
	})
}

func TestService_Sync(t *testing.T) {
	ctx := context.Background()
	intent := "cs_1"

	t.Run("Applies provider status", func(t *testing.T) {
		repo := new(MockRepository)
		provider := &fakeProvider{details: Details{Status: StatusFailed, Reason: "checkout session expired"}}
		repo.On("GetByID", ctx, uint(7)).Return(&Payment{ID: 7, Provider: ProviderStripe, IntentID: &intent, Status: StatusPending}, nil)
		repo.On("ApplyStatus", ctx, Update{PaymentID: 7, Status: StatusFailed, FailureReason: "checkout session expired"}).
			Return(&Payment{ID: 7, Status: StatusFailed, OrderNumber: "KB-1"}, true, nil)

		svc := newTestService(repo, provider, nil)
		p, err := svc.Sync(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "https://koubyte.example/payment/failed?order=KB-1", svc.ReturnRedirect(p))
	})

	t.Run("Lookup failure keeps stored state", func(t *testing.T) {
		repo := new(MockRepository)
		provider := &fakeProvider{err: errors.New("timeout")}
		repo.On("GetByID", ctx, uint(7)).Return(&Payment{ID: 7, Provider: ProviderStripe, IntentID: &intent, Status: StatusPending}, nil)

		svc := newTestService(repo, provider, nil)
		p, err := svc.Sync(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "https://koubyte.example/payment/pending", svc.ReturnRedirect(p))
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("List", ctx, ListFilter{Limit: 100, Page: 1}).Return([]Payment{{ID: 1}}, 1, nil)

	res, err := newTestService(repo, &fakeProvider{}, nil).List(ctx, ListFilter{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 100, res.Limit)
}
