package api

import (
	"context"
	"time"

	"koubyte-be/internal/cart"
	"koubyte-be/internal/catalog"
	"koubyte-be/internal/chat"
	"koubyte-be/internal/dashboard"
	"koubyte-be/internal/db"
	"koubyte-be/internal/order"
	"koubyte-be/internal/payment"
	"koubyte-be/internal/user"
	"koubyte-be/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, input user.RegisterInput) (*user.AuthResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.AuthResult), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, email, password string) (*user.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.AuthResult), args.Error(1)
}

func (m *MockUserService) Me(ctx context.Context, userID uint) (*user.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, filter user.ListFilter) (*user.UserList, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.UserList), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, actorID, id uint, input user.UpdateInput) (*user.User, error) {
	args := m.Called(ctx, actorID, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, actorID, id uint) error {
	return m.Called(ctx, actorID, id).Error(0)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Item, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Item), args.Error(1)
}

func (m *MockCatalogService) Get(ctx context.Context, id uint, includeInactive bool) (*catalog.Item, error) {
	args := m.Called(ctx, id, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Item), args.Error(1)
}

func (m *MockCatalogService) GetMany(ctx context.Context, ids []uint) ([]catalog.Item, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.Item), args.Error(1)
}

func (m *MockCatalogService) Create(ctx context.Context, input catalog.CreateInput) (*catalog.Item, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Item), args.Error(1)
}

func (m *MockCatalogService) Update(ctx context.Context, id uint, input catalog.UpdateInput) (*catalog.Item, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Item), args.Error(1)
}

func (m *MockCatalogService) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) AddToCart(ctx context.Context, params cart.AddToCartParams) (*cart.Cart, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) UpdateQuantity(ctx context.Context, params cart.UpdateQuantityParams) (*cart.Cart, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, cartItemID uint) (*cart.Cart, error) {
	args := m.Called(ctx, userID, cartItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) GetCart(ctx context.Context, userID uint) (*cart.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) ClearCart(ctx context.Context, userID uint) error {
	return m.Called(ctx, userID).Error(0)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Checkout(ctx context.Context, userID uint, input order.CheckoutInput) (*order.CheckoutResult, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.CheckoutResult), args.Error(1)
}

func (m *MockOrderService) ListMine(ctx context.Context, userID uint) ([]order.Order, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) Get(ctx context.Context, id uint, requester utils.Requester) (*order.Order, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListAll(ctx context.Context, filter order.ListFilter) (*order.OrderList, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.OrderList), args.Error(1)
}

func (m *MockOrderService) AdminUpdate(ctx context.Context, id uint, input order.AdminUpdate) (*order.Order, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) payment(args mock.Arguments) (*payment.Payment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentService) Supports(method string) (string, error) {
	args := m.Called(method)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentService) OpenAttempt(ctx context.Context, q db.DBTX, o payment.OrderRef, method string) (*payment.Payment, error) {
	return m.payment(m.Called(ctx, q, o, method))
}

func (m *MockPaymentService) StartForOrder(ctx context.Context, attempt *payment.Payment, o payment.OrderRef) (*payment.Payment, error) {
	return m.payment(m.Called(ctx, attempt, o))
}

func (m *MockPaymentService) CreatePayment(ctx context.Context, req payment.CreateRequest, requester utils.Requester) (*payment.Payment, error) {
	return m.payment(m.Called(ctx, req, requester))
}

func (m *MockPaymentService) LatestForOrder(ctx context.Context, orderID uint) (*payment.Payment, error) {
	return m.payment(m.Called(ctx, orderID))
}

func (m *MockPaymentService) ApplyUpdate(ctx context.Context, u payment.Update) (*payment.Payment, bool, error) {
	args := m.Called(ctx, u)
	p, _ := args.Get(0).(*payment.Payment)
	return p, args.Bool(1), args.Error(2)
}

func (m *MockPaymentService) Lookup(ctx context.Context, provider, intentID string) (payment.Details, error) {
	args := m.Called(ctx, provider, intentID)
	return args.Get(0).(payment.Details), args.Error(1)
}

func (m *MockPaymentService) Sync(ctx context.Context, paymentID uint) (*payment.Payment, error) {
	return m.payment(m.Called(ctx, paymentID))
}

func (m *MockPaymentService) Reconcile(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *MockPaymentService) Refund(ctx context.Context, paymentID uint) (*payment.Payment, error) {
	return m.payment(m.Called(ctx, paymentID))
}

func (m *MockPaymentService) List(ctx context.Context, filter payment.ListFilter) (*payment.PaymentList, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentList), args.Error(1)
}

func (m *MockPaymentService) Instructions(method, orderNumber string, amount decimal.Decimal) *payment.Instructions {
	args := m.Called(method, orderNumber, amount)
	i, _ := args.Get(0).(*payment.Instructions)
	return i
}

func (m *MockPaymentService) ReturnRedirect(p *payment.Payment) string {
	return m.Called(p).String(0)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Start(ctx context.Context, p chat.Participant, input chat.StartInput) (*chat.Started, error) {
	args := m.Called(ctx, p, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Started), args.Error(1)
}

func (m *MockChatService) Send(ctx context.Context, conversationID uint, p chat.Participant, text string) (*chat.Message, error) {
	args := m.Called(ctx, conversationID, p, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Message), args.Error(1)
}

func (m *MockChatService) Messages(ctx context.Context, conversationID uint, p chat.Participant, cursor chat.Cursor) ([]chat.Message, error) {
	args := m.Called(ctx, conversationID, p, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]chat.Message), args.Error(1)
}

func (m *MockChatService) Mine(ctx context.Context, p chat.Participant) ([]chat.Conversation, error) {
	args := m.Called(ctx, p)
	return args.Get(0).([]chat.Conversation), args.Error(1)
}

func (m *MockChatService) ListConversations(ctx context.Context, status chat.Status) ([]chat.Conversation, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]chat.Conversation), args.Error(1)
}

func (m *MockChatService) SetStatus(ctx context.Context, id uint, status chat.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockChatService) MarkRead(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Stats(ctx context.Context) (*dashboard.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dashboard.Stats), args.Error(1)
}
