package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"koubyte-be/internal/db"
	"koubyte-be/internal/logger"
	"koubyte-be/internal/metrics"
	"koubyte-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Notifier delivers in-app notifications to a user.
type Notifier interface {
	Notify(ctx context.Context, userID uint, kind, title, body string)
}

type Service interface {
	Supports(method string) (string, error)
	OpenAttempt(ctx context.Context, q db.DBTX, order OrderRef, method string) (*Payment, error)
	StartForOrder(ctx context.Context, attempt *Payment, order OrderRef) (*Payment, error)
	CreatePayment(ctx context.Context, req CreateRequest, requester utils.Requester) (*Payment, error)
	LatestForOrder(ctx context.Context, orderID uint) (*Payment, error)
	ApplyUpdate(ctx context.Context, u Update) (*Payment, bool, error)
	Lookup(ctx context.Context, provider, intentID string) (Details, error)
	Sync(ctx context.Context, paymentID uint) (*Payment, error)
	Reconcile(ctx context.Context, olderThan time.Duration) (int, error)
	Refund(ctx context.Context, paymentID uint) (*Payment, error)
	List(ctx context.Context, filter ListFilter) (*PaymentList, error)
	Instructions(method, orderNumber string, amount decimal.Decimal) *Instructions
	ReturnRedirect(p *Payment) string
}

// Options carries the URLs and account data the payment flow needs.
type Options struct {
	PublicBaseURL   string
	FrontendURL     string
	Currency        string
	BankIBAN        string
	BankBeneficiary string
}

type service struct {
	repo     Repository
	manager  *Manager
	opts     Options
	metrics  *metrics.Registry
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, manager *Manager, opts Options, reg *metrics.Registry, notifier Notifier) Service {
	if opts.Currency == "" {
		opts.Currency = "EUR"
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &service{
		repo:     repo,
		manager:  manager,
		opts:     opts,
		metrics:  reg,
		notifier: notifier,
		now:      time.Now,
	}
}

// Supports resolves the provider for a method and checks it is configured.
func (s *service) Supports(method string) (string, error) {
	provider, err := ProviderForMethod(method)
	if err != nil {
		return "", err
	}
	if !s.manager.Has(provider) {
		return "", fmt.Errorf("%w: %s is not configured", ErrUnsupportedMethod, provider)
	}
	return provider, nil
}

func (s *service) OpenAttempt(ctx context.Context, q db.DBTX, order OrderRef, method string) (*Payment, error) {
	provider, err := s.Supports(method)
	if err != nil {
		return nil, err
	}
	orderID := order.ID
	p := &Payment{
		OrderID:     &orderID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Provider:    provider,
		Method:      method,
		Amount:      order.Payable,
		Currency:    s.opts.Currency,
		Status:      StatusPending,
	}
	if err := s.repo.CreateAttempt(ctx, q, p); err != nil {
		return nil, err
	}
	return p, nil
}

// StartForOrder opens the provider session for an attempt. A provider error
// fails the attempt and leaves the order unpaid so the client can retry.
func (s *service) StartForOrder(ctx context.Context, attempt *Payment, order OrderRef) (*Payment, error) {
	log := logger.Scoped(ctx, "service", "StartForOrder",
		zap.Uint("payment_id", attempt.ID),
		zap.Uint("order_id", order.ID),
		zap.String("provider", attempt.Provider),
	)

	provider, err := s.manager.Get(attempt.Provider)
	if err != nil {
		return nil, err
	}

	id := strconv.FormatUint(uint64(attempt.ID), 10)
	returnURL := s.opts.PublicBaseURL + "/api/payments/return?payment=" + id
	session, err := provider.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		PaymentID:   attempt.ID,
		OrderNumber: order.OrderNumber,
		Method:      attempt.Method,
		Amount:      MinorUnits(attempt.Amount),
		Currency:    attempt.Currency,
		Email:       order.CustomerEmail,
		Description: "Order " + order.OrderNumber,
		ReturnURL:   returnURL,
		CancelURL:   returnURL,
		WebhookURL:  s.opts.PublicBaseURL + "/api/payments/webhook/" + attempt.Provider,
		Metadata: map[string]string{
			"order_id":     strconv.FormatUint(uint64(order.ID), 10),
			"order_number": order.OrderNumber,
			"payment_id":   id,
		},
	})
	if err != nil {
		s.metrics.PaymentsFailed.Inc()
		if markErr := s.repo.MarkFailed(ctx, attempt.ID, err.Error()); markErr != nil {
			log.Error("failed to mark attempt failed", zap.Error(markErr))
		}
		log.Error("provider session failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	if err := s.repo.SetIntent(ctx, attempt.ID, session.IntentID, session.RedirectURL); err != nil {
		log.Error("failed to store provider session", zap.Error(err))
		return nil, err
	}
	if err := s.repo.MarkOrderPending(ctx, order.ID); err != nil {
		log.Error("failed to move order to pending", zap.Error(err))
		return nil, err
	}

	s.metrics.PaymentsStarted.Inc()
	attempt.IntentID = &session.IntentID
	attempt.RedirectURL = &session.RedirectURL
	log.Info("payment session started", zap.String("intent_id", session.IntentID))
	return attempt, nil
}

func (s *service) CreatePayment(ctx context.Context, req CreateRequest, requester utils.Requester) (*Payment, error) {
	log := logger.Scoped(ctx, "service", "CreatePayment",
		zap.Uint("order_id", req.OrderID),
		zap.String("method", req.Method),
	)

	order, err := s.repo.GetOrderRef(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !requester.IsAdmin() && (order.UserID == nil || *order.UserID != requester.UserID) {
		log.Warn("payment requested for foreign order", zap.Uint("user_id", requester.UserID))
		return nil, ErrForbidden
	}
	if order.PaymentStatus == "paid" || order.PaymentStatus == "refunded" {
		return nil, ErrOrderAlreadyPaid
	}
	if !req.Amount.IsZero() && !req.Amount.Equal(order.Payable) {
		return nil, ErrAmountMismatch
	}

	attempt, err := s.OpenAttempt(ctx, nil, *order, req.Method)
	if err != nil {
		return nil, err
	}
	return s.StartForOrder(ctx, attempt, *order)
}

func (s *service) LatestForOrder(ctx context.Context, orderID uint) (*Payment, error) {
	return s.repo.LatestForOrder(ctx, orderID)
}

// ApplyUpdate is safe to call any number of times with the same report.
func (s *service) ApplyUpdate(ctx context.Context, u Update) (*Payment, bool, error) {
	if !u.Status.Valid() || (u.PaymentID == 0 && (u.Provider == "" || u.IntentID == "")) {
		return nil, false, ErrInvalidUpdate
	}

	p, changed, err := s.repo.ApplyStatus(ctx, u)
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.notifyOwner(ctx, p)
	}
	return p, changed, nil
}

func (s *service) notifyOwner(ctx context.Context, p *Payment) {
	if s.notifier == nil || p.UserID == nil {
		return
	}
	switch p.Status {
	case StatusCompleted:
		s.notifier.Notify(ctx, *p.UserID, "payment", "Payment received",
			fmt.Sprintf("We received your payment for order %s.", p.OrderNumber))
	case StatusFailed:
		s.notifier.Notify(ctx, *p.UserID, "payment", "Payment failed",
			fmt.Sprintf("Your payment for order %s did not go through. You can try again from your orders.", p.OrderNumber))
	case StatusRefunded:
		s.notifier.Notify(ctx, *p.UserID, "payment", "Payment refunded",
			fmt.Sprintf("Your payment for order %s has been refunded.", p.OrderNumber))
	}
}

func (s *service) Lookup(ctx context.Context, provider, intentID string) (Details, error) {
	p, err := s.manager.Get(provider)
	if err != nil {
		return Details{}, err
	}
	return p.LookupPayment(ctx, intentID)
}

// Sync asks the provider for the current state of one attempt and applies it.
func (s *service) Sync(ctx context.Context, paymentID uint) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.IntentID == nil || *p.IntentID == "" {
		return p, nil
	}

	details, err := s.Lookup(ctx, p.Provider, *p.IntentID)
	if err != nil {
		logger.Scoped(ctx, "service", "Sync", zap.Uint("payment_id", paymentID)).
			Warn("provider lookup failed", zap.Error(err))
		return p, nil
	}

	updated, _, err := s.ApplyUpdate(ctx, Update{
		PaymentID:     p.ID,
		Status:        details.Status,
		FailureReason: details.Reason,
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

const reconcileBatch = 50

// Reconcile polls the provider for attempts that have not moved for olderThan.
func (s *service) Reconcile(ctx context.Context, olderThan time.Duration) (int, error) {
	log := logger.Scoped(ctx, "service", "Reconcile")
	timer := metrics.StartTimer()

	stale, err := s.repo.ListStale(ctx, s.now().Add(-olderThan), reconcileBatch)
	if err != nil {
		log.Error("failed to list stale payments", zap.Error(err))
		return 0, err
	}

	var updated atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range stale {
		g.Go(func() error {
			details, err := s.Lookup(gctx, p.Provider, *p.IntentID)
			if err != nil {
				log.Warn("provider lookup failed", zap.Uint("payment_id", p.ID), zap.Error(err))
				return nil
			}
			_, changed, err := s.ApplyUpdate(gctx, Update{
				PaymentID:     p.ID,
				Status:        details.Status,
				FailureReason: details.Reason,
			})
			if err != nil {
				log.Warn("failed to apply reconciled status", zap.Uint("payment_id", p.ID), zap.Error(err))
				return nil
			}
			if changed {
				updated.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(updated.Load())
	s.metrics.ObserveReconcile(timer, n)
	log.Info("reconcile finished", zap.Int("checked", len(stale)), zap.Int("updated", n))
	return n, nil
}

func (s *service) Refund(ctx context.Context, paymentID uint) (*Payment, error) {
	log := logger.Scoped(ctx, "service", "Refund", zap.Uint("payment_id", paymentID))

	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusCompleted {
		return nil, ErrNotRefundable
	}
	if p.IntentID == nil {
		return nil, ErrMissingIntent
	}

	provider, err := s.manager.Get(p.Provider)
	if err != nil {
		return nil, err
	}
	if err := provider.Refund(ctx, RefundRequest{
		IntentID:       *p.IntentID,
		Amount:         MinorUnits(p.Amount),
		Currency:       p.Currency,
		IdempotencyKey: "refund-" + strconv.FormatUint(uint64(p.ID), 10),
	}); err != nil {
		log.Error("provider refund failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	updated, _, err := s.ApplyUpdate(ctx, Update{PaymentID: p.ID, Status: StatusRefunded})
	if err != nil {
		return nil, err
	}
	log.Info("payment refunded")
	return updated, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*PaymentList, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &PaymentList{Payments: payments, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *service) Instructions(method, orderNumber string, amount decimal.Decimal) *Instructions {
	return BuildInstructions(method, s.opts.BankIBAN, s.opts.BankBeneficiary, s.opts.Currency, orderNumber, amount)
}

// ReturnRedirect picks the frontend page a customer lands on after the
// provider's hosted page.
func (s *service) ReturnRedirect(p *Payment) string {
	page := "/payment/pending"
	switch p.Status {
	case StatusCompleted:
		page = "/payment/success"
	case StatusFailed:
		page = "/payment/failed"
	}
	q := url.Values{}
	if p.OrderNumber != "" {
		q.Set("order", p.OrderNumber)
	}
	if len(q) == 0 {
		return s.opts.FrontendURL + page
	}
	return s.opts.FrontendURL + page + "?" + q.Encode()
}

// IsNotFound reports the lookup errors the HTTP layer maps to 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPaymentNotFound) || errors.Is(err, ErrOrderNotFound)
}
