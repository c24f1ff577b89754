package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"koubyte-be/internal/db"
	"koubyte-be/internal/discount"
	"koubyte-be/internal/logger"
	"koubyte-be/internal/mailer"
	"koubyte-be/internal/payment"
	"koubyte-be/internal/user"
	"koubyte-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// DiscountStore is the part of the discount repository checkout needs.
type DiscountStore interface {
	GetByCode(ctx context.Context, q db.DBTX, code string, forUpdate bool) (*discount.Code, error)
	Redeem(ctx context.Context, q db.DBTX, id uint) error
}

// Payments is the part of the payment service checkout drives.
type Payments interface {
	Supports(method string) (string, error)
	OpenAttempt(ctx context.Context, q db.DBTX, order payment.OrderRef, method string) (*payment.Payment, error)
	StartForOrder(ctx context.Context, attempt *payment.Payment, order payment.OrderRef) (*payment.Payment, error)
	LatestForOrder(ctx context.Context, orderID uint) (*payment.Payment, error)
	Instructions(method, orderNumber string, amount decimal.Decimal) *payment.Instructions
}

type UserLookup interface {
	Me(ctx context.Context, userID uint) (*user.User, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID uint, kind, title, body string)
}

type Mailer interface {
	Enqueue(msg mailer.Message) bool
}

type Service interface {
	Checkout(ctx context.Context, userID uint, input CheckoutInput) (*CheckoutResult, error)
	ListMine(ctx context.Context, userID uint) ([]Order, error)
	Get(ctx context.Context, id uint, requester utils.Requester) (*Order, error)
	ListAll(ctx context.Context, filter ListFilter) (*OrderList, error)
	AdminUpdate(ctx context.Context, id uint, input AdminUpdate) (*Order, error)
	Delete(ctx context.Context, id uint) error
}

type service struct {
	repo      Repository
	discounts DiscountStore
	payments  Payments
	users     UserLookup
	notifier  Notifier
	mail      Mailer
	currency  string
	now       func() time.Time
}

func NewService(repo Repository, discounts DiscountStore, payments Payments, users UserLookup,
	notifier Notifier, mail Mailer, currency string) Service {
	if currency == "" {
		currency = "EUR"
	}
	return &service{
		repo:      repo,
		discounts: discounts,
		payments:  payments,
		users:     users,
		notifier:  notifier,
		mail:      mail,
		currency:  currency,
		now:       time.Now,
	}
}

func (s *service) Checkout(ctx context.Context, userID uint, input CheckoutInput) (*CheckoutResult, error) {
	log := logger.Scoped(ctx, "service", "Checkout",
		zap.Uint("user_id", userID),
		zap.String("method", input.PaymentMethod),
	)

	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	if method == "" {
		return nil, ErrInvalidMethod
	}
	payLater := payment.IsPayLater(method)
	if !payLater {
		if _, err := s.payments.Supports(method); err != nil {
			log.Warn("checkout with unusable method", zap.Error(err))
			return nil, err
		}
	}

	name, email, err := s.customer(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	hooks := CheckoutHooks{}
	if code := discount.NormalizeCode(input.DiscountCode); code != "" {
		hooks.ApplyDiscount = func(ctx context.Context, q db.DBTX, subtotal decimal.Decimal) (*discount.Result, error) {
			c, err := s.discounts.GetByCode(ctx, q, code, true)
			if err != nil {
				return nil, err
			}
			res, err := discount.Evaluate(c, subtotal, s.now())
			if err != nil {
				return nil, err
			}
			if err := s.discounts.Redeem(ctx, q, c.ID); err != nil {
				return nil, err
			}
			return res, nil
		}
	}

	var attempt *payment.Payment
	if !payLater {
		hooks.OpenPayment = func(ctx context.Context, q db.DBTX, o *Order) error {
			p, err := s.payments.OpenAttempt(ctx, q, o.Ref(), method)
			if err != nil {
				return err
			}
			attempt = p
			return nil
		}
	}

	o, replayed, err := s.repo.Checkout(ctx, CheckoutParams{
		UserID:         userID,
		CustomerName:   name,
		CustomerEmail:  email,
		Notes:          strings.TrimSpace(input.Notes),
		PaymentMethod:  method,
		IdempotencyKey: strings.TrimSpace(input.IdempotencyKey),
	}, hooks)
	if err != nil {
		log.Warn("checkout failed", zap.Error(err))
		return nil, err
	}

	result := &CheckoutResult{Order: o, Replayed: replayed}

	if replayed {
		if !payment.IsPayLater(o.PaymentMethod) {
			p, err := s.payments.LatestForOrder(ctx, o.ID)
			if err == nil {
				result.Payment = p
				result.RedirectURL = utils.PtrString(p.RedirectURL)
			} else if !payment.IsNotFound(err) {
				return nil, err
			}
		} else {
			result.Instructions = s.payments.Instructions(o.PaymentMethod, o.OrderNumber, o.Payable())
		}
		return result, nil
	}

	if payLater {
		result.Instructions = s.payments.Instructions(method, o.OrderNumber, o.Payable())
	} else if attempt != nil {
		started, err := s.payments.StartForOrder(ctx, attempt, o.Ref())
		if err != nil {
			// The order stays; the client retries through the payments endpoint.
			log.Warn("payment could not be started", zap.String("order_number", o.OrderNumber), zap.Error(err))
			result.PaymentError = "payment could not be started, please retry"
			result.Payment = attempt
		} else {
			result.Payment = started
			result.RedirectURL = utils.PtrString(started.RedirectURL)
			o.PaymentStatus = PaymentPending
		}
	}

	s.announce(ctx, userID, o)

	log.Info("checkout completed",
		zap.String("order_number", o.OrderNumber),
		zap.Bool("redirect", result.RedirectURL != ""),
	)
	return result, nil
}

// customer fills name and email from the account when the form left them out.
func (s *service) customer(ctx context.Context, userID uint, input CheckoutInput) (string, string, error) {
	name := strings.TrimSpace(input.CustomerName)
	email := strings.TrimSpace(input.CustomerEmail)

	if name == "" || email == "" {
		u, err := s.users.Me(ctx, userID)
		if err != nil && !errors.Is(err, user.ErrUserNotFound) {
			return "", "", err
		}
		if u != nil {
			if name == "" {
				name = u.Name
			}
			if email == "" {
				email = u.Email
			}
		}
	}

	normalized, ok := utils.NormalizeEmail(email)
	if name == "" || !ok {
		return "", "", ErrCustomerRequired
	}
	return name, normalized, nil
}

func (s *service) announce(ctx context.Context, userID uint, o *Order) {
	amount := o.Payable().StringFixed(2)
	if s.notifier != nil {
		s.notifier.Notify(ctx, userID, "order", "Order "+o.OrderNumber+" received",
			fmt.Sprintf("We received your order of %s %s.", amount, s.currency))
	}
	if s.mail != nil {
		s.mail.Enqueue(mailer.OrderConfirmation(o.CustomerEmail, o.CustomerName, o.OrderNumber,
			amount, s.currency, o.PaymentMethod))
	}
}

func (s *service) ListMine(ctx context.Context, userID uint) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Get(ctx context.Context, id uint, requester utils.Requester) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if requester.IsAdmin() {
		return o, nil
	}
	if o.UserID == nil || *o.UserID != requester.UserID {
		logger.Scoped(ctx, "service", "Get").Warn("order requested by non-owner",
			zap.Uint("order_id", id),
			zap.Uint("user_id", requester.UserID),
		)
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *service) ListAll(ctx context.Context, filter ListFilter) (*OrderList, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Status != "" && !Status(filter.Status).Valid() {
		return nil, ErrInvalidStatus
	}
	if filter.PaymentStatus != "" && !PaymentStatus(filter.PaymentStatus).Valid() {
		return nil, ErrInvalidStatus
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &OrderList{Orders: orders, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// AdminUpdate applies a status and/or payment status change. Both are
// checked before either is written, and both land in one statement.
func (s *service) AdminUpdate(ctx context.Context, id uint, input AdminUpdate) (*Order, error) {
	log := logger.Scoped(ctx, "service", "AdminUpdate", zap.Uint("order_id", id))

	if input.Status == nil && input.PaymentStatus == nil {
		return nil, ErrEmptyUpdate
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		if *input.Status != o.Status && !CanTransition(o.Status, *input.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, *input.Status)
		}
	}
	if input.PaymentStatus != nil {
		if !input.PaymentStatus.Valid() {
			return nil, ErrInvalidStatus
		}
		if *input.PaymentStatus != o.PaymentStatus && !CanAdvancePayment(o.PaymentStatus, *input.PaymentStatus) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidPayment, o.PaymentStatus, *input.PaymentStatus)
		}
	}

	status, paymentStatus := o.Status, o.PaymentStatus
	if input.Status != nil {
		status = *input.Status
	}
	if input.PaymentStatus != nil {
		paymentStatus = *input.PaymentStatus
	}
	if status == o.Status && paymentStatus == o.PaymentStatus {
		return o, nil
	}

	if err := s.repo.UpdateStatuses(ctx, id, status, paymentStatus); err != nil {
		log.Error("failed to update order", zap.Error(err))
		return nil, err
	}
	statusChanged := status != o.Status
	o.Status, o.PaymentStatus = status, paymentStatus

	if statusChanged && o.UserID != nil && s.notifier != nil {
		s.notifier.Notify(ctx, *o.UserID, "order", "Order "+o.OrderNumber+" updated",
			"Your order is now "+strings.ReplaceAll(string(o.Status), "_", " ")+".")
	}

	log.Info("order updated",
		zap.String("status", string(o.Status)),
		zap.String("payment_status", string(o.PaymentStatus)),
	)
	return o, nil
}

func (s *service) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Scoped(ctx, "service", "Delete").Info("order deleted", zap.Uint("order_id", id))
	return nil
}
