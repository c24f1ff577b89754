package payment

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// CanTransition reports whether an attempt may move from one status to
// another. Repeating the current status is never a transition, completed only
// moves on to refunded, and refunded is terminal. A failed attempt may still
// complete when the provider reports a late success.
func CanTransition(from, to Status) bool {
	if from == to || !to.Valid() {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCompleted || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	case StatusFailed:
		return to == StatusCompleted
	case StatusCompleted:
		return to == StatusRefunded
	default:
		return false
	}
}

const (
	ProviderStripe = "stripe"
	ProviderMollie = "mollie"
)

// Payment methods accepted at checkout.
const (
	MethodAfterService = "afterservice"
	MethodBankTransfer = "banktransfer"
	MethodCard         = "card"
	MethodBancontact   = "bancontact"
	MethodSEPA         = "sepa"
	MethodMollie       = "mollie"
	MethodPayPal       = "paypal"
	MethodIDEAL        = "ideal"
	MethodCrypto       = "crypto"
)

var methodProviders = map[string]string{
	MethodCard:       ProviderStripe,
	MethodBancontact: ProviderStripe,
	MethodSEPA:       ProviderStripe,
	MethodMollie:     ProviderMollie,
	MethodPayPal:     ProviderMollie,
	MethodIDEAL:      ProviderMollie,
}

// IsPayLater reports methods settled outside any provider.
func IsPayLater(method string) bool {
	return method == MethodAfterService || method == MethodBankTransfer
}

// ProviderForMethod maps a checkout method to its provider key.
func ProviderForMethod(method string) (string, error) {
	if p, ok := methodProviders[method]; ok {
		return p, nil
	}
	if method == MethodCrypto {
		return "", ErrUnsupportedMethod
	}
	return "", ErrInvalidMethod
}

// Payment is one attempt to pay an order through a provider.
type Payment struct {
	ID            uint            `json:"id"`
	OrderID       *uint           `json:"orderId"`
	OrderNumber   string          `json:"orderNumber,omitempty"`
	UserID        *uint           `json:"userId"`
	Provider      string          `json:"provider"`
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	IntentID      *string         `json:"intentId"`
	RedirectURL   *string         `json:"redirectUrl"`
	Status        Status          `json:"status"`
	FailureReason *string         `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// OrderRef is the slice of an order the payment flow needs.
type OrderRef struct {
	ID            uint
	OrderNumber   string
	UserID        *uint
	CustomerEmail string
	PaymentStatus string
	Payable       decimal.Decimal
}

type CreateRequest struct {
	OrderID uint            `json:"orderId"`
	Amount  decimal.Decimal `json:"amount"`
	Method  string          `json:"method"`
}

// Update is a status report for one attempt, from a webhook, the return URL
// or the reconciler. Either PaymentID or Provider+IntentID identify it.
type Update struct {
	PaymentID     uint
	Provider      string
	IntentID      string
	Status        Status
	FailureReason string
}

type ListFilter struct {
	Status   string
	Provider string
	Limit    int
	Page     int
}

type PaymentList struct {
	Payments []Payment `json:"payments"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}

// Webhook is one stored provider delivery.
type Webhook struct {
	Provider       string
	EventID        string
	EventType      string
	ExternalID     string
	Payload        json.RawMessage
	SignatureValid bool
}
