package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedProvider is returned when the manager has no adapter for a key.
var ErrUnsupportedProvider = errors.New("payment: unsupported provider")

// CheckoutSessionRequest is what a provider needs to open a hosted payment page.
// Amount is in minor units.
type CheckoutSessionRequest struct {
	PaymentID   uint
	OrderNumber string
	Method      string
	Amount      int64
	Currency    string
	Email       string
	Description string
	ReturnURL   string
	CancelURL   string
	WebhookURL  string
	Metadata    map[string]string
}

type CheckoutSession struct {
	IntentID    string
	RedirectURL string
}

type RefundRequest struct {
	IntentID       string
	Amount         int64
	Currency       string
	IdempotencyKey string
}

// Details is a provider status normalised onto Status.
type Details struct {
	IntentID string
	Status   Status
	Reason   string
}

// Provider is implemented by every payment service provider adapter.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	LookupPayment(ctx context.Context, intentID string) (Details, error)
	Refund(ctx context.Context, req RefundRequest) error
}

// Manager routes calls to the configured providers.
type Manager struct {
	providers map[string]Provider
}

// NewManager keeps the non-nil providers. An empty manager is valid: every
// provider method is then rejected at checkout.
func NewManager(providers map[string]Provider) *Manager {
	m := &Manager{providers: make(map[string]Provider, len(providers))}
	for k, p := range providers {
		if p == nil {
			continue
		}
		m.providers[strings.ToLower(strings.TrimSpace(k))] = p
	}
	return m
}

func (m *Manager) Get(name string) (Provider, error) {
	p, ok := m.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return p, nil
}

func (m *Manager) Has(name string) bool {
	_, err := m.Get(name)
	return err == nil
}

// MinorUnits converts an amount to cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts cents back to a decimal amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
