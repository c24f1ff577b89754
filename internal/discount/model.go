package discount

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
)

// Validity is derived from the code's fields and the clock; it is never stored.
type Validity string

const (
	ValidityActive    Validity = "active"
	ValidityScheduled Validity = "scheduled"
	ValidityExpired   Validity = "expired"
	ValidityExhausted Validity = "exhausted"
	ValidityInactive  Validity = "inactive"
)

type Code struct {
	ID         uint             `json:"id"`
	Code       string           `json:"code"`
	Type       Type             `json:"type"`
	Value      decimal.Decimal  `json:"value"`
	MinAmount  *decimal.Decimal `json:"minAmount,omitempty"`
	MaxUses    *int             `json:"maxUses,omitempty"`
	UsedCount  int              `json:"usedCount"`
	ValidFrom  *time.Time       `json:"validFrom,omitempty"`
	ValidUntil *time.Time       `json:"validUntil,omitempty"`
	Active     bool             `json:"active"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// View is a code as shown to admins, with its derived validity.
type View struct {
	Code
	Validity Validity `json:"validity"`
}

type Result struct {
	Code           string          `json:"code"`
	Type           Type            `json:"type"`
	Value          decimal.Decimal `json:"value"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalAmount    decimal.Decimal `json:"finalAmount"`
}

type CreateInput struct {
	Code       string           `json:"code"`
	Type       Type             `json:"type"`
	Value      decimal.Decimal  `json:"value"`
	MinAmount  *decimal.Decimal `json:"minAmount,omitempty"`
	MaxUses    *int             `json:"maxUses,omitempty"`
	ValidFrom  *time.Time       `json:"validFrom,omitempty"`
	ValidUntil *time.Time       `json:"validUntil,omitempty"`
	Active     *bool            `json:"active,omitempty"`
}

type UpdateInput struct {
	Type       *Type            `json:"type,omitempty"`
	Value      *decimal.Decimal `json:"value,omitempty"`
	MinAmount  *decimal.Decimal `json:"minAmount,omitempty"`
	MaxUses    *int             `json:"maxUses,omitempty"`
	ValidFrom  *time.Time       `json:"validFrom,omitempty"`
	ValidUntil *time.Time       `json:"validUntil,omitempty"`
	Active     *bool            `json:"active,omitempty"`
}
