package discount

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ValidityAt derives the code's state at now. Exhaustion wins over the time
// window so that an exhausted code never shows as scheduled.
func (c *Code) ValidityAt(now time.Time) Validity {
	switch {
	case !c.Active:
		return ValidityInactive
	case c.MaxUses != nil && c.UsedCount >= *c.MaxUses:
		return ValidityExhausted
	case c.ValidFrom != nil && now.Before(*c.ValidFrom):
		return ValidityScheduled
	case c.ValidUntil != nil && now.After(*c.ValidUntil):
		return ValidityExpired
	default:
		return ValidityActive
	}
}

// Evaluate checks c against subtotal at now and computes the discount. It has
// no side effects; redemption happens separately at checkout.
func Evaluate(c *Code, subtotal decimal.Decimal, now time.Time) (*Result, error) {
	if c == nil {
		return nil, ErrCodeNotFound
	}
	if subtotal.IsNegative() {
		return nil, ErrInvalidAmount
	}

	if !c.Active {
		return nil, ErrCodeInactive
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return nil, ErrCodeNotYetValid
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return nil, ErrCodeExpired
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return nil, ErrCodeExhausted
	}
	if c.MinAmount != nil && subtotal.LessThan(*c.MinAmount) {
		return nil, fmt.Errorf("%w (minimum %s)", ErrBelowMinimum, c.MinAmount.StringFixed(2))
	}

	var amount decimal.Decimal
	switch c.Type {
	case TypePercentage:
		amount = subtotal.Mul(c.Value).Div(hundred).Round(2)
	case TypeFixed:
		amount = c.Value
	default:
		return nil, ErrInvalidType
	}

	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return &Result{
		Code:           c.Code,
		Type:           c.Type,
		Value:          c.Value,
		Subtotal:       subtotal,
		DiscountAmount: amount,
		FinalAmount:    subtotal.Sub(amount),
	}, nil
}
