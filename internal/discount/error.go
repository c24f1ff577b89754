package discount

import "errors"

var (
	ErrCodeNotFound    = errors.New("discount code not found")
	ErrCodeInactive    = errors.New("discount code is not active")
	ErrCodeNotYetValid = errors.New("discount code is not valid yet")
	ErrCodeExpired     = errors.New("discount code has expired")
	ErrCodeExhausted   = errors.New("discount code usage limit reached")
	ErrBelowMinimum    = errors.New("order amount is below the minimum for this code")

	ErrCodeRequired  = errors.New("discount code is required")
	ErrCodeExists    = errors.New("discount code already exists")
	ErrInvalidType   = errors.New("discount type must be percentage or fixed")
	ErrInvalidValue  = errors.New("invalid discount value")
	ErrInvalidWindow = errors.New("validUntil must be after validFrom")
	ErrInvalidAmount = errors.New("amount must not be negative")
)
