package payment

import "errors"

var (
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrForbidden         = errors.New("not allowed to pay this order")
	ErrOrderAlreadyPaid  = errors.New("order is already paid")
	ErrAmountMismatch    = errors.New("amount does not match the order total")
	ErrInvalidMethod     = errors.New("invalid payment method")
	ErrUnsupportedMethod = errors.New("payment method is not supported")
	ErrNotRefundable     = errors.New("only completed payments can be refunded")
	ErrMissingIntent     = errors.New("payment has no provider reference yet")
	ErrInvalidUpdate     = errors.New("invalid payment update")
	ErrProviderFailure   = errors.New("payment provider request failed")
)
