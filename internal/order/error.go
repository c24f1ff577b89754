package order

import "errors"

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrForbidden          = errors.New("not allowed to view this order")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrServiceUnavailable = errors.New("a service in your cart is no longer available")
	ErrInvalidMethod      = errors.New("invalid payment method")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrInvalidTransition  = errors.New("order status change not allowed")
	ErrInvalidPayment     = errors.New("payment status change not allowed")
	ErrEmptyUpdate        = errors.New("nothing to update")
	ErrCustomerRequired   = errors.New("customer name and email are required")
)
