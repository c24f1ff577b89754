package cart

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrInvalidCartInput = errors.New("invalid cart input")

	// -- Resource State --
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrServiceNotFound  = errors.New("service not found")
	ErrCartEmpty        = errors.New("cart is empty")

	// -- Database & Operation Failures --
	ErrFailedGetCart    = errors.New("failed to get cart")
	ErrFailedUpsertCart = errors.New("failed to add cart item")
	ErrFailedUpdateCart = errors.New("failed to update cart item")
	ErrFailedRemoveCart = errors.New("failed to remove cart item")
	ErrFailedClearCart  = errors.New("failed to clear cart")
)
