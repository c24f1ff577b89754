package quote

import "errors"

var (
	ErrQuoteNotFound    = errors.New("quote not found")
	ErrContactRequired  = errors.New("name and a valid email are required")
	ErrNothingRequested = errors.New("select at least one service or describe what you need")
	ErrUnknownService   = errors.New("unknown service selected")
	ErrInvalidStatus    = errors.New("invalid quote status")
	ErrInvalidPrice     = errors.New("estimated price must not be negative")
	ErrEmptyUpdate      = errors.New("nothing to update")
)
