package catalog

import "errors"

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrNameRequired    = errors.New("service name is required")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrEmptyUpdate     = errors.New("no fields to update")
)
