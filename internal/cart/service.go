package cart

import (
	"context"
	"errors"
	"fmt"

	"koubyte-be/internal/catalog"
	"koubyte-be/internal/logger"

	"go.uber.org/zap"
)

// ServiceLookup resolves catalog services.
type ServiceLookup interface {
	Get(ctx context.Context, id uint, includeInactive bool) (*catalog.Item, error)
}

// Service defines the business logic for carts. Every mutation returns the
// refreshed cart so clients can update totals and badges in one round trip.
type Service interface {
	AddToCart(ctx context.Context, params AddToCartParams) (*Cart, error)
	UpdateQuantity(ctx context.Context, params UpdateQuantityParams) (*Cart, error)
	RemoveItem(ctx context.Context, userID, cartItemID uint) (*Cart, error)
	GetCart(ctx context.Context, userID uint) (*Cart, error)
	ClearCart(ctx context.Context, userID uint) error
}

type service struct {
	repo     Repository
	services ServiceLookup
}

func NewService(repo Repository, services ServiceLookup) Service {
	return &service{repo: repo, services: services}
}

func (s *service) AddToCart(ctx context.Context, params AddToCartParams) (*Cart, error) {
	log := logger.Scoped(ctx, "service", "AddToCart",
		zap.Uint("user_id", params.UserID),
		zap.Uint("service_id", params.ServiceID),
	)

	if params.Quantity == 0 {
		params.Quantity = 1
	}
	if params.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if params.ServiceID == 0 {
		return nil, ErrInvalidCartInput
	}

	if _, err := s.services.Get(ctx, params.ServiceID, false); err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	item, err := s.repo.Upsert(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedUpsertCart, err)
	}

	log.Info("cart item added", zap.Uint("cart_item_id", item.ID), zap.Int("quantity", item.Quantity))
	return s.GetCart(ctx, params.UserID)
}

func (s *service) UpdateQuantity(ctx context.Context, params UpdateQuantityParams) (*Cart, error) {
	if params.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if params.CartItemID == 0 {
		return nil, ErrInvalidCartInput
	}

	if err := s.repo.UpdateQuantity(ctx, params); err != nil {
		if errors.Is(err, ErrCartItemNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrFailedUpdateCart, err)
	}
	return s.GetCart(ctx, params.UserID)
}

func (s *service) RemoveItem(ctx context.Context, userID, cartItemID uint) (*Cart, error) {
	if cartItemID == 0 {
		return nil, ErrInvalidCartInput
	}
	if err := s.repo.Remove(ctx, userID, cartItemID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedRemoveCart, err)
	}
	return s.GetCart(ctx, userID)
}

func (s *service) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	lines, err := s.repo.Lines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedGetCart, err)
	}
	return Build(lines), nil
}

func (s *service) ClearCart(ctx context.Context, userID uint) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedClearCart, err)
	}
	return nil
}
