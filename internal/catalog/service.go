package catalog

import (
	"context"
	"strings"

	"koubyte-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	List(ctx context.Context, filter ListFilter) ([]Item, error)
	Get(ctx context.Context, id uint, includeInactive bool) (*Item, error)
	GetMany(ctx context.Context, ids []uint) ([]Item, error)
	Create(ctx context.Context, input CreateInput) (*Item, error)
	Update(ctx context.Context, id uint, input UpdateInput) (*Item, error)
	Delete(ctx context.Context, id uint) error
	Categories(ctx context.Context) ([]string, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Item, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	return s.repo.List(ctx, filter)
}

func (s *service) Get(ctx context.Context, id uint, includeInactive bool) (*Item, error) {
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !it.Active && !includeInactive {
		return nil, ErrServiceNotFound
	}
	return it, nil
}

func (s *service) GetMany(ctx context.Context, ids []uint) ([]Item, error) {
	return s.repo.GetByIDs(ctx, ids)
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Item, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrNameRequired
	}
	if input.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	input.Category = strings.TrimSpace(input.Category)

	it, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	logger.Scoped(ctx, "service", "Create").Info("service created",
		zap.Uint("service_id", it.ID), zap.String("price", it.Price.StringFixed(2)))
	return it, nil
}

func (s *service) Update(ctx context.Context, id uint, input UpdateInput) (*Item, error) {
	if input.empty() {
		return nil, ErrEmptyUpdate
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		input.Name = &name
	}
	if input.Price != nil && input.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}

	return s.repo.Update(ctx, id, input)
}

func (s *service) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	logger.Scoped(ctx, "service", "Delete").Info("service deactivated", zap.Uint("service_id", id))
	return nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}
