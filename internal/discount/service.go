package discount

import (
	"context"
	"strings"
	"time"

	"koubyte-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	Preview(ctx context.Context, code string, subtotal decimal.Decimal) (*Result, error)
	List(ctx context.Context) ([]View, error)
	Create(ctx context.Context, input CreateInput) (*View, error)
	Update(ctx context.Context, id uint, input UpdateInput) (*View, error)
	Delete(ctx context.Context, id uint) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) Preview(ctx context.Context, code string, subtotal decimal.Decimal) (*Result, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCodeRequired
	}

	c, err := s.repo.GetByCode(ctx, nil, code, false)
	if err != nil {
		return nil, err
	}

	res, err := Evaluate(c, subtotal, s.now())
	if err != nil {
		logger.Scoped(ctx, "service", "Preview").Info("discount code rejected",
			zap.String("code", code), zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (s *service) List(ctx context.Context) ([]View, error) {
	codes, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]View, 0, len(codes))
	for _, c := range codes {
		views = append(views, View{Code: c, Validity: c.ValidityAt(now)})
	}
	return views, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*View, error) {
	input.Code = NormalizeCode(input.Code)
	if input.Code == "" {
		return nil, ErrCodeRequired
	}
	if err := validateTerms(input.Type, input.Value, input.MinAmount, input.MaxUses); err != nil {
		return nil, err
	}
	if input.ValidFrom != nil && input.ValidUntil != nil && !input.ValidUntil.After(*input.ValidFrom) {
		return nil, ErrInvalidWindow
	}

	c, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	logger.Scoped(ctx, "service", "Create").Info("discount code created", zap.String("code", c.Code))
	return &View{Code: *c, Validity: c.ValidityAt(s.now())}, nil
}

func (s *service) Update(ctx context.Context, id uint, input UpdateInput) (*View, error) {
	if input.Type != nil || input.Value != nil {
		// Type and value are validated together against the stored row.
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		typ, val := existing.Type, existing.Value
		if input.Type != nil {
			typ = *input.Type
		}
		if input.Value != nil {
			val = *input.Value
		}
		if err := validateTerms(typ, val, input.MinAmount, input.MaxUses); err != nil {
			return nil, err
		}
	} else if err := validateTerms(TypeFixed, decimal.NewFromInt(1), input.MinAmount, input.MaxUses); err != nil {
		return nil, err
	}
	if input.ValidFrom != nil && input.ValidUntil != nil && !input.ValidUntil.After(*input.ValidFrom) {
		return nil, ErrInvalidWindow
	}

	c, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}
	return &View{Code: *c, Validity: c.ValidityAt(s.now())}, nil
}

func (s *service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func validateTerms(typ Type, value decimal.Decimal, minAmount *decimal.Decimal, maxUses *int) error {
	switch typ {
	case TypePercentage:
		if !value.IsPositive() || value.GreaterThan(hundred) {
			return ErrInvalidValue
		}
	case TypeFixed:
		if !value.IsPositive() {
			return ErrInvalidValue
		}
	default:
		return ErrInvalidType
	}
	if minAmount != nil && minAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if maxUses != nil && *maxUses < 1 {
		return ErrInvalidValue
	}
	return nil
}
