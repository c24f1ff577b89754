package review

import (
	"context"
	"unicode/utf8"

	"koubyte-be/internal/logger"
	"koubyte-be/internal/utils"

	"go.uber.org/zap"
)

const maxCommentLength = 2000

type Service interface {
	Create(ctx context.Context, userID uint, input CreateInput) (*Review, error)
	Public(ctx context.Context) (*Summary, error)
	ListAll(ctx context.Context) ([]Review, error)
	SetApproved(ctx context.Context, id uint, approved bool) error
	Delete(ctx context.Context, id uint) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Create stores a review awaiting moderation.
func (s *service) Create(ctx context.Context, userID uint, input CreateInput) (*Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, ErrInvalidRating
	}
	comment := utils.SanitizeText(input.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, ErrCommentTooLong
	}

	rv := &Review{UserID: userID, ServiceID: input.ServiceID, Rating: input.Rating, Comment: comment}
	if err := s.repo.Create(ctx, rv); err != nil {
		logger.Scoped(ctx, "service", "Create").Error("failed to store review", zap.Error(err))
		return nil, err
	}
	return rv, nil
}

func (s *service) Public(ctx context.Context) (*Summary, error) {
	list, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Reviews: list, Count: len(list)}
	if len(list) > 0 {
		total := 0
		for _, rv := range list {
			total += rv.Rating
		}
		sum.Average = float64(total) / float64(len(list))
	}
	return sum, nil
}

func (s *service) ListAll(ctx context.Context) ([]Review, error) {
	return s.repo.List(ctx, false)
}

func (s *service) SetApproved(ctx context.Context, id uint, approved bool) error {
	return s.repo.SetApproved(ctx, id, approved)
}

func (s *service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}
