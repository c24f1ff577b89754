package notification

import (
	"context"

	"koubyte-be/internal/logger"

	"go.uber.org/zap"
)

const inboxSize = 50

type Service interface {
	Notify(ctx context.Context, userID uint, kind, title, body string)
	List(ctx context.Context, userID uint) (*Inbox, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Notify is fire and forget: a failed insert is logged and never fails the
// caller's operation.
func (s *service) Notify(ctx context.Context, userID uint, kind, title, body string) {
	if userID == 0 {
		return
	}
	n := &Notification{UserID: userID, Kind: kind, Title: title, Body: body}
	if err := s.repo.Create(ctx, n); err != nil {
		logger.Scoped(ctx, "service", "Notify",
			zap.Uint("user_id", userID),
			zap.String("kind", kind),
		).Error("failed to store notification", zap.Error(err))
	}
}

func (s *service) List(ctx context.Context, userID uint) (*Inbox, error) {
	list, err := s.repo.ListByUser(ctx, userID, inboxSize)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Inbox{Notifications: list, Unread: unread}, nil
}

func (s *service) MarkRead(ctx context.Context, userID, id uint) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *service) MarkAllRead(ctx context.Context, userID uint) error {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return err
	}
	logger.Scoped(ctx, "service", "MarkAllRead").Debug("notifications read", zap.Int64("count", n))
	return nil
}
