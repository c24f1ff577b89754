package chat

import (
	"context"
	"crypto/subtle"
	"errors"
	"unicode/utf8"

	"koubyte-be/internal/logger"
	"koubyte-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxMessageLength = 2000
	pageSize         = 200
)

type Service interface {
	Start(ctx context.Context, p Participant, input StartInput) (*Started, error)
	Send(ctx context.Context, conversationID uint, p Participant, text string) (*Message, error)
	Messages(ctx context.Context, conversationID uint, p Participant, cursor Cursor) ([]Message, error)
	Mine(ctx context.Context, p Participant) ([]Conversation, error)
	ListConversations(ctx context.Context, status Status) ([]Conversation, error)
	SetStatus(ctx context.Context, id uint, status Status) error
	MarkRead(ctx context.Context, id uint) error
}

type service struct {
	repo     Repository
	newToken func() string
}

func NewService(repo Repository) Service {
	return &service{repo: repo, newToken: func() string { return uuid.NewString() }}
}

func cleanText(text string) (string, error) {
	body := utils.SanitizeText(text)
	if body == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return "", ErrMessageTooLong
	}
	return body, nil
}

// Start opens a conversation. Signed in users continue their open
// conversation if they have one; guests always get a new one plus a token.
func (s *service) Start(ctx context.Context, p Participant, input StartInput) (*Started, error) {
	log := logger.Scoped(ctx, "service", "Start", zap.Uint("user_id", p.UserID))

	var first string
	if input.Message != "" {
		body, err := cleanText(input.Message)
		if err != nil {
			return nil, err
		}
		first = body
	}

	out := &Started{}
	if p.UserID != 0 {
		c, err := s.repo.FindOpenByUser(ctx, p.UserID)
		if err != nil && !errors.Is(err, ErrConversationNotFound) {
			return nil, err
		}
		if c == nil {
			userID := p.UserID
			c = &Conversation{UserID: &userID}
			if err := s.repo.CreateConversation(ctx, c); err != nil {
				log.Error("failed to create conversation", zap.Error(err))
				return nil, err
			}
			c.Name, c.Email = p.Name, p.Email
		}
		out.Conversation = c
	} else {
		name := utils.SanitizeText(input.Name)
		email, ok := utils.NormalizeEmail(input.Email)
		if name == "" || !ok {
			return nil, ErrGuestDetails
		}
		token := s.newToken()
		c := &Conversation{Name: name, Email: email, GuestToken: &token}
		if err := s.repo.CreateConversation(ctx, c); err != nil {
			log.Error("failed to create guest conversation", zap.Error(err))
			return nil, err
		}
		out.Conversation = c
		out.GuestToken = token
		p.GuestToken = token
		p.Name = name
	}

	if first != "" {
		m := &Message{
			ConversationID: out.Conversation.ID,
			Sender:         p.sender(),
			SenderName:     p.Name,
			Body:           first,
		}
		if err := s.repo.AddMessage(ctx, m); err != nil {
			return nil, err
		}
		out.Message = m
		out.Conversation.LastMessage = m.Body
		out.Conversation.LastMessageAt = m.CreatedAt
	}

	log.Info("conversation started", zap.Uint("conversation_id", out.Conversation.ID))
	return out, nil
}

func (s *service) authorize(ctx context.Context, conversationID uint, p Participant) (*Conversation, error) {
	c, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	switch {
	case p.Admin:
		return c, nil
	case p.UserID != 0 && c.UserID != nil && *c.UserID == p.UserID:
		return c, nil
	case p.GuestToken != "" && c.GuestToken != nil &&
		subtle.ConstantTimeCompare([]byte(p.GuestToken), []byte(*c.GuestToken)) == 1:
		return c, nil
	}
	return nil, ErrForbidden
}

// Send appends a message. Customers cannot write into a closed conversation;
// admins can.
func (s *service) Send(ctx context.Context, conversationID uint, p Participant, text string) (*Message, error) {
	body, err := cleanText(text)
	if err != nil {
		return nil, err
	}
	c, err := s.authorize(ctx, conversationID, p)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusClosed && !p.Admin {
		return nil, ErrConversationClosed
	}

	name := p.Name
	if name == "" && !p.Admin {
		name = c.Name
	}
	m := &Message{ConversationID: c.ID, Sender: p.sender(), SenderName: name, Body: body}
	if err := s.repo.AddMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) Messages(ctx context.Context, conversationID uint, p Participant, cursor Cursor) ([]Message, error) {
	if _, err := s.authorize(ctx, conversationID, p); err != nil {
		return nil, err
	}
	return s.repo.Messages(ctx, conversationID, cursor, pageSize)
}

// Mine lists a signed in user's conversations. Guests address theirs by id
// and token instead.
func (s *service) Mine(ctx context.Context, p Participant) ([]Conversation, error) {
	if p.UserID != 0 {
		return s.repo.ListByUser(ctx, p.UserID)
	}
	return []Conversation{}, nil
}

func (s *service) ListConversations(ctx context.Context, status Status) ([]Conversation, error) {
	if status != "" && status != StatusOpen && status != StatusClosed {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListConversations(ctx, status)
}

func (s *service) SetStatus(ctx context.Context, id uint, status Status) error {
	if status != StatusOpen && status != StatusClosed {
		return ErrInvalidStatus
	}
	return s.repo.SetStatus(ctx, id, status)
}

func (s *service) MarkRead(ctx context.Context, id uint) error {
	return s.repo.MarkRead(ctx, id)
}
