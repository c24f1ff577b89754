package contact

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"koubyte-be/internal/logger"
	"koubyte-be/internal/mailer"
	"koubyte-be/internal/utils"

	"go.uber.org/zap"
)

const maxMessageLength = 5000

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidInput    = errors.New("name, a valid email and a message are required")
	ErrMessageTooLong  = errors.New("message is too long")
)

type Message struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type Repository interface {
	Create(ctx context.Context, m *Message) error
	List(ctx context.Context, unreadOnly bool) ([]Message, error)
	SetRead(ctx context.Context, id uint, read bool) error
	Delete(ctx context.Context, id uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, m *Message) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO contact_messages (name, email, subject, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		m.Name, m.Email, m.Subject, m.Message,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *repository) List(ctx context.Context, unreadOnly bool) ([]Message, error) {
	query := `SELECT id, name, email, subject, message, read, created_at FROM contact_messages`
	if unreadOnly {
		query += " WHERE NOT read"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *repository) SetRead(ctx context.Context, id uint, read bool) error {
	return r.exec(ctx, `UPDATE contact_messages SET read = $2 WHERE id = $1`, id, read)
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	return r.exec(ctx, `DELETE FROM contact_messages WHERE id = $1`, id)
}

func (r *repository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMessageNotFound
	}
	return nil
}

type Mailer interface {
	Enqueue(msg mailer.Message) bool
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*Message, error)
	List(ctx context.Context, unreadOnly bool) ([]Message, error)
	SetRead(ctx context.Context, id uint, read bool) error
	Delete(ctx context.Context, id uint) error
}

type service struct {
	repo       Repository
	mail       Mailer
	adminEmail string
}

func NewService(repo Repository, mail Mailer, adminEmail string) Service {
	return &service{repo: repo, mail: mail, adminEmail: adminEmail}
}

// Create stores the message and alerts the admin mailbox when one is set.
func (s *service) Create(ctx context.Context, input CreateInput) (*Message, error) {
	name := utils.SanitizeText(input.Name)
	email, ok := utils.NormalizeEmail(input.Email)
	body := utils.SanitizeText(input.Message)
	if name == "" || !ok || body == "" {
		return nil, ErrInvalidInput
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, ErrMessageTooLong
	}

	m := &Message{
		Name:    name,
		Email:   email,
		Subject: strings.TrimSpace(utils.SanitizeText(input.Subject)),
		Message: body,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		logger.Scoped(ctx, "service", "Create").Error("failed to store contact message", zap.Error(err))
		return nil, err
	}

	if s.mail != nil && s.adminEmail != "" {
		s.mail.Enqueue(mailer.ContactAlert(s.adminEmail, m.Name, m.Email, m.Subject, m.Message))
	}
	return m, nil
}

func (s *service) List(ctx context.Context, unreadOnly bool) ([]Message, error) {
	return s.repo.List(ctx, unreadOnly)
}

func (s *service) SetRead(ctx context.Context, id uint, read bool) error {
	return s.repo.SetRead(ctx, id, read)
}

func (s *service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}
