package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"koubyte-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	CreateConversation(ctx context.Context, c *Conversation) error
	FindOpenByUser(ctx context.Context, userID uint) (*Conversation, error)
	GetConversation(ctx context.Context, id uint) (*Conversation, error)
	ListConversations(ctx context.Context, status Status) ([]Conversation, error)
	ListByUser(ctx context.Context, userID uint) ([]Conversation, error)
	AddMessage(ctx context.Context, m *Message) error
	Messages(ctx context.Context, conversationID uint, cursor Cursor, limit int) ([]Message, error)
	SetStatus(ctx context.Context, id uint, status Status) error
	MarkRead(ctx context.Context, id uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const conversationSelect = `
	SELECT c.id, c.user_id,
		COALESCE(NULLIF(c.guest_name, ''), u.name, ''),
		COALESCE(NULLIF(c.guest_email, ''), u.email, ''),
		c.guest_token, c.status, c.unread_admin,
		COALESCE((SELECT m.body FROM chat_messages m WHERE m.conversation_id = c.id ORDER BY m.id DESC LIMIT 1), ''),
		c.last_message_at, c.created_at
	FROM conversations c
	LEFT JOIN users u ON u.id = c.user_id`

func scanConversation(row interface{ Scan(...any) error }) (*Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.GuestToken, &c.Status, &c.UnreadAdmin,
		&c.LastMessage, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) listConversations(ctx context.Context, query string, args ...any) ([]Conversation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

func (r *repository) CreateConversation(ctx context.Context, c *Conversation) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO conversations (user_id, guest_name, guest_email, guest_token, status)
		VALUES ($1, $2, $3, $4, 'open')
		RETURNING id, status, last_message_at, created_at`,
		c.UserID, c.Name, c.Email, c.GuestToken,
	).Scan(&c.ID, &c.Status, &c.LastMessageAt, &c.CreatedAt)
}

func (r *repository) FindOpenByUser(ctx context.Context, userID uint) (*Conversation, error) {
	c, err := scanConversation(r.db.QueryRowContext(ctx, conversationSelect+`
		WHERE c.user_id = $1 AND c.status = 'open'
		ORDER BY c.last_message_at DESC
		LIMIT 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	return c, err
}

func (r *repository) GetConversation(ctx context.Context, id uint) (*Conversation, error) {
	c, err := scanConversation(r.db.QueryRowContext(ctx, conversationSelect+" WHERE c.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	return c, err
}

// ListConversations orders by most recent activity.
func (r *repository) ListConversations(ctx context.Context, status Status) ([]Conversation, error) {
	if status == "" {
		return r.listConversations(ctx, conversationSelect+" ORDER BY c.last_message_at DESC, c.id DESC")
	}
	return r.listConversations(ctx, conversationSelect+
		" WHERE c.status = $1 ORDER BY c.last_message_at DESC, c.id DESC", status)
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Conversation, error) {
	return r.listConversations(ctx, conversationSelect+
		" WHERE c.user_id = $1 ORDER BY c.last_message_at DESC, c.id DESC", userID)
}

// AddMessage appends m and bumps the conversation's activity in one
// transaction. Messages from customers raise the admin unread counter.
func (r *repository) AddMessage(ctx context.Context, m *Message) error {
	log := logger.Scoped(ctx, "repository", "AddMessage", zap.Uint("conversation_id", m.ConversationID))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO chat_messages (conversation_id, sender, sender_name, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		m.ConversationID, m.Sender, m.SenderName, m.Body,
	).Scan(&m.ID, &m.CreatedAt); err != nil {
		log.Error("failed to insert message", zap.Error(err))
		return err
	}

	unread := 1
	if m.Sender == SenderAdmin {
		unread = 0
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations
		SET last_message_at = $2, unread_admin = unread_admin + $3
		WHERE id = $1`,
		m.ConversationID, m.CreatedAt, unread,
	); err != nil {
		log.Error("failed to touch conversation", zap.Error(err))
		return err
	}

	return tx.Commit()
}

// Messages returns the conversation oldest first. Without a cursor the whole
// history is returned; limit only caps incremental polls.
func (r *repository) Messages(ctx context.Context, conversationID uint, cursor Cursor, limit int) ([]Message, error) {
	query := `
		SELECT id, conversation_id, sender, sender_name, body, created_at
		FROM chat_messages
		WHERE conversation_id = $1`
	args := []any{conversationID}
	switch {
	case cursor.AfterID > 0:
		query += " AND id > $2"
		args = append(args, cursor.AfterID)
	case !cursor.Since.IsZero():
		query += " AND created_at > $2"
		args = append(args, cursor.Since)
	}
	query += " ORDER BY id ASC"
	if !cursor.IsZero() && limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.SenderName, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *repository) SetStatus(ctx context.Context, id uint, status Status) error {
	return r.exec(ctx, `UPDATE conversations SET status = $2 WHERE id = $1`, id, status)
}

func (r *repository) MarkRead(ctx context.Context, id uint) error {
	return r.exec(ctx, `UPDATE conversations SET unread_admin = 0 WHERE id = $1`, id)
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
		return ErrConversationNotFound
	}
	return nil
}
