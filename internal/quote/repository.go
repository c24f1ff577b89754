package quote

import (
	"context"
	"database/sql"
	"errors"

	"koubyte-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, q *Quote) error
	List(ctx context.Context, userID *uint) ([]Quote, error)
	GetByID(ctx context.Context, id uint) (*Quote, error)
	Update(ctx context.Context, id uint, input UpdateInput) (*Quote, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const quoteColumns = `id, user_id, name, email, phone, company, service_ids, service_description,
	message, estimated_price, status, admin_notes, created_at, updated_at`

func scanQuote(row interface{ Scan(...any) error }) (*Quote, error) {
	var q Quote
	err := row.Scan(&q.ID, &q.UserID, &q.Name, &q.Email, &q.Phone, &q.Company, pq.Array(&q.ServiceIDs),
		&q.ServiceDescription, &q.Message, &q.EstimatedPrice, &q.Status, &q.AdminNotes, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if q.ServiceIDs == nil {
		q.ServiceIDs = []int64{}
	}
	return &q, nil
}

func (r *repository) Create(ctx context.Context, q *Quote) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO quotes (user_id, name, email, phone, company, service_ids, service_description, message, estimated_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		q.UserID, q.Name, q.Email, q.Phone, q.Company, pq.Array(q.ServiceIDs), q.ServiceDescription,
		q.Message, q.EstimatedPrice, q.Status,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		logger.Scoped(ctx, "repository", "Create").Error("failed to insert quote", zap.Error(err))
	}
	return err
}

// List returns every quote when userID is nil.
func (r *repository) List(ctx context.Context, userID *uint) ([]Quote, error) {
	query := "SELECT " + quoteColumns + " FROM quotes"
	args := []any{}
	if userID != nil {
		query += " WHERE user_id = $1"
		args = append(args, *userID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotes := []Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Quote, error) {
	q, err := scanQuote(r.db.QueryRowContext(ctx, "SELECT "+quoteColumns+" FROM quotes WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuoteNotFound
	}
	return q, err
}

func (r *repository) Update(ctx context.Context, id uint, input UpdateInput) (*Quote, error) {
	q, err := scanQuote(r.db.QueryRowContext(ctx, `
		UPDATE quotes SET
			status = COALESCE($2, status),
			admin_notes = COALESCE($3, admin_notes),
			estimated_price = COALESCE($4, estimated_price),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+quoteColumns,
		id, input.Status, input.AdminNotes, input.EstimatedPrice,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuoteNotFound
	}
	return q, err
}
