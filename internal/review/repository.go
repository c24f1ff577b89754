package review

import (
	"context"
	"database/sql"
)

type Repository interface {
	Create(ctx context.Context, r *Review) error
	List(ctx context.Context, approvedOnly bool) ([]Review, error)
	SetApproved(ctx context.Context, id uint, approved bool) error
	Delete(ctx context.Context, id uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rv *Review) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO reviews (user_id, service_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, approved, created_at`,
		rv.UserID, rv.ServiceID, rv.Rating, rv.Comment,
	).Scan(&rv.ID, &rv.Approved, &rv.CreatedAt)
}

func (r *repository) List(ctx context.Context, approvedOnly bool) ([]Review, error) {
	query := `
		SELECT r.id, r.user_id, COALESCE(u.name, ''), r.service_id, r.rating, r.comment, r.approved, r.created_at
		FROM reviews r
		LEFT JOIN users u ON u.id = r.user_id`
	if approvedOnly {
		query += " WHERE r.approved"
	}
	query += " ORDER BY r.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []Review{}
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.UserName, &rv.ServiceID, &rv.Rating, &rv.Comment,
			&rv.Approved, &rv.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, rv)
	}
	return list, rows.Err()
}

func (r *repository) SetApproved(ctx context.Context, id uint, approved bool) error {
	return r.exec(ctx, `UPDATE reviews SET approved = $2 WHERE id = $1`, id, approved)
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	return r.exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
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
		return ErrReviewNotFound
	}
	return nil
}
