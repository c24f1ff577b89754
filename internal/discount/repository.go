package discount

import (
	"context"
	"database/sql"
	"errors"

	"koubyte-be/internal/db"
	"koubyte-be/internal/logger"

	"go.uber.org/zap"
)

// Repository persists discount codes. Methods taking a db.DBTX may run inside
// a caller-owned transaction.
type Repository interface {
	GetByCode(ctx context.Context, q db.DBTX, code string, forUpdate bool) (*Code, error)
	GetByID(ctx context.Context, id uint) (*Code, error)
	Redeem(ctx context.Context, q db.DBTX, id uint) error
	List(ctx context.Context) ([]Code, error)
	Create(ctx context.Context, input CreateInput) (*Code, error)
	Update(ctx context.Context, id uint, input UpdateInput) (*Code, error)
	Delete(ctx context.Context, id uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const codeColumns = `id, code, type, value, min_amount, max_uses, used_count, valid_from, valid_until,
	active, created_at, updated_at`

func scanCode(row interface{ Scan(...any) error }) (*Code, error) {
	var c Code
	err := row.Scan(&c.ID, &c.Code, &c.Type, &c.Value, &c.MinAmount, &c.MaxUses, &c.UsedCount,
		&c.ValidFrom, &c.ValidUntil, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) GetByCode(ctx context.Context, q db.DBTX, code string, forUpdate bool) (*Code, error) {
	if q == nil {
		q = r.db
	}
	query := "SELECT " + codeColumns + " FROM discount_codes WHERE code = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	c, err := scanCode(q.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	return c, err
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Code, error) {
	c, err := scanCode(r.db.QueryRowContext(ctx, "SELECT "+codeColumns+" FROM discount_codes WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	return c, err
}

// Redeem consumes one use. The guarded UPDATE keeps used_count <= max_uses
// even when two checkouts race for the last use.
func (r *repository) Redeem(ctx context.Context, q db.DBTX, id uint) error {
	if q == nil {
		q = r.db
	}
	res, err := q.ExecContext(ctx, `
		UPDATE discount_codes
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)`,
		id,
	)
	if err != nil {
		logger.Scoped(ctx, "repository", "Redeem", zap.Uint("discount_id", id)).Error("failed to redeem code", zap.Error(err))
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCodeExhausted
	}
	return nil
}

func (r *repository) List(ctx context.Context) ([]Code, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+codeColumns+" FROM discount_codes ORDER BY created_at DESC")
	if err != nil {
		logger.Scoped(ctx, "repository", "List").Error("failed to list codes", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	codes := []Code{}
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, *c)
	}
	return codes, rows.Err()
}

func (r *repository) Create(ctx context.Context, input CreateInput) (*Code, error) {
	active := true
	if input.Active != nil {
		active = *input.Active
	}

	c, err := scanCode(r.db.QueryRowContext(ctx, `
		INSERT INTO discount_codes (code, type, value, min_amount, max_uses, valid_from, valid_until, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+codeColumns,
		input.Code, input.Type, input.Value, input.MinAmount, input.MaxUses,
		input.ValidFrom, input.ValidUntil, active,
	))
	if err != nil {
		if db.IsUniqueViolation(err, "discount_codes_code_key") {
			return nil, ErrCodeExists
		}
		logger.Scoped(ctx, "repository", "Create").Error("failed to insert code", zap.Error(err))
		return nil, err
	}
	return c, nil
}

func (r *repository) Update(ctx context.Context, id uint, input UpdateInput) (*Code, error) {
	c, err := scanCode(r.db.QueryRowContext(ctx, `
		UPDATE discount_codes SET
			type        = COALESCE($2, type),
			value       = COALESCE($3, value),
			min_amount  = COALESCE($4, min_amount),
			max_uses    = COALESCE($5, max_uses),
			valid_from  = COALESCE($6, valid_from),
			valid_until = COALESCE($7, valid_until),
			active      = COALESCE($8, active),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING `+codeColumns,
		id, input.Type, input.Value, input.MinAmount, input.MaxUses,
		input.ValidFrom, input.ValidUntil, input.Active,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	return c, err
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM discount_codes WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCodeNotFound
	}
	return nil
}
