package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"koubyte-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Item, error)
	GetByID(ctx context.Context, id uint) (*Item, error)
	GetByIDs(ctx context.Context, ids []uint) ([]Item, error)
	Create(ctx context.Context, input CreateInput) (*Item, error)
	Update(ctx context.Context, id uint, input UpdateInput) (*Item, error)
	Deactivate(ctx context.Context, id uint) error
	Categories(ctx context.Context) ([]string, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const itemColumns = `id, name, description, price, category, popular, duration, features,
	image_url, active, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var it Item
	err := row.Scan(
		&it.ID, &it.Name, &it.Description, &it.Price, &it.Category, &it.Popular,
		&it.Duration, pq.Array(&it.Features), &it.ImageURL, &it.Active,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if it.Features == nil {
		it.Features = []string{}
	}
	return &it, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Item, error) {
	log := logger.Scoped(ctx, "repository", "List")

	var (
		conds []string
		args  []any
	)
	if !filter.IncludeInactive {
		conds = append(conds, "active = TRUE")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.PopularOnly {
		conds = append(conds, "popular = TRUE")
	}

	query := "SELECT " + itemColumns + " FROM services"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY popular DESC, name ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query services", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			log.Error("failed to scan service", zap.Error(err))
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Item, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM services WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	return it, err
}

func (r *repository) GetByIDs(ctx context.Context, ids []uint) ([]Item, error) {
	if len(ids) == 0 {
		return []Item{}, nil
	}

	arr := make([]int64, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM services WHERE id = ANY($1) AND active = TRUE ORDER BY id",
		pq.Array(arr))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *repository) Create(ctx context.Context, input CreateInput) (*Item, error) {
	features := input.Features
	if features == nil {
		features = []string{}
	}

	it, err := scanItem(r.db.QueryRowContext(ctx, `
		INSERT INTO services (name, description, price, category, popular, duration, features, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+itemColumns,
		input.Name, input.Description, input.Price, input.Category, input.Popular,
		input.Duration, pq.Array(features), input.ImageURL,
	))
	if err != nil {
		logger.Scoped(ctx, "repository", "Create").Error("failed to insert service", zap.Error(err))
	}
	return it, err
}

func (r *repository) Update(ctx context.Context, id uint, input UpdateInput) (*Item, error) {
	var features any
	if input.Features != nil {
		features = pq.Array(input.Features)
	}

	it, err := scanItem(r.db.QueryRowContext(ctx, `
		UPDATE services SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			price       = COALESCE($4, price),
			category    = COALESCE($5, category),
			popular     = COALESCE($6, popular),
			duration    = COALESCE($7, duration),
			features    = COALESCE($8, features),
			image_url   = COALESCE($9, image_url),
			active      = COALESCE($10, active),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING `+itemColumns,
		id, input.Name, input.Description, input.Price, input.Category, input.Popular,
		input.Duration, features, input.ImageURL, input.Active,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		logger.Scoped(ctx, "repository", "Update", zap.Uint("service_id", id)).Error("failed to update service", zap.Error(err))
	}
	return it, err
}

// Deactivate hides a service from the catalog. Rows are never hard-deleted so
// existing order items keep a valid reference.
func (r *repository) Deactivate(ctx context.Context, id uint) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE services SET active = FALSE, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *repository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT category FROM services WHERE active = TRUE AND category <> '' ORDER BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
