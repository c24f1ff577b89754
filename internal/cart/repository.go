package cart

import (
	"context"
	"database/sql"

	"koubyte-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Upsert(ctx context.Context, params AddToCartParams) (*CartItem, error)
	UpdateQuantity(ctx context.Context, params UpdateQuantityParams) error
	Remove(ctx context.Context, userID, cartItemID uint) error
	Lines(ctx context.Context, userID uint) ([]Line, error)
	Clear(ctx context.Context, userID uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Upsert adds quantity to an existing line or creates it.
func (r *repository) Upsert(ctx context.Context, params AddToCartParams) (*CartItem, error) {
	log := logger.Scoped(ctx, "repository", "Upsert",
		zap.Uint("user_id", params.UserID),
		zap.Uint("service_id", params.ServiceID),
	)

	var item CartItem
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO carts (user_id, service_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT carts_user_service_key
		DO UPDATE SET quantity = carts.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING id, user_id, service_id, quantity, created_at, updated_at`,
		params.UserID, params.ServiceID, params.Quantity,
	).Scan(&item.ID, &item.UserID, &item.ServiceID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		log.Error("failed to upsert cart item", zap.Error(err))
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateQuantity(ctx context.Context, params UpdateQuantityParams) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE carts SET quantity = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3",
		params.Quantity, params.CartItemID, params.UserID,
	)
	if err != nil {
		logger.Scoped(ctx, "repository", "UpdateQuantity").Error("failed to update quantity", zap.Error(err))
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Remove deletes a line owned by userID. A missing line is not an error.
func (r *repository) Remove(ctx context.Context, userID, cartItemID uint) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM carts WHERE id = $1 AND user_id = $2", cartItemID, userID)
	if err != nil {
		logger.Scoped(ctx, "repository", "Remove").Error("failed to remove cart item", zap.Error(err))
	}
	return err
}

func (r *repository) Lines(ctx context.Context, userID uint) ([]Line, error) {
	log := logger.Scoped(ctx, "repository", "Lines", zap.Uint("user_id", userID))

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.service_id, s.name, s.description, s.category, s.price, c.quantity, s.active
		FROM carts c
		JOIN services s ON s.id = c.service_id
		WHERE c.user_id = $1
		ORDER BY c.created_at ASC, c.id ASC`,
		userID,
	)
	if err != nil {
		log.Error("failed to query cart", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	lines := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.ServiceID, &l.Name, &l.Description, &l.Category, &l.Price, &l.Quantity, &l.Available); err != nil {
			log.Error("failed to scan cart line", zap.Error(err))
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) Clear(ctx context.Context, userID uint) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM carts WHERE user_id = $1", userID)
	return err
}
