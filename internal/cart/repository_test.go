package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	params := AddToCartParams{UserID: 1, ServiceID: 10, Quantity: 2}

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "user_id", "service_id", "quantity", "created_at", "updated_at"}).
			AddRow(5, 1, 10, 3, time.Now(), time.Now())

		mock.ExpectQuery(`INSERT INTO carts .* ON CONFLICT ON CONSTRAINT carts_user_service_key`).
			WithArgs(params.UserID, params.ServiceID, params.Quantity).
			WillReturnRows(rows)

		item, err := repo.Upsert(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, uint(5), item.ID)
		assert.Equal(t, 3, item.Quantity)
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO carts").WillReturnError(errors.New("db error"))

		_, err := repo.Upsert(context.Background(), params)
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateQuantity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	params := UpdateQuantityParams{UserID: 1, CartItemID: 5, Quantity: 4}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE carts SET quantity = \$1`).
			WithArgs(4, 5, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateQuantity(context.Background(), params))
	})

	t.Run("Not owned or missing", func(t *testing.T) {
		mock.ExpectExec(`UPDATE carts SET quantity`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.UpdateQuantity(context.Background(), params), ErrCartItemNotFound)
	})
}

func TestRepository_Remove(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("Missing row is success", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM carts WHERE id = \$1 AND user_id = \$2`).
			WithArgs(99, 1).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.Remove(context.Background(), 1, 99))
	})
}

func TestRepository_Lines(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "service_id", "name", "description", "category", "price", "quantity", "active"}).
		AddRow(1, 10, "Audit", "desc", "security", "100.00", 2, true).
		AddRow(2, 11, "Setup", "", "networking", "49.99", 1, false)

	mock.ExpectQuery(`SELECT .* FROM carts c JOIN services s ON s.id = c.service_id WHERE c.user_id = \$1`).
		WithArgs(1).
		WillReturnRows(rows)

	lines, err := NewRepository(db).Lines(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.True(t, decimal.RequireFromString("49.99").Equal(lines[1].Price))
	assert.True(t, lines[0].Available)
	assert.False(t, lines[1].Available)
}
