package order

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"koubyte-be/internal/db"
	"koubyte-be/internal/discount"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderCols = []string{
	"id", "order_number", "user_id", "customer_name", "customer_email", "status", "payment_status",
	"payment_method", "total_amount", "discount_code", "discount_amount", "final_amount", "notes",
	"created_at", "updated_at",
}

var cartCols = []string{"id", "service_id", "name", "price", "active", "quantity"}

func newTestRepository(t *testing.T) (*repository, sqlmock.Sqlmock, func()) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := NewRepository(conn).(*repository)
	repo.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return repo, mock, func() { conn.Close() }
}

func checkoutParams(method string) CheckoutParams {
	return CheckoutParams{
		UserID:        5,
		CustomerName:  "Jan",
		CustomerEmail: "jan@example.com",
		PaymentMethod: method,
	}
}

func TestRepository_Checkout(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("Snapshots cart into order and clears only read rows", func(t *testing.T) {
		repo, mock, done := newTestRepository(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).WithArgs(5).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM carts c JOIN services s ON s.id = c.service_id WHERE c.user_id = \$1 ORDER BY c.id FOR UPDATE OF c`).
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows(cartCols).
				AddRow(11, 1, "Website audit", "100.00", true, 1).
				AddRow(12, 2, "Backup setup", "40.00", true, 2))
		mock.ExpectQuery(`INSERT INTO orders .* ON CONFLICT ON CONSTRAINT orders_order_number_key DO NOTHING RETURNING id, created_at, updated_at`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(3, now, now))
		mock.ExpectQuery(`INSERT INTO order_items`).
			WithArgs(3, 1, "Website audit", sqlmock.AnyArg(), 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
		mock.ExpectQuery(`INSERT INTO order_items`).
			WithArgs(3, 2, "Backup setup", sqlmock.AnyArg(), 2).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(22))
		mock.ExpectExec(`DELETE FROM carts WHERE id = ANY\(\$1\)`).
			WithArgs(pq.Array([]int64{11, 12})).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		o, replayed, err := repo.Checkout(ctx, checkoutParams("afterservice"), CheckoutHooks{})
		require.NoError(t, err)
		assert.False(t, replayed)
		assert.Equal(t, uint(3), o.ID)
		assert.True(t, decimal.NewFromInt(180).Equal(o.TotalAmount), o.TotalAmount.String())
		assert.Nil(t, o.FinalAmount)
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, PaymentUnpaid, o.PaymentStatus)
		assert.Regexp(t, `^KB-20260301-`, o.OrderNumber)
		require.Len(t, o.Items, 2)
		assert.Equal(t, uint(22), o.Items[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty cart creates nothing", func(t *testing.T) {
		repo, mock, done := newTestRepository(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM carts c`).WillReturnRows(sqlmock.NewRows(cartCols))
		mock.ExpectRollback()

		_, _, err := repo.Checkout(ctx, checkoutParams("afterservice"), CheckoutHooks{})
		assert.ErrorIs(t, err, ErrCartEmpty)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Inactive service aborts", func(t *testing.T) {
		repo, mock, done := newTestRepository(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM carts c`).
			WillReturnRows(sqlmock.NewRows(cartCols).AddRow(11, 1, "Old service", "10.00", false, 1))
		mock.ExpectRollback()

		_, _, err := repo.Checkout(ctx, checkoutParams("afterservice"), CheckoutHooks{})
		assert.ErrorIs(t, err, ErrServiceUnavailable)
		assert.ErrorContains(t, err, "Old service")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Discount and payment hooks run in the transaction", func(t *testing.T) {
		repo, mock, done := newTestRepository(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM carts c`).
			WillReturnRows(sqlmock.NewRows(cartCols).AddRow(11, 1, "Website audit", "180.00", true, 1))
		mock.ExpectQuery(`INSERT INTO orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(3, now, now))
		mock.ExpectQuery(`INSERT INTO order_items`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
		mock.ExpectExec(`DELETE FROM carts`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		var paymentSawOrder uint
		hooks := CheckoutHooks{
			ApplyDiscount: func(ctx context.Context, q db.DBTX, subtotal decimal.Decimal) (*discount.Result, error) {
				_, inTx := q.(*sql.Tx)
				assert.True(t, inTx)
				amount := subtotal.Mul(decimal.NewFromFloat(0.1))
				return &discount.Result{Code: "WELCOME10", DiscountAmount: amount, FinalAmount: subtotal.Sub(amount)}, nil
			},
			OpenPayment: func(ctx context.Context, q db.DBTX, o *Order) error {
				paymentSawOrder = o.ID
				return nil
			},
		}

		o, _, err := repo.Checkout(ctx, checkoutParams("card"), hooks)
		require.NoError(t, err)
		require.NotNil(t, o.FinalAmount)
		assert.True(t, decimal.NewFromInt(162).Equal(*o.FinalAmount))
		assert.True(t, decimal.NewFromInt(18).Equal(o.DiscountAmount))
		assert.Equal(t, "WELCOME10", *o.DiscountCode)
		assert.Equal(t, uint(3), paymentSawOrder)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rejected discount rolls back", func(t *testing.T) {
		repo, mock, done := newTestRepository(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM carts c`).
			WillReturnRows(sqlmock.NewRows(cartCols).AddRow(11, 1, "Website audit", "180.00", true, 1))
		mock.ExpectRollback()

		_, _, err := repo.Checkout(ctx, checkoutParams("afterservice"), CheckoutHooks{
			ApplyDiscount: func(context.Context, db.DBTX, decimal.Decimal) (*discount.Result, error) {
				return nil, discount.ErrCodeExhausted
			},
		})
		assert.ErrorIs(t, err, discount.ErrCodeExhausted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Payment attempt failure rolls back", func(t *testing.T) {
		repo, mock, done := newTestRepository(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM carts c`).
			WillReturnRows(sqlmock.NewRows(cartCols).AddRow(11, 1, "Website audit", "180.00", true, 1))
		mock.ExpectQuery(`INSERT INTO orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(3, now, now))
		mock.ExpectQuery(`INSERT INTO order_items`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
		mock.ExpectRollback()

		_, _, err := repo.Checkout(ctx, checkoutParams("card"), CheckoutHooks{
			OpenPayment: func(context.Context, db.DBTX, *Order) error { return errors.New("insert failed") },
		})
		assert.EqualError(t, err, "insert failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Order number collision retries", func(t *testing.T) {
		repo, mock, done := newTestRepository(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM carts c`).
			WillReturnRows(sqlmock.NewRows(cartCols).AddRow(11, 1, "Website audit", "180.00", true, 1))
		mock.ExpectQuery(`INSERT INTO orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}))
		mock.ExpectQuery(`INSERT INTO orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(4, now, now))
		mock.ExpectQuery(`INSERT INTO order_items`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
		mock.ExpectExec(`DELETE FROM carts`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		o, _, err := repo.Checkout(ctx, checkoutParams("afterservice"), CheckoutHooks{})
		require.NoError(t, err)
		assert.Equal(t, uint(4), o.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Idempotency key replays existing order", func(t *testing.T) {
		repo, mock, done := newTestRepository(t)
		defer done()

		p := checkoutParams("card")
		p.IdempotencyKey = "k-1"

		mock.ExpectBegin()
		mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM orders WHERE user_id = \$1 AND idempotency_key = \$2`).
			WithArgs(5, "k-1").
			WillReturnRows(sqlmock.NewRows(orderCols).AddRow(
				3, "KB-1", 5, "Jan", "jan@example.com", "pending", "pending", "card",
				"180.00", nil, "0", nil, "", now, now))
		mock.ExpectQuery(`FROM order_items WHERE order_id = ANY\(\$1\)`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "service_id", "service_name", "unit_price", "quantity"}).
				AddRow(21, 3, 1, "Website audit", "180.00", 1))
		mock.ExpectCommit()

		o, replayed, err := repo.Checkout(ctx, p, CheckoutHooks{
			OpenPayment: func(context.Context, db.DBTX, *Order) error {
				t.Fatal("payment hook must not run on replay")
				return nil
			},
		})
		require.NoError(t, err)
		assert.True(t, replayed)
		assert.Equal(t, "KB-1", o.OrderNumber)
		assert.Len(t, o.Items, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock, done := newTestRepository(t)
	defer done()
	now := time.Now()

	t.Run("Loads items and final amount", func(t *testing.T) {
		mock.ExpectQuery(`FROM orders WHERE id = \$1`).WithArgs(3).
			WillReturnRows(sqlmock.NewRows(orderCols).AddRow(
				3, "KB-1", nil, "Guest", "g@example.com", "confirmed", "paid", "banktransfer",
				"180.00", "WELCOME10", "18.00", "162.00", "call first", now, now))
		mock.ExpectQuery(`FROM order_items`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "service_id", "service_name", "unit_price", "quantity"}).
				AddRow(21, 3, nil, "Removed service", "180.00", 1))

		o, err := repo.GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Nil(t, o.UserID)
		require.NotNil(t, o.FinalAmount)
		assert.True(t, decimal.NewFromInt(162).Equal(o.Payable()))
		require.Len(t, o.Items, 1)
		assert.Nil(t, o.Items[0].ServiceID)
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery(`FROM orders WHERE id = \$1`).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), 99)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestRepository_List(t *testing.T) {
	repo, mock, done := newTestRepository(t)
	defer done()
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders WHERE 1=1 AND status = \$1 AND \(order_number ILIKE \$2`).
		WithArgs("pending", "%jan%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(`FROM orders WHERE 1=1 AND status = \$1 .* ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("pending", "%jan%", 10, 10).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(
			3, "KB-1", 5, "Jan", "jan@example.com", "pending", "unpaid", "afterservice",
			"180.00", nil, "0", nil, "", now, now))
	mock.ExpectQuery(`FROM order_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "service_id", "service_name", "unit_price", "quantity"}))

	orders, total, err := repo.List(context.Background(), ListFilter{Status: "pending", Search: "jan", Limit: 10, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, orders, 1)
	assert.NotNil(t, orders[0].Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Updates(t *testing.T) {
	repo, mock, done := newTestRepository(t)
	defer done()
	ctx := context.Background()

	t.Run("UpdateStatuses writes both columns at once", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET status = \$2, payment_status = \$3`).WithArgs(3, "confirmed", "paid").
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.UpdateStatuses(ctx, 3, StatusConfirmed, PaymentPaid))
	})

	t.Run("UpdateStatuses missing order", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET status = \$2, payment_status = \$3`).WithArgs(9, "pending", "paid").
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.UpdateStatuses(ctx, 9, StatusPending, PaymentPaid), ErrOrderNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM orders WHERE id = \$1`).WithArgs(3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.Delete(ctx, 3))
	})
}
