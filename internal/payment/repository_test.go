package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentCols = []string{
	"id", "order_id", "order_number", "user_id", "provider", "method", "amount", "currency",
	"intent_id", "redirect_url", "status", "failure_reason", "created_at", "updated_at",
}

func paymentRow(status Status) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(paymentCols).
		AddRow(7, 3, "KB-1", 1, "stripe", "card", "180.00", "EUR", "cs_1", "https://pay", string(status), nil, now, now)
}

func TestRepository_ApplyStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Completed marks order paid", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM payments p LEFT JOIN orders o ON o.id = p.order_id WHERE p.provider = \$1 AND p.intent_id = \$2 FOR UPDATE OF p`).
			WithArgs("stripe", "cs_1").
			WillReturnRows(paymentRow(StatusPending))
		mock.ExpectExec(`UPDATE payments SET status = \$2`).
			WithArgs(7, "completed", nil).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE orders SET payment_status = 'paid', updated_at = NOW\(\) WHERE id = \$1 AND payment_status IN \('unpaid', 'pending'\)`).
			WithArgs(3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		p, changed, err := NewRepository(db).ApplyStatus(ctx, Update{Provider: "stripe", IntentID: "cs_1", Status: StatusCompleted})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusCompleted, p.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Repeated completion is a no-op", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`WHERE p.id = \$1 FOR UPDATE OF p`).
			WithArgs(7).
			WillReturnRows(paymentRow(StatusCompleted))
		mock.ExpectCommit()

		p, changed, err := NewRepository(db).ApplyStatus(ctx, Update{PaymentID: 7, Status: StatusCompleted})
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, StatusCompleted, p.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Completed is never downgraded", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE OF p`).WithArgs(7).WillReturnRows(paymentRow(StatusCompleted))
		mock.ExpectCommit()

		_, changed, err := NewRepository(db).ApplyStatus(ctx, Update{PaymentID: 7, Status: StatusFailed, FailureReason: "late failure"})
		require.NoError(t, err)
		assert.False(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure moves pending order back to unpaid", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE OF p`).WithArgs(7).WillReturnRows(paymentRow(StatusPending))
		mock.ExpectExec(`UPDATE payments SET status = \$2`).
			WithArgs(7, "failed", "expired").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE orders SET payment_status = 'unpaid', updated_at = NOW\(\) WHERE id = \$1 AND payment_status = 'pending'`).
			WithArgs(3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		p, changed, err := NewRepository(db).ApplyStatus(ctx, Update{PaymentID: 7, Status: StatusFailed, FailureReason: "expired"})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "expired", *p.FailureReason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown payment", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE OF p`).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, _, err = NewRepository(db).ApplyStatus(ctx, Update{PaymentID: 99, Status: StatusCompleted})
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})
}

func TestRepository_SavePaymentWebhook(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	wh := Webhook{
		Provider:       "stripe",
		EventID:        "evt_1",
		EventType:      "checkout.session.completed",
		ExternalID:     "cs_1",
		Payload:        json.RawMessage(`{"id":"evt_1"}`),
		SignatureValid: true,
	}

	t.Run("New event", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payment_webhooks .* ON CONFLICT \(provider, event_id\) DO UPDATE SET process_error = NULL`).
			WithArgs("stripe", "evt_1", "checkout.session.completed", "cs_1", true, `{"id":"evt_1"}`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

		id, dup, err := repo.SavePaymentWebhook(ctx, wh)
		require.NoError(t, err)
		assert.False(t, dup)
		assert.Equal(t, int64(11), id)
	})

	t.Run("Duplicate event", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payment_webhooks`).WillReturnError(sql.ErrNoRows)

		_, dup, err := repo.SavePaymentWebhook(ctx, wh)
		require.NoError(t, err)
		assert.True(t, dup)
	})

	t.Run("Mark processed and failed", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payment_webhooks SET processed_at = NOW\(\) WHERE id = \$1`).
			WithArgs(11).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE payment_webhooks SET process_error = \$2 WHERE id = \$1`).
			WithArgs(12, "boom").WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkWebhookProcessed(ctx, 11))
		assert.NoError(t, repo.MarkWebhookFailed(ctx, 12, "boom"))
	})

	t.Run("Purge", func(t *testing.T) {
		cutoff := time.Now().Add(-30 * 24 * time.Hour)
		mock.ExpectExec(`DELETE FROM payment_webhooks WHERE processed_at IS NOT NULL AND created_at < \$1`).
			WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 4))

		n, err := repo.PurgeWebhooks(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetOrderRef(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, order_number, user_id, customer_email, payment_status, COALESCE\(final_amount, total_amount\) FROM orders WHERE id = \$1`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "user_id", "customer_email", "payment_status", "payable"}).
			AddRow(3, "KB-1", 1, "ada@example.com", "unpaid", "180.00"))

	o, err := NewRepository(db).GetOrderRef(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "KB-1", o.OrderNumber)
	assert.Equal(t, "180", o.Payable.String())

	mock.ExpectQuery(`FROM orders WHERE id = \$1`).WithArgs(4).WillReturnError(sql.ErrNoRows)
	_, err = NewRepository(db).GetOrderRef(context.Background(), 4)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments p WHERE 1=1 AND p.status = \$1`).
		WithArgs("completed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`WHERE 1=1 AND p.status = \$1 ORDER BY p.created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("completed", 20, 0).
		WillReturnRows(paymentRow(StatusCompleted))

	payments, total, err := NewRepository(db).List(context.Background(), ListFilter{Status: "completed", Limit: 20, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, payments, 1)
	assert.Equal(t, "KB-1", payments[0].OrderNumber)
}
