package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"koubyte-be/internal/db"
	"koubyte-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	CreateAttempt(ctx context.Context, q db.DBTX, p *Payment) error
	SetIntent(ctx context.Context, id uint, intentID, redirectURL string) error
	MarkFailed(ctx context.Context, id uint, reason string) error
	MarkOrderPending(ctx context.Context, orderID uint) error
	GetByID(ctx context.Context, id uint) (*Payment, error)
	LatestForOrder(ctx context.Context, orderID uint) (*Payment, error)
	GetOrderRef(ctx context.Context, orderID uint) (*OrderRef, error)
	ApplyStatus(ctx context.Context, u Update) (*Payment, bool, error)
	ListStale(ctx context.Context, before time.Time, limit int) ([]Payment, error)
	List(ctx context.Context, filter ListFilter) ([]Payment, int, error)

	SavePaymentWebhook(ctx context.Context, w Webhook) (webhookID int64, isDuplicate bool, err error)
	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
	PurgeWebhooks(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const paymentSelect = `
	SELECT p.id, p.order_id, COALESCE(o.order_number, ''), p.user_id, p.provider, p.method,
		p.amount, p.currency, p.intent_id, p.redirect_url, p.status, p.failure_reason,
		p.created_at, p.updated_at
	FROM payments p
	LEFT JOIN orders o ON o.id = p.order_id`

func scanPayment(row interface{ Scan(...any) error }) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.OrderNumber, &p.UserID, &p.Provider, &p.Method,
		&p.Amount, &p.Currency, &p.IntentID, &p.RedirectURL, &p.Status, &p.FailureReason,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) CreateAttempt(ctx context.Context, q db.DBTX, p *Payment) error {
	if q == nil {
		q = r.db
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO payments (order_id, user_id, provider, method, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		p.OrderID, p.UserID, p.Provider, p.Method, p.Amount, p.Currency, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		logger.Scoped(ctx, "repository", "CreateAttempt").Error("failed to insert payment attempt", zap.Error(err))
		return err
	}
	return nil
}

func (r *repository) SetIntent(ctx context.Context, id uint, intentID, redirectURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET intent_id = $2, redirect_url = $3, updated_at = NOW()
		WHERE id = $1`,
		id, intentID, redirectURL,
	)
	return err
}

func (r *repository) MarkFailed(ctx context.Context, id uint, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = 'failed', failure_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		id, reason,
	)
	return err
}

func (r *repository) MarkOrderPending(ctx context.Context, orderID uint) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = 'pending', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'unpaid'`,
		orderID,
	)
	return err
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, paymentSelect+" WHERE p.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

func (r *repository) LatestForOrder(ctx context.Context, orderID uint) (*Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		paymentSelect+" WHERE p.order_id = $1 ORDER BY p.id DESC LIMIT 1", orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

func (r *repository) GetOrderRef(ctx context.Context, orderID uint) (*OrderRef, error) {
	var o OrderRef
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_number, user_id, customer_email, payment_status,
			COALESCE(final_amount, total_amount)
		FROM orders WHERE id = $1`,
		orderID,
	).Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.CustomerEmail, &o.PaymentStatus, &o.Payable)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ApplyStatus locks the attempt, applies the status when CanTransition allows
// it and carries the change over to the order in the same transaction. The
// order updates are guarded so a replayed event leaves the row untouched.
func (r *repository) ApplyStatus(ctx context.Context, u Update) (*Payment, bool, error) {
	log := logger.Scoped(ctx, "repository", "ApplyStatus",
		zap.Uint("payment_id", u.PaymentID),
		zap.String("intent_id", u.IntentID),
		zap.String("status", string(u.Status)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var row *sql.Row
	if u.PaymentID != 0 {
		row = tx.QueryRowContext(ctx, paymentSelect+" WHERE p.id = $1 FOR UPDATE OF p", u.PaymentID)
	} else {
		row = tx.QueryRowContext(ctx, paymentSelect+" WHERE p.provider = $1 AND p.intent_id = $2 FOR UPDATE OF p",
			u.Provider, u.IntentID)
	}
	cur, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, ErrPaymentNotFound
	}
	if err != nil {
		log.Error("failed to lock payment", zap.Error(err))
		return nil, false, err
	}

	if !CanTransition(cur.Status, u.Status) {
		log.Debug("payment update ignored", zap.String("current", string(cur.Status)))
		return cur, false, tx.Commit()
	}

	var reason *string
	if u.Status == StatusFailed && u.FailureReason != "" {
		reason = &u.FailureReason
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $2, failure_reason = COALESCE($3, failure_reason), updated_at = NOW()
		WHERE id = $1`,
		cur.ID, u.Status, reason,
	); err != nil {
		log.Error("failed to update payment", zap.Error(err))
		return nil, false, err
	}

	if cur.OrderID != nil {
		if err := syncOrderPaymentStatus(ctx, tx, *cur.OrderID, u.Status); err != nil {
			log.Error("failed to update order payment status", zap.Error(err))
			return nil, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	cur.Status = u.Status
	if reason != nil {
		cur.FailureReason = reason
	}
	log.Info("payment status applied")
	return cur, true, nil
}

func syncOrderPaymentStatus(ctx context.Context, tx *sql.Tx, orderID uint, status Status) error {
	var query string
	switch status {
	case StatusCompleted:
		query = `UPDATE orders SET payment_status = 'paid', updated_at = NOW()
			WHERE id = $1 AND payment_status IN ('unpaid', 'pending')`
	case StatusRefunded:
		query = `UPDATE orders SET payment_status = 'refunded', updated_at = NOW()
			WHERE id = $1 AND payment_status = 'paid'`
	case StatusFailed:
		query = `UPDATE orders SET payment_status = 'unpaid', updated_at = NOW()
			WHERE id = $1 AND payment_status = 'pending'`
	case StatusProcessing:
		query = `UPDATE orders SET payment_status = 'pending', updated_at = NOW()
			WHERE id = $1 AND payment_status = 'unpaid'`
	default:
		return nil
	}
	_, err := tx.ExecContext(ctx, query, orderID)
	return err
}

func (r *repository) ListStale(ctx context.Context, before time.Time, limit int) ([]Payment, error) {
	rows, err := r.db.QueryContext(ctx, paymentSelect+`
		WHERE p.status IN ('pending', 'processing')
			AND p.intent_id IS NOT NULL
			AND p.updated_at < $1
		ORDER BY p.updated_at
		LIMIT $2`,
		before, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Payment, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argIndex := 1

	if filter.Status != "" {
		where += fmt.Sprintf(" AND p.status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.Provider != "" {
		where += fmt.Sprintf(" AND p.provider = $%d", argIndex)
		args = append(args, filter.Provider)
		argIndex++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM payments p"+where, args...).Scan(&total); err != nil {
		logger.Scoped(ctx, "repository", "List").Error("failed to count payments", zap.Error(err))
		return nil, 0, err
	}

	query := paymentSelect + where + fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Scoped(ctx, "repository", "List").Error("failed to list payments", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	payments, err := collect(rows)
	return payments, total, err
}

func collect(rows *sql.Rows) ([]Payment, error) {
	payments := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// SavePaymentWebhook stores a delivery once per (provider, event id). A row
// that previously failed is handed out again so provider retries can succeed.
func (r *repository) SavePaymentWebhook(ctx context.Context, w Webhook) (int64, bool, error) {
	const q = `
	INSERT INTO payment_webhooks (
		provider,
		event_id,
		event_type,
		external_id,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (provider, event_id)
	DO UPDATE SET process_error = NULL
	WHERE payment_webhooks.processed_at IS NULL
		AND payment_webhooks.process_error IS NOT NULL
	RETURNING id;
	`

	var payload any
	if len(w.Payload) > 0 {
		payload = string(w.Payload)
	}

	var id int64
	err := r.db.QueryRowContext(ctx, q,
		w.Provider, w.EventID, w.EventType, w.ExternalID, w.SignatureValid, payload,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		return 0, false, err
	}
	return id, false, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE payment_webhooks SET processed_at = NOW() WHERE id = $1`, webhookID)
	return err
}

func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE payment_webhooks SET process_error = $2 WHERE id = $1`, webhookID, reason)
	return err
}

func (r *repository) PurgeWebhooks(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM payment_webhooks
		WHERE processed_at IS NOT NULL AND created_at < $1`,
		before,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
