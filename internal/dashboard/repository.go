package dashboard

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

type Repository interface {
	CountByStatus(ctx context.Context, metric string) (map[string]int, error)
	Count(ctx context.Context, metric string) (int, error)
	Revenue(ctx context.Context) (decimal.Decimal, error)
	RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

var groupQueries = map[string]string{
	MetricAppointments: `SELECT status, COUNT(*) FROM appointments GROUP BY status`,
	MetricOrders:       `SELECT payment_status, COUNT(*) FROM orders GROUP BY payment_status`,
}

var countQueries = map[string]string{
	MetricQuotes:        `SELECT COUNT(*) FROM quotes WHERE status = 'pending'`,
	MetricReviews:       `SELECT COUNT(*) FROM reviews WHERE NOT approved`,
	MetricMessages:      `SELECT COUNT(*) FROM contact_messages WHERE NOT read`,
	MetricConversations: `SELECT COUNT(*) FROM conversations WHERE status = 'open'`,
	MetricUsers:         `SELECT COUNT(*) FROM users`,
}

func (r *repository) CountByStatus(ctx context.Context, metric string) (map[string]int, error) {
	query, ok := groupQueries[metric]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *repository) Count(ctx context.Context, metric string) (int, error) {
	query, ok := countQueries[metric]
	if !ok {
		return 0, fmt.Errorf("unknown metric %q", metric)
	}
	var n int
	err := r.db.QueryRowContext(ctx, query).Scan(&n)
	return n, err
}

// Revenue sums paid orders, using the discounted amount when there is one.
func (r *repository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(COALESCE(final_amount, total_amount)), 0)
		FROM orders
		WHERE payment_status = 'paid'`,
	).Scan(&total)
	return total, err
}

func (r *repository) RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_number, customer_name, COALESCE(final_amount, total_amount),
			status, payment_status, created_at
		FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []RecentOrder{}
	for rows.Next() {
		var o RecentOrder
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.Amount,
			&o.Status, &o.PaymentStatus, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
