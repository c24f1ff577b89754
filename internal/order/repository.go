package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"koubyte-be/internal/db"
	"koubyte-be/internal/discount"
	"koubyte-be/internal/logger"
	"koubyte-be/internal/utils"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutHooks run inside the checkout transaction, after the order row
// exists (OpenPayment) or before it is written (ApplyDiscount). Either may be nil.
type CheckoutHooks struct {
	ApplyDiscount func(ctx context.Context, q db.DBTX, subtotal decimal.Decimal) (*discount.Result, error)
	OpenPayment   func(ctx context.Context, q db.DBTX, o *Order) error
}

type CheckoutParams struct {
	UserID         uint
	CustomerName   string
	CustomerEmail  string
	Notes          string
	PaymentMethod  string
	IdempotencyKey string
}

type Repository interface {
	Checkout(ctx context.Context, p CheckoutParams, hooks CheckoutHooks) (*Order, bool, error)
	ListByUser(ctx context.Context, userID uint) ([]Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	GetByID(ctx context.Context, id uint) (*Order, error)
	UpdateStatuses(ctx context.Context, id uint, status Status, paymentStatus PaymentStatus) error
	Delete(ctx context.Context, id uint) error
}

type repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db, now: time.Now}
}

const orderColumns = `id, order_number, user_id, customer_name, customer_email, status, payment_status,
	payment_method, total_amount, discount_code, discount_amount, final_amount, notes, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.CustomerName, &o.CustomerEmail, &o.Status,
		&o.PaymentStatus, &o.PaymentMethod, &o.TotalAmount, &o.DiscountCode, &o.DiscountAmount,
		&o.FinalAmount, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

const orderNumberAttempts = 5

type cartLine struct {
	cartID    int64
	serviceID uint
	name      string
	price     decimal.Decimal
	active    bool
	quantity  int
}

// Checkout turns the user's cart into an order in one transaction. The bool
// result is true when an earlier order with the same idempotency key was
// returned instead.
func (r *repository) Checkout(ctx context.Context, p CheckoutParams, hooks CheckoutHooks) (*Order, bool, error) {
	log := logger.Scoped(ctx, "repository", "Checkout",
		zap.Uint("user_id", p.UserID),
		zap.String("method", p.PaymentMethod),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	// Two tabs of the same user check out one after the other.
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", int64(p.UserID)); err != nil {
		log.Error("failed to take checkout lock", zap.Error(err))
		return nil, false, err
	}

	if p.IdempotencyKey != "" {
		existing, err := scanOrder(tx.QueryRowContext(ctx,
			"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 AND idempotency_key = $2",
			p.UserID, p.IdempotencyKey))
		if err == nil {
			if existing.Items, err = loadItems(ctx, tx, existing.ID); err != nil {
				return nil, false, err
			}
			log.Info("checkout replayed", zap.String("order_number", existing.OrderNumber))
			return existing, true, tx.Commit()
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, err
		}
	}

	lines, err := lockCartLines(ctx, tx, p.UserID)
	if err != nil {
		log.Error("failed to read cart", zap.Error(err))
		return nil, false, err
	}
	if len(lines) == 0 {
		return nil, false, ErrCartEmpty
	}

	o := &Order{
		UserID:         &p.UserID,
		CustomerName:   p.CustomerName,
		CustomerEmail:  p.CustomerEmail,
		Status:         StatusPending,
		PaymentStatus:  PaymentUnpaid,
		PaymentMethod:  p.PaymentMethod,
		TotalAmount:    decimal.Zero,
		DiscountAmount: decimal.Zero,
		Notes:          p.Notes,
	}
	cartIDs := make([]int64, 0, len(lines))
	for _, l := range lines {
		if !l.active {
			return nil, false, fmt.Errorf("%w: %s", ErrServiceUnavailable, l.name)
		}
		serviceID := l.serviceID
		item := Item{ServiceID: &serviceID, ServiceName: l.name, UnitPrice: l.price, Quantity: l.quantity}
		o.Items = append(o.Items, item)
		o.TotalAmount = o.TotalAmount.Add(item.Subtotal())
		cartIDs = append(cartIDs, l.cartID)
	}

	if hooks.ApplyDiscount != nil {
		res, err := hooks.ApplyDiscount(ctx, tx, o.TotalAmount)
		if err != nil {
			return nil, false, err
		}
		if res != nil {
			o.DiscountCode = &res.Code
			o.DiscountAmount = res.DiscountAmount
			final := res.FinalAmount
			o.FinalAmount = &final
		}
	}

	if err := r.insertOrder(ctx, tx, o, p.IdempotencyKey); err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return nil, false, err
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, service_id, service_name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			o.ID, item.ServiceID, item.ServiceName, item.UnitPrice, item.Quantity,
		).Scan(&item.ID); err != nil {
			log.Error("failed to insert order item", zap.Error(err))
			return nil, false, err
		}
	}

	if hooks.OpenPayment != nil {
		if err := hooks.OpenPayment(ctx, tx, o); err != nil {
			return nil, false, err
		}
	}

	// Only the rows that were snapshotted; lines added meanwhile stay in the cart.
	if _, err := tx.ExecContext(ctx, "DELETE FROM carts WHERE id = ANY($1)", pq.Array(cartIDs)); err != nil {
		log.Error("failed to clear cart", zap.Error(err))
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	log.Info("order created",
		zap.Uint("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
	return o, false, nil
}

func lockCartLines(ctx context.Context, tx *sql.Tx, userID uint) ([]cartLine, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT c.id, c.service_id, s.name, s.price, s.active, c.quantity
		FROM carts c
		JOIN services s ON s.id = c.service_id
		WHERE c.user_id = $1
		ORDER BY c.id
		FOR UPDATE OF c`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []cartLine
	for rows.Next() {
		var l cartLine
		if err := rows.Scan(&l.cartID, &l.serviceID, &l.name, &l.price, &l.active, &l.quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// insertOrder retries with a fresh order number when the generated one is
// already taken.
func (r *repository) insertOrder(ctx context.Context, tx *sql.Tx, o *Order, idempotencyKey string) error {
	var key *string
	if idempotencyKey != "" {
		key = &idempotencyKey
	}

	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number := utils.GenerateOrderNumber(r.now())
		err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (order_number, user_id, customer_name, customer_email, status, payment_status,
				payment_method, total_amount, discount_code, discount_amount, final_amount, notes, idempotency_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT ON CONSTRAINT orders_order_number_key DO NOTHING
			RETURNING id, created_at, updated_at`,
			number, o.UserID, o.CustomerName, o.CustomerEmail, o.Status, o.PaymentStatus,
			o.PaymentMethod, o.TotalAmount, o.DiscountCode, o.DiscountAmount, o.FinalAmount, o.Notes, key,
		).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		o.OrderNumber = number
		return nil
	}
	return fmt.Errorf("could not allocate a unique order number after %d attempts", orderNumberAttempts)
}

func loadItems(ctx context.Context, q db.DBTX, orderID uint) ([]Item, error) {
	byOrder, err := loadItemsFor(ctx, q, []int64{int64(orderID)})
	if err != nil {
		return nil, err
	}
	return byOrder[orderID], nil
}

func loadItemsFor(ctx context.Context, q db.DBTX, orderIDs []int64) (map[uint][]Item, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, service_id, service_name, unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`,
		pq.Array(orderIDs),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[uint][]Item, len(orderIDs))
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ServiceID, &it.ServiceName, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, err
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	return items, rows.Err()
}

func (r *repository) attachItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = int64(o.ID)
	}
	items, err := loadItemsFor(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []Item{}
		}
	}
	return nil
}

func collectOrders(rows *sql.Rows) ([]Order, error) {
	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		logger.Scoped(ctx, "repository", "ListByUser").Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	return orders, r.attachItems(ctx, orders)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	log := logger.Scoped(ctx, "repository", "List",
		zap.Int("limit", filter.Limit),
		zap.Int("page", filter.Page),
	)

	where := " WHERE 1=1"
	args := []any{}
	argIndex := 1

	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.PaymentStatus != "" {
		where += fmt.Sprintf(" AND payment_status = $%d", argIndex)
		args = append(args, filter.PaymentStatus)
		argIndex++
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND (order_number ILIKE $%d OR customer_name ILIKE $%d OR customer_email ILIKE $%d)",
			argIndex, argIndex, argIndex)
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		log.Error("failed to count orders", zap.Error(err))
		return nil, 0, err
	}

	query := "SELECT " + orderColumns + " FROM orders" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Items, err = loadItems(ctx, r.db, o.ID); err != nil {
		return nil, err
	}
	if o.Items == nil {
		o.Items = []Item{}
	}
	return o, nil
}

// UpdateStatuses writes fulfilment and payment status in one statement.
func (r *repository) UpdateStatuses(ctx context.Context, id uint, status Status, paymentStatus PaymentStatus) error {
	return r.exec(ctx, `
		UPDATE orders SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1`,
		id, status, paymentStatus,
	)
}

// Delete removes the order; items and payment attempts cascade.
func (r *repository) Delete(ctx context.Context, id uint) error {
	return r.exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
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
		return ErrOrderNotFound
	}
	return nil
}
