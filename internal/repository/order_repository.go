package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/service"
	"github.com/lovingyourskin/commerce-api/pkg/database"
)

const orderColumns = `id, order_number, stripe_session_id, stripe_payment_intent_id,
	user_id, user_type, customer_email, customer_name, status, payment_status, payment_method,
	items, amount_items, amount_shipping, amount_tax, amount_discount, amount_total, currency,
	shipping_address, billing_address, affiliate_code, timeline, created_at, updated_at`

// OrderRepository provides data access for order snapshots.
type OrderRepository struct {
	pool PoolInterface
}

// NewOrderRepository creates a new OrderRepository with the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// NewOrderRepositoryWithPool creates an OrderRepository with a custom pool
// interface. Primarily used for testing.
func NewOrderRepositoryWithPool(pool PoolInterface) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.StripeSessionID, &o.StripePaymentIntentID,
		&o.UserID, &o.UserType, &o.CustomerEmail, &o.CustomerName,
		&o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.Items, &o.TotalAmount.Items, &o.TotalAmount.Shipping, &o.TotalAmount.Tax,
		&o.TotalAmount.Discount, &o.TotalAmount.Total, &o.TotalAmount.Currency,
		&o.ShippingAddress, &o.BillingAddress, &o.AffiliateCode, &o.Timeline,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// InsertIfAbsent inserts an order keyed by the checkout session id.
// Webhook redelivery hits the ON CONFLICT arm and reports created=false so
// the caller can skip all side effects.
func (r *OrderRepository) InsertIfAbsent(ctx context.Context, tx database.TxQuerier, o *model.Order) (bool, error) {
	tag, err := tx.Exec(ctx,
		`INSERT INTO orders (id, order_number, stripe_session_id, stripe_payment_intent_id,
			user_id, user_type, customer_email, customer_name, status, payment_status, payment_method,
			items, amount_items, amount_shipping, amount_tax, amount_discount, amount_total, currency,
			shipping_address, billing_address, affiliate_code, timeline, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $23)
		 ON CONFLICT (stripe_session_id) DO NOTHING`,
		o.ID, o.OrderNumber, o.StripeSessionID, o.StripePaymentIntentID,
		o.UserID, o.UserType, o.CustomerEmail, o.CustomerName, o.Status, o.PaymentStatus, o.PaymentMethod,
		o.Items, o.TotalAmount.Items, o.TotalAmount.Shipping, o.TotalAmount.Tax,
		o.TotalAmount.Discount, o.TotalAmount.Total, o.TotalAmount.Currency,
		o.ShippingAddress, o.BillingAddress, o.AffiliateCode, o.Timeline, o.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID retrieves an order. Returns nil, nil if not found.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetBySessionID retrieves an order by its checkout session id.
// Returns nil, nil if not found.
func (r *OrderRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE stripe_session_id = $1`, sessionID)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by session: %w", err)
	}
	return o, nil
}

// List returns orders newest first. userID narrows to one customer; empty
// returns all (admin view).
func (r *OrderRepository) List(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

// AppendStatus advances the order status and appends a timeline entry.
// Existing timeline entries are never rewritten.
func (r *OrderRepository) AppendStatus(ctx context.Context, id uuid.UUID, entry model.TimelineEntry) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders
		 SET status = $2,
		     timeline = timeline || $3::jsonb,
		     updated_at = $4
		 WHERE id = $1`,
		id, entry.Status, []model.TimelineEntry{entry}, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("append order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrOrderNotFound
	}
	return nil
}

// UpdatePaymentStatus flags payment state changes reported by the processor
// (refunds, late failures).
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, paymentStatus string, now time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_status = $2, updated_at = $3 WHERE id = $1`,
		id, paymentStatus, now)
	if err != nil {
		return fmt.Errorf("update order payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrOrderNotFound
	}
	return nil
}
