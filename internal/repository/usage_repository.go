package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/pkg/database"
)

// UsageRepository provides data access for discount usage records.
type UsageRepository struct {
	pool PoolInterface
}

// NewUsageRepository creates a new UsageRepository with the given pool.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// NewUsageRepositoryWithPool creates a UsageRepository with a custom pool
// interface. Primarily used for testing.
func NewUsageRepositoryWithPool(pool PoolInterface) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// Insert records one redemption within a transaction.
func (r *UsageRepository) Insert(ctx context.Context, tx database.TxQuerier, u *model.DiscountUsage) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO discount_usage (id, discount_code_id, code, customer_id, customer_email,
			order_id, order_value, discount_amount, used_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.DiscountCodeID, strings.ToUpper(u.Code), nullIfEmpty(u.CustomerID), u.CustomerEmail,
		u.OrderID, u.OrderValue, u.DiscountAmount, u.UsedAt)
	if err != nil {
		return fmt.Errorf("insert discount usage: %w", err)
	}
	return nil
}

// CountByCodeAndCustomer returns the customer's historical redemption count
// for a code. Used to enforce maxUsesPerCustomer.
func (r *UsageRepository) CountByCodeAndCustomer(ctx context.Context, code, customerID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM discount_usage WHERE code = $1 AND customer_id = $2`,
		strings.ToUpper(code), customerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count usage for %s: %w", code, err)
	}
	return count, nil
}

// ListByCode returns the redemption history of a code, newest first.
func (r *UsageRepository) ListByCode(ctx context.Context, code string, limit int) ([]model.DiscountUsage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, discount_code_id, code, coalesce(customer_id, ''), customer_email,
			order_id, order_value, discount_amount, used_at
		 FROM discount_usage WHERE code = $1 ORDER BY used_at DESC LIMIT $2`,
		strings.ToUpper(code), limit)
	if err != nil {
		return nil, fmt.Errorf("list usage for %s: %w", code, err)
	}
	defer rows.Close()

	usages := []model.DiscountUsage{}
	for rows.Next() {
		var u model.DiscountUsage
		if err := rows.Scan(&u.ID, &u.DiscountCodeID, &u.Code, &u.CustomerID, &u.CustomerEmail,
			&u.OrderID, &u.OrderValue, &u.DiscountAmount, &u.UsedAt); err != nil {
			return nil, fmt.Errorf("scan discount usage: %w", err)
		}
		usages = append(usages, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discount usage: %w", err)
	}
	return usages, nil
}

// nullIfEmpty maps "" to NULL so anonymous customers don't collide in
// per-customer usage counts.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
