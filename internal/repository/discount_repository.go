package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/service"
	"github.com/lovingyourskin/commerce-api/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const discountColumns = `id, code, name, description, type, discount_type, discount_value,
	max_uses, max_uses_per_customer, current_uses, valid_from, valid_until,
	active, removes_moq, conditions, total_revenue, total_orders, total_savings,
	created_by, created_at, updated_at`

// DiscountRepository provides data access for discount codes using pgx.
type DiscountRepository struct {
	pool PoolInterface
}

// NewDiscountRepository creates a new DiscountRepository with the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// NewDiscountRepositoryWithPool creates a DiscountRepository with a custom
// pool interface. Primarily used for testing.
func NewDiscountRepositoryWithPool(pool PoolInterface) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

func scanDiscount(row pgx.Row) (*model.DiscountCode, error) {
	var c model.DiscountCode
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &c.Description, &c.Type, &c.DiscountType, &c.DiscountValue,
		&c.MaxUses, &c.MaxUsesPerCustomer, &c.CurrentUses, &c.ValidFrom, &c.ValidUntil,
		&c.Active, &c.RemovesMOQ, &c.Conditions, &c.TotalRevenue, &c.TotalOrders, &c.TotalSavings,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert inserts a new discount code. The code string is stored uppercase.
// Returns service.ErrCodeExists if the code already exists.
func (r *DiscountRepository) Insert(ctx context.Context, c *model.DiscountCode) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO discount_codes (id, code, name, description, type, discount_type, discount_value,
			max_uses, max_uses_per_customer, valid_from, valid_until, active, removes_moq, conditions, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		c.ID, strings.ToUpper(c.Code), c.Name, c.Description, c.Type, c.DiscountType, c.DiscountValue,
		c.MaxUses, c.MaxUsesPerCustomer, c.ValidFrom, c.ValidUntil, c.Active, c.RemovesMOQ, c.Conditions, c.CreatedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrCodeExists
		}
		return fmt.Errorf("insert discount code: %w", err)
	}
	return nil
}

// GetByCode retrieves a discount code by its code string, case-insensitively.
// Returns nil, nil if the code is not found (service layer handles this).
func (r *DiscountRepository) GetByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+discountColumns+` FROM discount_codes WHERE code = $1`,
		strings.ToUpper(code))

	c, err := scanDiscount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get discount code %s: %w", code, err)
	}
	return c, nil
}

// GetByID retrieves a discount code by id. Returns nil, nil if not found.
func (r *DiscountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.DiscountCode, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+discountColumns+` FROM discount_codes WHERE id = $1`, id)

	c, err := scanDiscount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get discount code by id: %w", err)
	}
	return c, nil
}

// List retrieves discount codes, newest first. When includeInactive is false,
// only active codes are returned.
func (r *DiscountRepository) List(ctx context.Context, includeInactive bool) ([]model.DiscountCode, error) {
	query := `SELECT ` + discountColumns + ` FROM discount_codes`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list discount codes: %w", err)
	}
	defer rows.Close()

	codes := []model.DiscountCode{}
	for rows.Next() {
		c, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount code: %w", err)
		}
		codes = append(codes, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discount codes: %w", err)
	}
	return codes, nil
}

// Update persists the mutable fields of a discount code.
func (r *DiscountRepository) Update(ctx context.Context, c *model.DiscountCode) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE discount_codes SET name = $2, description = $3, discount_type = $4, discount_value = $5,
			max_uses = $6, max_uses_per_customer = $7, valid_from = $8, valid_until = $9,
			active = $10, removes_moq = $11, conditions = $12, updated_at = now()
		 WHERE id = $1`,
		c.ID, c.Name, c.Description, c.DiscountType, c.DiscountValue,
		c.MaxUses, c.MaxUsesPerCustomer, c.ValidFrom, c.ValidUntil,
		c.Active, c.RemovesMOQ, c.Conditions)
	if err != nil {
		return fmt.Errorf("update discount code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCodeNotFound
	}
	return nil
}

// Deactivate soft-deletes a discount code. This is the safe path for codes
// referenced by historical orders.
func (r *DiscountRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE discount_codes SET active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate discount code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCodeNotFound
	}
	return nil
}

// Delete hard-deletes a discount code.
func (r *DiscountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM discount_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete discount code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCodeNotFound
	}
	return nil
}

// GetCodeForUpdate retrieves a discount code with a row lock (SELECT FOR
// UPDATE). The lock holds until the transaction completes, so concurrent
// redemptions cannot race past the usage cap.
// Returns service.ErrCodeNotFound if the code doesn't exist.
func (r *DiscountRepository) GetCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.DiscountCode, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+discountColumns+` FROM discount_codes WHERE code = $1 FOR UPDATE`,
		strings.ToUpper(code))

	c, err := scanDiscount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCodeNotFound
		}
		return nil, fmt.Errorf("get discount code for update %s: %w", code, err)
	}
	return c, nil
}

// ApplyRedemption increments the usage counter and accumulates the analytics
// aggregates. Must be called within a transaction after locking the row.
func (r *DiscountRepository) ApplyRedemption(ctx context.Context, tx database.TxQuerier, id uuid.UUID, orderValue, discountAmount float64, now time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE discount_codes
		 SET current_uses = current_uses + 1,
		     total_orders = total_orders + 1,
		     total_revenue = total_revenue + $2,
		     total_savings = total_savings + $3,
		     updated_at = $4
		 WHERE id = $1`,
		id, orderValue, discountAmount, now)
	if err != nil {
		return fmt.Errorf("apply redemption for %s: %w", id, err)
	}
	return nil
}
