package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/service"
	"github.com/lovingyourskin/commerce-api/pkg/database"
)

const affiliateColumns = `id, name, email, phone, company, website, social_media,
	discount_code_id, discount_code, commission_type, commission_value, tiered_commission,
	status, approved_at, suspended_at, suspended_reason,
	total_clicks, unique_visitors, total_orders, total_revenue,
	total_commission, pending_commission, paid_commission, last_order_date, last_click_date,
	payment_info, notes, tags, created_by, created_at, updated_at`

// AffiliateRepository provides data access for affiliates using pgx.
type AffiliateRepository struct {
	pool PoolInterface
}

// NewAffiliateRepository creates a new AffiliateRepository with the given pool.
func NewAffiliateRepository(pool *pgxpool.Pool) *AffiliateRepository {
	return &AffiliateRepository{pool: pool}
}

// NewAffiliateRepositoryWithPool creates an AffiliateRepository with a custom
// pool interface. Primarily used for testing.
func NewAffiliateRepositoryWithPool(pool PoolInterface) *AffiliateRepository {
	return &AffiliateRepository{pool: pool}
}

func scanAffiliate(row pgx.Row) (*model.Affiliate, error) {
	var a model.Affiliate
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.Phone, &a.Company, &a.Website, &a.SocialMedia,
		&a.DiscountCodeID, &a.DiscountCode, &a.CommissionType, &a.CommissionValue, &a.TieredCommission,
		&a.Status, &a.ApprovedAt, &a.SuspendedAt, &a.SuspendedReason,
		&a.Stats.TotalClicks, &a.Stats.UniqueVisitors, &a.Stats.TotalOrders, &a.Stats.TotalRevenue,
		&a.Stats.TotalCommission, &a.Stats.PendingCommission, &a.Stats.PaidCommission,
		&a.Stats.LastOrderDate, &a.Stats.LastClickDate,
		&a.PaymentInfo, &a.Notes, &a.Tags, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.Stats.TotalClicks > 0 {
		a.Stats.ConversionRate = float64(a.Stats.TotalOrders) / float64(a.Stats.TotalClicks)
	}
	return &a, nil
}

// Insert inserts a new affiliate.
// Returns service.ErrAffiliateExists on a duplicate email or on a discount
// code that is already linked to another affiliate.
func (r *AffiliateRepository) Insert(ctx context.Context, a *model.Affiliate) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO affiliates (id, name, email, phone, company, website, social_media,
			discount_code_id, discount_code, commission_type, commission_value, tiered_commission,
			status, payment_info, notes, tags, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		a.ID, a.Name, a.Email, a.Phone, a.Company, a.Website, a.SocialMedia,
		a.DiscountCodeID, a.DiscountCode, a.CommissionType, a.CommissionValue, a.TieredCommission,
		a.Status, a.PaymentInfo, a.Notes, a.Tags, a.CreatedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrAffiliateExists
		}
		return fmt.Errorf("insert affiliate: %w", err)
	}
	return nil
}

// GetByID retrieves an affiliate by id. Returns nil, nil if not found.
func (r *AffiliateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+affiliateColumns+` FROM affiliates WHERE id = $1`, id)

	a, err := scanAffiliate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get affiliate by id: %w", err)
	}
	return a, nil
}

// GetByDiscountCode retrieves the active affiliate linked to a discount code
// id. Returns nil, nil if none is linked or the link is not active.
func (r *AffiliateRepository) GetByDiscountCode(ctx context.Context, discountCodeID uuid.UUID) (*model.Affiliate, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+affiliateColumns+` FROM affiliates WHERE discount_code_id = $1 AND status = $2`,
		discountCodeID, model.AffiliateStatusActive)

	a, err := scanAffiliate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get affiliate by discount code: %w", err)
	}
	return a, nil
}

// List retrieves affiliates, newest first, optionally filtered by status.
func (r *AffiliateRepository) List(ctx context.Context, status string) ([]model.Affiliate, error) {
	query := `SELECT ` + affiliateColumns + ` FROM affiliates`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list affiliates: %w", err)
	}
	defer rows.Close()

	affiliates := []model.Affiliate{}
	for rows.Next() {
		a, err := scanAffiliate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan affiliate: %w", err)
		}
		affiliates = append(affiliates, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate affiliates: %w", err)
	}
	return affiliates, nil
}

// Update persists the mutable profile fields of an affiliate.
func (r *AffiliateRepository) Update(ctx context.Context, a *model.Affiliate) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE affiliates SET name = $2, email = $3, phone = $4, company = $5, website = $6,
			social_media = $7, commission_type = $8, commission_value = $9, tiered_commission = $10,
			payment_info = $11, notes = $12, tags = $13, updated_at = now()
		 WHERE id = $1`,
		a.ID, a.Name, a.Email, a.Phone, a.Company, a.Website,
		a.SocialMedia, a.CommissionType, a.CommissionValue, a.TieredCommission,
		a.PaymentInfo, a.Notes, a.Tags)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrAffiliateExists
		}
		return fmt.Errorf("update affiliate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrAffiliateNotFound
	}
	return nil
}

// UpdateStatus transitions an affiliate's status, stamping the transition
// timestamps. The service layer validates the transition beforehand.
func (r *AffiliateRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status, suspendedReason string, now time.Time) error {
	var approvedAt, suspendedAt any
	switch status {
	case model.AffiliateStatusActive:
		approvedAt = now
	case model.AffiliateStatusSuspended:
		suspendedAt = now
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE affiliates
		 SET status = $2,
		     suspended_reason = $3,
		     approved_at = coalesce($4, approved_at),
		     suspended_at = coalesce($5, suspended_at),
		     updated_at = $6
		 WHERE id = $1`,
		id, status, suspendedReason, approvedAt, suspendedAt, now)
	if err != nil {
		return fmt.Errorf("update affiliate status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrAffiliateNotFound
	}
	return nil
}

// GetForUpdate retrieves an affiliate with a row lock for conversion and
// payout mutations. Returns service.ErrAffiliateNotFound if missing.
func (r *AffiliateRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Affiliate, error) {
	row := tx.QueryRow(ctx, `SELECT `+affiliateColumns+` FROM affiliates WHERE id = $1 FOR UPDATE`, id)

	a, err := scanAffiliate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("get affiliate for update: %w", err)
	}
	return a, nil
}

// ApplyConversion bumps the order counters and the commission split for one
// attributed order. Pending and total move together so the invariant
// total = pending + paid holds after the write.
func (r *AffiliateRepository) ApplyConversion(ctx context.Context, tx database.TxQuerier, id uuid.UUID, orderValue, commission float64, now time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE affiliates
		 SET total_orders = total_orders + 1,
		     total_revenue = total_revenue + $2,
		     pending_commission = pending_commission + $3,
		     total_commission = total_commission + $3,
		     last_order_date = $4,
		     updated_at = $4
		 WHERE id = $1`,
		id, orderValue, commission, now)
	if err != nil {
		return fmt.Errorf("apply conversion for %s: %w", id, err)
	}
	return nil
}

// ApplyPayout moves a completed payout's amount from pending to paid.
// Total commission is unchanged by a payout.
func (r *AffiliateRepository) ApplyPayout(ctx context.Context, tx database.TxQuerier, id uuid.UUID, amount float64, now time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE affiliates
		 SET pending_commission = pending_commission - $2,
		     paid_commission = paid_commission + $2,
		     updated_at = $3
		 WHERE id = $1`,
		id, amount, now)
	if err != nil {
		return fmt.Errorf("apply payout for %s: %w", id, err)
	}
	return nil
}

// ApplyReversal backs a commission amount out of the pending split.
func (r *AffiliateRepository) ApplyReversal(ctx context.Context, tx database.TxQuerier, id uuid.UUID, amount float64, now time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE affiliates
		 SET pending_commission = pending_commission - $2,
		     total_commission = total_commission - $2,
		     updated_at = $3
		 WHERE id = $1`,
		id, amount, now)
	if err != nil {
		return fmt.Errorf("apply reversal for %s: %w", id, err)
	}
	return nil
}

// RecordClick bumps the click counters. uniqueVisitor reflects the Redis
// HyperLogLog outcome for the visitor session.
func (r *AffiliateRepository) RecordClick(ctx context.Context, id uuid.UUID, uniqueVisitor bool, now time.Time) error {
	uniqueInc := 0
	if uniqueVisitor {
		uniqueInc = 1
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE affiliates
		 SET total_clicks = total_clicks + 1,
		     unique_visitors = unique_visitors + $2,
		     last_click_date = $3,
		     updated_at = $3
		 WHERE id = $1`,
		id, uniqueInc, now)
	if err != nil {
		return fmt.Errorf("record click for %s: %w", id, err)
	}
	return nil
}
