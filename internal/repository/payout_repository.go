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

const payoutColumns = `id, affiliate_id, affiliate_name, amount, currency, method, reference,
	period_start, period_end, order_count, order_ids, status, processed_at, failed_reason,
	notes, created_by, created_at`

// PayoutRepository provides data access for commission payouts.
type PayoutRepository struct {
	pool PoolInterface
}

// NewPayoutRepository creates a new PayoutRepository with the given pool.
func NewPayoutRepository(pool *pgxpool.Pool) *PayoutRepository {
	return &PayoutRepository{pool: pool}
}

// NewPayoutRepositoryWithPool creates a PayoutRepository with a custom pool
// interface. Primarily used for testing.
func NewPayoutRepositoryWithPool(pool PoolInterface) *PayoutRepository {
	return &PayoutRepository{pool: pool}
}

func scanPayout(row pgx.Row) (*model.CommissionPayout, error) {
	var p model.CommissionPayout
	err := row.Scan(&p.ID, &p.AffiliateID, &p.AffiliateName, &p.Amount, &p.Currency, &p.Method,
		&p.Reference, &p.PeriodStart, &p.PeriodEnd, &p.OrderCount, &p.OrderIDs, &p.Status,
		&p.ProcessedAt, &p.FailedReason, &p.Notes, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Insert inserts a drafted payout within the drafting transaction.
func (r *PayoutRepository) Insert(ctx context.Context, tx database.TxQuerier, p *model.CommissionPayout) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO commission_payouts (id, affiliate_id, affiliate_name, amount, currency, method,
			period_start, period_end, order_count, order_ids, status, notes, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.AffiliateID, p.AffiliateName, p.Amount, p.Currency, p.Method,
		p.PeriodStart, p.PeriodEnd, p.OrderCount, p.OrderIDs, p.Status, p.Notes, p.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}
	return nil
}

// GetByID retrieves a payout. Returns nil, nil if not found.
func (r *PayoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CommissionPayout, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+payoutColumns+` FROM commission_payouts WHERE id = $1`, id)

	p, err := scanPayout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payout: %w", err)
	}
	return p, nil
}

// GetForUpdate retrieves a payout with a row lock for status transitions.
// Returns service.ErrPayoutNotFound if missing.
func (r *PayoutRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CommissionPayout, error) {
	row := tx.QueryRow(ctx, `SELECT `+payoutColumns+` FROM commission_payouts WHERE id = $1 FOR UPDATE`, id)

	p, err := scanPayout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrPayoutNotFound
		}
		return nil, fmt.Errorf("get payout for update: %w", err)
	}
	return p, nil
}

// ListByAffiliate returns an affiliate's payouts, newest first.
func (r *PayoutRepository) ListByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]model.CommissionPayout, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+payoutColumns+` FROM commission_payouts
		 WHERE affiliate_id = $1 ORDER BY created_at DESC`, affiliateID)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	payouts := []model.CommissionPayout{}
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		payouts = append(payouts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payouts: %w", err)
	}
	return payouts, nil
}

// UpdateStatus transitions a payout's status, stamping processedAt on the
// terminal states and carrying the reference / failure reason.
func (r *PayoutRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status, reference, failedReason string, now time.Time) error {
	var processedAt any
	if status == model.PayoutStatusCompleted || status == model.PayoutStatusFailed {
		processedAt = now
	}
	_, err := tx.Exec(ctx,
		`UPDATE commission_payouts
		 SET status = $2, reference = $3, failed_reason = $4, processed_at = coalesce($5, processed_at)
		 WHERE id = $1`,
		id, status, reference, failedReason, processedAt)
	if err != nil {
		return fmt.Errorf("update payout status: %w", err)
	}
	return nil
}
