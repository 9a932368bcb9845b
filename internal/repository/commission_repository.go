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
	"github.com/lovingyourskin/commerce-api/pkg/database"
)

const commissionColumns = `id, affiliate_id, affiliate_code, order_id, order_number, order_type,
	order_value, commission_type, commission_value, commission_amount, status, payout_id, created_at`

// CommissionRepository provides data access for the commission ledger.
// Ledger rows are append-only: corrections are offsetting records, never
// in-place edits of amounts.
type CommissionRepository struct {
	pool PoolInterface
}

// NewCommissionRepository creates a new CommissionRepository with the given pool.
func NewCommissionRepository(pool *pgxpool.Pool) *CommissionRepository {
	return &CommissionRepository{pool: pool}
}

// NewCommissionRepositoryWithPool creates a CommissionRepository with a custom
// pool interface. Primarily used for testing.
func NewCommissionRepositoryWithPool(pool PoolInterface) *CommissionRepository {
	return &CommissionRepository{pool: pool}
}

func scanCommission(row pgx.Row) (*model.CommissionRecord, error) {
	var c model.CommissionRecord
	err := row.Scan(&c.ID, &c.AffiliateID, &c.AffiliateCode, &c.OrderID, &c.OrderNumber, &c.OrderType,
		&c.OrderValue, &c.CommissionType, &c.CommissionValue, &c.Amount, &c.Status, &c.PayoutID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert appends one ledger record within a transaction.
func (r *CommissionRepository) Insert(ctx context.Context, tx database.TxQuerier, c *model.CommissionRecord) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO affiliate_commissions (id, affiliate_id, affiliate_code, order_id, order_number,
			order_type, order_value, commission_type, commission_value, commission_amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.AffiliateID, c.AffiliateCode, c.OrderID, c.OrderNumber,
		c.OrderType, c.OrderValue, c.CommissionType, c.CommissionValue, c.Amount, c.Status, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert commission record: %w", err)
	}
	return nil
}

// GetByID retrieves one ledger record. Returns nil, nil if not found.
func (r *CommissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CommissionRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+commissionColumns+` FROM affiliate_commissions WHERE id = $1`, id)

	c, err := scanCommission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get commission record: %w", err)
	}
	return c, nil
}

// ListByAffiliate returns an affiliate's ledger, newest first.
func (r *CommissionRepository) ListByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]model.CommissionRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+commissionColumns+` FROM affiliate_commissions
		 WHERE affiliate_id = $1 ORDER BY created_at DESC`, affiliateID)
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	defer rows.Close()

	records := []model.CommissionRecord{}
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commission record: %w", err)
		}
		records = append(records, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commission records: %w", err)
	}
	return records, nil
}

// ListPendingInPeriod locks and returns the unreserved pending ledger rows
// of one affiliate in [start, end]. Rows already stamped with a payout id are
// excluded, so two drafts over the same period cannot cover the same entry.
func (r *CommissionRepository) ListPendingInPeriod(ctx context.Context, tx database.TxQuerier, affiliateID uuid.UUID, start, end time.Time) ([]model.CommissionRecord, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+commissionColumns+` FROM affiliate_commissions
		 WHERE affiliate_id = $1 AND status = $2 AND payout_id IS NULL
		   AND created_at >= $3 AND created_at <= $4
		 ORDER BY created_at FOR UPDATE`,
		affiliateID, model.CommissionStatusPending, start, end)
	if err != nil {
		return nil, fmt.Errorf("list pending commissions: %w", err)
	}
	defer rows.Close()

	records := []model.CommissionRecord{}
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending commission: %w", err)
		}
		records = append(records, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending commissions: %w", err)
	}
	return records, nil
}

// Reserve stamps the draft payout's id on the ledger rows it covers. Must run
// in the drafting transaction, after the payout row exists (FK).
func (r *CommissionRepository) Reserve(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID, ids []uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE affiliate_commissions SET payout_id = $1 WHERE id = ANY($2)`,
		payoutID, ids)
	if err != nil {
		return fmt.Errorf("reserve commissions: %w", err)
	}
	return nil
}

// ListReserved locks and returns the still-pending rows reserved by a payout.
// A row reversed between draft and settlement drops out here, so the settled
// amount is recomputed from what actually remains payable.
func (r *CommissionRepository) ListReserved(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID) ([]model.CommissionRecord, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+commissionColumns+` FROM affiliate_commissions
		 WHERE payout_id = $1 AND status = $2
		 ORDER BY created_at FOR UPDATE`,
		payoutID, model.CommissionStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list reserved commissions: %w", err)
	}
	defer rows.Close()

	records := []model.CommissionRecord{}
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reserved commission: %w", err)
		}
		records = append(records, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reserved commissions: %w", err)
	}
	return records, nil
}

// Release clears a failed payout's reservation so the rows can be covered by
// a corrected payout. Paid rows are left untouched.
func (r *CommissionRepository) Release(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE affiliate_commissions SET payout_id = NULL WHERE payout_id = $1 AND status = $2`,
		payoutID, model.CommissionStatusPending)
	if err != nil {
		return fmt.Errorf("release commissions: %w", err)
	}
	return nil
}

// MarkPaid stamps ledger rows with the completed payout id.
func (r *CommissionRepository) MarkPaid(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID, ids []uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE affiliate_commissions SET status = $1, payout_id = $2 WHERE id = ANY($3)`,
		model.CommissionStatusPaid, payoutID, ids)
	if err != nil {
		return fmt.Errorf("mark commissions paid: %w", err)
	}
	return nil
}

// MarkReversed flags the original record of a correction. The offsetting
// record is inserted separately via Insert.
func (r *CommissionRepository) MarkReversed(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE affiliate_commissions SET status = $1 WHERE id = $2`,
		model.CommissionStatusReversed, id)
	if err != nil {
		return fmt.Errorf("mark commission reversed: %w", err)
	}
	return nil
}
