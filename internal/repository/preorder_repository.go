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

const preorderColumns = `id, campaign_id, user_id, user_email, items, amount_total, currency,
	status, payment_status, stripe_session_id, stripe_payment_intent_id, affiliate_code,
	confirmed_at, created_at, updated_at`

// PreorderRepository provides data access for pre-order campaign orders.
type PreorderRepository struct {
	pool PoolInterface
}

// NewPreorderRepository creates a new PreorderRepository with the given pool.
func NewPreorderRepository(pool *pgxpool.Pool) *PreorderRepository {
	return &PreorderRepository{pool: pool}
}

// NewPreorderRepositoryWithPool creates a PreorderRepository with a custom
// pool interface. Primarily used for testing.
func NewPreorderRepositoryWithPool(pool PoolInterface) *PreorderRepository {
	return &PreorderRepository{pool: pool}
}

func scanPreorder(row pgx.Row) (*model.Preorder, error) {
	var p model.Preorder
	err := row.Scan(&p.ID, &p.CampaignID, &p.UserID, &p.UserEmail, &p.Items, &p.AmountTotal,
		&p.Currency, &p.Status, &p.PaymentStatus, &p.StripeSessionID, &p.StripePaymentIntentID,
		&p.AffiliateCode, &p.ConfirmedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Insert inserts a drafted preorder.
func (r *PreorderRepository) Insert(ctx context.Context, p *model.Preorder) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO preorders (id, campaign_id, user_id, user_email, items, amount_total,
			currency, status, payment_status, affiliate_code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.CampaignID, p.UserID, p.UserEmail, p.Items, p.AmountTotal,
		p.Currency, p.Status, p.PaymentStatus, p.AffiliateCode)
	if err != nil {
		return fmt.Errorf("insert preorder: %w", err)
	}
	return nil
}

// GetByID retrieves a preorder. Returns nil, nil if not found.
func (r *PreorderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Preorder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+preorderColumns+` FROM preorders WHERE id = $1`, id)

	p, err := scanPreorder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get preorder: %w", err)
	}
	return p, nil
}

// ConfirmPayment marks a preorder paid and confirmed with its payment
// linkage. Called from the webhook materialization transaction. The guard on
// status makes the update idempotent per preorder, not just per event id: a
// resent session under a fresh event id matches zero rows. Returns whether
// this call did the confirming, or service.ErrPreorderNotFound if the
// preorder doesn't exist.
func (r *PreorderRepository) ConfirmPayment(ctx context.Context, tx database.TxQuerier, id uuid.UUID, sessionID, paymentIntentID, userID, userEmail string, now time.Time) (bool, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE preorders
		 SET stripe_session_id = $2,
		     stripe_payment_intent_id = $3,
		     payment_status = $4,
		     status = $5,
		     user_id = coalesce(nullif($6, ''), user_id),
		     user_email = coalesce(nullif($7, ''), user_email),
		     confirmed_at = $8,
		     updated_at = $8
		 WHERE id = $1 AND status <> $5`,
		id, sessionID, paymentIntentID, model.PaymentStatusPaid, model.PreorderStatusConfirmed,
		userID, userEmail, now)
	if err != nil {
		return false, fmt.Errorf("confirm preorder %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM preorders WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, service.ErrPreorderNotFound
		}
		return false, fmt.Errorf("check preorder %s: %w", id, err)
	}
	return false, nil
}
