package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lovingyourskin/commerce-api/internal/model"
)

// ClickRepository stores the durable audit trail of referral clicks.
// Aggregate counters live on the affiliate row and in Redis.
type ClickRepository struct {
	pool PoolInterface
}

// NewClickRepository creates a new ClickRepository with the given pool.
func NewClickRepository(pool *pgxpool.Pool) *ClickRepository {
	return &ClickRepository{pool: pool}
}

// NewClickRepositoryWithPool creates a ClickRepository with a custom pool
// interface. Primarily used for testing.
func NewClickRepositoryWithPool(pool PoolInterface) *ClickRepository {
	return &ClickRepository{pool: pool}
}

// Insert records one referral click.
func (r *ClickRepository) Insert(ctx context.Context, c *model.AffiliateClick) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO affiliate_clicks (id, affiliate_id, code, session_id, referrer,
			landing_page, utm_source, utm_medium, utm_campaign, clicked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.AffiliateID, c.Code, c.SessionID, c.Referrer,
		c.LandingPage, c.UTMSource, c.UTMMedium, c.UTMCampaign, c.ClickedAt)
	if err != nil {
		return fmt.Errorf("insert affiliate click: %w", err)
	}
	return nil
}
