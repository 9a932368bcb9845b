package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/pkg/database"
)

// PayoutRepositoryInterface defines the interface for payout data access.
type PayoutRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, p *model.CommissionPayout) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CommissionPayout, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CommissionPayout, error)
	ListByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]model.CommissionPayout, error)
	UpdateStatus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status, reference, failedReason string, now time.Time) error
}

// PayoutService drafts and settles commission payouts. Drafting and
// completion each run in a single transaction so the ledger, the payout row
// and the affiliate counters move together.
type PayoutService struct {
	payouts     PayoutRepositoryInterface
	commissions CommissionRepositoryInterface
	affiliates  AffiliateRepositoryInterface
	pool        database.TxBeginner
	now         func() time.Time
}

// NewPayoutService creates a new PayoutService.
func NewPayoutService(
	payouts PayoutRepositoryInterface,
	commissions CommissionRepositoryInterface,
	affiliates AffiliateRepositoryInterface,
	pool database.TxBeginner,
) *PayoutService {
	return &PayoutService{
		payouts:     payouts,
		commissions: commissions,
		affiliates:  affiliates,
		pool:        pool,
		now:         time.Now,
	}
}

// Create drafts a payout covering the affiliate's pending ledger entries in
// the given period. The covered rows are locked and stamped with the draft's
// payout id in the same transaction, so a second draft over an overlapping
// period cannot cover the same entry. Returns ErrNothingToPayOut when the
// period holds no uncovered pending commission.
func (s *PayoutService) Create(ctx context.Context, req *model.CreatePayoutRequest, createdBy string) (*model.CommissionPayout, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if !req.PeriodEnd.After(req.PeriodStart) {
		return nil, fmt.Errorf("%w: periodEnd must be after periodStart", ErrInvalidRequest)
	}
	affiliateID, err := uuid.Parse(req.AffiliateID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid affiliate id", ErrInvalidRequest)
	}

	var payout *model.CommissionPayout
	err = database.WithTx(ctx, s.pool, func(tx database.TxQuerier) error {
		a, err := s.affiliates.GetForUpdate(ctx, tx, affiliateID)
		if err != nil {
			return err
		}

		records, err := s.commissions.ListPendingInPeriod(ctx, tx, affiliateID, req.PeriodStart, req.PeriodEnd)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return ErrNothingToPayOut
		}

		var total float64
		orderIDs := make([]string, 0, len(records))
		recordIDs := make([]uuid.UUID, 0, len(records))
		for _, rec := range records {
			total += rec.Amount
			orderIDs = append(orderIDs, rec.OrderID)
			recordIDs = append(recordIDs, rec.ID)
		}

		payout = &model.CommissionPayout{
			ID:            uuid.New(),
			AffiliateID:   a.ID,
			AffiliateName: a.Name,
			Amount:        total,
			Currency:      req.Currency,
			Method:        req.Method,
			PeriodStart:   req.PeriodStart,
			PeriodEnd:     req.PeriodEnd,
			OrderCount:    len(records),
			OrderIDs:      orderIDs,
			Status:        model.PayoutStatusPending,
			Notes:         req.Notes,
			CreatedBy:     createdBy,
			CreatedAt:     s.now(),
		}
		if err := s.payouts.Insert(ctx, tx, payout); err != nil {
			return err
		}
		return s.commissions.Reserve(ctx, tx, payout.ID, recordIDs)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("payoutId", payout.ID.String()).
		Str("affiliateId", payout.AffiliateID.String()).
		Float64("amount", payout.Amount).
		Int("orders", payout.OrderCount).
		Msg("payout drafted")
	return payout, nil
}

// GetByID retrieves a payout.
func (s *PayoutService) GetByID(ctx context.Context, id uuid.UUID) (*model.CommissionPayout, error) {
	p, err := s.payouts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payout: %w", err)
	}
	if p == nil {
		return nil, ErrPayoutNotFound
	}
	return p, nil
}

// ListByAffiliate returns an affiliate's payouts, newest first.
func (s *PayoutService) ListByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]model.CommissionPayout, error) {
	return s.payouts.ListByAffiliate(ctx, affiliateID)
}

// MarkProcessing moves a pending payout into processing, meaning the money
// is on its way through the payment rail.
func (s *PayoutService) MarkProcessing(ctx context.Context, id uuid.UUID) (*model.CommissionPayout, error) {
	return s.transition(ctx, id, model.PayoutStatusProcessing, "", "", nil)
}

// Complete settles a processing payout: exactly the ledger rows reserved at
// draft time flip to paid, and the affiliate's pending commission moves to
// paid by their recomputed sum. Commission recorded after the draft is not
// touched; a row reversed since the draft drops out of the settled amount.
// One transaction end to end.
func (s *PayoutService) Complete(ctx context.Context, id uuid.UUID, reference string) (*model.CommissionPayout, error) {
	return s.transition(ctx, id, model.PayoutStatusCompleted, reference, "", func(ctx context.Context, tx database.TxQuerier, p *model.CommissionPayout) error {
		records, err := s.commissions.ListReserved(ctx, tx, p.ID)
		if err != nil {
			return err
		}

		var total float64
		ids := make([]uuid.UUID, 0, len(records))
		for _, rec := range records {
			total += rec.Amount
			ids = append(ids, rec.ID)
		}
		if len(ids) > 0 {
			if err := s.commissions.MarkPaid(ctx, tx, p.ID, ids); err != nil {
				return err
			}
		}
		if total != p.Amount {
			log.Warn().
				Str("payoutId", p.ID.String()).
				Float64("drafted", p.Amount).
				Float64("settled", total).
				Msg("settled amount differs from draft, ledger changed in the window")
		}
		if _, err := s.affiliates.GetForUpdate(ctx, tx, p.AffiliateID); err != nil {
			return err
		}
		return s.affiliates.ApplyPayout(ctx, tx, p.AffiliateID, total, s.now())
	})
}

// Fail marks a payout as failed with a reason and releases its reservation,
// so a corrected payout can cover the rows again.
func (s *PayoutService) Fail(ctx context.Context, id uuid.UUID, reason string) (*model.CommissionPayout, error) {
	return s.transition(ctx, id, model.PayoutStatusFailed, "", reason, func(ctx context.Context, tx database.TxQuerier, p *model.CommissionPayout) error {
		return s.commissions.Release(ctx, tx, p.ID)
	})
}

// payoutTransitions is the payout status machine.
var payoutTransitions = map[string][]string{
	model.PayoutStatusPending:    {model.PayoutStatusProcessing, model.PayoutStatusFailed},
	model.PayoutStatusProcessing: {model.PayoutStatusCompleted, model.PayoutStatusFailed},
}

func payoutTransitionAllowed(from, to string) bool {
	for _, t := range payoutTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

func (s *PayoutService) transition(
	ctx context.Context,
	id uuid.UUID,
	to, reference, failedReason string,
	settle func(ctx context.Context, tx database.TxQuerier, p *model.CommissionPayout) error,
) (*model.CommissionPayout, error) {
	var payout *model.CommissionPayout
	err := database.WithTx(ctx, s.pool, func(tx database.TxQuerier) error {
		p, err := s.payouts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !payoutTransitionAllowed(p.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, to)
		}

		if settle != nil {
			if err := settle(ctx, tx, p); err != nil {
				return err
			}
		}

		now := s.now()
		if err := s.payouts.UpdateStatus(ctx, tx, id, to, reference, failedReason, now); err != nil {
			return err
		}

		p.Status = to
		p.Reference = reference
		p.FailedReason = failedReason
		if to == model.PayoutStatusCompleted || to == model.PayoutStatusFailed {
			p.ProcessedAt = &now
		}
		payout = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}
