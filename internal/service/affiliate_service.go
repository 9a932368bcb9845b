package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/pkg/database"
)

// AffiliateRepositoryInterface defines the interface for affiliate data access.
type AffiliateRepositoryInterface interface {
	Insert(ctx context.Context, a *model.Affiliate) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Affiliate, error)
	GetByDiscountCode(ctx context.Context, discountCodeID uuid.UUID) (*model.Affiliate, error)
	List(ctx context.Context, status string) ([]model.Affiliate, error)
	Update(ctx context.Context, a *model.Affiliate) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status, suspendedReason string, now time.Time) error
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Affiliate, error)
	ApplyConversion(ctx context.Context, tx database.TxQuerier, id uuid.UUID, orderValue, commission float64, now time.Time) error
	ApplyPayout(ctx context.Context, tx database.TxQuerier, id uuid.UUID, amount float64, now time.Time) error
	ApplyReversal(ctx context.Context, tx database.TxQuerier, id uuid.UUID, amount float64, now time.Time) error
	RecordClick(ctx context.Context, id uuid.UUID, uniqueVisitor bool, now time.Time) error
}

// CommissionRepositoryInterface defines the interface for the commission ledger.
type CommissionRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, c *model.CommissionRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CommissionRecord, error)
	ListByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]model.CommissionRecord, error)
	ListPendingInPeriod(ctx context.Context, tx database.TxQuerier, affiliateID uuid.UUID, start, end time.Time) ([]model.CommissionRecord, error)
	Reserve(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID, ids []uuid.UUID) error
	ListReserved(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID) ([]model.CommissionRecord, error)
	Release(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID) error
	MarkPaid(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID, ids []uuid.UUID) error
	MarkReversed(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error
}

// ClickRepositoryInterface defines the interface for the click audit trail.
type ClickRepositoryInterface interface {
	Insert(ctx context.Context, c *model.AffiliateClick) error
}

// AffiliateService provides business logic for affiliates, referral clicks
// and the commission ledger.
type AffiliateService struct {
	affiliates  AffiliateRepositoryInterface
	commissions CommissionRepositoryInterface
	clicks      ClickRepositoryInterface
	codes       DiscountRepositoryInterface
	pool        database.TxBeginner
	rdb         redis.Cmdable
	now         func() time.Time
}

// NewAffiliateService creates a new AffiliateService. rdb may be nil; click
// tracking then falls back to counting every click as unique.
func NewAffiliateService(
	affiliates AffiliateRepositoryInterface,
	commissions CommissionRepositoryInterface,
	clicks ClickRepositoryInterface,
	codes DiscountRepositoryInterface,
	pool database.TxBeginner,
	rdb redis.Cmdable,
) *AffiliateService {
	return &AffiliateService{
		affiliates:  affiliates,
		commissions: commissions,
		clicks:      clicks,
		codes:       codes,
		pool:        pool,
		rdb:         rdb,
		now:         time.Now,
	}
}

// Create registers a new affiliate in pending status, linked to an existing
// affiliate-type discount code.
func (s *AffiliateService) Create(ctx context.Context, req *model.CreateAffiliateRequest, createdBy string) (*model.Affiliate, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	codeID, err := uuid.Parse(req.DiscountCodeID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid discount code id", ErrInvalidRequest)
	}
	code, err := s.codes.GetByID(ctx, codeID)
	if err != nil {
		return nil, fmt.Errorf("get linked code: %w", err)
	}
	if code == nil {
		return nil, ErrCodeNotFound
	}
	if code.Type != model.DiscountTypeAffiliate {
		return nil, fmt.Errorf("%w: linked code must be of affiliate type", ErrInvalidRequest)
	}
	if req.CommissionType == model.DiscountValuePercentage && req.CommissionValue > 100 {
		return nil, fmt.Errorf("%w: percentage commission above 100", ErrInvalidRequest)
	}

	a := &model.Affiliate{
		ID:               uuid.New(),
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		Company:          req.Company,
		Website:          req.Website,
		SocialMedia:      req.SocialMedia,
		DiscountCodeID:   code.ID,
		DiscountCode:     code.Code,
		CommissionType:   req.CommissionType,
		CommissionValue:  req.CommissionValue,
		TieredCommission: sortTiers(req.TieredCommission),
		Status:           model.AffiliateStatusPending,
		PaymentInfo:      req.PaymentInfo,
		Notes:            req.Notes,
		Tags:             req.Tags,
		CreatedBy:        createdBy,
	}
	if err := s.affiliates.Insert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// sortTiers orders tiers ascending by MinOrders so tier selection can take
// the last matching entry.
func sortTiers(tiers []model.CommissionTier) []model.CommissionTier {
	out := make([]model.CommissionTier, len(tiers))
	copy(out, tiers)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].MinOrders < out[j-1].MinOrders; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// GetByID retrieves an affiliate.
func (s *AffiliateService) GetByID(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
	a, err := s.affiliates.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get affiliate: %w", err)
	}
	if a == nil {
		return nil, ErrAffiliateNotFound
	}
	return a, nil
}

// List returns affiliates, optionally filtered by status.
func (s *AffiliateService) List(ctx context.Context, status string) ([]model.Affiliate, error) {
	return s.affiliates.List(ctx, status)
}

// Update edits an affiliate's profile. Status changes go through the
// dedicated transition methods.
func (s *AffiliateService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateAffiliateRequest) (*model.Affiliate, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Email != nil {
		a.Email = *req.Email
	}
	if req.Phone != nil {
		a.Phone = *req.Phone
	}
	if req.Company != nil {
		a.Company = *req.Company
	}
	if req.Website != nil {
		a.Website = *req.Website
	}
	if req.SocialMedia != nil {
		a.SocialMedia = req.SocialMedia
	}
	if req.CommissionType != nil {
		a.CommissionType = *req.CommissionType
	}
	if req.CommissionValue != nil {
		a.CommissionValue = *req.CommissionValue
	}
	if req.TieredCommission != nil {
		a.TieredCommission = sortTiers(req.TieredCommission)
	}
	if req.PaymentInfo != nil {
		a.PaymentInfo = req.PaymentInfo
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}
	if req.Tags != nil {
		a.Tags = req.Tags
	}

	if a.CommissionType == model.DiscountValuePercentage && a.CommissionValue > 100 {
		return nil, fmt.Errorf("%w: percentage commission above 100", ErrInvalidRequest)
	}

	if err := s.affiliates.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// allowedTransitions is the affiliate status machine.
var allowedTransitions = map[string][]string{
	model.AffiliateStatusPending:   {model.AffiliateStatusActive, model.AffiliateStatusTerminated},
	model.AffiliateStatusActive:    {model.AffiliateStatusSuspended, model.AffiliateStatusTerminated},
	model.AffiliateStatusSuspended: {model.AffiliateStatusActive, model.AffiliateStatusTerminated},
}

func transitionAllowed(from, to string) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Approve activates a pending or suspended affiliate.
func (s *AffiliateService) Approve(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
	return s.transition(ctx, id, model.AffiliateStatusActive, "")
}

// Suspend suspends an active affiliate with a reason. Their linked code keeps
// working for customers; suspended affiliates simply earn no commission.
func (s *AffiliateService) Suspend(ctx context.Context, id uuid.UUID, reason string) (*model.Affiliate, error) {
	return s.transition(ctx, id, model.AffiliateStatusSuspended, reason)
}

// Terminate ends the partnership. Terminal state.
func (s *AffiliateService) Terminate(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
	return s.transition(ctx, id, model.AffiliateStatusTerminated, "")
}

func (s *AffiliateService) transition(ctx context.Context, id uuid.UUID, to, reason string) (*model.Affiliate, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(a.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}

	now := s.now()
	if err := s.affiliates.UpdateStatus(ctx, id, to, reason, now); err != nil {
		return nil, err
	}

	a.Status = to
	switch to {
	case model.AffiliateStatusActive:
		a.ApprovedAt = &now
		a.SuspendedReason = ""
	case model.AffiliateStatusSuspended:
		a.SuspendedAt = &now
		a.SuspendedReason = reason
	}
	return a, nil
}

// CommissionForOrder computes the commission an affiliate earns on an order
// of the given value, given the order count after this conversion. Tiered
// structures pick the greatest tier whose MinOrders threshold is reached;
// with no tiers the flat commission applies.
func CommissionForOrder(a *model.Affiliate, orderValue float64, orderCount int) (commissionType string, commissionValue, amount float64) {
	commissionType = a.CommissionType
	commissionValue = a.CommissionValue

	for _, tier := range a.TieredCommission {
		if orderCount >= tier.MinOrders {
			commissionValue = tier.CommissionValue
		}
	}

	if commissionType == model.DiscountValueFixed {
		amount = commissionValue
		if amount > orderValue {
			amount = orderValue
		}
		return commissionType, commissionValue, amount
	}
	return commissionType, commissionValue, orderValue * commissionValue / 100
}

// RecordConversion attributes one paid order to the affiliate linked to the
// redeemed code, inside the caller's transaction. It locks the affiliate row,
// appends the ledger record and bumps the stats counters together so
// total = pending + paid survives the write.
// Returns the ledger record, or nil when no active affiliate is linked.
func (s *AffiliateService) RecordConversion(ctx context.Context, tx database.TxQuerier, code *model.DiscountCode, orderID, orderNumber, orderType string, orderValue float64) (*model.CommissionRecord, error) {
	linked, err := s.affiliates.GetByDiscountCode(ctx, code.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup linked affiliate: %w", err)
	}
	if linked == nil {
		return nil, nil
	}

	a, err := s.affiliates.GetForUpdate(ctx, tx, linked.ID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AffiliateStatusActive {
		return nil, nil
	}

	now := s.now()
	newCount := a.Stats.TotalOrders + 1
	commissionType, commissionValue, amount := CommissionForOrder(a, orderValue, newCount)

	rec := &model.CommissionRecord{
		ID:              uuid.New(),
		AffiliateID:     a.ID,
		AffiliateCode:   a.DiscountCode,
		OrderID:         orderID,
		OrderNumber:     orderNumber,
		OrderType:       orderType,
		OrderValue:      orderValue,
		CommissionType:  commissionType,
		CommissionValue: commissionValue,
		Amount:          amount,
		Status:          model.CommissionStatusPending,
		CreatedAt:       now,
	}
	if err := s.commissions.Insert(ctx, tx, rec); err != nil {
		return nil, err
	}
	if err := s.affiliates.ApplyConversion(ctx, tx, a.ID, orderValue, amount, now); err != nil {
		return nil, err
	}
	return rec, nil
}

// ReverseCommission backs out a pending ledger record, for refunded or
// cancelled orders. Paid records cannot be reversed.
func (s *AffiliateService) ReverseCommission(ctx context.Context, id uuid.UUID) (*model.CommissionRecord, error) {
	rec, err := s.commissions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get commission record: %w", err)
	}
	if rec == nil {
		return nil, ErrCommissionNotFound
	}
	if rec.Status != model.CommissionStatusPending {
		return nil, fmt.Errorf("%w: only pending commissions can be reversed", ErrInvalidTransition)
	}

	err = database.WithTx(ctx, s.pool, func(tx database.TxQuerier) error {
		if _, err := s.affiliates.GetForUpdate(ctx, tx, rec.AffiliateID); err != nil {
			return err
		}
		if err := s.commissions.MarkReversed(ctx, tx, rec.ID); err != nil {
			return err
		}
		return s.affiliates.ApplyReversal(ctx, tx, rec.AffiliateID, rec.Amount, s.now())
	})
	if err != nil {
		return nil, err
	}
	rec.Status = model.CommissionStatusReversed
	return rec, nil
}

// Commissions returns an affiliate's ledger, newest first.
func (s *AffiliateService) Commissions(ctx context.Context, affiliateID uuid.UUID) ([]model.CommissionRecord, error) {
	if _, err := s.GetByID(ctx, affiliateID); err != nil {
		return nil, err
	}
	return s.commissions.ListByAffiliate(ctx, affiliateID)
}

// Redis keys for click counters.
const (
	clickCountKeyPrefix   = "affiliate:clicks:"
	uniqueVisitorsPrefix  = "affiliate:visitors:"
	visitorRetentionHours = 24 * 30
)

// TrackClick records one referral click on an affiliate code. Counter bumps
// go through Redis (INCR for totals, HyperLogLog for unique sessions) with
// the durable row written afterwards. Unknown or inactive codes return
// ErrAffiliateNotFound so the endpoint stays quiet about which codes exist.
func (s *AffiliateService) TrackClick(ctx context.Context, req *model.TrackClickRequest) error {
	if req == nil {
		return ErrInvalidRequest
	}

	code, err := s.codes.GetByCode(ctx, req.Code)
	if err != nil {
		return fmt.Errorf("get code: %w", err)
	}
	if code == nil {
		return ErrAffiliateNotFound
	}
	a, err := s.affiliates.GetByDiscountCode(ctx, code.ID)
	if err != nil {
		return fmt.Errorf("lookup affiliate: %w", err)
	}
	if a == nil {
		return ErrAffiliateNotFound
	}

	unique := true
	if s.rdb != nil {
		if err := s.rdb.Incr(ctx, clickCountKeyPrefix+a.ID.String()).Err(); err != nil {
			log.Warn().Err(err).Str("affiliateId", a.ID.String()).Msg("click counter bump failed")
		}
		if req.SessionID != "" {
			key := uniqueVisitorsPrefix + a.ID.String()
			added, err := s.rdb.PFAdd(ctx, key, req.SessionID).Result()
			if err != nil {
				log.Warn().Err(err).Str("affiliateId", a.ID.String()).Msg("unique visitor tracking failed")
			} else {
				unique = added > 0
				s.rdb.Expire(ctx, key, visitorRetentionHours*time.Hour)
			}
		}
	}

	now := s.now()
	click := &model.AffiliateClick{
		ID:          uuid.New(),
		AffiliateID: a.ID,
		Code:        code.Code,
		SessionID:   req.SessionID,
		Referrer:    req.Referrer,
		LandingPage: req.LandingPage,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
		ClickedAt:   now,
	}
	if err := s.clicks.Insert(ctx, click); err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return s.affiliates.RecordClick(ctx, a.ID, unique, now)
}
