package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/pkg/database"
)

// mockPayoutRepository is a mock implementation of PayoutRepositoryInterface.
type mockPayoutRepository struct {
	insertFn          func(ctx context.Context, tx database.TxQuerier, p *model.CommissionPayout) error
	getByIDFn         func(ctx context.Context, id uuid.UUID) (*model.CommissionPayout, error)
	getForUpdateFn    func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CommissionPayout, error)
	listByAffiliateFn func(ctx context.Context, affiliateID uuid.UUID) ([]model.CommissionPayout, error)
	updateStatusFn    func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status, reference, failedReason string, now time.Time) error
}

func (m *mockPayoutRepository) Insert(ctx context.Context, tx database.TxQuerier, p *model.CommissionPayout) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, p)
	}
	return nil
}

func (m *mockPayoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CommissionPayout, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockPayoutRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CommissionPayout, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, id)
	}
	return nil, ErrPayoutNotFound
}

func (m *mockPayoutRepository) ListByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]model.CommissionPayout, error) {
	if m.listByAffiliateFn != nil {
		return m.listByAffiliateFn(ctx, affiliateID)
	}
	return []model.CommissionPayout{}, nil
}

func (m *mockPayoutRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status, reference, failedReason string, now time.Time) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, tx, id, status, reference, failedReason, now)
	}
	return nil
}

var payoutPeriod = struct {
	start, end time.Time
}{
	start: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	end:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
}

func pendingLedger(affiliateID uuid.UUID) []model.CommissionRecord {
	return []model.CommissionRecord{
		{ID: uuid.New(), AffiliateID: affiliateID, OrderID: "order_1", Amount: 20, Status: model.CommissionStatusPending},
		{ID: uuid.New(), AffiliateID: affiliateID, OrderID: "order_2", Amount: 15.5, Status: model.CommissionStatusPending},
		{ID: uuid.New(), AffiliateID: affiliateID, OrderID: "order_3", Amount: 4.5, Status: model.CommissionStatusPending},
	}
}

func TestPayoutService_Create_Success(t *testing.T) {
	a := activeAffiliate(uuid.New())
	var captured *model.CommissionPayout
	affRepo := &mockAffiliateRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Affiliate, error) {
			return a, nil
		},
	}
	ledger := pendingLedger(a.ID)
	var reservedPayoutID uuid.UUID
	var reservedIDs []uuid.UUID
	commRepo := &mockCommissionRepository{
		listPendingInPeriodFn: func(ctx context.Context, tx database.TxQuerier, affiliateID uuid.UUID, start, end time.Time) ([]model.CommissionRecord, error) {
			return ledger, nil
		},
		reserveFn: func(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID, ids []uuid.UUID) error {
			reservedPayoutID = payoutID
			reservedIDs = ids
			return nil
		},
	}
	payoutRepo := &mockPayoutRepository{
		insertFn: func(ctx context.Context, tx database.TxQuerier, p *model.CommissionPayout) error {
			captured = p
			return nil
		},
	}
	svc := NewPayoutService(payoutRepo, commRepo, affRepo, &mockTxBeginner{})

	p, err := svc.Create(context.Background(), &model.CreatePayoutRequest{
		AffiliateID: a.ID.String(),
		PeriodStart: payoutPeriod.start,
		PeriodEnd:   payoutPeriod.end,
		Method:      model.PayoutMethodBankTransfer,
		Currency:    "GBP",
	}, "admin@lys.com")

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, model.PayoutStatusPending, p.Status)
	assert.Equal(t, 40.0, p.Amount, "payout sums the covered ledger entries")
	assert.Equal(t, 3, p.OrderCount)
	assert.Equal(t, []string{"order_1", "order_2", "order_3"}, p.OrderIDs)
	assert.Equal(t, a.Name, p.AffiliateName)
	assert.Equal(t, p.ID, reservedPayoutID, "draft stamps its id on the covered rows")
	assert.Equal(t, []uuid.UUID{ledger[0].ID, ledger[1].ID, ledger[2].ID}, reservedIDs)
}

func TestPayoutService_Create_NothingToPayOut(t *testing.T) {
	a := activeAffiliate(uuid.New())
	affRepo := &mockAffiliateRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Affiliate, error) {
			return a, nil
		},
	}
	commRepo := &mockCommissionRepository{
		listPendingInPeriodFn: func(ctx context.Context, tx database.TxQuerier, affiliateID uuid.UUID, start, end time.Time) ([]model.CommissionRecord, error) {
			return []model.CommissionRecord{}, nil
		},
	}
	svc := NewPayoutService(&mockPayoutRepository{}, commRepo, affRepo, &mockTxBeginner{})

	_, err := svc.Create(context.Background(), &model.CreatePayoutRequest{
		AffiliateID: a.ID.String(),
		PeriodStart: payoutPeriod.start,
		PeriodEnd:   payoutPeriod.end,
		Method:      model.PayoutMethodPayPal,
		Currency:    "GBP",
	}, "admin@lys.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNothingToPayOut))
}

func TestPayoutService_Create_BackwardsPeriod(t *testing.T) {
	svc := NewPayoutService(&mockPayoutRepository{}, &mockCommissionRepository{}, &mockAffiliateRepository{}, &mockTxBeginner{})

	_, err := svc.Create(context.Background(), &model.CreatePayoutRequest{
		AffiliateID: uuid.NewString(),
		PeriodStart: payoutPeriod.end,
		PeriodEnd:   payoutPeriod.start,
		Method:      model.PayoutMethodPayPal,
		Currency:    "GBP",
	}, "admin@lys.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestPayoutService_MarkProcessing(t *testing.T) {
	payout := &model.CommissionPayout{
		ID:     uuid.New(),
		Status: model.PayoutStatusPending,
	}
	var capturedStatus string
	payoutRepo := &mockPayoutRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CommissionPayout, error) {
			return payout, nil
		},
		updateStatusFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status, reference, failedReason string, now time.Time) error {
			capturedStatus = status
			return nil
		},
	}
	svc := NewPayoutService(payoutRepo, &mockCommissionRepository{}, &mockAffiliateRepository{}, &mockTxBeginner{})

	p, err := svc.MarkProcessing(context.Background(), payout.ID)

	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusProcessing, p.Status)
	assert.Equal(t, model.PayoutStatusProcessing, capturedStatus)
}

func TestPayoutService_Complete_SettlesLedgerAndCounters(t *testing.T) {
	a := activeAffiliate(uuid.New())
	payout := &model.CommissionPayout{
		ID:          uuid.New(),
		AffiliateID: a.ID,
		Amount:      40,
		Status:      model.PayoutStatusProcessing,
		PeriodStart: payoutPeriod.start,
		PeriodEnd:   payoutPeriod.end,
	}
	ledger := pendingLedger(a.ID)

	var paidIDs []uuid.UUID
	var paidPayoutID uuid.UUID
	var appliedAmount float64
	payoutRepo := &mockPayoutRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CommissionPayout, error) {
			return payout, nil
		},
	}
	commRepo := &mockCommissionRepository{
		listReservedFn: func(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID) ([]model.CommissionRecord, error) {
			return ledger, nil
		},
		markPaidFn: func(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID, ids []uuid.UUID) error {
			paidPayoutID = payoutID
			paidIDs = ids
			return nil
		},
	}
	affRepo := &mockAffiliateRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Affiliate, error) {
			return a, nil
		},
		applyPayoutFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, amount float64, now time.Time) error {
			appliedAmount = amount
			return nil
		},
	}
	svc := NewPayoutService(payoutRepo, commRepo, affRepo, &mockTxBeginner{})

	p, err := svc.Complete(context.Background(), payout.ID, "wise-TX-123")

	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusCompleted, p.Status)
	assert.Equal(t, "wise-TX-123", p.Reference)
	assert.NotNil(t, p.ProcessedAt)
	assert.Equal(t, payout.ID, paidPayoutID)
	assert.Len(t, paidIDs, 3, "every covered ledger row flips to paid")
	assert.Equal(t, 40.0, appliedAmount, "pending commission moves to paid in the same transaction")
}

func TestPayoutService_Complete_IgnoresLateCommission(t *testing.T) {
	a := activeAffiliate(uuid.New())
	payout := &model.CommissionPayout{
		ID:          uuid.New(),
		AffiliateID: a.ID,
		Amount:      20,
		Status:      model.PayoutStatusProcessing,
		PeriodStart: payoutPeriod.start,
		PeriodEnd:   payoutPeriod.end,
	}
	reserved := model.CommissionRecord{
		ID: uuid.New(), AffiliateID: a.ID, OrderID: "order_1", Amount: 20, Status: model.CommissionStatusPending,
	}
	// Lands in the period after the draft; it belongs to the next payout.
	late := model.CommissionRecord{
		ID: uuid.New(), AffiliateID: a.ID, OrderID: "order_late", Amount: 100, Status: model.CommissionStatusPending,
	}

	var paidIDs []uuid.UUID
	var appliedAmount float64
	pendingQueried := false
	payoutRepo := &mockPayoutRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CommissionPayout, error) {
			return payout, nil
		},
	}
	commRepo := &mockCommissionRepository{
		listReservedFn: func(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID) ([]model.CommissionRecord, error) {
			assert.Equal(t, payout.ID, payoutID)
			return []model.CommissionRecord{reserved}, nil
		},
		listPendingInPeriodFn: func(ctx context.Context, tx database.TxQuerier, affiliateID uuid.UUID, start, end time.Time) ([]model.CommissionRecord, error) {
			pendingQueried = true
			return []model.CommissionRecord{reserved, late}, nil
		},
		markPaidFn: func(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID, ids []uuid.UUID) error {
			paidIDs = ids
			return nil
		},
	}
	affRepo := &mockAffiliateRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Affiliate, error) {
			return a, nil
		},
		applyPayoutFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, amount float64, now time.Time) error {
			appliedAmount = amount
			return nil
		},
	}
	svc := NewPayoutService(payoutRepo, commRepo, affRepo, &mockTxBeginner{})

	_, err := svc.Complete(context.Background(), payout.ID, "wise-TX-124")

	require.NoError(t, err)
	assert.False(t, pendingQueried, "settlement reads the reserved rows, not the period")
	assert.Equal(t, []uuid.UUID{reserved.ID}, paidIDs, "the late commission stays pending and payable")
	assert.Equal(t, 20.0, appliedAmount, "paid counters move by exactly the settled rows")
}

func TestPayoutService_Complete_ReversalShrinksSettlement(t *testing.T) {
	a := activeAffiliate(uuid.New())
	payout := &model.CommissionPayout{
		ID:          uuid.New(),
		AffiliateID: a.ID,
		Amount:      40,
		Status:      model.PayoutStatusProcessing,
		PeriodStart: payoutPeriod.start,
		PeriodEnd:   payoutPeriod.end,
	}
	// Drafted over three rows summing 40; one was reversed in the window and
	// no longer comes back as pending.
	remaining := pendingLedger(a.ID)[:2]

	var paidIDs []uuid.UUID
	var appliedAmount float64
	payoutRepo := &mockPayoutRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CommissionPayout, error) {
			return payout, nil
		},
	}
	commRepo := &mockCommissionRepository{
		listReservedFn: func(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID) ([]model.CommissionRecord, error) {
			return remaining, nil
		},
		markPaidFn: func(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID, ids []uuid.UUID) error {
			paidIDs = ids
			return nil
		},
	}
	affRepo := &mockAffiliateRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Affiliate, error) {
			return a, nil
		},
		applyPayoutFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, amount float64, now time.Time) error {
			appliedAmount = amount
			return nil
		},
	}
	svc := NewPayoutService(payoutRepo, commRepo, affRepo, &mockTxBeginner{})

	_, err := svc.Complete(context.Background(), payout.ID, "wise-TX-125")

	require.NoError(t, err)
	assert.Len(t, paidIDs, 2)
	assert.Equal(t, 35.5, appliedAmount, "settled amount is recomputed, not the drafted 40")
}

func TestPayoutService_Complete_PendingRejected(t *testing.T) {
	payout := &model.CommissionPayout{
		ID:     uuid.New(),
		Status: model.PayoutStatusPending,
	}
	payoutRepo := &mockPayoutRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CommissionPayout, error) {
			return payout, nil
		},
	}
	svc := NewPayoutService(payoutRepo, &mockCommissionRepository{}, &mockAffiliateRepository{}, &mockTxBeginner{})

	_, err := svc.Complete(context.Background(), payout.ID, "ref")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition), "pending payouts must go through processing first")
}

func TestPayoutService_Fail_FromPending(t *testing.T) {
	payout := &model.CommissionPayout{
		ID:     uuid.New(),
		Status: model.PayoutStatusPending,
	}
	var capturedReason string
	var releasedPayoutID uuid.UUID
	payoutRepo := &mockPayoutRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CommissionPayout, error) {
			return payout, nil
		},
		updateStatusFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, status, reference, failedReason string, now time.Time) error {
			capturedReason = failedReason
			return nil
		},
	}
	commRepo := &mockCommissionRepository{
		releaseFn: func(ctx context.Context, tx database.TxQuerier, payoutID uuid.UUID) error {
			releasedPayoutID = payoutID
			return nil
		},
	}
	svc := NewPayoutService(payoutRepo, commRepo, &mockAffiliateRepository{}, &mockTxBeginner{})

	p, err := svc.Fail(context.Background(), payout.ID, "bank details rejected")

	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusFailed, p.Status)
	assert.Equal(t, "bank details rejected", capturedReason)
	assert.NotNil(t, p.ProcessedAt)
	assert.Equal(t, payout.ID, releasedPayoutID, "failed payouts free their rows for the next draft")
}

func TestPayoutService_Fail_CompletedRejected(t *testing.T) {
	payout := &model.CommissionPayout{
		ID:     uuid.New(),
		Status: model.PayoutStatusCompleted,
	}
	payoutRepo := &mockPayoutRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CommissionPayout, error) {
			return payout, nil
		},
	}
	svc := NewPayoutService(payoutRepo, &mockCommissionRepository{}, &mockAffiliateRepository{}, &mockTxBeginner{})

	_, err := svc.Fail(context.Background(), payout.ID, "nope")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition), "completed is terminal")
}

func TestPayoutService_GetByID_NotFound(t *testing.T) {
	payoutRepo := &mockPayoutRepository{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*model.CommissionPayout, error) {
			return nil, nil
		},
	}
	svc := NewPayoutService(payoutRepo, &mockCommissionRepository{}, &mockAffiliateRepository{}, &mockTxBeginner{})

	_, err := svc.GetByID(context.Background(), uuid.New())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPayoutNotFound))
}
