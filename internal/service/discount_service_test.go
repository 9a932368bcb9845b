package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/pkg/database"
)

// mockDiscountRepository is a mock implementation of DiscountRepositoryInterface.
type mockDiscountRepository struct {
	insertFn           func(ctx context.Context, c *model.DiscountCode) error
	getByCodeFn        func(ctx context.Context, code string) (*model.DiscountCode, error)
	getByIDFn          func(ctx context.Context, id uuid.UUID) (*model.DiscountCode, error)
	listFn             func(ctx context.Context, includeInactive bool) ([]model.DiscountCode, error)
	updateFn           func(ctx context.Context, c *model.DiscountCode) error
	deactivateFn       func(ctx context.Context, id uuid.UUID) error
	deleteFn           func(ctx context.Context, id uuid.UUID) error
	getCodeForUpdateFn func(ctx context.Context, tx database.TxQuerier, code string) (*model.DiscountCode, error)
	applyRedemptionFn  func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, orderValue, discountAmount float64, now time.Time) error
}

func (m *mockDiscountRepository) Insert(ctx context.Context, c *model.DiscountCode) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, c)
	}
	return nil
}

func (m *mockDiscountRepository) GetByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, nil
}

func (m *mockDiscountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.DiscountCode, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockDiscountRepository) List(ctx context.Context, includeInactive bool) ([]model.DiscountCode, error) {
	if m.listFn != nil {
		return m.listFn(ctx, includeInactive)
	}
	return []model.DiscountCode{}, nil
}

func (m *mockDiscountRepository) Update(ctx context.Context, c *model.DiscountCode) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, c)
	}
	return nil
}

func (m *mockDiscountRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, id)
	}
	return nil
}

func (m *mockDiscountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockDiscountRepository) GetCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.DiscountCode, error) {
	if m.getCodeForUpdateFn != nil {
		return m.getCodeForUpdateFn(ctx, tx, code)
	}
	return nil, ErrCodeNotFound
}

func (m *mockDiscountRepository) ApplyRedemption(ctx context.Context, tx database.TxQuerier, id uuid.UUID, orderValue, discountAmount float64, now time.Time) error {
	if m.applyRedemptionFn != nil {
		return m.applyRedemptionFn(ctx, tx, id, orderValue, discountAmount, now)
	}
	return nil
}

// mockUsageRepository is a mock implementation of UsageRepositoryInterface.
type mockUsageRepository struct {
	insertFn                 func(ctx context.Context, tx database.TxQuerier, u *model.DiscountUsage) error
	countByCodeAndCustomerFn func(ctx context.Context, code, customerID string) (int, error)
	listByCodeFn             func(ctx context.Context, code string, limit int) ([]model.DiscountUsage, error)
}

func (m *mockUsageRepository) Insert(ctx context.Context, tx database.TxQuerier, u *model.DiscountUsage) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, u)
	}
	return nil
}

func (m *mockUsageRepository) CountByCodeAndCustomer(ctx context.Context, code, customerID string) (int, error) {
	if m.countByCodeAndCustomerFn != nil {
		return m.countByCodeAndCustomerFn(ctx, code, customerID)
	}
	return 0, nil
}

func (m *mockUsageRepository) ListByCode(ctx context.Context, code string, limit int) ([]model.DiscountUsage, error) {
	if m.listByCodeFn != nil {
		return m.listByCodeFn(ctx, code, limit)
	}
	return []model.DiscountUsage{}, nil
}

// stubTx satisfies database.TxQuerier for methods that run inside a caller's
// transaction.
type stubTx struct{}

func (stubTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func intPtr(i int) *int {
	return &i
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// activeCode returns a redeemable 10% code valid around testNow.
func activeCode() *model.DiscountCode {
	return &model.DiscountCode{
		ID:            uuid.New(),
		Code:          "SAVE10",
		Name:          "Save 10%",
		Type:          model.DiscountTypeGeneral,
		DiscountType:  model.DiscountValuePercentage,
		DiscountValue: 10,
		ValidFrom:     testNow.Add(-24 * time.Hour),
		Active:        true,
	}
}

func TestDiscountService_Create_Success(t *testing.T) {
	var captured *model.DiscountCode
	repo := &mockDiscountRepository{
		insertFn: func(ctx context.Context, c *model.DiscountCode) error {
			captured = c
			return nil
		},
	}
	svc := NewDiscountService(repo, &mockUsageRepository{})

	req := &model.CreateDiscountCodeRequest{
		Code:          "  save10 ",
		Name:          "Save 10%",
		Type:          model.DiscountTypeGeneral,
		DiscountType:  model.DiscountValuePercentage,
		DiscountValue: 10,
		ValidFrom:     testNow,
		Active:        true,
	}

	code, err := svc.Create(context.Background(), req, "admin@lys.com")

	require.NoError(t, err)
	require.NotNil(t, code)
	assert.Equal(t, "SAVE10", captured.Code, "code should be trimmed and uppercased")
	assert.Equal(t, "admin@lys.com", captured.CreatedBy)
	assert.NotEqual(t, uuid.Nil, captured.ID)
}

func TestDiscountService_Create_NoMOQForcesRemovesMOQ(t *testing.T) {
	var captured *model.DiscountCode
	repo := &mockDiscountRepository{
		insertFn: func(ctx context.Context, c *model.DiscountCode) error {
			captured = c
			return nil
		},
	}
	svc := NewDiscountService(repo, &mockUsageRepository{})

	req := &model.CreateDiscountCodeRequest{
		Code:          "NOMOQ",
		Name:          "No MOQ",
		Type:          model.DiscountTypeNoMOQ,
		DiscountType:  model.DiscountValueFixed,
		DiscountValue: 5,
		ValidFrom:     testNow,
		Active:        true,
	}

	_, err := svc.Create(context.Background(), req, "admin@lys.com")

	require.NoError(t, err)
	assert.True(t, captured.RemovesMOQ, "no-moq codes always remove MOQ")
}

func TestDiscountService_Create_PercentageAbove100(t *testing.T) {
	svc := NewDiscountService(&mockDiscountRepository{}, &mockUsageRepository{})

	req := &model.CreateDiscountCodeRequest{
		Code:          "TOOBIG",
		Name:          "Too big",
		Type:          model.DiscountTypeGeneral,
		DiscountType:  model.DiscountValuePercentage,
		DiscountValue: 150,
		ValidFrom:     testNow,
	}

	_, err := svc.Create(context.Background(), req, "admin@lys.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestDiscountService_Create_ValidUntilBeforeValidFrom(t *testing.T) {
	svc := NewDiscountService(&mockDiscountRepository{}, &mockUsageRepository{})

	req := &model.CreateDiscountCodeRequest{
		Code:          "BACKWARDS",
		Name:          "Backwards window",
		Type:          model.DiscountTypeGeneral,
		DiscountType:  model.DiscountValuePercentage,
		DiscountValue: 10,
		ValidFrom:     testNow,
		ValidUntil:    timePtr(testNow.Add(-time.Hour)),
	}

	_, err := svc.Create(context.Background(), req, "admin@lys.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestDiscountService_Create_DuplicateCode(t *testing.T) {
	repo := &mockDiscountRepository{
		insertFn: func(ctx context.Context, c *model.DiscountCode) error {
			return ErrCodeExists
		},
	}
	svc := NewDiscountService(repo, &mockUsageRepository{})

	req := &model.CreateDiscountCodeRequest{
		Code:          "SAVE10",
		Name:          "Save 10%",
		Type:          model.DiscountTypeGeneral,
		DiscountType:  model.DiscountValuePercentage,
		DiscountValue: 10,
		ValidFrom:     testNow,
	}

	_, err := svc.Create(context.Background(), req, "admin@lys.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeExists))
}

func TestDiscountService_Validate_PercentageAmount(t *testing.T) {
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.DiscountCode, error) {
			return activeCode(), nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	result, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{
		Code:       "SAVE10",
		OrderValue: 100,
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Valid)
	assert.Equal(t, 10.0, result.DiscountAmount, "10%% of a 100 cart is 10")
	assert.Equal(t, 100.0, result.ApplicableAmount)
}

func TestDiscountService_Validate_FixedAmountClampedToSubtotal(t *testing.T) {
	code := activeCode()
	code.DiscountType = model.DiscountValueFixed
	code.DiscountValue = 50
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	result, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{
		Code:       "SAVE10",
		OrderValue: 30,
	})

	require.NoError(t, err)
	assert.Equal(t, 30.0, result.DiscountAmount, "fixed discount never exceeds the subtotal")
}

func TestDiscountService_Validate_NotFound(t *testing.T) {
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.DiscountCode, error) {
			return nil, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	_, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{Code: "NOPE", OrderValue: 100})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeNotFound))
}

func TestDiscountService_Validate_Inactive(t *testing.T) {
	code := activeCode()
	code.Active = false
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	_, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{Code: "SAVE10", OrderValue: 100})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeInactive))
}

func TestDiscountService_Validate_BeforeWindow(t *testing.T) {
	code := activeCode()
	code.ValidFrom = testNow.Add(time.Hour)
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	_, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{Code: "SAVE10", OrderValue: 100})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeOutOfWindow))
}

func TestDiscountService_Validate_AfterWindow(t *testing.T) {
	code := activeCode()
	code.ValidUntil = timePtr(testNow.Add(-time.Minute))
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	_, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{Code: "SAVE10", OrderValue: 100})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeOutOfWindow))
}

func TestDiscountService_Validate_UsageExceeded(t *testing.T) {
	code := activeCode()
	code.MaxUses = intPtr(1)
	code.CurrentUses = 1
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	_, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{Code: "SAVE10", OrderValue: 100})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUsageExceeded))
}

func TestDiscountService_Validate_PerCustomerExceeded(t *testing.T) {
	code := activeCode()
	code.MaxUsesPerCustomer = intPtr(2)
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	usage := &mockUsageRepository{
		countByCodeAndCustomerFn: func(ctx context.Context, code2, customerID string) (int, error) {
			return 2, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, usage, fixedClock(testNow))

	_, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{
		Code:       "SAVE10",
		OrderValue: 100,
		CustomerID: "cust_001",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPerCustomerExceeded))
}

func TestDiscountService_Validate_PerCustomerCapSkippedForAnonymous(t *testing.T) {
	code := activeCode()
	code.MaxUsesPerCustomer = intPtr(1)
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	countCalled := false
	usage := &mockUsageRepository{
		countByCodeAndCustomerFn: func(ctx context.Context, code2, customerID string) (int, error) {
			countCalled = true
			return 99, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, usage, fixedClock(testNow))

	result, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{
		Code:       "SAVE10",
		OrderValue: 100,
	})

	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.False(t, countCalled, "anonymous carts cannot be counted against a customer cap")
}

func TestDiscountService_Validate_MinOrderValue(t *testing.T) {
	code := activeCode()
	code.Conditions = &model.DiscountConditions{MinOrderValue: 50}
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	_, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{Code: "SAVE10", OrderValue: 49.99})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConditionsNotMet))
}

func TestDiscountService_Validate_NewCustomersOnly(t *testing.T) {
	code := activeCode()
	code.Conditions = &model.DiscountConditions{NewCustomersOnly: true}
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	_, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{
		Code:          "SAVE10",
		OrderValue:    100,
		IsNewCustomer: false,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConditionsNotMet))
}

func TestDiscountService_Validate_SpecificBrandsOverlap(t *testing.T) {
	code := activeCode()
	code.Conditions = &model.DiscountConditions{SpecificBrands: []string{"brand_a", "brand_b"}}
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	result, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{
		Code:       "SAVE10",
		OrderValue: 100,
		BrandIDs:   []string{"brand_b", "brand_z"},
	})

	require.NoError(t, err)
	assert.True(t, result.Valid, "one qualifying brand in the cart is enough")
}

func TestDiscountService_Validate_AllProductsExcluded(t *testing.T) {
	code := activeCode()
	code.Conditions = &model.DiscountConditions{ExcludedProducts: []string{"p1", "p2"}}
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	_, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{
		Code:       "SAVE10",
		OrderValue: 100,
		ProductIDs: []string{"p1", "p2"},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConditionsNotMet), "cart made entirely of excluded products cannot redeem")
}

func TestDiscountService_Validate_SomeProductsExcluded(t *testing.T) {
	code := activeCode()
	code.Conditions = &model.DiscountConditions{ExcludedProducts: []string{"p1"}}
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	result, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{
		Code:       "SAVE10",
		OrderValue: 100,
		ProductIDs: []string{"p1", "p3"},
	})

	require.NoError(t, err)
	assert.True(t, result.Valid, "a cart with at least one eligible product can redeem")
}

func TestDiscountService_Validate_NoMOQRequiresB2B(t *testing.T) {
	code := activeCode()
	code.Type = model.DiscountTypeNoMOQ
	code.RemovesMOQ = true
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	_, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{
		Code:       "SAVE10",
		OrderValue: 100,
		IsB2BOrder: false,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConditionsNotMet))

	result, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{
		Code:       "SAVE10",
		OrderValue: 100,
		IsB2BOrder: true,
	})
	require.NoError(t, err)
	assert.True(t, result.RemovesMOQ)
}

func TestDiscountService_Validate_InactiveReportedBeforeWindow(t *testing.T) {
	code := activeCode()
	code.Active = false
	code.ValidUntil = timePtr(testNow.Add(-time.Hour))
	repo := &mockDiscountRepository{
		getByCodeFn: func(ctx context.Context, code2 string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	_, err := svc.Validate(context.Background(), &model.ValidateDiscountRequest{Code: "SAVE10", OrderValue: 100})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeInactive), "active flag is checked before the time window")
}

func TestDiscountService_Redeem_Success(t *testing.T) {
	code := activeCode()
	var capturedUsage *model.DiscountUsage
	applyCalled := false
	repo := &mockDiscountRepository{
		getCodeForUpdateFn: func(ctx context.Context, tx database.TxQuerier, name string) (*model.DiscountCode, error) {
			return code, nil
		},
		applyRedemptionFn: func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, orderValue, discountAmount float64, now time.Time) error {
			applyCalled = true
			assert.Equal(t, code.ID, id)
			assert.Equal(t, 200.0, orderValue)
			assert.Equal(t, 20.0, discountAmount)
			return nil
		},
	}
	usage := &mockUsageRepository{
		insertFn: func(ctx context.Context, tx database.TxQuerier, u *model.DiscountUsage) error {
			capturedUsage = u
			return nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, usage, fixedClock(testNow))

	redeemed, amount, err := svc.Redeem(context.Background(), stubTx{}, &model.ValidateDiscountRequest{
		Code:          "SAVE10",
		OrderValue:    200,
		CustomerID:    "cust_001",
		CustomerEmail: "buyer@example.com",
	}, "order_123")

	require.NoError(t, err)
	assert.True(t, applyCalled)
	assert.Equal(t, 20.0, amount)
	assert.Equal(t, 1, redeemed.CurrentUses)
	assert.Equal(t, 1, redeemed.TotalOrders)
	assert.Equal(t, 200.0, redeemed.TotalRevenue)
	assert.Equal(t, 20.0, redeemed.TotalSavings)
	require.NotNil(t, capturedUsage)
	assert.Equal(t, "order_123", capturedUsage.OrderID)
	assert.Equal(t, "cust_001", capturedUsage.CustomerID)
	assert.Equal(t, testNow, capturedUsage.UsedAt)
}

func TestDiscountService_Redeem_RecheckUnderLock(t *testing.T) {
	code := activeCode()
	code.MaxUses = intPtr(1)
	code.CurrentUses = 1 // exhausted by a concurrent redemption
	insertCalled := false
	repo := &mockDiscountRepository{
		getCodeForUpdateFn: func(ctx context.Context, tx database.TxQuerier, name string) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	usage := &mockUsageRepository{
		insertFn: func(ctx context.Context, tx database.TxQuerier, u *model.DiscountUsage) error {
			insertCalled = true
			return nil
		},
	}
	svc := NewDiscountServiceWithClock(repo, usage, fixedClock(testNow))

	_, _, err := svc.Redeem(context.Background(), stubTx{}, &model.ValidateDiscountRequest{
		Code:       "SAVE10",
		OrderValue: 100,
	}, "order_123")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUsageExceeded))
	assert.False(t, insertCalled, "no usage record for a failed redemption")
}

func TestDiscountService_Redeem_NotFound(t *testing.T) {
	repo := &mockDiscountRepository{
		getCodeForUpdateFn: func(ctx context.Context, tx database.TxQuerier, name string) (*model.DiscountCode, error) {
			return nil, ErrCodeNotFound
		},
	}
	svc := NewDiscountServiceWithClock(repo, &mockUsageRepository{}, fixedClock(testNow))

	_, _, err := svc.Redeem(context.Background(), stubTx{}, &model.ValidateDiscountRequest{
		Code:       "NOPE",
		OrderValue: 100,
	}, "order_123")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeNotFound))
}

func TestDiscountService_Redeem_InsertUsageError(t *testing.T) {
	dbErr := errors.New("database insert timeout")
	repo := &mockDiscountRepository{
		getCodeForUpdateFn: func(ctx context.Context, tx database.TxQuerier, name string) (*model.DiscountCode, error) {
			return activeCode(), nil
		},
	}
	usage := &mockUsageRepository{
		insertFn: func(ctx context.Context, tx database.TxQuerier, u *model.DiscountUsage) error {
			return dbErr
		},
	}
	svc := NewDiscountServiceWithClock(repo, usage, fixedClock(testNow))

	_, _, err := svc.Redeem(context.Background(), stubTx{}, &model.ValidateDiscountRequest{
		Code:       "SAVE10",
		OrderValue: 100,
	}, "order_123")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert usage")
}

func TestDiscountService_Update_PercentageAbove100(t *testing.T) {
	code := activeCode()
	repo := &mockDiscountRepository{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*model.DiscountCode, error) {
			return code, nil
		},
	}
	svc := NewDiscountService(repo, &mockUsageRepository{})

	bad := 120.0
	_, err := svc.Update(context.Background(), code.ID, &model.UpdateDiscountCodeRequest{
		DiscountValue: &bad,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestDiscountService_Update_NotFound(t *testing.T) {
	repo := &mockDiscountRepository{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*model.DiscountCode, error) {
			return nil, nil
		},
	}
	svc := NewDiscountService(repo, &mockUsageRepository{})

	name := "renamed"
	_, err := svc.Update(context.Background(), uuid.New(), &model.UpdateDiscountCodeRequest{Name: &name})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeNotFound))
}

func TestDiscountService_UsageHistory_DefaultLimit(t *testing.T) {
	var capturedLimit int
	usage := &mockUsageRepository{
		listByCodeFn: func(ctx context.Context, code string, limit int) ([]model.DiscountUsage, error) {
			capturedLimit = limit
			return []model.DiscountUsage{}, nil
		},
	}
	svc := NewDiscountService(&mockDiscountRepository{}, usage)

	_, err := svc.UsageHistory(context.Background(), "SAVE10", 0)
	require.NoError(t, err)
	assert.Equal(t, 100, capturedLimit)

	_, err = svc.UsageHistory(context.Background(), "SAVE10", 9999)
	require.NoError(t, err)
	assert.Equal(t, 100, capturedLimit, "out-of-range limits fall back to the default")
}
