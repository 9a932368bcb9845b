package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/pkg/database"
)

// DiscountRepositoryInterface defines the interface for discount code data access.
type DiscountRepositoryInterface interface {
	Insert(ctx context.Context, c *model.DiscountCode) error
	GetByCode(ctx context.Context, code string) (*model.DiscountCode, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.DiscountCode, error)
	List(ctx context.Context, includeInactive bool) ([]model.DiscountCode, error)
	Update(ctx context.Context, c *model.DiscountCode) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.DiscountCode, error)
	ApplyRedemption(ctx context.Context, tx database.TxQuerier, id uuid.UUID, orderValue, discountAmount float64, now time.Time) error
}

// UsageRepositoryInterface defines the interface for redemption history access.
type UsageRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, u *model.DiscountUsage) error
	CountByCodeAndCustomer(ctx context.Context, code, customerID string) (int, error)
	ListByCode(ctx context.Context, code string, limit int) ([]model.DiscountUsage, error)
}

// DiscountService provides business logic for discount code operations.
type DiscountService struct {
	codes DiscountRepositoryInterface
	usage UsageRepositoryInterface
	now   func() time.Time
}

// NewDiscountService creates a new DiscountService.
func NewDiscountService(codes DiscountRepositoryInterface, usage UsageRepositoryInterface) *DiscountService {
	return &DiscountService{codes: codes, usage: usage, now: time.Now}
}

// NewDiscountServiceWithClock creates a DiscountService with a custom clock.
// Primarily used for testing time-window behavior.
func NewDiscountServiceWithClock(codes DiscountRepositoryInterface, usage UsageRepositoryInterface, now func() time.Time) *DiscountService {
	return &DiscountService{codes: codes, usage: usage, now: now}
}

// Create creates a new discount code from the request.
// Returns ErrCodeExists if the code already exists and ErrInvalidRequest for
// percentage values outside [0,100].
func (s *DiscountService) Create(ctx context.Context, req *model.CreateDiscountCodeRequest, createdBy string) (*model.DiscountCode, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if req.DiscountType == model.DiscountValuePercentage && req.DiscountValue > 100 {
		return nil, fmt.Errorf("%w: percentage discount above 100", ErrInvalidRequest)
	}
	if req.ValidUntil != nil && req.ValidUntil.Before(req.ValidFrom) {
		return nil, fmt.Errorf("%w: validUntil before validFrom", ErrInvalidRequest)
	}

	code := &model.DiscountCode{
		ID:                 uuid.New(),
		Code:               strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:               req.Name,
		Description:        req.Description,
		Type:               req.Type,
		DiscountType:       req.DiscountType,
		DiscountValue:      req.DiscountValue,
		MaxUses:            req.MaxUses,
		MaxUsesPerCustomer: req.MaxUsesPerCustomer,
		ValidFrom:          req.ValidFrom,
		ValidUntil:         req.ValidUntil,
		Active:             req.Active,
		RemovesMOQ:         req.RemovesMOQ || req.Type == model.DiscountTypeNoMOQ,
		Conditions:         req.Conditions,
		CreatedBy:          createdBy,
	}
	if err := s.codes.Insert(ctx, code); err != nil {
		return nil, err
	}
	return code, nil
}

// GetByCode retrieves a code case-insensitively.
// Returns ErrCodeNotFound if no matching code exists.
func (s *DiscountService) GetByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	c, err := s.codes.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get code: %w", err)
	}
	if c == nil {
		return nil, ErrCodeNotFound
	}
	return c, nil
}

// GetByID retrieves a code by id.
func (s *DiscountService) GetByID(ctx context.Context, id uuid.UUID) (*model.DiscountCode, error) {
	c, err := s.codes.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get code by id: %w", err)
	}
	if c == nil {
		return nil, ErrCodeNotFound
	}
	return c, nil
}

// List returns all codes, optionally including inactive ones.
func (s *DiscountService) List(ctx context.Context, includeInactive bool) ([]model.DiscountCode, error) {
	return s.codes.List(ctx, includeInactive)
}

// Update applies the non-nil fields of the request to an existing code.
func (s *DiscountService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateDiscountCodeRequest) (*model.DiscountCode, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.DiscountType != nil {
		c.DiscountType = *req.DiscountType
	}
	if req.DiscountValue != nil {
		c.DiscountValue = *req.DiscountValue
	}
	if req.MaxUses != nil {
		c.MaxUses = req.MaxUses
	}
	if req.MaxUsesPerCustomer != nil {
		c.MaxUsesPerCustomer = req.MaxUsesPerCustomer
	}
	if req.ValidFrom != nil {
		c.ValidFrom = *req.ValidFrom
	}
	if req.ValidUntil != nil {
		c.ValidUntil = req.ValidUntil
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	if req.RemovesMOQ != nil {
		c.RemovesMOQ = *req.RemovesMOQ
	}
	if req.Conditions != nil {
		c.Conditions = req.Conditions
	}

	if c.DiscountType == model.DiscountValuePercentage && c.DiscountValue > 100 {
		return nil, fmt.Errorf("%w: percentage discount above 100", ErrInvalidRequest)
	}

	if err := s.codes.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Deactivate soft-deletes a code. The safe path for codes referenced by
// historical orders.
func (s *DiscountService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.codes.Deactivate(ctx, id)
}

// Delete hard-deletes a code.
func (s *DiscountService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.codes.Delete(ctx, id)
}

// Validate decides redeemability of a code against a cart without side
// effects. Failure order: lookup, active flag, time window, global cap,
// per-customer cap, conditions.
func (s *DiscountService) Validate(ctx context.Context, req *model.ValidateDiscountRequest) (*model.DiscountValidationResult, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	code, err := s.codes.GetByCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("get code: %w", err)
	}
	if code == nil {
		return nil, ErrCodeNotFound
	}

	if err := s.checkRedeemable(ctx, code, req, s.now()); err != nil {
		return nil, err
	}

	amount := discountAmount(code, req.OrderValue)
	return &model.DiscountValidationResult{
		Valid:            true,
		Code:             code,
		ApplicableAmount: req.OrderValue,
		DiscountAmount:   amount,
		RemovesMOQ:       code.RemovesMOQ,
	}, nil
}

// checkRedeemable runs every redemption precondition against the given code
// snapshot. Used by both Validate (pool read) and Redeem (locked row).
func (s *DiscountService) checkRedeemable(ctx context.Context, code *model.DiscountCode, req *model.ValidateDiscountRequest, now time.Time) error {
	if !code.Active {
		return ErrCodeInactive
	}
	if now.Before(code.ValidFrom) {
		return ErrCodeOutOfWindow
	}
	if code.ValidUntil != nil && now.After(*code.ValidUntil) {
		return ErrCodeOutOfWindow
	}
	if code.MaxUses != nil && code.CurrentUses >= *code.MaxUses {
		return ErrUsageExceeded
	}
	if code.MaxUsesPerCustomer != nil && req.CustomerID != "" {
		used, err := s.usage.CountByCodeAndCustomer(ctx, code.Code, req.CustomerID)
		if err != nil {
			return fmt.Errorf("count customer usage: %w", err)
		}
		if used >= *code.MaxUsesPerCustomer {
			return ErrPerCustomerExceeded
		}
	}

	// No-MOQ codes only make sense for B2B carts.
	if code.RemovesMOQ && code.Type == model.DiscountTypeNoMOQ && !req.IsB2BOrder {
		return fmt.Errorf("%w: no-moq codes apply to B2B orders only", ErrConditionsNotMet)
	}

	return checkConditions(code.Conditions, req)
}

// checkConditions evaluates the optional predicate bundle.
func checkConditions(c *model.DiscountConditions, req *model.ValidateDiscountRequest) error {
	if c == nil {
		return nil
	}
	if c.MinOrderValue > 0 && req.OrderValue < c.MinOrderValue {
		return fmt.Errorf("%w: minimum order value %.2f required", ErrConditionsNotMet, c.MinOrderValue)
	}
	if c.MaxOrderValue > 0 && req.OrderValue > c.MaxOrderValue {
		return fmt.Errorf("%w: order value above maximum %.2f", ErrConditionsNotMet, c.MaxOrderValue)
	}
	if c.NewCustomersOnly && !req.IsNewCustomer {
		return fmt.Errorf("%w: new customers only", ErrConditionsNotMet)
	}
	if c.RequiresAccount && !req.IsLoggedIn {
		return fmt.Errorf("%w: account required", ErrConditionsNotMet)
	}
	if len(c.SpecificProducts) > 0 && !anyOverlap(req.ProductIDs, c.SpecificProducts) {
		return fmt.Errorf("%w: not valid for these products", ErrConditionsNotMet)
	}
	if len(c.SpecificBrands) > 0 && !anyOverlap(req.BrandIDs, c.SpecificBrands) {
		return fmt.Errorf("%w: not valid for these brands", ErrConditionsNotMet)
	}
	if len(c.SpecificCategories) > 0 && !anyOverlap(req.CategoryIDs, c.SpecificCategories) {
		return fmt.Errorf("%w: not valid for these categories", ErrConditionsNotMet)
	}
	if len(c.ExcludedProducts) > 0 && len(req.ProductIDs) > 0 && allContained(req.ProductIDs, c.ExcludedProducts) {
		return fmt.Errorf("%w: products excluded from this discount", ErrConditionsNotMet)
	}
	return nil
}

func anyOverlap(have, want []string) bool {
	set := make(map[string]struct{}, len(want))
	for _, w := range want {
		set[w] = struct{}{}
	}
	for _, h := range have {
		if _, ok := set[h]; ok {
			return true
		}
	}
	return false
}

func allContained(have, in []string) bool {
	set := make(map[string]struct{}, len(in))
	for _, v := range in {
		set[v] = struct{}{}
	}
	for _, h := range have {
		if _, ok := set[h]; !ok {
			return false
		}
	}
	return true
}

// discountAmount computes the discount, clamped to the applicable subtotal.
func discountAmount(code *model.DiscountCode, subtotal float64) float64 {
	var amount float64
	if code.DiscountType == model.DiscountValuePercentage {
		amount = subtotal * code.DiscountValue / 100
	} else {
		amount = code.DiscountValue
	}
	if amount > subtotal {
		amount = subtotal
	}
	return amount
}

// Redeem applies a code to a completed order inside the caller's
// transaction: it locks the code row, re-checks every precondition under the
// lock, appends the usage record and bumps the counters. The row lock is
// what keeps concurrent redemptions from racing past maxUses.
// Returns the discount amount granted.
func (s *DiscountService) Redeem(ctx context.Context, tx database.TxQuerier, req *model.ValidateDiscountRequest, orderID string) (*model.DiscountCode, float64, error) {
	code, err := s.codes.GetCodeForUpdate(ctx, tx, req.Code)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	if err := s.checkRedeemable(ctx, code, req, now); err != nil {
		return nil, 0, err
	}

	amount := discountAmount(code, req.OrderValue)

	usage := &model.DiscountUsage{
		ID:             uuid.New(),
		DiscountCodeID: code.ID,
		Code:           code.Code,
		CustomerID:     req.CustomerID,
		CustomerEmail:  req.CustomerEmail,
		OrderID:        orderID,
		OrderValue:     req.OrderValue,
		DiscountAmount: amount,
		UsedAt:         now,
	}
	if err := s.usage.Insert(ctx, tx, usage); err != nil {
		return nil, 0, fmt.Errorf("insert usage: %w", err)
	}

	if err := s.codes.ApplyRedemption(ctx, tx, code.ID, req.OrderValue, amount, now); err != nil {
		return nil, 0, fmt.Errorf("apply redemption: %w", err)
	}

	code.CurrentUses++
	code.TotalOrders++
	code.TotalRevenue += req.OrderValue
	code.TotalSavings += amount
	return code, amount, nil
}

// UsageHistory returns the redemption history of a code, newest first.
func (s *DiscountService) UsageHistory(ctx context.Context, code string, limit int) ([]model.DiscountUsage, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.usage.ListByCode(ctx, code, limit)
}
