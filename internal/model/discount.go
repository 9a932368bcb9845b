package model

import (
	"time"

	"github.com/google/uuid"
)

// Discount code classification.
const (
	DiscountTypeGeneral     = "general"
	DiscountTypeAffiliate   = "affiliate"
	DiscountTypeSeasonal    = "seasonal"
	DiscountTypeVIP         = "vip"
	DiscountTypePromotional = "promotional"
	DiscountTypeNoMOQ       = "no-moq"
)

// Discount value kinds.
const (
	DiscountValuePercentage = "percentage"
	DiscountValueFixed      = "fixed"
)

// DiscountConditions is the optional predicate bundle attached to a code.
// All fields are optional; a zero value means "no restriction".
type DiscountConditions struct {
	MinOrderValue      float64  `json:"minOrderValue,omitempty"`
	MaxOrderValue      float64  `json:"maxOrderValue,omitempty"`
	NewCustomersOnly   bool     `json:"newCustomersOnly,omitempty"`
	SpecificProducts   []string `json:"specificProducts,omitempty"`
	SpecificBrands     []string `json:"specificBrands,omitempty"`
	SpecificCategories []string `json:"specificCategories,omitempty"`
	ExcludedProducts   []string `json:"excludedProducts,omitempty"`
	RequiresAccount    bool     `json:"requiresAccount,omitempty"`
}

// DiscountCode is a redeemable code governing price reduction and usage rules.
// The code string is normalized to uppercase on both write and read.
type DiscountCode struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`

	Type          string  `json:"type"`
	DiscountType  string  `json:"discountType"`
	DiscountValue float64 `json:"discountValue"`

	MaxUses            *int `json:"maxUses,omitempty"`
	MaxUsesPerCustomer *int `json:"maxUsesPerCustomer,omitempty"`
	CurrentUses        int  `json:"currentUses"`

	ValidFrom  time.Time  `json:"validFrom"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`

	Active     bool `json:"active"`
	RemovesMOQ bool `json:"removesMOQ"`

	Conditions *DiscountConditions `json:"conditions,omitempty"`

	TotalRevenue float64 `json:"totalRevenue"`
	TotalOrders  int     `json:"totalOrders"`
	TotalSavings float64 `json:"totalSavings"`

	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DiscountUsage records one successful redemption of a code against an order.
type DiscountUsage struct {
	ID             uuid.UUID `json:"id"`
	DiscountCodeID uuid.UUID `json:"discountCodeId"`
	Code           string    `json:"code"`
	CustomerID     string    `json:"customerId,omitempty"`
	CustomerEmail  string    `json:"customerEmail"`
	OrderID        string    `json:"orderId"`
	OrderValue     float64   `json:"orderValue"`
	DiscountAmount float64   `json:"discountAmount"`
	UsedAt         time.Time `json:"usedAt"`
}

// CreateDiscountCodeRequest is the DTO for creating a discount code.
type CreateDiscountCodeRequest struct {
	Code          string  `json:"code" validate:"required,notblank,max=64"`
	Name          string  `json:"name" validate:"required,notblank,max=255"`
	Description   string  `json:"description" validate:"max=2000"`
	Type          string  `json:"type" validate:"required,oneof=general affiliate seasonal vip promotional no-moq"`
	DiscountType  string  `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue float64 `json:"discountValue" validate:"required,gt=0"`

	MaxUses            *int `json:"maxUses" validate:"omitempty,gte=1"`
	MaxUsesPerCustomer *int `json:"maxUsesPerCustomer" validate:"omitempty,gte=1"`

	ValidFrom  time.Time  `json:"validFrom" validate:"required"`
	ValidUntil *time.Time `json:"validUntil"`

	Active     bool `json:"active"`
	RemovesMOQ bool `json:"removesMOQ"`

	Conditions *DiscountConditions `json:"conditions"`
}

// UpdateDiscountCodeRequest is the DTO for updating a discount code.
// Nil pointers leave the corresponding field untouched.
type UpdateDiscountCodeRequest struct {
	Name          *string  `json:"name" validate:"omitempty,notblank,max=255"`
	Description   *string  `json:"description" validate:"omitempty,max=2000"`
	DiscountType  *string  `json:"discountType" validate:"omitempty,oneof=percentage fixed"`
	DiscountValue *float64 `json:"discountValue" validate:"omitempty,gt=0"`

	MaxUses            *int `json:"maxUses" validate:"omitempty,gte=1"`
	MaxUsesPerCustomer *int `json:"maxUsesPerCustomer" validate:"omitempty,gte=1"`

	ValidFrom  *time.Time `json:"validFrom"`
	ValidUntil *time.Time `json:"validUntil"`

	Active     *bool `json:"active"`
	RemovesMOQ *bool `json:"removesMOQ"`

	Conditions *DiscountConditions `json:"conditions"`
}

// ValidateDiscountRequest is the DTO for checking whether a code is redeemable
// against a cart. Customer identity may be absent (anonymous carts).
type ValidateDiscountRequest struct {
	Code          string   `json:"code" validate:"required,notblank,max=64"`
	OrderValue    float64  `json:"orderValue" validate:"gte=0"`
	CustomerID    string   `json:"customerId"`
	CustomerEmail string   `json:"customerEmail" validate:"omitempty,email"`
	ProductIDs    []string `json:"productIds"`
	BrandIDs      []string `json:"brandIds"`
	CategoryIDs   []string `json:"categoryIds"`
	IsNewCustomer bool     `json:"isNewCustomer"`
	IsB2BOrder    bool     `json:"isB2BOrder"`
	IsLoggedIn    bool     `json:"isLoggedIn"`
}

// DiscountValidationResult is the outcome of a successful validation.
type DiscountValidationResult struct {
	Valid            bool          `json:"valid"`
	Code             *DiscountCode `json:"discountCode,omitempty"`
	ApplicableAmount float64       `json:"applicableAmount"`
	DiscountAmount   float64       `json:"discountAmount"`
	RemovesMOQ       bool          `json:"removesMOQ"`
}
