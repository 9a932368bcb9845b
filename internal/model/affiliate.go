package model

import (
	"time"

	"github.com/google/uuid"
)

// Affiliate status machine: pending -> active -> {suspended, terminated}.
// Suspended affiliates may be reactivated; terminated is terminal.
const (
	AffiliateStatusPending    = "pending"
	AffiliateStatusActive     = "active"
	AffiliateStatusSuspended  = "suspended"
	AffiliateStatusTerminated = "terminated"
)

// Commission payment methods.
const (
	PayoutMethodBankTransfer = "bank_transfer"
	PayoutMethodPayPal       = "paypal"
	PayoutMethodStripe       = "stripe"
	PayoutMethodOther        = "other"
)

// SocialMedia holds the affiliate's public handles.
type SocialMedia struct {
	Instagram string `json:"instagram,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
}

// CommissionTier is one breakpoint of a tiered commission structure.
// Tiers are stored ordered ascending by MinOrders.
type CommissionTier struct {
	MinOrders       int     `json:"minOrders"`
	CommissionValue float64 `json:"commissionValue"`
}

// AffiliateStats carries the counters mutated on clicks and conversions.
// ConversionRate is derived (orders / clicks) and recomputed on read.
type AffiliateStats struct {
	TotalClicks       int        `json:"totalClicks"`
	UniqueVisitors    int        `json:"uniqueVisitors"`
	TotalOrders       int        `json:"totalOrders"`
	ConversionRate    float64    `json:"conversionRate"`
	TotalRevenue      float64    `json:"totalRevenue"`
	TotalCommission   float64    `json:"totalCommission"`
	PendingCommission float64    `json:"pendingCommission"`
	PaidCommission    float64    `json:"paidCommission"`
	LastOrderDate     *time.Time `json:"lastOrderDate,omitempty"`
	LastClickDate     *time.Time `json:"lastClickDate,omitempty"`
}

// BankDetails holds bank transfer payout fields.
type BankDetails struct {
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	SortCode      string `json:"sortCode,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	SWIFT         string `json:"swift,omitempty"`
}

// PaymentInfo describes how an affiliate gets paid.
type PaymentInfo struct {
	Method            string       `json:"method"`
	BankDetails       *BankDetails `json:"bankDetails,omitempty"`
	PayPalEmail       string       `json:"paypalEmail,omitempty"`
	StripeAccountID   string       `json:"stripeAccountId,omitempty"`
	PreferredCurrency string       `json:"preferredCurrency,omitempty"`
	MinPayoutAmount   float64      `json:"minPayoutAmount,omitempty"`
}

// Affiliate is a referral partner driving attributed sales through exactly
// one linked discount code.
type Affiliate struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Phone   string    `json:"phone,omitempty"`
	Company string    `json:"company,omitempty"`
	Website string    `json:"website,omitempty"`

	SocialMedia *SocialMedia `json:"socialMedia,omitempty"`

	DiscountCodeID uuid.UUID `json:"discountCodeId"`
	DiscountCode   string    `json:"discountCode,omitempty"`

	CommissionType   string           `json:"commissionType"`
	CommissionValue  float64          `json:"commissionValue"`
	TieredCommission []CommissionTier `json:"tieredCommission,omitempty"`

	Status          string     `json:"status"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	SuspendedAt     *time.Time `json:"suspendedAt,omitempty"`
	SuspendedReason string     `json:"suspendedReason,omitempty"`

	Stats AffiliateStats `json:"stats"`

	PaymentInfo *PaymentInfo `json:"paymentInfo,omitempty"`

	Notes     string    `json:"notes,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Commission ledger record statuses. Ledger rows are append-only; corrections
// are new offsetting records with status "reversed" on the original.
const (
	CommissionStatusPending  = "pending"
	CommissionStatusPaid     = "paid"
	CommissionStatusReversed = "reversed"
)

// CommissionRecord is one ledger entry: the commission earned by an affiliate
// on a single attributed order.
type CommissionRecord struct {
	ID              uuid.UUID  `json:"id"`
	AffiliateID     uuid.UUID  `json:"affiliateId"`
	AffiliateCode   string     `json:"affiliateCode"`
	OrderID         string     `json:"orderId"`
	OrderNumber     string     `json:"orderNumber,omitempty"`
	OrderType       string     `json:"orderType"`
	OrderValue      float64    `json:"orderValue"`
	CommissionType  string     `json:"commissionType"`
	CommissionValue float64    `json:"commissionValue"`
	Amount          float64    `json:"commissionAmount"`
	Status          string     `json:"status"`
	PayoutID        *uuid.UUID `json:"payoutId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// AffiliateClick is the durable record of one tracked referral click.
// Aggregate counters live in Redis; this row is the audit trail.
type AffiliateClick struct {
	ID          uuid.UUID `json:"id"`
	AffiliateID uuid.UUID `json:"affiliateId"`
	Code        string    `json:"code"`
	SessionID   string    `json:"sessionId,omitempty"`
	Referrer    string    `json:"referrer,omitempty"`
	LandingPage string    `json:"landingPage,omitempty"`
	UTMSource   string    `json:"utmSource,omitempty"`
	UTMMedium   string    `json:"utmMedium,omitempty"`
	UTMCampaign string    `json:"utmCampaign,omitempty"`
	ClickedAt   time.Time `json:"clickedAt"`
}

// CreateAffiliateRequest is the DTO for registering an affiliate.
type CreateAffiliateRequest struct {
	Name    string `json:"name" validate:"required,notblank,max=255"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Phone   string `json:"phone" validate:"max=64"`
	Company string `json:"company" validate:"max=255"`
	Website string `json:"website" validate:"omitempty,url,max=512"`

	SocialMedia *SocialMedia `json:"socialMedia"`

	DiscountCodeID string `json:"discountCodeId" validate:"required,uuid4"`

	CommissionType   string           `json:"commissionType" validate:"required,oneof=percentage fixed"`
	CommissionValue  float64          `json:"commissionValue" validate:"required,gt=0"`
	TieredCommission []CommissionTier `json:"tieredCommission" validate:"omitempty,dive"`

	PaymentInfo *PaymentInfo `json:"paymentInfo"`
	Notes       string       `json:"notes" validate:"max=2000"`
	Tags        []string     `json:"tags"`
}

// UpdateAffiliateRequest is the DTO for editing an affiliate profile.
type UpdateAffiliateRequest struct {
	Name    *string `json:"name" validate:"omitempty,notblank,max=255"`
	Email   *string `json:"email" validate:"omitempty,email,max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=64"`
	Company *string `json:"company" validate:"omitempty,max=255"`
	Website *string `json:"website" validate:"omitempty,url,max=512"`

	SocialMedia *SocialMedia `json:"socialMedia"`

	CommissionType   *string          `json:"commissionType" validate:"omitempty,oneof=percentage fixed"`
	CommissionValue  *float64         `json:"commissionValue" validate:"omitempty,gt=0"`
	TieredCommission []CommissionTier `json:"tieredCommission" validate:"omitempty,dive"`

	PaymentInfo *PaymentInfo `json:"paymentInfo"`
	Notes       *string      `json:"notes" validate:"omitempty,max=2000"`
	Tags        []string     `json:"tags"`
}

// SuspendAffiliateRequest carries the reason for a suspension.
type SuspendAffiliateRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=1000"`
}

// TrackClickRequest is the DTO for the public click-tracking endpoint.
type TrackClickRequest struct {
	Code        string `json:"code" validate:"required,notblank,max=64"`
	SessionID   string `json:"sessionId" validate:"max=128"`
	Referrer    string `json:"referrer" validate:"max=2048"`
	LandingPage string `json:"landingPage" validate:"max=2048"`
	UTMSource   string `json:"utmSource" validate:"max=255"`
	UTMMedium   string `json:"utmMedium" validate:"max=255"`
	UTMCampaign string `json:"utmCampaign" validate:"max=255"`
}
