package model

import (
	"time"

	"github.com/google/uuid"
)

// Payout status machine: pending -> processing -> {completed, failed}.
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

// CommissionPayout is a batch payment to one affiliate covering a closed
// period. The ledger rows it covers are referenced by OrderIDs and stamped
// with the payout id when the payout completes.
type CommissionPayout struct {
	ID            uuid.UUID `json:"id"`
	AffiliateID   uuid.UUID `json:"affiliateId"`
	AffiliateName string    `json:"affiliateName"`

	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Method    string  `json:"method"`
	Reference string  `json:"reference,omitempty"`

	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	OrderCount  int       `json:"orderCount"`
	OrderIDs    []string  `json:"orderIds"`

	Status       string     `json:"status"`
	ProcessedAt  *time.Time `json:"processedAt,omitempty"`
	FailedReason string     `json:"failedReason,omitempty"`

	Notes     string    `json:"notes,omitempty"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreatePayoutRequest is the DTO for drafting a payout over a period.
type CreatePayoutRequest struct {
	AffiliateID string    `json:"affiliateId" validate:"required,uuid4"`
	PeriodStart time.Time `json:"periodStart" validate:"required"`
	PeriodEnd   time.Time `json:"periodEnd" validate:"required"`
	Method      string    `json:"method" validate:"required,oneof=bank_transfer paypal stripe other"`
	Currency    string    `json:"currency" validate:"required,len=3"`
	Notes       string    `json:"notes" validate:"max=2000"`
}

// FailPayoutRequest carries the failure reason for a payout.
type FailPayoutRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=1000"`
}
